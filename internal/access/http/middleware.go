package http

import (
	"net/http"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// touchSession counts any authenticated request as a qualifying interaction,
// resetting the caller session's idle clock. Must sit after an authn
// middleware; anonymous requests pass through untouched.
func touchSession(sessions *service.SessionRegistry) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sid := httpx.SessionIDFromCtx(r.Context()); sid != "" {
				sessions.Touch(sid)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAdmin gates a handler on the caller holding the admin role. It reads
// the role fresh from the store per request, so a demotion takes effect on
// the very next call. Must sit after AuthnMiddleware in the chain.
func requireAdmin(roles *service.RolesService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			accountID := httpx.AccountIDFromCtx(ctx)
			if accountID == "" {
				portalapi.ErrUnauthorized.WriteError(w)
				return
			}

			role, err := roles.GetRole(ctx, accountID)
			if err != nil {
				// A valid token for a vanished account authenticates nobody.
				portalapi.ErrUnauthorized.WriteError(w)
				return
			}
			if role != domain.RoleAdmin {
				log.Warn("admin endpoint refused",
					"account_id", accountID,
					"role", string(role),
				)
				portalapi.ErrForbidden.WriteError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

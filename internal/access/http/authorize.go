package http

import (
	"errors"
	"net/http"

	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/portalapi"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// AuthorizeHandler serves GET /v1/authorize?route=..., the per-navigation
// gate check. The client blocks rendering behind this call, so it stays a
// single read plus a pure evaluation.
type AuthorizeHandler struct {
	Gate *service.Gate
}

func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	route := r.URL.Query().Get("route")
	if route == "" {
		portalapi.NewAPIError(http.StatusBadRequest,
			portalapi.ErrorCodeInvalidRequest, "route query parameter is required").WriteError(w)
		return
	}

	// Empty for anonymous callers; the gate denies protected routes for them.
	accountID := httpx.AccountIDFromCtx(ctx)

	result, err := h.Gate.Authorize(ctx, accountID, route)
	if err != nil {
		if errors.Is(err, service.ErrUnknownRoute) {
			portalapi.NewAPIError(http.StatusNotFound,
				portalapi.ErrorCodeInvalidRequest, "unknown route").WriteError(w)
			return
		}
		log.Error("gate evaluation failed", "route", route, "err", err)
		portalapi.ErrServerError.WriteError(w)
		return
	}

	resp := portalapi.AuthorizeResponse{Decision: result.Decision.String()}
	if result.Decision == service.DecisionRedirect {
		resp.RedirectTo = result.RedirectTo
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/haulstack/freightportal/internal/access/service"
	"github.com/haulstack/freightportal/internal/access/store"
	"github.com/haulstack/freightportal/pkg/httpx"
	"github.com/haulstack/freightportal/pkg/jwtx"
	"github.com/haulstack/freightportal/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier  jwtx.Verifier
	startTime time.Time
	logger    *slog.Logger

	store store.Store

	InviteService   *service.InviteService
	RolesService    *service.RolesService
	AccountsService *service.AccountsService
	Gate            *service.Gate
	Sessions        *service.SessionRegistry
}

func NewRouter(verifier jwtx.Verifier, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		verifier:  verifier,
		startTime: time.Now(),
		store:     st,
		logger:    logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerInvitations()
	r.registerAccounts()
	r.registerAuthorize()
	r.registerSessions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerInvitations() {
	inviteHandler := &InviteHandler{
		InviteService:   r.InviteService,
		AccountsService: r.AccountsService,
	}
	landingHandler := &InviteLandingHandler{InviteService: r.InviteService}
	redeemHandler := &RedeemHandler{InviteService: r.InviteService}

	// POST /v1/invitations - admin batch mint, moderate limit by account
	r.Mux.Handle("POST /v1/invitations",
		httpx.Chain(http.HandlerFunc(inviteHandler.HandleMint),
			httpx.AuthnMiddleware(r.verifier),
			touchSession(r.Sessions),
			requireAdmin(r.RolesService),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)

	// GET /v1/invitations - admin audit listing
	r.Mux.Handle("GET /v1/invitations",
		httpx.Chain(http.HandlerFunc(inviteHandler.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			touchSession(r.Sessions),
			requireAdmin(r.RolesService),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)

	// GET /invite - public landing for emailed links; each request is
	// effectively a token guess, so limit strictly by IP.
	r.Mux.Handle("GET /invite",
		httpx.Chain(landingHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /v1/invitations/redeem - public signup endpoint, strict limit by IP
	r.Mux.Handle("POST /v1/invitations/redeem",
		httpx.Chain(redeemHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAccounts() {
	roleHandler := &RoleHandler{RolesService: r.RolesService}
	profileHandler := &ProfileHandler{AccountsService: r.AccountsService}

	// PUT /v1/accounts/{id}/role - admin-only privileged mutation
	r.Mux.Handle("PUT /v1/accounts/{id}/role",
		httpx.Chain(roleHandler,
			httpx.AuthnMiddleware(r.verifier),
			touchSession(r.Sessions),
			requireAdmin(r.RolesService),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)

	// PUT /v1/accounts/{id}/profile - self-service profile setup
	r.Mux.Handle("PUT /v1/accounts/{id}/profile",
		httpx.Chain(profileHandler,
			httpx.AuthnMiddleware(r.verifier),
			touchSession(r.Sessions),
			httpx.RateLimitByAccount(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAuthorize() {
	h := &AuthorizeHandler{Gate: r.Gate}

	// GET /v1/authorize - fires on every navigation, so the limit is lenient.
	// Auth is optional: anonymous callers get real decisions for public
	// routes and denials for the rest.
	r.Mux.Handle("GET /v1/authorize",
		httpx.Chain(h,
			httpx.OptionalAuthnMiddleware(r.verifier),
			touchSession(r.Sessions),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Sessions: r.Sessions}

	secured := func(next http.Handler) http.Handler {
		return httpx.Chain(next,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByAccount(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("POST /v1/sessions", secured(http.HandlerFunc(h.HandleBegin)))
	r.Mux.Handle("POST /v1/sessions/activity", secured(http.HandlerFunc(h.HandleActivity)))
	r.Mux.Handle("DELETE /v1/sessions", secured(http.HandlerFunc(h.HandleEnd)))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

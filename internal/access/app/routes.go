package app

import "github.com/haulstack/freightportal/internal/access/domain"

// ProfileSetupRoute is where identities with unfinished profiles are sent.
const ProfileSetupRoute = "/profile/setup"

// defaultRoutes is the portal's capability table: every route the client can
// navigate to, with the requirements the gate enforces. Per-page checks do
// not exist; this table is the single source of truth.
func defaultRoutes() map[string]domain.RouteRule {
	authed := domain.RouteRule{
		RequiresAuth:            true,
		RequiresCompleteProfile: true,
	}
	adminOnly := domain.RouteRule{
		RequiresAuth:            true,
		RequiresRole:            domain.RoleAdmin,
		RequiresCompleteProfile: true,
	}

	return map[string]domain.RouteRule{
		// Public surface
		"/":       {},
		"/signin": {},
		"/invite": {},

		// Profile setup is reachable with an incomplete profile; that is the
		// whole point of the route.
		ProfileSetupRoute: {RequiresAuth: true},

		// Main application
		"/quotes":    authed,
		"/shipments": authed,
		"/tracking":  authed,
		"/billing":   authed,
		"/settings":  authed,

		// Administration
		"/admin/accounts":    adminOnly,
		"/admin/invitations": adminOnly,
	}
}

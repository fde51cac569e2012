package domain

// RouteRule is the capability descriptor a portal route declares. The access
// gate evaluates these instead of each page carrying its own ad hoc checks.
type RouteRule struct {
	// RequiresAuth gates the route behind an authenticated identity.
	RequiresAuth bool

	// RequiresRole, when non-empty, restricts the route to that role.
	RequiresRole Role

	// RequiresCompleteProfile redirects identities with unfinished profiles
	// to the profile setup route.
	RequiresCompleteProfile bool
}

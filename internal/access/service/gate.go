package service

import (
	"context"
	"errors"

	"github.com/haulstack/freightportal/internal/access/domain"
	"github.com/haulstack/freightportal/internal/access/store"
)

var ErrUnknownRoute = errors.New("unknown route")

// Decision is the outcome of a gate evaluation.
type Decision int

const (
	// DecisionDeny blocks the navigation. Callers must show a generic
	// access message; the reason is never exposed, so probing a route
	// leaks nothing about why it is closed.
	DecisionDeny Decision = iota

	// DecisionRedirect sends the caller to RedirectTo before the target
	// route may be reached.
	DecisionRedirect

	// DecisionAllow permits rendering the protected view.
	DecisionAllow
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "deny"
	}
}

// GateResult pairs a decision with its redirect target when applicable.
type GateResult struct {
	Decision   Decision
	RedirectTo string
}

// Identity is the snapshot the gate decides on. It is loaded fresh per
// evaluation and passed in explicitly, which keeps Evaluate a pure function
// of its inputs.
type Identity struct {
	AccountID       string
	Authenticated   bool
	Role            domain.Role
	ProfileComplete bool
}

// Gate is the single route-gating decision point. Every route the portal
// serves declares a capability descriptor in Routes; per-page checks do not
// exist anywhere else.
type Gate struct {
	Store store.Store

	// ProfileSetupRoute is where identities with unfinished profiles are
	// sent. The route itself is exempt from the completeness requirement.
	ProfileSetupRoute string

	// Routes maps route names to their capability descriptors.
	Routes map[string]domain.RouteRule
}

// Evaluate applies the gating rules in order. No I/O, no clock.
func (g *Gate) Evaluate(id Identity, route string, rule domain.RouteRule) GateResult {
	if rule.RequiresAuth && !id.Authenticated {
		return GateResult{Decision: DecisionDeny}
	}

	if rule.RequiresRole != "" && id.Role != rule.RequiresRole {
		return GateResult{Decision: DecisionDeny}
	}

	if rule.RequiresCompleteProfile && !id.ProfileComplete && route != g.ProfileSetupRoute {
		return GateResult{Decision: DecisionRedirect, RedirectTo: g.ProfileSetupRoute}
	}

	return GateResult{Decision: DecisionAllow}
}

// Rule looks up the capability descriptor for a named route.
func (g *Gate) Rule(route string) (domain.RouteRule, error) {
	rule, ok := g.Routes[route]
	if !ok {
		return domain.RouteRule{}, ErrUnknownRoute
	}
	return rule, nil
}

// LoadIdentity builds the decision snapshot for an account: role and derived
// profile completeness, read fresh from the store. An empty accountID is an
// unauthenticated identity. Abandoning ctx abandons the lookup; the pending
// result is simply dropped.
func (g *Gate) LoadIdentity(ctx context.Context, accountID string) (Identity, error) {
	if accountID == "" {
		return Identity{}, nil
	}

	account, err := g.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A token for a deleted account authenticates nobody.
			return Identity{}, nil
		}
		return Identity{}, err
	}

	return Identity{
		AccountID:       account.ID,
		Authenticated:   true,
		Role:            account.Role,
		ProfileComplete: account.Profile.Complete(),
	}, nil
}

// Authorize is the per-navigation entry point: load the snapshot, then
// evaluate the named route's rule. The caller blocks rendering until a
// result arrives and shows a neutral loading state meanwhile.
func (g *Gate) Authorize(ctx context.Context, accountID, route string) (GateResult, error) {
	rule, err := g.Rule(route)
	if err != nil {
		return GateResult{}, err
	}

	id, err := g.LoadIdentity(ctx, accountID)
	if err != nil {
		return GateResult{}, err
	}

	return g.Evaluate(id, route, rule), nil
}

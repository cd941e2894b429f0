package core

import "context"

// DecisionProvider selects one of the legal actions for a citizen given its
// local view of the world. Implementations may be deterministic (utility or
// rule based) or backed by an external model; the caller bounds external
// providers with a context deadline and falls back on error.
//
// Returning (nil, nil) means the provider deliberately chose to do nothing
// this cycle.
type DecisionProvider interface {
	// Name identifies the provider in logs and statistics.
	Name() string

	// SelectAction picks an action from the candidate set. The candidate set
	// is never empty when called by the runner.
	SelectAction(ctx context.Context, c *Citizen, state LocalState, actions []Action) (Action, error)
}

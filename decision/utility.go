package decision

import (
	"context"
	"math/rand"

	"github.com/hupe1980/citymesh/core"
)

// criticalNeedLevel is the threshold below which a need preempts all other
// considerations.
const criticalNeedLevel = 0.2

// UtilityProvider is the deterministic fallback provider. It scores each
// candidate action by how urgently the citizen's needs call for it and picks
// the highest scorer, with a critical-needs rule applied first: when any
// need is below criticalNeedLevel, only actions addressing a critical need
// are considered.
type UtilityProvider struct{}

// NewUtilityProvider constructs the provider. It is stateless and safe for
// concurrent use by all runners.
func NewUtilityProvider() *UtilityProvider { return &UtilityProvider{} }

// Name implements core.DecisionProvider.
func (p *UtilityProvider) Name() string { return "utility" }

// SelectAction implements core.DecisionProvider.
func (p *UtilityProvider) SelectAction(_ context.Context, c *core.Citizen, state core.LocalState, actions []core.Action) (core.Action, error) {
	candidates := actions
	if critical := criticalCandidates(c, actions); len(critical) > 0 {
		candidates = critical
	}

	var best core.Action
	bestScore := -1.0
	for _, a := range candidates {
		if score := Utility(c, state, a); score > bestScore {
			best = a
			bestScore = score
		}
	}
	return best, nil
}

// criticalCandidates filters to actions that address a need currently below
// the critical threshold.
func criticalCandidates(c *core.Citizen, actions []core.Action) []core.Action {
	var out []core.Action
	for _, a := range actions {
		switch a.Kind() {
		case core.ActionEat:
			if c.Needs.Food < criticalNeedLevel {
				out = append(out, a)
			}
		case core.ActionRest:
			if c.Needs.Rest < criticalNeedLevel {
				out = append(out, a)
			}
		case core.ActionSocialize:
			if c.Needs.Social < criticalNeedLevel {
				out = append(out, a)
			}
		}
	}
	return out
}

// Utility scores an action for a citizen. Higher is more attractive. The
// score blends need deficits with personality weights; work utility rises as
// money runs low.
func Utility(c *core.Citizen, _ core.LocalState, a core.Action) float64 {
	switch a.Kind() {
	case core.ActionEat:
		return 1 - c.Needs.Food
	case core.ActionRest:
		return (1 - c.Needs.Rest) * (0.8 + 0.2*c.Traits.Neuroticism)
	case core.ActionSocialize:
		return (1 - c.Needs.Social) * (0.6 + 0.4*c.Traits.Extraversion)
	case core.ActionWork:
		moneyPressure := 1 - c.Money/200
		if moneyPressure < 0 {
			moneyPressure = 0
		}
		return moneyPressure*0.7 + c.Traits.Conscientiousness*0.3
	case core.ActionJobSearch:
		if c.Money < 20 {
			return 0.5 + 0.2*c.Traits.Conscientiousness
		}
		return 0.1
	case core.ActionCommute:
		return 0.05
	default:
		return 0
	}
}

// RandomProvider picks uniformly among the candidates. It is the last-resort
// strategy when no informed provider is configured.
type RandomProvider struct {
	rng *rand.Rand
}

// NewRandomProvider constructs a provider drawing from rng. Pass nil to use
// a provider-local source seeded from the global one.
func NewRandomProvider(rng *rand.Rand) *RandomProvider {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &RandomProvider{rng: rng}
}

// Name implements core.DecisionProvider.
func (p *RandomProvider) Name() string { return "random" }

// SelectAction implements core.DecisionProvider.
func (p *RandomProvider) SelectAction(_ context.Context, _ *core.Citizen, _ core.LocalState, actions []core.Action) (core.Action, error) {
	return actions[p.rng.Intn(len(actions))], nil
}

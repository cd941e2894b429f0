package runner

import (
	"math/rand"
	"time"

	"github.com/hupe1980/citymesh/bus"
	"github.com/hupe1980/citymesh/core"
	"github.com/hupe1980/citymesh/interaction"
)

// Context bundles everything a runner needs to drive one citizen
// autonomously: the shared infrastructure, the citizen itself, the decision
// providers, and the behavior tunables. A Context belongs to exactly one
// runner once passed to New.
type Context struct {
	// Citizen is the simulated person this runner owns. Its mutable state is
	// touched only from the runner's goroutine.
	Citizen *core.Citizen

	// Bus routes messages to and from other agents.
	Bus *bus.Bus

	// Interactions enforces exclusivity, cooldowns and relationship scoring.
	Interactions *interaction.Manager

	// Provider is the optional external/AI-backed decision provider. Wrap
	// slow providers in decision.NewTimeoutProvider so a hang cannot stall
	// the loop; any error from Provider triggers Fallback.
	Provider core.DecisionProvider

	// Fallback is the deterministic provider used when Provider is absent or
	// fails. A nil Fallback turns failed decision cycles into no-ops.
	Fallback core.DecisionProvider

	// Actions is the candidate action set checked against the citizen's
	// prerequisites each decision cycle.
	Actions []core.Action

	// ThinkInterval is the minimum time between decision cycles.
	ThinkInterval time.Duration

	// ActionInterval is the minimum time between executed actions.
	ActionInterval time.Duration

	// PollInterval is the loop's wakeup cadence when no messages arrive.
	PollInterval time.Duration

	// SettleDelay is how long an initiated interaction runs before it is
	// completed.
	SettleDelay time.Duration

	// SocialProbability scales the per-poll chance to initiate an
	// interaction.
	SocialProbability float64

	// InteractionCooldown is the minimum gap between same-kind interactions
	// initiated by this agent.
	InteractionCooldown time.Duration

	// CurrentTick supplies the coordinator's tick counter for local-state
	// snapshots. Nil means tick 0.
	CurrentTick func() int64

	// randFloat and randIntn allow tests to mock probability rolls and
	// target picks.
	randFloat func() float64
	randIntn  func(n int) int
}

// WithRand overrides the runner's randomness source. Tests use this to make
// probability rolls and candidate picks deterministic.
func (c *Context) WithRand(randFloat func() float64, randIntn func(n int) int) *Context {
	c.randFloat = randFloat
	c.randIntn = randIntn
	return c
}

// applyDefaults fills zero-valued tunables with sane defaults.
func (c *Context) applyDefaults() {
	if c.ThinkInterval <= 0 {
		c.ThinkInterval = time.Second
	}
	if c.ActionInterval <= 0 {
		c.ActionInterval = 500 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	if c.SocialProbability <= 0 {
		c.SocialProbability = 0.3
	}
	if c.InteractionCooldown <= 0 {
		c.InteractionCooldown = 5 * time.Second
	}
	if c.randFloat == nil || c.randIntn == nil {
		rng := rand.New(rand.NewSource(rand.Int63()))
		c.randFloat = rng.Float64
		c.randIntn = rng.Intn
	}
}

// Package coordinator owns the shared bus and interaction manager, creates
// one runner per citizen, and drives the bounded-duration steady-state loop
// with periodic metrics snapshots and observer callbacks.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/citymesh/action"
	"github.com/hupe1980/citymesh/bus"
	"github.com/hupe1980/citymesh/core"
	"github.com/hupe1980/citymesh/decision"
	"github.com/hupe1980/citymesh/interaction"
	"github.com/hupe1980/citymesh/logging"
	"github.com/hupe1980/citymesh/metrics"
	"github.com/hupe1980/citymesh/runner"
)

// TickCallback observes every coordinator tick.
type TickCallback func(tick int64)

// MetricsSnapshot is a point-in-time aggregation appended to the metrics
// history every MetricsInterval.
type MetricsSnapshot struct {
	Tick          int64                  `json:"tick"`
	Elapsed       time.Duration          `json:"elapsed"`
	AgentsTotal   int                    `json:"agents_total"`
	AgentsByState map[string]int         `json:"agents_by_state"`
	Bus           bus.Statistics         `json:"bus"`
	Interactions  interaction.Statistics `json:"interactions"`
	TotalActions  int64                  `json:"total_actions"`
}

// Results is what Run returns: final counters plus the time-ordered metrics
// history. Run always produces Results, even after repeated contained
// sub-failures; degradation shows up as elevated fallback-decision counts
// rather than errors.
type Results struct {
	Duration       time.Duration          `json:"duration"`
	TotalTicks     int64                  `json:"total_ticks"`
	AgentCount     int                    `json:"agent_count"`
	AgentStats     []runner.Statistics    `json:"agent_stats"`
	Bus            bus.Statistics         `json:"bus"`
	Interactions   interaction.Statistics `json:"interactions"`
	MetricsHistory []MetricsSnapshot      `json:"metrics_history"`
}

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// Config contains the run's timing and behavior parameters.
	Config Config
	// Provider is the optional external decision provider shared by all
	// agents. It is wrapped in a timeout provider using
	// Config.DecisionTimeout.
	Provider core.DecisionProvider
	// Actions is the candidate action set for all agents. Defaults to the
	// built-in action set.
	Actions []core.Action
	// Logger receives coordinator and runner traces.
	Logger logging.Logger
	// Collector, when set, is updated with every metrics snapshot.
	Collector *metrics.Collector
}

// WithConfig overrides the default run configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithProvider installs an external decision provider for all agents.
func WithProvider(p core.DecisionProvider) func(o *Options) {
	return func(o *Options) { o.Provider = p }
}

// WithActions overrides the candidate action set.
func WithActions(actions []core.Action) func(o *Options) {
	return func(o *Options) { o.Actions = actions }
}

// WithLogger installs a structured logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithCollector installs a Prometheus collector updated on every snapshot.
func WithCollector(c *metrics.Collector) func(o *Options) {
	return func(o *Options) { o.Collector = c }
}

// Coordinator wires one Bus and one interaction.Manager to a runner per
// citizen and manages their lifecycle under a wall-clock limit. Public
// methods are safe for concurrent use.
type Coordinator struct {
	citizens  []*core.Citizen
	config    Config
	provider  core.DecisionProvider
	actions   []core.Action
	logger    logging.Logger
	collector *metrics.Collector

	messageBus   *bus.Bus
	interactions *interaction.Manager

	mu      sync.RWMutex
	runners map[string]*runner.Runner
	order   []string // citizen order, for stable results

	tick      atomic.Int64
	startTime time.Time

	metricsMu      sync.Mutex
	metricsHistory []MetricsSnapshot

	callbackMu    sync.RWMutex
	onTick        []TickCallback
	onAction      []runner.ActionCallback
	onInteraction []runner.InteractionCallback
}

// New constructs a coordinator for the given citizens. The bus and
// interaction manager are created here and shared by every runner.
func New(citizens []*core.Citizen, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Config:  DefaultConfig,
		Actions: action.All(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger

	provider := opts.Provider
	if provider != nil {
		provider = decision.NewTimeoutProvider(provider, func(o *decision.TimeoutOptions) {
			o.Timeout = opts.Config.DecisionTimeout
		})
	}

	return &Coordinator{
		citizens:  citizens,
		config:    opts.Config,
		provider:  provider,
		actions:   opts.Actions,
		logger:    logger,
		collector: opts.Collector,
		messageBus: bus.NewBus(func(o *bus.Options) {
			o.Logger = logger
		}),
		interactions: interaction.NewManager(func(o *interaction.Options) {
			o.Logger = logger
		}),
		runners: make(map[string]*runner.Runner),
	}
}

// OnTick registers a tick callback. Callbacks run in registration order; a
// panicking callback is logged and never aborts the run.
func (c *Coordinator) OnTick(cb TickCallback) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onTick = append(c.onTick, cb)
}

// OnAction registers an action callback.
func (c *Coordinator) OnAction(cb runner.ActionCallback) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onAction = append(c.onAction, cb)
}

// OnInteraction registers an interaction callback.
func (c *Coordinator) OnInteraction(cb runner.InteractionCallback) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	c.onInteraction = append(c.onInteraction, cb)
}

// Setup builds one runner per citizen. It is idempotent and implicitly
// invoked by Run.
func (c *Coordinator) Setup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.runners) > 0 {
		return
	}

	c.logger.Info("setting up simulation", "agents", len(c.citizens))

	for _, citizen := range c.citizens {
		agentCtx := &runner.Context{
			Citizen:             citizen,
			Bus:                 c.messageBus,
			Interactions:        c.interactions,
			Provider:            c.provider,
			Fallback:            decision.NewUtilityProvider(),
			Actions:             c.actions,
			ThinkInterval:       c.config.ThinkInterval,
			ActionInterval:      c.config.ActionInterval,
			SettleDelay:         500 * time.Millisecond,
			SocialProbability:   c.config.SocialProbability,
			InteractionCooldown: c.config.InteractionCooldown,
			CurrentTick:         c.tick.Load,
		}
		r := runner.New(agentCtx, func(o *runner.Options) {
			o.Logger = c.logger
			o.OnAction = c.dispatchAction
			o.OnInteraction = c.dispatchInteraction
		})
		c.runners[citizen.ID] = r
		c.order = append(c.order, citizen.ID)
	}
}

// Run starts every runner, drives the steady-state loop until the context
// is cancelled or MaxDuration elapses, and on every exit path stops all
// runners before returning the aggregated results.
func (c *Coordinator) Run(ctx context.Context) (Results, error) {
	c.Setup()

	c.startTime = time.Now()
	c.tick.Store(0)

	c.logger.Info("starting multi-agent simulation", "agents", len(c.runners))

	// Fan-out start; collect the first error but keep going so a partial
	// fleet still runs.
	var startErr error
	var wg sync.WaitGroup
	errCh := make(chan error, len(c.runners))
	c.mu.RLock()
	for _, r := range c.runners {
		wg.Add(1)
		go func(r *runner.Runner) {
			defer wg.Done()
			if err := r.Start(); err != nil {
				errCh <- fmt.Errorf("start agent %s: %w", r.AgentID(), err)
			}
		}(r)
	}
	c.mu.RUnlock()
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if startErr == nil {
			startErr = err
		}
		c.logger.Error("agent start failed", "error", err.Error())
	}

	defer c.Stop()

	ticker := time.NewTicker(c.config.TickDuration)
	defer ticker.Stop()

	metricsLast := time.Now()

loop:
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("simulation cancelled", "elapsed", time.Since(c.startTime).String())
			break loop
		case <-ticker.C:
		}

		if time.Since(c.startTime) >= c.config.MaxDuration {
			c.logger.Info("simulation duration limit reached")
			break loop
		}

		tick := c.tick.Add(1)
		c.dispatchTick(tick)

		if c.config.CollectMetrics && time.Since(metricsLast) >= c.config.MetricsInterval {
			c.collectMetrics()
			metricsLast = time.Now()
		}
	}

	return c.Results(), startErr
}

// Stop requests every runner to stop concurrently and waits for all of
// them. Individual stop failures are tolerated.
func (c *Coordinator) Stop() {
	c.logger.Info("stopping simulation")

	c.mu.RLock()
	runners := make([]*runner.Runner, 0, len(c.runners))
	for _, r := range c.runners {
		runners = append(runners, r)
	}
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func(r *runner.Runner) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					c.logger.Error("agent stop panicked", "agent_id", r.AgentID(), "panic", fmt.Sprintf("%v", rec))
				}
			}()
			r.Stop()
		}(r)
	}
	wg.Wait()

	c.logger.Info("simulation stopped")
}

func (c *Coordinator) dispatchTick(tick int64) {
	c.callbackMu.RLock()
	callbacks := c.onTick
	c.callbackMu.RUnlock()

	for _, cb := range callbacks {
		c.safely("tick callback", func() { cb(tick) })
	}
}

func (c *Coordinator) dispatchAction(citizen *core.Citizen, a core.Action, result core.ActionResult) {
	c.callbackMu.RLock()
	callbacks := c.onAction
	c.callbackMu.RUnlock()

	for _, cb := range callbacks {
		c.safely("action callback", func() { cb(citizen, a, result) })
	}
}

func (c *Coordinator) dispatchInteraction(citizen *core.Citizen, itx *interaction.Interaction) {
	c.callbackMu.RLock()
	callbacks := c.onInteraction
	c.callbackMu.RUnlock()

	for _, cb := range callbacks {
		c.safely("interaction callback", func() { cb(citizen, itx) })
	}
}

// safely runs a callback, containing panics so an observer cannot abort the
// run.
func (c *Coordinator) safely(name string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error(name+" panicked", "panic", fmt.Sprintf("%v", rec))
		}
	}()
	fn()
}

func (c *Coordinator) collectMetrics() {
	snapshot := c.snapshot()

	c.metricsMu.Lock()
	c.metricsHistory = append(c.metricsHistory, snapshot)
	c.metricsMu.Unlock()

	if c.collector != nil {
		c.updateCollector(snapshot)
	}

	c.logger.Info("metrics snapshot",
		"tick", snapshot.Tick,
		"actions", snapshot.TotalActions,
		"messages", snapshot.Bus.MessagesSent,
		"interactions", snapshot.Interactions.TotalInteractions,
	)
}

func (c *Coordinator) snapshot() MetricsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byState := make(map[string]int)
	var totalActions int64
	for _, r := range c.runners {
		stats := r.Statistics()
		byState[stats.State]++
		totalActions += stats.ActionsTaken
	}

	return MetricsSnapshot{
		Tick:          c.tick.Load(),
		Elapsed:       time.Since(c.startTime),
		AgentsTotal:   len(c.runners),
		AgentsByState: byState,
		Bus:           c.messageBus.Statistics(),
		Interactions:  c.interactions.Statistics(),
		TotalActions:  totalActions,
	}
}

func (c *Coordinator) updateCollector(s MetricsSnapshot) {
	c.collector.MessagesSent.Set(float64(s.Bus.MessagesSent))
	c.collector.MessagesDelivered.Set(float64(s.Bus.MessagesDelivered))
	c.collector.MessagesDropped.Set(float64(s.Bus.MessagesDropped))
	c.collector.InteractionsTotal.Set(float64(s.Interactions.TotalInteractions))
	c.collector.InteractionsSuccessful.Set(float64(s.Interactions.SuccessfulInteractions))
	c.collector.InteractionsActive.Set(float64(s.Interactions.ActiveCount))
	c.collector.ActionsTotal.Set(float64(s.TotalActions))
	c.collector.Ticks.Set(float64(s.Tick))
	c.collector.AgentsByState.Reset()
	for state, count := range s.AgentsByState {
		c.collector.AgentsByState.WithLabelValues(state).Set(float64(count))
	}
}

// Results aggregates final counters and the metrics history.
func (c *Coordinator) Results() Results {
	c.mu.RLock()
	agentStats := make([]runner.Statistics, 0, len(c.order))
	for _, id := range c.order {
		if r, ok := c.runners[id]; ok {
			agentStats = append(agentStats, r.Statistics())
		}
	}
	agentCount := len(c.runners)
	c.mu.RUnlock()

	c.metricsMu.Lock()
	history := make([]MetricsSnapshot, len(c.metricsHistory))
	copy(history, c.metricsHistory)
	c.metricsMu.Unlock()

	var elapsed time.Duration
	if !c.startTime.IsZero() {
		elapsed = time.Since(c.startTime)
	}

	return Results{
		Duration:       elapsed,
		TotalTicks:     c.tick.Load(),
		AgentCount:     agentCount,
		AgentStats:     agentStats,
		Bus:            c.messageBus.Statistics(),
		Interactions:   c.interactions.Statistics(),
		MetricsHistory: history,
	}
}

// AgentStates returns the current state of every agent.
func (c *Coordinator) AgentStates() map[string]runner.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	states := make(map[string]runner.State, len(c.runners))
	for id, r := range c.runners {
		states[id] = r.State()
	}
	return states
}

// AgentLocations returns the current location of every agent.
func (c *Coordinator) AgentLocations() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	locations := make(map[string]string, len(c.runners))
	for id, r := range c.runners {
		loc := r.Citizen().Location
		if loc == "" {
			loc = "unknown"
		}
		locations[id] = loc
	}
	return locations
}

// Bus exposes the shared message bus for embedding hosts.
func (c *Coordinator) Bus() *bus.Bus { return c.messageBus }

// Interactions exposes the shared interaction manager.
func (c *Coordinator) Interactions() *interaction.Manager { return c.interactions }

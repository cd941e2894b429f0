// Package citymesh provides a high-level façade over the simulation
// coordinator for running autonomous multi-agent city simulations. Most
// applications interact with this package by:
//  1. Building a citizen population (core.NewCitizen)
//  2. Calling Run with the desired duration and options
//  3. Inspecting the returned Results
//
// The façade delegates orchestration to coordinator.Coordinator while
// keeping setup and usage ergonomics concise. All defaults are safe for
// local development and testing; production embeddings typically supply a
// structured logger and an external decision provider.
package citymesh

import (
	"context"
	"time"

	"github.com/hupe1980/citymesh/coordinator"
	"github.com/hupe1980/citymesh/core"
	"github.com/hupe1980/citymesh/logging"
)

// Options configures a convenience Run.
type Options struct {
	// Config is the full run configuration. Duration arguments to Run
	// override Config.MaxDuration.
	Config coordinator.Config
	// Provider is an optional external decision provider.
	Provider core.DecisionProvider
	// Logger receives simulation traces.
	Logger logging.Logger
	// OnTick observes coordinator ticks.
	OnTick coordinator.TickCallback
	// ProgressEvery logs a progress line every N ticks; 0 disables it.
	ProgressEvery int64
}

// WithProvider installs an external decision provider.
func WithProvider(p core.DecisionProvider) func(o *Options) {
	return func(o *Options) { o.Provider = p }
}

// WithLogger installs a structured logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithConfig overrides the full run configuration.
func WithConfig(cfg coordinator.Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithOnTick registers a tick observer.
func WithOnTick(cb coordinator.TickCallback) func(o *Options) {
	return func(o *Options) { o.OnTick = cb }
}

// WithProgressEvery logs a progress line every n ticks.
func WithProgressEvery(n int64) func(o *Options) {
	return func(o *Options) { o.ProgressEvery = n }
}

// Run executes a complete multi-agent simulation over the given citizens
// for at most duration, returning the aggregated results. It is the
// one-call entry point equivalent to building a coordinator by hand.
func Run(ctx context.Context, citizens []*core.Citizen, duration time.Duration, optFns ...func(o *Options)) (coordinator.Results, error) {
	opts := Options{
		Config: coordinator.DefaultConfig,
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if duration > 0 {
		opts.Config.MaxDuration = duration
	}

	coord := coordinator.New(citizens,
		coordinator.WithConfig(opts.Config),
		coordinator.WithProvider(opts.Provider),
		coordinator.WithLogger(opts.Logger),
	)

	if opts.OnTick != nil {
		coord.OnTick(opts.OnTick)
	}
	if opts.ProgressEvery > 0 {
		logger := opts.Logger
		every := opts.ProgressEvery
		coord.OnTick(func(tick int64) {
			if tick%every == 0 {
				logger.Info("simulation progress", "tick", tick)
			}
		})
	}

	return coord.Run(ctx)
}

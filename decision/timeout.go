package decision

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/citymesh/core"
)

// TimeoutOptions configures a TimeoutProvider.
type TimeoutOptions struct {
	// Timeout bounds each wrapped call; exceeding it returns an error so the
	// caller can fall back.
	Timeout time.Duration
	// MaxConcurrentCalls limits in-flight wrapped calls across all runners.
	// This provides backpressure against slow external providers.
	MaxConcurrentCalls int
}

// TimeoutProvider wraps a slow or external provider so a hang cannot stall
// an agent's loop indefinitely: each call runs in its own goroutine under an
// explicit deadline and a shared concurrency limit. Timeouts and provider
// errors surface as ordinary errors; callers treat them as provider failure
// and fall back.
type TimeoutProvider struct {
	inner core.DecisionProvider
	opts  TimeoutOptions
	sem   chan struct{}

	calls    atomic.Int64
	failures atomic.Int64
	timeouts atomic.Int64
}

// NewTimeoutProvider wraps inner with deadline and concurrency enforcement.
func NewTimeoutProvider(inner core.DecisionProvider, optFns ...func(o *TimeoutOptions)) *TimeoutProvider {
	opts := TimeoutOptions{
		Timeout:            5 * time.Second,
		MaxConcurrentCalls: 10,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &TimeoutProvider{
		inner: inner,
		opts:  opts,
		sem:   make(chan struct{}, opts.MaxConcurrentCalls),
	}
}

// Name implements core.DecisionProvider.
func (p *TimeoutProvider) Name() string { return p.inner.Name() + "+timeout" }

// SelectAction implements core.DecisionProvider. The wrapped call runs off
// the caller's goroutine; when the deadline fires first, the call's result
// is discarded whenever it eventually arrives.
func (p *TimeoutProvider) SelectAction(ctx context.Context, c *core.Citizen, state core.LocalState, actions []core.Action) (core.Action, error) {
	p.calls.Add(1)

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.timeouts.Add(1)
		return nil, fmt.Errorf("waiting for decision slot: %w", ctx.Err())
	}

	callCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	// The wrapped call may outlive the deadline, while the caller falls back
	// and mutates the citizen. It therefore gets a private copy so the
	// abandoned goroutine never touches state the runner owns.
	snapshot := *c

	type outcome struct {
		action core.Action
		err    error
	}
	resultCh := make(chan outcome, 1)
	go func() {
		defer func() { <-p.sem }()
		action, err := p.inner.SelectAction(callCtx, &snapshot, state, actions)
		resultCh <- outcome{action: action, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			p.failures.Add(1)
			return nil, fmt.Errorf("provider %s: %w", p.inner.Name(), res.err)
		}
		return res.action, nil
	case <-callCtx.Done():
		p.timeouts.Add(1)
		return nil, fmt.Errorf("provider %s: %w", p.inner.Name(), callCtx.Err())
	}
}

// Stats reports call, failure and timeout totals since construction.
func (p *TimeoutProvider) Stats() (calls, failures, timeouts int64) {
	return p.calls.Load(), p.failures.Load(), p.timeouts.Load()
}

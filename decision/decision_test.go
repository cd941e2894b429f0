package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/citymesh/action"
	"github.com/hupe1980/citymesh/core"
)

// stubProvider returns a fixed result, optionally after a delay.
type stubProvider struct {
	action core.Action
	err    error
	delay  time.Duration
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) SelectAction(ctx context.Context, _ *core.Citizen, _ core.LocalState, _ []core.Action) (core.Action, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.action, p.err
}

func TestUtilityProvider_PicksMostPressingNeed(t *testing.T) {
	provider := NewUtilityProvider()

	c := core.NewCitizen("alice",
		core.WithMoney(100),
		core.WithNeeds(core.Needs{Food: 0.3, Rest: 0.9, Social: 0.9, Shelter: 1}),
	)

	selected, err := provider.SelectAction(context.Background(), c, core.LocalState{}, action.All())
	require.NoError(t, err)
	assert.Equal(t, core.ActionEat, selected.Kind())
}

func TestUtilityProvider_CriticalNeedPreempts(t *testing.T) {
	provider := NewUtilityProvider()

	// Rest is critical; food is merely low. By raw utility eat (0.75) beats
	// rest (0.68), so only the critical-needs rule makes rest win.
	c := core.NewCitizen("bob",
		core.WithMoney(100),
		core.WithNeeds(core.Needs{Food: 0.25, Rest: 0.15, Social: 0.9, Shelter: 1}),
		core.WithTraits(core.Traits{Conscientiousness: 0.5}),
	)

	selected, err := provider.SelectAction(context.Background(), c, core.LocalState{}, action.All())
	require.NoError(t, err)
	assert.Equal(t, core.ActionRest, selected.Kind())
}

func TestUtilityProvider_ExtraversionRaisesSocializing(t *testing.T) {
	provider := NewUtilityProvider()
	needs := core.Needs{Food: 0.9, Rest: 0.9, Social: 0.4, Shelter: 1}

	extravert := core.NewCitizen("alice",
		core.WithMoney(500),
		core.WithNeeds(needs),
		core.WithTraits(core.Traits{Extraversion: 0.95, Conscientiousness: 0.1}),
	)
	selected, err := provider.SelectAction(context.Background(), extravert, core.LocalState{}, action.All())
	require.NoError(t, err)
	assert.Equal(t, core.ActionSocialize, selected.Kind())

	sExtra := Utility(extravert, core.LocalState{}, action.NewSocialize())
	introvert := core.NewCitizen("bob",
		core.WithNeeds(needs),
		core.WithTraits(core.Traits{Extraversion: 0.05}),
	)
	sIntro := Utility(introvert, core.LocalState{}, action.NewSocialize())
	assert.Greater(t, sExtra, sIntro)
}

func TestUtility_WorkRisesAsMoneyRunsLow(t *testing.T) {
	broke := core.NewCitizen("alice", core.WithMoney(10))
	rich := core.NewCitizen("bob", core.WithMoney(500))

	work := action.NewWork()
	assert.Greater(t, Utility(broke, core.LocalState{}, work), Utility(rich, core.LocalState{}, work))
}

func TestRandomProvider_ReturnsOfferedAction(t *testing.T) {
	provider := NewRandomProvider(nil)
	c := core.NewCitizen("alice")
	offered := action.All()

	for i := 0; i < 20; i++ {
		selected, err := provider.SelectAction(context.Background(), c, core.LocalState{}, offered)
		require.NoError(t, err)
		assert.Contains(t, offered, selected)
	}
}

func TestMatchAction(t *testing.T) {
	offered := action.All()

	tests := []struct {
		name    string
		reply   string
		want    core.ActionKind
		wantErr bool
	}{
		{name: "exact", reply: "rest", want: core.ActionRest},
		{name: "case and whitespace", reply: "  Work_Shift \n", want: core.ActionWork},
		{name: "surrounding prose", reply: "I think the resident should eat now.", want: core.ActionEat},
		{name: "no match", reply: "take a holiday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := matchAction(tt.reply, offered)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Kind())
		})
	}
}

func TestTimeoutProvider_PassesThroughFastCalls(t *testing.T) {
	want := action.NewRest()
	provider := NewTimeoutProvider(&stubProvider{action: want}, func(o *TimeoutOptions) {
		o.Timeout = time.Second
	})

	got, err := provider.SelectAction(context.Background(), core.NewCitizen("alice"), core.LocalState{}, action.All())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	calls, failures, timeouts := provider.Stats()
	assert.Equal(t, int64(1), calls)
	assert.Zero(t, failures)
	assert.Zero(t, timeouts)
}

func TestTimeoutProvider_DeadlineSurfacesAsError(t *testing.T) {
	provider := NewTimeoutProvider(&stubProvider{action: action.NewRest(), delay: time.Second}, func(o *TimeoutOptions) {
		o.Timeout = 20 * time.Millisecond
	})

	_, err := provider.SelectAction(context.Background(), core.NewCitizen("alice"), core.LocalState{}, action.All())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, _, timeouts := provider.Stats()
	assert.Equal(t, int64(1), timeouts)
}

// blockedReader stalls until released, then reads the citizen it was given.
type blockedReader struct {
	release <-chan struct{}
	seen    chan<- float64
}

func (p *blockedReader) Name() string { return "blocked" }

func (p *blockedReader) SelectAction(_ context.Context, c *core.Citizen, _ core.LocalState, actions []core.Action) (core.Action, error) {
	<-p.release
	p.seen <- c.Needs.Food
	return actions[0], nil
}

func TestTimeoutProvider_LateCallSeesCitizenSnapshot(t *testing.T) {
	release := make(chan struct{})
	seen := make(chan float64, 1)
	provider := NewTimeoutProvider(&blockedReader{release: release, seen: seen}, func(o *TimeoutOptions) {
		o.Timeout = 10 * time.Millisecond
	})

	c := core.NewCitizen("alice", core.WithNeeds(core.Needs{Food: 0.3}))

	_, err := provider.SelectAction(context.Background(), c, core.LocalState{}, action.All())
	require.Error(t, err)

	// The caller now falls back and mutates the citizen while the wrapped
	// call is still in flight. The late call must only see the copy taken
	// before it was spawned.
	c.Needs.SatisfyFood(0.5)
	close(release)

	assert.InDelta(t, 0.3, <-seen, 1e-9)
}

func TestTimeoutProvider_InnerErrorCounted(t *testing.T) {
	innerErr := errors.New("model unavailable")
	provider := NewTimeoutProvider(&stubProvider{err: innerErr})

	_, err := provider.SelectAction(context.Background(), core.NewCitizen("alice"), core.LocalState{}, action.All())
	require.Error(t, err)
	assert.ErrorIs(t, err, innerErr)

	_, failures, _ := provider.Stats()
	assert.Equal(t, int64(1), failures)
}

func TestTimeoutProvider_Name(t *testing.T) {
	provider := NewTimeoutProvider(&stubProvider{})
	assert.Equal(t, "stub+timeout", provider.Name())
}

package interaction

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance the manager's notion of time by hand.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(optFns ...func(o *Options)) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	fns := append([]func(o *Options){func(o *Options) {
		o.Now = clock.Now
	}}, optFns...)
	return NewManager(fns...), clock
}

func TestManager_StartAndComplete(t *testing.T) {
	mgr, _ := newTestManager()

	itx := mgr.Start(KindConversation, "alice", []string{"alice", "bob"}, map[string]any{"topic": "weather"})
	require.NotNil(t, itx)
	assert.True(t, itx.Active())
	assert.Equal(t, OutcomePending, itx.Outcome)

	done := mgr.Complete(itx.ID, OutcomeSuccess, map[string]any{"social_boost": 0.05})
	require.NotNil(t, done)
	assert.False(t, done.Active())
	assert.Equal(t, OutcomeSuccess, done.Outcome)
	assert.Equal(t, 0.05, done.Effects["social_boost"])

	stats := mgr.Statistics()
	assert.Equal(t, 1, stats.TotalInteractions)
	assert.Equal(t, 1, stats.SuccessfulInteractions)
	assert.Equal(t, 0, stats.ActiveCount)
	assert.Equal(t, 1, stats.HistorySize)
}

func TestManager_CompleteUnknownReturnsNil(t *testing.T) {
	mgr, _ := newTestManager()
	assert.Nil(t, mgr.Complete("nope", OutcomeSuccess, nil))
}

func TestManager_CompleteIsIdempotent(t *testing.T) {
	mgr, _ := newTestManager()
	itx := mgr.Start(KindGreeting, "alice", []string{"alice", "bob"}, nil)

	first := mgr.Complete(itx.ID, OutcomeSuccess, nil)
	require.NotNil(t, first)
	end := first.EndTime

	assert.Nil(t, mgr.Complete(itx.ID, OutcomeFailure, nil))
	assert.Equal(t, end, first.EndTime)
	assert.Equal(t, 1, mgr.Statistics().TotalInteractions)
}

func TestManager_ActiveParticipantBlocksNewInteractions(t *testing.T) {
	mgr, _ := newTestManager()

	itx := mgr.Start(KindConversation, "alice", []string{"alice", "bob"}, nil)

	// Either side being busy blocks, whichever role they would take next.
	assert.False(t, mgr.CanInteract("alice", "carol", KindTrade, 0))
	assert.False(t, mgr.CanInteract("carol", "bob", KindTrade, 0))
	assert.True(t, mgr.CanInteract("carol", "dave", KindTrade, 0))

	mgr.Complete(itx.ID, OutcomeSuccess, nil)
	assert.True(t, mgr.CanInteract("carol", "bob", KindTrade, 0))
}

func TestManager_CooldownExpiry(t *testing.T) {
	mgr, clock := newTestManager()
	cooldown := 5 * time.Second

	// With no history either side may initiate.
	assert.True(t, mgr.CanInteract("alice", "bob", KindConversation, cooldown))
	assert.True(t, mgr.CanInteract("bob", "alice", KindConversation, cooldown))

	itx := mgr.Start(KindConversation, "alice", []string{"alice", "bob"}, nil)
	mgr.Complete(itx.ID, OutcomeSuccess, nil)

	clock.Advance(1 * time.Second)
	assert.False(t, mgr.CanInteract("alice", "bob", KindConversation, cooldown))
	assert.False(t, mgr.CanInteract("bob", "alice", KindConversation, cooldown))

	// Cooldown is keyed per kind: a different kind is not blocked.
	assert.True(t, mgr.CanInteract("alice", "bob", KindTrade, cooldown))

	clock.Advance(5 * time.Second)
	assert.True(t, mgr.CanInteract("alice", "bob", KindConversation, cooldown))
}

func TestManager_TryStartIsAtomic(t *testing.T) {
	mgr, _ := newTestManager()

	itx, ok := mgr.TryStart(KindConversation, "alice", []string{"alice", "bob"}, nil, time.Minute)
	require.True(t, ok)
	require.NotNil(t, itx)

	again, ok := mgr.TryStart(KindConversation, "carol", []string{"carol", "bob"}, nil, time.Minute)
	assert.False(t, ok)
	assert.Nil(t, again)

	mgr.Complete(itx.ID, OutcomeSuccess, nil)

	// Cooldown stamps from the completion now block the same pairing and kind.
	_, ok = mgr.TryStart(KindConversation, "alice", []string{"alice", "bob"}, nil, time.Minute)
	assert.False(t, ok)
}

func TestManager_RelationshipScore(t *testing.T) {
	mgr, clock := newTestManager()

	runOne := func(kind Kind, outcome Outcome) {
		itx := mgr.Start(kind, "alice", []string{"alice", "bob"}, nil)
		mgr.Complete(itx.ID, outcome, nil)
		clock.Advance(time.Minute)
	}

	runOne(KindConversation, OutcomeSuccess)
	runOne(KindGreeting, OutcomePositive)
	assert.InDelta(t, 0.2, mgr.RelationshipScore("alice", "bob"), 1e-9)

	runOne(KindConflict, OutcomeNegative)
	assert.InDelta(t, 0.05, mgr.RelationshipScore("alice", "bob"), 1e-9)

	// Strangers score zero, and order of the pair does not matter.
	assert.Zero(t, mgr.RelationshipScore("alice", "carol"))
	assert.InDelta(t, 0.05, mgr.RelationshipScore("bob", "alice"), 1e-9)
}

func TestManager_RelationshipScoreClamped(t *testing.T) {
	mgr, clock := newTestManager()

	for i := 0; i < 15; i++ {
		itx := mgr.Start(KindConversation, "alice", []string{"alice", "bob"}, nil)
		mgr.Complete(itx.ID, OutcomeSuccess, nil)
		clock.Advance(time.Minute)
	}
	assert.Equal(t, 1.0, mgr.RelationshipScore("alice", "bob"))

	for i := 0; i < 20; i++ {
		itx := mgr.Start(KindConflict, "alice", []string{"alice", "bob"}, nil)
		mgr.Complete(itx.ID, OutcomeConflict, nil)
		clock.Advance(time.Minute)
	}
	assert.Equal(t, -1.0, mgr.RelationshipScore("alice", "bob"))
}

func TestManager_HistoryEviction(t *testing.T) {
	mgr, clock := newTestManager(func(o *Options) {
		o.MaxHistory = 3
	})

	for i := 0; i < 6; i++ {
		itx := mgr.Start(KindConversation, "alice", []string{"alice", "bob"}, map[string]any{"seq": i})
		mgr.Complete(itx.ID, OutcomeSuccess, nil)
		clock.Advance(time.Minute)
	}

	history := mgr.History(HistoryFilter{AgentID: "alice"})
	require.Len(t, history, 3)
	assert.Equal(t, 3, history[0].Context["seq"])
	assert.Equal(t, 5, history[2].Context["seq"])

	// Counters keep the full tally even after eviction.
	assert.Equal(t, 6, mgr.Statistics().TotalInteractions)
}

func TestManager_HistoryFilter(t *testing.T) {
	mgr, clock := newTestManager()

	pairs := []struct {
		kind  Kind
		other string
	}{
		{KindConversation, "bob"},
		{KindTrade, "bob"},
		{KindConversation, "carol"},
	}
	for _, p := range pairs {
		itx := mgr.Start(p.kind, "alice", []string{"alice", p.other}, nil)
		mgr.Complete(itx.ID, OutcomeSuccess, nil)
		clock.Advance(time.Minute)
	}

	kind := KindConversation
	got := mgr.History(HistoryFilter{AgentID: "bob", Kind: &kind})
	require.Len(t, got, 1)
	assert.Equal(t, KindConversation, got[0].Kind)

	assert.Len(t, mgr.History(HistoryFilter{AgentID: "alice"}), 3)
	assert.Empty(t, mgr.History(HistoryFilter{AgentID: "dave"}))
}

func TestOutcome_Classification(t *testing.T) {
	tests := []struct {
		outcome   Outcome
		succeeded bool
		negative  bool
	}{
		{OutcomeSuccess, true, false},
		{OutcomePositive, true, false},
		{OutcomeCompleted, true, false},
		{OutcomeFailure, false, true},
		{OutcomeNegative, false, true},
		{OutcomeConflict, false, true},
		{OutcomePending, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			assert.Equal(t, tt.succeeded, tt.outcome.Succeeded())
			assert.Equal(t, tt.negative, tt.outcome.Negative())
		})
	}
}

func TestKind_StringCoversAllKinds(t *testing.T) {
	for _, k := range Kinds() {
		assert.NotEqual(t, "unknown", k.String(), fmt.Sprintf("kind %d has no name", k))
	}
}

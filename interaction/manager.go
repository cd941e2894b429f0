package interaction

import (
	"sync"
	"time"

	"github.com/hupe1980/citymesh/logging"
)

// Statistics is a point-in-time view of interaction activity.
type Statistics struct {
	TotalInteractions      int     `json:"total_interactions"`
	SuccessfulInteractions int     `json:"successful_interactions"`
	SuccessRate            float64 `json:"success_rate"`
	ActiveCount            int     `json:"active_count"`
	HistorySize            int     `json:"history_size"`
}

// Options holds configuration overrides passed to NewManager().
type Options struct {
	// MaxHistory bounds the completed-interaction history; oldest entries
	// are evicted first.
	MaxHistory int
	// Logger receives debug traces for interaction lifecycle events.
	Logger logging.Logger
	// Now overrides the clock, used by tests to drive cooldown expiry.
	Now func() time.Time
}

// Manager owns the active-interaction map, the cooldown table and the
// completed history. All three are mutated only through Manager methods
// under the manager's own mutex; callers never see the raw maps.
type Manager struct {
	mu        sync.Mutex
	active    map[string]*Interaction
	history   []*Interaction
	cooldowns map[string]map[Kind]time.Time // agent id -> kind -> last completion

	maxHistory int
	logger     logging.Logger
	now        func() time.Time

	total      int
	successful int
}

// NewManager constructs an empty interaction manager.
func NewManager(optFns ...func(o *Options)) *Manager {
	opts := Options{
		MaxHistory: 5000,
		Logger:     logging.NoOpLogger{},
		Now:        time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		active:     make(map[string]*Interaction),
		cooldowns:  make(map[string]map[Kind]time.Time),
		maxHistory: opts.MaxHistory,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// CanInteract reports whether agentID may initiate a kind interaction with
// otherID: false when either party is already an active participant
// anywhere, or when agentID's last completed interaction of this kind ended
// less than cooldown ago.
//
// A true result is only a best-effort permit: a concurrent caller may win
// the race before Start is invoked. Use TryStart for an atomic
// check-and-start.
func (m *Manager) CanInteract(agentID, otherID string, kind Kind, cooldown time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canInteractLocked(agentID, otherID, kind, cooldown)
}

func (m *Manager) canInteractLocked(agentID, otherID string, kind Kind, cooldown time.Duration) bool {
	for _, itx := range m.active {
		if itx.Involves(agentID) || itx.Involves(otherID) {
			return false
		}
	}
	if last, ok := m.cooldowns[agentID][kind]; ok {
		if m.now().Sub(last) < cooldown {
			return false
		}
	}
	return true
}

// Start creates a new active interaction. It always succeeds and does not
// re-check exclusivity; callers that need the check-and-start to be atomic
// under concurrent initiators use TryStart instead.
func (m *Manager) Start(kind Kind, initiatorID string, participantIDs []string, ctx map[string]any) *Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(kind, initiatorID, participantIDs, ctx)
}

// TryStart atomically performs the CanInteract check for every pairing of
// the initiator with the other participants and, if permitted, starts the
// interaction under the same lock acquisition. It returns (nil, false) when
// the check fails.
func (m *Manager) TryStart(kind Kind, initiatorID string, participantIDs []string, ctx map[string]any, cooldown time.Duration) (*Interaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, otherID := range participantIDs {
		if otherID == initiatorID {
			continue
		}
		if !m.canInteractLocked(initiatorID, otherID, kind, cooldown) {
			return nil, false
		}
	}
	return m.startLocked(kind, initiatorID, participantIDs, ctx), true
}

func (m *Manager) startLocked(kind Kind, initiatorID string, participantIDs []string, ctx map[string]any) *Interaction {
	itx := newInteraction(kind, initiatorID, participantIDs, ctx, m.now())
	m.active[itx.ID] = itx
	m.total++
	m.logger.Debug("interaction started", "kind", kind.String(), "initiator", initiatorID, "participants", participantIDs)
	return itx
}

// Complete moves the interaction from active to history, stamps a fresh
// cooldown timestamp for every participant and merges effects. EndTime is
// set exactly once; completing an unknown or already-completed id returns
// nil.
func (m *Manager) Complete(interactionID string, outcome Outcome, effects map[string]any) *Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	itx, ok := m.active[interactionID]
	if !ok {
		m.logger.Warn("interaction not found", "interaction_id", interactionID)
		return nil
	}
	delete(m.active, interactionID)

	now := m.now()
	itx.EndTime = now
	itx.Outcome = outcome
	for k, v := range effects {
		itx.Effects[k] = v
	}

	for _, agentID := range itx.ParticipantIDs {
		byKind, ok := m.cooldowns[agentID]
		if !ok {
			byKind = make(map[Kind]time.Time)
			m.cooldowns[agentID] = byKind
		}
		byKind[itx.Kind] = now
	}

	m.history = append(m.history, itx)
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}

	if outcome.Succeeded() {
		m.successful++
	}

	m.logger.Debug("interaction completed", "interaction_id", interactionID, "outcome", string(outcome))
	return itx
}

// Active returns the active interactions, filtered to those involving
// agentID when it is non-empty.
func (m *Manager) Active(agentID string) []Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Interaction, 0, len(m.active))
	for _, itx := range m.active {
		if agentID == "" || itx.Involves(agentID) {
			out = append(out, *itx)
		}
	}
	return out
}

// HistoryFilter narrows History results.
type HistoryFilter struct {
	AgentID string // only interactions involving this agent
	Kind    *Kind  // only interactions of this kind
	Limit   int    // maximum results, most recent last; 0 means 100
}

// History returns completed interactions matching the filter, oldest first.
func (m *Manager) History(filter HistoryFilter) []Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	matched := make([]Interaction, 0, limit)
	for _, itx := range m.history {
		if filter.AgentID != "" && !itx.Involves(filter.AgentID) {
			continue
		}
		if filter.Kind != nil && itx.Kind != *filter.Kind {
			continue
		}
		matched = append(matched, *itx)
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched
}

// RelationshipScore derives a score in [-1,1] for the pair from their shared
// completed interactions: +0.1 per positive outcome, -0.15 per negative one.
func (m *Manager) RelationshipScore(agentA, agentB string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	score := 0.0
	for _, itx := range m.history {
		if !itx.Involves(agentA) || !itx.Involves(agentB) {
			continue
		}
		switch {
		case itx.Outcome.Succeeded():
			score += 0.1
		case itx.Outcome.Negative():
			score -= 0.15
		}
	}
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// Statistics returns current interaction counters.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := 0.0
	if m.total > 0 {
		rate = float64(m.successful) / float64(m.total)
	}
	return Statistics{
		TotalInteractions:      m.total,
		SuccessfulInteractions: m.successful,
		SuccessRate:            rate,
		ActiveCount:            len(m.active),
		HistorySize:            len(m.history),
	}
}

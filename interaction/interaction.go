// Package interaction tracks the start-to-complete lifecycle of encounters
// between agents: exclusivity (at most one active interaction per agent),
// per-kind cooldowns, a bounded completed-interaction history and derived
// relationship scores.
package interaction

import (
	"time"

	"github.com/hupe1980/citymesh/core"
)

// Kind identifies a category of interaction between agents.
type Kind int

const (
	// KindConversation is a casual chat.
	KindConversation Kind = iota
	// KindGreeting is a simple greeting.
	KindGreeting
	// KindFriendship builds a friendship.
	KindFriendship
	// KindConflict is a disagreement or argument.
	KindConflict
	// KindTrade exchanges goods or money.
	KindTrade
	// KindEmployment covers job offers and hiring.
	KindEmployment
	// KindService provides or requests a service.
	KindService
	// KindShareKnowledge shares information.
	KindShareKnowledge
	// KindGossip spreads rumors.
	KindGossip
	// KindHelp offers or requests help.
	KindHelp
	// KindCollaboration works together on something.
	KindCollaboration
	// KindMentoring teaches or learns.
	KindMentoring
)

const kindCount = int(KindMentoring) + 1

// Kinds returns all interaction kinds in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, kindCount)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConversation:
		return "conversation"
	case KindGreeting:
		return "greeting"
	case KindFriendship:
		return "friendship"
	case KindConflict:
		return "conflict"
	case KindTrade:
		return "trade"
	case KindEmployment:
		return "employment"
	case KindService:
		return "service"
	case KindShareKnowledge:
		return "share_knowledge"
	case KindGossip:
		return "gossip"
	case KindHelp:
		return "help"
	case KindCollaboration:
		return "collaboration"
	case KindMentoring:
		return "mentoring"
	default:
		return "unknown"
	}
}

// Outcome labels the result of a completed interaction.
type Outcome string

const (
	// OutcomePending marks an interaction that has not completed yet.
	OutcomePending Outcome = "pending"
	// OutcomeSuccess marks a successful interaction.
	OutcomeSuccess Outcome = "success"
	// OutcomePositive marks a positively received interaction.
	OutcomePositive Outcome = "positive"
	// OutcomeCompleted marks an interaction that ran to completion.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFailure marks a failed interaction.
	OutcomeFailure Outcome = "failure"
	// OutcomeNegative marks a negatively received interaction.
	OutcomeNegative Outcome = "negative"
	// OutcomeConflict marks an interaction that turned into an argument.
	OutcomeConflict Outcome = "conflict"
)

// Succeeded reports whether the outcome counts toward the success rate and
// positive relationship scoring.
func (o Outcome) Succeeded() bool {
	return o == OutcomeSuccess || o == OutcomePositive || o == OutcomeCompleted
}

// Negative reports whether the outcome lowers relationship scores.
func (o Outcome) Negative() bool {
	return o == OutcomeFailure || o == OutcomeNegative || o == OutcomeConflict
}

// Interaction records one encounter between agents. It is created by
// Manager.Start, mutated exactly once by Manager.Complete (EndTime set,
// Outcome and Effects filled) and then retained read-only in history.
type Interaction struct {
	ID             string         `json:"id"`
	Kind           Kind           `json:"kind"`
	InitiatorID    string         `json:"initiator_id"`
	ParticipantIDs []string       `json:"participant_ids"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time,omitempty"` // zero while active
	Outcome        Outcome        `json:"outcome"`
	Effects        map[string]any `json:"effects,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

func newInteraction(kind Kind, initiatorID string, participantIDs []string, ctx map[string]any, now time.Time) *Interaction {
	if ctx == nil {
		ctx = map[string]any{}
	}
	return &Interaction{
		ID:             core.NewID(),
		Kind:           kind,
		InitiatorID:    initiatorID,
		ParticipantIDs: append([]string(nil), participantIDs...),
		StartTime:      now,
		Outcome:        OutcomePending,
		Effects:        map[string]any{},
		Context:        ctx,
	}
}

// Active reports whether the interaction is still ongoing.
func (i *Interaction) Active() bool { return i.EndTime.IsZero() }

// Duration returns how long the interaction has been running, or its final
// length once completed.
func (i *Interaction) Duration() time.Duration {
	if i.Active() {
		return time.Since(i.StartTime)
	}
	return i.EndTime.Sub(i.StartTime)
}

// Involves reports whether the agent participates in the interaction.
func (i *Interaction) Involves(agentID string) bool {
	for _, id := range i.ParticipantIDs {
		if id == agentID {
			return true
		}
	}
	return false
}

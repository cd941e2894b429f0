package core

import "time"

// ActionKind identifies a category of citizen action.
type ActionKind int

const (
	// ActionWork performs a work shift for pay.
	ActionWork ActionKind = iota
	// ActionRest recovers energy.
	ActionRest
	// ActionEat satisfies the food need.
	ActionEat
	// ActionCommute moves the citizen between locations.
	ActionCommute
	// ActionSocialize seeks out company.
	ActionSocialize
	// ActionJobSearch looks for employment.
	ActionJobSearch
)

// String returns the snake_case identifier used in logs and AI prompts.
func (k ActionKind) String() string {
	switch k {
	case ActionWork:
		return "work_shift"
	case ActionRest:
		return "rest"
	case ActionEat:
		return "eat"
	case ActionCommute:
		return "commute"
	case ActionSocialize:
		return "socialize"
	case ActionJobSearch:
		return "job_search"
	default:
		return "unknown"
	}
}

// ActionResult captures the outcome of executing an action.
type ActionResult struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Effects map[string]float64 `json:"effects,omitempty"`
}

// LocalState is the slice of the world an agent can see when deciding.
// It is a value snapshot; decision providers must not retain or mutate it
// beyond the call.
type LocalState struct {
	Tick         int64          `json:"tick"`
	Time         time.Time      `json:"time"`
	Location     string         `json:"location"`
	NearbyAgents []string       `json:"nearby_agents"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Action is a behavior a citizen can perform. Implementations mutate only
// the citizen passed to Execute, which the calling runner owns.
type Action interface {
	// Kind identifies the action category.
	Kind() ActionKind

	// CheckPrerequisites reports whether the citizen may perform the action
	// in the given state. It must have no side effects.
	CheckPrerequisites(c *Citizen, state LocalState) bool

	// Execute applies the action's effects to the citizen and returns the
	// outcome. Errors are contained by the runner; a failed Execute leaves
	// the cycle a no-op.
	Execute(c *Citizen, state LocalState) (ActionResult, error)
}

// Package decision provides implementations of core.DecisionProvider: a
// deterministic utility/rule provider used as the universal fallback, a
// random last-resort provider, a timeout-and-concurrency wrapper for slow
// external providers, and AI-backed providers on top of the OpenAI and
// Anthropic APIs.
package decision

import (
	"fmt"
	"strings"

	"github.com/hupe1980/citymesh/core"
)

// buildPrompt renders the citizen's situation and the legal action set as a
// compact prompt for AI-backed providers. The model is asked to answer with
// exactly one action identifier.
func buildPrompt(c *core.Citizen, state core.LocalState, actions []core.Action) (system, user string) {
	system = "You choose the next action for a simulated city resident. " +
		"Answer with exactly one action identifier from the offered list and nothing else."

	var sb strings.Builder
	fmt.Fprintf(&sb, "Resident %s at %q (tick %d).\n", c.Name, state.Location, state.Tick)
	fmt.Fprintf(&sb, "Needs (0=depleted, 1=satisfied): food=%.2f rest=%.2f social=%.2f shelter=%.2f. Money: %.0f.\n",
		c.Needs.Food, c.Needs.Rest, c.Needs.Social, c.Needs.Shelter, c.Money)
	fmt.Fprintf(&sb, "Personality: extraversion=%.2f openness=%.2f agreeableness=%.2f.\n",
		c.Traits.Extraversion, c.Traits.Openness, c.Traits.Agreeableness)
	fmt.Fprintf(&sb, "Nearby residents: %d.\n", len(state.NearbyAgents))
	sb.WriteString("Available actions: ")
	for i, a := range actions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.Kind().String())
	}
	sb.WriteString("\nChosen action:")
	return system, sb.String()
}

// matchAction resolves a model reply to one of the offered actions. The
// reply may contain surrounding prose; the first offered identifier found
// wins.
func matchAction(reply string, actions []core.Action) (core.Action, error) {
	reply = strings.ToLower(strings.TrimSpace(reply))
	for _, a := range actions {
		if reply == a.Kind().String() {
			return a, nil
		}
	}
	for _, a := range actions {
		if strings.Contains(reply, a.Kind().String()) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("reply %q names no offered action", reply)
}

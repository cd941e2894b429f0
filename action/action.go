// Package action provides the built-in citizen actions: working a shift,
// resting, eating and socializing. Each action checks its prerequisites
// against the citizen and applies its effects to the citizen's needs and
// balance on execution.
package action

import (
	"fmt"

	"github.com/hupe1980/citymesh/core"
)

// Work performs a paid work shift. It costs rest and food and earns money.
type Work struct {
	Wage       float64
	EnergyCost float64
}

// NewWork constructs a work action with default wage and energy cost.
func NewWork() *Work { return &Work{Wage: 25, EnergyCost: 0.2} }

// Kind implements core.Action.
func (a *Work) Kind() core.ActionKind { return core.ActionWork }

// CheckPrerequisites requires enough energy to get through a shift.
func (a *Work) CheckPrerequisites(c *core.Citizen, _ core.LocalState) bool {
	return c.Needs.Rest >= 0.3 && c.Needs.Food >= 0.2
}

// Execute implements core.Action.
func (a *Work) Execute(c *core.Citizen, _ core.LocalState) (core.ActionResult, error) {
	c.Money += a.Wage
	c.Needs.SatisfyRest(-a.EnergyCost)
	c.Needs.SatisfyFood(-0.1)
	return core.ActionResult{
		Success: true,
		Message: fmt.Sprintf("worked a shift for %.0f", a.Wage),
		Effects: map[string]float64{"money": a.Wage, "rest": -a.EnergyCost, "food": -0.1},
	}, nil
}

// Rest recovers energy.
type Rest struct {
	Recovery float64
}

// NewRest constructs a rest action with default recovery.
func NewRest() *Rest { return &Rest{Recovery: 0.3} }

// Kind implements core.Action.
func (a *Rest) Kind() core.ActionKind { return core.ActionRest }

// CheckPrerequisites: resting is always possible.
func (a *Rest) CheckPrerequisites(*core.Citizen, core.LocalState) bool { return true }

// Execute implements core.Action.
func (a *Rest) Execute(c *core.Citizen, _ core.LocalState) (core.ActionResult, error) {
	c.Needs.SatisfyRest(a.Recovery)
	return core.ActionResult{
		Success: true,
		Message: "rested",
		Effects: map[string]float64{"rest": a.Recovery},
	}, nil
}

// Eat satisfies the food need for a price.
type Eat struct {
	Cost      float64
	Nutrition float64
}

// NewEat constructs an eat action with default cost and nutrition.
func NewEat() *Eat { return &Eat{Cost: 10, Nutrition: 0.4} }

// Kind implements core.Action.
func (a *Eat) Kind() core.ActionKind { return core.ActionEat }

// CheckPrerequisites requires enough money for a meal.
func (a *Eat) CheckPrerequisites(c *core.Citizen, _ core.LocalState) bool {
	return c.Money >= a.Cost
}

// Execute implements core.Action.
func (a *Eat) Execute(c *core.Citizen, _ core.LocalState) (core.ActionResult, error) {
	if c.Money < a.Cost {
		return core.ActionResult{Success: false, Message: "cannot afford a meal"}, nil
	}
	c.Money -= a.Cost
	c.Needs.SatisfyFood(a.Nutrition)
	return core.ActionResult{
		Success: true,
		Message: "ate a meal",
		Effects: map[string]float64{"food": a.Nutrition, "money": -a.Cost},
	}, nil
}

// Socialize seeks out company, satisfying the social need. The effect is
// stronger when other residents are around.
type Socialize struct {
	Boost float64
}

// NewSocialize constructs a socialize action with default boost.
func NewSocialize() *Socialize { return &Socialize{Boost: 0.2} }

// Kind implements core.Action.
func (a *Socialize) Kind() core.ActionKind { return core.ActionSocialize }

// CheckPrerequisites requires some minimal energy.
func (a *Socialize) CheckPrerequisites(c *core.Citizen, _ core.LocalState) bool {
	return c.Needs.Rest >= 0.2
}

// Execute implements core.Action.
func (a *Socialize) Execute(c *core.Citizen, state core.LocalState) (core.ActionResult, error) {
	boost := a.Boost
	if len(state.NearbyAgents) == 0 {
		boost /= 2
	}
	c.Needs.SatisfySocial(boost)
	c.Needs.SatisfyRest(-0.05)
	return core.ActionResult{
		Success: true,
		Message: "spent time socializing",
		Effects: map[string]float64{"social": boost, "rest": -0.05},
	}, nil
}

// All returns one instance of every built-in action with defaults.
func All() []core.Action {
	return []core.Action{NewWork(), NewRest(), NewEat(), NewSocialize()}
}

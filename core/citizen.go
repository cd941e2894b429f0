package core

import "math/rand"

// Needs tracks how well a citizen's basic needs are satisfied. Every value
// lives in [0,1] where 1 means fully satisfied. A citizen's needs are owned
// by its own runner; other goroutines must not mutate them.
type Needs struct {
	Food    float64 `json:"food" yaml:"food"`
	Rest    float64 `json:"rest" yaml:"rest"`
	Social  float64 `json:"social" yaml:"social"`
	Shelter float64 `json:"shelter" yaml:"shelter"`
}

// DefaultNeeds returns a moderately satisfied starting point.
func DefaultNeeds() Needs {
	return Needs{Food: 0.7, Rest: 0.7, Social: 0.5, Shelter: 0.8}
}

// OverallSatisfaction averages all need levels.
func (n *Needs) OverallSatisfaction() float64 {
	return (n.Food + n.Rest + n.Social + n.Shelter) / 4
}

// Satisfy raises a need level by amount, clamped to [0,1]. The pointer
// receiver methods take amounts that may be negative to model depletion.
func (n *Needs) SatisfyFood(amount float64)    { n.Food = clamp01(n.Food + amount) }
func (n *Needs) SatisfyRest(amount float64)    { n.Rest = clamp01(n.Rest + amount) }
func (n *Needs) SatisfySocial(amount float64)  { n.Social = clamp01(n.Social + amount) }
func (n *Needs) SatisfyShelter(amount float64) { n.Shelter = clamp01(n.Shelter + amount) }

// MostPressing returns the lowest need level.
func (n *Needs) MostPressing() float64 {
	m := n.Food
	for _, v := range []float64{n.Rest, n.Social, n.Shelter} {
		if v < m {
			m = v
		}
	}
	return m
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Traits holds a citizen's Big Five personality dimensions, each in [0,1].
// Traits are read-only after construction.
type Traits struct {
	Openness          float64 `json:"openness" yaml:"openness"`
	Conscientiousness float64 `json:"conscientiousness" yaml:"conscientiousness"`
	Extraversion      float64 `json:"extraversion" yaml:"extraversion"`
	Agreeableness     float64 `json:"agreeableness" yaml:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism" yaml:"neuroticism"`
}

// DefaultTraits returns a neutral personality.
func DefaultTraits() Traits {
	return Traits{Openness: 0.5, Conscientiousness: 0.5, Extraversion: 0.5, Agreeableness: 0.5, Neuroticism: 0.5}
}

// RandomTraits draws each dimension uniformly from [0,1) using rng.
func RandomTraits(rng *rand.Rand) Traits {
	return Traits{
		Openness:          rng.Float64(),
		Conscientiousness: rng.Float64(),
		Extraversion:      rng.Float64(),
		Agreeableness:     rng.Float64(),
		Neuroticism:       rng.Float64(),
	}
}

// IsIntroverted reports whether the citizen leans introverted.
func (t Traits) IsIntroverted() bool { return t.Extraversion < 0.4 }

// Citizen is the simulated person an AgentRunner drives. Mutable state
// (Needs, Money, Location) is owned by the citizen's own runner; other
// runners may read relationship scores through the interaction manager but
// never touch another citizen directly.
type Citizen struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Location string  `json:"location" yaml:"location"`
	Money    float64 `json:"money" yaml:"money"`
	Needs    Needs   `json:"needs" yaml:"needs"`
	Traits   Traits  `json:"traits" yaml:"traits"`
}

// CitizenOption mutates a Citizen during construction.
type CitizenOption func(*Citizen)

// WithTraits overrides the default neutral personality.
func WithTraits(t Traits) CitizenOption {
	return func(c *Citizen) { c.Traits = t }
}

// WithNeeds overrides the default starting needs.
func WithNeeds(n Needs) CitizenOption {
	return func(c *Citizen) { c.Needs = n }
}

// WithLocation sets the citizen's starting location.
func WithLocation(loc string) CitizenOption {
	return func(c *Citizen) { c.Location = loc }
}

// WithMoney sets the citizen's starting balance.
func WithMoney(amount float64) CitizenOption {
	return func(c *Citizen) { c.Money = amount }
}

// NewCitizen constructs a citizen with a generated id and sane defaults.
func NewCitizen(name string, opts ...CitizenOption) *Citizen {
	c := &Citizen{
		ID:     NewID(),
		Name:   name,
		Money:  100,
		Needs:  DefaultNeeds(),
		Traits: DefaultTraits(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

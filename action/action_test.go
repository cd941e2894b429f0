package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/citymesh/core"
)

func TestWork(t *testing.T) {
	c := core.NewCitizen("alice", core.WithMoney(50))
	work := NewWork()

	require.True(t, work.CheckPrerequisites(c, core.LocalState{}))

	result, err := work.Execute(c, core.LocalState{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 75.0, c.Money)
	assert.InDelta(t, 0.5, c.Needs.Rest, 1e-9)
	assert.InDelta(t, 0.6, c.Needs.Food, 1e-9)
}

func TestWork_TooTiredToWork(t *testing.T) {
	c := core.NewCitizen("alice", core.WithNeeds(core.Needs{Food: 0.7, Rest: 0.1}))
	assert.False(t, NewWork().CheckPrerequisites(c, core.LocalState{}))
}

func TestRest(t *testing.T) {
	c := core.NewCitizen("alice", core.WithNeeds(core.Needs{Rest: 0.9}))
	rest := NewRest()

	require.True(t, rest.CheckPrerequisites(c, core.LocalState{}))

	result, err := rest.Execute(c, core.LocalState{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1.0, c.Needs.Rest) // clamped
}

func TestEat(t *testing.T) {
	c := core.NewCitizen("alice", core.WithMoney(15), core.WithNeeds(core.Needs{Food: 0.3}))
	eat := NewEat()

	require.True(t, eat.CheckPrerequisites(c, core.LocalState{}))

	result, err := eat.Execute(c, core.LocalState{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 5.0, c.Money)
	assert.InDelta(t, 0.7, c.Needs.Food, 1e-9)

	// A second meal is no longer affordable.
	assert.False(t, eat.CheckPrerequisites(c, core.LocalState{}))
}

func TestSocialize(t *testing.T) {
	crowd := core.LocalState{NearbyAgents: []string{"bob", "carol"}}

	c := core.NewCitizen("alice", core.WithNeeds(core.Needs{Rest: 0.7, Social: 0.3}))
	result, err := NewSocialize().Execute(c, crowd)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.InDelta(t, 0.5, c.Needs.Social, 1e-9)

	// Alone the boost is halved.
	alone := core.NewCitizen("bob", core.WithNeeds(core.Needs{Rest: 0.7, Social: 0.3}))
	_, err = NewSocialize().Execute(alone, core.LocalState{})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, alone.Needs.Social, 1e-9)
}

func TestAll(t *testing.T) {
	kinds := make(map[core.ActionKind]bool)
	for _, a := range All() {
		kinds[a.Kind()] = true
	}
	assert.Len(t, kinds, 4)
	assert.True(t, kinds[core.ActionWork])
	assert.True(t, kinds[core.ActionRest])
	assert.True(t, kinds[core.ActionEat])
	assert.True(t, kinds[core.ActionSocialize])
}

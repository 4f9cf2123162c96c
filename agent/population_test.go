package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/core"
)

var testPersonas = []core.Persona{
	{ID: "utilitarian", Name: "Utilitarian"},
	{ID: "deontologist", Name: "Deontologist"},
}

var testScenario = core.Scenario{ID: "TROLLEY", Stances: [2]core.Stance{"PULL_LEVER", "DO_NOT_PULL"}}

func TestNewPopulation(t *testing.T) {
	p, err := NewPopulation(3, testPersonas)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())

	agents := p.Agents()
	assert.Equal(t, "agent_000", agents[0].ID)
	assert.Equal(t, "agent_002", agents[2].ID)
	assert.Equal(t, "utilitarian", agents[0].Persona.ID)
	assert.Equal(t, "deontologist", agents[1].Persona.ID)
	assert.Equal(t, "utilitarian", agents[2].Persona.ID)

	_, err = NewPopulation(0, testPersonas)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewPopulation(2, nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestPopulation_InitialStancesDeterministic(t *testing.T) {
	p1, _ := NewPopulation(20, testPersonas)
	p2, _ := NewPopulation(20, testPersonas)
	p1.AssignInitialStances(testScenario, core.Int64(99))
	p2.AssignInitialStances(testScenario, core.Int64(99))

	for i, a := range p1.Agents() {
		assert.True(t, testScenario.Has(a.InitialStance))
		assert.Equal(t, a.InitialStance, p2.Agents()[i].InitialStance)
	}
}

func TestPopulation_InitialBiasExtremes(t *testing.T) {
	sc := testScenario
	sc.InitialBias = core.Float64(1)
	p, _ := NewPopulation(10, testPersonas)
	p.AssignInitialStances(sc, nil)
	for _, a := range p.Agents() {
		assert.Equal(t, core.Stance("PULL_LEVER"), a.InitialStance)
	}

	sc.InitialBias = core.Float64(0)
	p.AssignInitialStances(sc, core.Int64(3))
	for _, a := range p.Agents() {
		assert.Equal(t, core.Stance("DO_NOT_PULL"), a.InitialStance)
	}
}

func TestPopulation_ApplyAndDistribution(t *testing.T) {
	p, _ := NewPopulation(3, testPersonas)
	assert.Empty(t, p.Distribution())

	require.NoError(t, p.Apply(core.AgentResponse{AgentID: "agent_000", Stance: "PULL_LEVER", Rationale: "r", ParseSuccess: true}))
	require.NoError(t, p.Apply(core.AgentResponse{AgentID: "agent_001", Stance: "DO_NOT_PULL", ParseSuccess: true}))
	require.NoError(t, p.Apply(core.AgentResponse{AgentID: "agent_002", Stance: "PULL_LEVER", ParseSuccess: false}))

	assert.Equal(t, core.Distribution{"PULL_LEVER": 1, "DO_NOT_PULL": 1}, p.Distribution())

	snap := p.Snapshot()
	require.NoError(t, p.Apply(core.AgentResponse{AgentID: "agent_000", Stance: "DO_NOT_PULL", ParseSuccess: true}))
	assert.Equal(t, core.Stance("PULL_LEVER"), snap[0].Stance, "snapshots are frozen")
	assert.Equal(t, "r", snap[0].Rationale)

	assert.Error(t, p.Apply(core.AgentResponse{AgentID: "nope"}))
	assert.Error(t, p.Restore("nope", "A", "", ""))
}

func TestPopulation_Restore(t *testing.T) {
	p, _ := NewPopulation(2, testPersonas)
	p.AssignInitialStances(core.Scenario{Stances: [2]core.Stance{"A", "B"}, InitialBias: core.Float64(1)}, core.Int64(1))

	require.NoError(t, p.Restore("agent_001", "B", "kept", ""))
	a, ok := p.Get("agent_001")
	require.True(t, ok)
	assert.Equal(t, core.Stance("B"), a.Stance)
	assert.Equal(t, "kept", a.Rationale)
	assert.Equal(t, core.Stance("A"), a.InitialStance, "empty initial keeps the drawn one")

	require.NoError(t, p.Restore("agent_001", "B", "kept", "B"))
	a, _ = p.Get("agent_001")
	assert.Equal(t, core.Stance("B"), a.InitialStance)
}

package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondition_DisclosureTable(t *testing.T) {
	tests := []struct {
		c                           Condition
		peers, id, rationale, stats bool
	}{
		{ConditionIndependent, false, false, false, false},
		{ConditionFull, true, true, true, true},
		{ConditionStanceOnly, true, true, false, true},
		{ConditionAnonBandwagon, true, false, true, true},
		{ConditionPureInfo, true, false, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.c), func(t *testing.T) {
			assert.Equal(t, tt.peers, tt.c.UsesPeers())
			assert.Equal(t, tt.id, tt.c.ShowsIdentity())
			assert.Equal(t, tt.rationale, tt.c.ShowsRationale())
			assert.Equal(t, tt.stats, tt.c.ShowsStats())
			assert.NoError(t, tt.c.Validate())
		})
	}
}

func TestParseCondition(t *testing.T) {
	c, err := ParseCondition("c3")
	require.NoError(t, err)
	assert.Equal(t, ConditionAnonBandwagon, c)

	c, err = ParseCondition("C1_FULL")
	require.NoError(t, err)
	assert.Equal(t, ConditionFull, c)

	_, err = ParseCondition("C9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "condition", cfgErr.Field)
}

func TestParseChangeReason(t *testing.T) {
	r, ok := ParseChangeReason(" normative ")
	assert.True(t, ok)
	assert.Equal(t, ReasonNormative, r)

	_, ok = ParseChangeReason("PEER_PRESSURE")
	assert.False(t, ok)

	assert.True(t, ReasonUncertainty.IsChange())
	assert.False(t, ReasonInitial.IsChange())
}

func TestNormalizeStance(t *testing.T) {
	assert.Equal(t, Stance("PULL_LEVER"), NormalizeStance(" pull lever "))
	assert.Equal(t, Stance("DO_NOT_PULL"), NormalizeStance("\"do-not-pull\""))
	assert.Equal(t, NoStance, NormalizeStance("  "))
}

func TestExperimentConfig_Validate(t *testing.T) {
	base := ExperimentConfig{
		Condition: ConditionFull,
		Scenario:  Scenario{ID: "S", Stances: [2]Stance{"A", "B"}},
		NumAgents: 5,
		NumRounds: 3,
		SampleK:   2,
	}.WithDefaults()
	require.NoError(t, base.Validate())

	bad := base
	bad.SampleK = 0
	assert.ErrorIs(t, bad.Validate(), ErrConfiguration)

	indep := base
	indep.Condition = ConditionIndependent
	indep.SampleK = 0
	assert.NoError(t, indep.Validate())

	bad = base
	bad.Scenario.Stances = [2]Stance{"A", "A"}
	assert.ErrorIs(t, bad.Validate(), ErrConfiguration)

	bad = base
	bad.Seed = Int64(-1)
	assert.ErrorIs(t, bad.Validate(), ErrConfiguration)

	bad = base
	bad.Scenario.InitialBias = Float64(1.5)
	assert.ErrorIs(t, bad.Validate(), ErrConfiguration)

	bad = base
	bad.Temperature = Float64(-0.1)
	assert.ErrorIs(t, bad.Validate(), ErrConfiguration)
}

func TestExperimentConfig_WithDefaults(t *testing.T) {
	cfg := ExperimentConfig{}.WithDefaults()
	require.NotNil(t, cfg.Temperature)
	require.NotNil(t, cfg.CollapseThreshold)
	assert.Equal(t, DefaultTemperature, *cfg.Temperature)
	assert.Equal(t, DefaultCollapseThreshold, *cfg.CollapseThreshold)
	assert.Equal(t, InitialNone, cfg.InitialStanceMode)

	greedy := ExperimentConfig{Temperature: Float64(0), CollapseThreshold: Float64(0)}.WithDefaults()
	assert.Equal(t, 0.0, *greedy.Temperature, "explicit 0 temperature is kept")
	assert.Equal(t, 0.0, *greedy.CollapseThreshold, "explicit 0 threshold is kept")
}

func TestDistribution_String(t *testing.T) {
	d := Distribution{"B": 2, "A": 3}
	assert.Equal(t, "A: 3 | B: 2", d.String())
	assert.Equal(t, 5, d.Total())
	assert.Equal(t, []Stance{"A", "B"}, d.Stances())
}

func TestCallBudget(t *testing.T) {
	b := NewCallBudget(2)
	require.NoError(t, b.Spend())
	require.NoError(t, b.Spend())
	assert.Equal(t, 0, b.Left())
	assert.ErrorIs(t, b.Spend(), ErrModelCallLimit)
	assert.Equal(t, 3, b.Spent())
	assert.Equal(t, 0, b.Left())

	unlimited := NewCallBudget(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, unlimited.Spend())
	}
	assert.Equal(t, -1, unlimited.Left())
	assert.Equal(t, 10, unlimited.Spent())
}

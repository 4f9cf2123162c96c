package testutil

import "github.com/hupe1980/agoramesh/core"

// Scenario is a two-stance dilemma with an even initial bias.
func Scenario() core.Scenario {
	return core.Scenario{
		ID:          "S_TEST",
		Name:        "Test dilemma",
		Description: "Choose A or B.",
		Stances:     [2]core.Stance{"A", "B"},
		InitialBias: core.Float64(0.5),
	}
}

// Personas returns two distinct personas.
func Personas() []core.Persona {
	return []core.Persona{
		{ID: "utilitarian", Name: "Utilitarian", Description: "Maximise overall welfare."},
		{ID: "deontologist", Name: "Deontologist", Description: "Follow moral duties."},
	}
}

// Config returns a valid, seeded configuration. Pass optFns to adjust it.
func Config(optFns ...func(c *core.ExperimentConfig)) core.ExperimentConfig {
	cfg := core.ExperimentConfig{
		ExperimentID:      "exp-test",
		Condition:         core.ConditionFull,
		Scenario:          Scenario(),
		NumAgents:         5,
		NumRounds:         3,
		SampleK:           2,
		InitialStanceMode: core.InitialNone,
		Seed:              core.Int64(42),
		Model:             "mock",
	}.WithDefaults()
	for _, fn := range optFns {
		fn(&cfg)
	}
	return cfg
}

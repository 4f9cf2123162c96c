package core

import "fmt"

// Scenario is an immutable binary dilemma.
type Scenario struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Stances     [2]Stance `json:"stances" yaml:"stances"`
	// InitialBias is the probability that an agent's initial stance is the
	// first member of Stances. Nil means an even split.
	InitialBias *float64 `json:"initial_bias,omitempty" yaml:"initial_bias,omitempty"`
}

// Has reports whether s belongs to the scenario's closed stance set.
func (sc Scenario) Has(s Stance) bool {
	return s.IsSet() && (s == sc.Stances[0] || s == sc.Stances[1])
}

// StanceStrings returns the stance set as plain strings (schema enums, prompts).
func (sc Scenario) StanceStrings() []string {
	return []string{string(sc.Stances[0]), string(sc.Stances[1])}
}

// Bias returns the initial bias with the even-split default applied.
func (sc Scenario) Bias() float64 {
	if sc.InitialBias == nil {
		return 0.5
	}
	return *sc.InitialBias
}

// Validate checks the scenario invariants.
func (sc Scenario) Validate() error {
	if sc.ID == "" {
		return &ConfigError{Field: "scenario.id", Message: "must not be empty"}
	}
	if !sc.Stances[0].IsSet() || !sc.Stances[1].IsSet() || sc.Stances[0] == sc.Stances[1] {
		return &ConfigError{Field: "scenario.stances", Message: fmt.Sprintf("scenario %s needs two distinct stances", sc.ID)}
	}
	if sc.InitialBias != nil && (*sc.InitialBias < 0 || *sc.InitialBias > 1) {
		return &ConfigError{Field: "scenario.initial_bias", Message: fmt.Sprintf("%v is outside [0,1]", *sc.InitialBias)}
	}
	return nil
}

// Persona is the fixed role-conditioning descriptor of an agent.
type Persona struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

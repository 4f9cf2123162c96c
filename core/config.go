package core

import "fmt"

// Default experiment parameters.
const (
	DefaultNumAgents         = 50
	DefaultNumRounds         = 10
	DefaultSampleK           = 5
	DefaultTemperature       = 0.2
	DefaultMaxTokens         = 512
	DefaultCollapseThreshold = 0.469
	DefaultCollapseWindow    = 2
)

// ExperimentConfig is immutable for the lifetime of a run. It is recorded once
// as the config event and restored from that event on resume.
type ExperimentConfig struct {
	ExperimentID      string            `json:"experiment_id" yaml:"experiment_id"`
	Condition         Condition         `json:"condition" yaml:"condition"`
	Scenario          Scenario          `json:"scenario" yaml:"scenario"`
	NumAgents         int               `json:"num_agents" yaml:"num_agents"`
	NumRounds         int               `json:"num_rounds" yaml:"num_rounds"`
	SampleK           int               `json:"sample_k" yaml:"sample_k"`
	InitialStanceMode InitialStanceMode `json:"initial_stance_mode" yaml:"initial_stance_mode"`
	Seed              *int64            `json:"seed,omitempty" yaml:"seed,omitempty"`
	Model             string            `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature       *float64          `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens         int               `json:"max_tokens" yaml:"max_tokens"`
	CollapseThreshold *float64          `json:"collapse_threshold,omitempty" yaml:"collapse_threshold,omitempty"`
	CollapseWindow    int               `json:"collapse_window" yaml:"collapse_window"`
	StopOnCollapse    bool              `json:"stop_on_collapse" yaml:"stop_on_collapse"`

	// Personas is the roster agents draw from round-robin. The engine fills
	// it before the config event is written so a resume rebuilds the same
	// assignment.
	Personas []Persona `json:"personas,omitempty" yaml:"personas,omitempty"`
}

// WithDefaults fills unset tuning fields. Temperature and CollapseThreshold
// are only defaulted when nil, so an explicit 0 survives.
func (c ExperimentConfig) WithDefaults() ExperimentConfig {
	if c.InitialStanceMode == "" {
		c.InitialStanceMode = InitialNone
	}
	if c.Temperature == nil {
		c.Temperature = Float64(DefaultTemperature)
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.CollapseThreshold == nil {
		c.CollapseThreshold = Float64(DefaultCollapseThreshold)
	}
	if c.CollapseWindow == 0 {
		c.CollapseWindow = DefaultCollapseWindow
	}
	return c
}

// Validate fails fast on any invalid combination. It never touches the log.
func (c ExperimentConfig) Validate() error {
	if err := c.Condition.Validate(); err != nil {
		return err
	}
	if err := c.Scenario.Validate(); err != nil {
		return err
	}
	if err := c.InitialStanceMode.Validate(); err != nil {
		return err
	}
	if c.NumAgents < 1 {
		return &ConfigError{Field: "num_agents", Message: fmt.Sprintf("must be >= 1, got %d", c.NumAgents)}
	}
	if c.NumRounds < 1 {
		return &ConfigError{Field: "num_rounds", Message: fmt.Sprintf("must be >= 1, got %d", c.NumRounds)}
	}
	if c.Condition.UsesPeers() && c.SampleK < 1 {
		return &ConfigError{Field: "sample_k", Message: fmt.Sprintf("condition %s needs k >= 1, got %d", c.Condition, c.SampleK)}
	}
	if c.SampleK < 0 {
		return &ConfigError{Field: "sample_k", Message: "must not be negative"}
	}
	if c.Seed != nil && *c.Seed < 0 {
		return &ConfigError{Field: "seed", Message: "must not be negative"}
	}
	if c.CollapseWindow < 1 {
		return &ConfigError{Field: "collapse_window", Message: "must be >= 1"}
	}
	if c.Temperature != nil && *c.Temperature < 0 {
		return &ConfigError{Field: "temperature", Message: "must not be negative"}
	}
	if c.CollapseThreshold != nil && *c.CollapseThreshold < 0 {
		return &ConfigError{Field: "collapse_threshold", Message: "must not be negative"}
	}
	if c.MaxTokens < 1 {
		return &ConfigError{Field: "max_tokens", Message: "must be >= 1"}
	}
	return nil
}

// Int64 returns a pointer to v. Convenient for optional seeds.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v. Convenient for optional biases and
// decoding parameters.
func Float64(v float64) *float64 { return &v }

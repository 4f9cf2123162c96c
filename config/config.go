package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/telemetry"
)

// Backend names.
const (
	BackendOllama    = "ollama"
	BackendOpenAI    = "openai"
	BackendAnthropic = "anthropic"
	BackendMock      = "mock"
)

// Settings is the root configuration.
type Settings struct {
	Backend    BackendSettings    `yaml:"backend"`
	Run        RunSettings        `yaml:"run"`
	Experiment ExperimentSettings `yaml:"experiment"`
	Logging    LoggingSettings    `yaml:"logging"`
}

// BackendSettings selects and tunes the model backend.
type BackendSettings struct {
	Name    string `yaml:"name"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	// APIKey is normally left empty and read by the SDK from its usual
	// environment variable.
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryBase   time.Duration `yaml:"retry_base"`
	// RateLimit caps backend attempts per second; 0 disables it.
	RateLimit float64 `yaml:"rate_limit"`
	// MaxCalls caps model calls per run; 0 means unlimited.
	MaxCalls int `yaml:"max_calls"`
}

// RunSettings control execution.
type RunSettings struct {
	LogDir      string `yaml:"log_dir"`
	Concurrency int    `yaml:"concurrency"`
	MetricsAddr string `yaml:"metrics_addr"`
	CheckReady  bool   `yaml:"check_ready"`
	// TraceExporter is none, stdout or otlp.
	TraceExporter string `yaml:"trace_exporter"`
}

// ExperimentSettings is the YAML form of core.ExperimentConfig; the scenario
// is referenced by id.
type ExperimentSettings struct {
	Condition         string  `yaml:"condition"`
	Scenario          string  `yaml:"scenario"`
	Agents            int     `yaml:"agents"`
	Rounds            int     `yaml:"rounds"`
	SampleK           int     `yaml:"k"`
	InitialStanceMode string  `yaml:"initial_stance_mode"`
	Seed              *int64  `yaml:"seed"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	CollapseThreshold float64 `yaml:"collapse_threshold"`
	CollapseWindow    int     `yaml:"collapse_window"`
	StopOnCollapse    bool    `yaml:"stop_on_collapse"`
	// Debug shrinks the run to 5 agents, 3 rounds and k=2.
	Debug bool `yaml:"debug"`
}

// LoggingSettings configure the process logger.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the compiled defaults.
func Default() *Settings {
	return &Settings{
		Backend: BackendSettings{
			Name:        BackendOllama,
			Model:       "mistral",
			BaseURL:     "http://localhost:11434",
			Timeout:     120 * time.Second,
			MaxAttempts: 3,
			RetryBase:   2 * time.Second,
		},
		Run: RunSettings{
			LogDir:        "logs",
			Concurrency:   1,
			CheckReady:    true,
			TraceExporter: telemetry.TraceExporterNone,
		},
		Experiment: ExperimentSettings{
			Condition:         string(core.ConditionFull),
			Scenario:          "S1_TROLLEY",
			Agents:            core.DefaultNumAgents,
			Rounds:            core.DefaultNumRounds,
			SampleK:           core.DefaultSampleK,
			InitialStanceMode: string(core.InitialNone),
			Temperature:       core.DefaultTemperature,
			MaxTokens:         core.DefaultMaxTokens,
			CollapseThreshold: core.DefaultCollapseThreshold,
			CollapseWindow:    core.DefaultCollapseWindow,
		},
		Logging: LoggingSettings{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return s, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty or
// does not exist.
func LoadOrDefault(path string) (*Settings, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("OLLAMA_BASE_URL"); ok && v != "" && s.Backend.Name == BackendOllama {
		s.Backend.BaseURL = v
	}
	if v, ok := lookup("MODEL_NAME"); ok && v != "" {
		s.Backend.Model = v
	}
	if v, ok := lookup("AGORA_BACKEND"); ok && v != "" {
		s.Backend.Name = strings.ToLower(v)
	}
	if v, ok := lookup("AGORA_LOG_DIR"); ok && v != "" {
		s.Run.LogDir = v
	}
	if v, ok := lookup("OTEL_TRACES_EXPORTER"); ok && v != "" {
		s.Run.TraceExporter = strings.ToLower(v)
	}
}

// Validate checks process-level settings. Experiment fields are validated
// by ExperimentConfig.
func (s *Settings) Validate() error {
	switch s.Backend.Name {
	case BackendOllama, BackendOpenAI, BackendAnthropic, BackendMock:
	default:
		return &core.ConfigError{Field: "backend.name", Message: fmt.Sprintf("unknown backend %q", s.Backend.Name)}
	}
	if s.Backend.MaxAttempts < 1 {
		return &core.ConfigError{Field: "backend.max_attempts", Message: "must be >= 1"}
	}
	if s.Backend.Timeout <= 0 {
		return &core.ConfigError{Field: "backend.timeout", Message: "must be positive"}
	}
	if s.Backend.RetryBase < 0 {
		return &core.ConfigError{Field: "backend.retry_base", Message: "must not be negative"}
	}
	if s.Backend.RateLimit < 0 {
		return &core.ConfigError{Field: "backend.rate_limit", Message: "must not be negative"}
	}
	if s.Run.Concurrency < 1 {
		return &core.ConfigError{Field: "run.concurrency", Message: "must be >= 1"}
	}
	switch s.Run.TraceExporter {
	case "", telemetry.TraceExporterNone, telemetry.TraceExporterStdout, telemetry.TraceExporterOTLP:
	default:
		return &core.ConfigError{Field: "run.trace_exporter", Message: fmt.Sprintf("unknown exporter %q", s.Run.TraceExporter)}
	}
	if s.Run.LogDir == "" {
		return &core.ConfigError{Field: "run.log_dir", Message: "must not be empty"}
	}
	return nil
}

// ExperimentConfig resolves the experiment section against a catalog. The
// result is validated.
func (s *Settings) ExperimentConfig(cat *Catalog) (core.ExperimentConfig, error) {
	e := s.Experiment
	cond, err := core.ParseCondition(e.Condition)
	if err != nil {
		return core.ExperimentConfig{}, err
	}
	mode, err := core.ParseInitialStanceMode(e.InitialStanceMode)
	if err != nil {
		return core.ExperimentConfig{}, err
	}
	sc, err := cat.Scenario(e.Scenario)
	if err != nil {
		return core.ExperimentConfig{}, err
	}

	cfg := core.ExperimentConfig{
		ExperimentID:      core.NewID(),
		Condition:         cond,
		Scenario:          sc,
		NumAgents:         e.Agents,
		NumRounds:         e.Rounds,
		SampleK:           e.SampleK,
		InitialStanceMode: mode,
		Seed:              e.Seed,
		Model:             s.Backend.Model,
		Temperature:       core.Float64(e.Temperature),
		MaxTokens:         e.MaxTokens,
		CollapseThreshold: core.Float64(e.CollapseThreshold),
		CollapseWindow:    e.CollapseWindow,
		StopOnCollapse:    e.StopOnCollapse,
	}
	if e.Debug {
		cfg.NumAgents, cfg.NumRounds, cfg.SampleK = 5, 3, 2
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return core.ExperimentConfig{}, err
	}
	return cfg, nil
}

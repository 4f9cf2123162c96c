package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/config"
	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/model"
	"github.com/hupe1980/agoramesh/model/anthropic"
	"github.com/hupe1980/agoramesh/model/ollama"
	"github.com/hupe1980/agoramesh/model/openai"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"AGORA_BACKEND", "AGORA_LOG_DIR", "MODEL_NAME", "OLLAMA_BASE_URL", "OTEL_TRACES_EXPORTER"} {
		t.Setenv(k, "")
	}
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	base := []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--env-file", ""}
	cmd.SetArgs(append(base, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand_MockBackend(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--backend", "mock", "--debug", "--seed", "3", "--condition", "C2", "--log-dir", dir)
	require.NoError(t, err)

	var summary core.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.RoundsCompleted)
	assert.Equal(t, 15, summary.Responses)
	assert.Equal(t, core.ConditionStanceOnly, summary.Config.Condition)
	assert.Equal(t, 1.0, summary.ParseSuccessRate)
	assert.FileExists(t, filepath.Join(dir, summary.ExperimentID+".jsonl"))

	out, err = execute(t, "resume", summary.ExperimentID, "--backend", "mock", "--log-dir", dir)
	require.NoError(t, err)
	var again core.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	assert.Equal(t, summary.EntropyHistory, again.EntropyHistory)
}

func TestRunCommand_InvalidExperiment(t *testing.T) {
	_, err := execute(t, "run", "--backend", "mock", "--scenario", "S404", "--log-dir", t.TempDir())
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = execute(t, "run", "--backend", "carrier-pigeon", "--log-dir", t.TempDir())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestScenariosCommand(t *testing.T) {
	out, err := execute(t, "scenarios")
	require.NoError(t, err)
	assert.Contains(t, out, "S1_TROLLEY")
	assert.Contains(t, out, "PULL_LEVER / DO_NOT_PULL")

	out, err = execute(t, "scenarios", "--personas")
	require.NoError(t, err)
	assert.Contains(t, out, "Dr. Bentham")
}

func TestCheckCommand_Mock(t *testing.T) {
	out, err := execute(t, "check", "--backend", "mock")
	require.NoError(t, err)
	assert.Contains(t, out, "mock backend ready")
}

func TestNewModel(t *testing.T) {
	s := config.Default().Backend
	m, err := newModel(s)
	require.NoError(t, err)
	assert.IsType(t, &ollama.Model{}, m)

	s.Name = config.BackendOpenAI
	s.APIKey = "test"
	m, err = newModel(s)
	require.NoError(t, err)
	assert.IsType(t, &openai.Model{}, m)

	s.Name = config.BackendAnthropic
	m, err = newModel(s)
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Model{}, m)

	s.Name = "nope"
	_, err = newModel(s)
	assert.Error(t, err)
}

func TestDryRunAnswer(t *testing.T) {
	system := "You are X.\nValid stances for this scenario: PULL_LEVER, DO_NOT_PULL\n"
	even, odd := int64(4), int64(5)

	resp, err := dryRunAnswer(context.Background(), model.Request{System: system, Seed: &even})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `"PULL_LEVER"`)

	resp, err = dryRunAnswer(context.Background(), model.Request{System: system, Seed: &odd})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, `"DO_NOT_PULL"`)

	resp, err = dryRunAnswer(context.Background(), model.Request{System: "nothing here"})
	require.NoError(t, err)
	assert.Equal(t, "no stances advertised", resp.Text)
}

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, newRateLimiter(0))
	l := newRateLimiter(0.5)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
	assert.Equal(t, 4, newRateLimiter(4).Burst())
}

func TestRunCommand_StdoutTraces(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "none.yaml"), "--env-file", "", "--log-level", "error",
		"run", "--backend", "mock", "--debug", "--log-dir", t.TempDir(), "--trace-exporter", "stdout",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, errOut.String(), "engine.Round")
	assert.Contains(t, errOut.String(), "invoker.Invoke")
}

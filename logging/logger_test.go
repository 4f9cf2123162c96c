package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestRunLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf})
	l := base.WithComponent("engine").WithExperiment("exp-1").WithRound(3).WithContext("condition", "C1_FULL")

	l.Info("hello", "agent_id", "agent_001")
	base.Info("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "engine", lines[0]["component"])
	assert.Equal(t, "exp-1", lines[0]["experiment_id"])
	assert.Equal(t, float64(3), lines[0]["round"])
	assert.Equal(t, "C1_FULL", lines[0]["condition"])
	assert.Equal(t, "agent_001", lines[0]["agent_id"])
	assert.NotContains(t, lines[1], "experiment_id", "With* must not mutate the parent")
}

func TestRunLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Output: &buf})
	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")
	assert.Len(t, decodeLines(t, &buf), 2)
}

func TestRunLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Output: &buf})
	l.LogModelCall("agent_000", "llama", "parsed", 1, time.Millisecond, nil)
	l.LogModelCall("agent_001", "llama", "transport_failure", 3, time.Second, errors.New("timeout"))
	l.LogRound(2, "A: 3 | B: 2", 0.97, 1, time.Second)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "DEBUG", lines[0]["level"])
	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "timeout", lines[1]["error"])
	assert.Equal(t, "A: 3 | B: 2", lines[2]["distribution"])
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warning")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, l)
	assert.Equal(t, "WARN", l.String())

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() { l.Error("x", "k", "v") })
}

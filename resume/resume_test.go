package resume

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/eventlog"
	"github.com/hupe1980/agoramesh/internal/testutil"
)

func TestFindLastCompleteRound(t *testing.T) {
	cfg := testutil.Config()
	data := testutil.NewLogBuilder(cfg).
		Header().
		Round(0, 0.97, "A", "B", "A").
		Round(1, 0.91, "A", "A", "A").
		Partial(2, "B", "B").
		Raw(`{"type":"agent_resp`).
		Bytes()

	st, ok, err := FindLastCompleteRound(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, st.LastRound)
	assert.Equal(t, cfg.ExperimentID, st.ExperimentID)
	require.NotNil(t, st.Config)
	assert.Equal(t, cfg.Condition, st.Config.Condition)
	assert.Equal(t, []float64{0.97, 0.91}, st.EntropyHistory)
	assert.Equal(t, AgentState{Stance: "A", Rationale: "r1-1"}, st.Agents["agent_001"])
	assert.Equal(t, 6, st.Tally.Responses, "partial round responses are ignored")
	assert.False(t, st.Finished())
}

func TestFindLastCompleteRound_LastWriteWins(t *testing.T) {
	cfg := testutil.Config()
	b := testutil.NewLogBuilder(cfg).Header().Responses(0, "A", "A")
	b.Responses(0, "B")
	b.Event(core.NewRoundEndEvent(0, core.Distribution{"A": 1, "B": 1}, 1))

	st, ok, err := FindLastCompleteRound(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Stance("B"), st.Agents["agent_000"].Stance)
	assert.Equal(t, 2, st.Tally.Responses)
}

func TestFindLastCompleteRound_NoCompleteRound(t *testing.T) {
	cfg := testutil.Config()
	data := testutil.NewLogBuilder(cfg).Header().Partial(0, "A").Bytes()

	st, ok, err := FindLastCompleteRound(bytes.NewReader(data))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, -1, st.LastRound)
	assert.NotNil(t, st.Config)
	assert.Empty(t, st.Agents)
}

func TestFindLastCompleteRound_Finished(t *testing.T) {
	cfg := testutil.Config()
	data := testutil.NewLogBuilder(cfg).
		Header().
		Round(0, 1, "A", "B").
		Event(core.NewExperimentEndEvent(core.Summary{ExperimentID: cfg.ExperimentID, RoundsCompleted: 1})).
		Bytes()

	st, ok, err := FindLastCompleteRound(bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, ok)
	require.True(t, st.Finished())
	assert.Equal(t, 1, st.Summary.RoundsCompleted)
}

func TestFindLastCompleteRound_KeepsInitialStance(t *testing.T) {
	cfg := testutil.Config()
	b := testutil.NewLogBuilder(cfg).Header()
	b.Event(core.NewAgentResponseEvent(0, core.AgentResponse{AgentID: "agent_000", Stance: "A", InitialStance: "B", ParseSuccess: true}))
	b.Event(core.NewRoundEndEvent(0, core.Distribution{"A": 1}, 0))
	b.Responses(1, "A")
	b.Event(core.NewRoundEndEvent(1, core.Distribution{"A": 1}, 0))

	st, _, err := FindLastCompleteRound(bytes.NewReader(b.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, core.Stance("B"), st.Agents["agent_000"].InitialStance)
}

func TestTruncateToRound(t *testing.T) {
	cfg := testutil.Config()
	complete := testutil.NewLogBuilder(cfg).Header().Round(0, 1, "A", "B").Round(1, 0, "A", "A")
	want := complete.Bytes()
	log := complete.Partial(2, "B").Raw(`{"type":"round_e`).MemoryLog()

	require.NoError(t, TruncateToRound(log, 1))
	assert.Equal(t, want, log.Bytes())

	// idempotent
	require.NoError(t, TruncateToRound(log, 1))
	assert.Equal(t, want, log.Bytes())
}

func TestTruncateToRound_MissingRoundLeavesLogUntouched(t *testing.T) {
	cfg := testutil.Config()
	data := testutil.NewLogBuilder(cfg).Header().Round(0, 1, "A", "B").Partial(1, "A").Bytes()

	path := filepath.Join(t.TempDir(), "exp.jsonl")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	log, err := eventlog.OpenFile(path)
	require.NoError(t, err)
	defer log.Close()

	err = TruncateToRound(log, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRecovery))
	var re *core.RecoveryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.Round)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk, "log must be byte-identical")
}

type failingLog struct{ *eventlog.MemoryLog }

func (failingLog) Replace([]byte) error { return errors.New("disk full") }

func TestTruncateToRound_ReplaceFailure(t *testing.T) {
	cfg := testutil.Config()
	data := testutil.NewLogBuilder(cfg).Header().Round(0, 1, "A").Partial(1, "A").Bytes()
	log := failingLog{eventlog.NewMemoryLogFrom(data)}

	err := TruncateToRound(log, 0)
	require.ErrorIs(t, err, core.ErrRecovery)
	assert.Equal(t, data, log.Bytes())
}

func TestTruncateToHeader(t *testing.T) {
	cfg := testutil.Config()
	header := testutil.NewLogBuilder(cfg).Header()
	want := header.Bytes()
	log := header.Partial(0, "A", "B").MemoryLog()

	require.NoError(t, TruncateToHeader(log))
	assert.Equal(t, want, log.Bytes())

	empty := eventlog.NewMemoryLog()
	assert.ErrorIs(t, TruncateToHeader(empty), core.ErrRecovery)
}

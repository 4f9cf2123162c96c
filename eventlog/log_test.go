package eventlog

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/core"
)

func readAll(t *testing.T, l Log) []core.Event {
	t.Helper()
	rc, err := l.Reader()
	require.NoError(t, err)
	defer rc.Close()
	var out []core.Event
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		var e core.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("logs", "exp-1.jsonl"), Path("logs", "exp-1"))
}

func TestLogs_AppendReplace(t *testing.T) {
	fl, err := OpenFile(filepath.Join(t.TempDir(), "runs", "exp.jsonl"))
	require.NoError(t, err)
	defer fl.Close()

	for name, l := range map[string]Log{"file": fl, "memory": NewMemoryLog()} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.Append(core.NewExperimentStartEvent("exp")))
			require.NoError(t, l.Append(core.NewRoundStartEvent(0, core.Distribution{})))
			events := readAll(t, l)
			require.Len(t, events, 2)
			assert.Equal(t, core.EventExperimentStart, events[0].Type)

			line, err := Marshal(core.NewExperimentStartEvent("fresh"))
			require.NoError(t, err)
			require.NoError(t, l.Replace(line))
			require.NoError(t, l.Append(core.NewRoundEndEvent(0, core.Distribution{"A": 1}, 0)))

			events = readAll(t, l)
			require.Len(t, events, 2)
			assert.Equal(t, "fresh", events[0].ExperimentID)
			assert.Equal(t, core.EventRoundEnd, events[1].Type)
		})
	}
}

func TestFileLog_ConcurrentAppendsStayLineAtomic(t *testing.T) {
	l, err := OpenFile(filepath.Join(t.TempDir(), "exp.jsonl"))
	require.NoError(t, err)
	defer l.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(core.NewAgentResponseEvent(1, core.AgentResponse{AgentID: "agent", Rationale: string(make([]byte, 512))})))
		}(i)
	}
	wg.Wait()
	assert.Len(t, readAll(t, l), 50)
}

func TestFileLog_ReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.jsonl")
	l, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(core.NewExperimentStartEvent("exp")))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Append(core.NewExperimentStartEvent("exp")), ErrClosed)

	l, err = OpenFile(path)
	require.NoError(t, err)
	defer l.Close()
	require.NoError(t, l.Append(core.NewConfigEvent(core.ExperimentConfig{ExperimentID: "exp"})))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(raw))
}

func TestMemoryLog_ReaderIsSnapshot(t *testing.T) {
	m := NewMemoryLog()
	require.NoError(t, m.Append(core.NewExperimentStartEvent("exp")))
	rc, err := m.Reader()
	require.NoError(t, err)
	require.NoError(t, m.Append(core.NewExperimentStartEvent("exp")))
	data, _ := io.ReadAll(rc)
	assert.Equal(t, 1, countLines(data))
}

func countLines(b []byte) int {
	n := 0
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}

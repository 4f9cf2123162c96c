package testutil

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/eventlog"
)

// LogBuilder assembles JSONL event logs for replay tests.
// Example:
//
//	data := NewLogBuilder(cfg).Header().Round(0, 0.97, "A", "B", "A").Partial(1, "B").Bytes()
//
// Rounds assign stances to agent_000, agent_001, ... in order.
type LogBuilder struct {
	cfg core.ExperimentConfig
	buf bytes.Buffer
}

// NewLogBuilder creates a builder for cfg.
func NewLogBuilder(cfg core.ExperimentConfig) *LogBuilder { return &LogBuilder{cfg: cfg} }

// Event appends an arbitrary event (chainable).
func (b *LogBuilder) Event(e core.Event) *LogBuilder {
	line, err := eventlog.Marshal(e)
	if err != nil {
		panic(err)
	}
	b.buf.Write(line)
	return b
}

// Raw appends raw bytes, e.g. a torn line (chainable).
func (b *LogBuilder) Raw(s string) *LogBuilder {
	b.buf.WriteString(s)
	return b
}

// Header appends experiment_start and config (chainable).
func (b *LogBuilder) Header() *LogBuilder {
	return b.Event(core.NewExperimentStartEvent(b.cfg.ExperimentID)).Event(core.NewConfigEvent(b.cfg))
}

// Responses appends one parsed agent_response per stance (chainable).
func (b *LogBuilder) Responses(round int, stances ...core.Stance) *LogBuilder {
	for i, s := range stances {
		reason := core.ReasonNoChange
		if round == 0 {
			reason = core.ReasonInitial
		}
		b.Event(core.NewAgentResponseEvent(round, core.AgentResponse{
			AgentID:      fmt.Sprintf("agent_%03d", i),
			Stance:       s,
			Rationale:    fmt.Sprintf("r%d-%d", round, i),
			ChangeReason: reason,
			ParseSuccess: true,
			Attempts:     1,
		}))
	}
	return b
}

// Round appends a complete round: round_start, responses and round_end
// with the given entropy (chainable).
func (b *LogBuilder) Round(round int, entropy float64, stances ...core.Stance) *LogBuilder {
	b.Event(core.NewRoundStartEvent(round, core.Distribution{}))
	b.Responses(round, stances...)
	d := core.Distribution{}
	for _, s := range stances {
		d[s]++
	}
	return b.Event(core.NewRoundEndEvent(round, d, entropy))
}

// Partial appends a round that never reached round_end (chainable).
func (b *LogBuilder) Partial(round int, stances ...core.Stance) *LogBuilder {
	b.Event(core.NewRoundStartEvent(round, core.Distribution{}))
	return b.Responses(round, stances...)
}

// Bytes returns a copy of the log contents.
func (b *LogBuilder) Bytes() []byte { return bytes.Clone(b.buf.Bytes()) }

// MemoryLog returns the contents as an in-memory log.
func (b *LogBuilder) MemoryLog() *eventlog.MemoryLog { return eventlog.NewMemoryLogFrom(b.buf.Bytes()) }

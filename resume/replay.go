package resume

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agoramesh/core"
)

// AgentState is the last recorded position of one agent.
type AgentState struct {
	Stance        core.Stance
	Rationale     string
	InitialStance core.Stance
}

// State is everything derivable from the complete rounds of a log.
type State struct {
	// ExperimentID comes from the experiment_start or config event.
	ExperimentID string
	// Config is the recorded run configuration, nil if the log never got that far.
	Config *core.ExperimentConfig
	// LastRound is the highest round with a round_end event, -1 if none.
	LastRound int
	// Agents holds each agent's stance as of LastRound.
	Agents map[string]AgentState
	// EntropyHistory lists the round_end entropies of rounds 0..LastRound.
	EntropyHistory []float64
	// Tally counts the responses of complete rounds.
	Tally *core.Tally
	// Summary is set when the log already holds an experiment_end event.
	Summary *core.Summary
}

// Finished reports whether the run already wrote its experiment_end event.
func (s State) Finished() bool { return s.Summary != nil }

type roundRecord struct {
	responses map[string]core.AgentResponse
	ended     bool
	entropy   float64
}

// FindLastCompleteRound replays a log. The boolean is false when no round has
// completed yet; State still carries the header (config) in that case.
// Malformed lines are skipped: they can only be a torn tail write.
func FindLastCompleteRound(r io.Reader) (State, bool, error) {
	st := State{LastRound: -1, Agents: map[string]AgentState{}, Tally: core.NewTally()}
	rounds := map[int]*roundRecord{}
	record := func(n int) *roundRecord {
		rec, ok := rounds[n]
		if !ok {
			rec = &roundRecord{responses: map[string]core.AgentResponse{}}
			rounds[n] = rec
		}
		return rec
	}

	err := eachLine(r, func(_ int64, line []byte) error {
		if !gjson.ValidBytes(line) {
			return nil
		}
		res := gjson.ParseBytes(line)
		switch core.EventType(res.Get("type").String()) {
		case core.EventExperimentStart:
			if id := res.Get("experiment_id").String(); id != "" {
				st.ExperimentID = id
			}
		case core.EventConfig:
			var e core.Event
			if err := json.Unmarshal(line, &e); err != nil || e.Config == nil {
				return nil
			}
			st.Config = e.Config
			if st.ExperimentID == "" {
				st.ExperimentID = e.Config.ExperimentID
			}
		case core.EventAgentResponse:
			round := res.Get("round")
			if !round.Exists() {
				return nil
			}
			var e core.Event
			if err := json.Unmarshal(line, &e); err != nil || e.AgentID == "" {
				return nil
			}
			record(int(round.Int())).responses[e.AgentID] = e.Response()
		case core.EventRoundEnd:
			round := res.Get("round")
			if !round.Exists() {
				return nil
			}
			rec := record(int(round.Int()))
			rec.ended = true
			rec.entropy = res.Get("entropy").Float()
		case core.EventExperimentEnd:
			var e core.Event
			if err := json.Unmarshal(line, &e); err != nil || e.Summary == nil {
				return nil
			}
			st.Summary = e.Summary
		case core.EventRoundStart:
		}
		return nil
	})
	if err != nil {
		return st, false, err
	}

	ordered := make([]int, 0, len(rounds))
	for n, rec := range rounds {
		if rec.ended {
			ordered = append(ordered, n)
		}
	}
	slices.Sort(ordered)
	if len(ordered) == 0 {
		return st, false, nil
	}

	for _, n := range ordered {
		rec := rounds[n]
		st.EntropyHistory = append(st.EntropyHistory, rec.entropy)
		ids := make([]string, 0, len(rec.responses))
		for id := range rec.responses {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			resp := rec.responses[id]
			st.Tally.Add(resp)
			prev := st.Agents[id]
			next := AgentState{Stance: resp.Stance, Rationale: resp.Rationale, InitialStance: resp.InitialStance}
			if !next.InitialStance.IsSet() {
				next.InitialStance = prev.InitialStance
			}
			st.Agents[id] = next
		}
	}
	st.LastRound = ordered[len(ordered)-1]
	return st, true, nil
}

// eachLine calls fn with every newline-terminated line and the byte offset
// just past it. A trailing fragment without newline is passed with offset -1.
func eachLine(r io.Reader, fn func(end int64, line []byte) error) error {
	br := bufio.NewReader(r)
	var offset int64
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			end := int64(-1)
			if line[len(line)-1] == '\n' {
				offset += int64(len(line))
				end = offset
			}
			if ferr := fn(end, bytes.TrimSpace(line)); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read log: %w", err)
		}
	}
}

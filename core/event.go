package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags every log line.
type EventType string

const (
	EventExperimentStart EventType = "experiment_start"
	EventConfig          EventType = "config"
	EventRoundStart      EventType = "round_start"
	EventAgentResponse   EventType = "agent_response"
	EventRoundEnd        EventType = "round_end"
	EventExperimentEnd   EventType = "experiment_end"
)

// Event is the atomic unit of a run's log. After emission it should be treated
// as immutable. The struct is a superset of every event type's fields; optional
// fields are pointers so that zero values (round 0, entropy 0, changed=false)
// survive serialization while absent fields stay absent.
//
// The full ordered event sequence is the system of record: agent stances,
// round data and entropy history are all derivable by replaying it.
type Event struct {
	ID           string            `json:"id"`
	Type         EventType         `json:"type"`
	Timestamp    time.Time         `json:"timestamp"`
	ExperimentID string            `json:"experiment_id,omitempty"`
	Config       *ExperimentConfig `json:"config,omitempty"`

	Round   *int          `json:"round,omitempty"`
	Stats   *Distribution `json:"stats,omitempty"`
	Entropy *float64      `json:"entropy,omitempty"`

	AgentID         string       `json:"agent_id,omitempty"`
	Persona         string       `json:"persona,omitempty"`
	Stance          Stance       `json:"stance,omitempty"`
	Rationale       string       `json:"rationale,omitempty"`
	Changed         *bool        `json:"changed,omitempty"`
	ChangeReason    ChangeReason `json:"change_reason,omitempty"`
	ParseSuccess    *bool        `json:"parse_success,omitempty"`
	ReportedChanged *bool        `json:"reported_changed,omitempty"`
	InitialStance   Stance       `json:"initial_stance,omitempty"`
	Peers           []string     `json:"peers,omitempty"`
	Attempts        int          `json:"attempts,omitempty"`
	RawResponse     string       `json:"raw_response,omitempty"`
	Error           string       `json:"error,omitempty"`

	Summary *Summary `json:"summary,omitempty"`
}

// AgentResponse is the resolved outcome of one agent's turn in one round.
type AgentResponse struct {
	AgentID         string
	Persona         string
	Stance          Stance
	Rationale       string
	Changed         bool
	ChangeReason    ChangeReason
	ParseSuccess    bool
	ReportedChanged *bool
	InitialStance   Stance
	Peers           []string
	Attempts        int
	RawResponse     string
	Error           string
}

// NewEvent creates a bare event of the given type stamped with the current UTC time.
// Prefer the typed constructors below.
func NewEvent(t EventType) Event {
	return Event{
		ID:        NewID(),
		Type:      t,
		Timestamp: time.Now().UTC(),
	}
}

// NewExperimentStartEvent opens a run's log.
func NewExperimentStartEvent(experimentID string) Event {
	e := NewEvent(EventExperimentStart)
	e.ExperimentID = experimentID
	return e
}

// NewConfigEvent records the immutable run configuration.
func NewConfigEvent(cfg ExperimentConfig) Event {
	e := NewEvent(EventConfig)
	e.ExperimentID = cfg.ExperimentID
	e.Config = &cfg
	return e
}

// NewRoundStartEvent records the pre-round distribution.
func NewRoundStartEvent(round int, stats Distribution) Event {
	e := NewEvent(EventRoundStart)
	e.Round = &round
	s := stats.Clone()
	e.Stats = &s
	return e
}

// NewAgentResponseEvent records a resolved agent turn.
func NewAgentResponseEvent(round int, r AgentResponse) Event {
	e := NewEvent(EventAgentResponse)
	e.Round = &round
	e.AgentID = r.AgentID
	e.Persona = r.Persona
	e.Stance = r.Stance
	e.Rationale = r.Rationale
	e.Changed = Bool(r.Changed)
	e.ChangeReason = r.ChangeReason
	e.ParseSuccess = Bool(r.ParseSuccess)
	e.ReportedChanged = r.ReportedChanged
	e.InitialStance = r.InitialStance
	e.Peers = append([]string(nil), r.Peers...)
	e.Attempts = r.Attempts
	e.RawResponse = r.RawResponse
	e.Error = r.Error
	return e
}

// NewRoundEndEvent marks a round as complete. Its persistence is what makes
// the round resumable.
func NewRoundEndEvent(round int, stats Distribution, entropy float64) Event {
	e := NewEvent(EventRoundEnd)
	e.Round = &round
	s := stats.Clone()
	e.Stats = &s
	e.Entropy = &entropy
	return e
}

// NewExperimentEndEvent closes a run's log with its summary.
func NewExperimentEndEvent(summary Summary) Event {
	e := NewEvent(EventExperimentEnd)
	e.ExperimentID = summary.ExperimentID
	e.Summary = &summary
	return e
}

// RoundNumber returns the round an event belongs to.
func (e Event) RoundNumber() (int, bool) {
	if e.Round == nil {
		return 0, false
	}
	return *e.Round, true
}

// Response reconstructs the AgentResponse carried by an agent_response event.
func (e Event) Response() AgentResponse {
	r := AgentResponse{
		AgentID:         e.AgentID,
		Persona:         e.Persona,
		Stance:          e.Stance,
		Rationale:       e.Rationale,
		ChangeReason:    e.ChangeReason,
		ReportedChanged: e.ReportedChanged,
		InitialStance:   e.InitialStance,
		Peers:           append([]string(nil), e.Peers...),
		Attempts:        e.Attempts,
		RawResponse:     e.RawResponse,
		Error:           e.Error,
	}
	if e.Changed != nil {
		r.Changed = *e.Changed
	}
	if e.ParseSuccess != nil {
		r.ParseSuccess = *e.ParseSuccess
	}
	return r
}

// NewID generates a new unique identifier for events and runs.
func NewID() string { return uuid.NewString() }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

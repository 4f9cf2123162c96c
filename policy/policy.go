// Package policy turns a condition and an agent's situation into the prompt
// the agent reasons over.
//
// The policy only varies the context supplied to the model. The response
// contract is the same four fields (stance, rationale, changed,
// change_reason) under every condition and in every round.
package policy

import (
	"fmt"
	"text/template"

	"github.com/hupe1980/agoramesh/agent"
	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/internal/util"
)

// Decision is the structured object every agent must return.
type Decision struct {
	Stance       string `json:"stance" description:"one of the scenario's stances"`
	Rationale    string `json:"rationale" description:"reasoning in 2-3 sentences"`
	Changed      bool   `json:"changed" description:"whether the stance differs from the previous round"`
	ChangeReason string `json:"change_reason" description:"why the stance changed, or NO_CHANGE"`
}

// Self describes the invoking agent.
type Self struct {
	ID             string
	Persona        core.Persona
	PriorStance    core.Stance
	PriorRationale string
	// InitialStance is the enforced or suggested round-0 stance, if any.
	InitialStance core.Stance
}

// Input is everything the policy may consult for one agent turn.
type Input struct {
	Condition core.Condition
	Mode      core.InitialStanceMode
	Round     int
	Scenario  core.Scenario
	Self      Self
	// Peers is the sampled snapshot, already id-sorted. Ignored when the
	// condition shows no peers.
	Peers []agent.Snapshot
	// Stats is the distribution at round start. Ignored unless the
	// condition shows stats.
	Stats core.Distribution
}

// Context is the rendered prompt plus the response schema.
type Context struct {
	System string
	Prompt string
	Schema map[string]any
}

// Policy renders prompts. It is immutable and safe for concurrent use.
type Policy struct {
	tmpl *template.Template
}

// New compiles the prompt templates.
func New() (*Policy, error) {
	tmpl, err := util.ParseTemplate("policy", promptTemplates)
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	return &Policy{tmpl: tmpl}, nil
}

// Must is like New but panics on a template error.
func Must() *Policy {
	p, err := New()
	if err != nil {
		panic(err)
	}
	return p
}

type systemData struct {
	Persona core.Persona
	Stances []string
}

type roundData struct {
	Input
	PrevRound      int
	UsesPeers      bool
	ShowsIdentity  bool
	ShowsRationale bool
	ShowsStats     bool
	StatsText      string
}

// Build renders the context for one agent turn.
func (p *Policy) Build(in Input) (Context, error) {
	if err := in.Condition.Validate(); err != nil {
		return Context{}, err
	}
	if err := in.Mode.Validate(); err != nil {
		return Context{}, err
	}
	if in.Round < 0 {
		return Context{}, fmt.Errorf("invalid round %d", in.Round)
	}

	system, err := p.render("system", systemData{Persona: in.Self.Persona, Stances: in.Scenario.StanceStrings()})
	if err != nil {
		return Context{}, err
	}

	data := roundData{
		Input:          in,
		PrevRound:      in.Round - 1,
		UsesPeers:      in.Condition.UsesPeers(),
		ShowsIdentity:  in.Condition.ShowsIdentity(),
		ShowsRationale: in.Condition.ShowsRationale(),
		ShowsStats:     in.Condition.ShowsStats(),
		StatsText:      statsText(in.Stats),
	}
	if !data.UsesPeers {
		data.Peers = nil
	}
	prompt, err := p.render("round", data)
	if err != nil {
		return Context{}, err
	}

	return Context{
		System: system,
		Prompt: prompt,
		Schema: ResponseSchema(in.Scenario),
	}, nil
}

func (p *Policy) render(name string, data any) (string, error) {
	tmpl := p.tmpl.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("prompt template %q not defined", name)
	}
	out, err := util.ExecuteTemplate(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return out, nil
}

func statsText(d core.Distribution) string {
	if d.Total() == 0 {
		return "no positions recorded yet"
	}
	return d.String()
}

// ResponseSchema returns the JSON schema of Decision with the scenario's
// stances and the change reasons as enums.
func ResponseSchema(sc core.Scenario) map[string]any {
	schema := util.SchemaFor(Decision{})
	util.Restrict(schema, "stance", sc.StanceStrings())
	reasons := make([]string, len(core.ChangeReasons))
	for i, r := range core.ChangeReasons {
		reasons[i] = string(r)
	}
	util.Restrict(schema, "change_reason", reasons)
	return schema
}

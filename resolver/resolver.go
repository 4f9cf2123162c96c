// Package resolver turns an invocation result into the agent's recorded
// response for a round.
//
// The resolver never trusts the model's own claim about whether it changed
// its mind: changed is derived by comparing the returned stance with the
// prior one. Unusable answers fall back to the prior stance so the
// population distribution always sums correctly.
package resolver

import (
	"fmt"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/internal/util"
	"github.com/hupe1980/agoramesh/invoker"
	"github.com/hupe1980/agoramesh/policy"
)

// Input is one agent's turn outcome.
type Input struct {
	Round         int
	AgentID       string
	Persona       string
	PriorStance   core.Stance
	PriorRation   string
	InitialStance core.Stance
	Peers         []string
	Result        invoker.Result
}

// Resolver validates parsed objects against the scenario's response schema.
type Resolver struct {
	scenario core.Scenario
	schema   map[string]any
}

// New creates a resolver for a scenario.
func New(sc core.Scenario) *Resolver {
	return &Resolver{scenario: sc, schema: validationSchema(sc)}
}

// validationSchema relaxes the response schema the model is asked to follow:
// only the stance is mandatory, and change_reason is left open so unknown
// reasons can be coerced instead of discarding the whole answer.
func validationSchema(sc core.Scenario) map[string]any {
	schema := policy.ResponseSchema(sc)
	schema["required"] = []string{"stance"}
	if props, ok := schema["properties"].(map[string]any); ok {
		if reason, ok := props["change_reason"].(map[string]any); ok {
			delete(reason, "enum")
		}
	}
	return schema
}

// Resolve applies the fallback and change-detection rules.
func (r *Resolver) Resolve(in Input) core.AgentResponse {
	resp := core.AgentResponse{
		AgentID:       in.AgentID,
		Persona:       in.Persona,
		InitialStance: in.InitialStance,
		Peers:         append([]string(nil), in.Peers...),
		Attempts:      in.Result.Attempts,
		RawResponse:   in.Result.Raw,
	}

	d, err := r.decode(in.Result)
	if err != nil {
		return fallback(resp, in, err)
	}

	resp.ParseSuccess = true
	resp.Stance = d.stance
	resp.Rationale = d.rationale
	resp.ReportedChanged = d.reportedChanged

	switch {
	case in.Round == 0, !in.PriorStance.IsSet():
		resp.Changed = false
		resp.ChangeReason = core.ReasonInitial
	case d.stance == in.PriorStance:
		resp.Changed = false
		resp.ChangeReason = core.ReasonNoChange
	default:
		resp.Changed = true
		resp.ChangeReason = changeReason(d.reason)
	}
	return resp
}

// fallback keeps the prior stance. With no prior stance (a failed first turn)
// the agent stays unset and is not counted.
func fallback(resp core.AgentResponse, in Input, cause error) core.AgentResponse {
	resp.ParseSuccess = false
	resp.Stance = in.PriorStance
	resp.Rationale = in.PriorRation
	resp.Changed = false
	resp.ChangeReason = core.ReasonNoChange
	if cause != nil {
		resp.Error = cause.Error()
	}
	return resp
}

// changeReason constrains a self-reported reason for an actual change.
func changeReason(raw string) core.ChangeReason {
	if reason, ok := core.ParseChangeReason(raw); ok && reason.IsChange() {
		return reason
	}
	return core.ReasonUncertainty
}

type decision struct {
	stance          core.Stance
	rationale       string
	reason          string
	reportedChanged *bool
}

func (r *Resolver) decode(res invoker.Result) (decision, error) {
	switch res.Outcome {
	case invoker.OutcomeParsed:
	case invoker.OutcomeUnparsed, invoker.OutcomeTransportFailure:
		if res.Err != nil {
			return decision{}, res.Err
		}
		return decision{}, fmt.Errorf("%w: %s", core.ErrParseFailure, res.Outcome)
	default:
		return decision{}, fmt.Errorf("%w: unknown outcome %d", core.ErrParseFailure, res.Outcome)
	}

	obj := normalize(res.Parsed)
	if err := util.Validate(obj, r.schema); err != nil {
		return decision{}, fmt.Errorf("%w: %v", core.ErrParseFailure, err)
	}

	raw, _ := obj["stance"].(string)
	stance := core.Stance(raw)
	if !r.scenario.Has(stance) {
		return decision{}, fmt.Errorf("%w: stance %q is not valid for %s", core.ErrParseFailure, stance, r.scenario.ID)
	}
	d := decision{stance: stance}
	d.reason, _ = obj["change_reason"].(string)
	d.rationale, _ = obj["rationale"].(string)
	if changed, ok := obj["changed"].(bool); ok {
		d.reportedChanged = &changed
	}
	return d, nil
}

// normalize copies the parsed object, canonicalising the stance and reason
// spelling and lifting the nested decision_meta shape into the flat fields.
func normalize(parsed map[string]any) map[string]any {
	obj := make(map[string]any, len(parsed)+2)
	for k, v := range parsed {
		obj[k] = v
	}
	if meta, ok := parsed["decision_meta"].(map[string]any); ok {
		if _, exists := obj["changed"]; !exists {
			if v, ok := meta["changed"]; ok {
				obj["changed"] = v
			}
		}
		if _, exists := obj["change_reason"]; !exists {
			for _, key := range []string{"change_reason_forced", "change_reason"} {
				if v, ok := meta[key]; ok {
					obj["change_reason"] = v
					break
				}
			}
		}
	}
	if s, ok := obj["stance"].(string); ok {
		obj["stance"] = string(core.NormalizeStance(s))
	}
	if s, ok := obj["change_reason"].(string); ok {
		if reason, known := core.ParseChangeReason(s); known {
			obj["change_reason"] = string(reason)
		}
	}
	return obj
}

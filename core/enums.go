package core

import (
	"fmt"
	"strings"
)

// Stance is one of the two discrete positions a scenario defines. The zero
// value represents an agent that has not (yet) committed to a position.
type Stance string

// NoStance marks an agent whose stance is unset.
const NoStance Stance = ""

// IsSet reports whether the stance holds a value.
func (s Stance) IsSet() bool { return s != NoStance }

// NormalizeStance canonicalises free-form model output ("pull lever",
// "Pull-Lever") into the upper snake case used by scenario stance sets.
func NormalizeStance(raw string) Stance {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`*")
	s = strings.ToUpper(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return Stance(s)
}

// Condition selects how much peer information agents see each round.
type Condition string

const (
	// ConditionIndependent shows no peer information at all.
	ConditionIndependent Condition = "C0_INDEPENDENT"
	// ConditionFull shows peer identity, stance, rationale and aggregate stats.
	ConditionFull Condition = "C1_FULL"
	// ConditionStanceOnly shows peer identity, stance and stats but no rationale.
	ConditionStanceOnly Condition = "C2_STANCE_ONLY"
	// ConditionAnonBandwagon shows stance, rationale and stats without identity.
	ConditionAnonBandwagon Condition = "C3_ANON_BANDWAGON"
	// ConditionPureInfo shows stance and rationale only.
	ConditionPureInfo Condition = "C4_PURE_INFO"
)

// Conditions lists every condition in canonical order.
var Conditions = []Condition{
	ConditionIndependent,
	ConditionFull,
	ConditionStanceOnly,
	ConditionAnonBandwagon,
	ConditionPureInfo,
}

// ParseCondition accepts either the full condition name or its short form
// (C0..C4), case-insensitively.
func ParseCondition(s string) (Condition, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, c := range Conditions {
		if v == string(c) || v == c.Short() {
			return c, nil
		}
	}
	return "", &ConfigError{Field: "condition", Message: fmt.Sprintf("unknown condition %q", s)}
}

// Short returns the two character code (C0..C4).
func (c Condition) Short() string {
	if len(c) < 2 {
		return string(c)
	}
	return string(c[:2])
}

// Validate returns a ConfigError for values outside the closed set.
func (c Condition) Validate() error {
	switch c {
	case ConditionIndependent, ConditionFull, ConditionStanceOnly, ConditionAnonBandwagon, ConditionPureInfo:
		return nil
	default:
		return &ConfigError{Field: "condition", Message: fmt.Sprintf("unknown condition %q", string(c))}
	}
}

// UsesPeers reports whether agents see any peer material after round 0.
func (c Condition) UsesPeers() bool {
	switch c {
	case ConditionIndependent:
		return false
	case ConditionFull, ConditionStanceOnly, ConditionAnonBandwagon, ConditionPureInfo:
		return true
	default:
		return false
	}
}

// ShowsIdentity reports whether peer ids and persona names are disclosed.
func (c Condition) ShowsIdentity() bool {
	switch c {
	case ConditionFull, ConditionStanceOnly:
		return true
	case ConditionIndependent, ConditionAnonBandwagon, ConditionPureInfo:
		return false
	default:
		return false
	}
}

// ShowsRationale reports whether peer rationales are disclosed.
func (c Condition) ShowsRationale() bool {
	switch c {
	case ConditionFull, ConditionAnonBandwagon, ConditionPureInfo:
		return true
	case ConditionIndependent, ConditionStanceOnly:
		return false
	default:
		return false
	}
}

// ShowsStats reports whether the aggregate stance distribution is disclosed.
func (c Condition) ShowsStats() bool {
	switch c {
	case ConditionFull, ConditionStanceOnly, ConditionAnonBandwagon:
		return true
	case ConditionIndependent, ConditionPureInfo:
		return false
	default:
		return false
	}
}

// ChangeReason classifies why an agent altered (or kept) its stance.
type ChangeReason string

const (
	// ReasonInformational means a peer argument was found logically convincing.
	ReasonInformational ChangeReason = "INFORMATIONAL"
	// ReasonNormative means the change followed majority, authority or social pressure.
	ReasonNormative ChangeReason = "NORMATIVE"
	// ReasonUncertainty means the agent was unsure and peer consensus tipped it.
	ReasonUncertainty ChangeReason = "UNCERTAINTY"
	// ReasonNoChange means the position was maintained.
	ReasonNoChange ChangeReason = "NO_CHANGE"
	// ReasonInitial marks the first stance an agent takes.
	ReasonInitial ChangeReason = "INITIAL"
)

// ChangeReasons lists every reason in canonical order.
var ChangeReasons = []ChangeReason{
	ReasonInformational,
	ReasonNormative,
	ReasonUncertainty,
	ReasonNoChange,
	ReasonInitial,
}

// ParseChangeReason maps raw model output onto the closed set. The boolean is
// false for unrecognised values.
func ParseChangeReason(s string) (ChangeReason, bool) {
	v := ChangeReason(NormalizeStance(s))
	switch v {
	case ReasonInformational, ReasonNormative, ReasonUncertainty, ReasonNoChange, ReasonInitial:
		return v, true
	default:
		return "", false
	}
}

// IsChange reports whether the reason explains an actual stance change.
func (r ChangeReason) IsChange() bool {
	switch r {
	case ReasonInformational, ReasonNormative, ReasonUncertainty:
		return true
	case ReasonNoChange, ReasonInitial:
		return false
	default:
		return false
	}
}

// InitialStanceMode controls how round 0 seeds each agent's position.
type InitialStanceMode string

const (
	// InitialNone lets the agent pick freely from its framework.
	InitialNone InitialStanceMode = "NONE"
	// InitialEnforced tells the agent outright which stance it holds.
	InitialEnforced InitialStanceMode = "ENFORCED"
	// InitialSoft invites the agent to explore a suggested stance.
	InitialSoft InitialStanceMode = "SOFT"
)

// ParseInitialStanceMode parses a mode name case-insensitively.
func ParseInitialStanceMode(s string) (InitialStanceMode, error) {
	m := InitialStanceMode(strings.ToUpper(strings.TrimSpace(s)))
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// Validate returns a ConfigError for values outside the closed set.
func (m InitialStanceMode) Validate() error {
	switch m {
	case InitialNone, InitialEnforced, InitialSoft:
		return nil
	default:
		return &ConfigError{Field: "initial_stance_mode", Message: fmt.Sprintf("unknown mode %q", string(m))}
	}
}

// AssignsStance reports whether the mode draws a per-agent initial stance.
func (m InitialStanceMode) AssignsStance() bool {
	switch m {
	case InitialEnforced, InitialSoft:
		return true
	case InitialNone:
		return false
	default:
		return false
	}
}

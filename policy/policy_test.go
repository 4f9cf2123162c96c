package policy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agoramesh/agent"
	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/internal/util"
)

var trolley = core.Scenario{
	ID:          "S1_TROLLEY",
	Description: "A runaway trolley is heading toward 5 people.",
	Stances:     [2]core.Stance{"PULL_LEVER", "DO_NOT_PULL"},
}

var peers = []agent.Snapshot{
	{ID: "agent_001", Persona: "Prof. Kant", Stance: "DO_NOT_PULL", Rationale: "Killing is wrong."},
	{ID: "agent_004", Persona: "Dr. Singer", Stance: "PULL_LEVER", Rationale: "Five outweigh one."},
}

func baseInput(c core.Condition, round int) Input {
	return Input{
		Condition: c,
		Mode:      core.InitialNone,
		Round:     round,
		Scenario:  trolley,
		Self: Self{
			ID:             "agent_000",
			Persona:        core.Persona{ID: "utilitarian", Name: "Dr. Bentham", Description: "A utilitarian philosopher."},
			PriorStance:    "PULL_LEVER",
			PriorRationale: "Save the many.",
		},
		Peers: peers,
		Stats: core.Distribution{"PULL_LEVER": 3, "DO_NOT_PULL": 2},
	}
}

func TestBuild_System(t *testing.T) {
	ctx, err := Must().Build(baseInput(core.ConditionFull, 1))
	require.NoError(t, err)
	assert.Contains(t, ctx.System, "You are Dr. Bentham, A utilitarian philosopher.")
	assert.Contains(t, ctx.System, "Valid stances for this scenario: PULL_LEVER, DO_NOT_PULL")
}

func TestBuild_ConditionTable(t *testing.T) {
	tests := []struct {
		condition                  core.Condition
		identity, rationale, stats bool
	}{
		{core.ConditionFull, true, true, true},
		{core.ConditionStanceOnly, true, false, true},
		{core.ConditionAnonBandwagon, false, true, true},
		{core.ConditionPureInfo, false, true, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.condition), func(t *testing.T) {
			ctx, err := Must().Build(baseInput(tt.condition, 2))
			require.NoError(t, err)
			p := ctx.Prompt

			assert.Contains(t, p, "### Peer Opinions (Sample of 2):")
			assert.Contains(t, p, "- Stance: DO_NOT_PULL")
			assert.Equal(t, tt.identity, strings.Contains(p, "agent_001 (Prof. Kant)"))
			assert.Equal(t, !tt.identity, strings.Contains(p, "Anonymous Peer 2"))
			assert.Equal(t, tt.rationale, strings.Contains(p, "Five outweigh one."))
			assert.Equal(t, tt.stats, strings.Contains(p, "Overall Distribution: DO_NOT_PULL: 2 | PULL_LEVER: 3"))
			assert.Contains(t, p, "### Your Previous Position (Round 1)")
			assert.NotContains(t, p, "deliberating independently")
		})
	}
}

func TestBuild_IndependentHasNoPeerMaterial(t *testing.T) {
	ctx, err := Must().Build(baseInput(core.ConditionIndependent, 3))
	require.NoError(t, err)
	assert.Contains(t, ctx.Prompt, "generally maintain your previous position")
	assert.Contains(t, ctx.Prompt, "You previously chose: **PULL_LEVER**")
	for _, leak := range []string{"agent_001", "Prof. Kant", "Killing is wrong.", "Overall Distribution", "Peer Opinions"} {
		assert.NotContains(t, ctx.Prompt, leak)
	}
}

func TestBuild_RoundZeroModes(t *testing.T) {
	in := baseInput(core.ConditionFull, 0)
	in.Self.PriorStance = core.NoStance
	in.Self.InitialStance = "DO_NOT_PULL"

	ctx, err := Must().Build(in)
	require.NoError(t, err)
	assert.Contains(t, ctx.Prompt, "establish your initial position")
	assert.NotContains(t, ctx.Prompt, "DO_NOT_PULL")
	assert.NotContains(t, ctx.Prompt, "Peer Opinions", "round 0 never shows peers")

	in.Mode = core.InitialEnforced
	ctx, err = Must().Build(in)
	require.NoError(t, err)
	assert.Contains(t, ctx.Prompt, "**Your Initial Position:** DO_NOT_PULL")

	in.Mode = core.InitialSoft
	ctx, err = Must().Build(in)
	require.NoError(t, err)
	assert.Contains(t, ctx.Prompt, "**Suggested Starting Perspective:** DO_NOT_PULL")
	assert.Contains(t, ctx.Prompt, "explore arguments supporting the above perspective (DO_NOT_PULL)")
}

func TestBuild_NoPriorStanceAndNoPeers(t *testing.T) {
	in := baseInput(core.ConditionAnonBandwagon, 1)
	in.Self.PriorStance = core.NoStance
	in.Peers = []agent.Snapshot{{ID: "agent_001"}}
	in.Stats = core.Distribution{}

	ctx, err := Must().Build(in)
	require.NoError(t, err)
	assert.NotContains(t, ctx.Prompt, "Your Previous Position")
	assert.Contains(t, ctx.Prompt, "- Stance: UNDECIDED")
	assert.Contains(t, ctx.Prompt, "no positions recorded yet")

	in.Peers = nil
	ctx, err = Must().Build(in)
	require.NoError(t, err)
	assert.Contains(t, ctx.Prompt, "No peer opinions are available this round.")
}

func TestBuild_SchemaIsConstant(t *testing.T) {
	var schemas []map[string]any
	for _, c := range core.Conditions {
		for round := 0; round < 2; round++ {
			ctx, err := Must().Build(baseInput(c, round))
			require.NoError(t, err)
			schemas = append(schemas, ctx.Schema)
		}
	}
	for _, s := range schemas[1:] {
		assert.Equal(t, schemas[0], s)
	}

	ok := map[string]any{"stance": "PULL_LEVER", "rationale": "r", "changed": false, "change_reason": "NO_CHANGE"}
	assert.NoError(t, util.Validate(ok, schemas[0]))
	ok["stance"] = "MAYBE"
	assert.Error(t, util.Validate(ok, schemas[0]))
}

func TestBuild_InvalidInput(t *testing.T) {
	in := baseInput("C9", 1)
	_, err := Must().Build(in)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	in = baseInput(core.ConditionFull, -1)
	_, err = Must().Build(in)
	assert.Error(t, err)
}

package policy

// Prompt templates. All blocks live in one template set so the round prompt
// can compose them with {{template}}.
const promptTemplates = `
{{define "system"}}You are {{.Persona.Name}}, {{.Persona.Description}}

You are participating in a multi-agent discussion about an ethical dilemma.
Your task is to carefully consider the scenario and provide your stance along with your reasoning.

IMPORTANT: You MUST respond in the following JSON format ONLY. Do not include any text outside the JSON:
{
    "stance": "<YOUR_STANCE>",
    "rationale": "<Your reasoning in 2-3 sentences>",
    "changed": <true/false>,
    "change_reason": "<INFORMATIONAL|NORMATIVE|UNCERTAINTY|NO_CHANGE>"
}

Valid stances for this scenario: {{join ", " .Stances}}
{{end}}

{{define "round"}}## Scenario
{{.Scenario.Description}}

## Round {{.Round}}
{{if eq .Round 0}}
{{template "first" .}}{{else}}{{if .Self.PriorStance}}
{{template "previous" .}}{{end}}
{{template "peers" .}}{{end}}
Based on your philosophical perspective and the information above, what is your stance?
Remember to respond ONLY in the required JSON format.
{{end}}

{{define "first"}}### Initial Deliberation
This is the first round.{{if eq .Mode "ENFORCED"}}

**Your Initial Position:** {{.Self.InitialStance}}

You hold this position based on your initial intuition and ethical framework.
You may maintain or change this position after considering the scenario and (if applicable) peer arguments.
{{else if eq .Mode "SOFT"}}

**Suggested Starting Perspective:** {{.Self.InitialStance}}

For the purpose of balanced discussion, we invite you to first explore arguments supporting the above perspective ({{.Self.InitialStance}}) from within your ethical framework.

You are free to maintain this perspective or change your position in subsequent rounds based on your own reasoning or peer input.
{{else}} Please establish your initial position based on your ethical framework.
{{end}}{{end}}

{{define "previous"}}### Your Previous Position (Round {{.PrevRound}})
You previously chose: **{{.Self.PriorStance}}**
Your reasoning was: "{{.Self.PriorRationale}}"

You may maintain or change your position based on new information or reflection.
If you change your stance, classify why in the change_reason field.
{{end}}

{{define "peers"}}{{if not .UsesPeers}}You are deliberating independently without access to other participants' views.
Please provide your stance based solely on your own ethical reasoning.
Note: Without new information from peers, you should generally maintain your previous position unless you have reconsidered your own reasoning.
{{else}}{{if .ShowsStats}}### Current Discussion Summary
Overall Distribution: {{.StatsText}}

{{end}}### Peer Opinions (Sample of {{len .Peers}}):
{{range $i, $p := .Peers}}{{if $.ShowsIdentity}}**{{$p.ID}} ({{$p.Persona}})**:{{else}}**Anonymous Peer {{inc $i}}**:{{end}}
- Stance: {{if $p.Stance}}{{$p.Stance}}{{else}}UNDECIDED{{end}}
{{if $.ShowsRationale}}- Rationale: {{$p.Rationale}}
{{end}}
{{else}}No peer opinions are available this round.
{{end}}{{end}}{{end}}
`

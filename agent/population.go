package agent

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/hupe1980/agoramesh/core"
)

// Agent is one simulated participant. Its persona is fixed; stance and
// rationale are the only mutable parts and are updated by the engine after
// each round barrier.
type Agent struct {
	ID            string
	Persona       core.Persona
	Stance        core.Stance
	Rationale     string
	InitialStance core.Stance
}

// ID formats the canonical agent id for index i.
func ID(i int) string { return fmt.Sprintf("agent_%03d", i) }

// Population owns the agents of a run. Agents are kept in id order, which is
// also the fixed dispatch and apply order.
type Population struct {
	mu     sync.RWMutex
	agents []*Agent
	byID   map[string]*Agent
}

// NewPopulation creates n agents with personas assigned round-robin.
func NewPopulation(n int, personas []core.Persona) (*Population, error) {
	if n < 1 {
		return nil, &core.ConfigError{Field: "num_agents", Message: fmt.Sprintf("must be >= 1, got %d", n)}
	}
	if len(personas) == 0 {
		return nil, &core.ConfigError{Field: "personas", Message: "at least one persona is required"}
	}
	p := &Population{
		agents: make([]*Agent, 0, n),
		byID:   make(map[string]*Agent, n),
	}
	for i := 0; i < n; i++ {
		a := &Agent{ID: ID(i), Persona: personas[i%len(personas)]}
		p.agents = append(p.agents, a)
		p.byID[a.ID] = a
	}
	return p, nil
}

// Len returns the population size.
func (p *Population) Len() int { return len(p.agents) }

// Agents returns the agents in id order. Callers must not mutate them
// outside the engine's apply phase.
func (p *Population) Agents() []*Agent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Agent(nil), p.agents...)
}

// Get looks up an agent by id.
func (p *Population) Get(id string) (*Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.byID[id]
	return a, ok
}

// AssignInitialStances draws each agent's suggested initial stance. The
// first scenario stance is chosen with probability equal to the scenario
// bias. With a seed the draw is keyed on (seed, agent id).
func (p *Population) AssignInitialStances(sc core.Scenario, seed *int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bias := sc.Bias()
	for _, a := range p.agents {
		var u float64
		if seed != nil {
			u = NewRand(*seed, a.ID).Float64()
		} else {
			u = rand.Float64()
		}
		if u < bias {
			a.InitialStance = sc.Stances[0]
		} else {
			a.InitialStance = sc.Stances[1]
		}
	}
}

// Snapshot freezes the current population view, in id order.
func (p *Population) Snapshot() []Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Snapshot, len(p.agents))
	for i, a := range p.agents {
		out[i] = Snapshot{ID: a.ID, Persona: a.Persona.Name, Stance: a.Stance, Rationale: a.Rationale}
	}
	return out
}

// Distribution counts agents per stance. Unset stances are not counted.
func (p *Population) Distribution() core.Distribution {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d := core.Distribution{}
	for _, a := range p.agents {
		if a.Stance.IsSet() {
			d[a.Stance]++
		}
	}
	return d
}

// Apply commits a resolved response. Unparsed responses leave the agent
// untouched.
func (p *Population) Apply(r core.AgentResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.byID[r.AgentID]
	if !ok {
		return fmt.Errorf("unknown agent %q", r.AgentID)
	}
	if !r.ParseSuccess {
		return nil
	}
	a.Stance = r.Stance
	a.Rationale = r.Rationale
	return nil
}

// Restore sets stance and rationale for a recovered agent. A non-empty
// initial stance overrides the drawn one, which matters for unseeded runs.
func (p *Population) Restore(id string, stance core.Stance, rationale string, initial core.Stance) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.byID[id]
	if !ok {
		return fmt.Errorf("unknown agent %q", id)
	}
	a.Stance = stance
	a.Rationale = rationale
	if initial.IsSet() {
		a.InitialStance = initial
	}
	return nil
}

package agent

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/hupe1980/agoramesh/core"
)

// Snapshot is the frozen view of an agent that peers may observe. Snapshots
// are taken at round start so every agent in a round sees the same state.
type Snapshot struct {
	ID        string
	Persona   string
	Stance    core.Stance
	Rationale string
}

// Sampler draws peer sets uniformly without replacement.
//
// With a run seed every draw is keyed on (seed, round, agent id), so a resumed
// run reproduces the same peer sets as an uninterrupted one. Without a seed
// the process-wide source is used and runs are not reproducible.
type Sampler struct {
	seed *int64
}

// NewSampler creates a sampler. A nil seed selects the process-wide source.
func NewSampler(seed *int64) *Sampler {
	return &Sampler{seed: seed}
}

// Sample returns min(k, len(pool)-1) snapshots drawn from pool without selfID,
// sorted by agent id. The pool is not modified.
func (s *Sampler) Sample(pool []Snapshot, selfID string, k, round int) []Snapshot {
	if k <= 0 {
		return nil
	}
	candidates := make([]Snapshot, 0, len(pool))
	for _, p := range pool {
		if p.ID != selfID {
			candidates = append(candidates, p)
		}
	}
	sortByID(candidates)

	n := min(k, len(candidates))
	if n == 0 {
		return nil
	}

	intN := rand.IntN
	if s.seed != nil {
		intN = NewRand(*s.seed, round, selfID).IntN
	}

	// partial Fisher-Yates over the id-sorted candidates
	for i := 0; i < n; i++ {
		j := i + intN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	out := candidates[:n:n]
	sortByID(out)
	return out
}

func sortByID(s []Snapshot) {
	slices.SortFunc(s, func(a, b Snapshot) int { return strings.Compare(a.ID, b.ID) })
}

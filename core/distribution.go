package core

import (
	"fmt"
	"sort"
	"strings"
)

// Distribution maps each stance to the number of agents holding it. Agents
// without a stance are never counted.
type Distribution map[Stance]int

// Total returns the number of counted agents.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// Clone returns an independent copy.
func (d Distribution) Clone() Distribution {
	cp := make(Distribution, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp
}

// Stances returns the stances with a nonzero count, sorted.
func (d Distribution) Stances() []Stance {
	out := make([]Stance, 0, len(d))
	for s, c := range d {
		if c > 0 {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String renders "A: 3 | B: 2" sorted by stance.
func (d Distribution) String() string {
	keys := make([]string, 0, len(d))
	for s := range d {
		keys = append(keys, string(s))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, d[Stance(k)]))
	}
	return strings.Join(parts, " | ")
}

// Package entropy measures how concentrated a population's stances are.
//
// Entropy is Shannon entropy in bits over the stance distribution. For a
// binary scenario it ranges from 0 (unanimity) to 1 (even split). A run is
// considered collapsed once entropy stays at or below a threshold for a number of
// consecutive rounds.
package entropy

import (
	"math"

	"github.com/hupe1980/agoramesh/core"
)

const (
	// DefaultThreshold corresponds to roughly a 90/10 split in a binary scenario.
	DefaultThreshold = core.DefaultCollapseThreshold
	// DefaultWindow is the number of consecutive low-entropy rounds required.
	DefaultWindow = core.DefaultCollapseWindow
)

// Entropy returns H = -sum(p * log2 p) over the stances with a nonzero
// count. An empty distribution has entropy 0.
func Entropy(d core.Distribution) float64 {
	total := d.Total()
	if total == 0 {
		return 0
	}
	h := 0.0
	for _, c := range d {
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	// -0 and tiny negative rounding artefacts for unanimous populations
	if h < 0 {
		return 0
	}
	return h
}

// MaxEntropy returns the upper bound log2(n) for n distinct stances.
func MaxEntropy(n int) float64 {
	if n <= 1 {
		return 0
	}
	return math.Log2(float64(n))
}

// TimeToCollapse returns the first index i such that history[i..i+window-1]
// are all at or below threshold. The boolean is false when no such run
// exists. A window < 1 is treated as 1.
func TimeToCollapse(history []float64, threshold float64, window int) (int, bool) {
	if window < 1 {
		window = 1
	}
	run := 0
	for i, h := range history {
		if h <= threshold {
			run++
			if run == window {
				return i - window + 1, true
			}
			continue
		}
		run = 0
	}
	return 0, false
}

package entropy

import (
	"sync"

	"github.com/hupe1980/agoramesh/core"
)

// Tracker accumulates the per-round entropy history of one run.
type Tracker struct {
	mu        sync.RWMutex
	history   []float64
	threshold float64
	window    int
}

// NewTracker creates a tracker. A negative threshold or a window below one
// falls back to the defaults. A threshold of 0 collapses only on unanimity.
func NewTracker(threshold float64, window int) *Tracker {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	if window < 1 {
		window = DefaultWindow
	}
	return &Tracker{threshold: threshold, window: window}
}

// Restore replaces the history, used when a run resumes from its log.
func (t *Tracker) Restore(history []float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append([]float64(nil), history...)
}

// Record computes and appends the entropy of d, returning it.
func (t *Tracker) Record(d core.Distribution) float64 {
	h := Entropy(d)
	t.mu.Lock()
	t.history = append(t.history, h)
	t.mu.Unlock()
	return h
}

// History returns a copy of the recorded values.
func (t *Tracker) History() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]float64(nil), t.history...)
}

// Collapse reports the time to collapse over the current history.
func (t *Tracker) Collapse() (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TimeToCollapse(t.history, t.threshold, t.window)
}

// Collapsed reports whether the history already satisfies the collapse rule.
func (t *Tracker) Collapsed() bool {
	_, ok := t.Collapse()
	return ok
}

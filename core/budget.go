package core

import (
	"fmt"
	"sync/atomic"
)

// CallBudget caps the number of model calls a single run may spend. A zero
// cap means unlimited. Safe for concurrent use.
type CallBudget struct {
	limit int64
	spent atomic.Int64
}

// NewCallBudget returns a budget of limit calls.
func NewCallBudget(limit int) *CallBudget {
	return &CallBudget{limit: int64(limit)}
}

// Spend takes one call from the budget. Once the cap is passed every further
// call fails with ErrModelCallLimit.
func (b *CallBudget) Spend() error {
	n := b.spent.Add(1)
	if b.limit > 0 && n > b.limit {
		return fmt.Errorf("%w: %d", ErrModelCallLimit, b.limit)
	}
	return nil
}

// Spent reports how many calls were attempted, including refused ones.
func (b *CallBudget) Spent() int {
	return int(b.spent.Load())
}

// Left reports the calls still available, or -1 when unlimited.
func (b *CallBudget) Left() int {
	if b.limit == 0 {
		return -1
	}
	return max(int(b.limit-b.spent.Load()), 0)
}

package engine

import (
	"context"
	"sync"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/logging"
)

// CallbackType names a point in the round lifecycle where hooks run.
type CallbackType string

const (
	// CallbackBeforeRound runs after round_start is persisted, before any
	// agent is dispatched.
	CallbackBeforeRound CallbackType = "before_round"

	// CallbackAfterResponse runs once per agent after the barrier, in agent
	// order, as the response is applied to the population.
	CallbackAfterResponse CallbackType = "after_response"

	// CallbackAfterRound runs after round_end is persisted.
	CallbackAfterRound CallbackType = "after_round"

	// CallbackOnError runs when the run aborts.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries what a hook may inspect. Fields not relevant to
// the callback type are zero.
type CallbackContext struct {
	ExperimentID string
	Condition    core.Condition
	Round        int
	Response     *core.AgentResponse
	Distribution core.Distribution
	Entropy      float64
	Err          error
	CallbackType CallbackType
}

// Callback is a lifecycle hook. Hooks run synchronously on the engine's
// goroutine; an error aborts the run, leaving the log resumable.
type Callback interface {
	Type() CallbackType
	Execute(ctx context.Context, cbCtx *CallbackContext) error
}

// FunctionCallback adapts a function into a Callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cbCtx *CallbackContext) error
}

// NewFunctionCallback creates a function-based callback.
func NewFunctionCallback(t CallbackType, fn func(ctx context.Context, cbCtx *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: t, fn: fn}
}

// Type implements Callback.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute implements Callback.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *CallbackContext) error {
	return c.fn(ctx, cbCtx)
}

// CallbackManager runs registered hooks in registration order, stopping at
// the first error.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// RegisterCallback adds a hook.
func (cm *CallbackManager) RegisterCallback(cb Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks[cb.Type()] = append(cm.callbacks[cb.Type()], cb)
}

// ExecuteCallbacks runs every hook registered for t.
func (cm *CallbackManager) ExecuteCallbacks(ctx context.Context, t CallbackType, cbCtx *CallbackContext) error {
	if cm == nil {
		return nil
	}
	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[t]...)
	cm.mu.RUnlock()

	cbCtx.CallbackType = t
	for _, cb := range callbacks {
		if err := cb.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}
	return nil
}

// LoggingCallback writes a debug line per hook invocation.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a logging hook for t. A nil logger discards.
func NewLoggingCallback(t CallbackType, logger logging.Logger) *LoggingCallback {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LoggingCallback{callbackType: t, logger: logger}
}

// Type implements Callback.
func (c *LoggingCallback) Type() CallbackType { return c.callbackType }

// Execute implements Callback.
func (c *LoggingCallback) Execute(_ context.Context, cbCtx *CallbackContext) error {
	args := []any{"hook", string(c.callbackType), "round", cbCtx.Round}
	if cbCtx.Response != nil {
		args = append(args, "agent_id", cbCtx.Response.AgentID, "stance", string(cbCtx.Response.Stance))
	}
	if cbCtx.Distribution != nil {
		args = append(args, "distribution", cbCtx.Distribution.String())
	}
	if cbCtx.Err != nil {
		args = append(args, "error", cbCtx.Err.Error())
	}
	c.logger.Debug("Engine hook", args...)
	return nil
}

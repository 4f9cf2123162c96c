package core

import "context"

// Runner defines the minimal contract for driving experiments asynchronously.
//
// Semantics & Guarantees:
//   - Event Ordering: events are delivered in log order.
//   - Channel Lifecycle: the events channel is closed after the run completes
//     (success, error, or cancellation). The error channel carries at most
//     one terminal error then closes (buffered size 1).
//   - Cancellation: context cancellation or Cancel(runID) stops the run between
//     agent invocations; the log stays resumable.
type Runner interface {
	// Start begins a fresh experiment.
	Start(ctx context.Context, cfg ExperimentConfig) (string, <-chan Event, <-chan error, error)

	// Resume continues an interrupted experiment from its log.
	Resume(ctx context.Context, experimentID string) (string, <-chan Event, <-chan error, error)

	// Cancel requests cooperative termination of an in-flight run. Cancelling
	// an unknown or already finished run returns an error.
	Cancel(runID string) error
}

// Package core provides the foundational domain types and contracts used by
// agoramesh. It defines the core abstractions for:
//
//   - Stances, conditions, change reasons and initial stance modes (closed enums)
//   - Scenarios and personas (immutable experiment inputs)
//   - ExperimentConfig (the immutable per-run configuration)
//   - Events (the atomic, append-only records that make up a run's log)
//   - Summary (the end-of-run artifact consumed by reporting tools)
//   - The error taxonomy shared by every component
//
// The package intentionally keeps implementation concerns (persistence, model
// backends, orchestration) out of scope, exposing small types and interfaces
// that the engine, resume and eventlog packages build upon.
package core

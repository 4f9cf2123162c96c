// Package artifact contains implementations of core.ArtifactStore, the
// whole-document store used for run summaries.
//
// FileStore writes next to the event logs (<dir>/<experiment>_<name>) and
// replaces documents atomically. InMemoryStore backs tests and dry runs.
// Callers should depend on the core interface rather than concrete types.
package artifact

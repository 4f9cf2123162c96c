// Package eventlog persists a run's events as an append-only JSON Lines log.
//
// The log is the system of record: a round counts as complete only once its
// round_end line is durable, and everything else (agent state, entropy
// history, summaries) can be rebuilt by replaying it. Each experiment has one
// writer; appends are serialized by the log itself so concurrent workers can
// share it.
package eventlog

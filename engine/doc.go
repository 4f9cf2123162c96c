// Package engine runs deliberation experiments.
//
// An Engine drives the round state machine of one experiment at a time per
// call: it seeds the population, and for every round it persists
// round_start, dispatches every agent's turn (context assembly, model
// invocation, resolution), waits for all of them, applies the results in
// agent order, computes the entropy of the new distribution and persists
// round_end. After the last round it writes experiment_end and the summary
// artifact.
//
// # Concurrency
//
// Rounds are strictly sequential. Within a round, agent turns may run
// concurrently (Options.Concurrency) because each turn only reads the
// population snapshot taken at round start. Log appends are serialized and
// the population is only mutated after the barrier, so results never depend
// on scheduling.
//
// # Recovery
//
// A round counts as done once its round_end line is durable. Cancelling the
// context stops the run between agent turns and leaves a well-formed log;
// Resume replays it, truncates the unfinished tail and continues with the
// next round, reproducing the peer samples an uninterrupted seeded run would
// have drawn.
//
// # Hooks
//
// A CallbackManager can observe the lifecycle (before_round,
// after_response, after_round, on_error). A hook error aborts the run.
package engine

// Package runner is the asynchronous front of the deliberation engine.
//
// A Runner starts or resumes experiments in the background and hands back
// a run ID together with two channels:
//   - events carries every persisted event in log order and is closed when
//     the run ends, however it ends.
//   - errors carries at most one terminal error and is then closed.
//
// Cancel(runID) stops a run between agent turns. Because the engine only
// treats rounds with a persisted round_end as complete, a cancelled run can
// later be continued with Resume.
package runner

// Package resume rebuilds run state from an event log and trims a log back
// to its last complete round.
//
// A round is complete once its round_end line is on disk. Everything after
// the last complete round (a partially written round left by a crash or an
// interrupt) is discarded before the run continues, so a resumed run never
// mixes responses from two attempts at the same round.
package resume

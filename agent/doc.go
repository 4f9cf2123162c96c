// Package agent holds the simulated participants of a deliberation.
//
// A Population owns the agents of one run: their fixed personas, their
// current stance and rationale, and the initial stance assigned at start.
// The engine snapshots it at the start of each round and applies resolved
// responses only after every agent of the round has answered.
//
// Sampler chooses which peers an agent sees. Every random choice in the
// package is keyed on StableSeed so that a resumed run draws the same
// peers and initial stances as an uninterrupted one.
package agent

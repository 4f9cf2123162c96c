// Package agoramesh provides a high-level façade over the deliberation
// engine: LLM-backed persona agents debate a binary dilemma for several
// rounds while the distribution of their stances, its entropy and every
// stance change are recorded in an append-only event log.
//
// Most applications interact with this package by:
//  1. Creating an AgoraMesh via New() with a model backend
//  2. Starting experiments asynchronously (Run) or synchronously (RunSync)
//  3. Continuing interrupted experiments with Resume or ResumeSync
package agoramesh

import (
	"context"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/engine"
	"github.com/hupe1980/agoramesh/logging"
	"github.com/hupe1980/agoramesh/model"
	"github.com/hupe1980/agoramesh/runner"
)

// Options configures the AgoraMesh instance.
type Options struct {
	// Engine configuration (backend, concurrency, storage, hooks)
	EngineOptions []func(o *engine.Options)

	// EventBufferSize sets the channel buffer size for streamed events.
	EventBufferSize int

	// Logger (defaults to a discarding logger if nil)
	Logger *logging.RunLogger
}

// AgoraMesh is the high-level façade aggregating the runner and engine.
type AgoraMesh struct {
	runner *runner.Runner
}

// New creates a new AgoraMesh answering agent turns with m.
func New(m model.Model, optFns ...func(o *Options)) *AgoraMesh {
	opts := Options{
		EventBufferSize: 100,
		Logger:          logging.NewDiscardLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	engineOpts := append([]func(o *engine.Options){func(o *engine.Options) {
		o.Model = m
		o.Logger = opts.Logger
	}}, opts.EngineOptions...)

	r := runner.New(func(o *runner.Options) {
		o.EngineOptions = engineOpts
		o.EventBufferSize = opts.EventBufferSize
		o.Logger = opts.Logger
	})
	return &AgoraMesh{runner: r}
}

// Run starts an experiment asynchronously returning event & error channels.
func (m *AgoraMesh) Run(ctx context.Context, cfg core.ExperimentConfig) (string, <-chan core.Event, <-chan error, error) {
	return m.runner.Start(ctx, cfg)
}

// Resume continues an interrupted experiment asynchronously.
func (m *AgoraMesh) Resume(ctx context.Context, experimentID string) (string, <-chan core.Event, <-chan error, error) {
	return m.runner.Resume(ctx, experimentID)
}

// Cancel stops an in-flight run.
func (m *AgoraMesh) Cancel(runID string) error { return m.runner.Cancel(runID) }

// RunSync runs an experiment to completion and returns its summary along
// with every event it emitted.
func (m *AgoraMesh) RunSync(ctx context.Context, cfg core.ExperimentConfig) (*core.Summary, []core.Event, error) {
	_, eventsCh, errorsCh, err := m.runner.Start(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return collect(eventsCh, errorsCh)
}

// ResumeSync resumes an experiment and waits for it to finish. Events from
// rounds completed before the interruption are not repeated.
func (m *AgoraMesh) ResumeSync(ctx context.Context, experimentID string) (*core.Summary, []core.Event, error) {
	_, eventsCh, errorsCh, err := m.runner.Resume(ctx, experimentID)
	if err != nil {
		return nil, nil, err
	}
	return collect(eventsCh, errorsCh)
}

// collect drains both channels. The run's context derives from the caller's,
// so cancellation ends the run and closes the channels; waiting for that
// guarantees nothing is still writing the log when collect returns.
func collect(eventsCh <-chan core.Event, errorsCh <-chan error) (*core.Summary, []core.Event, error) {
	var (
		events  []core.Event
		summary *core.Summary
	)
	for event := range eventsCh {
		if event.Type == core.EventExperimentEnd {
			summary = event.Summary
		}
		events = append(events, event)
	}
	if err := <-errorsCh; err != nil {
		return summary, events, err
	}
	return summary, events, nil
}

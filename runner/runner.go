package runner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/engine"
	"github.com/hupe1980/agoramesh/logging"
)

// ErrRunNotFound is returned by Cancel for unknown or finished runs.
var ErrRunNotFound = errors.New("run not found")

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// EngineOptions configure the engine built for every run. The runner
	// installs its own Observer.
	EngineOptions []func(o *engine.Options)
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// Logging services.
	Logger *logging.RunLogger
}

// Runner drives experiments asynchronously: every run gets its own engine,
// streams persisted events over a channel and can be cancelled by ID.
// Public methods are safe for concurrent use.
type Runner struct {
	engineOpts      []func(o *engine.Options)
	eventBufferSize int
	logger          *logging.RunLogger

	activeRuns map[string]context.CancelFunc
	mu         sync.RWMutex
}

var _ core.Runner = (*Runner)(nil)

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		EventBufferSize: 100,
		Logger:          logging.NewDiscardLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}

	return &Runner{
		engineOpts:      opts.EngineOptions,
		eventBufferSize: opts.EventBufferSize,
		logger:          opts.Logger.WithComponent("runner"),
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// Start validates cfg and begins a fresh experiment in the background.
// Configuration errors are returned synchronously.
func (r *Runner) Start(ctx context.Context, cfg core.ExperimentConfig) (string, <-chan core.Event, <-chan error, error) {
	cfg = cfg.WithDefaults()
	if cfg.ExperimentID == "" {
		cfg.ExperimentID = core.NewID()
	}
	if err := cfg.Validate(); err != nil {
		return "", nil, nil, err
	}

	runID, eventsCh, errorsCh := r.launch(ctx, cfg.ExperimentID, func(ctx context.Context, e *engine.Engine) error {
		_, err := e.Run(ctx, cfg)
		return err
	})
	return runID, eventsCh, errorsCh, nil
}

// Resume continues an experiment from its log in the background.
func (r *Runner) Resume(ctx context.Context, experimentID string) (string, <-chan core.Event, <-chan error, error) {
	if experimentID == "" {
		return "", nil, nil, &core.ConfigError{Field: "experiment_id", Message: "required to resume"}
	}

	runID, eventsCh, errorsCh := r.launch(ctx, experimentID, func(ctx context.Context, e *engine.Engine) error {
		_, err := e.Resume(ctx, experimentID)
		return err
	})
	return runID, eventsCh, errorsCh, nil
}

// Cancel cancels a running run by ID. The run stops between agent turns
// and its log stays resumable.
func (r *Runner) Cancel(runID string) error {
	r.mu.Lock()
	cancel, exists := r.activeRuns[runID]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	cancel()

	return nil
}

// Active reports the number of runs in flight.
func (r *Runner) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activeRuns)
}

func (r *Runner) launch(
	ctx context.Context,
	experimentID string,
	exec func(ctx context.Context, e *engine.Engine) error,
) (string, <-chan core.Event, <-chan error) {
	runID := core.NewID()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.activeRuns[runID] = cancel
	r.mu.Unlock()

	// Events are still persisted after the consumer goes away; only
	// delivery stops.
	observe := func(o *engine.Options) {
		o.Observer = func(ev core.Event) {
			select {
			case <-ctx.Done():
			case eventsCh <- ev:
			}
		}
	}
	e := engine.New(append(slices.Clone(r.engineOpts), observe)...)

	logger := r.logger.WithExperiment(experimentID).WithContext("run_id", runID)
	logger.Debug("Run started")

	go func() {
		defer func() {
			cancel()
			r.mu.Lock()
			delete(r.activeRuns, runID)
			r.mu.Unlock()
			close(eventsCh)
			close(errorsCh)
		}()

		if err := exec(ctx, e); err != nil {
			logger.Debug("Run failed", "error", err.Error())
			errorsCh <- fmt.Errorf("experiment %s: %w", experimentID, err)
			return
		}
		logger.Debug("Run finished")
	}()

	return runID, eventsCh, errorsCh
}

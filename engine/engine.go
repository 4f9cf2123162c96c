package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/hupe1980/agoramesh/agent"
	"github.com/hupe1980/agoramesh/artifact"
	"github.com/hupe1980/agoramesh/config"
	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/entropy"
	"github.com/hupe1980/agoramesh/eventlog"
	"github.com/hupe1980/agoramesh/invoker"
	"github.com/hupe1980/agoramesh/logging"
	"github.com/hupe1980/agoramesh/model"
	"github.com/hupe1980/agoramesh/policy"
	"github.com/hupe1980/agoramesh/resolver"
	"github.com/hupe1980/agoramesh/resume"
	"github.com/hupe1980/agoramesh/telemetry"
)

var tracer = otel.Tracer("agoramesh.engine")

// DefaultLogDir is where logs and summaries go when no directory is configured.
const DefaultLogDir = "logs"

// ErrNoModel is returned when neither a model nor an invoker is configured.
var ErrNoModel = errors.New("engine: no model configured")

// Options configures an Engine.
type Options struct {
	// Model answers agent turns. Ignored when Invoker is set.
	Model model.Model

	// Invoker replaces the per-run invoker built from Model and the retry
	// options below.
	Invoker *invoker.Invoker

	Backoff invoker.Backoff
	Timeout time.Duration

	// MaxModelCalls caps backend calls per run, retries included. Zero
	// means unlimited.
	MaxModelCalls int

	RateLimiter *rate.Limiter

	// Concurrency bounds in-flight agent turns within a round.
	Concurrency int

	// LogDir holds <experiment_id>.jsonl logs and, unless ArtifactStore is
	// set, the summary artifacts.
	LogDir string

	// OpenLog opens or creates an experiment's log. Defaults to a FileLog
	// under LogDir.
	OpenLog func(experimentID string) (eventlog.Log, error)

	ArtifactStore core.ArtifactStore

	// Personas is the default roster for configs that carry none. The
	// roster actually used is recorded in the config event.
	Personas []core.Persona

	Policy *policy.Policy

	// CheckReady runs the backend readiness check before a run starts.
	CheckReady bool

	Logger    *logging.RunLogger
	Metrics   *telemetry.Metrics
	Callbacks *CallbackManager

	// Observer receives every persisted event, in log order. Resuming a
	// finished run re-delivers its stored experiment_end.
	Observer func(core.Event)
}

// Engine runs and resumes experiments. It is safe for concurrent use; each
// call owns its own population and log.
type Engine struct {
	opts Options
}

// New creates an engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Backoff:     invoker.DefaultBackoff,
		Timeout:     invoker.DefaultTimeout,
		Concurrency: 1,
		LogDir:      DefaultLogDir,
		Logger:      logging.NewDiscardLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	if opts.Policy == nil {
		opts.Policy = policy.Must()
	}
	if len(opts.Personas) == 0 {
		opts.Personas = config.DefaultPersonas()
	}
	if opts.OpenLog == nil {
		dir := opts.LogDir
		opts.OpenLog = func(id string) (eventlog.Log, error) {
			return eventlog.OpenFile(eventlog.Path(dir, id))
		}
	}
	opts.Logger = opts.Logger.WithComponent("engine")
	return &Engine{opts: opts}
}

// Check verifies the backend is reachable and serves the configured model.
func (e *Engine) Check(ctx context.Context) error {
	inv, err := e.newInvoker(e.opts.Logger)
	if err != nil {
		return err
	}
	return inv.Ready(ctx)
}

// Run starts a fresh experiment and blocks until it finishes, fails or ctx
// is cancelled. An empty ExperimentID is filled in. Configuration errors
// are returned before anything is written.
func (e *Engine) Run(ctx context.Context, cfg core.ExperimentConfig) (*core.Summary, error) {
	cfg = cfg.WithDefaults()
	if cfg.ExperimentID == "" {
		cfg.ExperimentID = core.NewID()
	}
	if len(cfg.Personas) == 0 {
		cfg.Personas = slices.Clone(e.opts.Personas)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pop, err := e.population(cfg)
	if err != nil {
		return nil, err
	}
	logger := e.opts.Logger.WithExperiment(cfg.ExperimentID)
	inv, err := e.prepare(ctx, logger)
	if err != nil {
		return nil, err
	}

	log, err := e.opts.OpenLog(cfg.ExperimentID)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer log.Close()

	empty, err := isEmpty(log)
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, fmt.Errorf("experiment %s already has a log; resume it instead", cfg.ExperimentID)
	}

	r := e.newRun(cfg, log, inv, pop, logger)
	if err := r.append(core.NewExperimentStartEvent(cfg.ExperimentID)); err != nil {
		return nil, err
	}
	if err := r.append(core.NewConfigEvent(cfg)); err != nil {
		return nil, err
	}
	logger.Info("Experiment started",
		"condition", string(cfg.Condition),
		"scenario", cfg.Scenario.ID,
		"agents", cfg.NumAgents,
		"rounds", cfg.NumRounds,
	)
	return r.execute(ctx, 0)
}

// Resume continues an experiment from its log. A log that already holds
// experiment_end is reported as finished without running anything.
func (e *Engine) Resume(ctx context.Context, experimentID string) (*core.Summary, error) {
	log, err := e.opts.OpenLog(experimentID)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer log.Close()

	st, complete, err := replay(log)
	if err != nil {
		return nil, &core.RecoveryError{Round: -1, Reason: err.Error()}
	}
	if st.Config == nil {
		return nil, &core.RecoveryError{Round: -1, Reason: "log has no config event"}
	}
	cfg := st.Config.WithDefaults()
	if len(cfg.Personas) == 0 {
		cfg.Personas = slices.Clone(e.opts.Personas)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := e.opts.Logger.WithExperiment(cfg.ExperimentID)

	if st.Finished() {
		logger.Info("Experiment already finished", "rounds", st.Summary.RoundsCompleted)
		if err := e.saveSummary(*st.Summary); err != nil {
			return nil, err
		}
		// Nothing is appended; observers still get the terminal event.
		if obs := e.opts.Observer; obs != nil {
			obs(core.NewExperimentEndEvent(*st.Summary))
		}
		return st.Summary, nil
	}

	pop, err := e.population(cfg)
	if err != nil {
		return nil, err
	}
	inv, err := e.prepare(ctx, logger)
	if err != nil {
		return nil, err
	}
	r := e.newRun(cfg, log, inv, pop, logger)

	start := 0
	if complete {
		if err := resume.TruncateToRound(log, st.LastRound); err != nil {
			return nil, err
		}
		for id, a := range st.Agents {
			if err := pop.Restore(id, a.Stance, a.Rationale, a.InitialStance); err != nil {
				return nil, &core.RecoveryError{Round: st.LastRound, Reason: err.Error()}
			}
		}
		r.tracker.Restore(st.EntropyHistory)
		r.tally = st.Tally
		start = st.LastRound + 1
	} else if err := resume.TruncateToHeader(log); err != nil {
		return nil, err
	}

	logger.Info("Experiment resumed", "from_round", start, "rounds", cfg.NumRounds)
	return r.execute(ctx, start)
}

func (e *Engine) population(cfg core.ExperimentConfig) (*agent.Population, error) {
	pop, err := agent.NewPopulation(cfg.NumAgents, cfg.Personas)
	if err != nil {
		return nil, err
	}
	if cfg.InitialStanceMode.AssignsStance() {
		pop.AssignInitialStances(cfg.Scenario, cfg.Seed)
	}
	return pop, nil
}

func (e *Engine) prepare(ctx context.Context, logger *logging.RunLogger) (*invoker.Invoker, error) {
	inv, err := e.newInvoker(logger)
	if err != nil {
		return nil, err
	}
	if e.opts.CheckReady {
		if err := inv.Ready(ctx); err != nil {
			return nil, fmt.Errorf("backend not ready: %w", err)
		}
	}
	return inv, nil
}

func (e *Engine) newInvoker(logger *logging.RunLogger) (*invoker.Invoker, error) {
	if e.opts.Invoker != nil {
		return e.opts.Invoker, nil
	}
	if e.opts.Model == nil {
		return nil, ErrNoModel
	}
	var budget *core.CallBudget
	if e.opts.MaxModelCalls > 0 {
		budget = core.NewCallBudget(e.opts.MaxModelCalls)
	}
	return invoker.New(e.opts.Model, func(o *invoker.Options) {
		o.Backoff = e.opts.Backoff
		o.Timeout = e.opts.Timeout
		o.Budget = budget
		o.RateLimiter = e.opts.RateLimiter
		o.Logger = logger
		o.Metrics = e.opts.Metrics
	}), nil
}

func (e *Engine) saveSummary(s core.Summary) error {
	store := e.opts.ArtifactStore
	if store == nil {
		fs, err := artifact.NewFileStore(e.opts.LogDir)
		if err != nil {
			return err
		}
		store = fs
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := store.Save(s.ExperimentID, artifact.SummaryName, data); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (e *Engine) newRun(cfg core.ExperimentConfig, log eventlog.Log, inv *invoker.Invoker, pop *agent.Population, logger *logging.RunLogger) *run {
	return &run{
		engine:   e,
		cfg:      cfg,
		log:      log,
		invoker:  inv,
		pop:      pop,
		sampler:  agent.NewSampler(cfg.Seed),
		resolver: resolver.New(cfg.Scenario),
		tracker:  entropy.NewTracker(*cfg.CollapseThreshold, cfg.CollapseWindow),
		tally:    core.NewTally(),
		logger:   logger,
	}
}

// run is the state of one experiment execution.
type run struct {
	engine   *Engine
	cfg      core.ExperimentConfig
	log      eventlog.Log
	invoker  *invoker.Invoker
	pop      *agent.Population
	sampler  *agent.Sampler
	resolver *resolver.Resolver
	tracker  *entropy.Tracker
	tally    *core.Tally
	logger   *logging.RunLogger

	// appendMu keeps log order and observer order identical.
	appendMu sync.Mutex
}

func (r *run) append(ev core.Event) error {
	r.appendMu.Lock()
	defer r.appendMu.Unlock()
	if err := r.log.Append(ev); err != nil {
		return fmt.Errorf("append %s event: %w", ev.Type, err)
	}
	if obs := r.engine.opts.Observer; obs != nil {
		obs(ev)
	}
	return nil
}

func (r *run) hooks(ctx context.Context, t CallbackType, cbCtx *CallbackContext) error {
	cbCtx.ExperimentID = r.cfg.ExperimentID
	cbCtx.Condition = r.cfg.Condition
	if err := r.engine.opts.Callbacks.ExecuteCallbacks(ctx, t, cbCtx); err != nil {
		return fmt.Errorf("%s hook: %w", t, err)
	}
	return nil
}

func (r *run) execute(ctx context.Context, start int) (*core.Summary, error) {
	stopped := false
	for round := start; round < r.cfg.NumRounds; round++ {
		if r.cfg.StopOnCollapse && r.tracker.Collapsed() {
			stopped = true
			r.logger.Info("Stopping on collapse", "round", round)
			break
		}
		if err := r.round(ctx, round); err != nil {
			r.fail(ctx, round, err)
			return nil, err
		}
	}
	return r.finish(stopped)
}

func (r *run) fail(ctx context.Context, round int, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.logger.Warn("Experiment interrupted; resume to continue", "round", round, "error", err.Error())
	} else {
		r.logger.Error("Experiment aborted", "round", round, "error", err.Error())
	}
	_ = r.hooks(context.WithoutCancel(ctx), CallbackOnError, &CallbackContext{Round: round, Err: err})
}

// round runs one complete round. On error the log may hold a partial round
// without round_end, which Resume discards.
func (r *run) round(ctx context.Context, round int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "engine.Round")
	defer span.End()
	span.SetAttributes(
		attribute.String("experiment.id", r.cfg.ExperimentID),
		attribute.Int("round", round),
	)

	begin := time.Now()
	snapshot := r.pop.Snapshot()
	pre := r.pop.Distribution()
	if err := r.append(core.NewRoundStartEvent(round, pre)); err != nil {
		return err
	}
	if err := r.hooks(ctx, CallbackBeforeRound, &CallbackContext{Round: round, Distribution: pre}); err != nil {
		return err
	}

	agents := r.pop.Agents()
	results := make([]core.AgentResponse, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(r.engine.opts.Concurrency))
	for i, a := range agents {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			resp, err := r.turn(gctx, round, a, snapshot[i], snapshot, pre)
			if err != nil {
				return err
			}
			if err := r.append(core.NewAgentResponseEvent(round, resp)); err != nil {
				return err
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	changes := 0
	for i := range results {
		resp := results[i]
		if err := r.pop.Apply(resp); err != nil {
			return err
		}
		r.tally.Add(resp)
		if resp.Changed {
			changes++
		}
		r.engine.opts.Metrics.RecordResponse(string(r.cfg.Condition), string(resp.ChangeReason))
		if err := r.hooks(ctx, CallbackAfterResponse, &CallbackContext{Round: round, Response: &resp}); err != nil {
			return err
		}
	}

	post := r.pop.Distribution()
	h := r.tracker.Record(post)
	if err := r.append(core.NewRoundEndEvent(round, post, h)); err != nil {
		return err
	}
	r.engine.opts.Metrics.RecordRound(r.cfg.ExperimentID, string(r.cfg.Condition), h)
	r.logger.LogRound(round, post.String(), h, changes, time.Since(begin))
	span.SetAttributes(attribute.Float64("entropy", h), attribute.Int("changes", changes))

	return r.hooks(ctx, CallbackAfterRound, &CallbackContext{Round: round, Distribution: post, Entropy: h})
}

// turn assembles one agent's context, invokes the model and resolves the
// answer. self and pool come from the round-start snapshot.
func (r *run) turn(ctx context.Context, round int, a *agent.Agent, self agent.Snapshot, pool []agent.Snapshot, stats core.Distribution) (core.AgentResponse, error) {
	if err := ctx.Err(); err != nil {
		return core.AgentResponse{}, err
	}

	var peers []agent.Snapshot
	if round > 0 && r.cfg.Condition.UsesPeers() {
		peers = r.sampler.Sample(pool, a.ID, r.cfg.SampleK, round)
	}
	var initial core.Stance
	if r.cfg.InitialStanceMode.AssignsStance() {
		initial = a.InitialStance
	}

	pc, err := r.engine.opts.Policy.Build(policy.Input{
		Condition: r.cfg.Condition,
		Mode:      r.cfg.InitialStanceMode,
		Round:     round,
		Scenario:  r.cfg.Scenario,
		Self: policy.Self{
			ID:             a.ID,
			Persona:        a.Persona,
			PriorStance:    self.Stance,
			PriorRationale: self.Rationale,
			InitialStance:  initial,
		},
		Peers: peers,
		Stats: stats,
	})
	if err != nil {
		return core.AgentResponse{}, fmt.Errorf("build context for %s: %w", a.ID, err)
	}

	res, err := r.invoker.Invoke(ctx, invoker.Call{
		AgentID:     a.ID,
		System:      pc.System,
		Prompt:      pc.Prompt,
		Temperature: *r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
		Seed:        r.callSeed(round, a.ID),
		Schema:      pc.Schema,
	})
	if err != nil {
		return core.AgentResponse{}, err
	}

	peerIDs := make([]string, len(peers))
	for i, p := range peers {
		peerIDs[i] = p.ID
	}
	return r.resolver.Resolve(resolver.Input{
		Round:         round,
		AgentID:       a.ID,
		Persona:       a.Persona.Name,
		PriorStance:   self.Stance,
		PriorRation:   self.Rationale,
		InitialStance: initial,
		Peers:         peerIDs,
		Result:        res,
	}), nil
}

// callSeed derives the decoding seed of one turn from the run seed.
func (r *run) callSeed(round int, agentID string) *int64 {
	if r.cfg.Seed == nil {
		return nil
	}
	s := int64(agent.StableSeed(*r.cfg.Seed, "call", round, agentID))
	return &s
}

func (r *run) finish(stopped bool) (*core.Summary, error) {
	s := r.summary(stopped)
	if err := r.append(core.NewExperimentEndEvent(s)); err != nil {
		return nil, err
	}
	if err := r.engine.saveSummary(s); err != nil {
		return nil, err
	}
	args := []any{"rounds", s.RoundsCompleted, "total_changes", s.TotalChanges, "parse_success_rate", s.ParseSuccessRate}
	if s.TimeToCollapse != nil {
		args = append(args, "time_to_collapse", *s.TimeToCollapse)
	}
	r.logger.Info("Experiment finished", args...)
	return &s, nil
}

func (r *run) summary(stopped bool) core.Summary {
	history := r.tracker.History()
	if history == nil {
		history = []float64{}
	}
	reasons := make(map[core.ChangeReason]int, len(r.tally.Reasons))
	for k, v := range r.tally.Reasons {
		reasons[k] = v
	}
	s := core.Summary{
		ExperimentID:      r.cfg.ExperimentID,
		Config:            r.cfg,
		EntropyHistory:    history,
		FinalDistribution: r.pop.Distribution(),
		ChangeReasons:     reasons,
		TotalChanges:      r.tally.Changes(),
		Responses:         r.tally.Responses,
		ParseSuccessRate:  r.tally.ParseRate(),
		RoundsCompleted:   len(history),
		StoppedEarly:      stopped,
	}
	if n := len(history); n > 0 {
		initial, final := history[0], history[n-1]
		s.InitialEntropy = &initial
		s.FinalEntropy = &final
	}
	if ttc, ok := r.tracker.Collapse(); ok {
		s.TimeToCollapse = &ttc
		r.engine.opts.Metrics.RecordCollapse(string(r.cfg.Condition))
	}
	return s
}

func replay(log eventlog.Log) (resume.State, bool, error) {
	rc, err := log.Reader()
	if err != nil {
		return resume.State{}, false, fmt.Errorf("open log: %w", err)
	}
	defer rc.Close()
	return resume.FindLastCompleteRound(rc)
}

func isEmpty(log eventlog.Log) (bool, error) {
	rc, err := log.Reader()
	if err != nil {
		return false, fmt.Errorf("open log: %w", err)
	}
	defer rc.Close()
	n, err := io.ReadFull(rc, make([]byte, 1))
	switch {
	case n > 0:
		return false, nil
	case errors.Is(err, io.EOF):
		return true, nil
	default:
		return false, fmt.Errorf("read log: %w", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agoramesh/config"
	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/engine"
	"github.com/hupe1980/agoramesh/invoker"
	"github.com/hupe1980/agoramesh/logging"
	"github.com/hupe1980/agoramesh/telemetry"
)

type runFlags struct {
	condition   string
	scenario    string
	agents      int
	rounds      int
	k           int
	seed        int64
	mode        string
	debug       bool
	backend     string
	model       string
	logDir      string
	concurrency int
	metricsAddr string
	trace       string
	stop        bool
	skipCheck   bool
}

func (f *runFlags) register(cmd *cobra.Command, experiment bool) {
	fl := cmd.Flags()
	if experiment {
		fl.StringVar(&f.condition, "condition", "", "condition (C0..C4 or full name)")
		fl.StringVar(&f.scenario, "scenario", "", "scenario id from the catalog")
		fl.IntVar(&f.agents, "agents", 0, "number of agents")
		fl.IntVar(&f.rounds, "rounds", 0, "number of rounds")
		fl.IntVar(&f.k, "k", 0, "peers sampled per agent per round")
		fl.Int64Var(&f.seed, "seed", 0, "master seed")
		fl.StringVar(&f.mode, "initial-stance-mode", "", "NONE, ENFORCED or SOFT")
		fl.BoolVar(&f.debug, "debug", false, "shrink to 5 agents, 3 rounds, k=2")
		fl.BoolVar(&f.stop, "stop-on-collapse", false, "end the run once entropy collapses")
	}
	fl.StringVar(&f.backend, "backend", "", "ollama, openai, anthropic or mock")
	fl.StringVar(&f.model, "model", "", "backend model name")
	fl.StringVar(&f.logDir, "log-dir", "", "directory for event logs and summaries")
	fl.IntVar(&f.concurrency, "concurrency", 0, "agent turns in flight per round")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fl.StringVar(&f.trace, "trace-exporter", "", "export spans: none, stdout or otlp")
	fl.BoolVar(&f.skipCheck, "skip-check", false, "skip the backend readiness check")
}

// apply copies explicitly set flags over the loaded settings.
func (f *runFlags) apply(cmd *cobra.Command, s *config.Settings) {
	set := cmd.Flags().Changed
	if set("condition") {
		s.Experiment.Condition = f.condition
	}
	if set("scenario") {
		s.Experiment.Scenario = f.scenario
	}
	if set("agents") {
		s.Experiment.Agents = f.agents
	}
	if set("rounds") {
		s.Experiment.Rounds = f.rounds
	}
	if set("k") {
		s.Experiment.SampleK = f.k
	}
	if set("seed") {
		s.Experiment.Seed = &f.seed
	}
	if set("initial-stance-mode") {
		s.Experiment.InitialStanceMode = f.mode
	}
	if set("debug") {
		s.Experiment.Debug = f.debug
	}
	if set("stop-on-collapse") {
		s.Experiment.StopOnCollapse = f.stop
	}
	if set("backend") {
		s.Backend.Name = f.backend
	}
	if set("model") {
		s.Backend.Model = f.model
	}
	if set("log-dir") {
		s.Run.LogDir = f.logDir
	}
	if set("concurrency") {
		s.Run.Concurrency = f.concurrency
	}
	if set("metrics-addr") {
		s.Run.MetricsAddr = f.metricsAddr
	}
	if set("trace-exporter") {
		s.Run.TraceExporter = f.trace
	}
	if set("skip-check") {
		s.Run.CheckReady = !f.skipCheck
	}
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new experiment and print its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.apply(cmd, a.settings)
			if err := a.settings.Validate(); err != nil {
				return err
			}
			cfg, err := a.settings.ExperimentConfig(a.catalog)
			if err != nil {
				return err
			}
			return a.execute(cmd, func(ctx context.Context, e *engine.Engine) (*core.Summary, error) {
				return e.Run(ctx, cfg)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func newResumeCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "resume <experiment-id>",
		Short: "Continue an interrupted experiment from its log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd, a.settings)
			if err := a.settings.Validate(); err != nil {
				return err
			}
			return a.execute(cmd, func(ctx context.Context, e *engine.Engine) (*core.Summary, error) {
				return e.Resume(ctx, args[0])
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

// execute wires the engine from settings, runs fn until it finishes or the
// process is interrupted, and prints the summary as JSON.
func (a *app) execute(cmd *cobra.Command, fn func(ctx context.Context, e *engine.Engine) (*core.Summary, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Exporter: a.settings.Run.TraceExporter,
		Writer:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			a.logger.Warn("Trace flush failed", "error", err.Error())
		}
	}()

	var metrics *telemetry.Metrics
	if addr := a.settings.Run.MetricsAddr; addr != "" {
		reg := prometheus.NewRegistry()
		metrics = telemetry.New(reg)
		srv := serveMetrics(addr, reg, a.logger)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	e, err := a.newEngine(metrics)
	if err != nil {
		return err
	}
	summary, err := fn(ctx, e)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Warn("Interrupted; continue with agora resume")
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func (a *app) newEngine(metrics *telemetry.Metrics) (*engine.Engine, error) {
	s := a.settings
	m, err := newModel(s.Backend)
	if err != nil {
		return nil, err
	}
	return engine.New(func(o *engine.Options) {
		o.Model = m
		o.Backoff = invoker.Backoff{MaxAttempts: s.Backend.MaxAttempts, Base: s.Backend.RetryBase}
		o.Timeout = s.Backend.Timeout
		o.MaxModelCalls = s.Backend.MaxCalls
		o.RateLimiter = newRateLimiter(s.Backend.RateLimit)
		o.Concurrency = s.Run.Concurrency
		o.LogDir = s.Run.LogDir
		o.Personas = a.catalog.Personas
		o.CheckReady = s.Run.CheckReady
		o.Logger = a.logger
		o.Metrics = metrics
	}), nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *logging.RunLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "addr", addr, "error", err.Error())
		}
	}()
	logger.Info("Serving metrics", "addr", addr)
	return srv
}

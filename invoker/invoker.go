// Package invoker wraps a model backend with the retry, timeout and JSON
// recovery policy every agent turn goes through.
//
// An invocation ends in exactly one of three outcomes: the backend answered
// and a JSON object was recovered (Parsed), the backend answered but no
// object could be recovered (Unparsed, never retried), or every attempt
// failed at the transport level (TransportFailure). Cancellation of the
// caller's context is not an outcome: it is returned as an error and never
// retried.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/hupe1980/agoramesh/core"
	"github.com/hupe1980/agoramesh/logging"
	"github.com/hupe1980/agoramesh/model"
	"github.com/hupe1980/agoramesh/telemetry"
)

var tracer = otel.Tracer("agoramesh.invoker")

// DefaultTimeout bounds a single backend attempt.
const DefaultTimeout = 120 * time.Second

// Outcome classifies a finished invocation.
type Outcome int

const (
	// OutcomeParsed means a JSON object was recovered from the answer.
	OutcomeParsed Outcome = iota
	// OutcomeUnparsed means the backend answered without a usable object.
	OutcomeUnparsed
	// OutcomeTransportFailure means every attempt failed to get an answer.
	OutcomeTransportFailure
)

// String returns the metric / log label of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeParsed:
		return "parsed"
	case OutcomeUnparsed:
		return "unparsed"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Call is one agent turn's request.
type Call struct {
	AgentID     string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Seed        *int64
	Schema      map[string]any
}

// Result is the outcome of an invocation.
type Result struct {
	Raw      string
	Parsed   map[string]any
	Outcome  Outcome
	Attempts int
	Duration time.Duration
	// Err is set for transport failures and wraps core.ErrTransportFailure.
	// Unparsed answers carry core.ErrParseFailure.
	Err error
}

// Options configure an Invoker.
type Options struct {
	Backoff Backoff
	// Timeout bounds each attempt individually.
	Timeout time.Duration
	// Budget caps the calls of one run; retries count as calls.
	Budget *core.CallBudget
	// RateLimiter throttles attempts against the backend.
	RateLimiter *rate.Limiter
	Logger      *logging.RunLogger
	Metrics     *telemetry.Metrics
}

// Invoker is safe for concurrent use.
type Invoker struct {
	model model.Model
	opts  Options
}

// New creates an invoker around m.
func New(m model.Model, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Backoff: DefaultBackoff,
		Timeout: DefaultTimeout,
		Logger:  logging.NewDiscardLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	opts.Logger = opts.Logger.WithComponent("invoker")
	return &Invoker{model: m, opts: opts}
}

// Model returns the wrapped backend's info.
func (inv *Invoker) Model() model.Info { return inv.model.Info() }

// Ready runs the backend's readiness check when it implements model.Checker.
func (inv *Invoker) Ready(ctx context.Context) error {
	if c, ok := inv.model.(model.Checker); ok {
		return c.Ready(ctx)
	}
	return nil
}

// Invoke runs the call under the retry policy. The returned error is non-nil
// only when the invocation was abandoned: ctx was cancelled or the call
// budget is exhausted. All backend problems are reported through Result.
func (inv *Invoker) Invoke(ctx context.Context, call Call) (Result, error) {
	ctx, span := tracer.Start(ctx, "invoker.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("agent.id", call.AgentID))

	start := time.Now()
	req := model.Request{
		System:      call.System,
		Prompt:      call.Prompt,
		Temperature: call.Temperature,
		MaxTokens:   call.MaxTokens,
		Seed:        call.Seed,
		Schema:      call.Schema,
	}
	info := inv.model.Info()

	var lastErr error
	maxAttempts := inv.opts.Backoff.Attempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempt - 1}, err
		}
		if inv.opts.Budget != nil {
			if err := inv.opts.Budget.Spend(); err != nil {
				span.SetStatus(codes.Error, err.Error())
				return Result{Attempts: attempt - 1}, err
			}
		}
		if inv.opts.RateLimiter != nil {
			if err := inv.opts.RateLimiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Result{Attempts: attempt - 1}, ctxErr
				}
				return Result{Attempts: attempt - 1}, fmt.Errorf("rate limiter: %w", err)
			}
		}

		resp, err := inv.generate(ctx, req)
		if err == nil {
			res := Result{Raw: resp.Text, Attempts: attempt, Duration: time.Since(start)}
			if obj, ok := Extract(resp.Text); ok {
				res.Parsed = obj
				res.Outcome = OutcomeParsed
			} else {
				res.Outcome = OutcomeUnparsed
				res.Err = fmt.Errorf("%w: no JSON object in response", core.ErrParseFailure)
			}
			inv.record(call, info, res)
			return res, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Attempts: attempt}, ctxErr
		}
		lastErr = err
		inv.opts.Logger.Debug("Model attempt failed",
			"agent_id", call.AgentID,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err.Error(),
		)
		if attempt < maxAttempts {
			if err := sleep(ctx, inv.opts.Backoff.Delay(attempt)); err != nil {
				return Result{Attempts: attempt}, err
			}
		}
	}

	res := Result{
		Outcome:  OutcomeTransportFailure,
		Attempts: maxAttempts,
		Duration: time.Since(start),
		Err:      fmt.Errorf("%w: %v", core.ErrTransportFailure, lastErr),
	}
	span.RecordError(res.Err)
	span.SetStatus(codes.Error, res.Err.Error())
	inv.record(call, info, res)
	return res, nil
}

// generate performs one attempt under the per-attempt timeout.
func (inv *Invoker) generate(ctx context.Context, req model.Request) (*model.Response, error) {
	actx, cancel := context.WithTimeout(ctx, inv.opts.Timeout)
	defer cancel()
	resp, err := inv.model.Generate(actx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("timeout after %s: %w", inv.opts.Timeout, err)
		}
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("empty response from backend")
	}
	return resp, nil
}

func (inv *Invoker) record(call Call, info model.Info, res Result) {
	inv.opts.Metrics.RecordModelCall(info.Name, res.Outcome.String(), res.Attempts, res.Duration)
	var err error
	if res.Outcome == OutcomeTransportFailure {
		err = res.Err
	}
	inv.opts.Logger.LogModelCall(call.AgentID, info.Name, res.Outcome.String(), res.Attempts, res.Duration, err)
}

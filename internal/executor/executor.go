// Package executor drives one alert through the decision-gated pipeline:
// build prompt, invoke model, validate response, then accept, retry, or
// escalate. It owns the retry, escalation, and terminal-failure policy.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/guardrail"
	"github.com/opensoc/triagent/internal/invoke"
	"github.com/opensoc/triagent/internal/prompt"
)

// State names one phase of the pipeline state machine.
// BUILDING is initial; ACCEPTED, ESCALATED, and FAILED are terminal.
type State string

const (
	StateBuilding   State = "BUILDING"
	StateInvoking   State = "INVOKING"
	StateValidating State = "VALIDATING"
	StateAccepted   State = "ACCEPTED"
	StateRetrying   State = "RETRYING"
	StateEscalated  State = "ESCALATED"
	StateFailed     State = "FAILED"
)

// Outcome tags the terminal result of one run.
type Outcome string

const (
	OutcomeResolved  Outcome = "RESOLVED"
	OutcomeEscalated Outcome = "ESCALATED"
	OutcomeFailed    Outcome = "FAILED"
)

// Failure reason tags recorded on FAILED results.
const (
	ReasonCancelled          = "cancelled"
	ReasonRunDeadline        = "run_deadline"
	ReasonMaxAttempts        = "max_attempts"
	ReasonBackendUnavailable = "backend_unavailable"
)

// Attempt records one model invocation: either a response with its verdict,
// or the invocation error. Nothing is dropped; rejected attempts stay in
// the history for diagnosis.
type Attempt struct {
	Number   int
	Response *invoke.ModelResponse
	Verdict  *guardrail.Verdict
	Err      string
}

// Result is the sole externally visible artifact of one run. Exactly one
// Result is produced per submitted alert; FAILED is a normal value, never
// an error. Response is populated only when the run resolved with an
// accepted response or escalated with a flagged one.
type Result struct {
	RunID         string
	Context       *alert.Context
	Role          prompt.Role
	Outcome       Outcome
	FinalState    State
	Response      *invoke.ModelResponse
	Verdict       *guardrail.Verdict
	Attempts      int
	History       []Attempt
	FailureReason string
	Elapsed       time.Duration
}

// Config holds the executor's retry and deadline policy.
type Config struct {
	// MaxAttempts bounds the attempt counter. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// Backoff paces RETRYING → BUILDING transitions.
	Backoff Backoff

	// RunTimeout is the per-run wall-clock ceiling, a backstop that forces
	// FAILED regardless of remaining attempt budget. Zero disables it.
	RunTimeout time.Duration
}

// DefaultMaxAttempts is the attempt ceiling when none is configured.
const DefaultMaxAttempts = 3

// Executor runs the state machine. One Execute call processes exactly one
// alert end-to-end; distinct runs share no mutable state and may execute
// concurrently (the invoker's rate limiter is the only shared gate).
type Executor struct {
	builder   *prompt.Builder
	invoker   *invoke.Invoker
	validator *guardrail.Validator
	cfg       Config
}

// New assembles an executor over the three pipeline stages.
func New(b *prompt.Builder, inv *invoke.Invoker, v *guardrail.Validator, cfg Config) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Executor{builder: b, invoker: inv, validator: v, cfg: cfg}
}

// Execute drives one alert to a terminal state. Retries within the run are
// strictly sequential; at most one model call is in flight at a time.
// Cancellation at any phase boundary yields a FAILED result tagged
// "cancelled" rather than a partial one.
func (e *Executor) Execute(ctx context.Context, actx *alert.Context, role prompt.Role) *Result {
	start := time.Now()
	res := &Result{
		RunID:   uuid.NewString(),
		Context: actx,
		Role:    role,
	}
	defer func() {
		res.Elapsed = time.Since(start)
		res.Attempts = len(res.History)
	}()

	runCtx := ctx
	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	// interruptReason distinguishes caller cancellation from the per-run
	// deadline backstop.
	interruptReason := func() string {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ReasonCancelled
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return ReasonRunDeadline
		}
		return ReasonCancelled
	}

	fail := func(reason string) *Result {
		res.Outcome = OutcomeFailed
		res.FinalState = StateFailed
		res.FailureReason = reason
		// Surface the last verdict seen, if any, for diagnosis.
		for i := len(res.History) - 1; i >= 0; i-- {
			if res.History[i].Verdict != nil {
				res.Verdict = res.History[i].Verdict
				break
			}
		}
		return res
	}

	note := ""
	for attempt := 1; ; attempt++ {
		// BUILDING
		if runCtx.Err() != nil {
			return fail(interruptReason())
		}
		payload := e.builder.Build(actx, role, note, attempt)

		// INVOKING
		resp, err := e.invoker.Invoke(runCtx, payload)
		if err != nil {
			res.History = append(res.History, Attempt{Number: attempt, Err: err.Error()})

			switch {
			case errors.Is(err, context.Canceled):
				return fail(interruptReason())
			case errors.Is(err, invoke.ErrRateLimited), errors.Is(err, invoke.ErrTimeout):
				if attempt >= e.cfg.MaxAttempts {
					return fail(ReasonMaxAttempts)
				}
				// RETRYING: the corrective note, if any, carries over.
				if err := e.wait(runCtx, attempt); err != nil {
					return fail(interruptReason())
				}
				continue
			default:
				return fail(ReasonBackendUnavailable)
			}
		}

		// VALIDATING
		if runCtx.Err() != nil {
			return fail(interruptReason())
		}
		verdict := e.validator.Validate(resp, actx)
		res.History = append(res.History, Attempt{Number: attempt, Response: resp, Verdict: &verdict})

		switch verdict.Class {
		case guardrail.ClassAccept:
			res.Outcome = OutcomeResolved
			res.FinalState = StateAccepted
			res.Response = resp
			res.Verdict = &verdict
			return res

		case guardrail.ClassEscalate:
			// Escalation is terminal immediately: it signals a condition
			// needing human attention sooner than further automated
			// attempts, so it is never retried.
			res.Outcome = OutcomeEscalated
			res.FinalState = StateEscalated
			res.Response = resp
			res.Verdict = &verdict
			return res

		default: // REJECT
			if attempt >= e.cfg.MaxAttempts {
				return fail(ReasonMaxAttempts)
			}
			// RETRYING → BUILDING with a feedback-augmented prompt.
			note = correctiveNote(attempt, verdict)
			if err := e.wait(runCtx, attempt); err != nil {
				return fail(interruptReason())
			}
		}
	}
}

// wait sleeps for the backoff delay of the given attempt, honoring
// cancellation so an interrupted run fails promptly.
func (e *Executor) wait(ctx context.Context, attempt int) error {
	delay := e.cfg.Backoff.Delay(attempt)
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// correctiveNote summarizes the violated rules for the next attempt's prompt.
func correctiveNote(attempt int, verdict guardrail.Verdict) string {
	details := make([]string, len(verdict.Violations))
	for i, viol := range verdict.Violations {
		details[i] = viol.Detail
	}
	return fmt.Sprintf("Attempt %d was rejected by response guardrails: %s. Correct these issues in your next answer.",
		attempt, strings.Join(details, "; "))
}

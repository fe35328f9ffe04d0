// Package invoke sends prompt payloads to a model backend under configured
// limits: a per-attempt wall-clock budget, a response token cap, and a
// process-wide rate limit shared by all concurrent pipeline runs.
package invoke

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/opensoc/triagent/internal/backend"
	"github.com/opensoc/triagent/internal/prompt"
)

var (
	// ErrRateLimited means the shared outbound budget is exhausted for the
	// current window. The caller should back off and retry later.
	ErrRateLimited = errors.New("model call rate limit exceeded")

	// ErrTimeout means the attempt used its wall-clock budget without a
	// response. The attempt counts as used.
	ErrTimeout = errors.New("model call timed out")
)

// Limits configures one Invoker. Zero values disable the corresponding limit.
type Limits struct {
	MaxTokens         int           // caps response length
	Timeout           time.Duration // wall-clock budget per call
	RequestsPerWindow int           // rate-limit throttle, with Window
	Window            time.Duration
}

// ModelResponse is the raw reply from the backend for one attempt. It is
// owned by the invoker until handed to the guardrail validator and never
// mutated afterward.
type ModelResponse struct {
	Text    string
	Attempt int
	Latency time.Duration
}

// Invoker wraps a backend with limit enforcement. A single Invoker is
// shared by all concurrent runs so the rate limiter guards the
// process-wide outbound budget; rate.Limiter is safe for concurrent use.
// The invoker never retries internally.
type Invoker struct {
	backend backend.Backend
	limits  Limits
	limiter *rate.Limiter
}

// New creates an Invoker. When RequestsPerWindow and Window are both set,
// outbound calls draw from a token bucket of that capacity.
func New(b backend.Backend, limits Limits) *Invoker {
	inv := &Invoker{backend: b, limits: limits}
	if limits.RequestsPerWindow > 0 && limits.Window > 0 {
		perSecond := float64(limits.RequestsPerWindow) / limits.Window.Seconds()
		inv.limiter = rate.NewLimiter(rate.Limit(perSecond), limits.RequestsPerWindow)
	}
	return inv
}

// Invoke sends one payload and returns the raw response or a typed failure:
// ErrRateLimited, ErrTimeout, backend.ErrUnavailable, or the caller's
// context error on cancellation.
func (i *Invoker) Invoke(ctx context.Context, p *prompt.Payload) (*ModelResponse, error) {
	if i.limiter != nil && !i.limiter.Allow() {
		return nil, fmt.Errorf("%w: %d calls per %s", ErrRateLimited,
			i.limits.RequestsPerWindow, i.limits.Window)
	}

	callCtx := ctx
	if i.limits.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.limits.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := i.backend.Generate(callCtx, backend.GenerateRequest{
		Prompt:    p.Render(),
		MaxTokens: i.limits.MaxTokens,
	})
	if err != nil {
		// The caller's own cancellation takes precedence over the
		// per-attempt deadline.
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, i.limits.Timeout)
		}
		return nil, err
	}

	return &ModelResponse{
		Text:    text,
		Attempt: p.Attempt,
		Latency: time.Since(start),
	}, nil
}

// Package backend defines the pluggable model backend capability and its
// concrete providers. The pipeline core depends only on the Backend
// interface; credentials and transport never reach the core's data model.
//
// Two providers ship built-in, selected by configuration at startup:
//
//	GeminiBackend: wraps the Google GenAI API
//	CannedBackend: deterministic offline provider for dry runs and tests
package backend

import (
	"context"
	"errors"
)

// ErrUnavailable means the backend could not produce a response for a
// non-transient reason. It is terminal for the current pipeline run.
var ErrUnavailable = errors.New("model backend unavailable")

// GenerateRequest carries one prompt and the per-call response cap.
type GenerateRequest struct {
	Prompt    string
	MaxTokens int
}

// Backend is the single capability a model provider must implement.
// Generate blocks until the backend answers, the context expires, or the
// call fails. Implementations never retry internally; retry policy lives
// in the executor.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

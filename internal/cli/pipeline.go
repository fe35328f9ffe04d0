package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/backend"
	"github.com/opensoc/triagent/internal/config"
	"github.com/opensoc/triagent/internal/corpus"
	"github.com/opensoc/triagent/internal/executor"
	"github.com/opensoc/triagent/internal/guardrail"
	"github.com/opensoc/triagent/internal/invoke"
	"github.com/opensoc/triagent/internal/prompt"
)

// buildPipeline wires the full pipeline from configuration: corpus-backed
// prompt builder, model backend, rate-limited invoker, guardrail validator
// and the retry executor on top.
func buildPipeline(ctx context.Context, cfg *config.Config) (*executor.Executor, error) {
	c, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w (run 'triagent corpus init' to create a starter corpus)", err)
	}

	b, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	builder := prompt.NewBuilder(c, cfg.Prompt.MaxExamples)

	invoker := invoke.New(b, invoke.Limits{
		MaxTokens:         cfg.Invoker.MaxTokens,
		Timeout:           cfg.Invoker.Timeout(),
		RequestsPerWindow: cfg.Invoker.RequestsPerWindow,
		Window:            cfg.Invoker.Window(),
	})

	validator := guardrail.NewValidator(guardrailConfig(cfg))

	return executor.New(builder, invoker, validator, executor.Config{
		MaxAttempts: cfg.Executor.MaxAttempts,
		RunTimeout:  cfg.Executor.RunTimeout(),
		Backoff: executor.Backoff{
			Base:   cfg.Executor.BackoffBase(),
			Cap:    cfg.Executor.BackoffCap(),
			Jitter: cfg.Executor.BackoffJitter,
		},
	}), nil
}

func newBackend(ctx context.Context, cfg *config.Config) (backend.Backend, error) {
	if offline {
		return backend.NewCanned(), nil
	}
	return backend.NewGemini(ctx, backend.GeminiConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Backend.Model,
	})
}

func guardrailConfig(cfg *config.Config) guardrail.Config {
	gc := guardrail.DefaultConfig()
	if cfg.Guardrail.MinRationaleLen > 0 {
		gc.MinRationaleLen = cfg.Guardrail.MinRationaleLen
	}
	if cfg.Guardrail.MaxRationaleLen > 0 {
		gc.MaxRationaleLen = cfg.Guardrail.MaxRationaleLen
	}
	if cfg.Guardrail.MinConfidence > 0 {
		gc.MinConfidence = cfg.Guardrail.MinConfidence
	}
	if len(cfg.Guardrail.EscalationKeywords) > 0 {
		gc.EscalationKeywords = cfg.Guardrail.EscalationKeywords
	}
	if len(cfg.Guardrail.AllowedVocabulary) > 0 {
		gc.AllowedVocabulary = cfg.Guardrail.AllowedVocabulary
	}
	return gc
}

// readRecord reads one raw alert as JSON, from a file when a path is given
// or from stdin otherwise.
func readRecord(path string) (alert.RawRecord, error) {
	var rec alert.RawRecord

	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return rec, fmt.Errorf("reading alert: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", alert.ErrMalformedInput, err)
	}
	return rec, nil
}

// checkLockout refuses to run the pipeline while the install is locked out.
func checkLockout(cfg *config.Config) error {
	if locked, stamp := config.Locked(cfg.ConfigDir); locked {
		return fmt.Errorf("triagent is locked out (since %s); run 'triagent unlock' to resume", stamp)
	}
	return nil
}

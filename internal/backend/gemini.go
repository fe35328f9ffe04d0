package backend

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig holds the credential and model selection for the Gemini
// provider. The API key is resolved by the config layer (env/.env) and is
// never stored on responses.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiBackend generates completions through the Google GenAI API.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGemini validates the configuration and builds the API client.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing AI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

func (g *GeminiBackend) Name() string { return "gemini" }

// Generate sends the prompt and returns the raw completion text.
// Context expiry is passed through untouched so the invoker can classify
// it; other API failures map to ErrUnavailable.
func (g *GeminiBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var genCfg *genai.GenerateContentConfig
	if req.MaxTokens > 0 {
		genCfg = &genai.GenerateContentConfig{MaxOutputTokens: int32(req.MaxTokens)}
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), genCfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return text, nil
}

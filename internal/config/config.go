// Package config resolves the runtime configuration: defaults, then
// ~/.triagent/config.yaml, then environment. The API key is never read from
// the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".triagent"
	DefaultConfigFile = "config.yaml"
	DefaultCorpusFile = "corpus.yaml"
	DefaultLogFile    = "audit.jsonl"

	// APIKeyEnv names the environment variable holding the model API key.
	APIKeyEnv = "AI_API_KEY"
)

type Config struct {
	ConfigDir  string
	CorpusPath string
	LogPath    string
	APIKey     string

	Backend   BackendConfig   `yaml:"backend"`
	Invoker   InvokerConfig   `yaml:"invoker"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Guardrail GuardrailConfig `yaml:"guardrail"`
	Prompt    PromptConfig    `yaml:"prompt"`
	Batch     BatchConfig     `yaml:"batch"`
}

type BackendConfig struct {
	Model string `yaml:"model"`
}

type InvokerConfig struct {
	MaxTokens         int `yaml:"max_tokens"`
	TimeoutSeconds    int `yaml:"timeout_seconds"`
	RequestsPerWindow int `yaml:"requests_per_window"`
	WindowSeconds     int `yaml:"window_seconds"`
}

func (c InvokerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c InvokerConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

type ExecutorConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	RunTimeoutSeconds int `yaml:"run_timeout_seconds"`
	BackoffBaseMS     int `yaml:"backoff_base_ms"`
	BackoffCapMS      int `yaml:"backoff_cap_ms"`
	// BackoffJitter is a 0-1 fraction of each retry delay added or removed
	// at random. Zero keeps retry timing reproducible.
	BackoffJitter float64 `yaml:"backoff_jitter"`
}

func (c ExecutorConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

func (c ExecutorConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMS) * time.Millisecond
}

func (c ExecutorConfig) BackoffCap() time.Duration {
	return time.Duration(c.BackoffCapMS) * time.Millisecond
}

type GuardrailConfig struct {
	MinRationaleLen    int      `yaml:"min_rationale_len"`
	MaxRationaleLen    int      `yaml:"max_rationale_len"`
	MinConfidence      float64  `yaml:"min_confidence"`
	EscalationKeywords []string `yaml:"escalation_keywords"`
	AllowedVocabulary  []string `yaml:"allowed_vocabulary"`
}

type PromptConfig struct {
	MaxExamples int `yaml:"max_examples"`
}

type BatchConfig struct {
	// Limit caps how many alerts one batch invocation will take on. A feed
	// replay that dumps the whole SIEM backlog should not burn the model
	// quota in one go.
	Limit       int `yaml:"limit"`
	Concurrency int `yaml:"concurrency"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Backend: BackendConfig{Model: "gemini-2.0-flash"},
		Invoker: InvokerConfig{
			MaxTokens:         1024,
			TimeoutSeconds:    30,
			RequestsPerWindow: 30,
			WindowSeconds:     60,
		},
		Executor: ExecutorConfig{
			MaxAttempts:       3,
			RunTimeoutSeconds: 120,
			BackoffBaseMS:     200,
			BackoffCapMS:      5000,
		},
		Guardrail: GuardrailConfig{
			MinRationaleLen: 20,
			MaxRationaleLen: 1200,
			MinConfidence:   0.5,
		},
		Prompt: PromptConfig{MaxExamples: 3},
		Batch:  BatchConfig{Limit: 500, Concurrency: 4},
	}
}

// Load resolves the effective configuration. Explicit paths win over the
// config directory defaults; a missing config file is not an error.
func Load(configPath, corpusPath, logPath string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	// Developer convenience: a .env in the config dir can hold AI_API_KEY.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))

	cfg := Default()
	cfg.ConfigDir = configDir

	if configPath == "" {
		configPath = filepath.Join(configDir, DefaultConfigFile)
	}
	if err := loadFile(configPath, &cfg); err != nil {
		return nil, err
	}

	if corpusPath != "" {
		cfg.CorpusPath = corpusPath
	} else {
		cfg.CorpusPath = filepath.Join(configDir, DefaultCorpusFile)
	}
	if logPath != "" {
		cfg.LogPath = logPath
	} else {
		cfg.LogPath = filepath.Join(configDir, DefaultLogFile)
	}

	cfg.APIKey = os.Getenv(APIKeyEnv)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Executor.MaxAttempts < 1 {
		return fmt.Errorf("executor.max_attempts must be at least 1, got %d", c.Executor.MaxAttempts)
	}
	if c.Guardrail.MinConfidence < 0 || c.Guardrail.MinConfidence > 1 {
		return fmt.Errorf("guardrail.min_confidence must be in [0,1], got %g", c.Guardrail.MinConfidence)
	}
	if c.Executor.BackoffJitter < 0 || c.Executor.BackoffJitter > 1 {
		return fmt.Errorf("executor.backoff_jitter must be in [0,1], got %g", c.Executor.BackoffJitter)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	return nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}

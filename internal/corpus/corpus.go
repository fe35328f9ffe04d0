// Package corpus loads the threat-example corpus: an ordered, read-only
// collection of past alerts with their expected verdicts, used as few-shot
// grounding material by the prompt builder.
package corpus

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opensoc/triagent/internal/alert"
)

// ErrNoGroundingData means the corpus is empty or absent. This is a
// configuration fault and is fatal at startup, not per-run.
var ErrNoGroundingData = errors.New("threat-example corpus has no entries")

// Example is one past (alert, expected verdict) pair.
type Example struct {
	Name     string            `yaml:"name"`
	Severity string            `yaml:"severity"`
	Fields   map[string]string `yaml:"fields,omitempty"`
	Body     string            `yaml:"body,omitempty"`
	Verdict  string            `yaml:"verdict"`
}

// SeverityRank returns the numeric rank of the example's severity for
// nearest-severity selection.
func (e Example) SeverityRank() int {
	sev, _ := alert.ParseSeverity(e.Severity)
	return sev.Rank()
}

type corpusFile struct {
	Examples []Example `yaml:"examples"`
}

// Corpus is loaded once at process start and treated as an immutable lookup
// table for the process lifetime.
type Corpus struct {
	examples []Example
}

// Load reads and validates a corpus YAML file.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoGroundingData, path)
		}
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	var cf corpusFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}

	return New(cf.Examples)
}

// New builds a corpus from in-memory examples, validating each entry.
func New(examples []Example) (*Corpus, error) {
	if len(examples) == 0 {
		return nil, ErrNoGroundingData
	}
	for i, ex := range examples {
		if ex.Verdict == "" {
			return nil, fmt.Errorf("corpus entry %d (%s): missing verdict", i, ex.Name)
		}
		if _, ok := alert.ParseSeverity(ex.Severity); !ok {
			return nil, fmt.Errorf("corpus entry %d (%s): unknown severity %q", i, ex.Name, ex.Severity)
		}
	}
	c := &Corpus{examples: make([]Example, len(examples))}
	copy(c.examples, examples)
	return c, nil
}

// Len returns the number of examples.
func (c *Corpus) Len() int {
	return len(c.examples)
}

// Examples returns the corpus entries in file order. Callers must not
// modify the returned slice.
func (c *Corpus) Examples() []Example {
	return c.examples
}

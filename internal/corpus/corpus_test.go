package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpus.yaml")
	content := `examples:
  - name: ransomware-note
    severity: critical
    fields:
      source: edr
    body: ransom note dropped on share
    verdict: critical/active compromise
  - name: failed-logins
    severity: medium
    verdict: suspicious
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 examples, got %d", c.Len())
	}
	if c.Examples()[0].Name != "ransomware-note" {
		t.Errorf("corpus order not preserved: %+v", c.Examples())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrNoGroundingData) {
		t.Errorf("expected ErrNoGroundingData, got %v", err)
	}
}

func TestNew_EmptyCorpus(t *testing.T) {
	_, err := New(nil)
	if !errors.Is(err, ErrNoGroundingData) {
		t.Errorf("expected ErrNoGroundingData, got %v", err)
	}
}

func TestNew_RejectsInvalidEntries(t *testing.T) {
	cases := []struct {
		name string
		ex   Example
	}{
		{"missing verdict", Example{Name: "x", Severity: "low"}},
		{"unknown severity", Example{Name: "x", Severity: "apocalyptic", Verdict: "benign"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New([]Example{tc.ex}); err == nil {
				t.Errorf("expected validation error for %+v", tc.ex)
			}
		})
	}
}

package backend

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestCanned_Deterministic(t *testing.T) {
	c := NewCanned()
	req := GenerateRequest{Prompt: "instructions\nseverity: high\nsource: edr\n"}

	first, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("canned backend not deterministic:\n%s\n%s", first, second)
	}
}

func TestCanned_SchemaConformant(t *testing.T) {
	c := NewCanned()
	for _, sev := range []string{"informational", "low", "medium", "high", "critical"} {
		out, err := c.Generate(context.Background(), GenerateRequest{Prompt: "severity: " + sev + "\n"})
		if err != nil {
			t.Fatalf("severity %s: %v", sev, err)
		}
		var a struct {
			Category   string   `json:"category"`
			Rationale  string   `json:"rationale"`
			Confidence *float64 `json:"confidence"`
		}
		if err := json.Unmarshal([]byte(out), &a); err != nil {
			t.Fatalf("severity %s: invalid JSON: %v", sev, err)
		}
		if a.Category == "" || a.Rationale == "" || a.Confidence == nil {
			t.Errorf("severity %s: incomplete assessment %q", sev, out)
		}
	}
}

func TestCanned_CriticalEscalates(t *testing.T) {
	c := NewCanned()
	out, err := c.Generate(context.Background(), GenerateRequest{Prompt: "severity: critical\n"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "critical/active compromise") {
		t.Errorf("critical severity should produce the escalation category, got %q", out)
	}
}

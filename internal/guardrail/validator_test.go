package guardrail

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/invoke"
)

func testContext() *alert.Context {
	return &alert.Context{
		Fields: map[string]string{
			"source":    "edr",
			"timestamp": "2026-08-24T10:00:00Z",
		},
		Severity:   alert.SeverityHigh,
		Body:       "outbound connection to 10.0.0.5",
		Indicators: []string{"10.0.0.5"},
	}
}

func response(text string) *invoke.ModelResponse {
	return &invoke.ModelResponse{Text: text, Attempt: 1}
}

func assessment(category, rationale string, confidence float64) string {
	return fmt.Sprintf(`{"category":%q,"rationale":%q,"confidence":%g}`, category, rationale, confidence)
}

func TestValidate_Accept(t *testing.T) {
	v := NewValidator(DefaultConfig())
	verdict := v.Validate(response(assessment(
		CategorySuspicious,
		"Outbound connection to 10.0.0.5 is unusual for this host; recommend monitoring.",
		0.8,
	)), testContext())

	if verdict.Class != ClassAccept {
		t.Fatalf("expected ACCEPT, got %s with %v", verdict.Class, verdict.Violations)
	}
	if len(verdict.Violations) != 0 {
		t.Errorf("ACCEPT verdict must have no violations: %v", verdict.Violations)
	}
	if verdict.Confidence != 0.8 {
		t.Errorf("confidence not carried: %v", verdict.Confidence)
	}
}

func TestValidate_MissingConfidence(t *testing.T) {
	v := NewValidator(DefaultConfig())
	verdict := v.Validate(response(
		`{"category":"suspicious","rationale":"Outbound connection warrants a closer look by the on-call analyst."}`,
	), testContext())

	if verdict.Class != ClassReject {
		t.Fatalf("expected REJECT, got %s", verdict.Class)
	}
	found := false
	for _, viol := range verdict.Violations {
		if viol.RuleID == RuleSchema && viol.Detail == "missing confidence field" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected schema violation 'missing confidence field', got %v", verdict.Violations)
	}
}

func TestValidate_InvalidJSON(t *testing.T) {
	v := NewValidator(DefaultConfig())
	verdict := v.Validate(response("the alert looks fine to me"), testContext())
	if verdict.Class != ClassReject {
		t.Fatalf("expected REJECT, got %s", verdict.Class)
	}
	if got := verdict.RuleIDs(); len(got) != 1 || got[0] != RuleSchema {
		t.Errorf("expected single schema violation, got %v", got)
	}
}

func TestValidate_LengthBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinRationaleLen = 20
	cfg.MaxRationaleLen = 40
	v := NewValidator(cfg)

	short := v.Validate(response(assessment(CategoryBenign, "too short", 0.9)), testContext())
	if short.Class != ClassReject || short.Violations[0].RuleID != RuleLength {
		t.Errorf("short rationale: expected length REJECT, got %+v", short)
	}

	long := v.Validate(response(assessment(CategoryBenign,
		"this rationale is considerably longer than the configured maximum bound", 0.9)), testContext())
	if long.Class != ClassReject || long.Violations[0].RuleID != RuleLength {
		t.Errorf("long rationale: expected length REJECT, got %+v", long)
	}
}

func TestValidate_LowConfidence(t *testing.T) {
	v := NewValidator(DefaultConfig())
	verdict := v.Validate(response(assessment(
		CategoryBenign, "Routine activity with nothing anomalous in the supplied context.", 0.2,
	)), testContext())

	if verdict.Class != ClassReject {
		t.Fatalf("expected REJECT, got %s", verdict.Class)
	}
	if got := verdict.RuleIDs(); len(got) != 1 || got[0] != RuleLowConfidence {
		t.Errorf("expected low_confidence violation, got %v", got)
	}
	if verdict.Confidence != 0.2 {
		t.Errorf("declared confidence should still be carried: %v", verdict.Confidence)
	}
}

func TestValidate_UnsupportedClaim(t *testing.T) {
	v := NewValidator(DefaultConfig())
	verdict := v.Validate(response(assessment(
		CategoryMalicious,
		"Host beaconed to 203.0.113.9 which is a known command and control endpoint.",
		0.9,
	)), testContext())

	if verdict.Class != ClassReject {
		t.Fatalf("expected REJECT, got %s with %v", verdict.Class, verdict.Violations)
	}
	if got := verdict.RuleIDs(); len(got) != 1 || got[0] != RuleUnsupportedClaim {
		t.Errorf("expected unsupported_claim violation, got %v", got)
	}
}

func TestValidate_TechniqueIDsAlwaysAllowed(t *testing.T) {
	v := NewValidator(DefaultConfig())
	verdict := v.Validate(response(assessment(
		CategoryMalicious,
		"Connection to 10.0.0.5 is consistent with T1071.001 application layer protocol abuse.",
		0.9,
	)), testContext())

	if verdict.Class != ClassAccept {
		t.Errorf("technique IDs should not count as unsupported claims: %+v", verdict)
	}
}

func TestValidate_AllowedVocabulary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedVocabulary = []string{"virustotal.com"}
	v := NewValidator(cfg)

	verdict := v.Validate(response(assessment(
		CategorySuspicious,
		"Recommend checking the indicator 10.0.0.5 against virustotal.com before closing.",
		0.8,
	)), testContext())

	if verdict.Class != ClassAccept {
		t.Errorf("allow-listed vocabulary rejected: %+v", verdict)
	}
}

func TestValidate_EscalationByCategory(t *testing.T) {
	v := NewValidator(DefaultConfig())
	verdict := v.Validate(response(assessment(
		CategoryActiveCompromise,
		"Evidence in the supplied context indicates an attacker currently operating on the host.",
		0.95,
	)), testContext())

	if verdict.Class != ClassEscalate {
		t.Fatalf("expected ESCALATE, got %s", verdict.Class)
	}
	found := false
	for _, id := range verdict.RuleIDs() {
		if id == RuleEscalation {
			found = true
		}
	}
	if !found {
		t.Errorf("escalation_trigger not recorded: %v", verdict.RuleIDs())
	}
	if verdict.Category != CategoryActiveCompromise {
		t.Errorf("declared category not carried on the verdict: %q", verdict.Category)
	}
}

func TestValidate_EscalationKeywordOverridesReject(t *testing.T) {
	v := NewValidator(DefaultConfig())
	// Unparseable response that still carries an escalation keyword:
	// escalation wins over the schema REJECT.
	verdict := v.Validate(response("ALERT: ransomware note detected on the file server"), testContext())
	if verdict.Class != ClassEscalate {
		t.Fatalf("escalation must override REJECT, got %s with %v", verdict.Class, verdict.Violations)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	v := NewValidator(DefaultConfig())
	resp := response(assessment(CategorySuspicious, "short", 0.3))
	first := v.Validate(resp, testContext())
	second := v.Validate(resp, testContext())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("validation not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestValidate_CodeFencedJSON(t *testing.T) {
	v := NewValidator(DefaultConfig())
	fenced := "```json\n" + assessment(CategoryBenign,
		"Routine scheduled task execution with no anomalous indicators present.", 0.9) + "\n```"
	verdict := v.Validate(response(fenced), testContext())
	if verdict.Class != ClassAccept {
		t.Errorf("fenced JSON should parse, got %+v", verdict)
	}
}

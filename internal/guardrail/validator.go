package guardrail

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/invoke"
)

// Config holds the guardrail thresholds. All values are tunables; the
// defaults below are starting points, not calibrated constants.
type Config struct {
	// MinRationaleLen / MaxRationaleLen bound the rationale length in runes.
	// MaxRationaleLen <= 0 disables the upper bound.
	MinRationaleLen int
	MaxRationaleLen int

	// MinConfidence is the lowest declared confidence accepted.
	MinConfidence float64

	// EscalationKeywords force ESCALATE when present anywhere in the raw
	// response, case-insensitively.
	EscalationKeywords []string

	// AllowedVocabulary lists indicator-shaped terms a rationale may use
	// even when absent from the alert context, beyond MITRE technique IDs
	// which are always allowed.
	AllowedVocabulary []string
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		MinRationaleLen: 20,
		MaxRationaleLen: 1200,
		MinConfidence:   0.5,
		EscalationKeywords: []string{
			"active compromise",
			"ransomware",
			"isolate immediately",
			"hands-on-keyboard",
			"mass exfiltration",
		},
	}
}

// Validator applies the fixed rule chain:
// schema, length, low_confidence, unsupported_claim, escalation_trigger.
// The verdict is the most severe outcome triggered
// (ESCALATE > REJECT > ACCEPT).
type Validator struct {
	cfg      Config
	keywords []string
	vocab    map[string]bool
}

// NewValidator precomputes lowered keyword and vocabulary sets.
func NewValidator(cfg Config) *Validator {
	v := &Validator{cfg: cfg, vocab: make(map[string]bool, len(cfg.AllowedVocabulary))}
	for _, kw := range cfg.EscalationKeywords {
		v.keywords = append(v.keywords, strings.ToLower(kw))
	}
	for _, term := range cfg.AllowedVocabulary {
		v.vocab[strings.ToLower(term)] = true
	}
	return v
}

// Validate classifies one response against the alert context it answers.
func (v *Validator) Validate(resp *invoke.ModelResponse, ctx *alert.Context) Verdict {
	var violations []Violation

	assessment, schemaViolations := parseAssessment(resp.Text)
	violations = append(violations, schemaViolations...)

	category := ""
	confidence := 0.0
	if assessment != nil {
		category = assessment.Category
		if assessment.Confidence != nil && *assessment.Confidence >= 0 && *assessment.Confidence <= 1 {
			confidence = *assessment.Confidence
		}
		violations = append(violations, v.checkLength(assessment)...)
		violations = append(violations, v.checkConfidence(assessment)...)
		violations = append(violations, v.checkClaims(assessment, ctx)...)
	}

	escalations := v.checkEscalation(resp.Text, assessment)
	violations = append(violations, escalations...)

	class := ClassAccept
	switch {
	case len(escalations) > 0:
		class = ClassEscalate
	case len(violations) > 0:
		class = ClassReject
	}

	return Verdict{Class: class, Category: category, Violations: violations, Confidence: confidence}
}

// parseAssessment parses the response into the expected output schema.
// A nil assessment means the response was structurally unusable and the
// content rules cannot run.
func parseAssessment(text string) (*Assessment, []Violation) {
	raw := stripCodeFence(text)

	var a Assessment
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, []Violation{{RuleID: RuleSchema, Detail: "response is not a valid JSON object"}}
	}

	var violations []Violation
	if !knownCategories[a.Category] {
		violations = append(violations, Violation{
			RuleID: RuleSchema,
			Detail: fmt.Sprintf("unknown verdict category %q", a.Category),
		})
	}
	if strings.TrimSpace(a.Rationale) == "" {
		violations = append(violations, Violation{RuleID: RuleSchema, Detail: "missing rationale"})
	}
	if a.Confidence == nil {
		violations = append(violations, Violation{RuleID: RuleSchema, Detail: "missing confidence field"})
	} else if *a.Confidence < 0 || *a.Confidence > 1 {
		violations = append(violations, Violation{
			RuleID: RuleSchema,
			Detail: fmt.Sprintf("confidence %v outside [0,1]", *a.Confidence),
		})
	}
	return &a, violations
}

func (v *Validator) checkLength(a *Assessment) []Violation {
	n := len([]rune(a.Rationale))
	if n < v.cfg.MinRationaleLen {
		return []Violation{{
			RuleID: RuleLength,
			Detail: fmt.Sprintf("rationale length %d below minimum %d", n, v.cfg.MinRationaleLen),
		}}
	}
	if v.cfg.MaxRationaleLen > 0 && n > v.cfg.MaxRationaleLen {
		return []Violation{{
			RuleID: RuleLength,
			Detail: fmt.Sprintf("rationale length %d above maximum %d", n, v.cfg.MaxRationaleLen),
		}}
	}
	return nil
}

func (v *Validator) checkConfidence(a *Assessment) []Violation {
	if a.Confidence == nil {
		return nil // already a schema violation
	}
	if *a.Confidence < v.cfg.MinConfidence {
		return []Violation{{
			RuleID: RuleLowConfidence,
			Detail: fmt.Sprintf("declared confidence %.2f below minimum %.2f", *a.Confidence, v.cfg.MinConfidence),
		}}
	}
	return nil
}

// checkClaims flags indicator-shaped terms in the rationale that are absent
// from the alert's fact base and not allow-listed. MITRE technique IDs are
// generic vocabulary and always pass.
func (v *Validator) checkClaims(a *Assessment, ctx *alert.Context) []Violation {
	supported := make(map[string]bool, len(ctx.Indicators))
	for _, ind := range ctx.Indicators {
		supported[strings.ToLower(ind)] = true
	}

	var violations []Violation
	for _, ind := range alert.ExtractIndicators(a.Rationale) {
		if alert.IsTechniqueID(ind) {
			continue
		}
		key := strings.ToLower(ind)
		if supported[key] || v.vocab[key] {
			continue
		}
		violations = append(violations, Violation{
			RuleID: RuleUnsupportedClaim,
			Detail: fmt.Sprintf("indicator %q is not present in the alert context", ind),
		})
	}
	return violations
}

// checkEscalation fires on the active-compromise category or on any
// configured keyword anywhere in the raw response, regardless of the other
// rule outcomes.
func (v *Validator) checkEscalation(text string, a *Assessment) []Violation {
	if a != nil && a.Category == CategoryActiveCompromise {
		return []Violation{{
			RuleID: RuleEscalation,
			Detail: "model classified the alert as critical/active compromise",
		}}
	}
	lowered := strings.ToLower(text)
	for _, kw := range v.keywords {
		if strings.Contains(lowered, kw) {
			return []Violation{{
				RuleID: RuleEscalation,
				Detail: fmt.Sprintf("response contains escalation keyword %q", kw),
			}}
		}
	}
	return nil
}

// stripCodeFence unwraps a fenced response so models that wrap JSON in
// markdown fences still parse.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

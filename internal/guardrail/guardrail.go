// Package guardrail inspects raw model responses and classifies them as
// ACCEPT, REJECT, or ESCALATE. Evaluation is pure and deterministic given a
// response and the configured thresholds; no external calls are made.
package guardrail

// Class is the guardrail classification of one model response.
type Class string

const (
	ClassAccept   Class = "ACCEPT"
	ClassReject   Class = "REJECT"
	ClassEscalate Class = "ESCALATE"
)

// Stable rule identifiers, recorded on violations for auditability.
const (
	RuleSchema           = "schema"
	RuleLength           = "length"
	RuleLowConfidence    = "low_confidence"
	RuleUnsupportedClaim = "unsupported_claim"
	RuleEscalation       = "escalation_trigger"
)

// SOC verdict categories the model is allowed to emit.
const (
	CategoryBenign           = "benign"
	CategorySuspicious       = "suspicious"
	CategoryMalicious        = "malicious"
	CategoryActiveCompromise = "critical/active compromise"
)

var knownCategories = map[string]bool{
	CategoryBenign:           true,
	CategorySuspicious:       true,
	CategoryMalicious:        true,
	CategoryActiveCompromise: true,
}

// Violation records one triggered rule with a human-readable detail. The
// detail feeds the corrective note on feedback-augmented retries.
type Violation struct {
	RuleID string
	Detail string
}

// Verdict is the guardrail classification of one response. Violations is
// empty iff the class is ACCEPT. Category and Confidence echo the model's
// declared values when the response parsed, else "" and 0.
type Verdict struct {
	Class      Class
	Category   string
	Violations []Violation
	Confidence float64
}

// RuleIDs returns the identifiers of all violated rules, in rule-chain order.
func (v Verdict) RuleIDs() []string {
	ids := make([]string, len(v.Violations))
	for i, viol := range v.Violations {
		ids[i] = viol.RuleID
	}
	return ids
}

// Assessment is the structured output schema the model must produce.
// Confidence is a pointer so a missing field is distinguishable from 0.
type Assessment struct {
	Category   string   `json:"category"`
	Rationale  string   `json:"rationale"`
	Confidence *float64 `json:"confidence"`
}

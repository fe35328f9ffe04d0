package backend

import (
	"context"
	"encoding/json"
	"regexp"
)

// CannedBackend is the deterministic offline provider. It reads the
// severity line out of the rendered prompt and answers with a fixed,
// schema-conformant assessment for that severity. Useful for dry runs,
// demos without a credential, and pipeline tests.
type CannedBackend struct{}

func NewCanned() *CannedBackend { return &CannedBackend{} }

func (c *CannedBackend) Name() string { return "canned" }

var severityLinePattern = regexp.MustCompile(`(?m)^severity: (\w+)$`)

type cannedAssessment struct {
	Category   string  `json:"category"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

func (c *CannedBackend) Generate(_ context.Context, req GenerateRequest) (string, error) {
	severity := ""
	if m := severityLinePattern.FindStringSubmatch(req.Prompt); m != nil {
		severity = m[1]
	}

	var a cannedAssessment
	switch severity {
	case "critical":
		a = cannedAssessment{
			Category:   "critical/active compromise",
			Rationale:  "Critical-severity alert consistent with an active compromise; isolate immediately and page the on-call responder.",
			Confidence: 0.95,
		}
	case "high":
		a = cannedAssessment{
			Category:   "malicious",
			Rationale:  "High-severity alert with indicators consistent with malicious activity; recommend containment and follow-up review.",
			Confidence: 0.85,
		}
	case "medium":
		a = cannedAssessment{
			Category:   "suspicious",
			Rationale:  "Medium-severity alert with ambiguous indicators; recommend monitoring and secondary log review before action.",
			Confidence: 0.7,
		}
	default:
		a = cannedAssessment{
			Category:   "benign",
			Rationale:  "Low-severity alert matching routine activity patterns; no indicators of compromise observed in the supplied context.",
			Confidence: 0.9,
		}
	}

	out, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

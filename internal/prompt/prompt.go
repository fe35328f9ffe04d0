// Package prompt builds deterministic prompt payloads for a target SOC role
// from a normalized alert context and the threat-example corpus.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/corpus"
)

// Role selects the analyst persona the model is asked to adopt.
type Role string

const (
	RoleTriage     Role = "TRIAGE"
	RoleEscalation Role = "ESCALATION"
	RoleSummary    Role = "SUMMARY"
)

// ParseRole maps a CLI/config label to a Role.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRIAGE":
		return RoleTriage, true
	case "ESCALATION":
		return RoleEscalation, true
	case "SUMMARY":
		return RoleSummary, true
	default:
		return "", false
	}
}

var roleInstructions = map[Role]string{
	RoleTriage: "You are a SOC analyst focused on alert triage and initial investigation. " +
		"Prioritize high-confidence facts from the supplied alert, state triage steps, and " +
		"indicate escalation criteria. Use a calm, operational tone and avoid speculation.",
	RoleEscalation: "You are a senior SOC analyst reviewing an alert for escalation. " +
		"Assess whether the evidence indicates an active or imminent compromise requiring " +
		"immediate human response. Cite only facts present in the supplied alert.",
	RoleSummary: "You are a SOC analyst writing a concise incident summary for hand-off. " +
		"Summarize what the alert shows, its assessed impact, and recommended next steps, " +
		"using only facts present in the supplied alert.",
}

// Payload is one prompt attempt: role, alert context, grounding examples and
// an optional corrective note carried over from a rejected prior attempt.
// A Payload is built once per attempt and never mutated.
type Payload struct {
	Role           Role
	Context        *alert.Context
	Examples       []corpus.Example
	CorrectiveNote string
	Attempt        int
}

// Render produces the full prompt text. Rendering is deterministic: field
// lines are emitted in sorted key order and examples in selection order.
func (p *Payload) Render() string {
	var sb strings.Builder

	sb.WriteString(roleInstructions[p.Role])
	sb.WriteString("\n\n## Alert\n")
	sb.WriteString("severity: ")
	sb.WriteString(string(p.Context.Severity))
	sb.WriteByte('\n')

	keys := make([]string, 0, len(p.Context.Fields))
	for k := range p.Context.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s: %s\n", k, p.Context.Fields[k])
	}
	if p.Context.Body != "" {
		sb.WriteString("body: |\n")
		sb.WriteString(p.Context.Body)
		sb.WriteByte('\n')
	}

	if len(p.Examples) > 0 {
		sb.WriteString("\n## Past verdicts for similar alerts\n")
		for i, ex := range p.Examples {
			fmt.Fprintf(&sb, "[%d] severity=%s verdict=%s", i+1, ex.Severity, ex.Verdict)
			if ex.Body != "" {
				fmt.Fprintf(&sb, ": %s", ex.Body)
			}
			sb.WriteByte('\n')
		}
	}

	if p.CorrectiveNote != "" {
		sb.WriteString("\n## Corrective note\n")
		sb.WriteString(p.CorrectiveNote)
		sb.WriteByte('\n')
	}

	sb.WriteString("\n## Output format\n")
	sb.WriteString(`Respond with a single JSON object and nothing else:
{"category": "<benign|suspicious|malicious|critical/active compromise>", "rationale": "<grounded explanation>", "confidence": <0.0-1.0>}
`)

	return sb.String()
}

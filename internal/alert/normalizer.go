package alert

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultBodyLimit is the body truncation cap in runes when none is configured.
const DefaultBodyLimit = 4000

// requiredFields must be present and non-empty in every raw record.
var requiredFields = []string{"source", "timestamp"}

// Normalizer converts raw records into canonical Contexts.
// Normalization is deterministic: the same raw record always yields the
// same Context.
type Normalizer struct {
	// BodyLimit caps the free-text body length in runes. Zero means
	// DefaultBodyLimit. Truncation is lossy and is recorded by setting the
	// "truncated" field flag rather than silently dropping data.
	BodyLimit int
}

// Normalize validates and converts one raw record.
// Returns ErrMalformedInput (wrapped with the offending field) when a
// required field is absent.
func (n *Normalizer) Normalize(raw RawRecord) (*Context, error) {
	if raw.Fields == nil {
		return nil, fmt.Errorf("%w: no fields", ErrMalformedInput)
	}
	for _, name := range requiredFields {
		if strings.TrimSpace(raw.Fields[name]) == "" {
			return nil, fmt.Errorf("%w: missing required field %q", ErrMalformedInput, name)
		}
	}

	fields := make(map[string]string, len(raw.Fields)+2)
	for k, v := range raw.Fields {
		fields[k] = v
	}

	severity, _ := ParseSeverity(fields["severity"])

	body := raw.Body
	if containsSmuggledRunes(body) {
		fields["unicode_suspect"] = "true"
		body = stripSmuggledRunes(body)
	}

	limit := n.BodyLimit
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	if runes := []rune(body); len(runes) > limit {
		body = string(runes[:limit])
		fields["truncated"] = "true"
	}

	return &Context{
		Fields:     fields,
		Severity:   severity,
		Body:       body,
		Indicators: extractContextIndicators(fields, body),
	}, nil
}

// extractContextIndicators collects indicators from field values (in sorted
// key order, for determinism) and the truncated body.
func extractContextIndicators(fields map[string]string, body string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fields[k])
		sb.WriteByte('\n')
	}
	sb.WriteString(body)

	return ExtractIndicators(sb.String())
}

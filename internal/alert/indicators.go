package alert

import (
	"regexp"
	"strings"
)

// Indicator extraction is shared between the normalizer (which records the
// fact base of a Context) and the guardrail validator (which checks that a
// model rationale does not assert indicators absent from that fact base).

var (
	ipv4Pattern      = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	sha256Pattern    = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
	md5Pattern       = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	techniquePattern = regexp.MustCompile(`\bT\d{4}(?:\.\d{3})?\b`)

	// Domains are matched conservatively against a fixed TLD set so that
	// ordinary prose ("e.g.", file names) does not register as an indicator.
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)*\.(?:com|net|org|io|ru|cn|info|biz|xyz|top|onion)\b`)
)

// ExtractIndicators returns the deduplicated technical indicators found in
// text, in order of first appearance. Hashes and domains are lowercased so
// lookups are case-insensitive.
func ExtractIndicators(text string) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(matches []string, lower bool) {
		for _, m := range matches {
			if lower {
				m = strings.ToLower(m)
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	add(ipv4Pattern.FindAllString(text, -1), false)
	add(sha256Pattern.FindAllString(text, -1), true)
	add(md5Pattern.FindAllString(text, -1), true)
	add(techniquePattern.FindAllString(text, -1), false)
	add(domainPattern.FindAllString(text, -1), true)

	return out
}

// IsTechniqueID reports whether the indicator is a MITRE ATT&CK technique
// reference (e.g., T1059 or T1059.001). Technique IDs are generic vocabulary
// and are never treated as alert-specific facts.
func IsTechniqueID(s string) bool {
	return techniquePattern.MatchString(s) && len(techniquePattern.FindString(s)) == len(s)
}

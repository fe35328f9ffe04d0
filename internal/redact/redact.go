// Package redact scrubs credential material from alert text before it is
// written to the audit log. Alert bodies arrive from arbitrary log sources
// and routinely contain tokens, connection strings, and key material that
// must not be persisted alongside triage verdicts.
package redact

import (
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

var secretPatterns = []*regexp.Regexp{
	// Cloud provider keys
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`(?i)(aws_access_key_id|aws_secret_access_key|aws_session_token)\s*[=:]\s*['"]?[A-Za-z0-9/+=]{20,}['"]?`),

	// VCS tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`(?i)(github_token|gh_token|github_pat)\s*[=:]\s*['"]?[A-Za-z0-9_-]{30,}['"]?`),

	// Generic API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access_token|auth_token)\s*[=:]\s*['"]?[A-Za-z0-9_-]{16,}['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9_.-]{20,}`),

	// Key material and credentialed URLs
	regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`),
	regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@`),

	// Messaging platform tokens
	regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`),

	// Password assignments
	regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[=:]\s*['"]?[^\s'"]{8,}['"]?`),
}

// sensitiveFieldNames marks alert fields whose values are scrubbed wholesale.
var sensitiveFieldNames = []string{
	"password", "passwd", "secret", "token", "api_key", "apikey",
	"authorization", "credential",
}

// Text replaces credential-shaped substrings with a placeholder.
func Text(input string) string {
	out := input
	for _, p := range secretPatterns {
		out = p.ReplaceAllString(out, placeholder)
	}
	return out
}

// Fields returns a copy of an alert field map with sensitive field values
// replaced and the remaining values pattern-scrubbed. The input is not
// modified.
func Fields(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if isSensitiveField(k) {
			out[k] = placeholder
			continue
		}
		out[k] = Text(v)
	}
	return out
}

func isSensitiveField(name string) bool {
	lowered := strings.ToLower(name)
	for _, s := range sensitiveFieldNames {
		if strings.Contains(lowered, s) {
			return true
		}
	}
	return false
}

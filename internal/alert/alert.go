// Package alert defines the canonical representation of one incoming
// incident/log entry and the normalizer that produces it from a raw record.
package alert

import (
	"errors"
	"strings"
)

// ErrMalformedInput is returned when a raw record is missing required fields.
// It is surfaced to the caller before any pipeline run begins.
var ErrMalformedInput = errors.New("malformed input record")

// Severity is the normalized severity estimate of an alert.
type Severity string

const (
	SeverityInformational Severity = "informational"
	SeverityLow           Severity = "low"
	SeverityMedium        Severity = "medium"
	SeverityHigh          Severity = "high"
	SeverityCritical      Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInformational: 0,
	SeverityLow:           1,
	SeverityMedium:        2,
	SeverityHigh:          3,
	SeverityCritical:      4,
}

// Rank returns a numeric ordering for severity comparison.
// Unknown severities rank as informational.
func (s Severity) Rank() int {
	return severityRank[s]
}

// ParseSeverity maps a raw severity label to a Severity.
// Common aliases from upstream alert sources are accepted.
func ParseSeverity(raw string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "informational", "info", "none":
		return SeverityInformational, true
	case "low":
		return SeverityLow, true
	case "medium", "warning", "moderate":
		return SeverityMedium, true
	case "high", "error":
		return SeverityHigh, true
	case "critical", "fatal":
		return SeverityCritical, true
	default:
		return SeverityInformational, false
	}
}

// RawRecord is one record as supplied by the ingestion layer: key/value
// fields plus optional free-text body. The schema beyond that is owned by
// the external alert source.
type RawRecord struct {
	Fields map[string]string `json:"fields" yaml:"fields"`
	Body   string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// Context is the canonical, normalized form of one alert. It is immutable
// once produced: the normalizer copies the field map and nothing mutates a
// Context after Normalize returns.
type Context struct {
	Fields     map[string]string
	Severity   Severity
	Body       string
	Indicators []string // IPs, hashes, domains, technique IDs found in fields+body
}

// Field returns the named field, or "" when absent.
func (c *Context) Field(name string) string {
	return c.Fields[name]
}

// Source returns the alert's originating system.
func (c *Context) Source() string {
	return c.Fields["source"]
}

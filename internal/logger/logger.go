// Package logger appends one JSONL audit record per pipeline run. The audit
// trail is the output sink of record: every ExecutionResult lands here,
// whatever its outcome.
package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/opensoc/triagent/internal/executor"
	"github.com/opensoc/triagent/internal/redact"
)

// AuditEvent is one line of the audit log.
type AuditEvent struct {
	Timestamp      string            `json:"timestamp"`
	RunID          string            `json:"run_id"`
	Source         string            `json:"source"`
	Severity       string            `json:"severity"`
	Role           string            `json:"role"`
	Outcome        string            `json:"outcome"`
	Fields         map[string]string `json:"fields,omitempty"`
	Attempts       int               `json:"attempts"`
	TriggeredRules []string          `json:"triggered_rules,omitempty"`
	Confidence     float64           `json:"confidence,omitempty"`
	Rationale      string            `json:"rationale,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	UserAction     string            `json:"user_action,omitempty"`
	LatencyMS      int64             `json:"latency_ms"`
}

// FromResult flattens an ExecutionResult into an audit event.
func FromResult(res *executor.Result) AuditEvent {
	ev := AuditEvent{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		RunID:         res.RunID,
		Source:        res.Context.Source(),
		Severity:      string(res.Context.Severity),
		Role:          string(res.Role),
		Outcome:       string(res.Outcome),
		Fields:        res.Context.Fields,
		Attempts:      res.Attempts,
		FailureReason: res.FailureReason,
		LatencyMS:     res.Elapsed.Milliseconds(),
	}
	if res.Verdict != nil {
		ev.TriggeredRules = res.Verdict.RuleIDs()
		ev.Confidence = res.Verdict.Confidence
	}
	if res.Response != nil {
		ev.Rationale = res.Response.Text
	}
	return ev
}

// AuditLogger is a mutex-guarded JSONL appender, safe for concurrent runs.
type AuditLogger struct {
	file *os.File
	mu   sync.Mutex
}

// New opens (or creates) the audit log for appending.
func New(path string) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: file}, nil
}

// Log redacts free-text fields and appends the event as one JSON line.
func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.Fields = redact.Fields(event.Fields)
	event.Rationale = redact.Text(event.Rationale)
	event.FailureReason = redact.Text(event.FailureReason)

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

// Close releases the underlying file.
func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

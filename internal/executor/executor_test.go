package executor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/backend"
	"github.com/opensoc/triagent/internal/corpus"
	"github.com/opensoc/triagent/internal/guardrail"
	"github.com/opensoc/triagent/internal/invoke"
	"github.com/opensoc/triagent/internal/prompt"
)

// scriptedBackend replays canned replies in order (the last one repeats)
// and records every prompt it was sent.
type scriptedBackend struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
	delay   time.Duration
}

type scriptedReply struct {
	text string
	err  error
}

func (s *scriptedBackend) Name() string { return "scripted" }

func (s *scriptedBackend) Generate(ctx context.Context, req backend.GenerateRequest) (string, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, req.Prompt)
	i := len(s.prompts) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	r := s.replies[i]
	return r.text, r.err
}

func (s *scriptedBackend) sentPrompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

const (
	acceptedReply = `{"category":"suspicious","rationale":"The alert shows activity that warrants analyst review before closing.","confidence":0.8}`
	lowConfReply  = `{"category":"suspicious","rationale":"The alert shows activity that warrants analyst review before closing.","confidence":0.1}`
	noConfReply   = `{"category":"suspicious","rationale":"The alert shows activity that warrants analyst review before closing."}`
	escalateReply = `{"category":"critical/active compromise","rationale":"The supplied alert is consistent with an attacker active on the host right now.","confidence":0.95}`
)

func testAlert(sev alert.Severity, body string) *alert.Context {
	return &alert.Context{
		Fields: map[string]string{
			"source":    "edr",
			"timestamp": "2026-08-24T10:00:00Z",
		},
		Severity: sev,
		Body:     body,
	}
}

func newTestExecutor(t *testing.T, b backend.Backend, limits invoke.Limits, cfg Config) *Executor {
	t.Helper()
	c, err := corpus.New([]corpus.Example{
		{Name: "a", Severity: "low", Verdict: "benign"},
		{Name: "b", Severity: "high", Verdict: "malicious"},
		{Name: "c", Severity: "critical", Verdict: "critical/active compromise"},
	})
	if err != nil {
		t.Fatal(err)
	}
	builder := prompt.NewBuilder(c, 2)
	validator := guardrail.NewValidator(guardrail.DefaultConfig())
	return New(builder, invoke.New(b, limits), validator, cfg)
}

func TestExecute_Resolved(t *testing.T) {
	sb := &scriptedBackend{replies: []scriptedReply{{text: acceptedReply}}}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{MaxAttempts: 3})

	res := e.Execute(context.Background(), testAlert(alert.SeverityMedium, ""), prompt.RoleTriage)

	if res.Outcome != OutcomeResolved {
		t.Fatalf("expected RESOLVED, got %s (%s)", res.Outcome, res.FailureReason)
	}
	if res.FinalState != StateAccepted {
		t.Errorf("expected final state ACCEPTED, got %s", res.FinalState)
	}
	if res.Attempts != 1 || len(res.History) != 1 {
		t.Errorf("expected one attempt, got %d (%d history entries)", res.Attempts, len(res.History))
	}
	if res.Response == nil || res.Verdict == nil || res.Verdict.Class != guardrail.ClassAccept {
		t.Errorf("accepted response/verdict not populated: %+v", res)
	}
	if res.RunID == "" {
		t.Errorf("run ID missing")
	}
}

func TestExecute_EscalatesImmediately(t *testing.T) {
	// Escalation on the first response terminates the run with attempt
	// budget remaining.
	sb := &scriptedBackend{replies: []scriptedReply{{text: escalateReply}}}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{MaxAttempts: 5})

	res := e.Execute(context.Background(), testAlert(alert.SeverityCritical, "ransomware note detected"), prompt.RoleTriage)

	if res.Outcome != OutcomeEscalated {
		t.Fatalf("expected ESCALATED, got %s", res.Outcome)
	}
	if res.Attempts != 1 {
		t.Errorf("escalation must not be retried: %d attempts", res.Attempts)
	}
	if res.Response == nil {
		t.Errorf("escalated result must carry the flagged response")
	}
	if res.Verdict == nil || res.Verdict.Class != guardrail.ClassEscalate {
		t.Errorf("escalation verdict not surfaced: %+v", res.Verdict)
	}
}

func TestExecute_RejectRetriesWithCorrectiveNote(t *testing.T) {
	sb := &scriptedBackend{replies: []scriptedReply{
		{text: noConfReply},
		{text: acceptedReply},
	}}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{MaxAttempts: 3})

	res := e.Execute(context.Background(), testAlert(alert.SeverityMedium, ""), prompt.RoleTriage)

	if res.Outcome != OutcomeResolved {
		t.Fatalf("expected RESOLVED after retry, got %s (%s)", res.Outcome, res.FailureReason)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}

	prompts := sb.sentPrompts()
	if strings.Contains(prompts[0], "Corrective note") {
		t.Errorf("first prompt must not carry a corrective note")
	}
	if !strings.Contains(prompts[1], "missing confidence field") {
		t.Errorf("retry prompt missing the rule-violation summary:\n%s", prompts[1])
	}
}

func TestExecute_AllRejectsFail(t *testing.T) {
	sb := &scriptedBackend{replies: []scriptedReply{{text: lowConfReply}}}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{MaxAttempts: 3})

	res := e.Execute(context.Background(), testAlert(alert.SeverityMedium, ""), prompt.RoleTriage)

	if res.Outcome != OutcomeFailed || res.FailureReason != ReasonMaxAttempts {
		t.Fatalf("expected FAILED/max_attempts, got %s/%s", res.Outcome, res.FailureReason)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	for i, at := range res.History {
		if at.Verdict == nil || at.Verdict.Class != guardrail.ClassReject {
			t.Errorf("history entry %d should retain a REJECT verdict: %+v", i, at)
		}
	}
	if res.Response != nil {
		t.Errorf("FAILED result must not expose a response")
	}
	if res.Verdict == nil {
		t.Errorf("FAILED result should surface the last verdict")
	}
}

func TestExecute_RateLimitConsumesAttempts(t *testing.T) {
	sb := &scriptedBackend{replies: []scriptedReply{{text: lowConfReply}}}
	e := newTestExecutor(t, sb,
		invoke.Limits{RequestsPerWindow: 1, Window: time.Hour},
		Config{MaxAttempts: 2})

	res := e.Execute(context.Background(), testAlert(alert.SeverityMedium, ""), prompt.RoleTriage)

	if res.Outcome != OutcomeFailed || res.FailureReason != ReasonMaxAttempts {
		t.Fatalf("expected FAILED/max_attempts, got %s/%s", res.Outcome, res.FailureReason)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", res.Attempts)
	}
	if res.History[1].Err == "" || !strings.Contains(res.History[1].Err, "rate limit") {
		t.Errorf("second attempt should record the rate-limit error: %+v", res.History[1])
	}
}

func TestExecute_BackendUnavailableIsTerminal(t *testing.T) {
	sb := &scriptedBackend{replies: []scriptedReply{{err: backend.ErrUnavailable}}}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{MaxAttempts: 3})

	res := e.Execute(context.Background(), testAlert(alert.SeverityMedium, ""), prompt.RoleTriage)

	if res.Outcome != OutcomeFailed || res.FailureReason != ReasonBackendUnavailable {
		t.Fatalf("expected FAILED/backend_unavailable, got %s/%s", res.Outcome, res.FailureReason)
	}
	if res.Attempts != 1 {
		t.Errorf("unavailable backend should not be retried: %d attempts", res.Attempts)
	}
}

func TestExecute_Cancellation(t *testing.T) {
	sb := &scriptedBackend{
		replies: []scriptedReply{{text: acceptedReply}},
		delay:   time.Second,
	}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{MaxAttempts: 3})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := e.Execute(ctx, testAlert(alert.SeverityMedium, ""), prompt.RoleTriage)

	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected FAILED on cancellation, got %s", res.Outcome)
	}
	if res.FailureReason != ReasonCancelled {
		t.Errorf("expected reason %q, got %q", ReasonCancelled, res.FailureReason)
	}
}

func TestExecute_RunDeadlineBackstop(t *testing.T) {
	// Every attempt rejects; the per-run ceiling fires before the attempt
	// budget is spent.
	sb := &scriptedBackend{replies: []scriptedReply{{text: lowConfReply}}, delay: 20 * time.Millisecond}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{
		MaxAttempts: 100,
		RunTimeout:  50 * time.Millisecond,
	})

	res := e.Execute(context.Background(), testAlert(alert.SeverityMedium, ""), prompt.RoleTriage)

	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected FAILED, got %s", res.Outcome)
	}
	if res.FailureReason != ReasonRunDeadline {
		t.Errorf("expected reason %q, got %q", ReasonRunDeadline, res.FailureReason)
	}
	if res.Attempts >= 100 {
		t.Errorf("run ceiling did not bound the attempts: %d", res.Attempts)
	}
}

func TestPool_RunsAllTasks(t *testing.T) {
	sb := &scriptedBackend{replies: []scriptedReply{{text: acceptedReply}}}
	e := newTestExecutor(t, sb, invoke.Limits{}, Config{MaxAttempts: 2})
	p := NewPool(e, 3)

	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{Context: testAlert(alert.SeverityMedium, ""), Role: prompt.RoleTriage}
	}

	results := p.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Fatalf("expected %d results, got %d", len(tasks), len(results))
	}
	for i, res := range results {
		if res == nil {
			t.Fatalf("task %d produced no result", i)
		}
		if res.Outcome != OutcomeResolved {
			t.Errorf("task %d: expected RESOLVED, got %s", i, res.Outcome)
		}
	}
}

package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/prompt"
)

// Task pairs one normalized alert with the role it should be triaged under.
type Task struct {
	Context *alert.Context
	Role    prompt.Role
}

// DefaultConcurrency is the run ceiling when none is configured.
const DefaultConcurrency = 4

// Pool executes many independent runs concurrently under a configured
// ceiling. Runs share only the invoker's process-wide rate limiter and
// read-only corpus; results land at the index of their task.
type Pool struct {
	exec        *Executor
	concurrency int
}

// NewPool wraps an executor with a concurrency ceiling.
func NewPool(e *Executor, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pool{exec: e, concurrency: concurrency}
}

// Run processes all tasks and returns one Result per task, in task order.
// Individual failures are ordinary FAILED results; Run itself never fails.
func (p *Pool) Run(ctx context.Context, tasks []Task) []*Result {
	results := make([]*Result, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = p.exec.Execute(gctx, task.Context, task.Role)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

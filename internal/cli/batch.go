package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/config"
	"github.com/opensoc/triagent/internal/executor"
	"github.com/opensoc/triagent/internal/logger"
	"github.com/opensoc/triagent/internal/prompt"
)

var batchRole string

var batchCmd = &cobra.Command{
	Use:   "batch [alerts.jsonl]",
	Short: "Triage a feed of alerts concurrently",
	Long: `Run a JSONL feed of alerts (one JSON record per line) through the
pipeline with bounded concurrency. Escalations are left unacknowledged for
analyst follow-up; every run is written to the audit log.

Example:
  triagent batch feed.jsonl
  tail -n 100 siem-export.jsonl | triagent batch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchRole, "role", "triage", "Prompt role: triage, escalation or summary")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, corpusPath, logPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := checkLockout(cfg); err != nil {
		return err
	}

	role, ok := prompt.ParseRole(batchRole)
	if !ok {
		return fmt.Errorf("unknown role %q", batchRole)
	}

	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening feed: %w", err)
		}
		defer f.Close()
		in = f
	}

	tasks, skipped, err := readFeed(in, role, cfg.Batch.Limit)
	if err != nil {
		return err
	}
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "warning: skipped %d malformed record(s)\n", skipped)
	}
	if len(tasks) == 0 {
		return fmt.Errorf("feed contained no valid alerts")
	}

	auditLogger, err := logger.New(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize audit logger: %w", err)
	}
	defer auditLogger.Close()

	ctx := context.Background()
	exec, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	pool := executor.NewPool(exec, cfg.Batch.Concurrency)
	results := pool.Run(ctx, tasks)

	var resolved, escalated, failed int
	for _, res := range results {
		event := logger.FromResult(res)
		switch res.Outcome {
		case executor.OutcomeResolved:
			resolved++
		case executor.OutcomeEscalated:
			escalated++
			event.UserAction = "auto_unacknowledged"
		default:
			failed++
		}
		if err := auditLogger.Log(event); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write audit log: %v\n", err)
		}
		fmt.Printf("%-9s %-8s %s\n", res.Outcome, res.Context.Severity, res.Context.Source())
	}

	fmt.Printf("\n%d alert(s): %d resolved, %d escalated, %d failed\n",
		len(results), resolved, escalated, failed)

	switch {
	case escalated > 0:
		os.Exit(2)
	case failed > 0:
		os.Exit(1)
	}
	return nil
}

// readFeed parses up to limit records from a JSONL stream. Malformed lines
// and records that fail normalization are counted, not fatal: one bad alert
// in a feed must not sink the rest.
func readFeed(in io.Reader, role prompt.Role, limit int) ([]executor.Task, int, error) {
	norm := alert.Normalizer{}

	var tasks []executor.Task
	skipped := 0
	truncated := false

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if limit > 0 && len(tasks) >= limit {
			truncated = true
			break
		}

		var rec alert.RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			skipped++
			continue
		}
		actx, err := norm.Normalize(rec)
		if err != nil {
			skipped++
			continue
		}
		tasks = append(tasks, executor.Task{Context: actx, Role: role})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading feed: %w", err)
	}
	if truncated {
		fmt.Fprintf(os.Stderr, "warning: feed truncated to batch limit of %d alert(s)\n", limit)
	}
	return tasks, skipped, nil
}

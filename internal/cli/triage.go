package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opensoc/triagent/internal/alert"
	"github.com/opensoc/triagent/internal/approval"
	"github.com/opensoc/triagent/internal/config"
	"github.com/opensoc/triagent/internal/executor"
	"github.com/opensoc/triagent/internal/logger"
	"github.com/opensoc/triagent/internal/prompt"
)

var triageRole string

var triageCmd = &cobra.Command{
	Use:   "triage [alert.json]",
	Short: "Run one alert through the triage pipeline",
	Long: `Run a single alert through the pipeline and print the verdict.
The alert is read as JSON from the given file, or from stdin when no file
(or "-") is given.

Exit codes: 0 resolved, 2 escalated, 1 failed or error.

Example:
  triagent triage alert.json
  cat alert.json | triagent triage --role escalation`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTriage,
}

func init() {
	triageCmd.Flags().StringVar(&triageRole, "role", "triage", "Prompt role: triage, escalation or summary")
	rootCmd.AddCommand(triageCmd)
}

func runTriage(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, corpusPath, logPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := checkLockout(cfg); err != nil {
		return err
	}

	role, ok := prompt.ParseRole(triageRole)
	if !ok {
		return fmt.Errorf("unknown role %q", triageRole)
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	rec, err := readRecord(path)
	if err != nil {
		return err
	}

	norm := alert.Normalizer{}
	actx, err := norm.Normalize(rec)
	if err != nil {
		return err
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

	res := exec.Execute(ctx, actx, role)
	event := logger.FromResult(res)

	if res.Outcome == executor.OutcomeEscalated {
		act := approval.Ask(escalationPrompt(res))
		event.UserAction = act.UserAction
	}

	if err := auditLogger.Log(event); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write audit log: %v\n", err)
	}

	printResult(res)
	os.Exit(exitCode(res.Outcome))
	return nil
}

func escalationPrompt(res *executor.Result) approval.Prompt {
	p := approval.Prompt{Source: res.Context.Source()}
	if res.Verdict != nil {
		p.Category = res.Verdict.Category
		p.TriggeredRules = res.Verdict.RuleIDs()
		for _, v := range res.Verdict.Violations {
			p.Reasons = append(p.Reasons, v.Detail)
		}
	}
	return p
}

func printResult(res *executor.Result) {
	fmt.Printf("run:     %s\n", res.RunID)
	fmt.Printf("source:  %s (%s)\n", res.Context.Source(), res.Context.Severity)
	fmt.Printf("outcome: %s\n", res.Outcome)
	fmt.Printf("attempts: %d (%.2fs)\n", res.Attempts, res.Elapsed.Seconds())

	switch res.Outcome {
	case executor.OutcomeResolved:
		fmt.Printf("\n%s\n", res.Response.Text)
	case executor.OutcomeEscalated:
		if res.Verdict != nil && len(res.Verdict.Violations) > 0 {
			fmt.Printf("escalation: %s\n", strings.Join(res.Verdict.RuleIDs(), ", "))
		}
		if res.Response != nil {
			fmt.Printf("\n%s\n", res.Response.Text)
		}
	case executor.OutcomeFailed:
		fmt.Printf("reason:  %s\n", res.FailureReason)
		if res.Verdict != nil {
			fmt.Printf("last rejection: %s\n", strings.Join(res.Verdict.RuleIDs(), ", "))
		}
	}
}

func exitCode(outcome executor.Outcome) int {
	switch outcome {
	case executor.OutcomeResolved:
		return 0
	case executor.OutcomeEscalated:
		return 2
	default:
		return 1
	}
}

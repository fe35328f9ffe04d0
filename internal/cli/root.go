package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	corpusPath string
	logPath    string
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "triagent",
	Short: "Triagent - LLM-assisted SOC alert triage",
	Long: `Triagent runs security alerts through a guarded LLM triage pipeline:
each alert is normalized, grounded with past verdicts from a local corpus,
sent to the model, and the response is validated against response guardrails
before a verdict is accepted, retried, or escalated to an analyst.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML file (default: ~/.triagent/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&corpusPath, "corpus", "", "Path to threat-example corpus (default: ~/.triagent/corpus.yaml)")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to audit log file (default: ~/.triagent/audit.jsonl)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Use the deterministic offline backend instead of the model API")
}

func Execute() error {
	return rootCmd.Execute()
}

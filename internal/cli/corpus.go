package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opensoc/triagent/internal/config"
	"github.com/opensoc/triagent/internal/corpus"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the threat-example corpus",
}

var corpusValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the corpus loads and every entry is well formed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, corpusPath, logPath)
		if err != nil {
			return err
		}
		c, err := corpus.Load(cfg.CorpusPath)
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s: %d example(s)\n", cfg.CorpusPath, c.Len())
		return nil
	},
}

var corpusInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter corpus if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, corpusPath, logPath)
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.CorpusPath); err == nil {
			return fmt.Errorf("corpus already exists at %s", cfg.CorpusPath)
		}
		if err := writeStarterCorpus(cfg.CorpusPath); err != nil {
			return err
		}
		fmt.Printf("✅ Wrote starter corpus to %s\n", cfg.CorpusPath)
		fmt.Println("   Edit it to reflect verdicts from your own environment.")
		return nil
	},
}

func init() {
	corpusCmd.AddCommand(corpusValidateCmd)
	corpusCmd.AddCommand(corpusInitCmd)
	rootCmd.AddCommand(corpusCmd)
}

// starterExamples covers the common verdict spread so a fresh install can
// triage immediately. They are placeholders, not curated intelligence.
var starterExamples = []corpus.Example{
	{
		Name:     "scheduled-av-scan",
		Severity: "informational",
		Fields:   map[string]string{"source": "av", "timestamp": "2026-01-05T02:00:00Z"},
		Body:     "Scheduled full scan completed, no detections.",
		Verdict:  "benign",
	},
	{
		Name:     "failed-logon-burst",
		Severity: "medium",
		Fields:   map[string]string{"source": "auth", "timestamp": "2026-01-12T09:14:00Z"},
		Body:     "14 failed logons for user svc-backup from 10.0.4.17 within two minutes.",
		Verdict:  "suspicious",
	},
	{
		Name:     "known-c2-beacon",
		Severity: "high",
		Fields:   map[string]string{"source": "ids", "timestamp": "2026-02-03T22:41:00Z"},
		Body:     "Periodic outbound connections to a domain on the C2 blocklist.",
		Verdict:  "malicious",
	},
	{
		Name:     "mass-encryption-activity",
		Severity: "critical",
		Fields:   map[string]string{"source": "edr", "timestamp": "2026-03-19T04:07:00Z"},
		Body:     "Thousands of file writes with high-entropy content and a dropped ransom note.",
		Verdict:  "critical/active compromise",
	},
}

func writeStarterCorpus(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(map[string][]corpus.Example{"examples": starterExamples})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

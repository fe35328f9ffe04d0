package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opensoc/triagent/internal/config"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock out the pipeline until an operator unlocks it",
	Long: `Drop a lock file that makes triage and batch runs refuse to start.
Use it to stop a quota burn or a misbehaving model without touching config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, corpusPath, logPath)
		if err != nil {
			return err
		}
		if err := config.Lock(cfg.ConfigDir); err != nil {
			return err
		}
		fmt.Println("🔒 triagent is locked out; runs will refuse to start")
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Clear the lockout and allow runs again",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, corpusPath, logPath)
		if err != nil {
			return err
		}
		if locked, stamp := config.Locked(cfg.ConfigDir); locked {
			if err := config.Unlock(cfg.ConfigDir); err != nil {
				return err
			}
			fmt.Printf("🔓 lockout cleared (was set %s)\n", stamp)
			return nil
		}
		fmt.Println("triagent was not locked")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
}

// Package approval handles analyst acknowledgement of escalated runs. An
// escalation verdict is a page, not a verdict the pipeline acts on by itself:
// when a terminal is attached the analyst is asked to acknowledge it, and the
// choice is recorded in the audit trail.
package approval

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type Result struct {
	Acknowledged bool
	UserAction   string
}

type Prompt struct {
	Source         string
	Category       string
	TriggeredRules []string
	Reasons        []string
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Ask blocks for an acknowledgement on escalated runs. In non-interactive
// contexts (pipes, CI, batch cron) the escalation stands unacknowledged and
// the caller records it as such.
func Ask(p Prompt) Result {
	if !IsInteractive() {
		return Result{
			Acknowledged: false,
			UserAction:   "auto_unacknowledged",
		}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║              ⚠️  ESCALATION - ANALYST ATTENTION               ║")
	fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Source:   %s\n", p.Source)
	if p.Category != "" {
		fmt.Fprintf(os.Stderr, "Category: %s\n", p.Category)
	}
	fmt.Fprintln(os.Stderr, "")

	if len(p.TriggeredRules) > 0 {
		fmt.Fprintf(os.Stderr, "Triggered rules: %s\n", strings.Join(p.TriggeredRules, ", "))
	}

	if len(p.Reasons) > 0 {
		fmt.Fprintln(os.Stderr, "Reasons:")
		for _, reason := range p.Reasons {
			fmt.Fprintf(os.Stderr, "  • %s\n", reason)
		}
	}

	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  [a] Acknowledge - I am taking ownership of this escalation")
	fmt.Fprintln(os.Stderr, "  [s] Skip - leave it unacknowledged in the queue")
	fmt.Fprintln(os.Stderr, "")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Fprint(os.Stderr, "Your choice [a/s]: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return Result{
				Acknowledged: false,
				UserAction:   "error_reading_input",
			}
		}

		input = strings.TrimSpace(strings.ToLower(input))

		switch input {
		case "a", "ack", "acknowledge", "yes", "y":
			return Result{
				Acknowledged: true,
				UserAction:   "acknowledged",
			}
		case "s", "skip", "no", "n":
			return Result{
				Acknowledged: false,
				UserAction:   "skipped",
			}
		default:
			fmt.Fprintln(os.Stderr, "Please enter 'a' or 's'")
		}
	}
}

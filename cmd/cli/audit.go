package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/explore"
	"github.com/tribunal-dev/tribunal/internal/gitutil"
)

var auditRepoPath string

var auditCmd = &cobra.Command{
	Use:   "audit [trace.jsonl]",
	Short: "Audit a reviewer tool trace against the exploration policy",
	Long: `Audit a reviewer tool trace.

Replays the tool_use events of a recorded trace against the read-only
exploration policy for the given repository and reports every violation.
Useful for debugging why a run was blocked.

Exit code 1 when the trace violates policy, 2 when it cannot be parsed.`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	auditCmd.Flags().StringVarP(&auditRepoPath, "repo", "r", ".", "Path to the repository checkout the trace ran against")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(_ *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return core.ExecFailureWrap("opening trace", err)
	}
	defer f.Close()

	events, err := explore.ParseTrace(f)
	if err != nil {
		return err
	}

	wt, err := gitutil.OpenWorktree(auditRepoPath)
	if err != nil {
		return core.ExecFailureWrap("indexing repository", err)
	}

	audit := explore.NewPolicy(wt).Audit(events)
	fmt.Printf("events: %d\n", audit.Events)

	if !audit.Blocked() {
		successColor.Println("trace passed the exploration policy")
		return nil
	}

	errorColor.Printf("trace blocked: %d violation(s)\n\n", len(audit.Violations))
	for _, v := range audit.Violations {
		fmt.Printf("  [%s] %v\n", v.Event.Kind, v.Err)
	}
	return audit.Err()
}

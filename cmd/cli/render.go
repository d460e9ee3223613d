package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/report"
)

var renderCmd = &cobra.Command{
	Use:   "render [report.json]",
	Short: "Render a stored review report in the terminal",
	Long: `Render a stored review report.

Takes the report.json artifact a run left behind and renders the same
markdown that was posted to the pull request, styled for the terminal.

Example:
  tribunal render .tribunal/acme_widgets#3@abcdef123456/report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(renderCmd)
}

func runRender(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return core.ExecFailureWrap("reading report", err)
	}

	var rep core.ReviewReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return core.ExecFailureWrap("parsing report", err)
	}

	markdown := report.RenderMarkdown(&rep)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Plain markdown still beats no output.
		fmt.Println(markdown)
		return nil
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		fmt.Println(markdown)
		return nil
	}
	fmt.Print(out)
	return nil
}

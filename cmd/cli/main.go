package main

import (
	"log/slog"
	"os"

	"github.com/tribunal-dev/tribunal/internal/core"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("cli failed to run", "error", err)
		os.Exit(core.ExitCodeFor(err))
	}
}

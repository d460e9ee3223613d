package main

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tribunal-dev/tribunal/internal/config"
	"github.com/tribunal-dev/tribunal/internal/core"
	"github.com/tribunal-dev/tribunal/internal/db"
	"github.com/tribunal-dev/tribunal/internal/delivery"
	"github.com/tribunal-dev/tribunal/internal/storage"
)

var recordCmd = &cobra.Command{
	Use:   "record [owner/repo] [pr-number]",
	Short: "Show the delivery record for a pull request",
	Long: `Show the delivery record for a pull request.

The delivery record maps finding fingerprints to posted inline comments; it is
what keeps redelivery idempotent across runs. Reads from the database when one
is configured, otherwise from the file store under the artifact directory.`,
	Args: cobra.ExactArgs(2),
	RunE: runRecord,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	repoFull := args[0]
	prNumber, err := strconv.Atoi(args[1])
	if err != nil || prNumber <= 0 {
		return core.ExecFailure("pr-number must be a positive integer")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return core.ExecFailureWrap("loading configuration", err)
	}

	var records delivery.RecordStore = storage.NewFileRecordStore(cfg.ArtifactDir)
	if cfg.DB != nil {
		conn, cleanup, err := db.NewDatabase(cfg.DB)
		if err != nil {
			return core.ExecFailureWrap("connecting to database", err)
		}
		defer cleanup()
		store := storage.NewStore(conn.DB)
		records = storage.NewRecordStore(store)

		if run, err := store.GetLatestRunForPR(ctx, repoFull, prNumber); err == nil {
			dimColor.Printf("  last run: %s at %s (%s)\n",
				run.Status, run.HeadSHA, run.CreatedAt.Format(time.RFC3339))
		}
	}

	rec, err := records.Load(ctx, repoFull, prNumber)
	if err != nil {
		return core.ExecFailureWrap("loading delivery record", err)
	}

	titleColor.Printf("Delivery record %s#%d\n", rec.RepoFull, rec.PRNumber)
	if len(rec.Entries) == 0 {
		dimColor.Println("  no inline comments delivered yet")
		return nil
	}

	fingerprints := make([]string, 0, len(rec.Entries))
	for fp := range rec.Entries {
		fingerprints = append(fingerprints, fp)
	}
	sort.Strings(fingerprints)

	for _, fp := range fingerprints {
		e := rec.Entries[fp]
		state := "active"
		if e.Resolved {
			state = "resolved"
		}
		cmd.Printf("  %s  comment=%d  last_seen=%s  %s\n", fp, e.CommentID, e.LastSeenRun, state)
	}
	return nil
}

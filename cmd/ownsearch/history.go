package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ownsearch/ownsearch/internal/config"
	"github.com/ownsearch/ownsearch/internal/database"
)

// defaultHistoryLimit is how many runs are listed without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past crawl runs",
		Long: `History lists recorded crawl runs, newest first.

Given a run ID, it shows the pages that run fetched and the URLs it skipped.
Each page is marked as new, changed or unchanged compared with the previous
crawl of the same URL.

Examples:
  # List the most recent runs
  ownsearch history

  # Show one run in detail
  ownsearch history 0190c5e2-7b1a-7c3d-9e4f-123456789abc

  # Export a run as Markdown
  ownsearch history --markdown -o run.md 0190c5e2-7b1a-7c3d-9e4f-123456789abc`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().String("db-dir", "",
		"Crawl history directory (default: $XDG_DATA_HOME/ownsearch)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ownsearch in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output as Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the output to the specified file path (creates directories if needed)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	if jsonOutput && markdownOutput {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	var runID uuid.UUID
	if len(args) == 1 {
		runID, err = uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", args[0], err)
		}
	}

	if dbDir == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dbDir = cfg.DBDir
	}

	// History is read-only: never create a database just to list nothing.
	if _, err := os.Stat(filepath.Join(dbDir, database.FileName)); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(cmd.OutOrStdout(), "No crawl history yet (run 'ownsearch crawl' first).")
		return nil
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if outputPath != "" {
		f, err := createReportFile(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := newReportWriter(out, jsonOutput, markdownOutput, getVerboseFlag(cmd))
	ctx := commandContext(cmd)

	if runID == uuid.Nil {
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		_, err = w.WriteRuns(runs)
		return err
	}

	detail, err := loadRunDetail(ctx, db, runID)
	if err != nil {
		return err
	}
	_, err = w.WriteRunDetail(detail)
	return err
}

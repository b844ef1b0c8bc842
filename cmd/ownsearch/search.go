package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ownsearch/ownsearch/internal/config"
	"github.com/ownsearch/ownsearch/internal/index"
)

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the text index",
		Long: `Search ranks indexed pages by how often the query words occur in their
title and text, and prints the best matches.

Words are matched exactly: case matters and punctuation is ignored.

Examples:
  # Show the three best matches
  ownsearch search camera focus

  # Show ten matches as JSON
  ownsearch search -n 10 --json camera focus

  # Show every match
  ownsearch search -n 0 camera`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().IntP("count", "n", index.DefaultMatchCount,
		"Maximum number of results (0 = all matches)")
	cmd.Flags().String("index", "",
		"Text index file (default: $XDG_DATA_HOME/ownsearch/text_index.json)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ownsearch in current or home directory)")
	cmd.Flags().BoolP("json", "j", false,
		"Output results as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output results as Markdown (mutually exclusive with --json)")

	return cmd
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}
	indexPath, err := cmd.Flags().GetString("index")
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

	if jsonOutput && markdownOutput {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}

	// The index location comes from the configuration file unless given.
	if indexPath == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		indexPath = cfg.IndexPath
	}

	idx, err := loadIndex(indexPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cmd.ErrOrStderr())
	query := strings.Join(args, " ")
	result := idx.Search(query, count)
	logger.Debug("search finished", "query", query, "matches", len(result.Items), "documents", idx.Len())

	w := newReportWriter(cmd.OutOrStdout(), jsonOutput, markdownOutput, getVerboseFlag(cmd))
	_, err = w.WriteResult(result)
	return err
}

// loadIndex opens an existing index. Unlike index.Open it does not create a
// missing file, so a typo in --index is reported instead of searching an
// empty index.
func loadIndex(path string) (*index.Index, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no index at %s (run 'ownsearch crawl' first)", path)
	}

	idx, err := index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return idx, nil
}

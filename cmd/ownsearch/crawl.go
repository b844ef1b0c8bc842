package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ownsearch/ownsearch/internal/config"
	"github.com/ownsearch/ownsearch/internal/crawler"
	"github.com/ownsearch/ownsearch/internal/database"
	"github.com/ownsearch/ownsearch/internal/index"
	"github.com/ownsearch/ownsearch/internal/model"
	"github.com/ownsearch/ownsearch/internal/report"
	"github.com/ownsearch/ownsearch/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl a website into the text index",
		Long: `Crawl fetches every page reachable from the seed URL and adds its visible
text to the local full-text index.

Only links on the seed's host are followed unless --follow-external is set.
Pages that fail to load, are not HTML or plain text, or cannot be decoded
are skipped and recorded in the crawl history.

Examples:
  # Crawl a site with the default settings
  ownsearch crawl https://example.com/

  # Stop after 200 pages and pace requests to 5 per second
  ownsearch crawl -p 200 --rate-limit 5 https://example.com/

  # Crawl through a SOCKS5 proxy
  ownsearch crawl --proxy 127.0.0.1:9050 http://intranet.local/

  # Replace the index instead of adding to it
  ownsearch crawl --fresh https://example.com/

Configuration file (.ownsearch) example:
  seed_url: "https://example.com/"
  workers: 20
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      max_pages: 500`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of pages fetched concurrently")
	cmd.Flags().BoolP("follow-external", "x", false,
		"Also crawl links to other hosts")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Time limit for each page")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch (0 = unlimited)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Largest response body in bytes that is read")
	cmd.Flags().Float64("rate-limit", config.DefaultRateLimit,
		"Maximum requests per second (0 = unlimited)")

	// Request flags
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with each request")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:9050)")
	cmd.Flags().String("cookie", "",
		"Cookie sent with each request")
	cmd.Flags().StringToString("header", nil,
		"Extra request header (repeatable, e.g., --header Accept-Language=en)")
	cmd.Flags().StringSlice("ignore", nil,
		"URL path glob that is never crawled (repeatable)")
	cmd.Flags().StringSlice("follow", nil,
		"Only crawl URL paths matching this glob (repeatable)")

	// Storage flags
	cmd.Flags().String("index", "",
		"Text index file (default: $XDG_DATA_HOME/ownsearch/text_index.json)")
	cmd.Flags().String("db-dir", "",
		"Crawl history directory (default: $XDG_DATA_HOME/ownsearch)")
	cmd.Flags().Bool("no-history", false,
		"Do not record this crawl in the history database")
	cmd.Flags().Bool("fresh", false,
		"Start from an empty index instead of adding to the existing one")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .ownsearch in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the crawl report as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the crawl report as Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the crawl report to the specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing in-flight pages...")
			cancel()
		case <-ctx.Done():
		}
	}()

	fresh, err := cmd.Flags().GetBool("fresh")
	if err != nil {
		return err
	}
	reportPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	return runCrawl(ctx, cfg, crawlOptions{
		fresh:      fresh,
		reportPath: reportPath,
		out:        cmd.OutOrStdout(),
		logger:     logger,
	})
}

// buildConfig creates a Config from defaults, the configuration file and
// the command-line flags, in that order of precedence.
//
// Design decision: Flags are only applied when they were set explicitly
// (Flags().Changed), so a flag's default never overwrites a value from the
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, file, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}

	// Site overrides depend on the final seed, so they come after the seed
	// argument and before the remaining flags.
	if file != nil {
		cfg.ApplySite(file.SiteFor(cfg.SeedURL))
	}

	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("follow-external") {
		if cfg.FollowExternal, err = flags.GetBool("follow-external"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-pages") {
		if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate-limit") {
		if cfg.RateLimit, err = flags.GetFloat64("rate-limit"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("cookie") {
		if cfg.Cookie, err = flags.GetString("cookie"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("header") {
		headers, err := flags.GetStringToString("header")
		if err != nil {
			return nil, err
		}
		cfg.ApplySite(config.SiteConfig{Headers: headers})
	}
	if flags.Changed("ignore") {
		if cfg.IgnorePatterns, err = flags.GetStringSlice("ignore"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("follow") {
		if cfg.FollowPatterns, err = flags.GetStringSlice("follow"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("index") {
		if cfg.IndexPath, err = flags.GetString("index"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("no-history") {
		noHistory, err := flags.GetBool("no-history")
		if err != nil {
			return nil, err
		}
		cfg.SaveToDB = !noHistory
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// loadConfig returns the defaults with the configuration file applied.
// The file is nil when none was found.
func loadConfig(cmd *cobra.Command) (*config.Config, *config.File, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return nil, nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return cfg, nil, nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	file.ApplyTo(cfg)

	return cfg, file, nil
}

// crawlOptions are the per-invocation settings that are not part of Config.
type crawlOptions struct {
	fresh      bool
	reportPath string
	out        io.Writer
	logger     *slog.Logger
}

// runCrawl executes one crawl: it builds the HTTP stack, streams records into
// the index and the history database, saves the index and writes the report.
func runCrawl(ctx context.Context, cfg *config.Config, opts crawlOptions) error {
	logger := opts.logger

	client, err := newHTTPClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	idx, err := openIndex(cfg.IndexPath, opts.fresh)
	if err != nil {
		return err
	}

	var (
		db    *database.CrawlDB
		runID uuid.UUID
	)
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runID, err = db.StartRun(ctx, cfg.SeedURL)
		if err != nil {
			return err
		}
		logger.Info("crawl run started", "run", runID, "db", db.Path())
	}

	// History writes must survive cancellation so an interrupted crawl
	// still records what it fetched.
	storeCtx := context.WithoutCancel(ctx)

	engine := crawler.New(
		crawler.NewHTTPFetcher(client,
			crawler.WithTimeout(cfg.Timeout),
			crawler.WithMaxBodySize(cfg.MaxBodySize),
			crawler.WithUserAgent(cfg.UserAgent),
		),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithFollowExternal(cfg.FollowExternal),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithRateLimit(cfg.RateLimit),
		crawler.WithIgnorePatterns(cfg.IgnorePatterns),
		crawler.WithFollowPatterns(cfg.FollowPatterns),
		crawler.WithConsumer(crawler.MultiConsumer{
			indexConsumer(idx),
			historyConsumer(storeCtx, db, runID, logger),
		}),
		crawler.WithSkipHandler(skipRecorder(storeCtx, db, runID, logger)),
		crawler.WithLogger(logger),
	)

	start := time.Now()
	stats, crawlErr := engine.Run(ctx, cfg.SeedURL)
	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}

	if err := idx.Save(); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	logger.Info("index saved", "path", idx.Path(), "documents", idx.Len())

	detail := &report.RunDetail{Run: database.Run{
		ID:           runID,
		SeedURL:      cfg.SeedURL,
		StartedAt:    start,
		FinishedAt:   time.Now(),
		PagesFetched: stats.PagesFetched,
		PagesFailed:  stats.PagesFailed,
		URLsSeen:     stats.URLsSeen,
	}}
	if db != nil {
		if err := db.FinishRun(storeCtx, runID, stats); err != nil {
			return err
		}
		if detail, err = loadRunDetail(storeCtx, db, runID); err != nil {
			return err
		}
	}

	if err := writeCrawlReport(cfg, opts.reportPath, opts.out, detail); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl interrupted after %d pages: %w", stats.PagesFetched, crawlErr)
	}
	return nil
}

// newHTTPClient builds the shared HTTP client from the configuration.
func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, transport.WithProxy(cfg.ProxyAddress))
	}
	if cfg.Cookie != "" {
		opts = append(opts, transport.WithCookie(cfg.Cookie))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, transport.WithHeaders(cfg.Headers))
	}
	return transport.NewClient(opts...)
}

// openIndex loads the index at path, or starts an empty one when fresh is set.
func openIndex(path string, fresh bool) (*index.Index, error) {
	if fresh {
		return index.New(path), nil
	}
	idx, err := index.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return idx, nil
}

// indexConsumer adds every record to the text index.
func indexConsumer(idx *index.Index) crawler.Consumer {
	return crawler.ConsumerFunc(func(record model.CrawlRecord) {
		idx.IndexDocument(record.BodyText, record.Title, record.URL)
	})
}

// historyConsumer stores every record in the history database.
// It returns nil when history is disabled; MultiConsumer skips nil entries.
func historyConsumer(ctx context.Context, db *database.CrawlDB, runID uuid.UUID, logger *slog.Logger) crawler.Consumer {
	if db == nil {
		return nil
	}
	return crawler.ConsumerFunc(func(record model.CrawlRecord) {
		if err := db.InsertPage(ctx, runID, record); err != nil {
			logger.Error("failed to record page", "url", record.URL, "error", err)
		}
	})
}

// skipRecorder logs failed fetches and stores them in the history database.
func skipRecorder(ctx context.Context, db *database.CrawlDB, runID uuid.UUID, logger *slog.Logger) crawler.SkipHandler {
	return func(pageURL string, err error) {
		reason := skipReason(err)
		logger.Debug("skipped url", "url", pageURL, "reason", reason, "error", err)

		if db == nil {
			return
		}
		if err := db.InsertSkip(ctx, runID, pageURL, reason); err != nil {
			logger.Error("failed to record skipped url", "url", pageURL, "error", err)
		}
	}
}

// skipReason extracts the fetch policy reason from a fetch error.
func skipReason(err error) string {
	var fetchErr *crawler.FetchError
	if errors.As(err, &fetchErr) {
		return string(fetchErr.Reason)
	}
	return "error"
}

// loadRunDetail reads a run with its pages and skips.
func loadRunDetail(ctx context.Context, db *database.CrawlDB, runID uuid.UUID) (*report.RunDetail, error) {
	run, err := db.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	pages, err := db.ListPages(ctx, runID)
	if err != nil {
		return nil, err
	}
	skips, err := db.ListSkips(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &report.RunDetail{Run: run, Pages: pages, Skips: skips}, nil
}

// writeCrawlReport writes the crawl report to out, or to reportPath when set.
func writeCrawlReport(cfg *config.Config, reportPath string, out io.Writer, detail *report.RunDetail) error {
	if reportPath != "" {
		f, err := createReportFile(reportPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := newReportWriter(out, cfg.JSONReport, cfg.MarkdownReport, cfg.Verbose)
	_, err := w.WriteRunDetail(detail)
	return err
}

// newReportWriter selects the report format.
func newReportWriter(out io.Writer, jsonOutput, markdownOutput, verbose bool) report.Writer {
	switch {
	case jsonOutput:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case markdownOutput:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(verbose))
	}
}

// createReportFile creates or truncates a report file.
// Reports list crawled URLs that may be private, so the file is readable by
// the owner only.
func createReportFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

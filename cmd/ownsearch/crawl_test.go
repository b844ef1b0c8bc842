package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ownsearch/ownsearch/internal/config"
	"github.com/ownsearch/ownsearch/internal/crawler"
	"github.com/ownsearch/ownsearch/internal/report"
)

// writeConfigFile writes a YAML configuration file into a temp directory.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".ownsearch")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [seed-url]" {
			t.Errorf("expected use 'crawl [seed-url]', got %q", cmd.Use)
		}
	})

	t.Run("has flags", func(t *testing.T) {
		t.Parallel()

		flags := []struct {
			name      string
			shorthand string
		}{
			{"workers", "w"},
			{"follow-external", "x"},
			{"timeout", "t"},
			{"max-pages", "p"},
			{"max-body-size", ""},
			{"rate-limit", ""},
			{"user-agent", ""},
			{"proxy", ""},
			{"cookie", ""},
			{"header", ""},
			{"ignore", ""},
			{"follow", ""},
			{"index", ""},
			{"db-dir", ""},
			{"no-history", ""},
			{"fresh", ""},
			{"config", "c"},
			{"json", "j"},
			{"markdown", "m"},
			{"output", "o"},
		}

		for _, f := range flags {
			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Errorf("expected %s flag", f.name)
				continue
			}
			if flag.Shorthand != f.shorthand {
				t.Errorf("flag %s: expected shorthand %q, got %q", f.name, f.shorthand, flag.Shorthand)
			}
		}
	})

	t.Run("has default workers", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("workers")
		if flag.DefValue != fmt.Sprint(config.DefaultWorkers) {
			t.Errorf("expected default %d, got %s", config.DefaultWorkers, flag.DefValue)
		}
	})
}

// TestBuildConfig tests flag, file and site precedence.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("uses defaults with empty config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfigFile(t, "")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SeedURL != "https://example.com/" {
			t.Errorf("SeedURL = %q, expected seed argument", cfg.SeedURL)
		}
		if cfg.Workers != config.DefaultWorkers {
			t.Errorf("Workers = %d, expected %d", cfg.Workers, config.DefaultWorkers)
		}
		if cfg.Timeout != config.DefaultTimeout {
			t.Errorf("Timeout = %v, expected %v", cfg.Timeout, config.DefaultTimeout)
		}
		if !cfg.SaveToDB {
			t.Error("expected history to be enabled by default")
		}
	})

	t.Run("config file overrides defaults", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, `
seed_url: "https://docs.example.com/"
workers: 4
timeout: 3s
max_pages: 50
save_history: false
`)
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SeedURL != "https://docs.example.com/" {
			t.Errorf("SeedURL = %q, expected value from file", cfg.SeedURL)
		}
		if cfg.Workers != 4 {
			t.Errorf("Workers = %d, expected 4", cfg.Workers)
		}
		if cfg.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v, expected 3s", cfg.Timeout)
		}
		if cfg.MaxPages != 50 {
			t.Errorf("MaxPages = %d, expected 50", cfg.MaxPages)
		}
		if cfg.SaveToDB {
			t.Error("expected history to be disabled by file")
		}
	})

	t.Run("explicit flags override config file", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "workers: 4\nmax_pages: 50\n")
		cmd := NewCrawlCmd()
		err := cmd.ParseFlags([]string{
			"--config", path,
			"-w", "8",
			"--no-history",
			"--header", "Accept-Language=en",
			"--ignore", "/logout*",
		})
		if err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != 8 {
			t.Errorf("Workers = %d, expected flag value 8", cfg.Workers)
		}
		if cfg.MaxPages != 50 {
			t.Errorf("MaxPages = %d, expected file value 50", cfg.MaxPages)
		}
		if cfg.SaveToDB {
			t.Error("expected --no-history to disable history")
		}
		if cfg.Headers["Accept-Language"] != "en" {
			t.Errorf("Headers = %v, expected Accept-Language", cfg.Headers)
		}
		if len(cfg.IgnorePatterns) != 1 || cfg.IgnorePatterns[0] != "/logout*" {
			t.Errorf("IgnorePatterns = %v", cfg.IgnorePatterns)
		}
	})

	t.Run("site overrides apply to matching seed", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, `
max_pages: 50
sites:
  example.com:
    cookie: "session=abc"
    max_pages: 500
  other.org:
    max_pages: 5
`)
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com/start"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Cookie != "session=abc" {
			t.Errorf("Cookie = %q, expected site cookie", cfg.Cookie)
		}
		if cfg.MaxPages != 500 {
			t.Errorf("MaxPages = %d, expected site value 500", cfg.MaxPages)
		}
	})

	t.Run("flags override site values", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "sites:\n  example.com:\n    max_pages: 500\n")
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path, "-p", "7"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxPages != 7 {
			t.Errorf("MaxPages = %d, expected flag value 7", cfg.MaxPages)
		}
	})

	t.Run("report format flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfigFile(t, ""), "--json"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.JSONReport || cfg.MarkdownReport {
			t.Errorf("JSONReport = %v, MarkdownReport = %v", cfg.JSONReport, cfg.MarkdownReport)
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "missing.yaml")
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		_, err := buildConfig(cmd, nil)
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfigFile(t, "workers: [1, 2")}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		if _, err := buildConfig(cmd, nil); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})
}

// TestRunCrawlCmd_Validation tests that invalid configurations fail before
// any request is made.
func TestRunCrawlCmd_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "no seed url",
			args:    nil,
			wantErr: config.ErrNoSeedURL,
		},
		{
			name:    "non http seed",
			args:    []string{"ftp://example.com/"},
			wantErr: config.ErrInvalidSeedURL,
		},
		{
			name:    "zero workers",
			args:    []string{"-w", "0", "https://example.com/"},
			wantErr: config.ErrInvalidWorkers,
		},
		{
			name:    "conflicting report formats",
			args:    []string{"--json", "--markdown", "https://example.com/"},
			wantErr: config.ErrConflictingReportFormats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			cmd := NewCrawlCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append([]string{
				"--config", writeConfigFile(t, ""),
				"--index", filepath.Join(dir, "index.json"),
				"--db-dir", dir,
			}, tt.args...))

			err := cmd.Execute()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if _, statErr := os.Stat(filepath.Join(dir, "index.json")); statErr == nil {
				t.Error("index must not be written for an invalid configuration")
			}
		})
	}
}

// TestSkipReason tests the reason recorded for skipped URLs.
func TestSkipReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "fetch error",
			err:  &crawler.FetchError{URL: "https://example.com/a", Reason: crawler.ReasonStatus},
			want: string(crawler.ReasonStatus),
		},
		{
			name: "wrapped fetch error",
			err:  fmt.Errorf("worker: %w", &crawler.FetchError{Reason: crawler.ReasonContentType}),
			want: string(crawler.ReasonContentType),
		},
		{
			name: "other error",
			err:  errors.New("boom"),
			want: "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := skipReason(tt.err); got != tt.want {
				t.Errorf("skipReason() = %q, expected %q", got, tt.want)
			}
		})
	}
}

// TestOpenIndex tests loading and resetting the index.
func TestOpenIndex(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.json")
	idx, err := openIndex(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx.IndexDocument("lens and camera", "Camera", "https://example.com/camera")
	if err := idx.Save(); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	reopened, err := openIndex(path, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reopened.Len() != 1 {
		t.Errorf("Len() = %d, expected 1", reopened.Len())
	}

	fresh, err := openIndex(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.Len() != 0 {
		t.Errorf("fresh Len() = %d, expected 0", fresh.Len())
	}
}

// TestHistoryConsumer_Disabled tests that no consumer is built without a database.
func TestHistoryConsumer_Disabled(t *testing.T) {
	t.Parallel()

	if c := historyConsumer(context.Background(), nil, uuid.Nil, setupLogger(NewCrawlCmd(), &bytes.Buffer{})); c != nil {
		t.Error("expected nil consumer when history is disabled")
	}
}

// TestNewReportWriter tests report format selection.
func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	if _, ok := newReportWriter(&buf, true, false, false).(*report.JSONWriter); !ok {
		t.Error("expected JSONWriter for --json")
	}
	if _, ok := newReportWriter(&buf, false, true, false).(*report.MarkdownWriter); !ok {
		t.Error("expected MarkdownWriter for --markdown")
	}
	if _, ok := newReportWriter(&buf, false, false, false).(*report.SimpleWriter); !ok {
		t.Error("expected SimpleWriter by default")
	}
}

// TestCreateReportFile tests report file creation.
func TestCreateReportFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reports", "nested", "run.md")
	f, err := createReportFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.WriteString("# Crawl Run\n"); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if !strings.HasPrefix(string(content), "# Crawl Run") {
		t.Errorf("unexpected content %q", content)
	}
}

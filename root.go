package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/BebopxD/studip-client/internal/config"
	"github.com/BebopxD/studip-client/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagSyncDir string
	flagVerbose bool
	flagQuiet   bool
)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "studip-client",
		Short:   "Stud.IP course file mirror",
		Long:    "Maintains a local metadata mirror of Stud.IP courses and projects it into configurable directory layouts.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	defaultDir, _ := os.UserHomeDir()
	defaultDir = filepath.Join(defaultDir, "StudIP")

	cmd.PersistentFlags().StringVar(&flagSyncDir, "sync-dir", defaultDir, "sync directory")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCoursesCmd())
	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newClearCacheCmd())

	return cmd
}

// dotDir is the hidden state directory inside the sync dir, holding the
// metadata cache and config file.
func dotDir() string { return filepath.Join(flagSyncDir, ".studip") }

func cachePath() string { return filepath.Join(dotDir(), "cache.sqlite") }

func configPath() string { return filepath.Join(dotDir(), "studip.toml") }

// loadConfig reads the config file from the sync directory, falling back
// to defaults when none exists.
func loadConfig() (*config.Config, error) {
	return config.LoadOrDefault(configPath())
}

// buildLogger creates an slog.Logger honoring the config log level and
// the --verbose/--quiet flags (CLI flags win). Terminals get the text
// handler; redirected stderr gets JSON.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.Sync.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// openStore ensures the state directory exists and opens the metadata
// cache, surfacing the clear-cache remediation on schema mismatch.
func openStore(logger *slog.Logger) (*store.Store, error) {
	if err := os.MkdirAll(dotDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", dotDir(), err)
	}

	return store.Open(cachePath(), logger)
}

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

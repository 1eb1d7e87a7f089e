package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BebopxD/studip-client/internal/config"
	"github.com/BebopxD/studip-client/internal/store"
	"github.com/BebopxD/studip-client/internal/syncer"
)

var flagFeed string

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the course database from a metadata feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd)
		},
	}

	cmd.Flags().StringVar(&flagFeed, "feed", "", "metadata feed file (JSON)")

	return cmd
}

func runUpdate(cmd *cobra.Command) error {
	if flagFeed == "" {
		return errors.New("update requires --feed (the session module produces it)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := buildLogger(cfg)

	st, err := openStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	return updateStore(cmd, cfg, st, logger)
}

func updateStore(cmd *cobra.Command, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
	engine := syncer.New(st, feedSource{path: flagFeed}, nil, engineOptions(cfg), logger)

	stats, err := engine.Update(cmd.Context())
	if err != nil {
		return err
	}

	statusf("%d new courses, %d removed; %d new files, %d updated, %d unchanged\n",
		stats.CoursesAdded, stats.CoursesRemoved,
		stats.FilesAdded, stats.FilesUpdated, stats.FilesUnchanged)

	return nil
}

func engineOptions(cfg *config.Config) syncer.Options {
	return syncer.Options{
		Root:            flagSyncDir,
		Workers:         cfg.Sync.ParallelDownloads,
		SkipCopyrighted: cfg.Sync.SkipCopyrighted,
		DefaultSync:     cfg.DefaultSyncMode(),
	}
}

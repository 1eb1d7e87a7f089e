package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BebopxD/studip-client/internal/config"
	"github.com/BebopxD/studip-client/internal/store"
	"github.com/BebopxD/studip-client/internal/syncer"
)

var flagSource string

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Materialize missing files from fetched content",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd)
		},
	}

	cmd.Flags().StringVar(&flagSource, "source", "", "directory of fetched files, named by file id")

	return cmd
}

func runDownload(cmd *cobra.Command) error {
	if flagSource == "" {
		return errors.New("download requires --source (the session module fills it)")
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

	return downloadFiles(cmd, cfg, st, logger)
}

func downloadFiles(cmd *cobra.Command, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
	engine := syncer.New(st, nil, dirFetcher{dir: flagSource}, engineOptions(cfg), logger)

	report, err := engine.Download(cmd.Context())
	if err != nil {
		return err
	}

	statusf("%d files downloaded, %d failed, %d up to date\n",
		report.Downloaded, len(report.Errors), report.UpToDate)

	if len(report.Errors) > 0 {
		return report.Errors[0]
	}

	return nil
}

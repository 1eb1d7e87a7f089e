package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Update the course database, then materialize missing files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flagFeed == "" || flagSource == "" {
				return errors.New("sync requires --feed and --source")
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

			if err := updateStore(cmd, cfg, st, logger); err != nil {
				return err
			}

			return downloadFiles(cmd, cfg, st, logger)
		},
	}

	cmd.Flags().StringVar(&flagFeed, "feed", "", "metadata feed file (JSON)")
	cmd.Flags().StringVar(&flagSource, "source", "", "directory of fetched files, named by file id")

	return cmd
}

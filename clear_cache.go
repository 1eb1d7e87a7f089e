package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

func newClearCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Delete the local metadata cache",
		Long:  "Deletes the metadata cache so the next update rebuilds it from scratch. Downloaded files are left untouched.",
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := os.Remove(cachePath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			statusf("Cache cleared.\n")

			return nil
		},
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BebopxD/studip-client/internal/pathgen"
	"github.com/BebopxD/studip-client/internal/store"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "List files pending download and their target paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd)
		},
	}
}

func runPlan(cmd *cobra.Command) error {
	st, err := openStoreFromConfig()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()

	views, err := st.ListViews(ctx)
	if err != nil {
		return err
	}

	files, err := st.ListFiles(ctx, store.Modes(store.SyncFull))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VIEW\tFILE\tPATH")

	pending := 0

	for _, v := range views {
		for _, f := range files {
			needed, err := st.NeedsCheckout(ctx, v.ID, f.ID)
			if err != nil {
				return err
			}
			if !needed {
				continue
			}

			path := filepath.FromSlash(pathgen.RenderInto(flagSyncDir, v, f))
			fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name, f.ID, path)
			pending++
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	statusf("%d file(s) pending\n", pending)

	return nil
}

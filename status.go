package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BebopxD/studip-client/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache contents and pending work",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			ctx := cmd.Context()

			semesters, err := st.ListSemesters(ctx)
			if err != nil {
				return err
			}

			courses, err := st.ListCourses(ctx, store.AllModes)
			if err != nil {
				return err
			}

			files, err := st.ListFiles(ctx, store.AllModes)
			if err != nil {
				return err
			}

			views, err := st.ListViews(ctx)
			if err != nil {
				return err
			}

			var pending int

			for _, v := range views {
				for _, f := range files {
					needs, err := st.NeedsCheckout(ctx, v.ID, f.ID)
					if err != nil {
						return err
					}

					if needs {
						pending++
					}
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Semesters:\t%d\n", len(semesters))
			fmt.Fprintf(w, "Courses:\t%d\n", len(courses))
			fmt.Fprintf(w, "Files:\t%d\n", len(files))
			fmt.Fprintf(w, "Views:\t%d\n", len(views))
			fmt.Fprintf(w, "Pending checkouts:\t%d\n", pending)

			return w.Flush()
		},
	}
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BebopxD/studip-client/internal/store"
)

func newCoursesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List and configure tracked courses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCoursesList(cmd)
		},
	}

	cmd.AddCommand(newCoursesSetSyncCmd())

	return cmd
}

func runCoursesList(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := openStore(buildLogger(cfg))
	if err != nil {
		return err
	}
	defer st.Close()

	courses, err := st.ListCourses(cmd.Context(), store.AllModes)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEMESTER\tNAME\tTYPE\tSYNC")

	for _, c := range courses {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Semester, c.Name, c.Type, c.Sync)
	}

	return w.Flush()
}

func newCoursesSetSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-sync <course-id> <none|metadata|full>",
		Short: "Change a course's sync policy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseSyncMode(args[1])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := openStore(buildLogger(cfg))
			if err != nil {
				return err
			}
			defer st.Close()

			return st.SetCourseSync(cmd.Context(), args[0], mode)
		},
	}
}

func parseSyncMode(s string) (store.SyncMode, error) {
	switch s {
	case "none":
		return store.SyncNone, nil
	case "metadata":
		return store.SyncMetadata, nil
	case "full":
		return store.SyncFull, nil
	default:
		return 0, fmt.Errorf("unknown sync mode %q (want none, metadata, or full)", s)
	}
}

package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BebopxD/studip-client/internal/store"
)

var (
	flagViewFormat  string
	flagViewBase    string
	flagViewEscape  string
	flagViewCharset string
)

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Manage directory-layout views",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runViewList(cmd)
		},
	}

	cmd.AddCommand(newViewAddCmd())
	cmd.AddCommand(newViewRmCmd())
	cmd.AddCommand(newViewResetCmd())

	return cmd
}

func runViewList(cmd *cobra.Command) error {
	st, err := openStoreFromConfig()
	if err != nil {
		return err
	}
	defer st.Close()

	views, err := st.ListViews(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFORMAT\tBASE")

	for _, v := range views {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.ID, v.Name, v.Format, v.Base)
	}

	return w.Flush()
}

func newViewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			escape, err := parseEscapeMode(flagViewEscape)
			if err != nil {
				return err
			}

			charset, err := parseCharset(flagViewCharset)
			if err != nil {
				return err
			}

			st, err := openStoreFromConfig()
			if err != nil {
				return err
			}
			defer st.Close()

			id, err := st.CreateView(cmd.Context(), store.View{
				Name:    args[0],
				Format:  flagViewFormat,
				Base:    flagViewBase,
				Escape:  escape,
				Charset: charset,
			})
			if err != nil {
				return err
			}

			statusf("created view %q (id %d)\n", args[0], id)

			return nil
		},
	}

	cmd.Flags().StringVar(&flagViewFormat, "format", store.DefaultFormat, "path template")
	cmd.Flags().StringVar(&flagViewBase, "base", "", "base directory override")
	cmd.Flags().StringVar(&flagViewEscape, "escape", "similar", "escape policy (similar, verbatim, reject)")
	cmd.Flags().StringVar(&flagViewCharset, "charset", "unicode", "charset policy (unicode, ascii, identifier)")

	return cmd
}

func newViewRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a view and its checkouts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid view id %q", args[0])
			}

			st, err := openStoreFromConfig()
			if err != nil {
				return err
			}
			defer st.Close()

			return st.RemoveView(cmd.Context(), id)
		},
	}
}

func newViewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <id>",
		Short: "Drop a view's checkouts so every path is recomputed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid view id %q", args[0])
			}

			st, err := openStoreFromConfig()
			if err != nil {
				return err
			}
			defer st.Close()

			return st.ResetCheckouts(cmd.Context(), id)
		},
	}
}

// openStoreFromConfig is the common open path for commands that take no
// other setup.
func openStoreFromConfig() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return openStore(buildLogger(cfg))
}

func parseEscapeMode(s string) (store.EscapeMode, error) {
	switch s {
	case "similar":
		return store.EscapeSimilar, nil
	case "verbatim":
		return store.EscapeVerbatim, nil
	case "reject":
		return store.EscapeReject, nil
	default:
		return 0, fmt.Errorf("unknown escape policy %q (want similar, verbatim, or reject)", s)
	}
}

func parseCharset(s string) (store.Charset, error) {
	switch s {
	case "unicode":
		return store.CharsetUnicode, nil
	case "ascii":
		return store.CharsetASCII, nil
	case "identifier":
		return store.CharsetIdentifier, nil
	default:
		return 0, fmt.Errorf("unknown charset policy %q (want unicode, ascii, or identifier)", s)
	}
}

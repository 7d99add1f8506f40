package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	lio "github.com/matzehuels/labeltower/pkg/io"
	"github.com/matzehuels/labeltower/pkg/store"
)

// runsCommand creates the command for stored runs.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, show and delete stored runs",
	}
	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	cmd.AddCommand(c.runsDeleteCommand())
	return cmd
}

// withStore opens the configured store for the duration of fn.
func (c *CLI) withStore(ctx context.Context, fn func(store.Store) error) error {
	st, err := newStore(ctx, c.config().Store)
	if err != nil {
		return err
	}
	if st == nil {
		return errors.New("no store configured (set store.backend in labeltower.toml)")
	}
	defer st.Close(context.Background())
	return fn(st)
}

func (c *CLI) runsListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				runs, err := st.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					printInfo("No stored runs")
					return nil
				}
				for _, r := range runs {
					fmt.Println(StyleValue.Render(r.RunID) + "  " + StyleDim.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")))
					fmt.Println("  " + formatStats(r.Stats, false))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list (0 for all)")
	return cmd
}

func (c *CLI) runsShowCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:               "show [run-id]",
		Short:             "Print or export the report of a stored run",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.runIDCompletion(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				rec, err := st.Load(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if output == "" {
					return lio.WriteReport(rec.Report, os.Stdout)
				}
				if err := lio.ExportReport(rec.Report, output); err != nil {
					return err
				}
				printFile(output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file")
	return cmd
}

func (c *CLI) runsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete [run-id...]",
		Short:             "Delete stored runs",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.runIDCompletion(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(st store.Store) error {
				for _, id := range args {
					if err := st.Delete(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete %s: %w", id, err)
					}
				}
				printSuccess("Deleted %d runs", len(args))
				return nil
			})
		},
	}
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	lio "github.com/matzehuels/labeltower/pkg/io"
	"github.com/matzehuels/labeltower/pkg/result"
	"github.com/matzehuels/labeltower/pkg/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [report.json]",
		Short: "Serve reports through the query API",
		Long: `Serve starts a read-only JSON API. The given report is served at the root
routes (/labels, /packages/{name}, ...). With a store configured, stored runs
are served below /runs/{id}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.config().Server.Addr
			}
			var report string
			if len(args) == 1 {
				report = args[0]
			}
			return c.runServe(cmd.Context(), addr, report)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr from config)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, reportPath string) error {
	var rep *result.Report
	if reportPath != "" {
		var err error
		if rep, err = lio.ImportReport(reportPath); err != nil {
			return err
		}
	}

	st, err := newStore(ctx, c.config().Store)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close(context.Background())
	}
	if rep == nil && st == nil {
		printWarning("No report given and no store configured; only /healthz will answer")
	}

	printInfo("Serving on %s", StyleHighlight.Render(addr))
	return server.New(server.Config{
		Addr:   addr,
		Report: rep,
		Store:  st,
		Logger: loggerFromContext(ctx),
	}).Serve(ctx)
}

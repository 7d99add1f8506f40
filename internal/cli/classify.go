package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labeltower/pkg/config"
	lio "github.com/matzehuels/labeltower/pkg/io"
	"github.com/matzehuels/labeltower/pkg/pipeline"
)

// maxUnresolvedShown bounds the unresolved packages listed after classify.
const maxUnresolvedShown = 10

type classifyOpts struct {
	scheme      string
	output      string
	formats     string
	detailed    bool
	strict      bool
	allowSplit  []string
	trace       []string
	preferences []string
	noCache     bool
	noStore     bool
	refresh     bool
}

// classifyCommand creates the classify command.
func (c *CLI) classifyCommand() *cobra.Command {
	var opts classifyOpts

	cmd := &cobra.Command{
		Use:   "classify [input.json]",
		Short: "Place the packages of an input in labels",
		Long: `Classify reads a label scheme and a JSON package input, places every
binary package in a label and writes the report as JSON.

Packages that cannot be placed are listed as unresolved; the command still
succeeds. Use "labeltower browse" to inspect them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runClassify(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scheme, "scheme", "s", "", "label scheme TOML (default: scheme from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "report file (default: <input>.report.json)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "also draw the report: dot, svg, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "list package IDs in diagrams")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail on builds whose pre-assigned labels disagree on the component")
	cmd.Flags().StringSliceVar(&opts.allowSplit, "allow-split", nil, "multibuild flavors that may leave their component, e.g. foo:python")
	cmd.Flags().StringSliceVar(&opts.trace, "trace", nil, "packages whose placement is logged in detail")
	cmd.Flags().StringArrayVar(&opts.preferences, "prefer", nil, "preference @Preferred>@Other,... (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the report cache")
	cmd.Flags().BoolVar(&opts.noStore, "no-store", false, "do not save the run to the configured store")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached reports")
	cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// pipelineOptions merges the flags over the config file.
func (c *CLI) pipelineOptions(input string, opts classifyOpts) (pipeline.Options, error) {
	po := pipeline.FromConfig(c.config())
	po.InputPath = input
	po.Logger = c.Logger
	po.Refresh = opts.refresh
	po.Formats = parseFormats(opts.formats)
	po.Detailed = opts.detailed
	po.Components = true
	po.Unresolved = true

	if opts.scheme != "" {
		po.SchemePath = opts.scheme
	}
	if po.SchemePath == "" {
		return po, fmt.Errorf("no label scheme: pass --scheme or set scheme in %s", config.FileName)
	}
	if opts.strict {
		po.StrictComponents = true
	}
	po.AllowSplit = append(po.AllowSplit, opts.allowSplit...)
	po.Trace = append(po.Trace, opts.trace...)
	for _, s := range opts.preferences {
		p, err := parsePreference(s)
		if err != nil {
			return po, err
		}
		po.Preferences = append(po.Preferences, p)
	}
	return po, nil
}

func (c *CLI) runClassify(ctx context.Context, input string, opts classifyOpts) error {
	po, err := c.pipelineOptions(input, opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache, opts.noStore)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, "Classifying "+filepath.Base(input)+"...")
	spinner.Start()
	out, err := runner.Execute(ctx, po)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.classified(out.Report.Stats, out.CacheInfo.ReportHit)

	reportPath := opts.output
	if reportPath == "" {
		reportPath = strings.TrimSuffix(input, filepath.Ext(input)) + ".report.json"
	}
	if err := lio.ExportReport(out.Report, reportPath); err != nil {
		return err
	}

	printSuccess("Classified %s", StyleHighlight.Render(filepath.Base(input)))
	printSummary(out.Report, out.CacheInfo.ReportHit, maxUnresolvedShown)
	printFile(reportPath)
	for _, format := range po.Formats {
		path := strings.TrimSuffix(reportPath, ".json") + "." + format
		if err := os.WriteFile(path, out.Artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	if out.CacheInfo.Stored {
		printKeyValue("Run", out.Report.RunID)
	}
	if out.Report.Stats.Unresolved > 0 {
		printNextStep("Inspect unresolved packages", "labeltower browse "+reportPath)
	}
	return nil
}

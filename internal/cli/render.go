package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/labeltower/pkg/cache"
	lio "github.com/matzehuels/labeltower/pkg/io"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/pipeline"
	"github.com/matzehuels/labeltower/pkg/render"
	"github.com/matzehuels/labeltower/pkg/render/nodelink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string   // output file (single format) or base path
	formats     []string // output formats: dot, svg, pdf, png
	order       bool     // input is a label scheme; draw its label order
	detailed    bool     // list package IDs (report) or ranks (order)
	maxPackages int      // package IDs listed per label
	components  bool     // group labels by component
	unresolved  bool     // add a node for unplaced packages
	noCache     bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{components: true, unresolved: true}

	cmd := &cobra.Command{
		Use:   "render [report.json | scheme.toml]",
		Short: "Draw a report or the label order of a scheme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if len(opts.formats) == 0 {
				opts.formats = []string{render.FormatSVG}
			}
			if err := pipeline.ValidateFormats(opts.formats); err != nil {
				return err
			}
			if opts.order {
				return c.runRenderOrder(cmd.Context(), args[0], &opts)
			}
			return c.runRenderReport(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, pdf, png (comma-separated)")
	cmd.Flags().BoolVar(&opts.order, "order", false, "draw the label order of a scheme instead of a report")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "list package IDs in labels")
	cmd.Flags().IntVar(&opts.maxPackages, "max-packages", pipeline.DefaultMaxPackages, "package IDs listed per label with --detailed")
	cmd.Flags().BoolVar(&opts.components, "components", opts.components, "group labels by component")
	cmd.Flags().BoolVar(&opts.unresolved, "unresolved", opts.unresolved, "show unresolved packages")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")
	cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// basePath derives the base output path. Without output the input's
// extension is stripped; a known format extension on output is stripped too.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if pipeline.ValidFormats[strings.TrimPrefix(ext, ".")] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPath returns where a format is written. A single format may go to
// output verbatim.
func outputPath(output, input, format string, single bool) string {
	if single && output != "" && filepath.Ext(output) != "" {
		return output
	}
	return basePath(output, input) + "." + format
}

func (c *CLI) runRenderReport(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	logger.Infof("Rendering %s", input)

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	rep, err := lio.ImportReport(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache, true)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	artifacts, hit, err := runner.RenderWithCacheInfo(ctx, rep, cache.Hash(data), pipeline.Options{
		Formats:     opts.formats,
		Detailed:    opts.detailed,
		MaxPackages: opts.maxPackages,
		Components:  opts.components,
		Unresolved:  opts.unresolved,
	})
	if err != nil {
		return err
	}
	prog.done("Rendered report", "formats", opts.formats, "cached", hit)

	return writeArtifacts(artifacts, input, opts)
}

func (c *CLI) runRenderOrder(ctx context.Context, input string, opts *renderOpts) error {
	logger := loggerFromContext(ctx)
	logger.Infof("Rendering label order of %s", input)

	scheme, err := pipeline.LoadScheme(ctx, input)
	if err != nil {
		return err
	}
	order, err := scheme.Order(label.KindBinary)
	if err != nil {
		return err
	}

	dot := nodelink.OrderDOT(order, nodelink.Options{Detailed: opts.detailed})
	artifacts := make(map[string][]byte, len(opts.formats))
	for _, format := range opts.formats {
		data, err := nodelink.Render(dot, format)
		if err != nil {
			return fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return writeArtifacts(artifacts, input, opts)
}

func writeArtifacts(artifacts map[string][]byte, input string, opts *renderOpts) error {
	single := len(opts.formats) == 1
	for _, format := range opts.formats {
		path := outputPath(opts.output, input, format, single)
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}
	return nil
}

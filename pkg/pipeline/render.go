package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/labeltower/pkg/observability"
	"github.com/matzehuels/labeltower/pkg/render/nodelink"
	"github.com/matzehuels/labeltower/pkg/result"
)

// Render draws the report in every requested format.
func Render(ctx context.Context, rep *result.Report, opts Options) (map[string][]byte, error) {
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	artifacts, err := renderArtifacts(rep, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	return artifacts, err
}

func renderArtifacts(rep *result.Report, opts Options) (map[string][]byte, error) {
	dot := nodelink.ReportDOT(rep, opts.NodelinkOptions())
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := nodelink.Render(dot, format)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

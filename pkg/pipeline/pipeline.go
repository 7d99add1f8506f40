// Package pipeline provides the classification pipeline shared by the CLI and
// the query server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read the label scheme and the package input
//  2. Classify: build the solving tree and run the solver
//  3. Render: draw the resulting report as DOT, SVG, PDF or PNG
//
// Each stage can be run on its own or through a [Runner], which caches
// reports and renderings and optionally stores every run.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, nil, logger)
//	defer runner.Close()
//
//	out, err := runner.Execute(ctx, pipeline.Options{
//	    SchemePath: "labels.toml",
//	    InputPath:  "packages.json",
//	    Formats:    []string{"svg"},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(out.Report.Stats.Unresolved)
//	svg := out.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labeltower/pkg/cache"
	"github.com/matzehuels/labeltower/pkg/config"
	"github.com/matzehuels/labeltower/pkg/render"
	"github.com/matzehuels/labeltower/pkg/render/nodelink"
	"github.com/matzehuels/labeltower/pkg/result"
)

// DefaultMaxPackages is the number of package IDs listed per label in
// detailed diagrams.
const DefaultMaxPackages = 12

// ValidFormats lists the accepted output formats.
var ValidFormats = map[string]bool{
	render.FormatDOT: true,
	render.FormatSVG: true,
	render.FormatPDF: true,
	render.FormatPNG: true,
}

// Options holds all configuration for a pipeline run.
type Options struct {
	// Load
	SchemePath string
	InputPath  string

	// Classify
	StrictComponents bool
	AllowSplit       []string
	Trace            []string
	Preferences      []config.Preference

	// Render
	Formats     []string
	Detailed    bool
	MaxPackages int
	Components  bool
	Unresolved  bool

	// Refresh bypasses cached reports and renderings.
	Refresh bool

	Logger *log.Logger `json:"-"`
}

// FromConfig returns options seeded with the solver settings of cfg.
func FromConfig(cfg *config.Config) Options {
	return Options{
		SchemePath:       cfg.Scheme,
		StrictComponents: cfg.Solver.StrictComponents,
		AllowSplit:       slices.Clone(cfg.Solver.AllowSplit),
		Trace:            slices.Clone(cfg.Solver.Trace),
		Preferences:      slices.Clone(cfg.Solver.Preferences),
	}
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if o.SchemePath == "" {
		return fmt.Errorf("scheme path is required")
	}
	if o.InputPath == "" {
		return fmt.Errorf("input path is required")
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	for _, p := range o.Preferences {
		if p.Preferred == "" || len(p.Others) == 0 {
			return fmt.Errorf("invalid preference %q", p.String())
		}
	}
	if o.MaxPackages <= 0 {
		o.MaxPackages = DefaultMaxPackages
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return nil
}

// ValidateFormats checks that every format is supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if !ValidFormats[f] {
			return fmt.Errorf("invalid format: %s (must be one of %v)", f, render.Formats)
		}
	}
	return nil
}

// ReportKeyOpts returns the options that identify a cached report.
func (o Options) ReportKeyOpts() cache.ReportKeyOpts {
	prefs := make([]string, len(o.Preferences))
	for i, p := range o.Preferences {
		prefs[i] = p.String()
	}
	return cache.ReportKeyOpts{
		StrictComponents: o.StrictComponents,
		AllowSplit:       o.AllowSplit,
		Preferences:      prefs,
	}
}

// RenderKeyOpts returns the options that identify a cached rendering.
func (o Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	return cache.RenderKeyOpts{Format: format, Detailed: o.Detailed}
}

// NodelinkOptions returns the diagram options.
func (o Options) NodelinkOptions() nodelink.Options {
	return nodelink.Options{
		Detailed:    o.Detailed,
		MaxPackages: o.MaxPackages,
		Components:  o.Components,
		Unresolved:  o.Unresolved,
	}
}

// Output holds everything a pipeline run produced.
type Output struct {
	// Report is the classification report. It is always set.
	Report *result.Report
	// Result is the full result. It is nil when the report came from the
	// cache.
	Result *result.Result
	// Artifacts maps format to rendered bytes.
	Artifacts map[string][]byte

	SchemeHash string
	InputHash  string

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats holds timing information of a run.
type Stats struct {
	LoadTime     time.Duration
	ClassifyTime time.Duration
	RenderTime   time.Duration
}

// CacheInfo reports which stages were served from the cache.
type CacheInfo struct {
	ReportHit bool
	RenderHit bool
	Stored    bool
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labeltower/pkg/cache"
	lio "github.com/matzehuels/labeltower/pkg/io"
	"github.com/matzehuels/labeltower/pkg/observability"
	"github.com/matzehuels/labeltower/pkg/result"
	"github.com/matzehuels/labeltower/pkg/store"
)

// Runner encapsulates pipeline execution with caching.
// Both the CLI and the query server use it.
//
// The Runner is stateless except for the cache, the store and the logger.
// Multiple goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Store  store.Store
	Logger *log.Logger

	// ReportTTL is the lifetime of cached reports. Defaults to
	// cache.ReportTTL.
	ReportTTL time.Duration
}

// NewRunner creates a runner.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// If st is nil, runs are not persisted.
func NewRunner(c cache.Cache, keyer cache.Keyer, st store.Store, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Store:     st,
		Logger:    logger,
		ReportTTL: cache.ReportTTL,
	}
}

// Execute loads, classifies and renders with caching. Freshly computed
// reports are saved to the store, if there is one.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Output, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	out := &Output{Artifacts: make(map[string][]byte)}

	// Stage 1: Load
	loadStart := time.Now()
	scheme, err := LoadScheme(ctx, opts.SchemePath)
	if err != nil {
		return nil, fmt.Errorf("load scheme: %w", err)
	}
	data, err := readInput(opts.InputPath)
	if err != nil {
		return nil, err
	}
	out.SchemeHash = scheme.Fingerprint()
	out.InputHash = cache.Hash(data)
	out.Stats.LoadTime = time.Since(loadStart)

	// Stage 2: Classify
	classifyStart := time.Now()
	key := r.Keyer.ReportKey(out.SchemeHash, out.InputHash, opts.ReportKeyOpts())
	reportData, hit := r.cachedReport(ctx, key, opts)
	if hit {
		rep, err := lio.ReadReport(bytes.NewReader(reportData))
		if err == nil {
			out.Report = rep
			out.CacheInfo.ReportHit = true
		} else {
			r.Logger.Warn("discarding unreadable cached report", "error", err)
		}
	}
	if out.Report == nil {
		in, err := parseInput(ctx, opts.InputPath, data, scheme)
		if err != nil {
			return nil, fmt.Errorf("load input: %w", err)
		}
		res, err := Classify(ctx, scheme, in, opts)
		if err != nil {
			return nil, fmt.Errorf("classify: %w", err)
		}
		out.Result = res
		out.Report = res.Report()

		var buf bytes.Buffer
		if err := lio.WriteReport(out.Report, &buf); err != nil {
			return nil, err
		}
		reportData = buf.Bytes()
		r.cacheSet(ctx, key, reportData, r.ReportTTL)

		if r.Store != nil {
			if err := r.Store.Save(ctx, store.NewRecord(out.Report, out.InputHash)); err != nil {
				return nil, fmt.Errorf("store run: %w", err)
			}
			out.CacheInfo.Stored = true
		}
	}
	out.Stats.ClassifyTime = time.Since(classifyStart)

	r.Logger.Info("classified packages",
		"packages", out.Report.Stats.Packages,
		"solved", out.Report.Stats.Solved,
		"unresolved", out.Report.Stats.Unresolved,
		"cached", out.CacheInfo.ReportHit,
		"duration", out.Stats.ClassifyTime)

	// Stage 3: Render
	if len(opts.Formats) == 0 {
		return out, nil
	}
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, out.Report, cache.Hash(reportData), opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	out.Artifacts = artifacts
	out.Stats.RenderTime = time.Since(renderStart)
	out.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", out.Stats.RenderTime)

	return out, nil
}

func (r *Runner) cachedReport(ctx context.Context, key string, opts Options) ([]byte, bool) {
	if opts.Refresh {
		return nil, false
	}
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache lookup failed", "error", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, cache.KindReport)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cache.KindReport)
	return data, true
}

func (r *Runner) cacheSet(ctx context.Context, key string, data []byte, ttl time.Duration) {
	kind := cache.KindOf(key)
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "kind", kind, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

// RenderWithCacheInfo renders rep in every requested format, reusing cached
// renderings, and reports whether all of them came from the cache.
// reportHash identifies rep; see [cache.Hash].
func (r *Runner) RenderWithCacheInfo(ctx context.Context, rep *result.Report, reportHash string, opts Options) (map[string][]byte, bool, error) {
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}
	if opts.MaxPackages <= 0 {
		opts.MaxPackages = DefaultMaxPackages
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if !opts.Refresh {
			key := r.Keyer.RenderKey(reportHash, opts.RenderKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				observability.Cache().OnCacheHit(ctx, cache.KindRender)
				artifacts[format] = data
				continue
			}
			observability.Cache().OnCacheMiss(ctx, cache.KindRender)
		}
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(ctx, rep, renderOpts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		r.cacheSet(ctx, r.Keyer.RenderKey(reportHash, opts.RenderKeyOpts(format)), data, cache.RenderTTL)
	}
	return artifacts, false, nil
}

// Close releases the cache and the store.
func (r *Runner) Close() error {
	var firstErr error
	if r.Store != nil {
		if err := r.Store.Close(context.Background()); err != nil {
			firstErr = err
		}
	}
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

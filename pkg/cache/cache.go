// Package cache stores classification reports and rendered artifacts so that
// repeating a run with unchanged inputs does not solve again.
//
// A [Cache] is a plain byte store with expiry. Three backends exist:
// [FileCache] for the CLI, [RedisCache] for shared deployments and
// [NullCache] when caching is disabled. Keys are derived by a [Keyer] from
// everything that influences the outcome of a run: the scheme fingerprint,
// a hash of the input, and the solver options.
package cache

import (
	"context"
	"time"
)

// Default lifetimes of cached entries.
const (
	ReportTTL = 24 * time.Hour
	RenderTTL = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored data and whether the key was present.
	// Expired entries are reported as missing.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop all of their entries.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// ReportKeyOpts are the solver options that change a classification.
type ReportKeyOpts struct {
	StrictComponents bool     `json:"strict_components,omitempty"`
	AllowSplit       []string `json:"allow_split,omitempty"`
	Preferences      []string `json:"preferences,omitempty"`
}

// RenderKeyOpts are the options of a rendered artifact.
type RenderKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// ReportKey identifies the report of classifying an input under a scheme.
	ReportKey(schemeHash, inputHash string, opts ReportKeyOpts) string
	// RenderKey identifies a rendering of a report.
	RenderKey(reportHash string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes all key components into "report:<sha256>" and
// "render:<sha256>"; see [KindOf].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ReportKey implements [Keyer].
func (DefaultKeyer) ReportKey(schemeHash, inputHash string, opts ReportKeyOpts) string {
	return hashKey(KindReport, schemeHash, inputHash, opts)
}

// RenderKey implements [Keyer].
func (DefaultKeyer) RenderKey(reportHash string, opts RenderKeyOpts) string {
	return hashKey(KindRender, reportHash, opts)
}

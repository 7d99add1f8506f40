// Package cli implements the labeltower command-line interface.
//
// # Commands
//
//   - classify: place the packages of an input in labels and write a report
//   - render: draw a report, or the label order of a scheme
//   - browse: step through the unresolved packages of a report
//   - serve: serve reports through the query API
//   - runs: list, show and delete stored runs
//   - cache: manage the report cache
//
// # Configuration
//
// Settings are read from labeltower.toml (see package config), either the
// file given with --config or the one found by config.Find. Flags override
// the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/labeltower/pkg/buildinfo"
	"github.com/matzehuels/labeltower/pkg/cache"
	"github.com/matzehuels/labeltower/pkg/config"
	"github.com/matzehuels/labeltower/pkg/pipeline"
	"github.com/matzehuels/labeltower/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "labeltower"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Labeltower places distribution packages in labels",
		Long: `Labeltower assigns every binary package of a distribution to exactly one
label of a layered label scheme, so that packages only require packages in
the same or lower labels.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./labeltower.toml)")

	root.AddCommand(c.classifyCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file, if any. Without one the defaults apply.
func (c *CLI) loadConfig() error {
	path := c.configPath
	if path == "" {
		path = config.Find()
	}
	if path == "" {
		c.cfg = config.Default()
		return nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded config", "path", path)
	c.cfg = cfg
	return nil
}

func (c *CLI) config() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner from the configuration.
func (c *CLI) newRunner(ctx context.Context, noCache, noStore bool) (*pipeline.Runner, error) {
	cfg := c.config()
	ch, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		return nil, err
	}
	var st store.Store
	if !noStore {
		if st, err = newStore(ctx, cfg.Store); err != nil {
			ch.Close()
			return nil, err
		}
	}

	var keyer cache.Keyer
	if cfg.Cache.Scope != "" {
		keyer = cache.NewScopedKeyer(cache.NewDefaultKeyer(), cfg.Cache.Scope)
	}
	r := pipeline.NewRunner(ch, keyer, st, c.Logger)
	if cfg.Cache.TTL > 0 {
		r.ReportTTL = cfg.Cache.TTL
	}
	return r, nil
}

// newCache opens the configured cache backend.
func newCache(ctx context.Context, cfg config.CacheConfig, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// newStore opens the configured run store. It returns nil for backend none.
func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		dir := cfg.Dir
		if dir == "" {
			var err error
			if dir, err = dataDir(); err != nil {
				return nil, err
			}
			dir = filepath.Join(dir, "runs")
		}
		return store.NewFileStore(dir)
	case config.BackendMongo:
		return store.NewMongoStore(ctx, store.MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
	}
	return nil, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/labeltower/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// dataDir returns the data directory using XDG standard (~/.local/share/labeltower/).
func dataDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appName), nil
}

// =============================================================================
// Flag Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// parsePreference parses "@Preferred>@Other,@Other".
func parsePreference(s string) (config.Preference, error) {
	preferred, others, ok := strings.Cut(s, ">")
	preferred = strings.TrimSpace(preferred)
	if !ok || preferred == "" || strings.TrimSpace(others) == "" {
		return config.Preference{}, fmt.Errorf("invalid preference %q (want @Preferred>@Other,...)", s)
	}
	p := config.Preference{Preferred: preferred}
	for _, o := range strings.Split(others, ",") {
		if o = strings.TrimSpace(o); o != "" {
			p.Others = append(p.Others, o)
		}
	}
	return p, nil
}

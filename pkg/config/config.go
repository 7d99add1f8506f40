// Package config loads labeltower.toml, the settings shared by the CLI and
// the query server.
//
//	scheme = "labels.toml"
//
//	[solver]
//	strict_components = false
//	allow_split = ["foo:python"]
//	trace = ["foo-devel"]
//
//	[[solver.preference]]
//	preferred = "@Foo"
//	others = ["@Bar"]
//
//	[cache]
//	backend = "file"   # file | redis | none
//	redis_url = "redis://localhost:6379/0"
//	ttl = "24h"
//
//	[store]
//	backend = "mongo"  # none | file | mongo
//	mongo_uri = "mongodb://localhost:27017"
//	database = "labeltower"
//
//	[server]
//	addr = ":8080"
//
// Relative paths are resolved against the directory of the config file.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/labeltower/pkg/errors"
)

// FileName is the name looked up by [Find].
const FileName = "labeltower.toml"

// Cache and store backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
)

// Config is the decoded configuration.
type Config struct {
	Scheme string       `toml:"scheme"`
	Solver SolverConfig `toml:"solver"`
	Cache  CacheConfig  `toml:"cache"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
}

// SolverConfig holds the options of tree building and solving.
type SolverConfig struct {
	StrictComponents bool         `toml:"strict_components"`
	AllowSplit       []string     `toml:"allow_split"`
	Trace            []string     `toml:"trace"`
	Preferences      []Preference `toml:"preference"`
}

// Preference prefers one label over others.
type Preference struct {
	Preferred string   `toml:"preferred"`
	Others    []string `toml:"others"`
}

// String returns "preferred>other,other".
func (p Preference) String() string {
	return p.Preferred + ">" + strings.Join(p.Others, ",")
}

// PreferenceKeys returns the preferences in a form suitable for cache keys.
func (c SolverConfig) PreferenceKeys() []string {
	out := make([]string, len(c.Preferences))
	for i, p := range c.Preferences {
		out[i] = p.String()
	}
	return out
}

// CacheConfig selects the report cache.
type CacheConfig struct {
	Backend  string        `toml:"backend"`
	Dir      string        `toml:"dir"`
	RedisURL string        `toml:"redis_url"`
	TTL      time.Duration `toml:"ttl"`
	// Scope prefixes all cache keys, for caches shared between products.
	Scope string `toml:"scope"`
}

// StoreConfig selects where runs are persisted.
type StoreConfig struct {
	Backend    string `toml:"backend"`
	Dir        string `toml:"dir"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// ServerConfig configures the query API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     24 * time.Hour,
		},
		Store: StoreConfig{
			Backend:  BackendNone,
			Database: "labeltower",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads the config file at path on top of the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open config %s", path)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// Decode reads a config on top of the defaults and validates it. Unknown
// keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown keys in config: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var problems []string

	switch c.Cache.Backend {
	case BackendNone, BackendFile:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			problems = append(problems, "cache backend redis needs redis_url")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		problems = append(problems, "cache ttl must not be negative")
	}

	switch c.Store.Backend {
	case BackendNone, BackendFile:
	case BackendMongo:
		if c.Store.MongoURI == "" {
			problems = append(problems, "store backend mongo needs mongo_uri")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store backend %q", c.Store.Backend))
	}

	for _, name := range c.Solver.AllowSplit {
		if base, flavor, ok := strings.Cut(name, ":"); !ok || base == "" || flavor == "" {
			problems = append(problems, fmt.Sprintf("allow_split entry %q is not a multibuild flavor", name))
		}
	}
	for _, p := range c.Solver.Preferences {
		if err := errors.ValidateLabelName(p.Preferred); err != nil {
			problems = append(problems, fmt.Sprintf("preference: %s", errors.UserMessage(err)))
		}
		if len(p.Others) == 0 {
			problems = append(problems, fmt.Sprintf("preference for %s lists no other labels", p.Preferred))
		}
		if slices.Contains(p.Others, p.Preferred) {
			problems = append(problems, fmt.Sprintf("label %s is preferred over itself", p.Preferred))
		}
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeConfiguration, "invalid configuration").WithEvidence(problems...)
	}
	return nil
}

func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{&c.Scheme, &c.Cache.Dir, &c.Store.Dir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Find returns the path of the config file to use: labeltower.toml in the
// working directory, then in the user config directory. It returns "" if
// neither exists.
func Find() string {
	candidates := []string{FileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "labeltower", FileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

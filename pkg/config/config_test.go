package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/labeltower/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Cache.Backend != BackendFile || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Default().Cache = %+v, want file backend with 24h ttl", cfg.Cache)
	}
	if cfg.Store.Backend != BackendNone {
		t.Errorf("Default().Store.Backend = %s, want none", cfg.Store.Backend)
	}
}

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
scheme = "labels.toml"

[solver]
strict_components = true
allow_split = ["foo:python"]
trace = ["foo-devel"]

[[solver.preference]]
preferred = "@Foo"
others = ["@Bar", "@Baz"]

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/0"
ttl = "2h"

[store]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"

[server]
addr = "127.0.0.1:9000"
`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !cfg.Solver.StrictComponents || len(cfg.Solver.AllowSplit) != 1 {
		t.Errorf("Solver = %+v", cfg.Solver)
	}
	if got := cfg.Solver.PreferenceKeys(); len(got) != 1 || got[0] != "@Foo>@Bar,@Baz" {
		t.Errorf("PreferenceKeys() = %v, want [@Foo>@Bar,@Baz]", got)
	}
	if cfg.Cache.TTL != 2*time.Hour {
		t.Errorf("Cache.TTL = %v, want 2h", cfg.Cache.TTL)
	}
	if cfg.Store.Database != "labeltower" {
		t.Errorf("Store.Database = %q, want default labeltower", cfg.Store.Database)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		code   errors.Code
	}{
		{"syntax", `[cache`, errors.ErrCodeInvalidFormat},
		{"unknown key", `colour = "blue"`, errors.ErrCodeInvalidFormat},
		{"cache backend", "[cache]\nbackend = \"memcached\"", errors.ErrCodeConfiguration},
		{"redis url", "[cache]\nbackend = \"redis\"", errors.ErrCodeConfiguration},
		{"mongo uri", "[store]\nbackend = \"mongo\"", errors.ErrCodeConfiguration},
		{"allow split", "[solver]\nallow_split = [\"foo\"]", errors.ErrCodeConfiguration},
		{"self preference", "[[solver.preference]]\npreferred = \"@A\"\nothers = [\"@A\"]", errors.ErrCodeConfiguration},
		{"empty preference", "[[solver.preference]]\npreferred = \"@A\"", errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.config))
			if !errors.Is(err, tt.code) {
				t.Errorf("Decode() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := "scheme = \"labels.toml\"\n[cache]\ndir = \"/var/cache/lt\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join(dir, "labels.toml"); cfg.Scheme != want {
		t.Errorf("Scheme = %s, want %s", cfg.Scheme, want)
	}
	if cfg.Cache.Dir != "/var/cache/lt" {
		t.Errorf("Cache.Dir = %s, want absolute path kept", cfg.Cache.Dir)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

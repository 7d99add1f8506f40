package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/labeltower/pkg/cache"
	"github.com/matzehuels/labeltower/pkg/config"
	"github.com/matzehuels/labeltower/pkg/store"
)

const testScheme = `
[[component]]
name = "Base"

[[buildconfig]]
name = "Base/standard"

[[purpose]]
name = "devel"
suffixes = ["-devel"]

[[label]]
name = "@Core"
buildconfig = "Base/standard"
purposes = ["devel"]
`

const testInput = `{
  "builds": [
    {
      "name": "glibc",
      "binaries": [{"name": "glibc", "arch": "x86_64", "label": "@Core"}]
    },
    {
      "name": "zlib",
      "base_label": "@Core",
      "sources": [{"name": "zlib", "arch": "src", "requires": ["glibc"]}],
      "binaries": [
        {"name": "libz1", "arch": "x86_64", "requires": ["glibc.x86_64"]},
        {"name": "zlib-devel", "arch": "x86_64", "label": "devel", "requires": ["libz1"]}
      ]
    }
  ]
}`

func writeFixtures(t *testing.T) (scheme, input string) {
	t.Helper()
	dir := t.TempDir()
	scheme = filepath.Join(dir, "labels.toml")
	input = filepath.Join(dir, "packages.json")
	if err := os.WriteFile(scheme, []byte(testScheme), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(input, []byte(testInput), 0o644); err != nil {
		t.Fatal(err)
	}
	return scheme, input
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		formats []string
		wantErr bool
	}{
		{[]string{"svg", "png"}, false},
		{[]string{"dot"}, false},
		{[]string{"pdf"}, false},
		{nil, false},
		{[]string{"svg", "invalid"}, true},
		{[]string{"SVG"}, true}, // case-sensitive
		{[]string{""}, true},
	}

	for _, tt := range tests {
		err := ValidateFormats(tt.formats)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormats(%q) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"valid", Options{SchemePath: "s.toml", InputPath: "in.json"}, false},
		{"missing scheme", Options{InputPath: "in.json"}, true},
		{"missing input", Options{SchemePath: "s.toml"}, true},
		{"bad format", Options{SchemePath: "s.toml", InputPath: "in.json", Formats: []string{"gif"}}, true},
		{"empty preference", Options{
			SchemePath:  "s.toml",
			InputPath:   "in.json",
			Preferences: []config.Preference{{Preferred: "@Foo"}},
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAndSetDefaults() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if tt.opts.MaxPackages != DefaultMaxPackages {
					t.Errorf("MaxPackages = %d, want %d", tt.opts.MaxPackages, DefaultMaxPackages)
				}
				if tt.opts.Logger == nil {
					t.Error("Logger not defaulted")
				}
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Scheme = "labels.toml"
	cfg.Solver.StrictComponents = true
	cfg.Solver.AllowSplit = []string{"foo:python"}
	cfg.Solver.Preferences = []config.Preference{{Preferred: "@A", Others: []string{"@B", "@C"}}}

	opts := FromConfig(cfg)
	if opts.SchemePath != "labels.toml" || !opts.StrictComponents {
		t.Errorf("FromConfig() = %+v", opts)
	}
	keys := opts.ReportKeyOpts()
	if len(keys.Preferences) != 1 || keys.Preferences[0] != "@A>@B,@C" {
		t.Errorf("ReportKeyOpts().Preferences = %v, want [@A>@B,@C]", keys.Preferences)
	}

	cfg.Solver.AllowSplit[0] = "bar:perl"
	if opts.AllowSplit[0] != "foo:python" {
		t.Error("FromConfig() shares AllowSplit with the config")
	}
}

func TestExecute(t *testing.T) {
	scheme, input := writeFixtures(t)
	ctx := context.Background()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	runner := NewRunner(c, nil, st, nil)
	defer runner.Close()

	opts := Options{SchemePath: scheme, InputPath: input, Formats: []string{"dot"}}

	first, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first.CacheInfo.ReportHit {
		t.Error("first Execute() hit the report cache")
	}
	if first.Result == nil {
		t.Fatal("first Execute() returned no result")
	}
	if !first.CacheInfo.Stored {
		t.Error("first Execute() did not store the run")
	}
	stats := first.Report.Stats
	if stats.Packages == 0 || stats.Solved+stats.Unresolved != stats.Packages {
		t.Errorf("Report.Stats = %+v, want every package solved or unresolved", stats)
	}
	if _, ok := first.Report.Package("glibc"); !ok {
		t.Error("Report.Package(glibc) not found")
	}
	if len(first.Artifacts["dot"]) == 0 {
		t.Error("Artifacts[dot] is empty")
	}

	second, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if !second.CacheInfo.ReportHit || !second.CacheInfo.RenderHit {
		t.Errorf("second Execute() CacheInfo = %+v, want report and render hits", second.CacheInfo)
	}
	if second.Result != nil {
		t.Error("cached Execute() should not return a result")
	}
	if second.CacheInfo.Stored {
		t.Error("cached Execute() stored the run again")
	}
	if second.Report.RunID != first.Report.RunID {
		t.Errorf("cached RunID = %s, want %s", second.Report.RunID, first.Report.RunID)
	}

	opts.Refresh = true
	third, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("refreshed Execute() error = %v", err)
	}
	if third.CacheInfo.ReportHit {
		t.Error("refreshed Execute() hit the cache")
	}
	if third.Report.RunID == first.Report.RunID {
		t.Error("refreshed Execute() reused the cached run ID")
	}

	runs, err := st.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("List() = %d runs, want 2", len(runs))
	}
}

func TestExecuteKeyDependsOnOptions(t *testing.T) {
	scheme, input := writeFixtures(t)
	ctx := context.Background()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	runner := NewRunner(c, nil, nil, nil)

	opts := Options{SchemePath: scheme, InputPath: input}
	if _, err := runner.Execute(ctx, opts); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	opts.StrictComponents = true
	out, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.CacheInfo.ReportHit {
		t.Error("Execute() with different solver options hit the cache")
	}
}

func TestExecuteKeyDependsOnScheme(t *testing.T) {
	scheme, input := writeFixtures(t)
	ctx := context.Background()

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	runner := NewRunner(c, nil, nil, nil)

	opts := Options{SchemePath: scheme, InputPath: input}
	first, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	edited := strings.Replace(testScheme, `suffixes = ["-devel"]`, `suffixes = ["-headers"]`, 1)
	if err := os.WriteFile(scheme, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.SchemeHash == first.SchemeHash {
		t.Error("SchemeHash unchanged after editing purpose suffixes")
	}
	if out.CacheInfo.ReportHit {
		t.Error("Execute() after a scheme edit hit the cache")
	}
}

func TestExecuteErrors(t *testing.T) {
	scheme, input := writeFixtures(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"builds": [{"name": "x", "binaries": [{"name": "y", "arch": "x86_64", "label": "@Missing"}]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"missing scheme file", Options{SchemePath: filepath.Join(dir, "none.toml"), InputPath: input}},
		{"missing input file", Options{SchemePath: scheme, InputPath: filepath.Join(dir, "none.json")}},
		{"unknown label", Options{SchemePath: scheme, InputPath: bad}},
	}

	runner := NewRunner(nil, nil, nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runner.Execute(context.Background(), tt.opts); err == nil {
				t.Error("Execute() should fail")
			}
		})
	}
}

func TestClassifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Classify(ctx, nil, nil, Options{}); err == nil {
		t.Error("Classify() with a canceled context should fail")
	}
}

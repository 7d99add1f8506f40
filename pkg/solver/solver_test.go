package solver

import (
	stderrors "errors"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
	"github.com/matzehuels/labeltower/pkg/result"
	"github.com/matzehuels/labeltower/pkg/stree"
)

const testScheme = `
[[component]]
name = "Base"

[[component]]
name = "Top"
global = { doc = "@TopDocs" }

[[buildconfig]]
name = "Base/standard"

[[buildconfig]]
name = "Top/standard"
requires = ["@L4"]

[[purpose]]
name = "devel"
suffixes = ["-devel"]

[[purpose]]
name = "doc"
disposition = "component_wide"
suffixes = ["-doc"]

[[label]]
name = "@L3"
buildconfig = "Base/standard"
purposes = ["devel"]

[[label]]
name = "@L2"
requires = ["@L3"]
buildconfig = "Base/standard"
purposes = ["devel"]

[[label]]
name = "@L1"
requires = ["@L2"]
buildconfig = "Top/standard"
purposes = ["devel"]

[[label]]
name = "@L4"
buildconfig = "Base/standard"
purposes = ["devel"]

[[label]]
name = "@Api"
buildconfig = "Base/standard"
purposes = ["devel"]

[[label]]
name = "@L5"
buildconfig = "Base/standard"
api = "@Api"

[[label]]
name = "@TopDocs"
buildconfig = "Top/standard"
`

type fixture struct {
	t      *testing.T
	scheme *label.Scheme
	order  *poset.PartialOrder[*label.Label]
	builds map[string]*distro.Build
	pkgs   map[string]*distro.Package
	all    []*distro.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureFrom(t, testScheme)
}

func newFixtureFrom(t *testing.T, src string) *fixture {
	t.Helper()
	scheme, err := label.LoadTOML(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadTOML() error = %v", err)
	}
	order, err := scheme.Order(label.KindBinary)
	if err != nil {
		t.Fatalf("Order() error = %v", err)
	}
	return &fixture{
		t:      t,
		scheme: scheme,
		order:  order,
		builds: make(map[string]*distro.Build),
		pkgs:   make(map[string]*distro.Package),
	}
}

func (f *fixture) build(name string) *distro.Build {
	b, ok := f.builds[name]
	if !ok {
		b = &distro.Build{Name: name}
		f.builds[name] = b
	}
	return b
}

// pkg adds a binary package to a build. labelName may name a binary label,
// an auto flavor or a purpose, or be empty.
func (f *fixture) pkg(build, name, labelName string) *distro.Package {
	f.t.Helper()
	p := &distro.Package{Name: name, Arch: "x86_64"}
	if labelName != "" {
		if p.Label = f.scheme.Label(labelName); p.Label == nil {
			f.t.Fatalf("unknown label %s", labelName)
		}
	}
	f.build(build).AddBinary(p)
	f.pkgs[name] = p
	f.all = append(f.all, p)
	return p
}

func (f *fixture) src(build, name string) *distro.Package {
	p := &distro.Package{Name: name, Arch: "src"}
	f.build(build).AddSource(p)
	f.pkgs[name] = p
	f.all = append(f.all, p)
	return p
}

func (f *fixture) requires(a string, bs ...string) {
	for _, b := range bs {
		f.pkgs[a].Requires = append(f.pkgs[a].Requires, f.pkgs[b])
	}
}

func (f *fixture) tree() *stree.Tree {
	f.t.Helper()
	tree, err := stree.NewBuilder(f.scheme, f.order, stree.Options{Logger: silent()}).Build(f.all)
	if err != nil {
		f.t.Fatalf("Build() error = %v", err)
	}
	return tree
}

func (f *fixture) solver() (*Solver, *stree.Tree) {
	f.t.Helper()
	tree := f.tree()
	s, err := New(tree, Options{Logger: silent()})
	if err != nil {
		f.t.Fatalf("New() error = %v", err)
	}
	return s, tree
}

func (f *fixture) solve() *result.Result {
	f.t.Helper()
	s, _ := f.solver()
	res, err := s.Solve()
	if err != nil {
		f.t.Fatalf("Solve() error = %v", err)
	}
	return res
}

func (f *fixture) labelOf(res *result.Result, pkg string) string {
	if l := res.LabelOf(f.pkgs[pkg]); l != nil {
		return l.Name
	}
	return "<none>"
}

func silent() *log.Logger { return log.New(&strings.Builder{}) }

func unresolved(res *result.Result, id string) (result.Unresolved, bool) {
	i := slices.IndexFunc(res.Unresolved(), func(u result.Unresolved) bool { return u.Package == id })
	if i < 0 {
		return result.Unresolved{}, false
	}
	return res.Unresolved()[i], true
}

// In a bare chain nothing bounds B from above, so the common base label
// heuristic takes the maximum of its candidates and B joins A in @L1.
func TestSolveChain(t *testing.T) {
	f := newFixture(t)
	f.pkg("a", "A", "")
	f.pkg("b", "B", "")
	f.pkg("c", "C", "@L3")
	f.requires("A", "B")
	f.requires("B", "C")
	s, tree := f.solver()

	cands := tree.Node(f.pkgs["B"]).Candidates()
	if cands == nil {
		t.Fatal("Candidates(B) = nil, want the labels above @L3")
	}
	for _, name := range []string{"@L1", "@L2", "@L3"} {
		if !cands.Contains(f.scheme.Label(name)) {
			t.Errorf("Candidates(B) = %s, missing %s", cands, name)
		}
	}

	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	tests := []struct {
		pkg, want string
	}{
		{"A", "@L1"},
		{"B", "@L1"},
		{"C", "@L3"},
	}
	for _, tt := range tests {
		if got := f.labelOf(res, tt.pkg); got != tt.want {
			t.Errorf("LabelOf(%s) = %s, want %s", tt.pkg, got, tt.want)
		}
	}
	if got := len(res.Unresolved()); got != 0 {
		t.Errorf("Unresolved() = %v, want none", res.Unresolved())
	}
}

// A sibling already in @L2 pulls B down to @L2, leaving @L1 to A.
func TestSolveChainWithPlacedSibling(t *testing.T) {
	f := newFixture(t)
	f.pkg("a", "A", "")
	f.pkg("b", "B", "")
	f.pkg("b", "B2", "@L2")
	f.pkg("c", "C", "@L3")
	f.requires("A", "B")
	f.requires("B", "C")
	res := f.solve()

	tests := []struct {
		pkg, want string
	}{
		{"A", "@L1"},
		{"B", "@L2"},
		{"B2", "@L2"},
		{"C", "@L3"},
	}
	for _, tt := range tests {
		if got := f.labelOf(res, tt.pkg); got != tt.want {
			t.Errorf("LabelOf(%s) = %s, want %s", tt.pkg, got, tt.want)
		}
	}
	if got := len(res.Unresolved()); got != 0 {
		t.Errorf("Unresolved() = %v, want none", res.Unresolved())
	}
	if got := res.Reason(f.pkgs["A"]); got != "common base label @L1" {
		t.Errorf("Reason(A) = %q, want %q", got, "common base label @L1")
	}

	b := res.Build("b")
	if b == nil || b.Component == nil || b.Component.Name != "Base" {
		t.Errorf("Build(b).Component = %v, want Base", b)
	}
	if a := res.Build("a"); a == nil || a.BuildConfig == nil || a.BuildConfig.Name != "Top/standard" {
		t.Errorf("Build(a).BuildConfig = %v, want Top/standard", a)
	}
}

func TestSolveCycle(t *testing.T) {
	f := newFixture(t)
	f.pkg("xy", "x", "")
	f.pkg("xy", "y", "")
	f.pkg("c", "c", "@L3")
	f.pkg("t", "t", "@L1")
	f.requires("x", "y", "c")
	f.requires("y", "x")
	f.requires("t", "x")
	s, tree := f.solver()
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	if tree.Node(f.pkgs["x"]) != tree.Node(f.pkgs["y"]) {
		t.Fatalf("x and y do not share a node")
	}
	x, y := f.labelOf(res, "x"), f.labelOf(res, "y")
	if x != y {
		t.Errorf("LabelOf(x) = %s, LabelOf(y) = %s, want equal", x, y)
	}
	if x != "@L1" {
		t.Errorf("LabelOf(x) = %s, want @L1", x)
	}
	if got := tree.Node(f.pkgs["x"]).Solution(); got == nil || got.Name != x {
		t.Errorf("Node(x).Solution() = %v, want %s", got, x)
	}
}

func TestSolveFavoriteSibling(t *testing.T) {
	f := newFixture(t)
	f.pkg("foo", "libfoo1", "@L3")
	f.pkg("foo", "libbar1", "@L4")
	f.pkg("foo", "libfoo-devel", "devel")
	res := f.solve()

	if got := f.labelOf(res, "libfoo-devel"); got != "@L3-devel" {
		t.Errorf("LabelOf(libfoo-devel) = %s, want @L3-devel", got)
	}
	if got := res.Reason(f.pkgs["libfoo-devel"]); got != "favorite sibling libfoo1.x86_64" {
		t.Errorf("Reason(libfoo-devel) = %q", got)
	}
}

func TestSolveDevelUnderAPI(t *testing.T) {
	f := newFixture(t)
	f.pkg("bar", "libbar1", "@L5")
	f.pkg("bar", "libbar-devel", "devel")
	res := f.solve()

	if got := f.labelOf(res, "libbar-devel"); got != "@Api-devel" {
		t.Errorf("LabelOf(libbar-devel) = %s, want @Api-devel", got)
	}
}

func TestSolveSplitBuild(t *testing.T) {
	f := newFixture(t)
	f.pkg("mixed", "m1", "@L3")
	f.pkg("mixed", "m2", "@L1")
	res := f.solve()

	conflicts := res.Conflicts()
	if len(conflicts) != 1 {
		t.Fatalf("Conflicts() = %v, want exactly one", conflicts)
	}
	if conflicts[0].Build != "mixed" || !slices.Equal(conflicts[0].Components, []string{"Base", "Top"}) {
		t.Errorf("Conflicts()[0] = %+v, want mixed [Base Top]", conflicts[0])
	}
	if b := res.Build("mixed"); b.Component != nil {
		t.Errorf("Build(mixed).Component = %s, want none", b.Component)
	}
}

func TestSolveComponentWide(t *testing.T) {
	f := newFixture(t)
	f.pkg("top", "t1", "@L1")
	f.pkg("top", "t1-doc", "doc")
	f.pkg("base", "b1", "@L3")
	f.pkg("base", "b1-doc", "doc")
	res := f.solve()

	if got := f.labelOf(res, "t1-doc"); got != "@TopDocs" {
		t.Errorf("LabelOf(t1-doc) = %s, want @TopDocs", got)
	}
	u, ok := unresolved(res, "b1-doc.x86_64")
	if !ok {
		t.Fatalf("b1-doc not unresolved, placed in %s", f.labelOf(res, "b1-doc"))
	}
	if u.Kind != result.Ambiguous || u.Build != "base" {
		t.Errorf("Unresolved(b1-doc) = %+v", u)
	}
	if slices.Contains(u.Candidates, "@TopDocs") {
		t.Errorf("Unresolved(b1-doc).Candidates = %v, contains a label of another component", u.Candidates)
	}
}

func TestSolveSourceHints(t *testing.T) {
	f := newFixture(t)
	f.pkg("c", "c1", "@L3")
	f.pkg("app", "app1", "@L1")
	f.src("app", "app")
	f.pkg("tool", "tool-devel", "devel")
	f.requires("app1", "c1")
	f.requires("app", "tool-devel")
	res := f.solve()

	if got := f.labelOf(res, "tool-devel"); got != "@L4-devel" {
		t.Errorf("LabelOf(tool-devel) = %s, want @L4-devel", got)
	}
	if got := res.Reason(f.pkgs["tool-devel"]); !strings.Contains(got, "Top/standard") {
		t.Errorf("Reason(tool-devel) = %q, want mention of Top/standard", got)
	}
}

func TestDefinePreference(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *Solver) {
		f := newFixture(t)
		f.pkg("pref", "p1", "@L3")
		f.pkg("pref", "p2", "@L4")
		f.pkg("pref", "p3", "")
		s, _ := f.solver()
		return f, s
	}

	t.Run("without", func(t *testing.T) {
		f, s := setup(t)
		res, err := s.Solve()
		if err != nil {
			t.Fatalf("Solve() error = %v", err)
		}
		u, ok := unresolved(res, "p3.x86_64")
		if !ok {
			t.Fatalf("p3 placed in %s, want unresolved", f.labelOf(res, "p3"))
		}
		if u.Kind != result.Ambiguous || !slices.Equal(u.Components, []string{"Base"}) {
			t.Errorf("Unresolved(p3) = %+v", u)
		}
	})

	t.Run("with", func(t *testing.T) {
		f, s := setup(t)
		if err := s.DefinePreference("@L4", "@L3"); err != nil {
			t.Fatalf("DefinePreference() error = %v", err)
		}
		res, err := s.Solve()
		if err != nil {
			t.Fatalf("Solve() error = %v", err)
		}
		if got := f.labelOf(res, "p3"); got != "@L4" {
			t.Errorf("LabelOf(p3) = %s, want @L4", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, s := setup(t)
		err := s.DefinePreference("@Nope", "@L3")
		if !errors.Is(err, errors.ErrCodeLabelNotFound) {
			t.Errorf("DefinePreference() error = %v, want %s", err, errors.ErrCodeLabelNotFound)
		}
		if err := s.DefinePreference("@L3", "@L3"); err == nil {
			t.Error("DefinePreference(self) error = nil")
		}
	})
}

func TestCandidatesOnlyShrink(t *testing.T) {
	f := newFixture(t)
	f.pkg("a", "A", "")
	f.pkg("a", "A-devel", "devel")
	f.pkg("b", "B", "")
	f.pkg("c", "C", "@L3")
	f.pkg("d", "D", "@L1")
	f.requires("A", "B")
	f.requires("B", "C")
	f.requires("D", "B")
	s, tree := f.solver()
	if _, err := s.Solve(); err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	for _, n := range tree.Nodes() {
		p := s.placements[n]
		if p == nil || p.definitive {
			continue
		}
		initial := n.Candidates()
		if initial != nil && p.candidates != nil && !p.candidates.IsSubsetOf(initial) {
			t.Errorf("%s candidates grew from %s to %s", n, initial, p.candidates)
		}
		if p.label != nil && initial != nil && !initial.Contains(p.label) {
			t.Errorf("%s placed in %s outside of its candidates %s", n, p.label, initial)
		}
	}
}

func TestBuildComponentInvariant(t *testing.T) {
	f := newFixture(t)
	f.pkg("a", "A", "")
	f.pkg("a", "A2", "@L2")
	f.pkg("b", "B", "@L3")
	f.pkg("mixed", "m1", "@L3")
	f.pkg("mixed", "m2", "@L1")
	f.pkg("top", "t1", "@L1")
	f.pkg("top", "t1-doc", "doc")
	f.requires("A", "B")
	res := f.solve()

	conflicted := make(map[string]bool)
	for _, c := range res.Conflicts() {
		conflicted[c.Build] = true
	}
	for _, b := range res.Builds() {
		if conflicted[b.Name] {
			continue
		}
		var components []string
		for _, p := range b.Binaries {
			l := res.LabelOf(p)
			if l == nil || l.SourceProject == nil {
				continue
			}
			if !slices.Contains(components, l.SourceProject.Name) {
				components = append(components, l.SourceProject.Name)
			}
		}
		if len(components) > 1 {
			t.Errorf("build %s spans %v without a conflict report", b.Name, components)
		}
		if b.Component != nil && len(components) == 1 && components[0] != b.Component.Name {
			t.Errorf("build %s has component %s, packages in %s", b.Name, b.Component, components[0])
		}
	}
}

func TestNewRequiresFinalizedTree(t *testing.T) {
	f := newFixture(t)
	tree := stree.New(f.scheme, f.order, stree.Options{Logger: silent()})
	if _, err := New(tree, Options{}); !errors.Is(err, errors.ErrCodeInvariant) {
		t.Errorf("New() error = %v, want %s", err, errors.ErrCodeInvariant)
	}
}

func TestSolveTwice(t *testing.T) {
	f := newFixture(t)
	f.pkg("c", "C", "@L3")
	s, _ := f.solver()
	if _, err := s.Solve(); err != nil {
		t.Fatalf("Solve() error = %v", err)
	}
	if _, err := s.Solve(); err == nil {
		t.Error("second Solve() error = nil")
	}
}

func TestHeuristicNames(t *testing.T) {
	got := HeuristicNames()
	if len(got) != 7 || got[0] != "trivial" || got[len(got)-1] != "sibling dependency" {
		t.Errorf("HeuristicNames() = %v", got)
	}
}

func TestSiblingNames(t *testing.T) {
	tests := []struct {
		stem, build string
		want        []string
	}{
		{"libfoo", "foo", []string{"libfoo", "libfoo", "foo"}},
		{"librsvg-2", "librsvg", []string{"librsvg-2", "librsvg", "rsvg"}},
		{"foo", "bar", []string{"foo", "libfoo"}},
		{"ffmpeg4-libavcodec", "ffmpeg4", []string{"ffmpeg4-libavcodec", "libffmpeg4-libavcodec", "libavcodec"}},
	}
	for _, tt := range tests {
		if got := siblingNames(tt.stem, tt.build); !slices.Equal(got, tt.want) {
			t.Errorf("siblingNames(%q, %q) = %v, want %v", tt.stem, tt.build, got, tt.want)
		}
	}
}

func TestUnresolvedReasons(t *testing.T) {
	tests := []struct {
		name            string
		setup           func(f *fixture)
		pkg             string
		wantKind        result.Kind
		wantReason      string
		wantSuggestions []string
	}{
		{
			name: "requirements without common label",
			setup: func(f *fixture) {
				f.pkg("l4", "x4", "@L4")
				f.pkg("api", "xa", "@Api")
				f.pkg("both", "both", "")
				f.requires("both", "x4", "xa")
			},
			pkg:        "both.x86_64",
			wantKind:   result.Unsatisfiable,
			wantReason: "no label provides everything it requires",
		},
		{
			name: "requirers without common label",
			setup: func(f *fixture) {
				f.pkg("t3", "t3", "@L3")
				f.pkg("t4", "t4", "@L4")
				f.pkg("shared", "shared", "")
				f.requires("t3", "shared")
				f.requires("t4", "shared")
			},
			pkg:        "shared.x86_64",
			wantKind:   result.Unsatisfiable,
			wantReason: "no label is available to everything requiring it",
		},
		{
			name: "unconstrained",
			setup: func(f *fixture) {
				f.pkg("free", "free", "")
			},
			pkg:        "free.x86_64",
			wantKind:   result.Ambiguous,
			wantReason: "unconstrained; please provide a hint",
		},
		{
			name: "sibling label suggested",
			setup: func(f *fixture) {
				f.pkg("base", "b1", "@L3")
				f.pkg("base", "b1-doc", "doc")
			},
			pkg:             "b1-doc.x86_64",
			wantKind:        result.Ambiguous,
			wantReason:      "no component-wide label for doc",
			wantSuggestions: []string{"@L3"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			res := f.solve()

			u, ok := unresolved(res, tt.pkg)
			if !ok {
				t.Fatalf("%s missing from Unresolved() = %v", tt.pkg, res.Unresolved())
			}
			if u.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", u.Kind, tt.wantKind)
			}
			if u.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", u.Reason, tt.wantReason)
			}
			if tt.wantSuggestions != nil && !slices.Equal(u.Suggestions, tt.wantSuggestions) {
				t.Errorf("Suggestions = %v, want %v", u.Suggestions, tt.wantSuggestions)
			}
		})
	}
}

func TestRecordingIntoFinalizedResult(t *testing.T) {
	f := newFixture(t)
	f.pkg("mixed", "m1", "@L3")
	f.pkg("mixed", "m2", "@L1")
	f.pkg("loose", "m3", "")
	s, tree := f.solver()

	tests := []struct {
		name string
		fn   func(res *result.Result) error
	}{
		{"conflicts", s.recordConflicts},
		{"orphan", func(res *result.Result) error { return s.assembleOrphan(res, tree.Node(f.pkgs["m3"])) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := result.New(f.scheme, f.order)
			if err := res.Finalize(0); err != nil {
				t.Fatalf("Finalize() error = %v", err)
			}
			err := tt.fn(res)
			if !errors.Is(err, errors.ErrCodeInvariant) {
				t.Errorf("error = %v, want %s", err, errors.ErrCodeInvariant)
			}
			if !stderrors.Is(err, result.ErrFinalized) {
				t.Errorf("error = %v, want it to wrap ErrFinalized", err)
			}
		})
	}
}

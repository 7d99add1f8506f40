package solver

import (
	"slices"
	"testing"

	"github.com/matzehuels/labeltower/pkg/result"
)

// flavorScheme has auto flavors with preferences and templates, and a small
// hierarchy of feature labels on top of @Python.
const flavorScheme = `
[[component]]
name = "Core"

[[component]]
name = "Lang"

[[buildconfig]]
name = "Core/standard"

[[buildconfig]]
name = "Lang/standard"
requires = ["@Core"]

[[autoflavor]]
name = "python"
requires = ["@Python"]
preferred = ["@Core+python"]

[[autoflavor]]
name = "py311"
template = "python"
preferred = ["@Core"]

[[autoflavor]]
name = "py312"
template = "python"
preferred = ["@Lang"]

[[autoflavor]]
name = "perl"
disposition = "maybe_merge"
requires = ["@Perl"]

[[label]]
name = "@Core"
buildconfig = "Core/standard"
flavors = ["python", "py311", "py312", "perl"]

[[label]]
name = "@Lang"
requires = ["@Core"]
buildconfig = "Lang/standard"
flavors = ["python", "py311", "py312"]

[[label]]
name = "@Python"
requires = ["@Core"]
buildconfig = "Lang/standard"
feature = true

[[label]]
name = "@PyA"
requires = ["@Python"]
buildconfig = "Lang/standard"
feature = true

[[label]]
name = "@PyB"
requires = ["@Python"]
buildconfig = "Lang/standard"

[[label]]
name = "@PyAX"
requires = ["@PyA"]
buildconfig = "Lang/standard"

[[label]]
name = "@PyAY"
requires = ["@PyA"]
buildconfig = "Lang/standard"

[[label]]
name = "@Perl"
requires = ["@Core"]
buildconfig = "Lang/standard"

[[label]]
name = "@PerlApps"
requires = ["@Perl"]
buildconfig = "Lang/standard"
`

type placed struct {
	pkg, label, reason string
}

func checkPlaced(t *testing.T, f *fixture, res *result.Result, want []placed) {
	t.Helper()
	for _, w := range want {
		if got := f.labelOf(res, w.pkg); got != w.label {
			t.Errorf("LabelOf(%s) = %s, want %s", w.pkg, got, w.label)
		}
		if got := res.Reason(f.pkgs[w.pkg]); got != w.reason {
			t.Errorf("Reason(%s) = %q, want %q", w.pkg, got, w.reason)
		}
	}
}

func TestSolvePreferredAutoLabel(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		want  []placed
	}{
		{
			name: "single auto label",
			setup: func(f *fixture) {
				f.pkg("foo", "python3-foo", "python")
			},
			want: []placed{
				{"python3-foo", "@Core+python", "preferred label of python @Core+python"},
			},
		},
		{
			name: "template supremum",
			setup: func(f *fixture) {
				f.pkg("foo", "python311-foo", "py311")
				f.pkg("foo", "python312-foo", "py312")
			},
			want: []placed{
				{"python311-foo", "@Lang+py311", "supremum of preferred labels @Lang"},
				{"python312-foo", "@Lang+py312", "supremum of preferred labels @Lang"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureFrom(t, flavorScheme)
			tt.setup(f)
			res := f.solve()
			checkPlaced(t, f, res, tt.want)
			if got := len(res.Unresolved()); got != 0 {
				t.Errorf("Unresolved() = %v, want none", res.Unresolved())
			}
		})
	}
}

func TestSolveCommonFeatureLabel(t *testing.T) {
	tests := []struct {
		name     string
		requires []string
		want     placed
	}{
		{
			name:     "single feature",
			requires: []string{"pyfoo"},
			want:     placed{"ext", "@Python", "common feature label @Python"},
		},
		{
			name:     "highest feature",
			requires: []string{"pyfoo", "pyafoo"},
			want:     placed{"ext", "@PyA", "common feature label @PyA"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureFrom(t, flavorScheme)
			f.pkg("python", "pyfoo", "@Python")
			f.pkg("pya", "pyafoo", "@PyA")
			f.pkg("ext", "ext", "")
			f.requires("ext", tt.requires...)
			checkPlaced(t, f, f.solve(), []placed{tt.want})
		})
	}
}

func TestApplyFlavor(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		pkg      string
		want     []string
		wantFail bool
	}{
		{
			name:  "separate",
			setup: func(f *fixture) { f.pkg("foo", "python3-foo", "python") },
			pkg:   "python3-foo",
			want:  []string{"@Core+python", "@Lang+python"},
		},
		{
			name:  "maybe merge",
			setup: func(f *fixture) { f.pkg("foo", "perl-foo", "perl") },
			pkg:   "perl-foo",
			want:  []string{"@Core+perl", "@Perl", "@PerlApps"},
		},
		{
			name: "conflicting flavors",
			setup: func(f *fixture) {
				f.pkg("foo", "python3-foo", "python")
				f.pkg("foo", "perl-foo", "perl")
				f.requires("python3-foo", "perl-foo")
				f.requires("perl-foo", "python3-foo")
			},
			pkg:      "perl-foo",
			wantFail: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureFrom(t, flavorScheme)
			tt.setup(f)
			s, tree := f.solver()
			p := s.newTentative(tree.Node(f.pkgs[tt.pkg]))

			if p.failed != tt.wantFail {
				t.Fatalf("failed = %v (%s), want %v", p.failed, p.failure, tt.wantFail)
			}
			if tt.wantFail {
				return
			}
			if got := p.candidates.Names(); !slices.Equal(got, tt.want) {
				t.Errorf("candidates = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPropagateSolvers(t *testing.T) {
	f := newFixture(t)
	f.pkg("x", "x-devel", "devel")
	f.pkg("y", "y", "")
	f.requires("x-devel", "y")
	s, tree := f.solver()
	res, err := s.Solve()
	if err != nil {
		t.Fatalf("Solve() error = %v", err)
	}

	api := s.strategies.apiSibling()
	for _, name := range []string{"x-devel", "y"} {
		p := s.placements[tree.Node(f.pkgs[name])]
		if p == nil {
			t.Fatalf("no placement for %s", name)
		}
		if p.isSolved() {
			t.Errorf("%s placed in %s, want unresolved", name, p.label)
		}
		if !slices.Contains(p.solvers, strategy(api)) {
			t.Errorf("%s solvers = %v, want %s", name, p.solvers, api)
		}
	}
	if _, ok := unresolved(res, "y.x86_64"); !ok {
		t.Error("y missing from Unresolved()")
	}
}

func TestNarrowBetweenBuilds(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *fixture)
		want  placed
	}{
		{
			// B settles on @L1 first, which leaves A nothing but @L1.
			name: "from below",
			setup: func(f *fixture) {
				f.pkg("a", "A", "")
				f.pkg("b", "B", "")
				f.pkg("c", "C", "@L3")
				f.requires("A", "B")
				f.requires("B", "C")
			},
			want: placed{"A", "@L1", "pure common base label @L1"},
		},
		{
			// m cannot choose between its siblings' base labels until u,
			// which requires it, is placed in @L3.
			name: "from above",
			setup: func(f *fixture) {
				f.pkg("mid", "m", "")
				f.pkg("mid", "p1", "@L3")
				f.pkg("mid", "p2", "@L4")
				f.pkg("up", "u", "")
				f.pkg("up", "u2", "@L3")
				f.requires("u", "m")
			},
			want: placed{"m", "@L3", "only candidate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)
			checkPlaced(t, f, f.solve(), []placed{tt.want})
		})
	}
}

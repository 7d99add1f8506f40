package result

import (
	stderrors "errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
)

// ErrFinalized is returned when a finalized result is modified.
var ErrFinalized = stderrors.New("classification result already finalized")

// Kind classifies why a package could not be placed.
type Kind string

const (
	// Unsatisfiable packages have no candidate label left.
	Unsatisfiable Kind = "unsatisfiable"
	// Ambiguous packages have several candidates the heuristics could not
	// decide between.
	Ambiguous Kind = "ambiguous"
)

// Unresolved describes a package that was not placed.
type Unresolved struct {
	Package     string   `json:"package"`
	Build       string   `json:"build,omitempty"`
	Kind        Kind     `json:"kind"`
	Reason      string   `json:"reason,omitempty"`
	Candidates  []string `json:"candidates,omitempty"`
	Components  []string `json:"components,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ComponentConflict reports a build whose members were placed in more than
// one component.
type ComponentConflict struct {
	Build      string   `json:"build"`
	Components []string `json:"components"`
	Evidence   []string `json:"evidence,omitempty"`
}

// CycleConflict reports a dependency cycle whose members carried different
// pre-assigned labels. One of them was adopted for the whole cycle.
type CycleConflict struct {
	Cycle   string   `json:"cycle"`
	Labels  []string `json:"labels"`
	Adopted string   `json:"adopted"`
}

// Stats summarizes a classification run.
type Stats struct {
	Packages     int           `json:"packages"`
	Solved       int           `json:"solved"`
	Unresolved   int           `json:"unresolved"`
	Builds       int           `json:"builds"`
	SolvedBuilds int           `json:"solved_builds"`
	Conflicts    int           `json:"conflicts"`
	Duration     time.Duration `json:"duration"`
}

// Build is the placement of one build: the component and build config it was
// assigned to, if they could be determined.
type Build struct {
	Name        string
	Component   *label.Label
	BuildConfig *label.Label
	Binaries    []*distro.Package
	Sources     []*distro.Package
}

// Result is the outcome of a classification run. It is filled in while
// solving and read-only once [Result.Finalize] has been called.
type Result struct {
	id     uuid.UUID
	scheme *label.Scheme
	order  *poset.PartialOrder[*label.Label]

	members  map[*label.Label][]*distro.Package
	labelOf  map[*distro.Package]*label.Label
	reasons  map[*distro.Package]string
	builds   []*Build
	byName   map[string]*Build
	buildOf  map[*distro.Package]*Build
	unsolved []Unresolved

	conflicts      []ComponentConflict
	cycleConflicts []CycleConflict
	stats          Stats
	final          bool
}

// New creates an empty result with a fresh run ID.
func New(scheme *label.Scheme, order *poset.PartialOrder[*label.Label]) *Result {
	return &Result{
		id:      uuid.New(),
		scheme:  scheme,
		order:   order,
		members: make(map[*label.Label][]*distro.Package),
		labelOf: make(map[*distro.Package]*label.Label),
		reasons: make(map[*distro.Package]string),
		byName:  make(map[string]*Build),
		buildOf: make(map[*distro.Package]*Build),
	}
}

// RunID identifies the run that produced the result.
func (r *Result) RunID() uuid.UUID { return r.id }

// Scheme returns the label scheme the result refers to.
func (r *Result) Scheme() *label.Scheme { return r.scheme }

// LabelPackage places pkg in l. A package is placed at most once.
func (r *Result) LabelPackage(pkg *distro.Package, l *label.Label, reason string) error {
	if r.final {
		return ErrFinalized
	}
	if prev, ok := r.labelOf[pkg]; ok {
		if prev == l {
			return nil
		}
		return fmt.Errorf("refusing to move %s from %s to %s", pkg, prev, l)
	}
	r.labelOf[pkg] = l
	r.reasons[pkg] = reason
	r.members[l] = append(r.members[l], pkg)
	return nil
}

// LabelBuild records the placement of a build. component and buildConfig
// may be nil.
func (r *Result) LabelBuild(name string, component, buildConfig *label.Label, binaries, sources []*distro.Package) error {
	if r.final {
		return ErrFinalized
	}
	b := &Build{
		Name:        name,
		Component:   component,
		BuildConfig: buildConfig,
		Binaries:    slices.Clone(binaries),
		Sources:     slices.Clone(sources),
	}
	r.builds = append(r.builds, b)
	r.byName[name] = b
	for _, p := range b.Binaries {
		r.buildOf[p] = b
	}
	for _, p := range b.Sources {
		r.buildOf[p] = b
	}
	return nil
}

// AddUnresolved records a package that could not be placed.
func (r *Result) AddUnresolved(u Unresolved) error {
	if r.final {
		return ErrFinalized
	}
	r.unsolved = append(r.unsolved, u)
	return nil
}

// AddConflict records a build split across components. Only the first
// report per build is kept.
func (r *Result) AddConflict(c ComponentConflict) error {
	if r.final {
		return ErrFinalized
	}
	if slices.ContainsFunc(r.conflicts, func(o ComponentConflict) bool { return o.Build == c.Build }) {
		return nil
	}
	r.conflicts = append(r.conflicts, c)
	return nil
}

// AddCycleConflict records a dependency cycle with disagreeing labels.
func (r *Result) AddCycleConflict(c CycleConflict) error {
	if r.final {
		return ErrFinalized
	}
	r.cycleConflicts = append(r.cycleConflicts, c)
	return nil
}

// Finalize freezes the result and computes its statistics.
func (r *Result) Finalize(elapsed time.Duration) error {
	if r.final {
		return ErrFinalized
	}
	slices.SortStableFunc(r.unsolved, func(a, b Unresolved) int { return strings.Compare(a.Package, b.Package) })
	slices.SortStableFunc(r.conflicts, func(a, b ComponentConflict) int { return strings.Compare(a.Build, b.Build) })
	for _, l := range r.Labels() {
		slices.SortFunc(r.members[l], func(a, b *distro.Package) int { return strings.Compare(a.ID(), b.ID()) })
	}

	r.stats = Stats{
		Packages:   len(r.labelOf) + len(r.unsolved),
		Solved:     len(r.labelOf),
		Unresolved: len(r.unsolved),
		Builds:     len(r.builds),
		Conflicts:  len(r.conflicts),
		Duration:   elapsed,
	}
	for _, b := range r.builds {
		if !slices.ContainsFunc(b.Binaries, func(p *distro.Package) bool { return r.labelOf[p] == nil }) {
			r.stats.SolvedBuilds++
		}
	}
	r.final = true
	return nil
}

// Final reports whether the result has been finalized.
func (r *Result) Final() bool { return r.final }

// Labels returns the labels that received packages, bottom-up.
func (r *Result) Labels() []*label.Label {
	used := r.scheme.NewSet()
	for l := range r.members {
		used.Add(l)
	}
	return r.order.BottomUp(used)
}

// Packages returns the packages placed in l.
func (r *Result) Packages(l *label.Label) []*distro.Package { return r.members[l] }

// LabelOf returns the label pkg was placed in, or nil.
func (r *Result) LabelOf(pkg *distro.Package) *label.Label { return r.labelOf[pkg] }

// Reason returns why pkg was placed where it is.
func (r *Result) Reason(pkg *distro.Package) string { return r.reasons[pkg] }

// Builds returns the build placements in the order they were recorded.
func (r *Result) Builds() []*Build { return r.builds }

// Build returns the placement of the named build, or nil.
func (r *Result) Build(name string) *Build { return r.byName[name] }

// BuildOf returns the build placement pkg belongs to, or nil.
func (r *Result) BuildOf(pkg *distro.Package) *Build { return r.buildOf[pkg] }

// Unresolved returns the packages that could not be placed.
func (r *Result) Unresolved() []Unresolved { return r.unsolved }

// Conflicts returns the builds split across components.
func (r *Result) Conflicts() []ComponentConflict { return r.conflicts }

// CycleConflicts returns the dependency cycles with disagreeing labels.
func (r *Result) CycleConflicts() []CycleConflict { return r.cycleConflicts }

// Stats returns the statistics computed by [Result.Finalize].
func (r *Result) Stats() Stats { return r.stats }

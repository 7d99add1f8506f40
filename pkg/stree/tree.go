package stree

import (
	"cmp"
	stderrors "errors"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
	"github.com/matzehuels/labeltower/pkg/result"
)

// ErrFinalized is returned when the tree is modified after [Tree.Finalize].
var ErrFinalized = stderrors.New("solving tree already finalized")

// Options configures a [Tree].
type Options struct {
	// Logger receives progress and diagnostics. Defaults to log.Default().
	Logger *log.Logger
	// Trace lists package names or IDs whose cone updates and decisions are
	// logged at info level.
	Trace []string
	// StrictComponents turns disagreeing pre-assigned components within one
	// build into a configuration error instead of a conflict report.
	StrictComponents bool
	// AllowSplit lists multibuild flavors ("foo:python") that may be placed in
	// a different component than their base build.
	AllowSplit []string
}

// Tree turns the package dependency graph into an acyclic order of nodes,
// each carrying the cone of labels it may be placed in.
//
// Packages and edges are added first; [Tree.Finalize] then collapses cycles,
// validates pre-assigned labels and computes the cones. A finalized tree is
// read by the solver, which records its decisions on the nodes.
type Tree struct {
	scheme *label.Scheme
	order  *poset.PartialOrder[*label.Label]
	opts   Options
	logger *log.Logger
	trace  map[string]bool

	nodes      *poset.Domain[*Node]
	packages   map[*distro.Package]*Node
	pkgOrder   []*distro.Package
	builds     map[*distro.Build]*Build
	buildOrder []*Build

	nodeOrder *poset.PartialOrder[*Node]
	position  map[*Node]int

	conflicts      []result.ComponentConflict
	cycleConflicts []result.CycleConflict
}

// New creates an empty tree over the binary label order of scheme.
func New(scheme *label.Scheme, order *poset.PartialOrder[*label.Label], opts Options) *Tree {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	trace := make(map[string]bool, len(opts.Trace))
	for _, name := range opts.Trace {
		trace[name] = true
	}
	return &Tree{
		scheme:   scheme,
		order:    order,
		opts:     opts,
		logger:   logger,
		trace:    trace,
		nodes:    poset.NewDomain[*Node]("nodes"),
		packages: make(map[*distro.Package]*Node),
		builds:   make(map[*distro.Build]*Build),
	}
}

// Scheme returns the label scheme.
func (t *Tree) Scheme() *label.Scheme { return t.scheme }

// LabelOrder returns the binary label order.
func (t *Tree) LabelOrder() *poset.PartialOrder[*label.Label] { return t.order }

// Logger returns the logger of the tree.
func (t *Tree) Logger() *log.Logger { return t.logger }

// Finalized reports whether [Tree.Finalize] succeeded.
func (t *Tree) Finalized() bool { return t.nodeOrder != nil }

// AddPackage returns the node of pkg, creating it if needed. Packages whose
// pre-assigned label has disposition ignore are not part of the tree; for them
// AddPackage returns nil.
func (t *Tree) AddPackage(pkg *distro.Package) *Node {
	if ignored(pkg) {
		if t.traced(pkg) {
			t.logger.Info("ignoring package", "package", pkg, "label", pkg.Label)
		}
		return nil
	}
	return t.node(pkg)
}

func (t *Tree) node(pkg *distro.Package) *Node {
	if n, ok := t.packages[pkg]; ok {
		return n
	}
	n := t.newNode(pkg.ID(), pkg, nil)
	t.packages[pkg] = n
	t.pkgOrder = append(t.pkgOrder, pkg)
	if pkg.Label != nil && pkg.Label.Kind == label.KindBinary {
		n.solution = pkg.Label
	}
	if t.traced(pkg) {
		n.trace = true
		t.logger.Info("added to solving tree", "node", n, "label", pkg.Label)
	}
	return n
}

func (t *Tree) traced(pkg *distro.Package) bool {
	return t.trace[pkg.Name] || t.trace[pkg.ID()]
}

// AddEdge records that requiring requires required.
func (t *Tree) AddEdge(requiring, required *Node) error {
	if t.Finalized() {
		return ErrFinalized
	}
	if requiring == required {
		return errors.New(errors.ErrCodeInvariant, "%s cannot require itself", requiring)
	}
	requiring.lower.Add(required)
	required.upper.Add(requiring)
	return nil
}

// AddBuild groups the packages of b. Every non-ignored binary and source of
// the build gets a node.
func (t *Tree) AddBuild(b *distro.Build) *Build {
	if info, ok := t.builds[b]; ok {
		return info
	}
	info := newBuild(t.scheme, b)
	t.builds[b] = info
	t.buildOrder = append(t.buildOrder, info)
	for _, p := range info.packages {
		t.node(p).build = info
	}
	for _, p := range info.sources {
		t.node(p).build = info
	}
	return info
}

// Node returns the node of pkg, or nil. Packages of a collapsed cycle share
// one node.
func (t *Tree) Node(pkg *distro.Package) *Node { return t.packages[pkg] }

// BuildOf returns the build pkg belongs to, or nil.
func (t *Tree) BuildOf(pkg *distro.Package) *Build {
	if pkg.Build == nil {
		return nil
	}
	return t.builds[pkg.Build]
}

// Builds returns all builds in the order they were added.
func (t *Tree) Builds() []*Build { return t.buildOrder }

// Nodes returns every distinct node, in the order its first package was added.
func (t *Tree) Nodes() []*Node {
	seen := t.nodes.NewSet()
	out := make([]*Node, 0, len(t.pkgOrder))
	for _, p := range t.pkgOrder {
		n := t.packages[p]
		if !seen.Contains(n) {
			seen.Add(n)
			out = append(out, n)
		}
	}
	return out
}

// NumPackages returns the number of packages in the tree.
func (t *Tree) NumPackages() int { return len(t.pkgOrder) }

// Conflicts returns the builds whose pre-assigned labels disagree on the
// component.
func (t *Tree) Conflicts() []result.ComponentConflict { return t.conflicts }

// CycleConflicts returns the collapsed cycles whose members had different
// pre-assigned labels.
func (t *Tree) CycleConflicts() []result.CycleConflict { return t.cycleConflicts }

// Finalize collapses dependency cycles, validates the pre-assigned labels and
// computes the cones of every node. A configuration error aborts the run; its
// evidence explains which requirement is not covered.
func (t *Tree) Finalize() error {
	if t.Finalized() {
		return ErrFinalized
	}
	if err := t.collapseAllCycles(); err != nil {
		return err
	}
	t.resolveMultiBuilds()
	if err := t.validateInitialPlacements(); err != nil {
		return err
	}
	if err := t.validateComponents(); err != nil {
		return err
	}

	for _, n := range t.nodeOrder.BottomUp(nil) {
		for _, lower := range n.LowerNeighbors() {
			n.updateFromBelow(lower)
		}
	}
	for _, n := range t.nodeOrder.TopDown(nil) {
		for _, lower := range n.LowerNeighbors() {
			lower.updateFromAbove(n)
		}
	}

	t.sortBuildInfos()

	for _, n := range t.Nodes() {
		if n.solution == nil {
			continue
		}
		for _, p := range n.Packages() {
			if b := t.BuildOf(p); b != nil {
				b.RecordDecision(n.solution)
			}
		}
	}

	t.logger.Info("computed candidates", "packages", t.NumPackages(), "nodes", t.nodeOrder.Len(), "builds", len(t.buildOrder))
	return nil
}

func (t *Tree) mustBeFinal() {
	if !t.Finalized() {
		panic("stree: tree traversed before Finalize")
	}
}

// BottomUp returns all nodes such that every node follows the nodes it
// requires.
func (t *Tree) BottomUp() []*Node {
	t.mustBeFinal()
	return t.nodeOrder.BottomUp(nil)
}

// TopDown returns all nodes such that every node precedes the nodes it
// requires.
func (t *Tree) TopDown() []*Node {
	t.mustBeFinal()
	return t.nodeOrder.TopDown(nil)
}

// NodeOrder returns the finalized order of nodes.
func (t *Tree) NodeOrder() *poset.PartialOrder[*Node] {
	t.mustBeFinal()
	return t.nodeOrder
}

// BottomUpBuilds returns the builds ordered by the position of their highest
// binary node, lowest first.
func (t *Tree) BottomUpBuilds() []*Build {
	t.mustBeFinal()
	builds := slices.Clone(t.buildOrder)
	slices.SortStableFunc(builds, func(a, b *Build) int {
		return cmp.Compare(t.highest(a), t.highest(b))
	})
	return builds
}

// TopDownBuilds returns the builds ordered by the position of their highest
// binary node, highest first.
func (t *Tree) TopDownBuilds() []*Build {
	t.mustBeFinal()
	builds := slices.Clone(t.buildOrder)
	slices.SortStableFunc(builds, func(a, b *Build) int {
		return cmp.Compare(t.highest(b), t.highest(a))
	})
	return builds
}

func (t *Tree) highest(b *Build) int {
	top := -1
	for _, p := range b.packages {
		if n := t.packages[p]; n != nil {
			top = max(top, t.position[n])
		}
	}
	return top
}

func (t *Tree) resolveMultiBuilds() {
	byName := make(map[string]*Build, len(t.buildOrder))
	for _, b := range t.buildOrder {
		byName[b.Name()] = b
	}
	for _, b := range t.buildOrder {
		baseName, _, ok := b.build.MultibuildBase()
		if !ok {
			continue
		}
		base, ok := byName[baseName]
		if !ok {
			t.logger.Debug("multibuild without base build", "build", b)
			continue
		}
		b.base = base
		if slices.Contains(t.opts.AllowSplit, b.Name()) {
			b.allowSplit = true
		}
		t.logger.Debug("multibuild", "build", b, "base", base, "split", b.allowSplit)
	}
}

// sortBuildInfos orders the packages of every build the way the node order
// visits them.
func (t *Tree) sortBuildInfos() {
	t.position = make(map[*Node]int, t.nodeOrder.Len())
	for i, n := range t.nodeOrder.BottomUp(nil) {
		t.position[n] = i
	}
	byPosition := func(a, b *distro.Package) int {
		return cmp.Or(
			cmp.Compare(t.position[t.packages[a]], t.position[t.packages[b]]),
			cmp.Compare(a.ID(), b.ID()),
		)
	}
	for _, b := range t.buildOrder {
		slices.SortStableFunc(b.packages, byPosition)
		slices.SortStableFunc(b.sources, byPosition)
	}
}

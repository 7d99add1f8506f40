package stree

import (
	"slices"
	"strings"

	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
)

// LabelSet is a set of labels of one scheme.
type LabelSet = poset.Set[*label.Label]

// Node is one package of the tree or, after cycle collapsing, a group of
// mutually dependent packages that are placed together.
//
// A nil cone means the node is unconstrained from that side. The candidates of
// a node are the intersection of both cones; they only ever shrink.
type Node struct {
	name  string
	pkg   *distro.Package
	cycle []*distro.Package

	tree  *Tree
	lower *poset.Set[*Node]
	upper *poset.Set[*Node]

	lowerCone  *LabelSet
	upperCone  *LabelSet
	candidates *LabelSet
	memoized   bool

	solution *label.Label
	combined *LabelSet

	build *Build
	trace bool
}

func (t *Tree) newNode(name string, pkg *distro.Package, cycle []*distro.Package) *Node {
	n := &Node{
		name:  name,
		pkg:   pkg,
		cycle: cycle,
		tree:  t,
		lower: t.nodes.NewSet(),
		upper: t.nodes.NewSet(),
	}
	t.nodes.Register(n)
	return n
}

// String returns the package ID, or "<a b c>" for a collapsed cycle.
func (n *Node) String() string { return n.name }

// Package returns the package of a plain node, or nil for a collapsed cycle.
func (n *Node) Package() *distro.Package { return n.pkg }

// Packages returns all packages represented by n.
func (n *Node) Packages() []*distro.Package {
	if n.pkg != nil {
		return []*distro.Package{n.pkg}
	}
	return n.cycle
}

// IsCollapsedCycle reports whether n replaces a dependency cycle.
func (n *Node) IsCollapsedCycle() bool { return n.cycle != nil }

// IsSource reports whether n is a source package. Source nodes only carry the
// build requirements of their build.
func (n *Node) IsSource() bool { return n.pkg != nil && n.pkg.IsSource }

// Build returns the build n belongs to, or nil.
func (n *Node) Build() *Build { return n.build }

// Traced reports whether decisions about n are logged in detail.
func (n *Node) Traced() bool { return n.trace }

// LowerNeighbors returns the nodes n requires, in creation order.
func (n *Node) LowerNeighbors() []*Node { return n.lower.Keys() }

// UpperNeighbors returns the nodes requiring n, in creation order.
func (n *Node) UpperNeighbors() []*Node { return n.upper.Keys() }

// Solution returns the label assigned to n, or nil.
func (n *Node) Solution() *label.Label { return n.solution }

// SetSolution assigns a label. A node is solved at most once; assigning a
// different label later is an engine defect.
func (n *Node) SetSolution(l *label.Label) error {
	if n.solution != nil && n.solution != l {
		return errors.New(errors.ErrCodeInvariant, "conflicting solution for %s: label %s vs %s", n, n.solution, l)
	}
	if n.trace && n.solution == nil {
		n.tree.logger.Info("set solution", "node", n, "label", l)
	}
	n.solution = l
	return nil
}

// SolutionBaseLabel returns the base label of the solution, or nil.
func (n *Node) SolutionBaseLabel() *label.Label {
	if n.solution == nil {
		return nil
	}
	return n.solution.BaseLabel()
}

// LowerCone returns the labels n may be placed in given everything it
// requires. For a solved node this is everything at or above its solution.
func (n *Node) LowerCone() *LabelSet {
	if n.solution != nil {
		return n.tree.order.UpwardClosure(n.solution)
	}
	return n.lowerCone
}

// UpperCone returns the labels n may be placed in given everything that
// requires it. For a solved node this is everything at or below its solution.
func (n *Node) UpperCone() *LabelSet {
	if n.solution != nil {
		return n.tree.order.DownwardClosure(n.solution)
	}
	return n.upperCone
}

// LowerBoundConflict reports whether the requirements of an unsolved node
// cannot be satisfied by any label.
func (n *Node) LowerBoundConflict() bool {
	return n.solution == nil && n.lowerCone != nil && n.lowerCone.IsEmpty()
}

// UpperBoundConflict reports whether no label satisfies everything requiring
// an unsolved node.
func (n *Node) UpperBoundConflict() bool {
	return n.solution == nil && n.upperCone != nil && n.upperCone.IsEmpty()
}

func (n *Node) updateFromBelow(lower *Node) {
	before := n.lowerCone
	n.lowerCone = poset.Constrain(n.LowerCone(), lower.LowerCone())
	n.traceCone("lower", lower, before, n.lowerCone)
}

func (n *Node) updateFromAbove(upper *Node) {
	before := n.upperCone
	n.upperCone = poset.Constrain(n.UpperCone(), upper.UpperCone())
	n.traceCone("upper", upper, before, n.upperCone)
}

func (n *Node) traceCone(side string, neighbor *Node, before, after *LabelSet) {
	if !n.trace || n.solution != nil {
		return
	}
	if before != nil && after != nil && !before.Equal(after) {
		n.tree.logger.Info("cone narrowed", "node", n, "neighbor", neighbor, "cone", side,
			"lost", before.Difference(after))
		return
	}
	n.tree.logger.Debug("cone updated", "node", n, "neighbor", neighbor, "cone", side, "labels", describe(after))
}

// Candidates returns the labels n can still be placed in. The result is
// memoized on first use; callers must not modify it.
func (n *Node) Candidates() *LabelSet {
	if !n.memoized {
		n.candidates = poset.Constrain(n.LowerCone(), n.UpperCone())
		n.memoized = true
	}
	return n.candidates
}

// ConstrainCandidates intersects the candidates with permitted. A nil
// permitted set leaves them unchanged.
func (n *Node) ConstrainCandidates(permitted *LabelSet) {
	if permitted == nil {
		return
	}
	before := n.Candidates()
	n.candidates = poset.Constrain(before, permitted)
	if n.trace {
		n.tree.logger.Info("constrained candidates", "node", n, "from", describe(before), "to", describe(n.candidates))
	}
}

// IsCandidate reports whether l is a valid placement for n.
func (n *Node) IsCandidate(l *label.Label) bool {
	c := n.Candidates()
	return c == nil || c.Contains(l)
}

// CandidateComponents returns the sorted names of the components owning at
// least one candidate label.
func (n *Node) CandidateComponents() []string { return Components(n.Candidates()) }

// Suggestions reduces the candidates of n to the labels a human would most
// likely pick.
func (n *Node) Suggestions() *LabelSet { return n.tree.Suggest(n.Candidates()) }

// Components returns the sorted names of the components owning at least one
// label of c.
func Components(c *LabelSet) []string {
	if c == nil {
		return nil
	}
	var out []string
	for l := range c.All() {
		if l.SourceProject != nil && !slices.Contains(out, l.SourceProject.Name) {
			out = append(out, l.SourceProject.Name)
		}
	}
	slices.Sort(out)
	return out
}

// Suggest reduces a candidate set: purpose variants collapse onto the
// unflavored purpose label when that is unique, otherwise the maxima remain.
func (t *Tree) Suggest(c *LabelSet) *LabelSet {
	if c == nil || c.Len() <= 1 {
		return c
	}
	generic := c.Domain().NewSet()
	for l := range c.All() {
		sibling := l.FindSibling("", l.PurposeName)
		if sibling == nil {
			generic = nil
			break
		}
		generic.Add(sibling)
	}
	if generic != nil && generic.Len() == 1 {
		return generic
	}
	return t.order.Maxima(c)
}

// LabelReason returns the reason recorded for the pre-assigned label of one of
// the packages, falling back to the node name.
func (n *Node) LabelReason() string {
	for _, p := range n.Packages() {
		if p.Label == n.solution && p.LabelReason != "" {
			return p.LabelReason
		}
	}
	return n.name
}

// Decide solves n and notes the decision in its build.
func (n *Node) Decide(l *label.Label) error {
	if n.solution == l {
		return nil
	}
	if err := n.SetSolution(l); err != nil {
		return err
	}
	if n.build != nil {
		n.build.RecordDecision(l)
	}
	return nil
}

func cycleName(pkgs []*distro.Package) string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.ID()
	}
	return "<" + strings.Join(names, " ") + ">"
}

func describe(s *LabelSet) string {
	switch {
	case s == nil:
		return "unconstrained"
	case s.IsEmpty():
		return "none"
	case s.Len() > 6:
		return strings.Join(s.Names()[:6], " ") + " ..."
	}
	return strings.Join(s.Names(), " ")
}

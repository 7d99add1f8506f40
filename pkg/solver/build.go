package solver

import (
	"slices"

	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/stree"
)

// buildPlacement collects the placements of the binaries of one build. The
// heuristics work on it as a whole, since siblings usually end up in the
// same component and often under the same base label.
type buildPlacement struct {
	s     *Solver
	build *stree.Build

	children  []*placement
	byPackage map[*distro.Package]*placement

	// components the binaries may be placed in, from the build's component
	// constraint or from pre-assigned siblings.
	components []*label.Label

	solutions  map[*label.Label]*baseSolution
	compatible *stree.LabelSet
	pure       *stree.LabelSet
	memoized   bool

	solvingBaseLabel *label.Label
	component        *label.Label
	buildConfig      *label.Label
	postProcessed    bool
	trace            bool
}

// baseSolution assigns one label to every open placement of a build, all
// derived from the same base label.
type baseSolution struct {
	base    *label.Label
	choices []choice
}

type choice struct {
	p *placement
	l *label.Label
}

// isPure reports whether no placement had to pick a flavor.
func (bs *baseSolution) isPure() bool {
	if len(bs.choices) == 0 {
		return false
	}
	return !slices.ContainsFunc(bs.choices, func(c choice) bool { return c.l.FlavorName != "" })
}

func (s *Solver) newBuildPlacement(b *stree.Build) *buildPlacement {
	bp := &buildPlacement{
		s:         s,
		build:     b,
		byPackage: make(map[*distro.Package]*placement),
		solutions: make(map[*label.Label]*baseSolution),
	}
	for _, pkg := range b.Packages() {
		n := s.tree.Node(pkg)
		if n == nil {
			continue
		}
		p := s.placements[n]
		if p == nil {
			if n.Solution() != nil {
				p = s.newDefinitive(n)
			} else {
				p = s.newTentative(n)
				s.narrowFromBelow(p)
			}
			s.placements[n] = p
		}
		bp.byPackage[pkg] = p
		if !slices.Contains(bp.children, p) {
			bp.children = append(bp.children, p)
		}
		bp.trace = bp.trace || p.trace
	}

	if c := b.ComponentConstraint(); c != nil {
		bp.components = []*label.Label{c}
	} else {
		for _, p := range bp.children {
			if p.definitive && p.label.SourceProject != nil && !slices.Contains(bp.components, p.label.SourceProject) {
				bp.components = append(bp.components, p.label.SourceProject)
			}
		}
	}
	return bp
}

func (bp *buildPlacement) String() string { return bp.build.Name() }

func (bp *buildPlacement) open() []*placement {
	var out []*placement
	for _, p := range bp.children {
		if p.open() {
			out = append(out, p)
		}
	}
	return out
}

func (bp *buildPlacement) solved() []*placement {
	var out []*placement
	for _, p := range bp.children {
		if p.isSolved() {
			out = append(out, p)
		}
	}
	return out
}

// isFinal reports whether no placement is left open.
func (bp *buildPlacement) isFinal() bool {
	return !slices.ContainsFunc(bp.children, (*placement).open)
}

func (bp *buildPlacement) isSolved() bool {
	return !slices.ContainsFunc(bp.children, func(p *placement) bool { return !p.isSolved() })
}

func (bp *buildPlacement) logf(format string, args ...any) {
	if bp.trace {
		bp.s.logger.Infof(format, args...)
		return
	}
	bp.s.logger.Debugf(format, args...)
}

func (bp *buildPlacement) applyConstraints() {
	base := bp.build.BaseLabelConstraint()
	for _, p := range bp.open() {
		p.applyConstraints(bp.components, base)
	}
}

// solveTrivialCases runs the trivial check on every open placement and
// reports whether the build is final.
func (bp *buildPlacement) solveTrivialCases() bool {
	for _, p := range bp.open() {
		p.trivial()
	}
	bp.forget()
	return bp.isFinal()
}

// forget drops the memoized base label analysis. It is called whenever the
// set of open placements or their candidates may have changed.
func (bp *buildPlacement) forget() {
	clear(bp.solutions)
	bp.compatible, bp.pure = nil, nil
	bp.memoized = false
}

// canSolveUsing checks whether every open placement can derive its label from
// base. The answer is memoized per base label.
func (bp *buildPlacement) canSolveUsing(base *label.Label) *baseSolution {
	if sol, ok := bp.solutions[base]; ok {
		return sol
	}
	sol := &baseSolution{base: base}
	for _, p := range bp.open() {
		l := p.deriveChoice(base)
		if l == nil {
			sol = nil
			break
		}
		sol.choices = append(sol.choices, choice{p, l})
	}
	bp.solutions[base] = sol
	return sol
}

// solveUsing applies the solution derived from base, if there is one.
func (bp *buildPlacement) solveUsing(base *label.Label, how string) bool {
	sol := bp.canSolveUsing(base)
	if sol == nil {
		return false
	}
	for _, c := range sol.choices {
		c.p.setSolution(c.l, how+" "+base.Name)
	}
	bp.solvingBaseLabel = base
	bp.forget()
	return true
}

// compatibleBaseLabels are the common base labels that solve every open
// placement.
func (bp *buildPlacement) compatibleBaseLabels() *stree.LabelSet {
	bp.analyze()
	return bp.compatible
}

// compatiblePureBaseLabels are the compatible base labels whose solution
// needs no flavor.
func (bp *buildPlacement) compatiblePureBaseLabels() *stree.LabelSet {
	bp.analyze()
	return bp.pure
}

// analyze intersects the base labels of all children and keeps those that
// solve every open placement.
func (bp *buildPlacement) analyze() {
	if bp.memoized {
		return
	}
	bp.memoized = true
	var common *stree.LabelSet
	for _, p := range bp.children {
		if !p.isSolved() && !p.open() {
			continue
		}
		if bases := p.baseLabels(); bases != nil {
			if common == nil {
				common = bases
			} else {
				common.IntersectWith(bases)
			}
		}
	}
	bp.compatible = bp.s.scheme.NewSet()
	bp.pure = bp.s.scheme.NewSet()
	if common == nil {
		return
	}
	for base := range common.All() {
		sol := bp.canSolveUsing(base)
		if sol == nil {
			continue
		}
		bp.compatible.Add(base)
		if sol.isPure() {
			bp.pure.Add(base)
		}
	}
}

// solveWithConstraints solves the build if exactly one compatible base label
// lies in allowed. Pure solutions are preferred.
func (bp *buildPlacement) solveWithConstraints(allowed *stree.LabelSet, how string) bool {
	bases := bp.compatiblePureBaseLabels()
	if bases.IsEmpty() {
		bases = bp.compatibleBaseLabels()
	}
	if bases.IsEmpty() {
		return false
	}
	bases = bases.Intersect(allowed)
	base, ok := bases.First()
	if !ok || bases.Len() != 1 {
		bp.logf("%s: %d compatible base labels within %s", bp, bases.Len(), how)
		return false
	}
	return bp.solveUsing(base, how)
}

// narrowFromAbove constrains open placements by the labels of solved
// tentative placements that require them. Pre-assigned neighbors are already
// part of the cones.
func (bp *buildPlacement) narrowFromAbove() {
	for _, p := range bp.open() {
		for _, n := range p.node.UpperNeighbors() {
			upper := bp.s.placements[n]
			if upper == nil || upper.definitive || !upper.isSolved() {
				continue
			}
			p.constrain(bp.s.order.DownwardClosure(upper.label), "required by "+upper.String())
		}
	}
	bp.forget()
}

// narrowFromBelow constrains a new placement by the labels already chosen for
// the tentative placements it requires.
func (s *Solver) narrowFromBelow(p *placement) {
	for _, n := range p.node.LowerNeighbors() {
		lower := s.placements[n]
		if lower == nil || lower.definitive || !lower.isSolved() {
			continue
		}
		p.constrain(s.order.UpwardClosure(lower.label), "requires "+lower.String())
	}
}

package solver

import (
	"fmt"
	"slices"

	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/stree"
)

// placement is the solver's view of one node. Definitive placements wrap a
// node whose label was pre-assigned and never change. Tentative placements
// start from the node's candidates and narrow them until one label remains.
//
// The packages of a collapsed cycle share one node and thus one placement.
type placement struct {
	s    *Solver
	node *stree.Node

	definitive bool
	label      *label.Label
	reason     string

	// autoLabel is the flavor or purpose label pre-assigned to the package,
	// if any. flavor and purpose record which ones narrowed the candidates.
	autoLabel *label.Label
	flavor    *label.Label
	purpose   *label.Label

	candidates *stree.LabelSet
	failed     bool
	failure    string

	solvers  []strategy
	deferred bool
	trace    bool
}

func (s *Solver) newDefinitive(n *stree.Node) *placement {
	return &placement{
		s:          s,
		node:       n,
		definitive: true,
		label:      n.Solution(),
		reason:     n.LabelReason(),
		trace:      n.Traced(),
	}
}

func (s *Solver) newTentative(n *stree.Node) *placement {
	p := &placement{s: s, node: n, trace: n.Traced()}
	if c := n.Candidates(); c != nil {
		p.candidates = c.Clone()
	}
	for _, pkg := range n.Packages() {
		l := pkg.Label
		if l == nil || (l.Kind != label.KindAutoFlavor && l.Kind != label.KindPurpose) {
			continue
		}
		p.applyFlavorOrPurpose(l)
		if p.autoLabel == nil {
			p.autoLabel = l
		}
	}
	return p
}

func (p *placement) String() string { return p.node.String() }

func (p *placement) isSolved() bool { return p.label != nil }

func (p *placement) isFinal() bool { return p.label != nil || p.failed }

// open reports whether the placement still takes part in solving. Deferred
// placements sit out the bottom-up pass.
func (p *placement) open() bool {
	return !p.isFinal() && !(p.deferred && p.s.stage == stageBottomUp)
}

func (p *placement) logf(format string, args ...any) {
	if p.trace {
		p.s.logger.Info(fmt.Sprintf(format, args...), "node", p.node)
		return
	}
	p.s.logger.Debug(fmt.Sprintf(format, args...), "node", p.node)
}

func (p *placement) setSolution(l *label.Label, reason string) {
	if p.label != nil {
		if p.label != l {
			p.s.logger.Warn("placement already solved", "node", p.node, "label", p.label, "rejected", l)
		}
		return
	}
	p.label = l
	p.reason = reason
	for _, pkg := range p.node.Packages() {
		if b := p.s.tree.BuildOf(pkg); b != nil {
			b.RecordDecision(l)
		}
	}
	p.logf("placed in %s (%s)", l, reason)
}

func (p *placement) fail(format string, args ...any) {
	if p.isFinal() {
		return
	}
	p.failed = true
	p.failure = fmt.Sprintf(format, args...)
	p.logf("cannot be placed: %s", p.failure)
}

// constrain intersects the candidates with permitted.
func (p *placement) constrain(permitted *stree.LabelSet, why string) {
	if p.isFinal() || permitted == nil {
		return
	}
	if p.candidates == nil {
		p.candidates = permitted.Clone()
	} else {
		before := p.candidates.Len()
		p.candidates.IntersectWith(permitted)
		if p.trace && p.candidates.Len() != before {
			p.s.logger.Info("narrowed candidates", "node", p.node, "by", why, "candidates", p.candidates)
		}
	}
}

func (p *placement) filter(keep func(*label.Label) bool, why string) {
	if p.isFinal() || p.candidates == nil {
		return
	}
	p.constrain(p.candidates.Filter(keep), why)
}

// applyFlavorOrPurpose narrows the candidates to the variants matching an
// auto label. A maybe_merge flavor also admits every label that already
// provides the flavor's requirements.
func (p *placement) applyFlavorOrPurpose(auto *label.Label) {
	if p.candidates == nil {
		p.candidates = p.s.order.AllKeys()
	}
	switch {
	case auto.Disposition == label.DispositionMerge, auto.Disposition == label.DispositionComponentWide:
		return
	case auto.Kind == label.KindAutoFlavor:
		if p.flavor != nil && p.flavor != auto {
			p.fail("conflicting flavors %s and %s", p.flavor, auto)
			return
		}
		p.flavor = auto
		narrowed := p.candidates.Filter(func(l *label.Label) bool { return l.FlavorName == auto.Name })
		if auto.Disposition == label.DispositionMaybeMerge {
			required := p.s.scheme.NewSet(auto.RuntimeRequires...)
			for l := range p.candidates.All() {
				if !narrowed.Contains(l) && required.IsSubsetOf(p.s.order.DownwardClosure(l)) {
					narrowed.Add(l)
				}
			}
		}
		p.constrain(narrowed, "flavor "+auto.Name)
	case auto.Kind == label.KindPurpose:
		if p.purpose != nil && p.purpose != auto {
			p.fail("conflicting purposes %s and %s", p.purpose, auto)
			return
		}
		p.purpose = auto
		p.filter(func(l *label.Label) bool { return l.PurposeName == auto.Name }, "purpose "+auto.Name)
	}
}

// applyConstraints narrows a tentative placement by the constraints of its
// build: the valid components, the build's base label, and the rule that
// component-wide labels are only used for packages that carry the matching
// auto label.
func (p *placement) applyConstraints(components []*label.Label, base *label.Label) {
	if p.isFinal() {
		return
	}
	if len(components) > 0 {
		if p.candidates == nil {
			p.candidates = p.s.order.AllKeys()
		}
		p.filter(func(l *label.Label) bool {
			return slices.Contains(components, l.SourceProject)
		}, "component")
	}
	if base != nil {
		p.filter(func(l *label.Label) bool { return l.BaseLabel() == base }, "base label "+base.Name)
	}
	if p.autoLabel == nil {
		p.filter(func(l *label.Label) bool { return !p.s.scheme.IsComponentWide(l) }, "component-wide labels")
	}
	if p.autoLabel != nil && p.autoLabel.Disposition == label.DispositionComponentWide {
		p.deferred = true
		p.addSolver(p.s.strategies.globalPurpose())
		p.logf("deferred until the component of its build is known")
	}
}

// trivial places a placement with exactly one candidate and fails one with
// none. It reports whether the placement became final.
func (p *placement) trivial() bool {
	if p.isFinal() || p.candidates == nil {
		return p.isFinal()
	}
	switch p.candidates.Len() {
	case 0:
		p.fail("no candidates left")
		return true
	case 1:
		l, _ := p.candidates.First()
		p.setSolution(l, "only candidate")
		return true
	}
	return false
}

// deriveChoice picks the label of this placement that belongs under base.
// It returns nil if there is none, or more than one.
func (p *placement) deriveChoice(base *label.Label) *label.Label {
	if p.candidates == nil || p.candidates.Contains(base) {
		return base
	}
	var under *stree.LabelSet
	if base.Parent == nil {
		under = p.candidates.Filter(func(l *label.Label) bool { return l.BaseLabel() == base })
	} else {
		under = p.candidates.Filter(func(l *label.Label) bool { return l.Parent == base })
	}
	if under.IsEmpty() {
		return nil
	}
	if under.Len() > 1 {
		// @Foo-doc below @Foo+python-doc and @Foo+perl-doc
		if minimum, ok := p.s.order.MinimumOf(under); ok {
			return minimum
		}
		if p.purpose == nil {
			generic := under.Filter(func(l *label.Label) bool { return l.PurposeName == "" })
			if !generic.IsEmpty() {
				under = generic
			}
		}
	}
	if under.Len() > 1 {
		p.logf("ambiguous below %s: %s", base, under)
		return nil
	}
	choice, _ := under.First()
	return choice
}

// baseLabels returns the base labels this placement could end up under, or
// nil if it is unconstrained.
func (p *placement) baseLabels() *stree.LabelSet {
	if p.label != nil {
		return p.s.scheme.NewSet(p.label.BaseLabel())
	}
	if p.candidates == nil {
		return nil
	}
	return p.s.scheme.BaseLabelsForSet(p.candidates)
}

func (p *placement) addSolver(st strategy) {
	if p.isSolved() || slices.Contains(p.solvers, st) {
		return
	}
	p.solvers = append(p.solvers, st)
}

// propagateSolvers hands the stage-2 solvers of an unsolved placement to the
// unsolved placements it requires.
func (p *placement) propagateSolvers() {
	if len(p.solvers) == 0 {
		return
	}
	for _, n := range p.node.LowerNeighbors() {
		lower := p.s.placements[n]
		if lower == nil || lower.isFinal() {
			continue
		}
		for _, st := range p.solvers {
			lower.addSolver(st)
		}
	}
}

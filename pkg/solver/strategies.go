package solver

import (
	"fmt"

	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/stree"
)

// strategy is a solver of the top-down pass. Strategies are attached to
// individual placements and tried on the build of each unsolved placement
// they are attached to.
type strategy interface {
	fmt.Stringer
	trySolve(bp *buildPlacement) bool
}

// strategyFactory hands out one strategy per kind and build config, so that
// attaching the same hint twice is a no-op.
type strategyFactory struct {
	s       *Solver
	sources map[*label.Label]*sourceHints
	global  *globalPurpose
	api     *apiSibling
}

func newStrategyFactory(s *Solver) *strategyFactory {
	return &strategyFactory{
		s:       s,
		sources: make(map[*label.Label]*sourceHints),
		global:  &globalPurpose{s: s},
		api:     &apiSibling{s: s},
	}
}

// sourceHints returns the strategy for packages required to build a source
// of the given build config.
func (f *strategyFactory) sourceHints(cfg *label.Label) *sourceHints {
	if st, ok := f.sources[cfg]; ok {
		return st
	}
	st := &sourceHints{
		cfg:     cfg,
		closure: f.s.order.DownwardClosureForSet(f.s.scheme.NewSet(cfg.BuildRequires...)),
	}
	if st.closure.IsEmpty() {
		f.s.logger.Warn("build config without build requirements", "buildconfig", cfg)
	}
	f.sources[cfg] = st
	return st
}

func (f *strategyFactory) globalPurpose() *globalPurpose { return f.global }

func (f *strategyFactory) apiSibling() *apiSibling { return f.api }

// sourceHints places a build needed to build some component within that
// component's build environment, if exactly one compatible base label lies
// there.
type sourceHints struct {
	cfg     *label.Label
	closure *stree.LabelSet
}

func (st *sourceHints) String() string { return "build requirements of " + st.cfg.Name }

func (st *sourceHints) trySolve(bp *buildPlacement) bool {
	return bp.solveWithConstraints(st.closure, st.String())
}

// globalPurpose places deferred packages into the label their component
// declares for the package's purpose. Packages of components without such a
// declaration stay unresolved.
type globalPurpose struct {
	s *Solver
}

func (st *globalPurpose) String() string { return "component-wide purpose labels" }

func (st *globalPurpose) trySolve(bp *buildPlacement) bool {
	component := bp.componentLabel()
	if component == nil {
		bp.logf("%s: component unknown, cannot place component-wide packages", bp)
		return false
	}
	progress := false
	for _, p := range bp.open() {
		if !p.deferred || p.autoLabel == nil {
			continue
		}
		l := component.GlobalPurposes[p.autoLabel.Name]
		if l == nil {
			p.logf("component %s declares no label for %s", component, p.autoLabel)
			continue
		}
		if p.candidates != nil && !p.candidates.Contains(l) {
			p.fail("%s label %s of component %s is not a candidate", p.autoLabel, l, component)
		} else {
			p.setSolution(l, fmt.Sprintf("%s label of %s", p.autoLabel, component))
		}
		progress = true
	}
	if progress {
		bp.forget()
	}
	return progress
}

// apiSibling places devel packages of a library next to the API label the
// library's sibling exposes.
type apiSibling struct {
	s *Solver
}

func (st *apiSibling) String() string { return "API labels of siblings" }

func (st *apiSibling) trySolve(bp *buildPlacement) bool {
	solved := bp.build.BaseLabels()
	if solved.IsEmpty() {
		return false
	}

	progress := false
	for _, p := range bp.open() {
		if p.purpose == nil || p.purpose.Name != label.PurposeDevel {
			continue
		}
		choices := bp.s.scheme.NewSet()
		for base := range solved.All() {
			if base.API == nil {
				continue
			}
			if l := p.deriveChoice(base.API); l != nil {
				choices.Add(l)
			}
		}
		if p.candidates != nil {
			for c := range p.candidates.All() {
				api := c.BaseLabel()
				if !api.IsAPI {
					continue
				}
				for _, user := range bp.s.scheme.APIUsers(api) {
					if solved.Contains(user) {
						choices.Add(c)
					}
				}
			}
		}
		l, ok := choices.First()
		if !ok || choices.Len() != 1 {
			continue
		}
		p.setSolution(l, "API of sibling library")
		progress = true
	}
	if progress {
		bp.forget()
	}
	return progress
}

package solver

import (
	"slices"
	"strings"

	"github.com/matzehuels/labeltower/pkg/label"
)

// heuristic is one strategy of the bottom-up pass. It tries to place the open
// packages of a build and reports whether it made a decision.
type heuristic struct {
	name     string
	trySolve func(s *Solver, bp *buildPlacement) bool
}

// heuristics are tried in order; the first one that succeeds ends the
// attempt for a build.
var heuristics = []heuristic{
	{"trivial", func(_ *Solver, bp *buildPlacement) bool { return bp.solveTrivialCases() }},
	{"preferred auto label", (*Solver).solvePreferredAutoLabel},
	{"common base label", (*Solver).solveCommonBaseLabel},
	{"common feature label", (*Solver).solveCommonFeatureLabel},
	{"compatible base label", (*Solver).solveCompatibleBaseLabel},
	{"favorite sibling", (*Solver).solveFavoriteSibling},
	{"sibling dependency", (*Solver).solveSiblingDependency},
}

// HeuristicNames lists the bottom-up strategies in the order they are tried.
func HeuristicNames() []string {
	out := make([]string, len(heuristics))
	for i, h := range heuristics {
		out[i] = h.name
	}
	return out
}

// solvePreferredAutoLabel applies to builds where nothing is solved yet and
// every open package carries an auto label. If the auto labels with
// preferences agree, their preferred labels are tried in order. Auto labels
// instantiated from the same template each contribute their first workable
// preferred label, and the build is placed under the supremum of those.
func (s *Solver) solvePreferredAutoLabel(bp *buildPlacement) bool {
	if len(bp.solved()) > 0 {
		return false
	}
	open := bp.open()
	if len(open) == 0 {
		return false
	}
	var autos []*label.Label
	for _, p := range open {
		if p.autoLabel == nil {
			return false
		}
		if len(p.autoLabel.PreferredLabels) > 0 && !slices.Contains(autos, p.autoLabel) {
			autos = append(autos, p.autoLabel)
		}
	}
	switch {
	case len(autos) == 0:
		return false
	case len(autos) == 1:
		for _, pref := range autos[0].PreferredLabels {
			if bp.solveUsing(pref, "preferred label of "+autos[0].Name) {
				return true
			}
		}
		return false
	}

	tmpl := autos[0].Template
	if tmpl == nil {
		return false
	}
	picks := s.scheme.NewSet()
	for _, auto := range autos {
		if auto.Template != tmpl {
			return false
		}
		for _, pref := range auto.PreferredLabels {
			if bp.canSolveUsing(pref) != nil {
				picks.Add(pref)
				break
			}
		}
	}
	sup, ok := s.order.Supremum(picks)
	if !ok {
		bp.logf("%s: preferred labels %s have no supremum", bp, picks)
		return false
	}
	return bp.solveUsing(sup, "supremum of preferred labels")
}

// solveCommonBaseLabel places the build under a base label shared by all
// children: a unique pure solution first, then a unique compatible one, then
// the maximum of the compatible ones.
func (s *Solver) solveCommonBaseLabel(bp *buildPlacement) bool {
	if pure := bp.compatiblePureBaseLabels(); pure.Len() == 1 {
		base, _ := pure.First()
		return bp.solveUsing(base, "pure common base label")
	}
	good := bp.compatibleBaseLabels()
	if good.IsEmpty() {
		return false
	}
	best, ok := s.order.MaximumOf(good)
	if !ok {
		bp.logf("%s: several compatible base labels: %s", bp, good)
		return false
	}
	return bp.solveUsing(best, "common base label")
}

// solveCommonFeatureLabel handles builds that extend a feature: if the solved
// placements the open packages require sit under exactly one feature label,
// the build is placed under it.
func (s *Solver) solveCommonFeatureLabel(bp *buildPlacement) bool {
	features := s.scheme.NewSet()
	for _, p := range bp.open() {
		for _, n := range p.node.LowerNeighbors() {
			lower := s.placements[n]
			if lower == nil || !lower.isSolved() {
				continue
			}
			if base := lower.label.BaseLabel(); base.IsFeature {
				features.Add(base)
			}
		}
	}
	features = s.order.Maxima(features)
	if features.Len() != 1 {
		return false
	}
	feature, _ := features.First()
	return bp.solveUsing(feature, "common feature label")
}

// solveCompatibleBaseLabel looks at the base labels decided for the build so
// far and places the rest of the build under their maximum, after applying
// the placement preferences.
func (s *Solver) solveCompatibleBaseLabel(bp *buildPlacement) bool {
	bases := bp.build.BaseLabels()
	if bases.IsEmpty() {
		return false
	}
	bases = bases.Filter(func(base *label.Label) bool { return bp.canSolveUsing(base) != nil })
	bases = s.preferences.filter(bases)
	best, ok := s.order.MaximumOf(bases)
	if !ok {
		bp.logf("%s: no single maximum among sibling base labels %s", bp, s.order.Maxima(bases))
		return false
	}
	return bp.solveUsing(best, "max base label")
}

// solveFavoriteSibling places purpose packages like libfoo-devel next to the
// sibling they are named after, libfoo1. Devel packages of a library that
// exposes an API label go under the API label.
func (s *Solver) solveFavoriteSibling(bp *buildPlacement) bool {
	solved := bp.solved()
	if len(solved) == 0 {
		return false
	}

	names := make(map[string]*placement)
	type pending struct {
		name string
		p    *placement
	}
	var examine []pending
	for _, pkg := range bp.build.Packages() {
		p := bp.byPackage[pkg]
		if p == nil {
			continue
		}
		if p.isSolved() {
			names[pkg.Name] = p
			stem, ok := pkg.Name, true
			if p.label.IsPurpose() {
				stem, ok = s.stripPurposeSuffix(pkg.Name, s.scheme.Label(p.label.PurposeName))
			}
			if !ok {
				continue
			}
			names[stem] = p
			if strings.HasPrefix(stem, "lib") {
				names[strings.TrimRight(stem, "-0123456789_")] = p
			}
			continue
		}
		if p.open() && p.purpose != nil && len(p.purpose.PackageSuffixes) > 0 {
			examine = append(examine, pending{pkg.Name, p})
		}
	}

	for _, e := range examine {
		if !e.p.open() {
			continue
		}
		stem, ok := s.stripPurposeSuffix(e.name, e.p.purpose)
		if !ok {
			continue
		}
		var favorite *placement
		for _, try := range siblingNames(stem, bp.build.Name()) {
			if favorite = names[try]; favorite != nil {
				break
			}
		}
		if favorite == nil {
			continue
		}

		base := favorite.label
		if base.IsPurpose() && base.Parent != nil {
			base = base.Parent
		}
		var l *label.Label
		if e.p.purpose.Name == label.PurposeDevel && base.API != nil {
			l = e.p.deriveChoice(base.API)
		}
		if l == nil {
			l = e.p.deriveChoice(base)
		}
		if l == nil {
			bp.logf("%s has favorite sibling %s, but %s is not a good base label for it", e.p, favorite, base)
			continue
		}
		e.p.setSolution(l, "favorite sibling "+favorite.String())
	}
	bp.forget()
	return bp.isFinal()
}

// solveSiblingDependency would place packages next to the sibling they
// depend on. No such rule exists yet; the strategy always declines.
func (s *Solver) solveSiblingDependency(*buildPlacement) bool {
	return false
}

func (s *Solver) stripPurposeSuffix(name string, purpose *label.Label) (string, bool) {
	if purpose == nil {
		return "", false
	}
	stem, ok := purpose.HasSuffix(name)
	if !ok {
		return "", false
	}
	stem = strings.TrimRight(stem, "-")
	return stem, stem != ""
}

// siblingNames returns the package names a purpose package with the given
// stem may be named after: librsvg-2 for librsvg, libfoo for foo, and the
// name without the build name prefix.
func siblingNames(stem, build string) []string {
	out := []string{stem}
	if strings.HasPrefix(stem, "lib") {
		stem = strings.TrimRight(stem, "-0123456789")
		out = append(out, stem, stem[3:])
	} else {
		out = append(out, "lib"+stem)
	}
	if rest, ok := strings.CutPrefix(stem, build); ok {
		if rest = strings.TrimLeft(rest, "-"); rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

package stree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/result"
)

// validateInitialPlacements checks that every pre-assigned label covers the
// labels required below its node. The combined requirements of a node are
// the union of those of its lower neighbors; a solved node resets them to the
// downward closure of its label.
func (t *Tree) validateInitialPlacements() error {
	var evidence []string
	problems := 0
	for _, n := range t.nodeOrder.BottomUp(nil) {
		combined := t.scheme.NewSet()
		for _, lower := range n.LowerNeighbors() {
			combined.UnionWith(lower.combined)
		}
		n.combined = combined
		if n.solution == nil {
			continue
		}

		configured := t.order.DownwardClosure(n.solution)
		if !combined.IsSubsetOf(configured) {
			evidence = append(evidence, fmt.Sprintf("%s has unsatisfied requirements: %s is labeled %s", n.solution, n.LabelReason(), n.solution))
			for _, lower := range n.LowerNeighbors() {
				if lower.combined.IsSubsetOf(configured) {
					continue
				}
				missing := t.order.Maxima(lower.combined.Difference(configured))
				problems++
				evidence = append(evidence, fmt.Sprintf("  %s lacks %s", lower.LabelReason(), strings.Join(missing.Names(), " ")))
				for m := range missing.All() {
					if chain := t.explain(lower, m); chain != "" {
						evidence = append(evidence, "    "+chain)
					}
				}
			}
		}
		n.combined = configured
	}

	if problems > 0 {
		t.logger.Error("inconsistent initial placement", "problems", problems)
		return errors.New(errors.ErrCodeConfiguration,
			"unresolved conflicts in initial placement of packages (%d problems)", problems).WithEvidence(evidence...)
	}
	t.logger.Debug("initial placements are consistent")
	return nil
}

// explain finds the solved node below from that introduces the requirement m
// and renders the dependency chain leading to it.
func (t *Tree) explain(from *Node, m *label.Label) string {
	for _, n := range t.nodeOrder.BottomUp(t.nodeOrder.DownwardClosure(from)) {
		if n.solution == nil || !t.order.IsBelow(m, n.solution) {
			continue
		}
		path := t.nodeOrder.FindPath(n, from)
		names := make([]string, len(path))
		for i, step := range path {
			names[len(path)-1-i] = step.String()
		}
		return fmt.Sprintf("%s (%s requires %s)", strings.Join(names, " -> "), n.solution, m)
	}
	return ""
}

// validateComponents checks that the pre-assigned labels of every build agree
// on one component and records it as the component constraint of the build.
func (t *Tree) validateComponents() error {
	for _, b := range t.buildOrder {
		var components []string
		byComponent := make(map[string]*label.Label)
		var evidence []string
		for _, p := range b.packages {
			if p.Label == nil || p.Label.Kind != label.KindBinary || p.Label.SourceProject == nil {
				continue
			}
			c := p.Label.SourceProject
			if _, ok := byComponent[c.Name]; !ok {
				byComponent[c.Name] = c
				components = append(components, c.Name)
			}
			evidence = append(evidence, fmt.Sprintf("%s is labeled %s (component %s)", p, p.Label, c))
		}

		switch len(components) {
		case 0:
			continue
		case 1:
			c := byComponent[components[0]]
			if b.SetComponentConstraint(c) {
				continue
			}
			other := b.ComponentConstraint()
			components = append(components, other.Name)
			evidence = append(evidence, fmt.Sprintf("%s is already constrained to component %s", b, other))
			if base := b.MultibuildBase(); base != nil && !b.SplitAllowed() {
				evidence = append(evidence, fmt.Sprintf("%s is a multibuild flavor of %s; allow the split to place it on its own", b, base))
			}
		}

		slices.Sort(components)
		if t.opts.StrictComponents {
			return errors.New(errors.ErrCodeConfiguration, "build %s is split across components %s",
				b, strings.Join(components, ", ")).WithEvidence(evidence...)
		}
		t.logger.Warn("build is split across components", "build", b, "components", components)
		t.conflicts = append(t.conflicts, result.ComponentConflict{
			Build:      b.Name(),
			Components: components,
			Evidence:   evidence,
		})
	}
	return nil
}

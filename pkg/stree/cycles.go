package stree

import (
	"slices"
	"strings"

	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
	"github.com/matzehuels/labeltower/pkg/result"
)

// collapseAllCycles replaces every dependency cycle by a single node. Merging
// one cycle can close another, so the search repeats until the node order can
// be finalized.
func (t *Tree) collapseAllCycles() error {
	for round := 1; ; round++ {
		order := poset.New(t.nodes, "node runtime dependency")
		for _, n := range t.Nodes() {
			if err := order.Add(n, n.LowerNeighbors()...); err != nil {
				return errors.Wrap(errors.ErrCodeInvariant, err, "cannot order nodes")
			}
		}

		cycles := order.CollapsibleCycles()
		if len(cycles) == 0 {
			if err := order.Finalize(); err != nil {
				return errors.Wrap(errors.ErrCodeInvariant, err, "dependency cycles remain after collapsing")
			}
			t.nodeOrder = order
			return nil
		}

		longest := 0
		for _, cycle := range cycles {
			longest = max(longest, len(cycle))
		}
		t.logger.Debug("collapsing dependency cycles", "round", round, "cycles", len(cycles), "longest", longest)
		for _, cycle := range cycles {
			t.collapse(cycle)
		}
	}
}

// collapse merges the nodes of one cycle into a new node that inherits all
// outside neighbors.
func (t *Tree) collapse(cycle []*Node) *Node {
	members := t.nodes.NewSet(cycle...)

	var pkgs []*distro.Package
	var labels []*label.Label
	above, below := t.nodes.NewSet(), t.nodes.NewSet()
	for _, n := range cycle {
		pkgs = append(pkgs, n.Packages()...)
		if n.solution != nil && !slices.Contains(labels, n.solution) {
			labels = append(labels, n.solution)
		}
		above.UnionWith(n.upper)
		below.UnionWith(n.lower)
	}
	slices.SortFunc(pkgs, func(a, b *distro.Package) int {
		return strings.Compare(a.ID(), b.ID())
	})

	merged := t.newNode(cycleName(pkgs), nil, pkgs)
	merged.lower = below.Difference(members)
	merged.upper = above.Difference(members)
	for lower := range merged.lower.All() {
		lower.upper.DifferenceWith(members)
		lower.upper.Add(merged)
	}
	for upper := range merged.upper.All() {
		upper.lower.DifferenceWith(members)
		upper.lower.Add(merged)
	}
	for _, n := range cycle {
		merged.trace = merged.trace || n.trace
		if merged.build == nil {
			merged.build = n.build
		}
	}
	for _, p := range pkgs {
		t.packages[p] = merged
	}

	if len(cycle) > 2 {
		t.logger.Debug("non-trivial cycle", "node", merged)
	}
	if len(labels) > 0 {
		adopted := labels[0]
		if len(labels) > 1 {
			names := make([]string, len(labels))
			for i, l := range labels {
				names[i] = l.Name
			}
			t.logger.Warn("cycle members carry conflicting labels", "cycle", merged, "labels", names, "adopted", adopted)
			t.cycleConflicts = append(t.cycleConflicts, result.CycleConflict{
				Cycle:   merged.name,
				Labels:  names,
				Adopted: adopted.Name,
			})
		}
		merged.solution = adopted
	}
	return merged
}

package poset

import (
	"cmp"
	"slices"
)

// CollapsibleCycles finds the cycles of a not yet finalized order and merges
// cycles that share an element into maximal groups. Each group is sorted by
// name and the groups are sorted by their first member.
//
// A single call is not guaranteed to report every cycle: elements that were
// fully explored are not entered again. Callers that collapse the returned
// groups should repeat until no group is returned.
func (o *PartialOrder[K]) CollapsibleCycles() [][]K {
	for _, m := range o.members {
		m.state = unvisited
	}

	var cycles [][]*member[K]
	for _, root := range o.members {
		if root.state == visited {
			continue
		}
		root.state = visiting
		stack := []frame[K]{{m: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.m.below) {
				lower := top.m.below[top.next]
				top.next++
				switch lower.state {
				case visited:
				case visiting:
					start := slices.IndexFunc(stack, func(f frame[K]) bool { return f.m == lower })
					cycle := make([]*member[K], 0, len(stack)-start)
					for _, f := range stack[start:] {
						cycle = append(cycle, f.m)
					}
					cycles = append(cycles, cycle)
				default:
					lower.state = visiting
					stack = append(stack, frame[K]{m: lower})
				}
				continue
			}
			top.m.state = visited
			stack = stack[:len(stack)-1]
		}
	}

	return mergeCycles(cycles)
}

// mergeCycles unions cycles that share members.
func mergeCycles[K comparable](cycles [][]*member[K]) [][]K {
	parent := make(map[*member[K]]*member[K])
	var find func(m *member[K]) *member[K]
	find = func(m *member[K]) *member[K] {
		for parent[m] != m {
			parent[m] = parent[parent[m]]
			m = parent[m]
		}
		return m
	}
	for _, cycle := range cycles {
		for _, m := range cycle {
			if _, ok := parent[m]; !ok {
				parent[m] = m
			}
		}
		root := find(cycle[0])
		for _, m := range cycle[1:] {
			if r := find(m); r != root {
				parent[r] = root
			}
		}
	}

	groups := make(map[*member[K]][]*member[K])
	for m := range parent {
		r := find(m)
		groups[r] = append(groups[r], m)
	}

	out := make([][]*member[K], 0, len(groups))
	for _, g := range groups {
		slices.SortFunc(g, func(a, b *member[K]) int { return cmp.Compare(a.name, b.name) })
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b []*member[K]) int { return cmp.Compare(a[0].name, b[0].name) })

	result := make([][]K, len(out))
	for i, g := range out {
		keys := make([]K, len(g))
		for j, m := range g {
			keys[j] = m.key
		}
		result[i] = keys
	}
	return result
}

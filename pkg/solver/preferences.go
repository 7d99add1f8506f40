package solver

import (
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/stree"
)

type preference struct {
	preferred *label.Label
	others    *stree.LabelSet
}

// preferences resolve choices the label order leaves open, e.g. between two
// unrelated base labels that could both host a build.
type preferences struct {
	rules []preference
}

func (p *preferences) add(preferred *label.Label, others *stree.LabelSet) {
	p.rules = append(p.rules, preference{preferred, others})
}

// filter drops every label that loses against another member of c. Rules
// are applied in the order they were defined.
func (p *preferences) filter(c *stree.LabelSet) *stree.LabelSet {
	if c == nil || len(p.rules) == 0 {
		return c
	}
	out := c.Clone()
	for _, r := range p.rules {
		if out.Contains(r.preferred) && out.Intersects(r.others) {
			out.DifferenceWith(r.others)
		}
	}
	return out
}

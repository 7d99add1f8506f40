package result

import (
	"fmt"

	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
)

// MinimalRuntimeRequirements reduces the declared runtime requirements of l
// to the maxima of the labels its packages actually require. If the actual
// requirements cannot be determined, because a required package is unplaced
// or placed outside of what l declares, the declared requirements are
// returned together with an error describing the first problem.
func (r *Result) MinimalRuntimeRequirements(l *label.Label) (*poset.Set[*label.Label], error) {
	declared := r.scheme.NewSet(l.RuntimeRequires...)
	if declared.IsEmpty() {
		return declared, nil
	}
	full := r.order.DownwardClosureForSet(declared)

	actual := r.scheme.NewSet()
	for _, pkg := range r.members[l] {
		for _, required := range pkg.RequiredPackages() {
			rl := r.labelOf[required]
			switch {
			case rl == nil:
				return declared, fmt.Errorf("%s requires %s which has not been labeled", pkg, required)
			case rl == l:
				continue
			case !full.Contains(rl):
				return declared, fmt.Errorf("%s has been placed in %s, but requires %s which is in %s", pkg, l, required, rl)
			}
			actual.Add(rl)
		}
	}
	return r.reduce(actual), nil
}

// MinimalBuildRequirements reduces the labels required by the source
// packages of a build to their maxima.
func (r *Result) MinimalBuildRequirements(name string) (*poset.Set[*label.Label], error) {
	b := r.byName[name]
	if b == nil {
		return nil, fmt.Errorf("unknown build %s", name)
	}
	actual := r.scheme.NewSet()
	for _, src := range b.Sources {
		for _, required := range src.RequiredPackages() {
			rl := r.labelOf[required]
			if rl == nil {
				return nil, fmt.Errorf("%s requires %s which has not been labeled", src, required)
			}
			actual.Add(rl)
		}
	}
	return r.reduce(actual), nil
}

func (r *Result) reduce(actual *poset.Set[*label.Label]) *poset.Set[*label.Label] {
	if actual.IsEmpty() {
		return actual
	}
	return r.order.Maxima(r.order.DownwardClosureForSet(actual))
}

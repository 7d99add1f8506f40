package stree

import (
	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/poset"
)

// Builder walks the requirements of a set of packages and assembles a
// finalized [Tree].
type Builder struct {
	scheme *label.Scheme
	order  *poset.PartialOrder[*label.Label]
	opts   Options
}

// NewBuilder creates a builder for trees over the given label order.
func NewBuilder(scheme *label.Scheme, order *poset.PartialOrder[*label.Label], opts Options) *Builder {
	return &Builder{scheme: scheme, order: order, opts: opts}
}

// Build adds packages, their builds and everything they require, then the
// source packages of all builds encountered, and finalizes the tree.
//
// A package that takes part in classification must not require a package
// labeled with disposition ignore; this is reported as a configuration error.
func (b *Builder) Build(packages []*distro.Package) (*Tree, error) {
	t := New(b.scheme, b.order, b.opts)
	w := &walker{tree: t, seen: make(map[*distro.Package]bool)}

	if err := w.walk(packages); err != nil {
		return nil, err
	}
	// Build requirements may pull in further builds, whose sources are
	// walked in the next round.
	for done := 0; done < len(t.buildOrder); {
		builds := t.buildOrder[done:]
		done = len(t.buildOrder)
		var sources []*distro.Package
		for _, info := range builds {
			sources = append(sources, info.sources...)
		}
		if err := w.walk(sources); err != nil {
			return nil, err
		}
	}

	if err := t.Finalize(); err != nil {
		return nil, err
	}
	return t, nil
}

type walker struct {
	tree  *Tree
	seen  map[*distro.Package]bool
	queue []*distro.Package
}

func (w *walker) add(pkg *distro.Package) *Node {
	n := w.tree.AddPackage(pkg)
	if n == nil {
		return nil
	}
	if pkg.Build != nil {
		if _, known := w.tree.builds[pkg.Build]; !known {
			info := w.tree.AddBuild(pkg.Build)
			w.queue = append(w.queue, info.packages...)
		}
	}
	return n
}

func (w *walker) walk(packages []*distro.Package) error {
	w.queue = append(w.queue, packages...)
	for len(w.queue) > 0 {
		pkg := w.queue[0]
		w.queue = w.queue[1:]
		if w.seen[pkg] {
			continue
		}
		w.seen[pkg] = true

		requiring := w.add(pkg)
		if requiring == nil {
			continue
		}
		for _, target := range pkg.RequiredPackages() {
			if target == pkg {
				continue
			}
			required := w.add(target)
			if required == nil {
				return errors.New(errors.ErrCodeConfiguration,
					"%s requires %s [%s] with disposition 'ignore'", pkg, target, target.Label)
			}
			if requiring == required {
				continue
			}
			if err := w.tree.AddEdge(requiring, required); err != nil {
				return err
			}
			w.queue = append(w.queue, target)
		}
	}
	return nil
}

package stree

import (
	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/label"
)

// Build groups the packages produced by one source package build. It tracks
// the labels decided for its members and the component they must share.
type Build struct {
	build    *distro.Build
	packages []*distro.Package
	sources  []*distro.Package

	labels     *LabelSet
	component  *label.Label
	base       *Build
	allowSplit bool
}

func newBuild(scheme *label.Scheme, b *distro.Build) *Build {
	info := &Build{
		build:      b,
		labels:     scheme.NewSet(),
		allowSplit: b.AllowSplit,
	}
	for _, p := range b.Binaries {
		if ignored(p) {
			continue
		}
		info.packages = append(info.packages, p)
		if p.Label != nil && p.Label.Kind == label.KindBinary {
			info.labels.Add(p.Label)
		}
	}
	for _, p := range b.Sources {
		if !ignored(p) {
			info.sources = append(info.sources, p)
		}
	}
	return info
}

func ignored(p *distro.Package) bool {
	return p.Label != nil && p.Label.Disposition == label.DispositionIgnore
}

// String returns the build name.
func (b *Build) String() string { return b.build.Name }

// Name returns the build name.
func (b *Build) Name() string { return b.build.Name }

// Packages returns the binary packages of the build, in dependency order once
// the tree is finalized.
func (b *Build) Packages() []*distro.Package { return b.packages }

// Sources returns the source packages of the build.
func (b *Build) Sources() []*distro.Package { return b.sources }

// Len returns the number of binary packages.
func (b *Build) Len() int { return len(b.packages) }

// RecordDecision notes that a member was placed in l.
func (b *Build) RecordDecision(l *label.Label) { b.labels.Add(l) }

// Labels returns the labels decided for members so far.
func (b *Build) Labels() *LabelSet { return b.labels.Clone() }

// BaseLabels returns the base labels of all decided labels.
func (b *Build) BaseLabels() *LabelSet {
	out := b.labels.Domain().NewSet()
	for l := range b.labels.All() {
		out.Add(l.BaseLabel())
	}
	return out
}

// CommonBaseLabel returns the base label shared by all decisions, if unique.
func (b *Build) CommonBaseLabel() (*label.Label, bool) {
	bases := b.BaseLabels()
	if bases.Len() != 1 {
		return nil, false
	}
	return bases.First()
}

// CommonLabel returns the label shared by all decisions, if unique.
func (b *Build) CommonLabel() (*label.Label, bool) {
	if b.labels.Len() != 1 {
		return nil, false
	}
	return b.labels.First()
}

// PreferredLabel returns the common label, or failing that the common base
// label.
func (b *Build) PreferredLabel() (*label.Label, bool) {
	if l, ok := b.CommonLabel(); ok {
		return l, true
	}
	return b.CommonBaseLabel()
}

// BaseLabelConstraint returns the base label every member must derive from,
// or nil.
func (b *Build) BaseLabelConstraint() *label.Label { return b.build.BaseLabel }

// MultibuildBase returns the build this multibuild flavor belongs to, or nil.
func (b *Build) MultibuildBase() *Build { return b.base }

// SplitAllowed reports whether a multibuild flavor may leave the component of
// its base build.
func (b *Build) SplitAllowed() bool { return b.allowSplit }

// ComponentConstraint returns the component all members must belong to, or
// nil if it is not known yet. Multibuild flavors share the constraint of
// their base build unless they may split.
func (b *Build) ComponentConstraint() *label.Label {
	if b.base != nil && !b.allowSplit {
		return b.base.ComponentConstraint()
	}
	return b.component
}

// SetComponentConstraint records the component of the build. It reports false,
// leaving the constraint unchanged, if a different component was recorded
// before.
func (b *Build) SetComponentConstraint(component *label.Label) bool {
	if b.base != nil && !b.allowSplit {
		return b.base.SetComponentConstraint(component)
	}
	if b.component != nil {
		return b.component == component
	}
	b.component = component
	return true
}

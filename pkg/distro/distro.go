// Package distro models the packages and builds of a distribution as the
// classifier sees them: a binary or source package with its resolved
// requirements, and the build that produced it.
package distro

import (
	"strings"

	"github.com/matzehuels/labeltower/pkg/label"
)

// Package is one RPM package of the product being classified.
type Package struct {
	Name string
	Arch string

	// Label is the pre-assigned label, if any. Binary labels pin the package;
	// auto flavors and purposes only narrow the candidates.
	Label       *label.Label
	LabelReason string

	// Requires lists the packages this one requires at runtime, or, for a
	// source package, at build time.
	Requires []*Package

	IsSource bool
	Build    *Build
}

// ID returns "name.arch", which is unique within a product.
func (p *Package) ID() string {
	if p.Arch == "" {
		return p.Name
	}
	return p.Name + "." + p.Arch
}

// String returns the package ID.
func (p *Package) String() string { return p.ID() }

// RequiredPackages returns the resolved requirements of p.
func (p *Package) RequiredPackages() []*Package { return p.Requires }

// Build is a source package build and the binaries it produced.
type Build struct {
	Name     string
	Binaries []*Package
	Sources  []*Package

	// AllowSplit lets a multibuild flavor ("foo:python") be placed in a
	// different component than its base build.
	AllowSplit bool
	// BaseLabel, if set, restricts every binary of the build to labels
	// derived from it.
	BaseLabel *label.Label
}

// String returns the build name.
func (b *Build) String() string { return b.Name }

// Packages returns binaries followed by sources.
func (b *Build) Packages() []*Package {
	out := make([]*Package, 0, len(b.Binaries)+len(b.Sources))
	out = append(out, b.Binaries...)
	return append(out, b.Sources...)
}

// MultibuildBase splits an OBS multibuild name "base:flavor". It reports false
// for ordinary builds.
func (b *Build) MultibuildBase() (base, flavor string, ok bool) {
	base, flavor, ok = strings.Cut(b.Name, ":")
	if !ok || base == "" || flavor == "" {
		return b.Name, "", false
	}
	return base, flavor, true
}

// AddBinary appends a binary package and links it to the build.
func (b *Build) AddBinary(p *Package) {
	p.Build = b
	b.Binaries = append(b.Binaries, p)
}

// AddSource appends a source package and links it to the build.
func (b *Build) AddSource(p *Package) {
	p.IsSource = true
	p.Build = b
	b.Sources = append(b.Sources, p)
}

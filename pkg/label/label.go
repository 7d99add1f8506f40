package label

import (
	"maps"
	"slices"
	"strings"
)

// Kind distinguishes the roles a label can play in the hierarchy.
type Kind string

// Label kinds.
const (
	// KindBinary labels are assigned to binary packages, e.g. "@Core" or
	// "@Core+python-devel".
	KindBinary Kind = "binary"
	// KindSource labels name a component (source project), e.g. "Core".
	KindSource Kind = "source"
	// KindAutoFlavor labels are pre-assigned to packages built for a
	// language or feature flavor, e.g. "python".
	KindAutoFlavor Kind = "autoflavor"
	// KindPurpose labels are pre-assigned to packages serving a purpose,
	// e.g. "devel" or "doc".
	KindPurpose Kind = "purpose"
	// KindBuildConfig labels describe how a component is built, e.g.
	// "Core/standard".
	KindBuildConfig Kind = "buildconf"
)

// Disposition controls how auto labels (flavors and purposes) are placed.
type Disposition string

// Label dispositions.
const (
	// DispositionSeparate places flavored packages into a dedicated flavor
	// label, e.g. "@Foo+python".
	DispositionSeparate Disposition = "separate"
	// DispositionMerge places flavored packages into the base label.
	DispositionMerge Disposition = "merge"
	// DispositionMaybeMerge places flavored packages into a flavor label,
	// or into any label that already provides the flavor's requirements.
	DispositionMaybeMerge Disposition = "maybe_merge"
	// DispositionIgnore removes the packages from classification.
	DispositionIgnore Disposition = "ignore"
	// DispositionComponentWide defers placement until the owning component
	// is known, then uses the label the component declares for the purpose.
	DispositionComponentWide Disposition = "component_wide"
)

// PurposeDevel is the purpose whose packages may be placed next to the API
// label of a library.
const PurposeDevel = "devel"

// Label is a node of the classification hierarchy. Labels are created and
// wired by a [Scheme]; the placement engine only reads them.
type Label struct {
	Name        string
	Kind        Kind
	ID          int
	Description string
	Disposition Disposition

	RuntimeRequires []*Label
	BuildRequires   []*Label

	// Derivation chain: "@Foo+python-devel" has Parent "@Foo+python",
	// FlavorName "python" and PurposeName "devel".
	Parent      *Label
	FlavorName  string
	PurposeName string

	IsAPI     bool
	IsFeature bool
	// API is the API label a library label exposes, if any.
	API *Label

	// Auto label attributes.
	PreferredLabels []*Label
	Template        *Label
	PackageSuffixes []string

	SourceProject *Label
	BuildConfig   *Label
	// GlobalPurposes maps a purpose name to the label a component declares
	// for all of its packages of that purpose. Set on source labels only.
	GlobalPurposes map[string]*Label

	flavors  map[string]*Label
	purposes map[string]*Label
}

// String returns the label name.
func (l *Label) String() string { return l.Name }

// IsPurpose reports whether the label is a purpose label or derived from one.
func (l *Label) IsPurpose() bool {
	return l.PurposeName != "" || l.Kind == KindPurpose
}

// BaseLabel follows the parent chain to its root.
func (l *Label) BaseLabel() *Label {
	base := l
	for base.Parent != nil {
		base = base.Parent
	}
	return base
}

// ComponentName returns the name of the owning component, falling back to the
// build config. It is empty for labels without either.
func (l *Label) ComponentName() string {
	if l.SourceProject != nil {
		return l.SourceProject.Name
	}
	if l.BuildConfig != nil {
		return l.BuildConfig.Name
	}
	return ""
}

// Flavor returns the flavor variant of l with the given name, or nil.
func (l *Label) Flavor(name string) *Label { return l.flavors[name] }

// Purpose returns the purpose variant of l with the given name, or nil.
func (l *Label) Purpose(name string) *Label { return l.purposes[name] }

// Flavors returns all flavor variants sorted by flavor name.
func (l *Label) Flavors() []*Label {
	return sortedValues(l.flavors)
}

// Purposes returns all purpose variants sorted by purpose name.
func (l *Label) Purposes() []*Label {
	return sortedValues(l.purposes)
}

// FindSibling starts at the base label and looks up the variant with the given
// flavor and purpose. Either name may be empty. It returns nil if a variant
// along the way does not exist.
func (l *Label) FindSibling(flavorName, purposeName string) *Label {
	label := l.BaseLabel()
	if flavorName != "" {
		label = label.Flavor(flavorName)
	}
	if label != nil && purposeName != "" {
		label = label.Purpose(purposeName)
	}
	return label
}

// HasSuffix reports whether a package name ends in one of the label's
// package suffixes and returns the name with the suffix removed.
func (l *Label) HasSuffix(pkgName string) (string, bool) {
	for _, suffix := range l.PackageSuffixes {
		if stem, ok := strings.CutSuffix(pkgName, suffix); ok && stem != "" {
			return stem, true
		}
	}
	return pkgName, false
}

func (l *Label) addRuntimeDependency(other *Label) {
	if other == l || slices.Contains(l.RuntimeRequires, other) {
		return
	}
	l.RuntimeRequires = append(l.RuntimeRequires, other)
}

func (l *Label) addBuildDependency(other *Label) {
	if slices.Contains(l.BuildRequires, other) {
		return
	}
	l.BuildRequires = append(l.BuildRequires, other)
}

func (l *Label) copyRequirementsFrom(other *Label) {
	if l.Kind == KindBinary {
		switch other.Kind {
		case KindBinary, KindAutoFlavor, KindPurpose:
			for _, req := range other.RuntimeRequires {
				l.addRuntimeDependency(req)
			}
		}
	}
	for _, req := range other.BuildRequires {
		l.addBuildDependency(req)
	}
}

func sortedValues(m map[string]*Label) []*Label {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]*Label, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

// ParseBinaryName splits "@Foo+flavor-purpose" into its parts.
func ParseBinaryName(name string) (base, flavor, purpose string) {
	base = name
	if i := strings.IndexByte(base, '-'); i >= 0 {
		base, purpose = base[:i], base[i+1:]
	}
	if i := strings.IndexByte(base, '+'); i >= 0 {
		base, flavor = base[:i], base[i+1:]
	}
	return base, flavor, purpose
}

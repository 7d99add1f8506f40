package label

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/poset"
)

// Scheme owns every label of a classification. Labels live in one arena
// domain so label sets are bit vectors and back references (API users, global
// purposes) are plain lookups by label index.
//
// A Scheme is built up with the Create* and Add* methods and then finalized.
// The zero value is not usable - use [NewScheme].
type Scheme struct {
	domain   *poset.Domain[*Label]
	labels   map[string]*Label
	ordered  []*Label
	apiUsers map[int][]*Label
	global   map[int]bool
	final    bool
}

// NewScheme creates an empty scheme.
func NewScheme() *Scheme {
	return &Scheme{
		domain:   poset.NewDomain[*Label]("label"),
		labels:   make(map[string]*Label),
		apiUsers: make(map[int][]*Label),
		global:   make(map[int]bool),
	}
}

// Domain returns the arena all label sets of this scheme draw from.
func (s *Scheme) Domain() *poset.Domain[*Label] { return s.domain }

// NewSet creates a label set over the scheme's domain.
func (s *Scheme) NewSet(labels ...*Label) *poset.Set[*Label] {
	return s.domain.NewSet(labels...)
}

// Label returns the label with the given name, or nil.
func (s *Scheme) Label(name string) *Label { return s.labels[name] }

// Labels returns all labels sorted by name.
func (s *Scheme) Labels() []*Label {
	out := slices.Clone(s.ordered)
	slices.SortFunc(out, func(a, b *Label) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// LabelsOfKind returns all labels of one kind sorted by name.
func (s *Scheme) LabelsOfKind(kind Kind) []*Label {
	var out []*Label
	for _, l := range s.Labels() {
		if l.Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// CreateLabel returns the label with the given name, creating it if needed.
// Asking for an existing name with a different kind is an error.
func (s *Scheme) CreateLabel(name string, kind Kind) (*Label, error) {
	if l, ok := s.labels[name]; ok {
		if l.Kind != kind {
			return nil, errors.New(errors.ErrCodeConfiguration,
				"conflicting kinds for label %s: have %s, asked for %s", name, l.Kind, kind)
		}
		return l, nil
	}
	if s.final {
		return nil, errors.New(errors.ErrCodeInvariant, "cannot create label %s after finalize", name)
	}
	if err := errors.ValidateLabelName(name); err != nil {
		return nil, err
	}
	l := &Label{
		Name:        name,
		Kind:        kind,
		ID:          len(s.ordered),
		Disposition: DispositionSeparate,
	}
	s.domain.Register(l)
	s.labels[name] = l
	s.ordered = append(s.ordered, l)
	return l, nil
}

// CreateBuildConfig returns the build config "Component/flavor" of a source
// label.
func (s *Scheme) CreateBuildConfig(source *Label, flavor string) (*Label, error) {
	if source.Kind != KindSource {
		return nil, errors.New(errors.ErrCodeConfiguration, "cannot create build config for %s label %s", source.Kind, source)
	}
	if l := source.Flavor(flavor); l != nil {
		return l, nil
	}
	cfg, err := s.CreateLabel(source.Name+"/"+flavor, KindBuildConfig)
	if err != nil {
		return nil, err
	}
	cfg.Parent = source
	cfg.FlavorName = flavor
	cfg.SourceProject = source
	setVariant(&source.flavors, flavor, cfg)
	return cfg, nil
}

// CreateFlavor returns "@Base+flavor", creating it if needed. The flavor
// inherits component, build config and requirements of its base and always
// requires the base at runtime.
func (s *Scheme) CreateFlavor(base *Label, flavor string) (*Label, error) {
	if base.Kind != KindBinary {
		return nil, errors.New(errors.ErrCodeConfiguration, "cannot create flavor %s for %s label %s", flavor, base.Kind, base)
	}
	if base.FlavorName != "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "cannot derive flavor %s from %s: already a flavor", flavor, base)
	}
	if l := base.Flavor(flavor); l != nil {
		return l, nil
	}
	l, err := s.CreateLabel(base.Name+"+"+flavor, KindBinary)
	if err != nil {
		return nil, err
	}
	l.Parent = base
	l.FlavorName = flavor
	l.PurposeName = base.PurposeName
	l.SourceProject = base.SourceProject
	l.BuildConfig = base.BuildConfig
	l.copyRequirementsFrom(base)
	l.addRuntimeDependency(base)
	setVariant(&base.flavors, flavor, l)
	return l, nil
}

// CreatePurpose returns "@Base-purpose", creating it if needed.
//
// Besides requiring its base, the new label requires the purpose variant of
// every non-purpose runtime requirement of the base, and, for flavors, the
// purpose variant of the flavor's parent. Missing variants are created. If
// template is given, its requirements are copied as well.
func (s *Scheme) CreatePurpose(base *Label, purpose string, template *Label) (*Label, error) {
	if base.Kind != KindBinary {
		return nil, errors.New(errors.ErrCodeConfiguration, "cannot create purpose %s for %s label %s", purpose, base.Kind, base)
	}
	if base.PurposeName != "" {
		return nil, errors.New(errors.ErrCodeConfiguration, "cannot derive purpose %s from %s: already has a purpose", purpose, base)
	}
	if l := base.Purpose(purpose); l != nil {
		return l, nil
	}
	l, err := s.CreateLabel(base.Name+"-"+purpose, KindBinary)
	if err != nil {
		return nil, err
	}
	l.Parent = base
	l.FlavorName = base.FlavorName
	l.PurposeName = purpose
	l.SourceProject = base.SourceProject
	l.BuildConfig = base.BuildConfig
	setVariant(&base.purposes, purpose, l)

	l.copyRequirementsFrom(base)
	if template != nil {
		l.copyRequirementsFrom(template)
	}
	l.addRuntimeDependency(base)

	for _, req := range slices.Clone(base.RuntimeRequires) {
		if req.IsPurpose() || req.Kind != KindBinary {
			continue
		}
		variant, err := s.CreatePurpose(req, purpose, template)
		if err != nil {
			return nil, err
		}
		l.addRuntimeDependency(variant)
	}
	if grand := base.Parent; grand != nil {
		variant, err := s.CreatePurpose(grand, purpose, template)
		if err != nil {
			return nil, err
		}
		l.addRuntimeDependency(variant)
	}
	return l, nil
}

func setVariant(m *map[string]*Label, name string, l *Label) {
	if *m == nil {
		*m = make(map[string]*Label)
	}
	(*m)[name] = l
}

// ResolveBinaryLabel returns the binary label for "@Foo+flavor-purpose",
// creating the base and any variants that do not exist yet.
func (s *Scheme) ResolveBinaryLabel(name string) (*Label, error) {
	baseName, flavor, purpose := ParseBinaryName(name)
	l, err := s.CreateLabel(baseName, KindBinary)
	if err != nil {
		return nil, err
	}
	if flavor != "" {
		if l, err = s.CreateFlavor(l, flavor); err != nil {
			return nil, err
		}
	}
	if purpose != "" {
		if l, err = s.CreatePurpose(l, purpose, nil); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddRuntimeDependency records that packages labeled l may require packages
// labeled other. Binary labels may only require binary labels; auto labels
// and source labels may require binary labels; build configs may require
// source labels.
func (s *Scheme) AddRuntimeDependency(l, other *Label) error {
	if !okayToAdd(l, other) {
		return errors.New(errors.ErrCodeConfiguration,
			"incompatible dependency of %s label %s on %s label %s", l.Kind, l, other.Kind, other)
	}
	l.addRuntimeDependency(other)
	return nil
}

// AddBuildDependency records a build requirement.
func (s *Scheme) AddBuildDependency(l, other *Label) {
	l.addBuildDependency(other)
}

func okayToAdd(l, other *Label) bool {
	if l.Kind == other.Kind {
		return true
	}
	switch other.Kind {
	case KindBinary:
		return l.Kind == KindAutoFlavor || l.Kind == KindPurpose || l.Kind == KindSource
	case KindSource:
		return l.Kind == KindBuildConfig
	}
	return false
}

// SetBuildConfig assigns the build config of a binary label. The label
// inherits the config's component, and on Finalize its build requirements.
func (s *Scheme) SetBuildConfig(l, cfg *Label) error {
	if l.BuildConfig == cfg {
		return nil
	}
	if l.BuildConfig != nil {
		return errors.New(errors.ErrCodeConfiguration, "duplicate build config for %s: %s vs %s", l, l.BuildConfig, cfg)
	}
	l.BuildConfig = cfg
	if l.SourceProject == nil {
		l.SourceProject = cfg.SourceProject
	}
	return nil
}

// SetGlobalPurpose declares l as the label for all packages of the given
// purpose built by component.
func (s *Scheme) SetGlobalPurpose(component *Label, purpose string, l *Label) error {
	if component.Kind != KindSource {
		return errors.New(errors.ErrCodeConfiguration, "global purpose %s declared on %s label %s", purpose, component.Kind, component)
	}
	if component.GlobalPurposes == nil {
		component.GlobalPurposes = make(map[string]*Label)
	}
	if prev, ok := component.GlobalPurposes[purpose]; ok && prev != l {
		return errors.New(errors.ErrCodeConfiguration, "component %s declares %s for purpose %s twice (%s)", component, l, purpose, prev)
	}
	component.GlobalPurposes[purpose] = l
	s.global[l.ID] = true
	return nil
}

// SetAPI links a library label to the API label it exposes.
func (s *Scheme) SetAPI(l, api *Label) {
	l.API = api
	api.IsAPI = true
}

// Finalize completes the hierarchy: labels without a component or build
// config inherit them along the parent chain, build config requirements on
// other build configs are expanded to binary labels, and API back references
// are indexed.
func (s *Scheme) Finalize() error {
	if s.final {
		return nil
	}
	for _, l := range s.ordered {
		inheritSourceProject(l)
		inheritBuildConfig(l)
	}

	resolved := make(map[*Label]bool)
	for _, cfg := range s.ordered {
		if cfg.Kind == KindBuildConfig {
			if err := s.resolveBuildConfig(cfg, resolved, make(map[*Label]bool)); err != nil {
				return err
			}
		}
	}

	for _, l := range s.ordered {
		if l.Kind == KindBinary && l.BuildConfig != nil {
			for _, req := range l.BuildConfig.BuildRequires {
				l.addBuildDependency(req)
			}
		}
		if l.API != nil {
			s.apiUsers[l.API.ID] = append(s.apiUsers[l.API.ID], l)
		}
	}
	s.final = true
	return nil
}

func inheritSourceProject(l *Label) *Label {
	if l.SourceProject == nil && l.Parent != nil {
		l.SourceProject = inheritSourceProject(l.Parent)
	}
	if l.SourceProject == nil && l.BuildConfig != nil {
		l.SourceProject = l.BuildConfig.SourceProject
	}
	return l.SourceProject
}

func inheritBuildConfig(l *Label) *Label {
	if l.BuildConfig == nil && l.Parent != nil && l.Kind == KindBinary {
		l.BuildConfig = inheritBuildConfig(l.Parent)
	}
	return l.BuildConfig
}

// resolveBuildConfig replaces references to other build configs in the build
// requirements of cfg by their binary labels.
func (s *Scheme) resolveBuildConfig(cfg *Label, resolved, resolving map[*Label]bool) error {
	if resolved[cfg] {
		return nil
	}
	if resolving[cfg] {
		return errors.New(errors.ErrCodeConfiguration, "build config %s requires itself", cfg)
	}
	resolving[cfg] = true

	var out []*Label
	add := func(l *Label) {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	for _, req := range cfg.BuildRequires {
		switch req.Kind {
		case KindBuildConfig:
			if err := s.resolveBuildConfig(req, resolved, resolving); err != nil {
				return err
			}
			for _, l := range req.BuildRequires {
				add(l)
			}
		case KindBinary:
			add(req)
		default:
			return errors.New(errors.ErrCodeConfiguration, "build config %s references %s label %s", cfg, req.Kind, req)
		}
	}
	cfg.BuildRequires = out

	delete(resolving, cfg)
	resolved[cfg] = true
	return nil
}

// Order creates the partial order of all labels of a kind, where a label lies
// above everything it requires at runtime. Only binary labels can be ordered.
func (s *Scheme) Order(kind Kind) (*poset.PartialOrder[*Label], error) {
	if kind != KindBinary {
		return nil, errors.New(errors.ErrCodeUnsupported, "cannot order %s labels", kind)
	}
	var problems []string
	order := poset.New(s.domain, "runtime dependency")
	for _, l := range s.ordered {
		if l.Kind != kind {
			continue
		}
		for _, req := range l.RuntimeRequires {
			if req.Kind != kind {
				problems = append(problems, fmt.Sprintf("%s requires %s label %s", l, req.Kind, req))
			}
		}
		if err := order.Add(l, l.RuntimeRequires...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvariant, err, "cannot order labels")
		}
	}
	if len(problems) > 0 {
		return nil, errors.New(errors.ErrCodeConfiguration, "inconsistent label hierarchy").WithEvidence(problems...)
	}
	if err := order.Finalize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCycle, err, "label requirements are cyclic")
	}
	return order, nil
}

// BaseLabelsForSet maps every label of set to its base label.
func (s *Scheme) BaseLabelsForSet(set *poset.Set[*Label]) *poset.Set[*Label] {
	out := s.domain.NewSet()
	for l := range set.All() {
		out.Add(l.BaseLabel())
	}
	return out
}

// APIUsers returns the labels that expose api. Available after Finalize.
func (s *Scheme) APIUsers(api *Label) []*Label {
	return s.apiUsers[api.ID]
}

// IsComponentWide reports whether some component declared l as its global
// label for a purpose.
func (s *Scheme) IsComponentWide(l *Label) bool {
	return s.global[l.ID]
}

// Fingerprint returns a digest of the scheme contents. Two schemes with equal
// fingerprints classify identically, so every attribute the solver reads is
// part of the digest. Preferred labels and suffixes keep their order.
func (s *Scheme) Fingerprint() string {
	h := sha256.New()
	for _, l := range s.Labels() {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%t|%t\n",
			l.Name, l.Kind, l.Disposition, names(l.RuntimeRequires), names(l.BuildRequires),
			l.IsAPI, l.IsFeature)
		fmt.Fprintf(h, "  derive=%s+%s-%s\n", nameOf(l.Parent), l.FlavorName, l.PurposeName)
		fmt.Fprintf(h, "  api=%s template=%s\n", nameOf(l.API), nameOf(l.Template))
		fmt.Fprintf(h, "  preferred=%s\n", orderedNames(l.PreferredLabels))
		fmt.Fprintf(h, "  suffixes=%s\n", strings.Join(l.PackageSuffixes, ","))
		fmt.Fprintf(h, "  project=%s cfg=%s\n", nameOf(l.SourceProject), nameOf(l.BuildConfig))
		for _, purpose := range sortedKeys(l.GlobalPurposes) {
			fmt.Fprintf(h, "  global %s=%s\n", purpose, l.GlobalPurposes[purpose])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func nameOf(l *Label) string {
	if l == nil {
		return ""
	}
	return l.Name
}

func orderedNames(labels []*Label) string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Name
	}
	return strings.Join(out, ",")
}

func names(labels []*Label) string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Name
	}
	slices.Sort(out)
	return strings.Join(out, ",")
}

func sortedKeys(m map[string]*Label) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

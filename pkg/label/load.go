package label

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/labeltower/pkg/errors"
)

// File is the TOML representation of a label scheme.
//
//	[[component]]
//	name = "Core"
//	global = { doc = "@CoreDocs" }
//
//	[[buildconfig]]
//	name = "Core/standard"
//	requires = ["@Glibc"]
//
//	[[autoflavor]]
//	name = "python"
//	disposition = "maybe_merge"
//	requires = ["@Python"]
//	preferred = ["@Core+python"]
//
//	[[purpose]]
//	name = "devel"
//	suffixes = ["-devel"]
//
//	[[label]]
//	name = "@Core"
//	requires = ["@Glibc"]
//	buildconfig = "Core/standard"
//	flavors = ["python"]
//	purposes = ["devel"]
type File struct {
	Components   []ComponentDef   `toml:"component"`
	BuildConfigs []BuildConfigDef `toml:"buildconfig"`
	AutoFlavors  []AutoLabelDef   `toml:"autoflavor"`
	Purposes     []AutoLabelDef   `toml:"purpose"`
	Labels       []LabelDef       `toml:"label"`
}

// ComponentDef declares a source project.
type ComponentDef struct {
	Name        string            `toml:"name"`
	Description string            `toml:"description"`
	Global      map[string]string `toml:"global"`
}

// BuildConfigDef declares a build configuration "Component/flavor". Requires
// may name binary labels or other build configs.
type BuildConfigDef struct {
	Name     string   `toml:"name"`
	Requires []string `toml:"requires"`
}

// AutoLabelDef declares an auto flavor or a purpose.
type AutoLabelDef struct {
	Name        string   `toml:"name"`
	Disposition string   `toml:"disposition"`
	Requires    []string `toml:"requires"`
	Preferred   []string `toml:"preferred"`
	Template    string   `toml:"template"`
	Suffixes    []string `toml:"suffixes"`
}

// LabelDef declares a binary base label and the variants derived from it.
type LabelDef struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Requires    []string `toml:"requires"`
	BuildConfig string   `toml:"buildconfig"`
	Flavors     []string `toml:"flavors"`
	Purposes    []string `toml:"purposes"`
	API         string   `toml:"api"`
	Feature     bool     `toml:"feature"`
	Disposition string   `toml:"disposition"`
}

// LoadFile reads a TOML scheme file and builds a finalized scheme.
func LoadFile(path string) (*Scheme, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open scheme %s", path)
	}
	defer f.Close()
	return LoadTOML(f)
}

// LoadTOML decodes a scheme file and builds a finalized scheme. Unknown keys
// are rejected.
func LoadTOML(r io.Reader) (*Scheme, error) {
	var file File
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode scheme")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown keys in scheme: %s", strings.Join(keys, ", "))
	}
	return Build(&file)
}

// Build creates a finalized scheme from its file representation.
func Build(file *File) (*Scheme, error) {
	b := &builder{s: NewScheme()}
	steps := []func(*File) error{
		b.components,
		b.buildConfigs,
		b.baseLabels,
		b.autoLabels,
		b.variants,
		b.references,
	}
	for _, step := range steps {
		if err := step(file); err != nil {
			return nil, err
		}
	}
	if err := b.s.Finalize(); err != nil {
		return nil, err
	}
	return b.s, nil
}

type builder struct {
	s *Scheme
}

func (b *builder) components(file *File) error {
	for _, def := range file.Components {
		l, err := b.s.CreateLabel(def.Name, KindSource)
		if err != nil {
			return err
		}
		l.Description = def.Description
	}
	return nil
}

func (b *builder) buildConfigs(file *File) error {
	for _, def := range file.BuildConfigs {
		component, flavor, ok := strings.Cut(def.Name, "/")
		if !ok {
			flavor = "standard"
		}
		source := b.s.Label(component)
		if source == nil {
			return errors.New(errors.ErrCodeLabelNotFound, "build config %s: unknown component %s", def.Name, component)
		}
		if _, err := b.s.CreateBuildConfig(source, flavor); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) baseLabels(file *File) error {
	for _, def := range file.Labels {
		l, err := b.s.CreateLabel(def.Name, KindBinary)
		if err != nil {
			return err
		}
		l.Description = def.Description
		l.IsFeature = def.Feature
		if def.Disposition != "" {
			d, err := parseDisposition(def.Disposition)
			if err != nil {
				return fmt.Errorf("label %s: %w", def.Name, err)
			}
			l.Disposition = d
		}
	}
	for _, def := range file.Labels {
		l := b.s.Label(def.Name)
		for _, name := range def.Requires {
			req, err := b.binary(name)
			if err != nil {
				return fmt.Errorf("label %s: %w", def.Name, err)
			}
			if err := b.s.AddRuntimeDependency(l, req); err != nil {
				return err
			}
		}
		if def.BuildConfig != "" {
			cfg := b.s.Label(def.BuildConfig)
			if cfg == nil || cfg.Kind != KindBuildConfig {
				return errors.New(errors.ErrCodeLabelNotFound, "label %s: unknown build config %s", def.Name, def.BuildConfig)
			}
			if err := b.s.SetBuildConfig(l, cfg); err != nil {
				return err
			}
		}
	}
	for _, def := range file.BuildConfigs {
		cfg := b.s.Label(configName(def.Name))
		for _, name := range def.Requires {
			req := b.s.Label(name)
			if req == nil {
				var err error
				if req, err = b.binary(name); err != nil {
					return fmt.Errorf("build config %s: %w", def.Name, err)
				}
			}
			b.s.AddBuildDependency(cfg, req)
		}
	}
	return nil
}

func configName(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return name + "/standard"
}

func (b *builder) autoLabels(file *File) error {
	create := func(def AutoLabelDef, kind Kind) error {
		l, err := b.s.CreateLabel(def.Name, kind)
		if err != nil {
			return err
		}
		if def.Disposition != "" {
			if l.Disposition, err = parseDisposition(def.Disposition); err != nil {
				return fmt.Errorf("%s %s: %w", kind, def.Name, err)
			}
		}
		l.PackageSuffixes = def.Suffixes
		for _, name := range def.Requires {
			req, err := b.binary(name)
			if err != nil {
				return fmt.Errorf("%s %s: %w", kind, def.Name, err)
			}
			if err := b.s.AddRuntimeDependency(l, req); err != nil {
				return err
			}
		}
		return nil
	}
	for _, def := range file.AutoFlavors {
		if err := create(def, KindAutoFlavor); err != nil {
			return err
		}
	}
	for _, def := range file.Purposes {
		if err := create(def, KindPurpose); err != nil {
			return err
		}
	}
	for _, def := range slices.Concat(file.AutoFlavors, file.Purposes) {
		if def.Template == "" {
			continue
		}
		tmpl := b.s.Label(def.Template)
		if tmpl == nil {
			return errors.New(errors.ErrCodeLabelNotFound, "%s: unknown template %s", def.Name, def.Template)
		}
		b.s.Label(def.Name).Template = tmpl
	}
	return nil
}

func (b *builder) variants(file *File) error {
	for _, def := range file.Labels {
		base := b.s.Label(def.Name)
		targets := []*Label{base}
		for _, flavor := range def.Flavors {
			auto := b.s.Label(flavor)
			if auto == nil || auto.Kind != KindAutoFlavor {
				return errors.New(errors.ErrCodeLabelNotFound, "label %s: unknown flavor %s", def.Name, flavor)
			}
			l, err := b.s.CreateFlavor(base, flavor)
			if err != nil {
				return err
			}
			l.copyRequirementsFrom(auto)
			targets = append(targets, l)
		}
		for _, purpose := range def.Purposes {
			auto := b.s.Label(purpose)
			if auto == nil || auto.Kind != KindPurpose {
				return errors.New(errors.ErrCodeLabelNotFound, "label %s: unknown purpose %s", def.Name, purpose)
			}
			for _, target := range targets {
				if _, err := b.s.CreatePurpose(target, purpose, auto); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *builder) references(file *File) error {
	for _, def := range slices.Concat(file.AutoFlavors, file.Purposes) {
		l := b.s.Label(def.Name)
		for _, name := range def.Preferred {
			pref, err := b.binary(name)
			if err != nil {
				return fmt.Errorf("%s: preferred label: %w", def.Name, err)
			}
			l.PreferredLabels = append(l.PreferredLabels, pref)
		}
	}
	for _, def := range file.Labels {
		if def.API == "" {
			continue
		}
		api, err := b.binary(def.API)
		if err != nil {
			return fmt.Errorf("label %s: api: %w", def.Name, err)
		}
		b.s.SetAPI(b.s.Label(def.Name), api)
	}
	for _, def := range file.Components {
		component := b.s.Label(def.Name)
		for _, purpose := range slices.Sorted(maps.Keys(def.Global)) {
			name := def.Global[purpose]
			l, err := b.binary(name)
			if err != nil {
				return fmt.Errorf("component %s: global %s: %w", def.Name, purpose, err)
			}
			if err := b.s.SetGlobalPurpose(component, purpose, l); err != nil {
				return err
			}
		}
	}
	return nil
}

// binary resolves a reference to a binary label. The base label must have
// been declared; flavor and purpose variants are derived on demand.
func (b *builder) binary(name string) (*Label, error) {
	base, _, _ := ParseBinaryName(name)
	if l := b.s.Label(base); l == nil || l.Kind != KindBinary {
		return nil, errors.New(errors.ErrCodeLabelNotFound, "unknown binary label %s", name)
	}
	return b.s.ResolveBinaryLabel(name)
}

func parseDisposition(s string) (Disposition, error) {
	switch d := Disposition(s); d {
	case DispositionSeparate, DispositionMerge, DispositionMaybeMerge, DispositionIgnore, DispositionComponentWide:
		return d, nil
	}
	return "", errors.New(errors.ErrCodeInvalidLabel, "unknown disposition %q", s)
}

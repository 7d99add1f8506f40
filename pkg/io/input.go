package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/labeltower/pkg/distro"
	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
)

type input struct {
	Builds []buildDef `json:"builds"`
}

type buildDef struct {
	Name       string       `json:"name"`
	AllowSplit bool         `json:"allow_split,omitempty"`
	BaseLabel  string       `json:"base_label,omitempty"`
	Sources    []packageDef `json:"sources,omitempty"`
	Binaries   []packageDef `json:"binaries"`
}

type packageDef struct {
	Name        string   `json:"name"`
	Arch        string   `json:"arch,omitempty"`
	Label       string   `json:"label,omitempty"`
	LabelReason string   `json:"label_reason,omitempty"`
	Requires    []string `json:"requires,omitempty"`
}

// Input is a decoded classification input.
type Input struct {
	Builds   []*distro.Build
	Packages []*distro.Package

	byID map[string]*distro.Package
}

// Package returns the package with the given ID, or nil.
func (in *Input) Package(id string) *distro.Package { return in.byID[id] }

// Build returns the named build, or nil.
func (in *Input) Build(name string) *distro.Build {
	for _, b := range in.Builds {
		if b.Name == name {
			return b
		}
	}
	return nil
}

// ReadInput decodes an input from r, resolving label names against scheme.
//
// ReadInput fails on malformed JSON, invalid or duplicate package IDs,
// unknown labels and requirements that name no package (or an ambiguous
// name). It does not close r.
func ReadInput(r io.Reader, scheme *label.Scheme) (*Input, error) {
	var data input
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode input")
	}

	in := &Input{byID: make(map[string]*distro.Package)}
	byName := make(map[string][]*distro.Package)
	requires := make(map[*distro.Package][]string)

	add := func(b *distro.Build, def packageDef, source bool) error {
		if err := errors.ValidatePackageName(def.Name); err != nil {
			return fmt.Errorf("build %s: %w", b.Name, err)
		}
		p := &distro.Package{Name: def.Name, Arch: def.Arch, LabelReason: def.LabelReason}
		if _, dup := in.byID[p.ID()]; dup {
			return errors.New(errors.ErrCodeInvalidPackage, "duplicate package %s in build %s", p.ID(), b.Name)
		}
		if def.Label != "" {
			if p.Label = scheme.Label(def.Label); p.Label == nil {
				return errors.New(errors.ErrCodeLabelNotFound, "package %s: unknown label %s", p.ID(), def.Label)
			}
			if p.LabelReason == "" {
				p.LabelReason = "pre-assigned"
			}
		}
		if source {
			b.AddSource(p)
		} else {
			b.AddBinary(p)
		}
		in.byID[p.ID()] = p
		byName[p.Name] = append(byName[p.Name], p)
		requires[p] = def.Requires
		return nil
	}

	for _, bd := range data.Builds {
		if bd.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "build without a name")
		}
		b := &distro.Build{Name: bd.Name, AllowSplit: bd.AllowSplit}
		if bd.BaseLabel != "" {
			if b.BaseLabel = scheme.Label(bd.BaseLabel); b.BaseLabel == nil {
				return nil, errors.New(errors.ErrCodeLabelNotFound, "build %s: unknown base label %s", b.Name, bd.BaseLabel)
			}
		}
		for _, def := range bd.Binaries {
			if err := add(b, def, false); err != nil {
				return nil, err
			}
		}
		for _, def := range bd.Sources {
			if err := add(b, def, true); err != nil {
				return nil, err
			}
		}
		in.Builds = append(in.Builds, b)
		in.Packages = append(in.Packages, b.Packages()...)
	}

	for _, p := range in.Packages {
		for _, ref := range requires[p] {
			target := in.byID[ref]
			if target == nil {
				switch candidates := byName[ref]; len(candidates) {
				case 0:
					return nil, errors.New(errors.ErrCodeInvalidInput, "%s requires unknown package %s", p, ref)
				case 1:
					target = candidates[0]
				default:
					return nil, errors.New(errors.ErrCodeInvalidInput, "%s requires %s, which matches %d packages", p, ref, len(candidates))
				}
			}
			p.Requires = append(p.Requires, target)
		}
	}
	return in, nil
}

// ImportInput reads the input file at path.
func ImportInput(path string, scheme *label.Scheme) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadInput(f, scheme)
}

// WriteInput encodes builds in the input format. Requirements are written
// as package IDs.
func WriteInput(builds []*distro.Build, w io.Writer) error {
	out := input{Builds: make([]buildDef, len(builds))}
	for i, b := range builds {
		bd := buildDef{Name: b.Name, AllowSplit: b.AllowSplit}
		if b.BaseLabel != nil {
			bd.BaseLabel = b.BaseLabel.Name
		}
		for _, p := range b.Binaries {
			bd.Binaries = append(bd.Binaries, toPackageDef(p))
		}
		for _, p := range b.Sources {
			bd.Sources = append(bd.Sources, toPackageDef(p))
		}
		out.Builds[i] = bd
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func toPackageDef(p *distro.Package) packageDef {
	def := packageDef{Name: p.Name, Arch: p.Arch, LabelReason: p.LabelReason}
	if p.Label != nil {
		def.Label = p.Label.Name
	}
	for _, r := range p.Requires {
		def.Requires = append(def.Requires, r.ID())
	}
	return def
}

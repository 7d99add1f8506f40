package result

import (
	"slices"
	"strings"
)

// Report is a self-contained, name-keyed snapshot of a [Result]. It is what
// gets written to disk, cached, stored and served.
type Report struct {
	RunID          string              `json:"run_id"`
	Scheme         string              `json:"scheme,omitempty"`
	Labels         []LabelReport       `json:"labels"`
	Packages       []PackageReport     `json:"packages"`
	Builds         []BuildReport       `json:"builds"`
	Unresolved     []Unresolved        `json:"unresolved,omitempty"`
	Conflicts      []ComponentConflict `json:"conflicts,omitempty"`
	CycleConflicts []CycleConflict     `json:"cycle_conflicts,omitempty"`
	Stats          Stats               `json:"stats"`
}

// LabelReport lists the packages placed in one label.
type LabelReport struct {
	Name      string   `json:"name"`
	Component string   `json:"component,omitempty"`
	Requires  []string `json:"requires,omitempty"`
	Packages  []string `json:"packages"`
}

// PackageReport is the placement of one package.
type PackageReport struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Label  string `json:"label"`
	Build  string `json:"build,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// BuildReport is the placement of one build.
type BuildReport struct {
	Name        string   `json:"name"`
	Component   string   `json:"component,omitempty"`
	BuildConfig string   `json:"buildconfig,omitempty"`
	Binaries    []string `json:"binaries"`
	Sources     []string `json:"sources,omitempty"`
	Requires    []string `json:"requires,omitempty"`
}

// Report builds the snapshot of r. Requirements are reduced to the labels
// actually used; where that is not possible the declared ones are listed.
func (r *Result) Report() *Report {
	rep := &Report{
		RunID:          r.id.String(),
		Scheme:         r.scheme.Fingerprint(),
		Unresolved:     slices.Clone(r.unsolved),
		Conflicts:      slices.Clone(r.conflicts),
		CycleConflicts: slices.Clone(r.cycleConflicts),
		Stats:          r.stats,
	}

	for _, l := range r.Labels() {
		lr := LabelReport{Name: l.Name, Component: l.ComponentName()}
		if reqs, err := r.MinimalRuntimeRequirements(l); err == nil {
			lr.Requires = reqs.Names()
		} else {
			lr.Requires = r.scheme.NewSet(l.RuntimeRequires...).Names()
		}
		for _, p := range r.members[l] {
			lr.Packages = append(lr.Packages, p.ID())
			pr := PackageReport{ID: p.ID(), Name: p.Name, Label: l.Name, Reason: r.reasons[p]}
			if b := r.buildOf[p]; b != nil {
				pr.Build = b.Name
			}
			rep.Packages = append(rep.Packages, pr)
		}
		rep.Labels = append(rep.Labels, lr)
	}
	slices.SortFunc(rep.Packages, func(a, b PackageReport) int { return strings.Compare(a.ID, b.ID) })

	for _, b := range r.builds {
		br := BuildReport{Name: b.Name}
		if b.Component != nil {
			br.Component = b.Component.Name
		}
		if b.BuildConfig != nil {
			br.BuildConfig = b.BuildConfig.Name
		}
		for _, p := range b.Binaries {
			br.Binaries = append(br.Binaries, p.ID())
		}
		for _, p := range b.Sources {
			br.Sources = append(br.Sources, p.ID())
		}
		if reqs, err := r.MinimalBuildRequirements(b.Name); err == nil {
			br.Requires = reqs.Names()
		}
		rep.Builds = append(rep.Builds, br)
	}
	return rep
}

// Label returns the report of the named label.
func (rep *Report) Label(name string) (LabelReport, bool) {
	i := slices.IndexFunc(rep.Labels, func(l LabelReport) bool { return l.Name == name })
	if i < 0 {
		return LabelReport{}, false
	}
	return rep.Labels[i], true
}

// Package returns the placement of a package, looked up by ID or name.
func (rep *Report) Package(name string) (PackageReport, bool) {
	i := slices.IndexFunc(rep.Packages, func(p PackageReport) bool { return p.ID == name })
	if i < 0 {
		i = slices.IndexFunc(rep.Packages, func(p PackageReport) bool { return p.Name == name })
	}
	if i < 0 {
		return PackageReport{}, false
	}
	return rep.Packages[i], true
}

// Build returns the report of the named build.
func (rep *Report) Build(name string) (BuildReport, bool) {
	i := slices.IndexFunc(rep.Builds, func(b BuildReport) bool { return b.Name == name })
	if i < 0 {
		return BuildReport{}, false
	}
	return rep.Builds[i], true
}

// UnresolvedPackage returns the unresolved entry of a package, if any.
func (rep *Report) UnresolvedPackage(name string) (Unresolved, bool) {
	i := slices.IndexFunc(rep.Unresolved, func(u Unresolved) bool { return u.Package == name })
	if i < 0 {
		return Unresolved{}, false
	}
	return rep.Unresolved[i], true
}

package solver

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/labeltower/pkg/errors"
	"github.com/matzehuels/labeltower/pkg/label"
	"github.com/matzehuels/labeltower/pkg/observability"
	"github.com/matzehuels/labeltower/pkg/poset"
	"github.com/matzehuels/labeltower/pkg/result"
	"github.com/matzehuels/labeltower/pkg/stree"
)

type stage int

const (
	stageBottomUp stage = iota + 1
	stageTopDown
)

// Options configures a [Solver].
type Options struct {
	// Logger receives progress and decisions. Defaults to the tree's logger.
	Logger *log.Logger
}

// Solver assigns a label to every package of a finalized solving tree.
//
// A Solver is single use: [Solver.Solve] may be called once.
type Solver struct {
	tree        *stree.Tree
	scheme      *label.Scheme
	order       *poset.PartialOrder[*label.Label]
	logger      *log.Logger
	preferences *preferences
	strategies  *strategyFactory

	stage      stage
	placements map[*stree.Node]*placement
	builds     map[*stree.Build]*buildPlacement
	conflicts  []result.ComponentConflict
	done       bool
}

// New creates a solver for a finalized tree.
func New(tree *stree.Tree, opts Options) (*Solver, error) {
	if !tree.Finalized() {
		return nil, errors.New(errors.ErrCodeInvariant, "solving tree is not finalized")
	}
	logger := opts.Logger
	if logger == nil {
		logger = tree.Logger()
	}
	s := &Solver{
		tree:        tree,
		scheme:      tree.Scheme(),
		order:       tree.LabelOrder(),
		logger:      logger,
		preferences: &preferences{},
		placements:  make(map[*stree.Node]*placement),
		builds:      make(map[*stree.Build]*buildPlacement),
	}
	s.strategies = newStrategyFactory(s)
	return s, nil
}

// DefinePreference makes the solver prefer the label named preferred over
// each of others whenever a choice between them comes up.
func (s *Solver) DefinePreference(preferred string, others ...string) error {
	pref := s.scheme.Label(preferred)
	if pref == nil {
		return errors.New(errors.ErrCodeLabelNotFound, "preference: unknown label %s", preferred)
	}
	set := s.scheme.NewSet()
	for _, name := range others {
		l := s.scheme.Label(name)
		if l == nil {
			return errors.New(errors.ErrCodeLabelNotFound, "preference for %s: unknown label %s", preferred, name)
		}
		if l == pref {
			return errors.New(errors.ErrCodeConfiguration, "label %s cannot be preferred over itself", preferred)
		}
		set.Add(l)
	}
	s.preferences.add(pref, set)
	return nil
}

// Solve runs both passes and assembles the result. Packages that cannot be
// placed are reported in the result; only engine defects return an error.
func (s *Solver) Solve() (*result.Result, error) {
	if s.done {
		return nil, errors.New(errors.ErrCodeInvariant, "solver already used")
	}
	s.done = true
	start := time.Now()

	hooks := observability.Solver()

	s.stage = stageBottomUp
	builds := s.tree.BottomUpBuilds()
	for _, b := range builds {
		bp := s.newBuildPlacement(b)
		s.builds[b] = bp
		bp.applyConstraints()
		s.solveBottomUp(bp)
	}
	hooks.OnPassComplete("bottom-up", len(builds), time.Since(start))

	s.stage = stageTopDown
	topDown := time.Now()
	for _, b := range s.tree.TopDownBuilds() {
		bp := s.builds[b]
		bp.narrowFromAbove()
		for _, p := range bp.open() {
			if p.purpose != nil && p.purpose.Name == label.PurposeDevel {
				p.addSolver(s.strategies.apiSibling())
			}
		}
		if !bp.isFinal() {
			s.solveTopDown(bp)
		}
		if bp.isFinal() {
			s.postProcess(bp)
		} else {
			for _, p := range bp.children {
				if !p.isFinal() {
					p.propagateSolvers()
				}
			}
		}
	}

	hooks.OnPassComplete("top-down", len(builds), time.Since(topDown))

	s.reportUnsolved()
	return s.assemble(time.Since(start))
}

func (s *Solver) solveBottomUp(bp *buildPlacement) {
	if bp.isFinal() {
		return
	}
	bp.logf("%s: %d/%d solved", bp, len(bp.solved()), len(bp.children))
	for _, h := range heuristics {
		if h.trySolve(s, bp) {
			bp.logf("%s: %s succeeded", bp, h.name)
			observability.Solver().OnHeuristic(h.name, bp.build.Name())
			break
		}
	}
	if bp.isFinal() {
		bp.logf("%s: completely solved", bp)
	}
}

func (s *Solver) solveTopDown(bp *buildPlacement) {
	if bp.solveTrivialCases() {
		return
	}
	var strategies []strategy
	for _, p := range bp.open() {
		for _, st := range p.solvers {
			if !slices.Contains(strategies, st) {
				strategies = append(strategies, st)
			}
		}
	}
	for _, st := range strategies {
		bp.logf("%s: trying %s", bp, st)
		if st.trySolve(bp) && bp.isFinal() {
			bp.logf("%s: solved using %s", bp, st)
			observability.Solver().OnHeuristic(st.String(), bp.build.Name())
			return
		}
	}
}

// componentLabel returns the component of a build: the one it is
// constrained to, or the one all its solved members agree on.
func (bp *buildPlacement) componentLabel() *label.Label {
	if bp.component != nil {
		return bp.component
	}
	if c := bp.build.ComponentConstraint(); c != nil {
		return c
	}
	var found *label.Label
	for _, p := range bp.solved() {
		c := p.label.SourceProject
		if c == nil {
			continue
		}
		if found != nil && found != c {
			return nil
		}
		found = c
	}
	return found
}

// postProcess infers component and build config of a final build, reports
// builds split across components, and hands a source hint to every package
// the build's sources require.
func (s *Solver) postProcess(bp *buildPlacement) {
	if bp.postProcessed {
		return
	}
	bp.postProcessed = true
	b := bp.build
	if len(b.Sources()) != 1 {
		s.logger.Debug("unusual number of sources", "build", b, "sources", len(b.Sources()))
	}

	var components []string
	var evidence []string
	for _, p := range bp.solved() {
		name := p.label.ComponentName()
		if p.label.SourceProject == nil {
			continue
		}
		if !slices.Contains(components, name) {
			components = append(components, name)
		}
		evidence = append(evidence, fmt.Sprintf("%s is placed in %s (component %s)", p, p.label, name))
	}
	if len(components) > 1 {
		slices.Sort(components)
		s.logger.Warn("build split across components", "build", b, "components", strings.Join(components, " "))
		s.addConflict(b.Name(), components, evidence)
	}

	var cfg, component *label.Label
	if bp.solvingBaseLabel != nil {
		cfg = bp.solvingBaseLabel.BuildConfig
	} else if base, ok := b.CommonBaseLabel(); ok {
		cfg = base.BuildConfig
	} else {
		var cfgs []*label.Label
		for _, p := range bp.solved() {
			if c := p.label.BuildConfig; c != nil && !slices.Contains(cfgs, c) {
				cfgs = append(cfgs, c)
			}
		}
		if len(cfgs) == 1 {
			cfg = cfgs[0]
		}
	}
	if cfg != nil {
		component = cfg.SourceProject
	} else if len(components) == 1 {
		component = bp.componentLabel()
	}
	if component == nil {
		s.logger.Warn("unable to determine unique component", "build", b)
		return
	}
	if !b.SetComponentConstraint(component) {
		existing := b.ComponentConstraint()
		names := []string{component.Name, existing.Name}
		slices.Sort(names)
		s.addConflict(b.Name(), names, []string{
			fmt.Sprintf("%s is constrained to component %s, but its packages were placed in %s", b, existing, component),
		})
		component = existing
	}
	bp.component = component
	bp.buildConfig = cfg
	if bp.trace {
		s.logger.Info("placed build", "build", b, "component", component, "buildconfig", cfg, "labels", b.Labels())
	}
	if cfg == nil {
		s.logger.Warn("unable to determine unique build config", "build", b)
		return
	}

	hints := s.strategies.sourceHints(cfg)
	for _, src := range b.Sources() {
		n := s.tree.Node(src)
		if n == nil {
			continue
		}
		for _, lower := range n.LowerNeighbors() {
			if p := s.placements[lower]; p != nil {
				p.addSolver(hints)
			}
		}
	}
}

func (s *Solver) addConflict(build string, components, evidence []string) {
	if slices.ContainsFunc(s.conflicts, func(c result.ComponentConflict) bool { return c.Build == build }) {
		return
	}
	s.conflicts = append(s.conflicts, result.ComponentConflict{Build: build, Components: components, Evidence: evidence})
}

func (s *Solver) reportUnsolved() {
	var solvedBuilds, solvedPackages, total int
	for _, b := range s.tree.Builds() {
		bp := s.builds[b]
		total += b.Len()
		if bp.isSolved() {
			solvedBuilds++
			solvedPackages += b.Len()
			continue
		}
		for _, pkg := range b.Packages() {
			p := bp.byPackage[pkg]
			switch {
			case p == nil:
			case p.isSolved():
				solvedPackages++
			case p.failed:
				s.logger.Debug("unsatisfiable", "package", pkg, "build", b, "reason", p.failure)
			default:
				s.logger.Debug("unresolved", "package", pkg, "build", b, "candidates", p.candidates)
			}
		}
	}
	s.logger.Info("solved builds", "solved", solvedBuilds, "total", len(s.tree.Builds()))
	s.logger.Info("solved packages", "solved", solvedPackages, "total", total)
}

// assemble records every decision on the tree and in the result.
func (s *Solver) assemble(elapsed time.Duration) (*result.Result, error) {
	res := result.New(s.scheme, s.order)
	if err := s.recordConflicts(res); err != nil {
		return nil, err
	}

	for _, n := range s.tree.BottomUp() {
		if n.IsSource() {
			continue
		}
		p := s.placements[n]
		if p == nil {
			if err := s.assembleOrphan(res, n); err != nil {
				return nil, err
			}
			continue
		}
		if !p.isSolved() {
			for _, pkg := range n.Packages() {
				if err := res.AddUnresolved(s.unresolved(p, pkg.ID(), n)); err != nil {
					return nil, errors.Wrap(errors.ErrCodeInvariant, err, "reporting %s", pkg)
				}
			}
			continue
		}
		if err := n.Decide(p.label); err != nil {
			return nil, err
		}
		for _, pkg := range n.Packages() {
			reason := p.reason
			if pkg.Label == p.label && pkg.LabelReason != "" {
				reason = pkg.LabelReason
			}
			if err := res.LabelPackage(pkg, p.label, reason); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvariant, err, "labeling %s", pkg)
			}
		}
	}

	for _, b := range s.tree.Builds() {
		bp := s.builds[b]
		if err := res.LabelBuild(b.Name(), bp.component, bp.buildConfig, b.Packages(), b.Sources()); err != nil {
			return nil, err
		}
	}
	if err := res.Finalize(elapsed); err != nil {
		return nil, err
	}
	return res, nil
}

// recordConflicts copies the cycle and component conflicts found by the tree
// and the solver into res.
func (s *Solver) recordConflicts(res *result.Result) error {
	for _, c := range s.tree.CycleConflicts() {
		if err := res.AddCycleConflict(c); err != nil {
			return errors.Wrap(errors.ErrCodeInvariant, err, "recording cycle conflict %s", c.Cycle)
		}
	}
	for _, c := range slices.Concat(s.tree.Conflicts(), s.conflicts) {
		if err := res.AddConflict(c); err != nil {
			return errors.Wrap(errors.ErrCodeInvariant, err, "recording conflict of build %s", c.Build)
		}
	}
	return nil
}

// assembleOrphan handles nodes outside of any build. Pre-assigned ones keep
// their label, the others are reported.
func (s *Solver) assembleOrphan(res *result.Result, n *stree.Node) error {
	if l := n.Solution(); l != nil {
		for _, pkg := range n.Packages() {
			if err := res.LabelPackage(pkg, l, n.LabelReason()); err != nil {
				return errors.Wrap(errors.ErrCodeInvariant, err, "labeling %s", pkg)
			}
		}
		return nil
	}
	for _, pkg := range n.Packages() {
		err := res.AddUnresolved(result.Unresolved{
			Package:     pkg.ID(),
			Kind:        result.Ambiguous,
			Reason:      "not part of any build",
			Candidates:  namesOf(n.Candidates()),
			Components:  n.CandidateComponents(),
			Suggestions: namesOf(n.Suggestions()),
		})
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvariant, err, "reporting %s", pkg)
		}
	}
	return nil
}

func (s *Solver) unresolved(p *placement, pkg string, n *stree.Node) result.Unresolved {
	b := n.Build()
	u := result.Unresolved{
		Package:     pkg,
		Kind:        result.Ambiguous,
		Candidates:  namesOf(p.candidates),
		Components:  stree.Components(p.candidates),
		Suggestions: namesOf(s.suggest(p, b)),
	}
	if b != nil {
		u.Build = b.Name()
	}
	switch {
	case n.LowerBoundConflict():
		u.Kind = result.Unsatisfiable
		u.Reason = "no label provides everything it requires"
	case n.UpperBoundConflict():
		u.Kind = result.Unsatisfiable
		u.Reason = "no label is available to everything requiring it"
	case p.failed:
		u.Kind = result.Unsatisfiable
		u.Reason = p.failure
	case p.candidates != nil && p.candidates.IsEmpty():
		u.Kind = result.Unsatisfiable
		u.Reason = "no candidates left"
	case p.candidates == nil:
		u.Reason = "unconstrained; please provide a hint"
	case p.deferred:
		u.Reason = "no component-wide label for " + p.autoLabel.Name
	default:
		u.Reason = fmt.Sprintf("%d candidates left", p.candidates.Len())
	}
	return u
}

// suggest proposes labels for an unresolved placement: the label its build
// settled on when the placement can derive from it, the reduced candidates
// otherwise.
func (s *Solver) suggest(p *placement, b *stree.Build) *stree.LabelSet {
	if b != nil {
		if l, ok := b.PreferredLabel(); ok {
			if choice := p.deriveChoice(l); choice != nil {
				return s.scheme.NewSet(choice)
			}
		}
	}
	return s.tree.Suggest(p.candidates)
}

func namesOf(s *stree.LabelSet) []string {
	if s == nil {
		return nil
	}
	return s.Names()
}

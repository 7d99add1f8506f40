// Package solver places every package of a finalized solving tree in exactly
// one label.
//
// # Overview
//
// The solver works build by build. Packages built from the same source
// usually belong to the same component and often share a base label, so the
// strategies look at all binaries of a build together:
//
//	s, err := solver.New(tree, solver.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	if err := s.DefinePreference("@Core", "@CoreTools"); err != nil {
//	    return err
//	}
//	res, err := s.Solve()
//
// # Bottom-up Pass
//
// Builds are visited from the bottom of the dependency order. Every package
// gets a placement: pre-assigned packages a definitive one, all others a
// tentative one that starts with the candidates of its node. The build's
// constraints narrow them (its component, its base label, and the rule that
// component-wide labels are reserved for packages carrying the matching auto
// label). Then the heuristics are tried in order until one succeeds:
//
//  1. trivial: a single candidate is taken, none marks the package failed
//  2. preferred auto label: preferred labels of a shared auto label
//  3. common base label: a base label every sibling can live under
//  4. common feature label: a feature the build's requirements extend
//  5. compatible base label: the base labels of already placed siblings
//  6. favorite sibling: libfoo-devel next to libfoo1
//  7. sibling dependency: never succeeds
//
// Packages whose auto label has disposition component_wide wait for the
// second pass, since their label depends on the component of the build.
//
// # Top-down Pass
//
// Builds are then visited from the top. Labels chosen above narrow the
// candidates below. Open packages are handed to the strategies attached to
// them: the build environment of a component that needs them, the
// component-wide label of their purpose, or the API label of a sibling
// library. Once a build is final its component and build config are inferred;
// its source packages pass a hint to everything they require. Builds that
// stay open pass their strategies to the packages they require.
//
// # Result
//
// Every decision is recorded on the tree and in a [result.Result]. Packages
// left open are reported as unresolved, builds split across components as
// conflicts.
package solver

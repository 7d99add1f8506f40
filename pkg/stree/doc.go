// Package stree converts the package dependency graph into a solving tree:
// an acyclic order of package nodes, each carrying the cone of labels it may
// be placed in.
//
// # Overview
//
// A package can only be placed in a label that lies above the labels of
// everything it requires, and below the labels of everything requiring it.
// Pre-assigned labels anchor these bounds. The tree propagates them through
// the dependency graph so that the solver only has to choose among the
// remaining candidates.
//
// # Building a Tree
//
// [Builder.Build] walks the requirements of a set of packages, adds the
// builds they belong to, and finalizes the tree:
//
//	order, _ := scheme.Order(label.KindBinary)
//	tree, err := stree.NewBuilder(scheme, order, stree.Options{}).Build(pkgs)
//
// Packages labeled with disposition ignore are left out. Requiring one of
// them from a package that takes part in classification is a configuration
// error.
//
// # Finalizing
//
// [Tree.Finalize] runs these steps:
//
//  1. Dependency cycles are collapsed into single nodes until the node order
//     is acyclic. Members of a cycle disagreeing on their pre-assigned label
//     are reported in [Tree.CycleConflicts]; one label is adopted.
//  2. Multibuild flavors ("foo:python") are tied to the component of their
//     base build unless they may split.
//  3. Pre-assigned labels are validated: everything required below a solved
//     node must lie in the downward closure of its label. A violation aborts
//     with a configuration error whose evidence names the offending nodes.
//     Builds whose pre-assigned labels span several components are reported
//     in [Tree.Conflicts].
//  4. Lower cones are computed bottom-up and upper cones top-down.
//  5. The packages of every build are sorted in dependency order.
//
// # Cones
//
// A nil cone is unconstrained. [Node.Candidates] is the intersection of both
// cones, memoized on first use and only ever narrowed afterwards.
package stree

// Package result holds the outcome of a classification run.
//
// A [Result] is filled in by the solver: every placed package is recorded
// with its label and the reason for the decision, every build with the
// component and build config it was assigned to. Packages that could not be
// placed are listed as [Unresolved], either [Unsatisfiable] (no candidate
// left) or [Ambiguous] (several candidates left). Builds split across
// components and dependency cycles with disagreeing labels are reported as
// conflicts. None of these abort a run.
//
// Once [Result.Finalize] has been called the result is read-only. Writers,
// caches, stores and the query API work on the [Report] snapshot, which
// refers to labels, packages and builds by name.
package result

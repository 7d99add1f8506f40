// Package poset provides finite partial orders with precomputed closures.
//
// # Overview
//
// The label hierarchy and the package dependency graph are both partial
// orders: "@Core <= @Python" reads "packages labeled @Python may require
// packages labeled @Core". Placement decisions are lattice computations over
// these orders: narrowing candidate sets to closures, picking the unique
// maximum or minimum, or computing a least upper bound.
//
// # Domains and Sets
//
// A [Domain] is an arena that gives each key a dense index. A [Set] is a bit
// vector over the indexes of one domain, so set algebra is word-parallel and
// a set never holds references to its members. Several orders may share a
// domain; their closures can then be combined directly.
//
//	d := poset.NewDomain[string]("labels")
//	s := d.NewSet("@Core", "@Python")
//
// The helper [Constrain] treats a nil set as "unconstrained", which is how
// candidate cones start out before any bound is known.
//
// # Lifecycle
//
// A [PartialOrder] has two states. While adding, [PartialOrder.Add] records
// elements and their direct lower neighbors. [PartialOrder.Finalize] ranks
// all elements and computes reflexive downward and upward closures; from then
// on the order is immutable and all queries are answered from the closures:
//
//	o := poset.New(d, "runtime")
//	_ = o.Add("@Core")
//	_ = o.Add("@Python", "@Core")
//	if err := o.Finalize(); err != nil {
//	    // errors.Is(err, poset.ErrCycle)
//	}
//	o.IsBelow("@Core", "@Python") // true
//
// Ranking uses an explicit stack, so arbitrarily deep orders are fine. A
// cycle is reported as a [*CycleError] carrying the offending chain.
//
// # Cycles
//
// Before finalizing, [PartialOrder.CollapsibleCycles] reports groups of
// mutually reachable elements. Callers that own the underlying graph merge
// each group into one element, build a fresh order and repeat until no group
// is reported.
//
// # Extrema
//
// [PartialOrder.Maxima] and [PartialOrder.Minima] run in time linear in the
// size of the subset thanks to the closures. [PartialOrder.MaximumOf],
// [PartialOrder.MinimumOf], [PartialOrder.Supremum] and
// [PartialOrder.Infimum] return a boolean that is false when the extremum does
// not exist or is not unique.
package poset

package poset

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// randomOrder builds an acyclic order over 0..n-1 where every edge points
// from a higher to a lower integer.
func randomOrder(seed int64, n int) *PartialOrder[int] {
	r := rand.New(rand.NewSource(seed))
	o := New(NewDomain[int]("ints"), "random")
	for i := 0; i < n; i++ {
		var below []int
		for j := 0; j < i; j++ {
			if r.Intn(4) == 0 {
				below = append(below, j)
			}
		}
		_ = o.Add(i, below...)
	}
	if err := o.Finalize(); err != nil {
		panic(err)
	}
	return o
}

func randomSubset(o *PartialOrder[int], seed int64) *Set[int] {
	r := rand.New(rand.NewSource(seed))
	s := o.Domain().NewSet()
	for _, k := range o.Domain().Keys() {
		if r.Intn(3) == 0 {
			s.Add(k)
		}
	}
	return s
}

func TestClosureProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("closures are reflexive", prop.ForAll(
		func(seed int64, n int) bool {
			o := randomOrder(seed, n)
			for _, k := range o.Domain().Keys() {
				if !o.DownwardClosure(k).Contains(k) || !o.UpwardClosure(k).Contains(k) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.Property("closures are transitive", prop.ForAll(
		func(seed int64, n int) bool {
			o := randomOrder(seed, n)
			for _, z := range o.Domain().Keys() {
				down := o.DownwardClosure(z)
				for y := range down.All() {
					if !o.DownwardClosure(y).IsSubsetOf(down) {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.Property("down and up closures are dual", prop.ForAll(
		func(seed int64, n int) bool {
			o := randomOrder(seed, n)
			for _, x := range o.Domain().Keys() {
				for y := range o.DownwardClosure(x).All() {
					if !o.UpwardClosure(y).Contains(x) {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

func TestExtremaProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("maxima is an antichain covering the subset", prop.ForAll(
		func(seed int64, n int) bool {
			o := randomOrder(seed, n)
			s := randomSubset(o, seed+1)
			maxima := o.Maxima(s)
			if !maxima.IsSubsetOf(s) {
				return false
			}
			for x := range s.All() {
				if !o.UpwardClosure(x).Intersects(maxima) {
					return false
				}
			}
			for a := range maxima.All() {
				for b := range maxima.All() {
					if a != b && o.IsBelow(a, b) {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.Property("minima is an antichain covering the subset", prop.ForAll(
		func(seed int64, n int) bool {
			o := randomOrder(seed, n)
			s := randomSubset(o, seed+1)
			minima := o.Minima(s)
			if !minima.IsSubsetOf(s) {
				return false
			}
			for x := range s.All() {
				if !o.DownwardClosure(x).Intersects(minima) {
					return false
				}
			}
			for a := range minima.All() {
				for b := range minima.All() {
					if a != b && o.IsBelow(a, b) {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.Property("supremum is the least upper bound", prop.ForAll(
		func(seed int64, n int) bool {
			o := randomOrder(seed, n)
			s := randomSubset(o, seed+2)
			sup, ok := o.Supremum(s)
			if !ok {
				return true
			}
			if !o.SubsetIsBelow(s, sup) {
				return false
			}
			for _, k := range o.Domain().Keys() {
				if o.SubsetIsBelow(s, k) && !o.IsBelow(sup, k) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 40),
	))

	properties.TestingRun(t)
}

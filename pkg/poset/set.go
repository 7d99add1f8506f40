package poset

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Set is a set of keys from one [Domain], stored as a bit vector over the
// domain's indexes. Binary operations require both operands to share a
// domain and panic otherwise.
//
// Set is a mutable value; methods ending in "With" modify the receiver, all
// other combinators return a fresh set.
type Set[K comparable] struct {
	domain *Domain[K]
	bits   *bitset.BitSet
}

// NewSet creates a set over d containing keys. Keys not yet registered with d
// are registered.
func (d *Domain[K]) NewSet(keys ...K) *Set[K] {
	s := &Set[K]{domain: d, bits: bitset.New(uint(len(d.keys)))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Domain returns the domain the set draws its keys from.
func (s *Set[K]) Domain() *Domain[K] { return s.domain }

// Add inserts k, registering it with the domain if necessary.
func (s *Set[K]) Add(k K) {
	s.bits.Set(s.domain.Register(k))
}

// Remove deletes k from the set. Unknown keys are ignored.
func (s *Set[K]) Remove(k K) {
	if i, ok := s.domain.index[k]; ok {
		s.bits.Clear(i)
	}
}

// Contains reports whether k is a member.
func (s *Set[K]) Contains(k K) bool {
	i, ok := s.domain.index[k]
	return ok && s.bits.Test(i)
}

// Len returns the number of members.
func (s *Set[K]) Len() int { return int(s.bits.Count()) }

// IsEmpty reports whether the set has no members.
func (s *Set[K]) IsEmpty() bool { return s.bits.None() }

// Clone returns an independent copy.
func (s *Set[K]) Clone() *Set[K] {
	return &Set[K]{domain: s.domain, bits: s.bits.Clone()}
}

// All iterates the members in index order.
func (s *Set[K]) All() iter.Seq[K] {
	return func(yield func(K) bool) {
		for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
			if !yield(s.domain.keys[i]) {
				return
			}
		}
	}
}

// Keys returns the members in index order.
func (s *Set[K]) Keys() []K {
	keys := make([]K, 0, s.Len())
	for k := range s.All() {
		keys = append(keys, k)
	}
	return keys
}

// First returns the member with the lowest index.
func (s *Set[K]) First() (K, bool) {
	if i, ok := s.bits.NextSet(0); ok {
		return s.domain.keys[i], true
	}
	var zero K
	return zero, false
}

// Union returns s ∪ o.
func (s *Set[K]) Union(o *Set[K]) *Set[K] {
	s.check(o)
	return &Set[K]{domain: s.domain, bits: s.bits.Union(o.bits)}
}

// Intersect returns s ∩ o.
func (s *Set[K]) Intersect(o *Set[K]) *Set[K] {
	s.check(o)
	return &Set[K]{domain: s.domain, bits: s.bits.Intersection(o.bits)}
}

// Difference returns s \ o.
func (s *Set[K]) Difference(o *Set[K]) *Set[K] {
	s.check(o)
	return &Set[K]{domain: s.domain, bits: s.bits.Difference(o.bits)}
}

// UnionWith adds all members of o to s.
func (s *Set[K]) UnionWith(o *Set[K]) {
	s.check(o)
	s.bits.InPlaceUnion(o.bits)
}

// IntersectWith removes all members of s that are not in o.
func (s *Set[K]) IntersectWith(o *Set[K]) {
	s.check(o)
	s.bits.InPlaceIntersection(o.bits)
}

// DifferenceWith removes all members of o from s.
func (s *Set[K]) DifferenceWith(o *Set[K]) {
	s.check(o)
	s.bits.InPlaceDifference(o.bits)
}

// IsSubsetOf reports whether every member of s is in o.
func (s *Set[K]) IsSubsetOf(o *Set[K]) bool {
	s.check(o)
	return o.bits.IsSuperSet(s.bits)
}

// Intersects reports whether s and o share at least one member.
func (s *Set[K]) Intersects(o *Set[K]) bool {
	s.check(o)
	return s.bits.IntersectionCardinality(o.bits) > 0
}

// Equal reports whether s and o have the same members. Sets created at
// different domain sizes compare equal when their members agree.
func (s *Set[K]) Equal(o *Set[K]) bool {
	s.check(o)
	return s.bits.IsSuperSet(o.bits) && o.bits.IsSuperSet(s.bits)
}

// Filter returns the members for which keep returns true.
func (s *Set[K]) Filter(keep func(K) bool) *Set[K] {
	out := s.domain.NewSet()
	for i, ok := s.bits.NextSet(0); ok; i, ok = s.bits.NextSet(i + 1) {
		if keep(s.domain.keys[i]) {
			out.bits.Set(i)
		}
	}
	return out
}

// Names returns the sorted string forms of the members.
func (s *Set[K]) Names() []string {
	names := make([]string, 0, s.Len())
	for k := range s.All() {
		names = append(names, fmt.Sprint(k))
	}
	slices.Sort(names)
	return names
}

// String renders the set as a sorted, space separated list.
func (s *Set[K]) String() string {
	return "{" + strings.Join(s.Names(), " ") + "}"
}

func (s *Set[K]) check(o *Set[K]) {
	if s.domain != o.domain {
		panic(fmt.Sprintf("poset: set operation across domains %q and %q", s.domain.name, o.domain.name))
	}
}

// Constrain intersects two constraint sets where nil means unconstrained.
// The result is nil only if both inputs are nil; it never aliases a or b.
func Constrain[K comparable](a, b *Set[K]) *Set[K] {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	}
	return a.Intersect(b)
}

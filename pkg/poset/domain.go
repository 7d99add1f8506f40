package poset

import "fmt"

// Domain is an arena that assigns dense indexes to keys. Sets created from a
// domain are bit vectors over these indexes, so membership tests, unions and
// intersections never hash the keys themselves.
//
// A Domain only grows; an index, once assigned, is stable for the lifetime of
// the domain. The zero value is not usable - use [NewDomain].
type Domain[K comparable] struct {
	name  string
	keys  []K
	index map[K]uint
}

// NewDomain creates an empty domain. The name is only used in diagnostics.
func NewDomain[K comparable](name string) *Domain[K] {
	return &Domain[K]{
		name:  name,
		index: make(map[K]uint),
	}
}

// Name returns the diagnostic name of the domain.
func (d *Domain[K]) Name() string { return d.name }

// Len returns the number of keys registered so far.
func (d *Domain[K]) Len() int { return len(d.keys) }

// Register returns the index of k, assigning the next free index if k has not
// been seen before.
func (d *Domain[K]) Register(k K) uint {
	if i, ok := d.index[k]; ok {
		return i
	}
	i := uint(len(d.keys))
	d.keys = append(d.keys, k)
	d.index[k] = i
	return i
}

// Index returns the index of k and whether k is registered.
func (d *Domain[K]) Index(k K) (uint, bool) {
	i, ok := d.index[k]
	return i, ok
}

// Key returns the key registered at index i. It panics if i is out of range.
func (d *Domain[K]) Key(i uint) K {
	if int(i) >= len(d.keys) {
		panic(fmt.Sprintf("poset: index %d out of range for domain %q", i, d.name))
	}
	return d.keys[i]
}

// Keys returns all registered keys in index order.
func (d *Domain[K]) Keys() []K {
	return append([]K(nil), d.keys...)
}

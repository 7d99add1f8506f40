package poset

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrFinalized is returned by [PartialOrder.Add] and [PartialOrder.Finalize]
	// once the order has been finalized. A finalized order is immutable.
	ErrFinalized = errors.New("partial order already finalized")

	// ErrDuplicateKey is returned by [PartialOrder.Add] when the key has
	// already been added. Keys that were only mentioned as lower neighbors of
	// another element do not count as added.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrCycle is matched by every [CycleError]. A partial order cannot be
	// finalized while its relation contains a cycle.
	ErrCycle = errors.New("partial order contains a cycle")
)

// CycleError reports a cycle found while ranking the elements of an order.
// Cycle lists the chain of elements in descending order, starting and ending
// with the same key.
type CycleError[K comparable] struct {
	Order string
	Cycle []K
}

// Error implements the error interface.
func (e *CycleError[K]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, k := range e.Cycle {
		parts[i] = fmt.Sprint(k)
	}
	return fmt.Sprintf("%s: cycle in %s: %s", ErrCycle, e.Order, strings.Join(parts, " -> "))
}

// Is makes errors.Is(err, ErrCycle) succeed.
func (e *CycleError[K]) Is(target error) bool { return target == ErrCycle }

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

type member[K comparable] struct {
	key     K
	name    string
	below   []*member[K]
	above   []*member[K]
	defined bool
	hidden  bool

	rank  int
	state visitState
	down  *Set[K]
	up    *Set[K]
}

// Option configures a [PartialOrder].
type Option func(*options)

type options struct {
	allowUnknown bool
}

// AllowUnknownKeys makes queries about keys that are not part of the order
// behave as if the key had no relations, instead of panicking.
func AllowUnknownKeys() Option {
	return func(o *options) { o.allowUnknown = true }
}

// PartialOrder is a finite partial order over keys of one [Domain].
//
// Elements are added together with their direct lower neighbors; the order is
// then finalized, which ranks every element and computes its downward and
// upward closures. Closures are reflexive. All queries require a finalized
// order and panic otherwise.
//
// PartialOrder is not safe for concurrent mutation. A finalized order may be
// queried concurrently.
type PartialOrder[K comparable] struct {
	name    string
	domain  *Domain[K]
	opts    options
	members []*member[K]
	byKey   map[K]*member[K]
	sorted  []*member[K]
	hidden  *Set[K]
	final   bool
}

// New creates an empty partial order over keys of d.
func New[K comparable](d *Domain[K], name string, opts ...Option) *PartialOrder[K] {
	o := &PartialOrder[K]{
		name:   name,
		domain: d,
		byKey:  make(map[K]*member[K]),
	}
	for _, opt := range opts {
		opt(&o.opts)
	}
	return o
}

// Name returns the diagnostic name of the order.
func (o *PartialOrder[K]) Name() string { return o.name }

// Domain returns the key domain of the order.
func (o *PartialOrder[K]) Domain() *Domain[K] { return o.domain }

// Finalized reports whether [PartialOrder.Finalize] succeeded.
func (o *PartialOrder[K]) Finalized() bool { return o.final }

// Len returns the number of elements, including keys that were only named as
// lower neighbors.
func (o *PartialOrder[K]) Len() int { return len(o.members) }

func (o *PartialOrder[K]) memberFor(k K) *member[K] {
	if m, ok := o.byKey[k]; ok {
		return m
	}
	m := &member[K]{key: k, name: fmt.Sprint(k), rank: -1}
	o.domain.Register(k)
	o.byKey[k] = m
	o.members = append(o.members, m)
	return m
}

// Add inserts key with the given direct lower neighbors. Lower neighbors that
// are not yet part of the order are created implicitly.
func (o *PartialOrder[K]) Add(key K, below ...K) error {
	if o.final {
		return ErrFinalized
	}
	m := o.memberFor(key)
	if m.defined {
		return fmt.Errorf("%w: %v in %s", ErrDuplicateKey, key, o.name)
	}
	m.defined = true
	for _, b := range below {
		lower := o.memberFor(b)
		if slices.Contains(m.below, lower) {
			continue
		}
		m.below = append(m.below, lower)
		lower.above = append(lower.above, m)
	}
	return nil
}

// Hide excludes keys from traversals and closure results. Hidden elements
// still take part in the relation itself.
func (o *PartialOrder[K]) Hide(keys *Set[K]) {
	if o.hidden == nil {
		o.hidden = o.domain.NewSet()
	}
	o.hidden.UnionWith(keys)
	for k := range keys.All() {
		if m, ok := o.byKey[k]; ok {
			m.hidden = true
		}
	}
}

// Finalize ranks all elements and computes their closures. It fails with a
// [*CycleError] if the relation is not acyclic; in that case the order stays
// mutable.
func (o *PartialOrder[K]) Finalize() error {
	if o.final {
		return ErrFinalized
	}
	if err := o.computeRanks(); err != nil {
		return err
	}

	o.sorted = slices.Clone(o.members)
	slices.SortStableFunc(o.sorted, compareMembers)

	for _, m := range o.sorted {
		m.down = o.domain.NewSet(m.key)
		for _, lower := range m.below {
			m.down.UnionWith(lower.down)
		}
	}
	for i := len(o.sorted) - 1; i >= 0; i-- {
		m := o.sorted[i]
		m.up = o.domain.NewSet(m.key)
		for _, upper := range m.above {
			m.up.UnionWith(upper.up)
		}
	}

	o.final = true
	return nil
}

func compareMembers[K comparable](a, b *member[K]) int {
	return cmp.Or(cmp.Compare(a.rank, b.rank), strings.Compare(a.name, b.name))
}

type frame[K comparable] struct {
	m    *member[K]
	next int
}

// computeRanks assigns rank 0 to minimal elements and 1 + the maximum rank of
// the lower neighbors to all others. The walk uses an explicit stack so that
// deep dependency chains cannot exhaust the goroutine stack.
func (o *PartialOrder[K]) computeRanks() error {
	for _, m := range o.members {
		m.state = unvisited
		m.rank = -1
	}
	for _, root := range o.members {
		if root.state == visited {
			continue
		}
		root.state = visiting
		stack := []frame[K]{{m: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.m.below) {
				lower := top.m.below[top.next]
				top.next++
				switch lower.state {
				case visited:
				case visiting:
					return o.cycleError(stack, lower)
				default:
					lower.state = visiting
					stack = append(stack, frame[K]{m: lower})
				}
				continue
			}
			rank := 0
			for _, lower := range top.m.below {
				rank = max(rank, lower.rank+1)
			}
			top.m.rank = rank
			top.m.state = visited
			stack = stack[:len(stack)-1]
		}
	}
	return nil
}

func (o *PartialOrder[K]) cycleError(stack []frame[K], closing *member[K]) error {
	start := slices.IndexFunc(stack, func(f frame[K]) bool { return f.m == closing })
	cycle := make([]K, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		cycle = append(cycle, f.m.key)
	}
	cycle = append(cycle, closing.key)
	return &CycleError[K]{Order: o.name, Cycle: cycle}
}

func (o *PartialOrder[K]) mustBeFinal() {
	if !o.final {
		panic(fmt.Sprintf("poset: %s queried before Finalize", o.name))
	}
}

func (o *PartialOrder[K]) lookup(k K) *member[K] {
	m, ok := o.byKey[k]
	if !ok && !o.opts.allowUnknown {
		panic(fmt.Sprintf("poset: %s has no element %v", o.name, k))
	}
	return m
}

func (o *PartialOrder[K]) visible(s *Set[K]) *Set[K] {
	c := s.Clone()
	if o.hidden != nil {
		c.DifferenceWith(o.hidden)
	}
	return c
}

// Contains reports whether k is an element of the order.
func (o *PartialOrder[K]) Contains(k K) bool {
	_, ok := o.byKey[k]
	return ok
}

// AllKeys returns the set of all elements.
func (o *PartialOrder[K]) AllKeys() *Set[K] {
	s := o.domain.NewSet()
	for _, m := range o.members {
		s.Add(m.key)
	}
	return s
}

// Rank returns the rank of k, or -1 if k is unknown.
func (o *PartialOrder[K]) Rank(k K) int {
	o.mustBeFinal()
	if m := o.lookup(k); m != nil {
		return m.rank
	}
	return -1
}

// LowerNeighbors returns the direct lower neighbors of k.
func (o *PartialOrder[K]) LowerNeighbors(k K) *Set[K] {
	s := o.domain.NewSet()
	if m := o.lookup(k); m != nil {
		for _, lower := range m.below {
			s.Add(lower.key)
		}
	}
	return s
}

// UpperNeighbors returns the direct upper neighbors of k.
func (o *PartialOrder[K]) UpperNeighbors(k K) *Set[K] {
	s := o.domain.NewSet()
	if m := o.lookup(k); m != nil {
		for _, upper := range m.above {
			s.Add(upper.key)
		}
	}
	return s
}

// BottomUp returns the visible elements of subset (or of the whole order if
// subset is nil) sorted by rank, then name. Every element appears after all
// elements below it.
func (o *PartialOrder[K]) BottomUp(subset *Set[K]) []K {
	o.mustBeFinal()
	var keys []K
	if subset == nil {
		keys = make([]K, 0, len(o.sorted))
		for _, m := range o.sorted {
			if !m.hidden {
				keys = append(keys, m.key)
			}
		}
		return keys
	}
	members := make([]*member[K], 0, subset.Len())
	for k := range o.visible(subset).All() {
		if m := o.lookup(k); m != nil {
			members = append(members, m)
		}
	}
	slices.SortStableFunc(members, compareMembers)
	for _, m := range members {
		keys = append(keys, m.key)
	}
	return keys
}

// TopDown is [PartialOrder.BottomUp] in reverse.
func (o *PartialOrder[K]) TopDown(subset *Set[K]) []K {
	keys := o.BottomUp(subset)
	slices.Reverse(keys)
	return keys
}

// DownwardClosure returns {x | x <= k}.
func (o *PartialOrder[K]) DownwardClosure(k K) *Set[K] {
	o.mustBeFinal()
	if m := o.lookup(k); m != nil {
		return o.visible(m.down)
	}
	return o.domain.NewSet()
}

// UpwardClosure returns {x | x >= k}.
func (o *PartialOrder[K]) UpwardClosure(k K) *Set[K] {
	o.mustBeFinal()
	if m := o.lookup(k); m != nil {
		return o.visible(m.up)
	}
	return o.domain.NewSet()
}

// DownwardClosureForSet returns the union of the downward closures of all
// members of s.
func (o *PartialOrder[K]) DownwardClosureForSet(s *Set[K]) *Set[K] {
	o.mustBeFinal()
	out := o.domain.NewSet()
	for k := range s.All() {
		if m := o.lookup(k); m != nil {
			out.UnionWith(m.down)
		}
	}
	return o.visible(out)
}

// UpwardClosureForSet returns the union of the upward closures of all members
// of s.
func (o *PartialOrder[K]) UpwardClosureForSet(s *Set[K]) *Set[K] {
	o.mustBeFinal()
	out := o.domain.NewSet()
	for k := range s.All() {
		if m := o.lookup(k); m != nil {
			out.UnionWith(m.up)
		}
	}
	return o.visible(out)
}

// ConvexClosureForSet returns every element that lies between two members of
// s.
func (o *PartialOrder[K]) ConvexClosureForSet(s *Set[K]) *Set[K] {
	return o.DownwardClosureForSet(s).Intersect(o.UpwardClosureForSet(s))
}

// IsBelow reports whether a <= b.
func (o *PartialOrder[K]) IsBelow(a, b K) bool {
	o.mustBeFinal()
	m := o.lookup(b)
	return m != nil && m.down.Contains(a)
}

// IsAbove reports whether a >= b.
func (o *PartialOrder[K]) IsAbove(a, b K) bool {
	o.mustBeFinal()
	m := o.lookup(b)
	return m != nil && m.up.Contains(a)
}

// SubsetIsBelow reports whether every member of s is <= k.
func (o *PartialOrder[K]) SubsetIsBelow(s *Set[K], k K) bool {
	o.mustBeFinal()
	m := o.lookup(k)
	return m != nil && s.IsSubsetOf(m.down)
}

// SubsetIsAbove reports whether every member of s is >= k.
func (o *PartialOrder[K]) SubsetIsAbove(s *Set[K], k K) bool {
	o.mustBeFinal()
	m := o.lookup(k)
	return m != nil && s.IsSubsetOf(m.up)
}

// Maxima returns the members of s that are not strictly below another member
// of s.
func (o *PartialOrder[K]) Maxima(s *Set[K]) *Set[K] {
	o.mustBeFinal()
	below := o.domain.NewSet()
	for k := range s.All() {
		if below.Contains(k) {
			continue
		}
		if m := o.lookup(k); m != nil {
			below.UnionWith(m.down)
			below.Remove(k)
		}
	}
	return s.Difference(below)
}

// Minima returns the members of s that are not strictly above another member
// of s.
func (o *PartialOrder[K]) Minima(s *Set[K]) *Set[K] {
	o.mustBeFinal()
	above := o.domain.NewSet()
	for k := range s.All() {
		if above.Contains(k) {
			continue
		}
		if m := o.lookup(k); m != nil {
			above.UnionWith(m.up)
			above.Remove(k)
		}
	}
	return s.Difference(above)
}

// MaximumOf returns the greatest member of s if there is exactly one maximal
// member.
func (o *PartialOrder[K]) MaximumOf(s *Set[K]) (K, bool) {
	return single(o.Maxima(s))
}

// MinimumOf returns the least member of s if there is exactly one minimal
// member.
func (o *PartialOrder[K]) MinimumOf(s *Set[K]) (K, bool) {
	return single(o.Minima(s))
}

func single[K comparable](s *Set[K]) (K, bool) {
	if s.Len() != 1 {
		var zero K
		return zero, false
	}
	return s.First()
}

// Supremum returns the least upper bound of s, if it exists.
func (o *PartialOrder[K]) Supremum(s *Set[K]) (K, bool) {
	o.mustBeFinal()
	if s.Len() <= 1 {
		return s.First()
	}
	var bounds *Set[K]
	for k := range s.All() {
		bounds = Constrain(bounds, o.UpwardClosure(k))
	}
	return o.MinimumOf(bounds)
}

// Infimum returns the greatest lower bound of s, if it exists.
func (o *PartialOrder[K]) Infimum(s *Set[K]) (K, bool) {
	o.mustBeFinal()
	if s.Len() <= 1 {
		return s.First()
	}
	var bounds *Set[K]
	for k := range s.All() {
		bounds = Constrain(bounds, o.DownwardClosure(k))
	}
	return o.MaximumOf(bounds)
}

// UnboundedElements returns the members of s that have no upper neighbor in
// the order.
func (o *PartialOrder[K]) UnboundedElements(s *Set[K]) *Set[K] {
	out := o.domain.NewSet()
	for k := range s.All() {
		if m := o.lookup(k); m != nil && len(m.above) == 0 {
			out.Add(k)
		}
	}
	return out
}

// FindPath returns a shortest chain src <= ... <= dst of direct neighbor
// steps, or nil if src is not below dst. It is meant for explaining why one
// element requires another.
func (o *PartialOrder[K]) FindPath(src, dst K) []K {
	o.mustBeFinal()
	if src == dst {
		return []K{dst}
	}
	from, to := o.lookup(src), o.lookup(dst)
	if from == nil || to == nil || !to.down.Contains(src) {
		return nil
	}

	prev := map[*member[K]]*member[K]{to: nil}
	queue := []*member[K]{to}
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]
		if m == from {
			break
		}
		for _, lower := range m.below {
			if _, seen := prev[lower]; seen || !lower.down.Contains(src) {
				continue
			}
			prev[lower] = m
			queue = append(queue, lower)
		}
	}

	var path []K
	for m := from; m != nil; m = prev[m] {
		path = append(path, m.key)
	}
	return path
}

// Package sparse implements compact bit sets over a shared, append-only
// universe of elements. All sets created by one Factory use the same element
// numbering, so union, intersection and difference reduce to word-wise bit
// operations, and a per-set skip chain keeps iteration proportional to the
// number of populated blocks rather than the universe size.
package sparse

// Factory creates sets bound to a single shared Universe. Sets from
// different factories must never be mixed: positions are only meaningful
// inside the universe that assigned them.
//
// A Factory and the sets it creates are not safe for concurrent use.
// Confine each factory and its sets to one goroutine.
type Factory[E comparable] struct {
	universe *Universe[E]
}

// NewFactory creates a factory over a fresh universe seeded with elems.
func NewFactory[E comparable](elems ...E) *Factory[E] {
	return &Factory[E]{universe: NewUniverse(elems...)}
}

// EmptySet creates an empty set. Its initial capacity covers all but the
// last block of the universe; sets grow on demand when elements from the
// top block are added.
func (f *Factory[E]) EmptySet() *Set[E] {
	blocks := f.universe.Blocks() - 1
	if blocks < 1 {
		blocks = 1
	}

	return &Set[E]{
		factory: f,
		data:    make([]uint32, blocks),
	}
}

// SetOf creates a set holding the given elements. Elements the universe has
// not seen before are registered first.
func (f *Factory[E]) SetOf(elems ...E) *Set[E] {
	s := f.EmptySet()
	for _, e := range elems {
		s.Add(e)
	}

	return s
}

// Universe returns the universe shared by all sets of this factory.
func (f *Factory[E]) Universe() *Universe[E] {
	return f.universe
}

package sparse

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"iter"
	"math/bits"
	"slices"
	"strings"
)

// SetCardinality classifies how many elements a set holds.
type SetCardinality int

const (
	// CardinalityZero means the set is empty.
	CardinalityZero SetCardinality = iota
	// CardinalityOne means the set holds exactly one element.
	CardinalityOne
	// CardinalityMany means the set holds two or more elements.
	CardinalityMany
)

// Set is a sparse bit set over the universe of the factory that created it.
// Blocks of 32 elements are stored in data; next is the skip chain, where
// next[i] is the index of the nearest populated block after i, or 0 when no
// populated block follows. The chain is allocated lazily on the first
// mutation that needs it.
//
// Add, Remove and Contains register elements the universe has not seen yet,
// growing the universe as a side effect. A Set is not safe for concurrent
// use.
type Set[E comparable] struct {
	factory *Factory[E]
	data    []uint32
	next    []int32
}

// Add inserts element into the set.
func (s *Set[E]) Add(element E) {
	pos := s.factory.universe.Register(element)
	if pos.Block >= len(s.data) {
		s.grow(pos.Block)
	}

	wasEmpty := s.data[pos.Block] == 0
	s.data[pos.Block] |= pos.Mask

	if wasEmpty {
		s.changeNext(pos.Block, s.nextIdx(pos.Block), int32(pos.Block))
	}
}

// Remove deletes element from the set.
func (s *Set[E]) Remove(element E) {
	pos := s.factory.universe.Register(element)
	if pos.Block >= len(s.data) || s.data[pos.Block] == 0 {
		return
	}

	s.data[pos.Block] &^= pos.Mask

	if s.data[pos.Block] == 0 {
		s.changeNext(pos.Block, int32(pos.Block), s.nextIdx(pos.Block))
	}
}

// Contains reports whether element is in the set. An element the universe
// has never seen is registered as a side effect and reported absent.
func (s *Set[E]) Contains(element E) bool {
	pos := s.factory.universe.Register(element)
	return pos.Block < len(s.data) && s.data[pos.Block]&pos.Mask != 0
}

// UnionWith adds every element of other to s. Both sets must come from the
// same factory.
func (s *Set[E]) UnionWith(other *Set[E]) {
	pointer := 0
	for {
		if pointer >= len(s.data) {
			s.grow(len(other.data) - 1)
		}

		wasEmpty := s.data[pointer] == 0
		s.data[pointer] |= other.data[pointer]

		if wasEmpty {
			s.changeNext(pointer, s.nextIdx(pointer), int32(pointer))
		}

		pointer = int(other.nextIdx(pointer))
		if pointer == 0 {
			break
		}
	}
}

// IntersectWith removes every element of s that is not in other. Both sets
// must come from the same factory.
func (s *Set[E]) IntersectWith(other *Set[E]) {
	n := min(len(s.data), len(other.data))
	for i := 0; i < n; i++ {
		s.data[i] &= other.data[i]
	}
	clear(s.data[n:])

	s.rebuildNext()
}

// DifferenceWith removes every element of other from s. Both sets must come
// from the same factory.
func (s *Set[E]) DifferenceWith(other *Set[E]) {
	pointer := 0
	for {
		if pointer >= len(other.data) {
			break
		}

		wasSet := s.data[pointer] != 0
		s.data[pointer] &^= other.data[pointer]

		if wasSet && s.data[pointer] == 0 {
			s.changeNext(pointer, int32(pointer), s.nextIdx(pointer))
		}

		pointer = int(s.nextIdx(pointer))
		if pointer == 0 {
			break
		}
	}
}

// Cardinality classifies the set as empty, single-element or larger without
// counting every bit.
func (s *Set[E]) Cardinality() SetCardinality {
	found := false
	for i := len(s.data) - 1; i >= 0; i-- {
		b := s.data[i]
		if b == 0 {
			continue
		}
		if found || b&(b-1) != 0 {
			return CardinalityMany
		}
		found = true
	}

	if found {
		return CardinalityOne
	}

	return CardinalityZero
}

// Count returns the exact number of elements in the set.
func (s *Set[E]) Count() int {
	n := 0
	for _, b := range s.data {
		n += bits.OnesCount32(b)
	}

	return n
}

// IsEmpty reports whether the set holds no elements.
func (s *Set[E]) IsEmpty() bool {
	return s.data[0] == 0 && s.nextIdx(0) == 0
}

// Equal reports whether s and other hold exactly the same elements.
// Capacity differences between the backing arrays are ignored.
func (s *Set[E]) Equal(other *Set[E]) bool {
	if s == other {
		return true
	}

	short, long := s.data, other.data
	if len(short) > len(long) {
		short, long = long, short
	}

	for i, b := range short {
		if b != long[i] {
			return false
		}
	}
	for _, b := range long[len(short):] {
		if b != 0 {
			return false
		}
	}

	return true
}

// Hash returns a value that is equal for equal sets regardless of backing
// capacity: FNV-1a over the blocks up to the last populated one.
func (s *Set[E]) Hash() uint64 {
	last := -1
	for i := len(s.data) - 1; i >= 0; i-- {
		if s.data[i] != 0 {
			last = i
			break
		}
	}

	h := fnv.New64a()
	var buf [4]byte
	for i := 0; i <= last; i++ {
		binary.LittleEndian.PutUint32(buf[:], s.data[i])
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}

// Clone returns an independent copy sharing the same universe.
func (s *Set[E]) Clone() *Set[E] {
	c := &Set[E]{
		factory: s.factory,
		data:    slices.Clone(s.data),
	}
	if s.next != nil {
		c.next = slices.Clone(s.next)
	}

	return c
}

// ToPlainSet returns the elements of the set as a map.
func (s *Set[E]) ToPlainSet() map[E]struct{} {
	u := s.factory.universe
	limit := min(len(s.data)*32, u.Len())

	out := make(map[E]struct{})
	for i := 0; i < limit; i++ {
		if s.data[i>>5]&(1<<(i&31)) != 0 {
			out[u.elements[i]] = struct{}{}
		}
	}

	return out
}

// All returns an iterator over the elements in ascending universe order.
func (s *Set[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		it := s.Iterator()
		for e, ok := it.Next(); ok; e, ok = it.Next() {
			if !yield(e) {
				return
			}
		}
	}
}

// String formats the set as its elements in ascending universe order.
func (s *Set[E]) String() string {
	var sb strings.Builder
	sb.WriteByte('[')

	first := true
	for e := range s.All() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&sb, "%v", e)
	}

	sb.WriteByte(']')

	return sb.String()
}

// nextIdx returns the skip link recorded for block i, or 0 when the chain
// has not been allocated.
func (s *Set[E]) nextIdx(i int) int32 {
	if s.next == nil {
		return 0
	}

	return s.next[i]
}

// allocNext allocates the skip chain. All links start at 0, matching the
// reads nextIdx answered before allocation.
func (s *Set[E]) allocNext() {
	if s.next == nil {
		s.next = make([]int32, len(s.data))
	}
}

// grow extends data so block is a valid index, doubling until it fits. The
// skip chain grows in lockstep when present.
func (s *Set[E]) grow(block int) {
	n := len(s.data)
	if n == 0 {
		n = 1
	}
	for n <= block {
		n *= 2
	}
	if n == len(s.data) {
		return
	}

	data := make([]uint32, n)
	copy(data, s.data)
	s.data = data

	if s.next != nil {
		next := make([]int32, n)
		copy(next, s.next)
		s.next = next
	}
}

// changeNext repairs the skip links below key after the block at key
// changes occupancy: every link directly below that still reads oldNext is
// rewritten to newNext, stopping at the first link that differs.
func (s *Set[E]) changeNext(key int, oldNext, newNext int32) {
	for i := key - 1; i >= 0; i-- {
		if s.nextIdx(i) != oldNext {
			break
		}
		s.allocNext()
		s.next[i] = newNext
	}
}

// rebuildNext recomputes every skip link from the block contents,
// overwriting stale links wholesale.
func (s *Set[E]) rebuildNext() {
	link := int32(0)
	for i := len(s.data) - 1; i >= 0; i-- {
		if s.next != nil {
			s.next[i] = link
		} else if link != 0 {
			s.allocNext()
			s.next[i] = link
		}
		if s.data[i] != 0 {
			link = int32(i)
		}
	}
}

package sparse

import "math/bits"

// Iterator walks a set in ascending universe order. Mutating the set while
// iterating, other than through Remove, leaves the cursor undefined.
type Iterator[E comparable] struct {
	set     *Set[E]
	pointer int
}

// Iterator returns a cursor positioned before the first element.
func (s *Set[E]) Iterator() *Iterator[E] {
	return &Iterator[E]{set: s, pointer: -1}
}

// Next returns the next element, or the zero value and false when the
// iteration is done.
func (it *Iterator[E]) Next() (E, bool) {
	idx := it.nextIndex(it.pointer)
	if idx < 0 {
		var zero E
		return zero, false
	}
	it.pointer = idx

	return it.set.factory.universe.elements[idx], true
}

// Remove clears the element most recently returned by Next directly in the
// backing blocks. The set's skip links are not repaired.
func (it *Iterator[E]) Remove() {
	if it.pointer < 0 {
		return
	}

	block := it.pointer >> 5
	if block < len(it.set.data) {
		it.set.data[block] &^= 1 << (it.pointer & 31)
	}
}

// nextIndex returns the ordinal of the first element after index, or -1.
// It scans the current block from the bit after index and follows the skip
// chain across empty blocks.
func (it *Iterator[E]) nextIndex(index int) int {
	index++
	bindex := index >> 5
	dindex := index & 31

	for bindex < len(it.set.data) {
		if block := it.set.data[bindex] >> dindex; block != 0 {
			return bindex<<5 + dindex + bits.TrailingZeros32(block)
		}

		dindex = 0
		bindex = int(it.set.nextIdx(bindex))
		if bindex == 0 {
			break
		}
	}

	return -1
}

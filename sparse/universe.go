package sparse

// Position locates an element inside the sets of one universe: the index of
// the 32-bit block holding the element and the mask with exactly the
// element's bit set.
type Position struct {
	Block int
	Mask  uint32
}

// Universe is the shared element space backing every set of a factory. Each
// element receives the next free ordinal on first registration and keeps it
// forever; the universe only ever grows.
//
// A Universe is not safe for concurrent use.
type Universe[E comparable] struct {
	positions map[E]Position
	elements  []E
}

// NewUniverse creates a universe holding the given seed elements in order.
// Duplicates are registered once.
func NewUniverse[E comparable](elems ...E) *Universe[E] {
	u := &Universe[E]{
		positions: make(map[E]Position, len(elems)),
	}
	for _, e := range elems {
		u.Register(e)
	}

	return u
}

// Register returns the position of element, assigning the next free ordinal
// if the universe has not seen it before.
func (u *Universe[E]) Register(element E) Position {
	if pos, ok := u.positions[element]; ok {
		return pos
	}

	ordinal := len(u.elements)
	pos := Position{Block: ordinal >> 5, Mask: 1 << (ordinal & 31)}

	u.positions[element] = pos
	u.elements = append(u.elements, element)

	return pos
}

// PositionOf returns the position of element without registering it.
func (u *Universe[E]) PositionOf(element E) (Position, bool) {
	pos, ok := u.positions[element]
	return pos, ok
}

// ElementAt returns the element with the given ordinal.
func (u *Universe[E]) ElementAt(ordinal int) (E, bool) {
	if ordinal < 0 || ordinal >= len(u.elements) {
		var zero E
		return zero, false
	}

	return u.elements[ordinal], true
}

// Len returns the number of registered elements.
func (u *Universe[E]) Len() int {
	return len(u.elements)
}

// Blocks returns the number of 32-bit blocks the universe currently spans.
func (u *Universe[E]) Blocks() int {
	return (len(u.elements) + 31) / 32
}

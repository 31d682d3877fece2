// Package bitset provides a dense set of non-negative region indices.
package bitset

// Set is a compact set of arena indices using a bitmap.
// Sized for one function's region arena; grows on demand.
type Set struct {
	bits []uint64
}

// New creates a Set that can hold values up to maxVal (inclusive) without growing.
func New(maxVal int) *Set {
	if maxVal < 0 {
		maxVal = 0
	}
	words := (maxVal + 64) / 64
	return &Set{bits: make([]uint64, words)}
}

// Add inserts val. Negative values are ignored.
func (s *Set) Add(val int) {
	if val < 0 {
		return
	}
	word := val / 64
	if word >= len(s.bits) {
		s.grow(word + 1)
	}
	s.bits[word] |= 1 << (uint(val) % 64)
}

// Has returns true if val is in the set.
func (s *Set) Has(val int) bool {
	if val < 0 {
		return false
	}
	word := val / 64
	if word >= len(s.bits) {
		return false
	}
	return s.bits[word]&(1<<(uint(val)%64)) != 0
}

// grow expands the set to n words.
// Callers guarantee n > len(s.bits).
func (s *Set) grow(n int) {
	newBits := make([]uint64, n)
	copy(newBits, s.bits)
	s.bits = newBits
}

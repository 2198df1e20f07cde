// Package memstack provides a typed stack (bump) allocator. Allocations are
// released in bulk by rolling the stack back to a Mark, so per-frame and
// per-surface scratch data costs no garbage collector work once warm.
package memstack

import "github.com/taigrr/softbsp/pkg/diag"

// DefaultChunk is the number of elements in a chunk when New is given zero.
const DefaultChunk = 4096

// Stack is a bump allocator for values of type T. It is not safe for
// concurrent use.
type Stack[T any] struct {
	chunks    [][]T
	chunkSize int
	top       int // index of the chunk being filled
	pos       int // next free element in chunks[top]
	depth     int // number of live marks
	used      int
	peak      int
}

// Mark is a position on a Stack to roll back to.
type Mark struct {
	chunk int
	pos   int
	depth int
	used  int
}

// New returns an empty stack allocating chunkSize elements at a time.
func New[T any](chunkSize int) *Stack[T] {
	if chunkSize <= 0 {
		chunkSize = DefaultChunk
	}
	return &Stack[T]{chunkSize: chunkSize}
}

// Alloc returns a pointer to a zeroed element.
func (s *Stack[T]) Alloc() *T {
	return &s.AllocSlice(1)[0]
}

// AllocSlice returns n contiguous zeroed elements. The slice has capacity n,
// so appending to it never writes into neighbouring allocations.
func (s *Stack[T]) AllocSlice(n int) []T {
	if n <= 0 {
		return nil
	}
	if len(s.chunks) == 0 {
		s.chunks = append(s.chunks, make([]T, max(s.chunkSize, n)))
	}
	if s.pos+n > len(s.chunks[s.top]) {
		s.advance(n)
	}
	out := s.chunks[s.top][s.pos : s.pos+n : s.pos+n]
	clear(out)
	s.pos += n
	s.used += n
	s.peak = max(s.peak, s.used)
	return out
}

// advance moves to a chunk able to hold n elements, reusing chunks left
// behind by an earlier Release when they are large enough.
func (s *Stack[T]) advance(n int) {
	s.top++
	s.pos = 0
	size := max(s.chunkSize, n)
	switch {
	case s.top == len(s.chunks):
		s.chunks = append(s.chunks, make([]T, size))
	case len(s.chunks[s.top]) < n:
		s.chunks[s.top] = make([]T, size)
	}
}

// Mark records the current top of the stack. Marks nest: releasing a mark
// also releases every mark taken after it.
func (s *Stack[T]) Mark() Mark {
	s.depth++
	return Mark{chunk: s.top, pos: s.pos, depth: s.depth, used: s.used}
}

// Release frees everything allocated since m was taken.
func (s *Stack[T]) Release(m Mark) {
	if m.depth <= 0 || m.depth > s.depth {
		diag.Fatalf("memstack: release of stale mark (depth %d, live %d)", m.depth, s.depth)
	}
	s.top, s.pos, s.used = m.chunk, m.pos, m.used
	s.depth = m.depth - 1
}

// Reset frees every allocation and forgets all marks. Chunks are kept.
func (s *Stack[T]) Reset() {
	s.top, s.pos, s.used, s.depth = 0, 0, 0, 0
}

// Used returns the number of live elements.
func (s *Stack[T]) Used() int { return s.used }

// Peak returns the high-water mark of Used.
func (s *Stack[T]) Peak() int { return s.peak }

// Depth returns the number of live marks.
func (s *Stack[T]) Depth() int { return s.depth }

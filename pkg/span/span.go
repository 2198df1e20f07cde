// Package span implements span buffers: per-scanline lists of the pixels
// that are still free on screen. The occlusion pass subtracts each visible
// polygon's raster from them, so after a front-to-back walk every pixel has
// been claimed exactly once.
package span

import (
	"image"

	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/memstack"
	"github.com/taigrr/softbsp/pkg/raster"
)

// Span is the free pixel range [Start, End) of one scanline.
type Span struct {
	Start, End int
}

// Pool is the arena span buffers allocate from. Everything allocated since a
// PoolMark is freed together by Release.
type Pool struct {
	spans *memstack.Stack[Span]
	lines *memstack.Stack[[]Span]
}

// PoolMark is a rollback point on a Pool.
type PoolMark struct {
	spans memstack.Mark
	lines memstack.Mark
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		spans: memstack.New[Span](8192),
		lines: memstack.New[[]Span](2048),
	}
}

// Mark records the current top of the pool.
func (p *Pool) Mark() PoolMark {
	return PoolMark{spans: p.spans.Mark(), lines: p.lines.Mark()}
}

// Release frees every buffer allocated since m.
func (p *Pool) Release(m PoolMark) {
	p.lines.Release(m.lines)
	p.spans.Release(m.spans)
}

// Used returns the number of live spans.
func (p *Pool) Used() int { return p.spans.Used() }

func (p *Pool) spanSlice(n int) []Span {
	if p == nil {
		return make([]Span, n)
	}
	return p.spans.AllocSlice(n)
}

func (p *Pool) lineSlice(n int) [][]Span {
	if p == nil {
		return make([][]Span, n)
	}
	return p.lines.AllocSlice(n)
}

// Buffer is a span index over scanlines [StartY, EndY). Lines[i] holds the
// free spans of scanline StartY+i, sorted and separated by at least one
// covered pixel. ValidLines counts the lines that hold any span.
type Buffer struct {
	StartY     int
	EndY       int
	ValidLines int
	Lines      [][]Span

	pool *Pool
}

// AllocIndex returns an empty buffer over [startY, endY) with no free pixels.
func AllocIndex(startY, endY int, pool *Pool) *Buffer {
	if endY < startY {
		endY = startY
	}
	return &Buffer{
		StartY: startY,
		EndY:   endY,
		Lines:  pool.lineSlice(endY - startY),
		pool:   pool,
	}
}

// AllocIndexForScreen returns a buffer in which every pixel of an sx by sy
// screen is free.
func AllocIndexForScreen(sx, sy int, pool *Pool) *Buffer {
	b := AllocIndex(0, sy, pool)
	if sx <= 0 {
		return b
	}
	spans := pool.spanSlice(sy)
	for i := range b.Lines {
		spans[i] = Span{0, sx}
		b.Lines[i] = spans[i : i+1 : i+1]
	}
	b.ValidLines = sy
	return b
}

// Line returns the free spans of scanline y.
func (b *Buffer) Line(y int) []Span {
	if y < b.StartY || y >= b.EndY {
		return nil
	}
	return b.Lines[y-b.StartY]
}

// IsEmpty reports whether no pixel is free.
func (b *Buffer) IsEmpty() bool { return b.ValidLines == 0 }

// Contains reports whether pixel (x, y) is free.
func (b *Buffer) Contains(x, y int) bool {
	for _, s := range b.Line(y) {
		if x < s.Start {
			return false
		}
		if x < s.End {
			return true
		}
	}
	return false
}

// FreePixels returns the number of free pixels.
func (b *Buffer) FreePixels() int {
	var n int
	for _, line := range b.Lines {
		for _, s := range line {
			n += s.End - s.Start
		}
	}
	return n
}

// Bounds returns the smallest rectangle holding every free pixel.
func (b *Buffer) Bounds() image.Rectangle {
	var r image.Rectangle
	for i, line := range b.Lines {
		if len(line) == 0 {
			continue
		}
		y := b.StartY + i
		r = r.Union(image.Rect(line[0].Start, y, line[len(line)-1].End, y+1))
	}
	return r
}

// Clone returns a copy of b allocated from pool.
func (b *Buffer) Clone(pool *Pool) *Buffer {
	c := AllocIndex(b.StartY, b.EndY, pool)
	for i, line := range b.Lines {
		c.Lines[i] = c.store(line)
	}
	c.ValidLines = b.ValidLines
	return c
}

// Equal reports whether both buffers have the same free pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	lo, hi := min(b.StartY, o.StartY), max(b.EndY, o.EndY)
	for y := lo; y < hi; y++ {
		l1, l2 := b.Line(y), o.Line(y)
		if len(l1) != len(l2) {
			return false
		}
		for i := range l1 {
			if l1[i] != l2[i] {
				return false
			}
		}
	}
	return true
}

// store copies spans into pool memory owned by b.
func (b *Buffer) store(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	out := b.pool.spanSlice(len(spans))
	copy(out, spans)
	return out
}

// CopyFromRaster sets b to the part of r that is free in screen, leaving
// screen untouched. b must have been allocated over a range covering r. It
// reports whether any pixel of r is visible.
func (b *Buffer) CopyFromRaster(screen *Buffer, r *raster.Raster) bool {
	return b.copyFromRaster(screen, r, false)
}

// CopyFromRasterUpdate is CopyFromRaster that also removes the visible
// pixels from screen's free space. Pixels outside r keep their status.
func (b *Buffer) CopyFromRasterUpdate(screen *Buffer, r *raster.Raster) bool {
	return b.copyFromRaster(screen, r, true)
}

func (b *Buffer) copyFromRaster(screen *Buffer, r *raster.Raster, update bool) bool {
	if len(r.Lines) > 0 {
		diag.Assertf(b.StartY <= r.StartY && b.EndY >= r.EndY,
			"span: raster [%d,%d) outside index [%d,%d)", r.StartY, r.EndY, b.StartY, b.EndY)
	}
	clear(b.Lines)
	b.ValidLines = 0

	var covered, remaining [64]Span
	lo, hi := max(r.StartY, screen.StartY), min(r.EndY, screen.EndY)
	for y := lo; y < hi; y++ {
		l := r.Lines[y-r.StartY]
		free := screen.Lines[y-screen.StartY]
		if l.Empty() || len(free) == 0 {
			continue
		}
		vis, rest := subtract(free, l.X0, l.X1, covered[:0], remaining[:0])
		if len(vis) == 0 {
			continue
		}
		b.Lines[y-b.StartY] = b.store(vis)
		b.ValidLines++

		if update {
			screen.setLine(y, rest)
		}
	}
	b.tighten()
	return b.ValidLines > 0
}

// setLine replaces the spans of scanline y, reusing its storage when the new
// list fits.
func (b *Buffer) setLine(y int, spans []Span) {
	i := y - b.StartY
	old := b.Lines[i]
	switch {
	case len(spans) == 0:
		b.Lines[i] = nil
	case len(spans) <= cap(old):
		b.Lines[i] = old[:len(spans)]
		copy(b.Lines[i], spans)
	default:
		b.Lines[i] = b.store(spans)
	}
	if len(old) > 0 && len(spans) == 0 {
		b.ValidLines--
	}
}

// subtract splits free into the part inside [x0, x1) and the part outside.
func subtract(free []Span, x0, x1 int, in, out []Span) (inside, outside []Span) {
	for _, s := range free {
		if s.End <= x0 || s.Start >= x1 {
			out = append(out, s)
			continue
		}
		if s.Start < x0 {
			out = append(out, Span{s.Start, x0})
		}
		in = append(in, Span{max(s.Start, x0), min(s.End, x1)})
		if s.End > x1 {
			out = append(out, Span{x1, s.End})
		}
	}
	return in, out
}

// tighten shrinks [StartY, EndY) to the lines that hold spans.
func (b *Buffer) tighten() {
	if b.ValidLines == 0 {
		b.Lines = b.Lines[:0]
		b.EndY = b.StartY
		return
	}
	lo, hi := 0, len(b.Lines)
	for len(b.Lines[lo]) == 0 {
		lo++
	}
	for len(b.Lines[hi-1]) == 0 {
		hi--
	}
	b.Lines = b.Lines[lo:hi]
	b.EndY = b.StartY + hi
	b.StartY += lo
}

// MergeWith adds other's free pixels to b, growing b's scanline range as
// needed.
func (b *Buffer) MergeWith(other *Buffer) {
	if other.ValidLines == 0 {
		return
	}
	if b.ValidLines == 0 || other.StartY < b.StartY || other.EndY > b.EndY {
		lo, hi := other.StartY, other.EndY
		if b.ValidLines > 0 {
			lo, hi = min(lo, b.StartY), max(hi, b.EndY)
		}
		lines := b.pool.lineSlice(hi - lo)
		if b.ValidLines > 0 {
			copy(lines[b.StartY-lo:], b.Lines)
		}
		b.Lines, b.StartY, b.EndY = lines, lo, hi
	}

	var scratch [64]Span
	for i, add := range other.Lines {
		if len(add) == 0 {
			continue
		}
		y := other.StartY + i
		cur := b.Lines[y-b.StartY]
		if len(cur) == 0 {
			b.Lines[y-b.StartY] = b.store(add)
			b.ValidLines++
			continue
		}
		b.Lines[y-b.StartY] = b.store(union(cur, add, scratch[:0]))
	}
}

// union merges two sorted span lists, joining overlapping and touching spans.
func union(a, c, out []Span) []Span {
	i, j := 0, 0
	for i < len(a) || j < len(c) {
		var s Span
		if j >= len(c) || (i < len(a) && a[i].Start <= c[j].Start) {
			s = a[i]
			i++
		} else {
			s = c[j]
			j++
		}
		if n := len(out); n > 0 && s.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, s.End)
			continue
		}
		out = append(out, s)
	}
	return out
}

// BoxIsVisible reports whether any pixel of the rectangle [x1,x2) x [y1,y2)
// is free.
func (b *Buffer) BoxIsVisible(x1, y1, x2, y2 int) bool {
	lo, hi := max(y1, b.StartY), min(y2, b.EndY)
	for y := lo; y < hi; y++ {
		for _, s := range b.Lines[y-b.StartY] {
			if s.Start >= x2 {
				break
			}
			if s.End > x1 {
				return true
			}
		}
	}
	return false
}

// BoundIsVisible reports whether any pixel of r is free.
func (b *Buffer) BoundIsVisible(r image.Rectangle) bool {
	return b.BoxIsVisible(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// AssertValid checks the buffer's invariants when diag checks are enabled.
func (b *Buffer) AssertValid(name string) {
	if !diag.Checks() {
		return
	}
	if len(b.Lines) != b.EndY-b.StartY {
		diag.Fatalf("span %s: %d lines for range [%d,%d)", name, len(b.Lines), b.StartY, b.EndY)
	}
	valid := 0
	for i, line := range b.Lines {
		if len(line) > 0 {
			valid++
		}
		for k, s := range line {
			if s.Start >= s.End {
				diag.Fatalf("span %s: line %d span %d is empty [%d,%d)", name, b.StartY+i, k, s.Start, s.End)
			}
			if k > 0 && s.Start <= line[k-1].End {
				diag.Fatalf("span %s: line %d spans %d and %d overlap or touch", name, b.StartY+i, k-1, k)
			}
		}
	}
	if valid != b.ValidLines {
		diag.Fatalf("span %s: ValidLines %d, counted %d", name, b.ValidLines, valid)
	}
}

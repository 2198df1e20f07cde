// Package raster scan-converts convex screen polygons into per-scanline
// coverage, the input the span buffers subtract from their free space.
package raster

import (
	"image"
	"math"

	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/memstack"
)

// Line is the covered pixel range [X0, X1) of one scanline. X0 >= X1 means
// the line is empty.
type Line struct {
	X0, X1 int
}

// Empty reports whether the line covers no pixels.
func (l Line) Empty() bool { return l.X0 >= l.X1 }

// Raster is the coverage of a convex polygon: Lines[i] belongs to scanline
// StartY+i, and scanlines outside [StartY, EndY) are not covered.
type Raster struct {
	StartY int
	EndY   int
	Lines  []Line
}

// Line returns the coverage of scanline y.
func (r *Raster) Line(y int) Line {
	if y < r.StartY || y >= r.EndY {
		return Line{}
	}
	return r.Lines[y-r.StartY]
}

// Empty reports whether no pixel is covered.
func (r *Raster) Empty() bool {
	for _, l := range r.Lines {
		if !l.Empty() {
			return false
		}
	}
	return true
}

// Pixels returns the number of covered pixels.
func (r *Raster) Pixels() int {
	var n int
	for _, l := range r.Lines {
		if !l.Empty() {
			n += l.X1 - l.X0
		}
	}
	return n
}

// Contains reports whether pixel (x, y) is covered.
func (r *Raster) Contains(x, y int) bool {
	l := r.Line(y)
	return x >= l.X0 && x < l.X1
}

// Bounds returns the smallest rectangle holding every covered pixel.
func (r *Raster) Bounds() image.Rectangle {
	var b image.Rectangle
	for i, l := range r.Lines {
		if l.Empty() {
			continue
		}
		b = b.Union(image.Rect(l.X0, r.StartY+i, l.X1, r.StartY+i+1))
	}
	return b
}

// FromRect returns the raster covering rect.
func FromRect(rect image.Rectangle, mem *memstack.Stack[Line]) Raster {
	rect = rect.Canon()
	lines := alloc(mem, rect.Dy())
	for i := range lines {
		lines[i] = Line{rect.Min.X, rect.Max.X}
	}
	return Raster{StartY: rect.Min.Y, EndY: rect.Max.Y, Lines: lines}
}

// edge steps the X intersection of one polygon edge down successive
// scanline centers.
type edge struct {
	y0, y1 int     // first and last+1 scanline whose center the edge crosses
	x      float64 // intersection at the center of y0
	dxdy   float64
}

func makeEdge(a, b math3d.Vec2) (edge, bool) {
	if a.Y > b.Y {
		a, b = b, a
	}
	y0 := int(math.Ceil(a.Y - 0.5))
	y1 := int(math.Ceil(b.Y - 0.5))
	if y0 >= y1 {
		return edge{}, false
	}
	dxdy := (b.X - a.X) / (b.Y - a.Y)
	return edge{
		y0:   y0,
		y1:   y1,
		x:    a.X + (float64(y0)+0.5-a.Y)*dxdy,
		dxdy: dxdy,
	}, true
}

// Setup scan-converts a convex polygon given in screen coordinates, clipped
// to clip. Pixel (x, y) is covered when its center (x+0.5, y+0.5) lies
// inside the polygon; centers exactly on a left or top edge are covered and
// centers on a right or bottom edge are not, so polygons sharing an edge
// never overlap or leave a gap. Either winding is accepted. Lines are taken
// from mem when it is non-nil.
func Setup(pts []math3d.Vec2, clip image.Rectangle, mem *memstack.Stack[Line]) Raster {
	if len(pts) < 3 || clip.Empty() {
		return Raster{}
	}

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	startY := max(int(math.Ceil(minY-0.5)), clip.Min.Y)
	endY := min(int(math.Ceil(maxY-0.5)), clip.Max.Y)
	if startY >= endY {
		return Raster{}
	}

	lines := alloc(mem, endY-startY)
	for i := range lines {
		lines[i] = Line{X0: math.MaxInt32, X1: math.MinInt32}
	}

	n := len(pts)
	for i := range n {
		e, ok := makeEdge(pts[i], pts[(i+1)%n])
		if !ok {
			continue
		}
		y := e.y0
		x := e.x
		if y < startY {
			x += float64(startY-y) * e.dxdy
			y = startY
		}
		for ; y < e.y1 && y < endY; y++ {
			px := int(math.Ceil(x - 0.5))
			l := &lines[y-startY]
			l.X0 = min(l.X0, px)
			l.X1 = max(l.X1, px)
			x += e.dxdy
		}
	}

	r := Raster{StartY: startY, EndY: endY, Lines: lines}
	for i := range r.Lines {
		l := &r.Lines[i]
		l.X0 = max(l.X0, clip.Min.X)
		l.X1 = min(l.X1, clip.Max.X)
		if l.X0 >= l.X1 {
			*l = Line{}
		}
	}
	r.trim()
	return r
}

// trim drops empty lines from both ends.
func (r *Raster) trim() {
	lo, hi := 0, len(r.Lines)
	for lo < hi && r.Lines[lo].Empty() {
		lo++
	}
	for hi > lo && r.Lines[hi-1].Empty() {
		hi--
	}
	if lo == hi {
		*r = Raster{}
		return
	}
	r.Lines = r.Lines[lo:hi]
	r.EndY = r.StartY + hi
	r.StartY += lo
}

func alloc(mem *memstack.Stack[Line], n int) []Line {
	if mem == nil {
		return make([]Line, n)
	}
	return mem.AllocSlice(n)
}

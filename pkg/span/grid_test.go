package span

import (
	"image"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/taigrr/softbsp/pkg/raster"
)

func cos(a float64) float64 { return math.Cos(a) }
func sin(a float64) float64 { return math.Sin(a) }

func TestCalcRectFrom(t *testing.T) {
	pool := NewPool()
	full := AllocIndexForScreen(testW, testH, pool)
	r := raster.FromRect(image.Rect(10, 5, 19, 9), nil)
	frag := AllocIndex(r.StartY, r.EndY, pool)
	frag.CopyFromRaster(full, &r)

	rect := CalcRectFrom(frag, 3, 2, pool)
	rect.AssertValid("rect")

	// x 10..18 touches cells 1..2, y 5..8 touches rows 1..2.
	if rect.StartY != 1 || rect.EndY != 3 {
		t.Fatalf("rect rows [%d,%d), want [1,3)", rect.StartY, rect.EndY)
	}
	for y := 1; y < 3; y++ {
		line := rect.Line(y)
		if len(line) != 1 || line[0] != (Span{1, 3}) {
			t.Errorf("row %d = %v, want [{1 3}]", y, line)
		}
	}
}

func TestCalcRectFromCoversEveryPixel(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	pool := NewPool()
	for i := range 50 {
		b := randomBuffer(rng, pool)
		const xb, yb = 3, 2
		rect := CalcRectFrom(b, xb, yb, pool)
		rect.AssertValid("rect")
		lat := CalcLatticeFrom(rect, pool)
		lat.AssertValid("lattice")

		for p := range freeSet(b) {
			cx, cy := p.X>>xb, p.Y>>yb
			if !rect.Contains(cx, cy) {
				t.Fatalf("case %d: pixel %v in no cell", i, p)
			}
			for _, c := range [][2]int{{cx, cy}, {cx + 1, cy}, {cx, cy + 1}, {cx + 1, cy + 1}} {
				if !lat.Contains(c[0], c[1]) {
					t.Fatalf("case %d: cell (%d,%d) missing corner %v", i, cx, cy, c)
				}
			}
		}
	}
}

func TestCalcLatticeFrom(t *testing.T) {
	pool := NewPool()
	rect := AllocIndex(2, 4, pool)
	rect.Lines[0] = []Span{{1, 3}}
	rect.Lines[1] = []Span{{2, 5}, {7, 8}}
	rect.ValidLines = 2

	lat := CalcLatticeFrom(rect, pool)
	lat.AssertValid("lattice")

	want := map[int][]Span{
		2: {{1, 4}},
		3: {{1, 6}, {7, 9}},
		4: {{2, 6}, {7, 9}},
	}
	if lat.StartY != 2 || lat.EndY != 5 {
		t.Fatalf("lattice rows [%d,%d), want [2,5)", lat.StartY, lat.EndY)
	}
	for y, spans := range want {
		got := lat.Line(y)
		if len(got) != len(spans) {
			t.Fatalf("row %d = %v, want %v", y, got, spans)
		}
		for i := range spans {
			if got[i] != spans[i] {
				t.Errorf("row %d = %v, want %v", y, got, spans)
			}
		}
	}
}

func TestCalcFromEmpty(t *testing.T) {
	pool := NewPool()
	empty := AllocIndex(4, 10, pool)
	rect := CalcRectFrom(empty, 2, 2, pool)
	if !rect.IsEmpty() {
		t.Error("rect of empty buffer should be empty")
	}
	if lat := CalcLatticeFrom(rect, pool); !lat.IsEmpty() {
		t.Error("lattice of empty rect should be empty")
	}
}

package raster

import (
	"image"
	"testing"

	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/memstack"
)

var screen = image.Rect(0, 0, 64, 48)

func TestSetupRectangle(t *testing.T) {
	tests := []struct {
		name string
		pts  []math3d.Vec2
	}{
		{"clockwise", []math3d.Vec2{{X: 4, Y: 2}, {X: 12, Y: 2}, {X: 12, Y: 6}, {X: 4, Y: 6}}},
		{"counter-clockwise", []math3d.Vec2{{X: 4, Y: 2}, {X: 4, Y: 6}, {X: 12, Y: 6}, {X: 12, Y: 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Setup(tt.pts, screen, nil)
			if r.StartY != 2 || r.EndY != 6 {
				t.Fatalf("rows [%d,%d), want [2,6)", r.StartY, r.EndY)
			}
			for y := r.StartY; y < r.EndY; y++ {
				if l := r.Line(y); l.X0 != 4 || l.X1 != 12 {
					t.Errorf("line %d = %+v, want [4,12)", y, l)
				}
			}
			if r.Pixels() != 32 {
				t.Errorf("Pixels() = %d, want 32", r.Pixels())
			}
		})
	}
}

func TestSetupSharedEdgeNoOverlapNoGap(t *testing.T) {
	// Two triangles splitting a quad along a diagonal.
	a := []math3d.Vec2{{X: 3.3, Y: 1.7}, {X: 40.1, Y: 5.2}, {X: 20.6, Y: 30.9}}
	b := []math3d.Vec2{{X: 40.1, Y: 5.2}, {X: 44.8, Y: 33.3}, {X: 20.6, Y: 30.9}}
	quad := []math3d.Vec2{{X: 3.3, Y: 1.7}, {X: 40.1, Y: 5.2}, {X: 44.8, Y: 33.3}, {X: 20.6, Y: 30.9}}

	ra := Setup(a, screen, nil)
	rb := Setup(b, screen, nil)
	rq := Setup(quad, screen, nil)

	for y := 0; y < screen.Dy(); y++ {
		for x := 0; x < screen.Dx(); x++ {
			inA, inB := ra.Contains(x, y), rb.Contains(x, y)
			if inA && inB {
				t.Fatalf("pixel (%d,%d) covered twice", x, y)
			}
			if (inA || inB) != rq.Contains(x, y) {
				t.Fatalf("pixel (%d,%d): halves %v, quad %v", x, y, inA || inB, rq.Contains(x, y))
			}
		}
	}
}

func TestSetupClipsToScreen(t *testing.T) {
	pts := []math3d.Vec2{{X: -20, Y: -10}, {X: 100, Y: -10}, {X: 100, Y: 100}, {X: -20, Y: 100}}
	r := Setup(pts, screen, nil)
	if got := r.Bounds(); got != screen {
		t.Errorf("Bounds() = %v, want %v", got, screen)
	}
}

func TestSetupDegenerate(t *testing.T) {
	tests := []struct {
		name string
		pts  []math3d.Vec2
	}{
		{"too few points", []math3d.Vec2{{X: 1, Y: 1}, {X: 5, Y: 5}}},
		{"zero height", []math3d.Vec2{{X: 1, Y: 4.2}, {X: 9, Y: 4.2}, {X: 20, Y: 4.2}}},
		{"between centers", []math3d.Vec2{{X: 1, Y: 4.6}, {X: 9, Y: 4.6}, {X: 9, Y: 5.4}, {X: 1, Y: 5.4}}},
		{"off screen", []math3d.Vec2{{X: 100, Y: 1}, {X: 120, Y: 1}, {X: 120, Y: 9}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Setup(tt.pts, screen, nil)
			if !r.Empty() || r.Pixels() != 0 {
				t.Errorf("expected empty raster, got %+v", r)
			}
		})
	}
}

func TestSetupUsesArena(t *testing.T) {
	mem := memstack.New[Line](256)
	m := mem.Mark()
	r := Setup([]math3d.Vec2{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}, screen, mem)
	if mem.Used() == 0 {
		t.Error("Setup should allocate lines from the arena")
	}
	if r.Pixels() != 45 {
		t.Errorf("Pixels() = %d, want 45", r.Pixels())
	}
	mem.Release(m)
}

func TestFromRect(t *testing.T) {
	r := FromRect(image.Rect(2, 3, 7, 5), nil)
	if r.Pixels() != 10 || !r.Contains(2, 3) || r.Contains(7, 3) {
		t.Errorf("unexpected raster %+v", r)
	}
}

func BenchmarkSetup(b *testing.B) {
	pts := []math3d.Vec2{{X: 3.3, Y: 1.7}, {X: 60.1, Y: 5.2}, {X: 44.8, Y: 47.3}, {X: 2.6, Y: 30.9}}
	mem := memstack.New[Line](1024)
	for b.Loop() {
		m := mem.Mark()
		_ = Setup(pts, screen, mem)
		mem.Release(m)
	}
}

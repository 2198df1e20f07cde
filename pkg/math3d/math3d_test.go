package math3d

import (
	"math"
	"testing"
)

func TestViewCoordsAxes(t *testing.T) {
	tests := []struct {
		name         string
		pitch, yaw   float64
		wantForward  Vec3
		wantRightDir Vec3
	}{
		{"along +X", 0, 0, V3(1, 0, 0), V3(0, -1, 0)},
		{"along +Y", 0, math.Pi / 2, V3(0, 1, 0), V3(1, 0, 0)},
		{"straight up", math.Pi / 2, 0, V3(0, 0, 1), V3(0, -1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ViewCoords(Zero3(), tt.pitch, tt.yaw, 0)
			if !c.ZAxis.NearlyEqual(tt.wantForward, 1e-9) {
				t.Errorf("forward = %v, want %v", c.ZAxis, tt.wantForward)
			}
			if !c.XAxis.NearlyEqual(tt.wantRightDir, 1e-9) {
				t.Errorf("right = %v, want %v", c.XAxis, tt.wantRightDir)
			}
			// Orthonormal and right-handed.
			if math.Abs(c.XAxis.Dot(c.YAxis)) > 1e-9 || math.Abs(c.YAxis.Dot(c.ZAxis)) > 1e-9 {
				t.Error("axes are not orthogonal")
			}
			if !c.XAxis.Cross(c.YAxis).NearlyEqual(c.ZAxis, 1e-9) {
				t.Error("axes are not right-handed")
			}
		})
	}
}

func TestViewCoordsDownIsWorldDown(t *testing.T) {
	c := ViewCoords(V3(0, 0, 64), 0, 0.7, 0)
	if c.YAxis.Z > -0.999 {
		t.Errorf("view Y should point down, got %v", c.YAxis)
	}
}

func TestCoordsRoundTrip(t *testing.T) {
	c := ViewCoords(V3(10, -4, 7), 0.4, 2.1, 0.3)
	pts := []Vec3{V3(0, 0, 0), V3(100, 20, -3), V3(-5, 5, 5)}

	for _, p := range pts {
		got := c.Untransform(c.Transform(p))
		if !got.NearlyEqual(p, 1e-9) {
			t.Errorf("round trip of %v gave %v", p, got)
		}
	}
}

func TestTransformPlane(t *testing.T) {
	c := ViewCoords(V3(3, 4, 5), 0.2, -0.8, 0)
	p := PlaneFromNormal(V3(0, 0, 1), V3(0, 0, -10))
	vp := c.TransformPlane(p)

	for _, pt := range []Vec3{V3(1, 2, -10), V3(-7, 0, -3), V3(0, 0, 40)} {
		want := p.Dot(pt)
		got := vp.Dot(c.Transform(pt))
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("plane distance of %v: got %f, want %f", pt, got, want)
		}
	}
}

func TestPlaneFromPointsWinding(t *testing.T) {
	// Counter-clockwise seen from +Z.
	p := PlaneFromPoints(V3(0, 0, 5), V3(1, 0, 5), V3(0, 1, 5))
	if !p.Normal.NearlyEqual(V3(0, 0, 1), 1e-12) {
		t.Errorf("normal = %v, want +Z", p.Normal)
	}
	if math.Abs(p.W-5) > 1e-12 {
		t.Errorf("W = %f, want 5", p.W)
	}
}

func TestClassifyPolygon(t *testing.T) {
	p := PlaneFromNormal(V3(1, 0, 0), Zero3())

	tests := []struct {
		name string
		pts  []Vec3
		want Side
	}{
		{"front", []Vec3{V3(1, 0, 0), V3(2, 1, 0), V3(1, 1, 1)}, SideFront},
		{"back", []Vec3{V3(-1, 0, 0), V3(-2, 1, 0), V3(-1, 1, 1)}, SideBack},
		{"split", []Vec3{V3(-1, 0, 0), V3(2, 1, 0), V3(1, 1, 1)}, SideSplit},
		{"on", []Vec3{V3(0, 0, 0), V3(0, 1, 0), V3(0, 1, 1)}, SideOn},
		{"touching", []Vec3{V3(0, 0, 0), V3(1, 1, 0), V3(1, 1, 1)}, SideFront},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.ClassifyPolygon(tt.pts); got != tt.want {
				t.Errorf("ClassifyPolygon = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitPolygon(t *testing.T) {
	p := PlaneFromNormal(V3(1, 0, 0), Zero3())
	square := []Vec3{V3(-1, -1, 0), V3(1, -1, 0), V3(1, 1, 0), V3(-1, 1, 0)}

	front, back := p.SplitPolygon(square)
	if len(front) != 4 || len(back) != 4 {
		t.Fatalf("split sizes = %d/%d, want 4/4", len(front), len(back))
	}
	for _, v := range front {
		if v.X < -PlaneEpsilon {
			t.Errorf("front vertex %v is behind the plane", v)
		}
	}
	for _, v := range back {
		if v.X > PlaneEpsilon {
			t.Errorf("back vertex %v is in front of the plane", v)
		}
	}
	area := func(pts []Vec3) float64 {
		var n Vec3
		for i := range pts {
			n = n.Add(pts[i].Cross(pts[(i+1)%len(pts)]))
		}
		return n.Len() / 2
	}
	if math.Abs(area(front)+area(back)-area(square)) > 1e-9 {
		t.Error("split halves do not cover the original polygon")
	}
}

func TestBoxPlaneSide(t *testing.T) {
	b := BoxOf(V3(-1, -1, -1), V3(1, 1, 1))

	tests := []struct {
		plane Plane
		want  Side
	}{
		{PlaneFromNormal(V3(1, 0, 0), V3(-5, 0, 0)), SideFront},
		{PlaneFromNormal(V3(1, 0, 0), V3(5, 0, 0)), SideBack},
		{PlaneFromNormal(V3(1, 1, 0), Zero3()), SideSplit},
	}
	for _, tt := range tests {
		if got := b.PlaneSide(tt.plane); got != tt.want {
			t.Errorf("PlaneSide(%v) = %v, want %v", tt.plane, got, tt.want)
		}
	}
}

func TestBoxIntersectsSphere(t *testing.T) {
	b := BoxOf(V3(0, 0, 0), V3(10, 10, 10))
	if !b.IntersectsSphere(V3(12, 5, 5), 2.5) {
		t.Error("sphere touching the +X face should intersect")
	}
	if b.IntersectsSphere(V3(14, 14, 14), 3) {
		t.Error("sphere near the corner should miss")
	}
	var empty Box
	if empty.IntersectsSphere(Zero3(), 100) {
		t.Error("empty box should never intersect")
	}
}

func TestPolygonArea(t *testing.T) {
	// Clockwise on screen (Y down): right, then down.
	pts := []Vec2{V2(0, 0), V2(4, 0), V2(4, 3), V2(0, 3)}
	if got := PolygonArea(pts); math.Abs(got-12) > 1e-12 {
		t.Errorf("area = %f, want 12", got)
	}
}

func TestFromQuatMatchesRotateZ(t *testing.T) {
	angle := 0.7
	q := FromQuat(0, 0, math.Sin(angle/2), math.Cos(angle/2))
	r := RotateZ(angle)
	for i := range q {
		if math.Abs(q[i]-r[i]) > 1e-12 {
			t.Fatalf("element %d: quat %f, rotate %f", i, q[i], r[i])
		}
	}
}

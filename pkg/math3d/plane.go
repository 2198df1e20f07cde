package math3d

import "math"

// PlaneEpsilon is the thickness within which a point counts as on a plane.
const PlaneEpsilon = 1.0 / 32

// Side classifies a point or polygon against a plane.
type Side int

const (
	SideOn Side = iota
	SideFront
	SideBack
	SideSplit
)

func (s Side) String() string {
	switch s {
	case SideFront:
		return "front"
	case SideBack:
		return "back"
	case SideSplit:
		return "split"
	default:
		return "on"
	}
}

// Plane is the set of points p with Normal·p == W.
type Plane struct {
	Normal Vec3
	W      float64
}

// PlaneFromNormal returns the plane through point with the given normal.
func PlaneFromNormal(normal, point Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, W: n.Dot(point)}
}

// PlaneFromPoints returns the plane through a, b and c. Points wound
// counter-clockwise when viewed from the front yield a normal facing the viewer.
func PlaneFromPoints(a, b, c Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return Plane{Normal: n, W: n.Dot(a)}
}

// PlaneFromPolygon fits a plane to the first non-degenerate corner of pts.
func PlaneFromPolygon(pts []Vec3) (Plane, bool) {
	for i := 0; i+2 < len(pts); i++ {
		p := PlaneFromPoints(pts[0], pts[i+1], pts[i+2])
		if p.Normal.LenSq() > 0.5 {
			return p, true
		}
	}
	return Plane{}, false
}

// Dot returns the signed distance from the plane to p.
func (p Plane) Dot(pt Vec3) float64 {
	return p.Normal.Dot(pt) - p.W
}

// Flip returns the plane facing the other way.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Negate(), W: -p.W}
}

// Classify returns which side of the plane pt lies on.
func (p Plane) Classify(pt Vec3) Side {
	d := p.Dot(pt)
	switch {
	case d > PlaneEpsilon:
		return SideFront
	case d < -PlaneEpsilon:
		return SideBack
	default:
		return SideOn
	}
}

// ClassifyPolygon returns SideOn when every point is on the plane, SideSplit
// when points lie on both sides, and the common side otherwise.
func (p Plane) ClassifyPolygon(pts []Vec3) Side {
	var front, back int
	for _, pt := range pts {
		switch p.Classify(pt) {
		case SideFront:
			front++
		case SideBack:
			back++
		}
	}
	switch {
	case front > 0 && back > 0:
		return SideSplit
	case front > 0:
		return SideFront
	case back > 0:
		return SideBack
	default:
		return SideOn
	}
}

// SplitPolygon cuts a convex polygon by the plane. Points on the plane go to
// both halves. Either result may be nil.
func (p Plane) SplitPolygon(pts []Vec3) (front, back []Vec3) {
	n := len(pts)
	for i := range n {
		a, b := pts[i], pts[(i+1)%n]
		da, db := p.Dot(a), p.Dot(b)
		sa, sb := p.Classify(a), p.Classify(b)

		if sa != SideBack {
			front = append(front, a)
		}
		if sa != SideFront {
			back = append(back, a)
		}
		if (sa == SideFront && sb == SideBack) || (sa == SideBack && sb == SideFront) {
			mid := a.Lerp(b, da/(da-db))
			front = append(front, mid)
			back = append(back, mid)
		}
	}
	if len(front) < 3 {
		front = nil
	}
	if len(back) < 3 {
		back = nil
	}
	return front, back
}

// Coplanar reports whether q describes the same plane as p, in either facing.
func (p Plane) Coplanar(q Plane) bool {
	d := p.Normal.Dot(q.Normal)
	if d > 1-1e-6 {
		return math.Abs(p.W-q.W) <= PlaneEpsilon
	}
	if d < -(1 - 1e-6) {
		return math.Abs(p.W+q.W) <= PlaneEpsilon
	}
	return false
}

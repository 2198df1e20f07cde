package render

import "github.com/taigrr/softbsp/pkg/math3d"

// Frustum plane indices. Planes face inward.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumTop
	FrustumBottom
	FrustumNear
)

// Frustum is the world-space view volume of a locked camera: four side
// planes through the eye plus the near plane, and the four corner rays.
type Frustum struct {
	Planes [5]math3d.Plane
	Eye    math3d.Vec3
	Rays   [4]math3d.Vec3
}

// Frustum builds the view volume. The camera must be locked.
func (c *Camera) Frustum() Frustum {
	co := c.Coords
	side := func(n math3d.Vec3) math3d.Plane {
		return math3d.PlaneFromNormal(co.UntransformDir(n.Normalize()), co.Origin)
	}
	var f Frustum
	f.Eye = co.Origin
	f.Planes[FrustumLeft] = side(math3d.V3(c.Proj, 0, c.FX2))
	f.Planes[FrustumRight] = side(math3d.V3(-c.Proj, 0, c.FX2))
	f.Planes[FrustumTop] = side(math3d.V3(0, c.Proj, c.FY2))
	f.Planes[FrustumBottom] = side(math3d.V3(0, -c.Proj, c.FY2))
	f.Planes[FrustumNear] = math3d.PlaneFromNormal(co.ZAxis, co.Origin.Add(co.ZAxis.Scale(NearClip)))

	for i, xy := range [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
		f.Rays[i] = co.UntransformDir(math3d.V3(xy[0]*c.FX2/c.Proj, xy[1]*c.FY2/c.Proj, 1))
	}
	return f
}

// IntersectBox reports whether any part of box may be inside the frustum.
// Each plane is tested against the box corner furthest along its normal.
func (f Frustum) IntersectBox(box math3d.Box) bool {
	if !box.Valid {
		return false
	}
	for i := range f.Planes {
		n := f.Planes[i].Normal
		p := math3d.V3(
			selectComponent(n.X >= 0, box.Max.X, box.Min.X),
			selectComponent(n.Y >= 0, box.Max.Y, box.Min.Y),
			selectComponent(n.Z >= 0, box.Max.Z, box.Min.Z),
		)
		if f.Planes[i].Dot(p) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether p is inside every plane.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].Dot(p) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether a sphere may touch the frustum.
func (f Frustum) IntersectsSphere(center math3d.Vec3, radius float64) bool {
	for i := range f.Planes {
		if f.Planes[i].Dot(center) < -radius {
			return false
		}
	}
	return true
}

// Reaches reports whether the unbounded frustum extends into the front and
// back half spaces of p: a side is reached when the eye or any corner ray
// points into it.
func (f Frustum) Reaches(p math3d.Plane) (front, back bool) {
	d := p.Dot(f.Eye)
	front, back = d > 0, d < 0
	for _, r := range f.Rays {
		s := p.Normal.Dot(r)
		front = front || s > 0
		back = back || s < 0
	}
	return front, back
}

func selectComponent(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

package math3d

import "math"

// Coords is an orthonormal coordinate system with an origin. Transform maps
// world points into it; Untransform maps them back out.
type Coords struct {
	Origin Vec3
	XAxis  Vec3
	YAxis  Vec3
	ZAxis  Vec3
}

// WorldCoords returns the identity coordinate system.
func WorldCoords() Coords {
	return Coords{XAxis: V3(1, 0, 0), YAxis: V3(0, 1, 0), ZAxis: V3(0, 0, 1)}
}

// ViewCoords builds a view system at pos looking along pitch and yaw (radians,
// yaw around world Z, positive pitch looks up). The result has X pointing
// right, Y pointing down and Z pointing forward.
func ViewCoords(pos Vec3, pitch, yaw, roll float64) Coords {
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)

	forward := V3(cp*cy, cp*sy, sp)
	right := forward.Cross(Up()).Normalize()
	if right.LenSq() == 0 {
		// Looking straight up or down; yaw alone fixes the right vector.
		right = V3(sy, -cy, 0)
	}
	down := forward.Cross(right)

	if roll != 0 {
		cr, sr := math.Cos(roll), math.Sin(roll)
		right, down = right.Scale(cr).Add(down.Scale(sr)), down.Scale(cr).Sub(right.Scale(sr))
	}

	return Coords{Origin: pos, XAxis: right, YAxis: down, ZAxis: forward}
}

// Transform maps a world point into this coordinate system.
func (c Coords) Transform(p Vec3) Vec3 {
	d := p.Sub(c.Origin)
	return Vec3{d.Dot(c.XAxis), d.Dot(c.YAxis), d.Dot(c.ZAxis)}
}

// TransformDir maps a world direction into this coordinate system.
func (c Coords) TransformDir(d Vec3) Vec3 {
	return Vec3{d.Dot(c.XAxis), d.Dot(c.YAxis), d.Dot(c.ZAxis)}
}

// Untransform maps a local point back into world space.
func (c Coords) Untransform(p Vec3) Vec3 {
	return c.Origin.Add(c.UntransformDir(p))
}

// UntransformDir maps a local direction back into world space.
func (c Coords) UntransformDir(d Vec3) Vec3 {
	return c.XAxis.Scale(d.X).Add(c.YAxis.Scale(d.Y)).Add(c.ZAxis.Scale(d.Z))
}

// TransformPlane maps a world plane into this coordinate system.
func (c Coords) TransformPlane(p Plane) Plane {
	n := c.TransformDir(p.Normal)
	return Plane{Normal: n, W: p.W - p.Normal.Dot(c.Origin)}
}

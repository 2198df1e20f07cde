package math3d

import "math"

// Box is an axis-aligned bounding box. The zero Box is empty.
type Box struct {
	Min   Vec3
	Max   Vec3
	Valid bool
}

// BoxOf returns the bounds of the given points.
func BoxOf(pts ...Vec3) Box {
	var b Box
	for _, p := range pts {
		b = b.Include(p)
	}
	return b
}

// Include returns b grown to contain p.
func (b Box) Include(p Vec3) Box {
	if !b.Valid {
		return Box{Min: p, Max: p, Valid: true}
	}
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p), Valid: true}
}

// Union returns the bounds of both boxes.
func (b Box) Union(o Box) Box {
	switch {
	case !o.Valid:
		return b
	case !b.Valid:
		return o
	}
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max), Valid: true}
}

// Center returns the center of the box.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Extent returns the half size of the box.
func (b Box) Extent() Vec3 {
	return b.Max.Sub(b.Min).Scale(0.5)
}

// Corners returns the eight corners of the box.
func (b Box) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// ContainsPoint reports whether p is inside or on the box.
func (b Box) ContainsPoint(p Vec3) bool {
	return b.Valid &&
		p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectsSphere reports whether the sphere touches the box.
func (b Box) IntersectsSphere(center Vec3, radius float64) bool {
	if !b.Valid {
		return false
	}
	var d float64
	for _, ax := range [3][3]float64{
		{center.X, b.Min.X, b.Max.X},
		{center.Y, b.Min.Y, b.Max.Y},
		{center.Z, b.Min.Z, b.Max.Z},
	} {
		switch {
		case ax[0] < ax[1]:
			d += (ax[1] - ax[0]) * (ax[1] - ax[0])
		case ax[0] > ax[2]:
			d += (ax[0] - ax[2]) * (ax[0] - ax[2])
		}
	}
	return d <= radius*radius
}

// PlaneSide returns the box's relation to a plane using its extreme corners.
func (b Box) PlaneSide(p Plane) Side {
	c := b.Center()
	e := b.Extent()
	r := math.Abs(p.Normal.X)*e.X + math.Abs(p.Normal.Y)*e.Y + math.Abs(p.Normal.Z)*e.Z
	d := p.Dot(c)
	switch {
	case d > r:
		return SideFront
	case d < -r:
		return SideBack
	default:
		return SideSplit
	}
}

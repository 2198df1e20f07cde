package render

import (
	"math"

	"github.com/taigrr/softbsp/pkg/math3d"
)

// ScreenPoint is a clipped polygon vertex in view space and on screen.
type ScreenPoint struct {
	View   math3d.Vec3
	Screen math3d.Vec2
}

// onPlaneEpsilon is how close the eye may come to a polygon's plane before
// the polygon is treated as edge-on.
const onPlaneEpsilon = 1e-6

type stampedPoint struct {
	stamp uint32
	view  math3d.Vec3
}

// pointCache holds the view-space position of every model point touched this
// frame. An entry is valid only while its stamp matches, so starting a frame
// is a counter bump rather than a clear.
type pointCache struct {
	stamp  uint32
	points []stampedPoint
}

func (c *pointCache) begin(n int) {
	c.stamp++
	if c.stamp == 0 {
		clear(c.points)
		c.stamp = 1
	}
	if len(c.points) < n {
		c.points = make([]stampedPoint, n)
	}
}

func (c *pointCache) view(i int, coords *math3d.Coords, p math3d.Vec3) math3d.Vec3 {
	sp := &c.points[i]
	if sp.stamp != c.stamp {
		sp.view = coords.Transform(p)
		sp.stamp = c.stamp
	}
	return sp.view
}

// viewPlanes returns the clip planes in view space: near, then the four
// sides through the eye.
func (c *Camera) viewPlanes() [5]math3d.Plane {
	side := func(n math3d.Vec3) math3d.Plane {
		return math3d.Plane{Normal: n.Normalize()}
	}
	return [5]math3d.Plane{
		{Normal: math3d.V3(0, 0, 1), W: NearClip},
		side(math3d.V3(c.Proj, 0, c.FX2)),
		side(math3d.V3(-c.Proj, 0, c.FX2)),
		side(math3d.V3(0, c.Proj, c.FY2)),
		side(math3d.V3(0, -c.Proj, c.FY2)),
	}
}

// ClipBspSurf clips node's polygon to the view volume and projects it. It
// returns nil when fewer than three points survive or the projection has no
// area, which is what happens when the eye lies in the polygon's plane.
func (f *Frame) ClipBspSurf(node int) []ScreenPoint {
	m := f.Model
	n := &m.Nodes[node]
	cam := f.Camera
	if math.Abs(n.Plane.Dot(cam.Coords.Origin)) < onPlaneEpsilon {
		return nil
	}

	in := f.clipA[:0]
	for _, v := range m.NodeVerts(node) {
		in = append(in, f.points.view(v, &cam.Coords, m.Points[v]))
	}
	out := f.clipB[:0]
	for _, p := range f.viewPlanes {
		out = clipPolygon(in, p, out[:0])
		in, out = out, in
		if len(in) < 3 {
			f.clipA, f.clipB = in, out
			return nil
		}
	}
	f.clipA, f.clipB = in, out

	screen := f.screen[:0]
	for _, v := range in {
		screen = append(screen, cam.Project(v))
	}
	f.screen = screen
	if math.Abs(math3d.PolygonArea(screen)) < 1e-9 {
		return nil
	}

	pts := f.r.frameMem.points.AllocSlice(len(in))
	for i, v := range in {
		pts[i] = ScreenPoint{View: v, Screen: screen[i]}
	}
	return pts
}

// clipPolygon keeps the part of a convex polygon in front of p.
func clipPolygon(in []math3d.Vec3, p math3d.Plane, out []math3d.Vec3) []math3d.Vec3 {
	n := len(in)
	for i := range n {
		a, b := in[i], in[(i+1)%n]
		da, db := p.Dot(a), p.Dot(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, a.Lerp(b, da/(da-db)))
		}
	}
	return out
}

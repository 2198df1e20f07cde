package render

import (
	"math"

	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
)

// Wireframe draws world-space lines through a locked camera.
type Wireframe struct {
	camera *Camera
	fb     *Framebuffer
}

// NewWireframe creates a new wireframe renderer.
func NewWireframe(camera *Camera, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		camera: camera,
		fb:     fb,
	}
}

// DrawLine3D draws a world-space segment, clipped against the near plane.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	a := w.camera.Coords.Transform(p1)
	b := w.camera.Coords.Transform(p2)
	if a.Z < NearClip && b.Z < NearClip {
		return
	}
	if a.Z < NearClip {
		a = a.Lerp(b, (NearClip-a.Z)/(b.Z-a.Z))
	} else if b.Z < NearClip {
		b = b.Lerp(a, (NearClip-b.Z)/(a.Z-b.Z))
	}
	sa, sb := w.camera.Project(a), w.camera.Project(b)
	if !w.onScreen(sa, sb) {
		return
	}
	w.fb.DrawLine(int(math.Floor(sa.X)), int(math.Floor(sa.Y)), int(math.Floor(sb.X)), int(math.Floor(sb.Y)), color)
}

// onScreen rejects segments far outside the viewport so Bresenham does not
// walk millions of offscreen pixels.
func (w *Wireframe) onScreen(a, b math3d.Vec2) bool {
	lim := 4 * float64(max(w.fb.Width, w.fb.Height))
	for _, p := range [2]math3d.Vec2{a, b} {
		if math.Abs(p.X) > lim || math.Abs(p.Y) > lim {
			return false
		}
	}
	return true
}

// DrawPolygon draws the outline of a closed world-space polygon.
func (w *Wireframe) DrawPolygon(pts []math3d.Vec3, color Color) {
	for i := range pts {
		w.DrawLine3D(pts[i], pts[(i+1)%len(pts)], color)
	}
}

// DrawModel draws every node polygon of m. Portals are drawn in the
// portal color.
func (w *Wireframe) DrawModel(m *model.Model, color, portal Color) {
	for i := range m.Nodes {
		c := color
		if m.Surfs[m.Nodes[i].Surf].Flags.Has(model.PolyPortal) {
			c = portal
		}
		w.DrawPolygon(m.NodePoints(i), c)
	}
}

// DrawEntries outlines the clipped screen polygons of a draw list.
func (w *Wireframe) DrawEntries(entries []*DrawEntry, color Color) {
	for _, e := range entries {
		n := len(e.Points)
		for i := range n {
			a, b := e.Points[i].Screen, e.Points[(i+1)%n].Screen
			w.fb.DrawLine(int(math.Floor(a.X)), int(math.Floor(a.Y)), int(math.Floor(b.X)), int(math.Floor(b.Y)), color)
		}
	}
}

// DrawBox draws the twelve edges of box.
func (w *Wireframe) DrawBox(box math3d.Box, color Color) {
	c := box.Corners()
	edges := [12][2]int{
		{0, 1}, {1, 3}, {3, 2}, {2, 0},
		{4, 5}, {5, 7}, {7, 6}, {6, 4},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	for _, e := range edges {
		w.DrawLine3D(c[e[0]], c[e[1]], color)
	}
}

// DrawPoint draws a point as a small cross.
func (w *Wireframe) DrawPoint(pos math3d.Vec3, size float64, color Color) {
	halfSize := size / 2
	w.DrawLine3D(
		math3d.V3(pos.X-halfSize, pos.Y, pos.Z),
		math3d.V3(pos.X+halfSize, pos.Y, pos.Z),
		color,
	)
	w.DrawLine3D(
		math3d.V3(pos.X, pos.Y-halfSize, pos.Z),
		math3d.V3(pos.X, pos.Y+halfSize, pos.Z),
		color,
	)
	w.DrawLine3D(
		math3d.V3(pos.X, pos.Y, pos.Z-halfSize),
		math3d.V3(pos.X, pos.Y, pos.Z+halfSize),
		color,
	)
}

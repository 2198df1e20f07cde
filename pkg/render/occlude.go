package render

import (
	"image"
	"math"

	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
	"github.com/taigrr/softbsp/pkg/raster"
	"github.com/taigrr/softbsp/pkg/span"
)

// DrawEntry is one visible polygon fragment. Span holds exactly the pixels
// the fragment is responsible for.
type DrawEntry struct {
	Node  int
	Surf  int
	Zone  int
	Flags model.PolyFlags
	Span  *span.Buffer
	MinZ  float64
	MaxZ  float64
	// Key groups the solid pass by zone, texture and palette.
	Key    uint64
	Points []ScreenPoint
}

// Solid reports whether the entry claimed its pixels during occlusion.
func (e *DrawEntry) Solid() bool { return e.Flags.Occludes() }

// DrawKey packs a zone, texture and palette into a sort key.
func DrawKey(zone, texture, palette int) uint64 {
	return uint64(zone)<<48 | uint64(uint32(texture+1))<<16&0xffffffff0000 | uint64(palette&0xffff)
}

// Frame is the state one DrawWorld call threads through its passes.
type Frame struct {
	Camera  *Camera
	Model   *model.Model
	Frustum Frustum
	Time    float64

	// ViewZone is the zone holding the eye; 0 means the eye is in solid
	// space and every zone starts visible.
	ViewZone int
	// Active has bit z set while zone z still has free pixels.
	Active uint64
	// Zones[z] holds the free pixels of zone z. When the eye is in solid
	// space every element is the same buffer.
	Zones   []*span.Buffer
	Entries []*DrawEntry
	Stats   FrameStats

	r          *Renderer
	points     *pointCache
	viewPlanes [5]math3d.Plane
	screenRect image.Rectangle
	clipA      []math3d.Vec3
	clipB      []math3d.Vec3
	screen     []math3d.Vec2
	// steady is set when the view matches the previous frame's exactly.
	steady     bool
}

type nodePhase uint8

const (
	phaseEnter nodePhase = iota // rejection tests, then schedule children
	phasePlane                  // the node's coplanar polygons
	phaseFar                    // the child on the far side of the plane
	phaseExit                   // write back the subtree's visibility
)

type nodeItem struct {
	node  int
	phase nodePhase
	drawn int
}

// OccludeBsp walks the model front to back from the eye, claiming pixels in
// the per-zone span buffers and returning the visible fragments in
// traversal order.
func (r *Renderer) OccludeBsp(f *Frame) []*DrawEntry {
	m := f.Model
	if len(m.Nodes) == 0 {
		return nil
	}
	r.initZones(f)

	stack := append(r.stack[:0], nodeItem{node: 0, phase: phaseEnter})
	for len(stack) > 0 {
		if f.Active == 0 {
			f.Stats.EarlyOut = true
			break
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &m.Nodes[it.node]

		switch it.phase {
		case phaseEnter:
			f.Stats.NodesTested++
			if !r.nodeVisible(f, it.node) {
				n.Flags |= model.NodeAllOccluded
				continue
			}
			near := n.Front
			if n.Plane.Dot(f.Frustum.Eye) < 0 {
				near = n.Back
			}
			stack = append(stack,
				nodeItem{node: it.node, phase: phaseExit, drawn: len(f.Entries) + f.Stats.Portals},
				nodeItem{node: it.node, phase: phaseFar},
				nodeItem{node: it.node, phase: phasePlane},
			)
			if near != model.IndexNone {
				stack = append(stack, nodeItem{node: near, phase: phaseEnter})
			}

		case phasePlane:
			r.drawPlane(f, it.node)

		case phaseFar:
			far := n.Back
			front, back := f.Frustum.Reaches(n.Plane)
			reached := back
			if n.Plane.Dot(f.Frustum.Eye) < 0 {
				far, reached = n.Front, front
			}
			if far == model.IndexNone {
				continue
			}
			if !reached {
				f.Stats.FrustumRejects++
				m.Nodes[far].Flags |= model.NodeAllOccluded
				continue
			}
			stack = append(stack, nodeItem{node: far, phase: phaseEnter})

		case phaseExit:
			if len(f.Entries)+f.Stats.Portals == it.drawn {
				n.Flags |= model.NodeAllOccluded
			} else {
				n.Flags &^= model.NodeAllOccluded
			}
		}
	}
	r.stack = stack[:0]
	return f.Entries
}

// initZones sets up one span buffer per zone with only the viewer's zone
// free.
func (r *Renderer) initZones(f *Frame) {
	m := f.Model
	nz := max(len(m.Zones), 1)
	cam := f.Camera
	full := span.AllocIndexForScreen(cam.SizeX, cam.SizeY, r.frameMem.spans)

	f.ViewZone = m.PointZone(f.Frustum.Eye)
	if f.ViewZone < 0 || f.ViewZone >= nz {
		f.ViewZone = 0
	}
	f.Zones = f.Zones[:0]
	for z := range nz {
		switch {
		case f.ViewZone == 0 || z == f.ViewZone:
			f.Zones = append(f.Zones, full)
		default:
			f.Zones = append(f.Zones, span.AllocIndex(0, cam.SizeY, r.frameMem.spans))
		}
	}
	f.refreshActive()
}

func (f *Frame) refreshActive() {
	f.Active = 0
	for z, b := range f.Zones {
		if !b.IsEmpty() {
			f.Active |= 1 << uint(z)
		}
	}
}

// nodeVisible runs the subtree rejection tests from cheapest to dearest.
func (r *Renderer) nodeVisible(f *Frame, i int) bool {
	n := &f.Model.Nodes[i]
	if n.ZoneMask != 0 && n.ZoneMask&f.Active == 0 {
		f.Stats.ZoneRejects++
		return false
	}
	box, ok := f.Model.NodeBound(i)
	if !ok {
		return true
	}
	if !f.Frustum.IntersectBox(box) {
		f.Stats.FrustumRejects++
		return false
	}
	if n.Flags&model.NodeAllOccluded != 0 && !f.boundVisible(box) {
		f.Stats.BoundRejects++
		return false
	}
	return true
}

// boundVisible reports whether any free pixel of an active zone lies inside
// the screen rectangle enclosing box. Boxes reaching behind the near plane
// are always visible.
func (f *Frame) boundVisible(box math3d.Box) bool {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range box.Corners() {
		v := f.Camera.Coords.Transform(c)
		if v.Z < NearClip {
			return true
		}
		s := f.Camera.Project(v)
		minX, maxX = math.Min(minX, s.X), math.Max(maxX, s.X)
		minY, maxY = math.Min(minY, s.Y), math.Max(maxY, s.Y)
	}
	rect := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	).Intersect(f.screenRect)
	if rect.Empty() {
		return false
	}
	for z, b := range f.Zones {
		if f.Active&(1<<uint(z)) != 0 && b.BoundIsVisible(rect) {
			return true
		}
	}
	return false
}

// chainRows accumulates the screen rows a coplanar chain rasterized to.
// exact is cleared when a polygon was skipped for a reason that may not
// hold next frame.
type chainRows struct {
	startY, endY int
	exact        bool
}

func (c *chainRows) add(y0, y1 int) {
	if y0 >= y1 {
		return
	}
	if c.startY >= c.endY {
		c.startY, c.endY = y0, y1
		return
	}
	c.startY, c.endY = min(c.startY, y0), max(c.endY, y1)
}

// drawPlane handles a node's coplanar chain: solid polygons first so they
// occlude the non-solid ones sharing the plane. A chain that drew nothing
// last frame is skipped when the view is unchanged and no active zone has
// a free pixel in the rows it covered.
func (r *Renderer) drawPlane(f *Frame, head int) {
	m := f.Model
	h := &m.Nodes[head]
	if f.steady && h.Flags&model.NodePolyOccluded != 0 && r.planeFrame[head] == r.serial-1 &&
		!f.rowsVisible(h.LastStartY, h.LastEndY) {
		f.Stats.PolyRejects++
		r.planeFrame[head] = r.serial
		return
	}

	rows := chainRows{exact: true}
	drew := false
	for _, solid := range [2]bool{true, false} {
		for c := head; c != model.IndexNone; c = m.Nodes[c].Coplanar {
			flags := m.Surfs[m.Nodes[c].Surf].Flags
			if flags.Occludes() != solid {
				continue
			}
			if r.drawNodePoly(f, c, &rows) {
				drew = true
			}
		}
	}
	r.planeFrame[head] = r.serial
	if drew || !rows.exact {
		h.Flags &^= model.NodePolyOccluded
		return
	}
	h.Flags |= model.NodePolyOccluded
	h.LastStartY, h.LastEndY = rows.startY, rows.endY
}

// rowsVisible reports whether any active zone has a free pixel in rows
// [y0, y1).
func (f *Frame) rowsVisible(y0, y1 int) bool {
	for z, b := range f.Zones {
		if f.Active&(1<<uint(z)) != 0 && b.BoxIsVisible(0, y0, f.Camera.SizeX, y1) {
			return true
		}
	}
	return false
}

// drawNodePoly clips, rasterizes and occludes one polygon, adding the rows
// it rasterized to rows. It reports whether the polygon exposed any pixel.
func (r *Renderer) drawNodePoly(f *Frame, c int, rows *chainRows) bool {
	m := f.Model
	n := &m.Nodes[c]
	surf := &m.Surfs[n.Surf]
	flags := surf.Flags

	side := 0
	if n.Plane.Dot(f.Frustum.Eye) > 0 {
		side = 1
	}
	if side == 0 && !flags.Any(model.PolyTwoSided|model.PolyPortal) {
		f.Stats.Backfaces++
		return false
	}
	if flags.Has(model.PolyInvisible) && !flags.Has(model.PolyPortal) {
		return false
	}
	zone, other := n.Zone[side], n.Zone[1-side]
	if zone >= len(f.Zones) || f.Active&(1<<uint(zone)) == 0 {
		rows.exact = false
		return false
	}

	pts := f.ClipBspSurf(c)
	if pts == nil {
		f.Stats.Degenerate++
		return false
	}

	mark := r.surfMem.mark()
	defer r.surfMem.release(mark)
	screen := f.screen[:0]
	for _, p := range pts {
		screen = append(screen, p.Screen)
	}
	f.screen = screen
	rs := raster.Setup(screen, f.screenRect, r.surfMem.lines)
	if rs.Empty() {
		return false
	}
	rows.add(rs.StartY, rs.EndY)

	dyn := r.frameMem.spans
	spanMark := dyn.Mark()
	vis := span.AllocIndex(rs.StartY, rs.EndY, dyn)
	buf := f.Zones[zone]

	var visible bool
	switch {
	case flags.Has(model.PolyPortal):
		visible = vis.CopyFromRasterUpdate(buf, &rs)
		if visible {
			f.Stats.Portals++
			if other < len(f.Zones) && f.Zones[other] != buf {
				f.Zones[other].MergeWith(vis)
			} else {
				buf.MergeWith(vis)
			}
			f.refreshActive()
		}
	case flags.Occludes():
		visible = vis.CopyFromRasterUpdate(buf, &rs)
		if visible && buf.IsEmpty() {
			f.refreshActive()
		}
	default:
		visible = vis.CopyFromRaster(buf, &rs)
	}
	if !visible {
		dyn.Release(spanMark)
		return false
	}

	if flags.Has(model.PolyPortal) && flags.Has(model.PolyInvisible) {
		return true
	}
	r.addEntry(f, c, zone, vis, pts)
	return true
}

func (r *Renderer) addEntry(f *Frame, node, zone int, vis *span.Buffer, pts []ScreenPoint) {
	if len(f.Entries) >= r.opts.MaxDrawEntries {
		diag.Drops.DrawList.Add(1)
		return
	}
	m := f.Model
	n := &m.Nodes[node]
	surf := &m.Surfs[n.Surf]

	e := r.frameMem.entries.Alloc()
	*e = DrawEntry{
		Node:   node,
		Surf:   n.Surf,
		Zone:   zone,
		Flags:  surf.Flags,
		Span:   vis,
		MinZ:   math.Inf(1),
		MaxZ:   math.Inf(-1),
		Points: pts,
	}
	for _, p := range pts {
		e.MinZ = math.Min(e.MinZ, p.View.Z)
		e.MaxZ = math.Max(e.MaxZ, p.View.Z)
	}
	palette := 0
	if len(m.SurfTexture(n.Surf).Palette) > 0 {
		palette = 1
	}
	e.Key = DrawKey(zone, surf.Texture, palette)
	vis.AssertValid("draw entry")

	f.Entries = append(f.Entries, e)
	if e.Solid() {
		f.Stats.Solid++
	} else {
		f.Stats.NonSolid++
	}
}

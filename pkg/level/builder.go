// Package level assembles renderable worlds: it builds a BSP model from
// convex polygons, lays out light meshes and raytraces their shadows.
package level

import (
	"fmt"
	"math"

	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
	"github.com/taigrr/softbsp/pkg/texture"
)

// Poly is one convex input polygon, counter-clockwise seen from the front.
// Zone is the zone in front of it and BackZone the zone behind, 0 for solid.
type Poly struct {
	Verts    []math3d.Vec3
	Texture  int
	Flags    model.PolyFlags
	Zone     int
	BackZone int

	// Texture axes in texels per world unit. Left zero, they are derived
	// from the dominant axis of the polygon normal.
	TextureU math3d.Vec3
	TextureV math3d.Vec3
	PanU     float64
	PanV     float64
}

// DefaultSplitCost is the balance penalty charged for each polygon a
// candidate splitter would cut.
const DefaultSplitCost = 8

// maxCandidates bounds how many splitters are scored per node.
const maxCandidates = 48

// Builder collects polygons, zones and textures for a BSP build.
type Builder struct {
	SplitCost int

	zones    []model.Zone
	textures []*texture.Texture
	polys    []Poly
}

// NewBuilder returns a builder whose zone 0 is solid space.
func NewBuilder() *Builder {
	return &Builder{
		SplitCost: DefaultSplitCost,
		zones:     []model.Zone{{Name: "solid"}},
	}
}

// AddZone registers a zone and returns its index.
func (b *Builder) AddZone(z model.Zone) int {
	b.zones = append(b.zones, z)
	return len(b.zones) - 1
}

// AddTexture registers a texture and returns its index.
func (b *Builder) AddTexture(t *texture.Texture) int {
	b.textures = append(b.textures, t)
	return len(b.textures) - 1
}

// AddPoly queues p for the build.
func (b *Builder) AddPoly(p Poly) {
	b.polys = append(b.polys, p)
}

// Polys returns the queued polygons.
func (b *Builder) Polys() []Poly { return b.polys }

// bspPoly is a polygon fragment during the build.
type bspPoly struct {
	pts   []math3d.Vec3
	plane math3d.Plane
	surf  int
	zone  [2]int
}

type build struct {
	m         *model.Model
	splitCost int
	pointIdx  map[math3d.Vec3]int
}

// Build partitions the queued polygons into a BSP model. Degenerate
// polygons are skipped with a warning.
func (b *Builder) Build() (*model.Model, error) {
	if len(b.zones) > model.MaxZones {
		return nil, fmt.Errorf("build bsp: %d zones exceeds %d", len(b.zones), model.MaxZones)
	}
	bd := &build{
		m: &model.Model{
			Zones:    append([]model.Zone(nil), b.zones...),
			Textures: append([]*texture.Texture(nil), b.textures...),
		},
		splitCost: b.SplitCost,
		pointIdx:  make(map[math3d.Vec3]int),
	}

	var list []bspPoly
	for i, p := range b.polys {
		plane, ok := math3d.PlaneFromPolygon(p.Verts)
		if !ok {
			diag.Logger().Warn("skipping degenerate polygon", "poly", i, "verts", len(p.Verts))
			continue
		}
		for _, z := range [2]int{p.Zone, p.BackZone} {
			if z < 0 || z >= len(b.zones) {
				return nil, fmt.Errorf("build bsp: poly %d: zone %d out of range", i, z)
			}
		}
		list = append(list, bspPoly{
			pts:   p.Verts,
			plane: plane,
			surf:  bd.addSurf(p, plane),
			zone:  [2]int{p.BackZone, p.Zone},
		})
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("build bsp: no usable polygons")
	}

	bd.node(list)
	bd.finish(0)
	bd.connectZones()

	if err := bd.m.Validate(); err != nil {
		return nil, fmt.Errorf("build bsp: %w", err)
	}
	diag.Logger().Info("bsp built", "nodes", len(bd.m.Nodes), "surfs", len(bd.m.Surfs), "zones", len(bd.m.Zones))
	return bd.m, nil
}

func (bd *build) addSurf(p Poly, plane math3d.Plane) int {
	tu, tv := p.TextureU, p.TextureV
	if tu.LenSq() == 0 || tv.LenSq() == 0 {
		tu, tv = TextureAxes(plane.Normal)
	}
	bd.m.Surfs = append(bd.m.Surfs, model.Surf{
		Texture:   p.Texture,
		Flags:     p.Flags,
		Base:      p.Verts[0],
		Normal:    plane.Normal,
		TextureU:  tu,
		TextureV:  tv,
		PanU:      p.PanU,
		PanV:      p.PanV,
		LightMesh: model.IndexNone,
	})
	return len(bd.m.Surfs) - 1
}

// TextureAxes returns world-aligned texture axes for a surface normal, one
// texel per world unit.
func TextureAxes(n math3d.Vec3) (u, v math3d.Vec3) {
	switch n.Dominant() {
	case 0:
		return math3d.V3(0, 1, 0), math3d.V3(0, 0, -1)
	case 1:
		return math3d.V3(1, 0, 0), math3d.V3(0, 0, -1)
	default:
		return math3d.V3(1, 0, 0), math3d.V3(0, -1, 0)
	}
}

// node builds the subtree for list and returns its root index.
func (bd *build) node(list []bspPoly) int {
	if len(list) == 0 {
		return model.IndexNone
	}
	split := bd.pick(list)
	plane := list[split].plane

	var on, front, back []bspPoly
	on = append(on, list[split])
	for i, p := range list {
		if i == split {
			continue
		}
		switch plane.ClassifyPolygon(p.pts) {
		case math3d.SideOn:
			on = append(on, p)
		case math3d.SideFront:
			front = append(front, p)
		case math3d.SideBack:
			back = append(back, p)
		default:
			f, bk := plane.SplitPolygon(p.pts)
			if len(f) >= 3 {
				front = append(front, bspPoly{pts: f, plane: p.plane, surf: p.surf, zone: p.zone})
			}
			if len(bk) >= 3 {
				back = append(back, bspPoly{pts: bk, plane: p.plane, surf: p.surf, zone: p.zone})
			}
		}
	}

	head := bd.emit(on[0])
	prev := head
	for _, p := range on[1:] {
		c := bd.emit(p)
		bd.m.Nodes[prev].Coplanar = c
		prev = c
	}

	f := bd.node(front)
	bk := bd.node(back)
	bd.m.Nodes[head].Front = f
	bd.m.Nodes[head].Back = bk
	return head
}

func (bd *build) emit(p bspPoly) int {
	pool := len(bd.m.Verts)
	for _, v := range p.pts {
		bd.m.Verts = append(bd.m.Verts, bd.point(v))
	}
	bd.m.Nodes = append(bd.m.Nodes, model.Node{
		Plane:    p.plane,
		Front:    model.IndexNone,
		Back:     model.IndexNone,
		Coplanar: model.IndexNone,
		Surf:     p.surf,
		VertPool: pool,
		NumVerts: len(p.pts),
		Zone:     p.zone,
		Bound:    model.IndexNone,
	})
	return len(bd.m.Nodes) - 1
}

func (bd *build) point(v math3d.Vec3) int {
	if i, ok := bd.pointIdx[v]; ok {
		return i
	}
	bd.m.Points = append(bd.m.Points, v)
	bd.pointIdx[v] = len(bd.m.Points) - 1
	return len(bd.m.Points) - 1
}

// pick scores candidate splitters by front/back imbalance plus a penalty per
// split, and returns the cheapest. Portals are preferred on ties so zone
// boundaries sit high in the tree.
func (bd *build) pick(list []bspPoly) int {
	step := 1
	if len(list) > maxCandidates {
		step = len(list) / maxCandidates
	}
	best, bestCost := 0, math.MaxInt
	for c := 0; c < len(list); c += step {
		plane := list[c].plane
		var nf, nb, ns int
		for i, p := range list {
			if i == c {
				continue
			}
			switch plane.ClassifyPolygon(p.pts) {
			case math3d.SideFront:
				nf++
			case math3d.SideBack:
				nb++
			case math3d.SideSplit:
				ns++
			}
		}
		cost := abs(nf-nb) + ns*bd.splitCost
		if cost < bestCost || (cost == bestCost && bd.m.Surfs[list[c].surf].Flags.Has(model.PolyPortal)) {
			best, bestCost = c, cost
		}
	}
	return best
}

// finish fills subtree bounds and zone masks below node i.
func (bd *build) finish(i int) (math3d.Box, uint64) {
	if i == model.IndexNone {
		return math3d.Box{}, 0
	}
	var box math3d.Box
	var mask uint64
	for c := i; c != model.IndexNone; c = bd.m.Nodes[c].Coplanar {
		n := &bd.m.Nodes[c]
		own := math3d.BoxOf(bd.m.NodePoints(c)...)
		if c != i {
			n.Bound = len(bd.m.Bounds)
			bd.m.Bounds = append(bd.m.Bounds, own)
			n.ZoneMask = zoneBits(n.Zone)
		}
		box = box.Union(own)
		mask |= zoneBits(n.Zone)
	}
	n := bd.m.Nodes[i]
	fb, fm := bd.finish(n.Front)
	bb, bm := bd.finish(n.Back)
	box = box.Union(fb).Union(bb)
	mask |= fm | bm

	bd.m.Nodes[i].Bound = len(bd.m.Bounds)
	bd.m.Bounds = append(bd.m.Bounds, box)
	bd.m.Nodes[i].ZoneMask = mask
	return box, mask
}

func zoneBits(z [2]int) uint64 {
	return 1<<uint(z[0]) | 1<<uint(z[1])
}

func (bd *build) connectZones() {
	for _, n := range bd.m.Nodes {
		if !bd.m.Surfs[n.Surf].Flags.Has(model.PolyPortal) {
			continue
		}
		a, b := n.Zone[0], n.Zone[1]
		bd.m.Zones[a].Connect |= 1 << uint(b)
		bd.m.Zones[b].Connect |= 1 << uint(a)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

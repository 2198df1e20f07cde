// Package model defines the BSP world the renderer walks: nodes carrying
// convex polygons, the surfaces they share, zones and the light mesh index
// each lit surface samples.
package model

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/texture"
)

// IndexNone marks a missing child, surface or mesh.
const IndexNone = -1

// MaxZones is the number of zones a zone mask can address.
const MaxZones = 64

// MaxPolyLights is the most lights one light mesh can index.
const MaxPolyLights = 16

// Node is one BSP node. Its polygon lies on Plane; Coplanar chains further
// polygons on the same plane. Zone[0] is the zone behind the plane and
// Zone[1] the zone in front; zone 0 means solid space.
type Node struct {
	Plane    math3d.Plane
	ZoneMask uint64

	Front    int
	Back     int
	Coplanar int

	Surf     int
	VertPool int
	NumVerts int
	Zone     [2]int
	Bound    int

	// Written by the occlusion pass and read back next frame.
	Flags NodeFlags
	// Screen rows [LastStartY, LastEndY) the coplanar chain covered while
	// NodePolyOccluded.
	LastStartY int
	LastEndY   int
}

// Surf is the shared description of every polygon cut from one face.
// Texture coordinates are u = (p-Base)·TextureU + PanU, and likewise for v.
type Surf struct {
	Texture   int
	Flags     PolyFlags
	Base      math3d.Vec3
	Normal    math3d.Vec3
	TextureU  math3d.Vec3
	TextureV  math3d.Vec3
	PanU      float64
	PanV      float64
	LightMesh int
}

// Zone is a region of space bounded by solid walls and portals.
type Zone struct {
	Name     string
	Ambient  float32
	FogColor color.RGBA
	// Connect has bit i set when this zone shares a portal with zone i.
	Connect uint64
}

// LightMeshIndex is a lit surface's grid of lighting sample points. Point
// (i, j) sits at Origin + UAxis*i + VAxis*j in world space and at texture
// coordinates (UStart + i*Spacing, VStart + j*Spacing).
type LightMeshIndex struct {
	Origin  math3d.Vec3
	UAxis   math3d.Vec3
	VAxis   math3d.Vec3
	UStart  float64
	VStart  float64
	USize   int
	VSize   int
	Spacing float64
	Shift   uint

	// Lights indexes the level's light list. Shadows[k] holds one coverage
	// byte per mesh point for Lights[k]; 255 is fully lit.
	Lights  []int
	Shadows [][]uint8
}

// Points returns the number of sample points.
func (l *LightMeshIndex) Points() int { return l.USize * l.VSize }

// PointAt returns the world position of sample (i, j).
func (l *LightMeshIndex) PointAt(i, j int) math3d.Vec3 {
	return l.Origin.Add(l.UAxis.Scale(float64(i))).Add(l.VAxis.Scale(float64(j)))
}

// Model is a complete BSP world. Node 0 is the root.
type Model struct {
	Nodes       []Node
	Surfs       []Surf
	Points      []math3d.Vec3
	Verts       []int
	Bounds      []math3d.Box
	Zones       []Zone
	LightMeshes []LightMeshIndex
	Textures    []*texture.Texture

	defaultTexture *texture.Texture
}

// NodeVerts returns the point indices of node i's polygon.
func (m *Model) NodeVerts(i int) []int {
	n := &m.Nodes[i]
	return m.Verts[n.VertPool : n.VertPool+n.NumVerts]
}

// NodePoints returns node i's polygon in world space.
func (m *Model) NodePoints(i int) []math3d.Vec3 {
	idx := m.NodeVerts(i)
	pts := make([]math3d.Vec3, len(idx))
	for k, v := range idx {
		pts[k] = m.Points[v]
	}
	return pts
}

// SurfTexture returns the texture of surf, or the default texture.
func (m *Model) SurfTexture(surf int) *texture.Texture {
	if t := m.Surfs[surf].Texture; t >= 0 && t < len(m.Textures) && m.Textures[t] != nil {
		return m.Textures[t]
	}
	if m.defaultTexture == nil {
		m.defaultTexture = texture.Default()
	}
	return m.defaultTexture
}

// LightMesh returns the light mesh of surf, or nil if it has none.
func (m *Model) LightMesh(surf int) *LightMeshIndex {
	if i := m.Surfs[surf].LightMesh; i >= 0 && i < len(m.LightMeshes) {
		return &m.LightMeshes[i]
	}
	return nil
}

// NodeBound returns the subtree bounds of node i.
func (m *Model) NodeBound(i int) (math3d.Box, bool) {
	if b := m.Nodes[i].Bound; b >= 0 && b < len(m.Bounds) {
		return m.Bounds[b], true
	}
	return math3d.Box{}, false
}

// ResetVisibility clears the cached per-node occlusion results.
func (m *Model) ResetVisibility() {
	for i := range m.Nodes {
		m.Nodes[i].Flags = 0
		m.Nodes[i].LastStartY, m.Nodes[i].LastEndY = 0, 0
	}
}

// Stats summarises a model for logs and the info command.
type Stats struct {
	Nodes, Surfs, Points, Zones, LightMeshes, Portals int
	Depth                                             int
}

// Stats returns counts describing the model.
func (m *Model) Stats() Stats {
	s := Stats{
		Nodes:       len(m.Nodes),
		Surfs:       len(m.Surfs),
		Points:      len(m.Points),
		Zones:       len(m.Zones),
		LightMeshes: len(m.LightMeshes),
	}
	for _, surf := range m.Surfs {
		if surf.Flags.Has(PolyPortal) {
			s.Portals++
		}
	}
	if len(m.Nodes) > 0 {
		s.Depth = m.depth(0)
	}
	return s
}

func (m *Model) depth(i int) int {
	d := 0
	for _, c := range [2]int{m.Nodes[i].Front, m.Nodes[i].Back} {
		if c != IndexNone {
			d = max(d, m.depth(c))
		}
	}
	return d + 1
}

// Validate checks the model's index references.
func (m *Model) Validate() error {
	var errs []error
	check := func(i int, what string, v, limit int, optional bool) {
		if optional && v == IndexNone {
			return
		}
		if v < 0 || v >= limit {
			errs = append(errs, fmt.Errorf("node %d: %s %d out of range [0,%d)", i, what, v, limit))
		}
	}
	for i, n := range m.Nodes {
		check(i, "front", n.Front, len(m.Nodes), true)
		check(i, "back", n.Back, len(m.Nodes), true)
		check(i, "coplanar", n.Coplanar, len(m.Nodes), true)
		check(i, "surf", n.Surf, len(m.Surfs), false)
		check(i, "bound", n.Bound, len(m.Bounds), true)
		for _, z := range n.Zone {
			check(i, "zone", z, max(len(m.Zones), 1), false)
		}
		if n.NumVerts < 3 || n.VertPool < 0 || n.VertPool+n.NumVerts > len(m.Verts) {
			errs = append(errs, fmt.Errorf("node %d: bad vertex pool %d+%d", i, n.VertPool, n.NumVerts))
			continue
		}
		for _, v := range m.NodeVerts(i) {
			if v < 0 || v >= len(m.Points) {
				errs = append(errs, fmt.Errorf("node %d: point %d out of range", i, v))
			}
		}
	}
	if len(m.Zones) > MaxZones {
		errs = append(errs, fmt.Errorf("%d zones exceeds the limit of %d", len(m.Zones), MaxZones))
	}
	for i, s := range m.Surfs {
		if s.LightMesh != IndexNone && (s.LightMesh < 0 || s.LightMesh >= len(m.LightMeshes)) {
			errs = append(errs, fmt.Errorf("surf %d: light mesh %d out of range", i, s.LightMesh))
		}
	}
	for i, lm := range m.LightMeshes {
		if len(lm.Lights) > MaxPolyLights {
			errs = append(errs, fmt.Errorf("light mesh %d: %d lights exceeds %d", i, len(lm.Lights), MaxPolyLights))
		}
		if len(lm.Shadows) != len(lm.Lights) {
			errs = append(errs, fmt.Errorf("light mesh %d: %d shadow maps for %d lights", i, len(lm.Shadows), len(lm.Lights)))
		}
	}
	return errors.Join(errs...)
}

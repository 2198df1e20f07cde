package level

import (
	"cmp"
	"math"
	"slices"

	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
)

// maxMeshPoints bounds one light mesh; larger surfaces get coarser spacing.
const maxMeshPoints = 1 << 14

// unlitFlags are surfaces that never carry a light mesh.
const unlitFlags = model.PolyUnlit | model.PolyFakeBackdrop | model.PolyInvisible | model.PolyPortal

// BuildLightMeshes lays out a light mesh for every lit surface of m and
// records which of lights reach it. Moving and backdrop lights are left to
// the frame-time light manager. spacing is in texels.
func BuildLightMeshes(m *model.Model, lights []*light.Actor, spacing float64) {
	if spacing <= 0 {
		spacing = DefaultMeshSpacing
	}
	nodes := make([][]int, len(m.Surfs))
	for i, n := range m.Nodes {
		nodes[n.Surf] = append(nodes[n.Surf], i)
	}

	m.LightMeshes = m.LightMeshes[:0]
	for s := range m.Surfs {
		surf := &m.Surfs[s]
		surf.LightMesh = model.IndexNone
		if surf.Flags.Any(unlitFlags) || len(nodes[s]) == 0 {
			continue
		}
		idx, ok := layoutMesh(m, surf, nodes[s], surfSpacing(surf.Flags, spacing))
		if !ok {
			continue
		}
		idx.Lights = surfLights(m, surf, nodes[s], lights)
		surf.LightMesh = len(m.LightMeshes)
		m.LightMeshes = append(m.LightMeshes, idx)
	}
	diag.Logger().Debug("light meshes built", "meshes", len(m.LightMeshes))
}

func surfSpacing(f model.PolyFlags, spacing float64) float64 {
	switch {
	case f.Has(model.PolyHighShadowDetail):
		return spacing / 2
	case f.Has(model.PolyLowShadowDetail):
		return spacing * 2
	}
	return spacing
}

// layoutMesh covers the texture-space extent of a surface's polygons with a
// grid of sample points.
func layoutMesh(m *model.Model, surf *model.Surf, nodes []int, spacing float64) (model.LightMeshIndex, bool) {
	minU, minV := math.Inf(1), math.Inf(1)
	maxU, maxV := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		for _, p := range m.NodePoints(n) {
			d := p.Sub(surf.Base)
			u, v := d.Dot(surf.TextureU), d.Dot(surf.TextureV)
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}
	}

	// Columns of the inverse of the matrix with rows TextureU, TextureV,
	// Normal map texture offsets back to world offsets.
	tu, tv, n := surf.TextureU, surf.TextureV, surf.Normal
	det := tu.Dot(tv.Cross(n))
	if math.Abs(det) < 1e-9 {
		return model.LightMeshIndex{}, false
	}
	du := tv.Cross(n).Scale(1 / det)
	dv := n.Cross(tu).Scale(1 / det)

	var idx model.LightMeshIndex
	for {
		idx.UStart = math.Floor(minU/spacing) * spacing
		idx.VStart = math.Floor(minV/spacing) * spacing
		idx.USize = int(math.Ceil((maxU-idx.UStart)/spacing)) + 1
		idx.VSize = int(math.Ceil((maxV-idx.VStart)/spacing)) + 1
		if idx.USize*idx.VSize <= maxMeshPoints {
			break
		}
		spacing *= 2
	}
	idx.USize, idx.VSize = max(idx.USize, 2), max(idx.VSize, 2)
	idx.Spacing = spacing
	idx.Shift = uint(max(0, math.Round(math.Log2(spacing))))
	idx.Origin = surf.Base.Add(du.Scale(idx.UStart)).Add(dv.Scale(idx.VStart))
	idx.UAxis = du.Scale(spacing)
	idx.VAxis = dv.Scale(spacing)
	return idx, true
}

// surfLights returns the lights that can reach a surface, brightest first,
// capped at model.MaxPolyLights.
func surfLights(m *model.Model, surf *model.Surf, nodes []int, lights []*light.Actor) []int {
	var box math3d.Box
	for _, n := range nodes {
		box = box.Union(math3d.BoxOf(m.NodePoints(n)...))
	}
	plane := math3d.PlaneFromNormal(surf.Normal, surf.Base)

	type cand struct {
		index int
		score float64
	}
	var found []cand
	for i, a := range lights {
		switch a.Kind() {
		case light.NotLight, light.BackdropLight, light.MovingLight:
			continue
		}
		d := plane.Dot(a.Location)
		if math.Abs(d) >= a.Radius || (d <= 0 && !surf.Flags.Has(model.PolyTwoSided)) {
			continue
		}
		if !box.IntersectsSphere(a.Location, a.Radius) {
			continue
		}
		found = append(found, cand{i, a.Brightness * (1 - math.Abs(d)/a.Radius)})
	}
	slices.SortStableFunc(found, func(a, b cand) int { return cmp.Compare(b.score, a.score) })
	if len(found) > model.MaxPolyLights {
		diag.Drops.PolyLights.Add(int64(len(found) - model.MaxPolyLights))
		found = found[:model.MaxPolyLights]
	}
	out := make([]int, len(found))
	for i, c := range found {
		out[i] = c.index
	}
	return out
}

// shadowOffset lifts sample points off their surface before tracing.
const shadowOffset = 1.0

// Illuminate raytraces a coverage map for every light of every light mesh.
// Samples that fall in solid space, past the edge of their polygon, copy
// their nearest traced neighbour.
func Illuminate(m *model.Model, lights []*light.Actor) {
	for s := range m.Surfs {
		surf := &m.Surfs[s]
		if surf.LightMesh == model.IndexNone {
			continue
		}
		idx := &m.LightMeshes[surf.LightMesh]
		idx.Shadows = make([][]uint8, len(idx.Lights))
		for k, li := range idx.Lights {
			idx.Shadows[k] = traceShadows(m, surf, idx, lights[li].Location)
		}
	}
}

func traceShadows(m *model.Model, surf *model.Surf, idx *model.LightMeshIndex, target math3d.Vec3) []uint8 {
	n := surf.Normal
	if n.Dot(target.Sub(idx.Origin)) < 0 && surf.Flags.Has(model.PolyTwoSided) {
		n = n.Negate()
	}
	out := make([]uint8, idx.Points())
	known := make([]bool, len(out))
	for j := range idx.VSize {
		for i := range idx.USize {
			p := idx.PointAt(i, j).Add(n.Scale(shadowOffset))
			if m.PointZone(p) == 0 {
				continue
			}
			k := j*idx.USize + i
			known[k] = true
			if m.LineCheck(p, target) {
				out[k] = 255
			}
		}
	}
	fillUnknown(out, known, idx.USize, idx.VSize)
	return out
}

// fillUnknown spreads traced values into untraced samples, one ring per pass.
func fillUnknown(v []uint8, known []bool, w, h int) {
	for range w + h {
		changed := false
		next := slices.Clone(known)
		for y := range h {
			for x := range w {
				k := y*w + x
				if known[k] {
					continue
				}
				best, ok := uint8(0), false
				for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= w || ny >= h || !known[ny*w+nx] {
						continue
					}
					best, ok = max(best, v[ny*w+nx]), true
				}
				if ok {
					v[k], next[k], changed = best, true, true
				}
			}
		}
		known = next
		if !changed {
			return
		}
	}
}

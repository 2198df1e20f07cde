package render

import (
	"math"

	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
	"github.com/taigrr/softbsp/pkg/span"
)

// Lattice storage limits, in lattice points per row and rows.
const (
	MaxXR = 1024
	MaxYR = 512
)

// maxInterBits is the widest light sampling stride, in lattice points.
const maxInterBits = 2

// LatticeTolerance bounds the estimated texture interpolation error, in
// pixels, along a scanline (Line) and down a column (Cell).
type LatticeTolerance struct {
	Line float64 `json:"line_tolerance"`
	Cell float64 `json:"cell_tolerance"`
}

// DefaultLatticeTolerance is tuned for full-resolution output.
var DefaultLatticeTolerance = LatticeTolerance{Line: 0.5, Cell: 0.75}

// affine is a quantity linear in screen space.
type affine struct {
	Origin, SX, SY float64
}

// At evaluates the quantity at screen point (x, y).
func (a affine) At(x, y float64) float64 { return a.Origin + a.SX*x + a.SY*y }

// Gradients are a surface's screen-affine setup values: 1/z and texture
// u/z, v/z.
type Gradients struct {
	RZ, URZ, VRZ affine
}

// UV returns the exact perspective texture coordinates at screen (x, y).
func (g Gradients) UV(x, y float64) (u, v float64) {
	rz := g.RZ.At(x, y)
	return g.URZ.At(x, y) / rz, g.VRZ.At(x, y) / rz
}

// SurfGradients computes the gradients of a surface lying in plane, with
// texture pans panU, panV. ok is false when the eye lies in the plane.
func (c *Camera) SurfGradients(plane math3d.Plane, surf *model.Surf, panU, panV float64) (g Gradients, ok bool) {
	vp := c.Coords.TransformPlane(plane)
	w := vp.W
	if math.Abs(w) < onPlaneEpsilon {
		return g, false
	}
	n := vp.Normal
	g.RZ = affine{
		SX:     n.X / (w * c.Proj),
		SY:     n.Y / (w * c.Proj),
		Origin: (n.Z - (n.X*c.FX2+n.Y*c.FY2)/c.Proj) / w,
	}
	axis := func(t math3d.Vec3, pan float64) affine {
		t0 := c.Coords.Origin.Sub(surf.Base).Dot(t) + pan
		tv := c.Coords.TransformDir(t)
		return affine{
			SX:     t0*g.RZ.SX + tv.X/c.Proj,
			SY:     t0*g.RZ.SY + tv.Y/c.Proj,
			Origin: t0*g.RZ.Origin + tv.Z - (tv.X*c.FX2+tv.Y*c.FY2)/c.Proj,
		}
	}
	g.URZ = axis(surf.TextureU, panU)
	g.VRZ = axis(surf.TextureV, panV)
	return g, true
}

// LatticeError estimates the worst texture interpolation error, in pixels,
// of cells width pixels wide along an axis whose 1/z gradient is grad, on a
// surface no deeper than maxZ. It grows with the square of the width.
func LatticeError(width, grad, maxZ float64) float64 {
	return width * width / 4 * math.Abs(grad) * maxZ
}

// surfaceSetup is what the compositor needs for one fragment: lattice
// geometry and the per-cell interpolation steps.
type surfaceSetup struct {
	grad         Gradients
	xbits, ybits uint
	inter        uint
	cellY        int
	cells        [][]TexCell
	cellBase     []int
}

// TexCell is one lattice cell prepared for bilinear stepping. Values are at
// the cell's top-left pixel; the D*X steps are per pixel along the top
// edge, D*Y per pixel down the left edge and DD*X the change of the X step
// per row.
type TexCell struct {
	U, V, DUX, DVX, DUY, DVY, DDUX, DDVX float64

	L, DLX, DLY, DDLX light.Sample
	F, DFX, DFY, DDFX light.Sample

	Mip int
}

// latticeBits picks the cell size for a fragment: the largest cells the
// lighting allows, shrunk until the error estimate meets the tolerance,
// then held to the screen and storage limits.
func (r *Renderer) latticeBits(cam *Camera, e *DrawEntry, g Gradients, limX, limY uint) (xbits, ybits uint) {
	o := &r.opts
	xbits = min(o.MaxXBits, limX)
	ybits = min(o.MaxYBits, limY)
	for xbits > o.MinBits && LatticeError(float64(int(1)<<xbits), g.RZ.SX, e.MaxZ) > o.Tolerance.Line {
		xbits--
	}
	for ybits > o.MinBits && LatticeError(float64(int(1)<<ybits), g.RZ.SY, e.MaxZ) > o.Tolerance.Cell {
		ybits--
	}
	for xbits > 0 && 1<<xbits > 2*cam.SizeX {
		xbits--
	}
	for ybits > 0 && 1<<ybits > 2*cam.SizeY {
		ybits--
	}
	for xbits < light.MaxLatticeXBits && cam.SizeX>>xbits+2 > MaxXR {
		xbits++
	}
	for ybits < light.MaxLatticeYBits && cam.SizeY>>ybits+2 > MaxYR {
		ybits++
	}
	return xbits, ybits
}

// interBits picks the light sampling stride: one sample per light mesh cell
// as projected at the fragment's nearest depth, at most 1<<maxInterBits
// lattice points apart.
func interBits(cam *Camera, e *DrawEntry, surf *model.Surf, mesh *light.Mesh, xbits uint) uint {
	if mesh == nil || mesh.Index == nil {
		return maxInterBits
	}
	scale := texelScale(surf)
	if scale == 0 {
		return 0
	}
	px := mesh.Index.Spacing / scale * cam.Proj / math.Max(e.MinZ, NearClip)
	cells := px / float64(int(1)<<xbits)
	switch {
	case cells >= 4:
		return 2
	case cells >= 2:
		return 1
	}
	return 0
}

// texelScale is the texture density of a surface in texels per world unit.
func texelScale(surf *model.Surf) float64 {
	return math.Max(surf.TextureU.Len(), surf.TextureV.Len())
}

// setupLattice builds the lattice and cell tables of one fragment.
func (r *Renderer) setupLattice(f *Frame, e *DrawEntry, mesh *light.Mesh, panU, panV float64) (*surfaceSetup, bool) {
	m := f.Model
	surf := &m.Surfs[e.Surf]
	g, ok := f.Camera.SurfGradients(m.Nodes[e.Node].Plane, surf, panU, panV)
	if !ok {
		return nil, false
	}
	limX, limY := r.lights.LatticeLimits(surf, mesh)
	st := &surfaceSetup{grad: g}
	st.xbits, st.ybits = r.latticeBits(f.Camera, e, g, limX, limY)
	st.inter = interBits(f.Camera, e, surf, mesh, st.xbits)

	rect := span.CalcRectFrom(e.Span, st.xbits, st.ybits, r.surfMem.spans)
	lat := span.CalcLatticeFrom(rect, r.surfMem.spans)
	rows, base := r.latticeSetupLoop(f, e, mesh, st, lat)
	r.rectLoop(f, e, st, rect, lat.StartY, rows, base)
	return st, true
}

// latticeSetupLoop evaluates every lattice point of lat, one row at a time,
// stepping 1/z, u/z and v/z incrementally along the row, then runs the
// lighting and texture effects over the row.
func (r *Renderer) latticeSetupLoop(f *Frame, e *DrawEntry, mesh *light.Mesh, st *surfaceSetup, lat *span.Buffer) (rows [][]light.LatticePoint, base []int) {
	cam := f.Camera
	surf := &f.Model.Surfs[e.Surf]
	g := st.grad
	w := float64(int(1) << st.xbits)
	h := float64(int(1) << st.ybits)
	minRZ := 1 / e.MaxZ
	maxRZ := 1 / math.Max(e.MinZ, NearClip)

	rows = make([][]light.LatticePoint, lat.EndY-lat.StartY)
	base = make([]int, len(rows))
	stepX := cam.Coords.XAxis.Scale(w / cam.Proj)
	for j := lat.StartY; j < lat.EndY; j++ {
		line := lat.Line(j)
		if len(line) == 0 {
			continue
		}
		x0, x1 := line[0].Start, line[len(line)-1].End
		row := r.surfMem.lattice.AllocSlice(x1 - x0)
		rows[j-lat.StartY], base[j-lat.StartY] = row, x0

		sx := float64(x0)*w + 0.5
		sy := float64(j)*h + 0.5
		rz, urz, vrz := g.RZ.At(sx, sy), g.URZ.At(sx, sy), g.VRZ.At(sx, sy)
		dir := cam.Coords.UntransformDir(math3d.V3((sx-cam.FX2)/cam.Proj, (sy-cam.FY2)/cam.Proj, 1))
		for i := range row {
			z := 1 / math.Min(math.Max(rz, minRZ), maxRZ)
			row[i] = light.LatticePoint{
				World: cam.Coords.Origin.Add(dir.Scale(z)),
				U:     urz * z,
				V:     vrz * z,
			}
			rz += g.RZ.SX * w
			urz += g.URZ.SX * w
			vrz += g.VRZ.SX * w
			dir = dir.Add(stepX)
		}
		r.lights.ApplyLatticeEffects(mesh, surf, e.Zone, row, 1<<st.inter)
		f.Stats.LatticePoints += len(row)
	}
	return rows, base
}

// rectLoop turns the four lattice corners of every cell into bilinear
// stepping values and picks the cell's mip.
func (r *Renderer) rectLoop(f *Frame, e *DrawEntry, st *surfaceSetup, rect *span.Buffer, latY int, rows [][]light.LatticePoint, base []int) {
	surf := &f.Model.Surfs[e.Surf]
	scale := texelScale(surf)
	w := float64(int(1) << st.xbits)
	h := float64(int(1) << st.ybits)
	wf, hf, whf := float32(1/w), float32(1/h), float32(1/(w*h))
	minZ, maxZ := math.Max(e.MinZ, NearClip), e.MaxZ

	st.cellY = rect.StartY
	st.cells = make([][]TexCell, rect.EndY-rect.StartY)
	st.cellBase = make([]int, len(st.cells))
	for cj := rect.StartY; cj < rect.EndY; cj++ {
		line := rect.Line(cj)
		if len(line) == 0 {
			continue
		}
		x0, x1 := line[0].Start, line[len(line)-1].End
		out := r.surfMem.cells.AllocSlice(x1 - x0)
		st.cells[cj-rect.StartY], st.cellBase[cj-rect.StartY] = out, x0

		top, bot := rows[cj-latY], rows[cj+1-latY]
		tb, bb := base[cj-latY], base[cj+1-latY]
		for _, s := range line {
			for ci := s.Start; ci < s.End; ci++ {
				p00, p10 := &top[ci-tb], &top[ci+1-tb]
				p01, p11 := &bot[ci-bb], &bot[ci+1-bb]
				c := &out[ci-x0]
				c.U, c.V = p00.U, p00.V
				c.DUX, c.DVX = (p10.U-p00.U)/w, (p10.V-p00.V)/w
				c.DUY, c.DVY = (p01.U-p00.U)/h, (p01.V-p00.V)/h
				c.DDUX = (p11.U - p01.U - p10.U + p00.U) / (w * h)
				c.DDVX = (p11.V - p01.V - p10.V + p00.V) / (w * h)

				c.L = p00.Light
				c.DLX = p10.Light.Add(p00.Light.Scale(-1)).Scale(wf)
				c.DLY = p01.Light.Add(p00.Light.Scale(-1)).Scale(hf)
				c.DDLX = p11.Light.Add(p01.Light.Scale(-1)).Add(p10.Light.Scale(-1)).Add(p00.Light).Scale(whf)
				c.F = p00.Fog
				c.DFX = p10.Fog.Add(p00.Fog.Scale(-1)).Scale(wf)
				c.DFY = p01.Fog.Add(p00.Fog.Scale(-1)).Scale(hf)
				c.DDFX = p11.Fog.Add(p01.Fog.Scale(-1)).Add(p10.Fog.Scale(-1)).Add(p00.Fog).Scale(whf)

				rz := st.grad.RZ.At((float64(ci)+0.5)*w, (float64(cj)+0.5)*h)
				z := maxZ
				if rz > 0 {
					z = math.Min(math.Max(1/rz, minZ), maxZ)
				}
				c.Mip = r.mipLevel(z * scale)
			}
		}
		f.Stats.Cells += x1 - x0
	}
}

// maxMips is the deepest mip the table selects.
const maxMips = 12

// buildMipTable fills the depth thresholds of each mip for a frame: mip k
// is used once a cell shows at least 1<<k texels per pixel, that is once
// depth times texel density reaches Proj<<k.
func (r *Renderer) buildMipTable(cam *Camera) {
	for k := range r.mipTable {
		r.mipTable[k] = cam.Proj * float64(int(1)<<k)
	}
}

func (r *Renderer) mipLevel(scaledZ float64) int {
	k := 0
	for k+1 < len(r.mipTable) && scaledZ >= r.mipTable[k+1] {
		k++
	}
	return k
}

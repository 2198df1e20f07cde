package light

import (
	"math"

	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
)

// Largest lattice cells, in bits per axis.
const (
	MaxLatticeXBits = 7
	MaxLatticeYBits = 6
)

// Mesh is the resolved illumination of one surface for one frame. A Mesh
// without an Index is lit uniformly by Constant.
type Mesh struct {
	Index    *model.LightMeshIndex
	Samples  []Sample
	Constant Sample
	Dynamic  bool
	// LatticeBits caps lattice cells on this surface, 0 for no cap.
	LatticeBits uint

	base, tu, tv math3d.Vec3
}

// At returns the clamped light at world point p on the surface, sampled
// bilinearly from the mesh.
func (m *Mesh) At(p math3d.Vec3) Sample {
	if m.Index == nil || len(m.Samples) == 0 {
		return m.Constant.Clamp()
	}
	idx := m.Index
	d := p.Sub(m.base)
	fu := (d.Dot(m.tu) - idx.UStart) / idx.Spacing
	fv := (d.Dot(m.tv) - idx.VStart) / idx.Spacing

	i0, tx := cell(fu, idx.USize)
	j0, ty := cell(fv, idx.VSize)
	i1, j1 := min(i0+1, idx.USize-1), min(j0+1, idx.VSize-1)

	w := idx.USize
	top := m.Samples[j0*w+i0].Lerp(m.Samples[j0*w+i1], tx)
	bot := m.Samples[j1*w+i0].Lerp(m.Samples[j1*w+i1], tx)
	return top.Lerp(bot, ty).Clamp()
}

func cell(f float64, size int) (int, float32) {
	if f <= 0 || size < 2 {
		return 0, 0
	}
	if f >= float64(size-1) {
		return size - 1, 0
	}
	i := int(f)
	return i, float32(f - float64(i))
}

// LatticePoint is one lattice sample. The lattice stage fills World, U and
// V; ApplyLatticeEffects perturbs U and V and fills Light and Fog.
type LatticePoint struct {
	World math3d.Vec3
	U, V  float64
	Light Sample
	Fog   Sample
}

// LatticeLimits returns the largest lattice cell bits allowed on surf.
func (m *Manager) LatticeLimits(surf *model.Surf, mesh *Mesh) (xbits, ybits uint) {
	xbits, ybits = MaxLatticeXBits, MaxLatticeYBits
	limit := func(b uint) {
		xbits, ybits = min(xbits, b), min(ybits, b)
	}
	switch {
	case surf.Flags.Any(model.PolySmallWavy | model.PolyWaterWavy):
		limit(4)
	case surf.Flags.Any(model.PolyBigWavy | model.PolyCloudWavy):
		limit(5)
	}
	if mesh != nil && mesh.LatticeBits > 0 {
		limit(mesh.LatticeBits)
	}
	return xbits, ybits
}

// ApplyLatticeEffects runs the per-point effects on one lattice row: texture
// waves, lighting and fog. Light is sampled every stride points and
// interpolated in between.
func (m *Manager) ApplyLatticeEffects(mesh *Mesh, surf *model.Surf, zone int, row []LatticePoint, stride int) {
	if len(row) == 0 {
		return
	}
	if surf.Flags.Any(model.PolyWavy) {
		m.waves(surf.Flags, row)
	}

	switch {
	case mesh == nil:
		for i := range row {
			row[i].Light = Grey(1)
		}
	case mesh.Index == nil:
		c := mesh.Constant.Clamp()
		for i := range row {
			row[i].Light = c
		}
	default:
		stride = max(stride, 1)
		last := len(row) - 1
		for i := 0; i <= last; i += stride {
			row[i].Light = mesh.At(row[i].World)
		}
		if last%stride != 0 {
			row[last].Light = mesh.At(row[last].World)
		}
		for i := 0; i < last; i += stride {
			j := min(i+stride, last)
			for k := i + 1; k < j; k++ {
				row[k].Light = row[i].Light.Lerp(row[j].Light, float32(k-i)/float32(j-i))
			}
		}
	}

	m.fog(zone, row)
}

func (m *Manager) waves(flags model.PolyFlags, row []LatticePoint) {
	var amp, freq, speed float64
	switch {
	case flags.Has(model.PolySmallWavy):
		amp, freq, speed = 2, 1.0/16, 4
	case flags.Has(model.PolyBigWavy):
		amp, freq, speed = 6, 1.0/32, 3
	case flags.Has(model.PolyWaterWavy):
		amp, freq, speed = 3, 1.0/24, 2
	default:
		amp, freq, speed = 8, 1.0/64, 0.5
	}
	t := m.time * speed
	for i := range row {
		p := &row[i]
		u, v := p.U, p.V
		p.U = u + amp*math.Sin(v*freq+t)
		p.V = v + amp*math.Cos(u*freq+t)
	}
}

// fog applies zone distance fog and volumetric light fog along the view ray.
func (m *Manager) fog(zone int, row []LatticePoint) {
	var zf float64
	var zc Sample
	if m.model != nil && zone > 0 && zone < len(m.model.Zones) {
		fc := m.model.Zones[zone].FogColor
		zf = float64(fc.A) / 255 / 1024
		zc = Sample{float32(fc.R) / 255, float32(fc.G) / 255, float32(fc.B) / 255}
	}
	hasVolume := false
	for k := range m.infos {
		if m.infos[k].Actor.VolumeRadius > 0 {
			hasVolume = true
			break
		}
	}
	if zf == 0 && !hasVolume {
		return
	}

	for i := range row {
		p := &row[i]
		if zf > 0 {
			t := float32(1 - math.Exp(-p.World.Distance(m.eye)*zf))
			p.Light = p.Light.Scale(1 - t)
			p.Fog = p.Fog.Add(zc.Scale(t))
		}
		if !hasVolume {
			continue
		}
		for k := range m.infos {
			in := &m.infos[k]
			a := in.Actor
			if a.VolumeRadius <= 0 {
				continue
			}
			if f := volumeFog(in.Location, a.VolumeRadius, m.eye, p.World); f > 0 {
				p.Fog = p.Fog.Add(in.Color.Scale(float32(f * a.VolumeBrightness * in.Brightness)))
			}
		}
	}
}

package light

import (
	"math"

	"github.com/taigrr/softbsp/pkg/math3d"
)

// EffectKind names a spatial lighting effect.
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectNonIncidence
	EffectSpotlight
	EffectSearchlight
	EffectCylinder
	EffectSlowWave
	EffectFastWave
	EffectShock
	EffectDisco
	EffectInterference
	EffectRotor
	EffectShell
	EffectWateryShimmer
	EffectTorchWaver
	EffectFireWaver
	EffectCloudCast
	numEffects
)

// SpatialEffect shapes the light a single actor casts onto a surface.
type SpatialEffect interface {
	// Factor returns the fraction of the light's brightness reaching point
	// p on a surface with normal n, before shadows.
	Factor(in *Info, p, n math3d.Vec3) float64
	// Volatile reports whether Factor depends on time.
	Volatile() bool
	// LatticeBits caps the lattice cell size on lit surfaces, 0 for no cap.
	LatticeBits() uint
}

var effects = [numEffects]SpatialEffect{
	EffectNone:          plain{},
	EffectNonIncidence:  nonIncidence{},
	EffectSpotlight:     spotlight{},
	EffectSearchlight:   searchlight{},
	EffectCylinder:      cylinder{},
	EffectSlowWave:      wave{speed: 2, freq: 1.0 / 48},
	EffectFastWave:      wave{speed: 8, freq: 1.0 / 24},
	EffectShock:         shock{},
	EffectDisco:         disco{},
	EffectInterference:  interference{},
	EffectRotor:         rotor{},
	EffectShell:         shell{},
	EffectWateryShimmer: shimmer{},
	EffectTorchWaver:    waver{rate: 6, depth: 0.1},
	EffectFireWaver:     waver{rate: 12, depth: 0.2},
	EffectCloudCast:     cloudCast{},
}

// EffectFor returns the implementation of k; unknown kinds act as
// EffectNone.
func EffectFor(k EffectKind) SpatialEffect {
	if k >= numEffects {
		return plain{}
	}
	return effects[k]
}

// falloff returns the distance from the light and the radial attenuation.
func falloff(in *Info, p math3d.Vec3) (math3d.Vec3, float64, float64) {
	d := p.Sub(in.Location)
	dist := d.Len()
	if dist >= in.Radius {
		return d, dist, 0
	}
	r := dist / in.Radius
	return d, dist, 1 - r*r
}

// incidence is the cosine between the normal and the direction to the light.
func incidence(d math3d.Vec3, dist float64, n math3d.Vec3) float64 {
	if dist < 1e-6 {
		return 1
	}
	return math.Max(0, -d.Dot(n)/dist)
}

func lit(in *Info, p, n math3d.Vec3) (math3d.Vec3, float64, float64) {
	d, dist, f := falloff(in, p)
	if f == 0 {
		return d, dist, 0
	}
	return d, dist, f * incidence(d, dist, n)
}

type static struct{}

func (static) Volatile() bool    { return false }
func (static) LatticeBits() uint { return 0 }

type animated struct{}

func (animated) Volatile() bool    { return true }
func (animated) LatticeBits() uint { return 0 }

type plain struct{ static }

func (plain) Factor(in *Info, p, n math3d.Vec3) float64 {
	_, _, f := lit(in, p, n)
	return f
}

type nonIncidence struct{ static }

func (nonIncidence) Factor(in *Info, p, _ math3d.Vec3) float64 {
	_, _, f := falloff(in, p)
	return f
}

type spotlight struct{ static }

func (spotlight) Factor(in *Info, p, n math3d.Vec3) float64 {
	return cone(in, in.Direction, p, n)
}

func cone(in *Info, dir, p, n math3d.Vec3) float64 {
	d, dist, f := lit(in, p, n)
	if f == 0 || dist < 1e-6 {
		return f
	}
	c := d.Dot(dir) / dist
	if c <= in.cosCone {
		return 0
	}
	edge := (c - in.cosCone) / (1 - in.cosCone)
	return f * math.Min(1, edge*2)
}

type searchlight struct{ animated }

func (searchlight) Factor(in *Info, p, n math3d.Vec3) float64 {
	period := in.Actor.Period
	if period <= 0 {
		period = 4
	}
	yaw := 2 * math.Pi * (in.Time/period + in.Actor.Phase)
	dir := in.Direction
	dir = math3d.V3(math.Cos(yaw)*math.Hypot(dir.X, dir.Y), math.Sin(yaw)*math.Hypot(dir.X, dir.Y), dir.Z)
	if dir.LenSq() == 0 {
		dir = math3d.V3(math.Cos(yaw), math.Sin(yaw), 0)
	}
	return cone(in, dir.Normalize(), p, n)
}

type cylinder struct{ static }

func (cylinder) Factor(in *Info, p, _ math3d.Vec3) float64 {
	dx, dy := p.X-in.Location.X, p.Y-in.Location.Y
	r := (dx*dx + dy*dy) / (in.Radius * in.Radius)
	return math.Max(0, 1-r)
}

type wave struct {
	animated
	speed, freq float64
}

func (w wave) Factor(in *Info, p, n math3d.Vec3) float64 {
	_, dist, f := lit(in, p, n)
	return f * (0.7 + 0.3*math.Sin(dist*w.freq*2*math.Pi-in.Time*w.speed))
}

type shock struct{}

func (shock) Volatile() bool    { return true }
func (shock) LatticeBits() uint { return 4 }

func (shock) Factor(in *Info, p, n math3d.Vec3) float64 {
	_, dist, f := lit(in, p, n)
	ring := math.Sin(dist/in.Radius*4*math.Pi - in.Time*10)
	return f * math.Max(0, ring)
}

type disco struct{ animated }

func (disco) Factor(in *Info, p, n math3d.Vec3) float64 {
	d, dist, f := lit(in, p, n)
	if f == 0 || dist < 1e-6 {
		return f
	}
	yaw := math.Atan2(d.Y, d.X)
	pitch := math.Asin(d.Z / dist)
	spots := math.Sin(yaw*8+in.Time*2) * math.Sin(pitch*8)
	return f * math.Max(0, spots)
}

type interference struct{ animated }

func (interference) Factor(in *Info, p, n math3d.Vec3) float64 {
	_, _, f := lit(in, p, n)
	return f * (0.5 + 0.5*math.Sin(p.X/32+in.Time)*math.Cos(p.Y/32-in.Time))
}

type rotor struct{ animated }

func (rotor) Factor(in *Info, p, n math3d.Vec3) float64 {
	d, _, f := lit(in, p, n)
	a := math.Atan2(d.Y, d.X)
	return f * (0.5 + 0.5*math.Cos(3*a-in.Time*4))
}

type shell struct{}

func (shell) Volatile() bool    { return false }
func (shell) LatticeBits() uint { return 4 }

func (shell) Factor(in *Info, p, n math3d.Vec3) float64 {
	d, dist, _ := falloff(in, p)
	if dist >= in.Radius {
		return 0
	}
	band := 1 - math.Abs(dist/in.Radius-0.8)*5
	return math.Max(0, band) * incidence(d, dist, n)
}

type shimmer struct{ animated }

func (shimmer) Factor(in *Info, p, n math3d.Vec3) float64 {
	_, _, f := lit(in, p, n)
	return f * (0.8 + 0.2*math.Sin(p.X/16+in.Time*3)*math.Sin(p.Y/16+in.Time*2))
}

type waver struct {
	animated
	rate, depth float64
}

func (w waver) Factor(in *Info, p, n math3d.Vec3) float64 {
	_, dist, f := lit(in, p, n)
	return f * (1 - w.depth + w.depth*math.Sin(dist/24+in.Time*w.rate))
}

type cloudCast struct{ animated }

func (cloudCast) Factor(in *Info, p, n math3d.Vec3) float64 {
	_, _, f := lit(in, p, n)
	c := math.Sin(p.X/96+in.Time*0.5) * math.Sin(p.Y/128-in.Time*0.3)
	return f * (0.6 + 0.4*c)
}

// volumeFog returns how much of a volumetric light's sphere the segment from
// eye to p passes through, as a fraction of its diameter.
func volumeFog(center math3d.Vec3, radius float64, eye, p math3d.Vec3) float64 {
	d := p.Sub(eye)
	segLen := d.Len()
	if segLen < 1e-6 || radius <= 0 {
		return 0
	}
	dir := d.Scale(1 / segLen)
	oc := center.Sub(eye)
	t := oc.Dot(dir)
	h2 := oc.LenSq() - t*t
	r2 := radius * radius
	if h2 >= r2 {
		return 0
	}
	half := math.Sqrt(r2 - h2)
	t0 := math.Max(0, t-half)
	t1 := math.Min(segLen, t+half)
	if t1 <= t0 {
		return 0
	}
	return (t1 - t0) / (2 * radius)
}

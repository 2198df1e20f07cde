// Package light computes and caches the illumination of BSP surfaces.
//
// Lights are Actors placed in the level. Each frame the Manager resolves
// every actor into an Info, then builds a Mesh per visible surface by merging
// cached illumination maps. The Manager is owned by the render goroutine.
package light

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/taigrr/softbsp/pkg/math3d"
)

// Kind orders lights by how much per-frame work they need.
type Kind uint8

const (
	NotLight Kind = iota
	BackdropLight
	StaticLight
	DynamicLight
	MovingLight
)

func (k Kind) String() string {
	switch k {
	case BackdropLight:
		return "backdrop"
	case StaticLight:
		return "static"
	case DynamicLight:
		return "dynamic"
	case MovingLight:
		return "moving"
	default:
		return "none"
	}
}

// Type is the brightness of a light over time.
type Type uint8

const (
	TypeNone Type = iota
	TypeSteady
	TypePulse
	TypeBlink
	TypeFlicker
	TypeStrobe
	TypeSubtlePulse
	TypeBackdrop
)

// Scale returns the brightness multiplier of a light of type t at time
// (seconds).
func (t Type) Scale(a *Actor, time float64) float64 {
	period := a.Period
	if period <= 0 {
		period = 1
	}
	phase := time/period + a.Phase
	frac := phase - math.Floor(phase)

	switch t {
	case TypeSteady, TypeBackdrop:
		return 1
	case TypePulse:
		return 0.6 + 0.4*math.Sin(2*math.Pi*phase)
	case TypeSubtlePulse:
		return 0.9 + 0.1*math.Sin(2*math.Pi*phase)
	case TypeBlink:
		if frac < 0.5 {
			return 1
		}
		return 0
	case TypeStrobe:
		if frac < 0.1 {
			return 1
		}
		return 0
	case TypeFlicker:
		return 0.5 + 0.5*noise(int64(math.Floor(time*20))+int64(a.Phase*1000))
	default:
		return 0
	}
}

// Animated reports whether the brightness of t changes with time.
func (t Type) Animated() bool {
	switch t {
	case TypeNone, TypeSteady, TypeBackdrop:
		return false
	}
	return true
}

// noise maps n to a repeatable value in [0, 1).
func noise(n int64) float64 {
	x := uint64(n)*0x9e3779b97f4a7c15 + 0x632be59bd9b4e019
	x ^= x >> 31
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 29
	return float64(x>>11) / (1 << 53)
}

// Actor is a light placed in the level.
type Actor struct {
	Name      string
	Location  math3d.Vec3
	Direction math3d.Vec3

	Type   Type
	Effect EffectKind

	Brightness float64
	Radius     float64
	// Hue in degrees; Saturation 0 is white.
	Hue        float64
	Saturation float64

	Period float64
	Phase  float64
	// Cone is the half angle in degrees of spot and search lights.
	Cone float64

	VolumeRadius     float64
	VolumeBrightness float64

	Static bool
	Moving bool
	// Changed asks the Manager to rebuild this light's illumination maps.
	// BeginFrame clears it.
	Changed bool
}

// Kind classifies the actor.
func (a *Actor) Kind() Kind {
	switch {
	case a.Type == TypeNone || a.Brightness <= 0 || a.Radius <= 0:
		return NotLight
	case a.Type == TypeBackdrop:
		return BackdropLight
	case a.Moving:
		return MovingLight
	case a.Static && !a.Type.Animated() && !EffectFor(a.Effect).Volatile():
		return StaticLight
	default:
		return DynamicLight
	}
}

// Color returns the light's color at full brightness.
func (a *Actor) Color() colorful.Color {
	s := math.Max(0, math.Min(1, a.Saturation))
	return colorful.Hsv(math.Mod(a.Hue, 360), s, 1)
}

// Sample is a linear RGB light value where 1 leaves a texel unchanged.
type Sample struct {
	R, G, B float32
}

// Add returns s + o.
func (s Sample) Add(o Sample) Sample {
	return Sample{s.R + o.R, s.G + o.G, s.B + o.B}
}

// Scale returns s * f.
func (s Sample) Scale(f float32) Sample {
	return Sample{s.R * f, s.G * f, s.B * f}
}

// Lerp interpolates between s and o.
func (s Sample) Lerp(o Sample, t float32) Sample {
	return Sample{s.R + (o.R-s.R)*t, s.G + (o.G-s.G)*t, s.B + (o.B-s.B)*t}
}

// Clamp saturates every channel to [0, 1].
func (s Sample) Clamp() Sample {
	return Sample{clamp01(s.R), clamp01(s.G), clamp01(s.B)}
}

// Grey replaces the color with its luminance.
func (s Sample) Grey() Sample {
	l := 0.299*s.R + 0.587*s.G + 0.114*s.B
	return Sample{l, l, l}
}

// Grey returns a neutral sample of brightness v.
func Grey(v float32) Sample { return Sample{v, v, v} }

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Info is an actor resolved for the current frame.
type Info struct {
	Actor  *Actor
	Index  int
	Kind   Kind
	Effect SpatialEffect

	Location   math3d.Vec3
	Direction  math3d.Vec3
	Radius     float64
	Brightness float64
	Color      Sample
	Time       float64

	cosCone float64
}

func resolve(a *Actor, index int, time float64) Info {
	c := a.Color()
	col := Sample{float32(c.R), float32(c.G), float32(c.B)}
	cone := a.Cone
	if cone <= 0 {
		cone = 30
	}
	return Info{
		Actor:      a,
		Index:      index,
		Kind:       a.Kind(),
		Effect:     EffectFor(a.Effect),
		Location:   a.Location,
		Direction:  a.Direction.Normalize(),
		Radius:     a.Radius,
		Brightness: a.Brightness * a.Type.Scale(a, time),
		Color:      col,
		Time:       time,
		cosCone:    math.Cos(cone * math.Pi / 180),
	}
}

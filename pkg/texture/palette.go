package texture

import (
	"image/color"
	"sync"
)

var defaultPalette = sync.OnceValue(func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.RGBA{uint8(i), uint8(i), uint8(i), 255}
	}
	return p
})

// DefaultPalette returns the grey ramp substituted for textures without a
// palette.
func DefaultPalette() color.Palette {
	return defaultPalette()
}

// Shade scales c by per-channel light levels where 1 leaves the channel
// unchanged. Results saturate at 255.
func Shade(c color.RGBA, r, g, b float32) color.RGBA {
	return color.RGBA{
		R: sat(float32(c.R) * r),
		G: sat(float32(c.G) * g),
		B: sat(float32(c.B) * b),
		A: c.A,
	}
}

// Lerp blends a toward b by t in [0, 1].
func Lerp(a, b color.RGBA, t float32) color.RGBA {
	return color.RGBA{
		R: sat(float32(a.R) + (float32(b.R)-float32(a.R))*t),
		G: sat(float32(a.G) + (float32(b.G)-float32(a.G))*t),
		B: sat(float32(a.B) + (float32(b.B)-float32(a.B))*t),
		A: sat(float32(a.A) + (float32(b.A)-float32(a.A))*t),
	}
}

// Add returns the saturating sum of two colors, used for translucency.
func Add(a, b color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8(min(int(a.R)+int(b.R), 255)),
		G: uint8(min(int(a.G)+int(b.G), 255)),
		B: uint8(min(int(a.B)+int(b.B), 255)),
		A: 255,
	}
}

func sat(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

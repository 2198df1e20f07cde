package render

import (
	"image/color"
	"math"

	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/model"
	"github.com/taigrr/softbsp/pkg/texture"
)

// postFunc writes one shaded texel into the framebuffer.
type postFunc func(dst *color.RGBA, texel color.RGBA, l, fog light.Sample)

func shade(t color.RGBA, l, fog light.Sample) color.RGBA {
	return color.RGBA{
		R: sat(float32(t.R)*l.R + fog.R*255),
		G: sat(float32(t.G)*l.G + fog.G*255),
		B: sat(float32(t.B)*l.B + fog.B*255),
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

func postNormal(dst *color.RGBA, t color.RGBA, l, fog light.Sample) {
	*dst = shade(t, l, fog)
}

func postMasked(dst *color.RGBA, t color.RGBA, l, fog light.Sample) {
	if t.A < 128 {
		return
	}
	*dst = shade(t, l, fog)
}

func postTranslucent(dst *color.RGBA, t color.RGBA, l, fog light.Sample) {
	*dst = texture.Add(*dst, shade(t, l, fog))
}

func postMaskedTranslucent(dst *color.RGBA, t color.RGBA, l, fog light.Sample) {
	if t.A < 128 {
		return
	}
	*dst = texture.Add(*dst, shade(t, l, fog))
}

// selectPost picks the write function for a polygon once, before any pixel
// is drawn.
func selectPost(flags model.PolyFlags) postFunc {
	switch {
	case flags.Has(model.PolyMasked | model.PolyTranslucent):
		return postMaskedTranslucent
	case flags.Has(model.PolyTranslucent):
		return postTranslucent
	case flags.Has(model.PolyMasked):
		return postMasked
	}
	return postNormal
}

// bayer2 is a 2x2 ordered dither matrix, centred on zero.
var bayer2 = [4]float32{-0.375, 0.125, 0.375, -0.125}

// lightLevels is the number of brightness steps light is quantised to when
// only brightness is drawn.
const lightLevels = 63

// quantize snaps a light sample to the levels the color depth can show,
// offset by the dither threshold d.
func quantize(l light.Sample, colorBytes int, d float32) light.Sample {
	levels := float32(255)
	if colorBytes == 1 {
		levels = lightLevels
		v := (l.R + l.G + l.B) / 3
		l = light.Grey(v)
	}
	q := func(v float32) float32 {
		return float32(math.Floor(float64(v*levels+0.5+d))) / levels
	}
	return light.Sample{R: q(l.R), G: q(l.G), B: q(l.B)}
}

// drawAcross composites one fragment. For each scanline it first expands
// the cell lighting across the line's spans, then walks the spans again
// sampling the texture and writing through the polygon's post function.
// Lines with no spans cost nothing.
func (r *Renderer) drawAcross(f *Frame, e *DrawEntry, st *surfaceSetup, tex *texture.LockInfo, fb *Framebuffer) {
	post := selectPost(e.Flags)
	depth := f.Camera.ColorBytes
	dither := r.opts.Dither
	xb, yb := st.xbits, st.ybits
	fogged := false

	for y := max(e.Span.StartY, 0); y < min(e.Span.EndY, fb.Height); y++ {
		line := e.Span.Line(y)
		if len(line) == 0 {
			continue
		}
		cj := y >> yb
		cells, base := st.cells[cj-st.cellY], st.cellBase[cj-st.cellY]
		dy := float64(y - cj<<yb)
		dyf := float32(dy)
		x0, x1 := line[0].Start, line[len(line)-1].End
		if n := x1 - x0; cap(r.rowLight) < n {
			r.rowLight = make([]light.Sample, n)
			r.rowFog = make([]light.Sample, n)
		}
		lights, fogs := r.rowLight[:x1-x0], r.rowFog[:x1-x0]

		// Light interpolation.
		for _, s := range line {
			for x := s.Start; x < s.End; x++ {
				ci := x >> xb
				c := &cells[ci-base]
				dx := float32(x - ci<<xb)
				l := c.L.Add(c.DLY.Scale(dyf)).Add(c.DLX.Add(c.DDLX.Scale(dyf)).Scale(dx))
				if depth == 1 || dither {
					d := float32(0)
					if dither {
						d = bayer2[(y&1)<<1|x&1]
					}
					l = quantize(l, depth, d)
				}
				lights[x-x0] = l
				fg := c.F.Add(c.DFY.Scale(dyf)).Add(c.DFX.Add(c.DDFX.Scale(dyf)).Scale(dx))
				fogs[x-x0] = fg
				fogged = fogged || fg != (light.Sample{})
			}
		}

		// Texture inner loop.
		row := fb.Pixels[y*fb.Width : (y+1)*fb.Width]
		for _, s := range line {
			for x := max(s.Start, 0); x < min(s.End, fb.Width); x++ {
				ci := x >> xb
				c := &cells[ci-base]
				dx := float64(x - ci<<xb)
				u := c.U + c.DUY*dy + (c.DUX+c.DDUX*dy)*dx
				v := c.V + c.DVY*dy + (c.DVX+c.DDVX*dy)*dx
				k := min(c.Mip, len(tex.Mips)-1)
				t := tex.Mips[k].Texel(int(math.Floor(u))>>k, int(math.Floor(v))>>k)
				post(&row[x], t, lights[x-x0], fogs[x-x0])
			}
			f.Stats.Pixels += s.End - s.Start
		}
	}
	if fogged {
		f.Stats.Fogged++
	}
}

// fillFlat paints an entry's pixels with one color, for the debug maps and
// for surfaces drawn without a texture.
func (r *Renderer) fillFlat(f *Frame, e *DrawEntry, c color.RGBA, fb *Framebuffer) {
	fb.FillSpans(e.Span, c)
	f.Stats.Pixels += e.Span.FreePixels()
}

// drawBackdrop fills a fake backdrop fragment with a sky gradient lit by the
// backdrop lights.
func (r *Renderer) drawBackdrop(f *Frame, e *DrawEntry, fb *Framebuffer) {
	cam := f.Camera
	mesh := r.lights.SetupForBackdrop(cam.ColorBytes)
	l := mesh.Constant
	horizon, zenith := r.opts.Horizon, r.opts.Zenith
	for i, line := range e.Span.Lines {
		y := e.Span.StartY + i
		if y < 0 || y >= fb.Height {
			continue
		}
		for _, s := range line {
			for x := max(s.Start, 0); x < min(s.End, fb.Width); x++ {
				up := float32(math.Max(0, cam.Ray(float64(x)+0.5, float64(y)+0.5).Z))
				fb.Pixels[y*fb.Width+x] = shade(texture.Lerp(horizon, zenith, up), l, light.Sample{})
			}
			f.Stats.Pixels += s.End - s.Start
		}
	}
}

// Package texture holds the mipmapped bitmaps surfaces are painted with.
// Every mip is a power of two on both axes so texel lookups wrap with a mask.
package texture

import (
	"fmt"
	"image"
	"image/color"
	"math/bits"

	"github.com/taigrr/softbsp/pkg/diag"
	"golang.org/x/image/draw"
)

// MinMipSize is the smallest mip edge BuildMips produces.
const MinMipSize = 4

// Mip is one level of a texture.
type Mip struct {
	Width, Height int
	UBits, VBits  uint
	Pixels        []color.RGBA
}

// Texel returns the texel at integer coordinates, wrapping on both axes.
func (m *Mip) Texel(u, v int) color.RGBA {
	u &= m.Width - 1
	v &= m.Height - 1
	return m.Pixels[v<<m.UBits+u]
}

// Texture is a named stack of mips plus the palette used when rendering to
// an 8-bit target.
type Texture struct {
	Name    string
	Mips    []Mip
	Palette color.Palette
	Masked  bool

	// PanU and PanV are scroll speeds in texels per second, applied to
	// surfaces flagged for automatic panning.
	PanU, PanV float64

	average color.RGBA
	locked  bool
}

// LockInfo is the view of a texture a polygon draw works against.
type LockInfo struct {
	Texture *Texture
	Mips    []Mip
	Palette color.Palette
	Masked  bool
}

// Lock pins the texture for drawing one polygon. Locking a texture that is
// already locked is a fatal error.
func (t *Texture) Lock() *LockInfo {
	if t.locked {
		diag.Fatalf("texture %s: locked twice", t.Name)
	}
	t.locked = true
	return &LockInfo{Texture: t, Mips: t.Mips, Palette: t.palette(), Masked: t.Masked}
}

// Unlock releases a lock taken by Lock.
func (t *Texture) Unlock(info *LockInfo) {
	if !t.locked || info == nil || info.Texture != t {
		diag.Fatalf("texture %s: unlock without matching lock", t.Name)
	}
	t.locked = false
}

// Locked reports whether the texture is currently locked.
func (t *Texture) Locked() bool { return t.locked }

// Mip returns mip level, clamped to the available range.
func (l *LockInfo) Mip(level int) *Mip {
	level = max(0, min(level, len(l.Mips)-1))
	return &l.Mips[level]
}

// Average returns the mean color of the top mip, used by flat shaded views.
func (t *Texture) Average() color.RGBA { return t.average }

// Size returns the dimensions of the top mip.
func (t *Texture) Size() (w, h int) {
	return t.Mips[0].Width, t.Mips[0].Height
}

func (t *Texture) palette() color.Palette {
	if len(t.Palette) == 0 {
		return DefaultPalette()
	}
	return t.Palette
}

// New builds a texture from an image, resampling it to power-of-two size if
// needed and generating the mip chain.
func New(name string, img image.Image) (*Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("texture %s: empty image", name)
	}

	t := &Texture{Name: name}
	if p, ok := img.(*image.Paletted); ok {
		t.Palette = p.Palette
		if len(t.Palette) == 0 {
			diag.Logger().Warn("texture has no palette, using default", "texture", name)
		}
		// Masked paletted art marks transparency with index 0.
		if len(p.Palette) > 0 {
			if _, _, _, a := p.Palette[0].RGBA(); a == 0 {
				t.Masked = true
			}
		}
	}

	w, h := ceilPow2(b.Dx()), ceilPow2(b.Dy())
	top := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(top, top.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(top, top.Bounds(), img, b, draw.Src, nil)
	}
	if !t.Masked {
		t.Masked = hasTransparency(top)
	}

	t.Mips = BuildMips(top)
	t.average = averageColor(&t.Mips[0])
	return t, nil
}

// BuildMips returns the mip chain of a power-of-two image, halving each axis
// down to MinMipSize with a bilinear filter.
func BuildMips(top *image.RGBA) []Mip {
	var mips []Mip
	cur := top
	for {
		mips = append(mips, mipFromImage(cur))
		w, h := cur.Bounds().Dx(), cur.Bounds().Dy()
		if w <= MinMipSize || h <= MinMipSize {
			return mips
		}
		next := image.NewRGBA(image.Rect(0, 0, w/2, h/2))
		draw.BiLinear.Scale(next, next.Bounds(), cur, cur.Bounds(), draw.Src, nil)
		cur = next
	}
}

func mipFromImage(img *image.RGBA) Mip {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	m := Mip{
		Width:  w,
		Height: h,
		UBits:  uint(bits.TrailingZeros(uint(w))),
		VBits:  uint(bits.TrailingZeros(uint(h))),
		Pixels: make([]color.RGBA, w*h),
	}
	for y := range h {
		for x := range w {
			m.Pixels[y*w+x] = img.RGBAAt(img.Bounds().Min.X+x, img.Bounds().Min.Y+y)
		}
	}
	return m
}

func ceilPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func hasTransparency(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] < 128 {
			return true
		}
	}
	return false
}

func averageColor(m *Mip) color.RGBA {
	var r, g, b, n int
	for _, c := range m.Pixels {
		if c.A < 128 {
			continue
		}
		r += int(c.R)
		g += int(c.G)
		b += int(c.B)
		n++
	}
	if n == 0 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{uint8(r / n), uint8(g / n), uint8(b / n), 255}
}

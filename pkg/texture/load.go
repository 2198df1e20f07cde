package texture

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga" // Register TGA decoder
)

// Load reads a texture from an image file (PNG, JPEG, GIF or TGA). The
// texture is named after the file without its extension.
func Load(path string) (*Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("texture: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return New(name, img)
}

// NewChecker creates a procedural checkerboard texture of size x size texels.
func NewChecker(name string, size, check int, c1, c2 color.RGBA) *Texture {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if (x/check+y/check)%2 == 0 {
				img.SetRGBA(x, y, c1)
			} else {
				img.SetRGBA(x, y, c2)
			}
		}
	}
	t, _ := New(name, img)
	return t
}

// NewBricks creates a procedural brick texture with offset courses.
func NewBricks(name string, size int, brick, mortar color.RGBA) *Texture {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	bw, bh := size/4, size/8
	for y := range size {
		course := y / bh
		for x := range size {
			off := 0
			if course%2 == 1 {
				off = bw / 2
			}
			if y%bh == 0 || (x+off)%bw == 0 {
				img.SetRGBA(x, y, mortar)
				continue
			}
			// A little per-brick variation keeps mips from looking flat.
			v := uint8(((x+off)/bw*37 + course*11) % 24)
			img.SetRGBA(x, y, color.RGBA{sat(float32(brick.R) - float32(v)), sat(float32(brick.G) - float32(v)/2), brick.B, 255})
		}
	}
	t, _ := New(name, img)
	return t
}

// Default returns the grey checker used when a surface names no texture.
func Default() *Texture {
	return NewChecker("Default", 64, 8, color.RGBA{160, 160, 160, 255}, color.RGBA{96, 96, 96, 255})
}

package render

import (
	"image/color"
	"math"
	"testing"

	"github.com/taigrr/softbsp/pkg/level"
	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
)

func TestSelectPost(t *testing.T) {
	full := light.Grey(1)
	hole := color.RGBA{10, 20, 30, 0}
	texel := color.RGBA{100, 50, 25, 255}
	under := color.RGBA{50, 50, 50, 255}

	tests := []struct {
		name  string
		flags model.PolyFlags
		texel color.RGBA
		want  color.RGBA
	}{
		{"normal", 0, texel, texel},
		{"masked opaque", model.PolyMasked, texel, texel},
		{"masked hole", model.PolyMasked, hole, under},
		{"translucent", model.PolyTranslucent, texel, color.RGBA{150, 100, 75, 255}},
		{"masked translucent hole", model.PolyMasked | model.PolyTranslucent, hole, under},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dst := under
			selectPost(tc.flags)(&dst, tc.texel, full, light.Sample{})
			if dst != tc.want {
				t.Errorf("got %v, want %v", dst, tc.want)
			}
		})
	}
}

func TestShadeFog(t *testing.T) {
	got := shade(color.RGBA{200, 200, 200, 255}, light.Grey(0.5), light.Sample{R: 0.2})
	want := color.RGBA{151, 100, 100, 255}
	if got != want {
		t.Errorf("shade = %v, want %v", got, want)
	}
	if got := shade(color.RGBA{255, 255, 255, 255}, light.Grey(2), light.Sample{}); got.R != 255 {
		t.Errorf("overbright not saturated: %v", got)
	}
}

func TestQuantize(t *testing.T) {
	l := light.Sample{R: 0.9, G: 0.3, B: 0.3}
	q := quantize(l, 1, 0)
	if q.R != q.G || q.G != q.B {
		t.Errorf("brightness-only light kept color: %+v", q)
	}
	if math.Abs(float64(q.R)-0.5) > 1.0/lightLevels {
		t.Errorf("grey level %v, want about 0.5", q.R)
	}
	steps := q.R * lightLevels
	if math.Abs(float64(steps)-math.Round(float64(steps))) > 1e-4 {
		t.Errorf("level %v not on a %d step boundary", q.R, lightLevels)
	}

	c := quantize(l, 4, 0)
	if c.R <= c.G {
		t.Errorf("color light lost its hue: %+v", c)
	}
	for _, d := range bayer2 {
		if math.Abs(float64(d)) >= 0.5 {
			t.Errorf("dither offset %v moves a full level", d)
		}
	}
}

func drawRoom(t *testing.T, setup func(*Camera)) (*Framebuffer, FrameStats) {
	t.Helper()
	lvl, err := level.BoxRoom(level.DefaultRoomSize, nil)
	if err != nil {
		t.Fatalf("BoxRoom: %v", err)
	}
	cam := NewCamera(64, 48)
	cam.Position = math3d.V3(200, 240, 110)
	cam.Yaw = 0.3
	if setup != nil {
		setup(cam)
	}
	fb := NewFramebuffer(64, 48)
	stats := NewRenderer(DefaultOptions()).DrawWorld(cam, lvl, fb, 0.5)
	return fb, stats
}

func TestDrawWorldZones(t *testing.T) {
	fb, _ := drawRoom(t, func(c *Camera) { c.RendMap = RendZones })
	want := DebugColor(1)
	for i, p := range fb.Pixels {
		if p != want {
			t.Fatalf("pixel %d = %v, want zone color %v", i, p, want)
		}
	}
}

func TestDrawWorldPolys(t *testing.T) {
	fb, stats := drawRoom(t, func(c *Camera) { c.RendMap = RendPolys })
	colors := make(map[color.RGBA]int)
	for _, p := range fb.Pixels {
		colors[p]++
	}
	if len(colors) != stats.Solid {
		t.Errorf("%d distinct colors for %d polygons", len(colors), stats.Solid)
	}
	if _, ok := colors[ColorBlack]; ok {
		t.Error("unclaimed pixels left in the void color")
	}
}

func TestDrawWorldLit(t *testing.T) {
	fb, stats := drawRoom(t, nil)
	if stats.LatticePoints == 0 || stats.Cells == 0 {
		t.Errorf("lattice points %d, cells %d", stats.LatticePoints, stats.Cells)
	}
	dark := 0
	for _, p := range fb.Pixels {
		if p.A != 255 {
			t.Fatalf("pixel %v not opaque", p)
		}
		if p.R == 0 && p.G == 0 && p.B == 0 {
			dark++
		}
	}
	if dark == len(fb.Pixels) {
		t.Error("lit room rendered black")
	}
	if stats.Lights.Lights != 1 {
		t.Errorf("lights resolved = %d, want 1", stats.Lights.Lights)
	}
}

func TestDrawWorldBrightnessOnly(t *testing.T) {
	grey, _ := drawRoom(t, func(c *Camera) { c.ColorBytes = 1 })
	lit, _ := drawRoom(t, nil)
	if len(grey.Pixels) != len(lit.Pixels) {
		t.Fatal("framebuffer sizes differ")
	}
	same := 0
	for i := range grey.Pixels {
		if grey.Pixels[i] == lit.Pixels[i] {
			same++
		}
	}
	if same == len(grey.Pixels) {
		t.Error("brightness-only lighting matches colored lighting exactly")
	}
}

func TestDrawWorldWire(t *testing.T) {
	fb, stats := drawRoom(t, func(c *Camera) { c.RendMap = RendWire })
	lines := 0
	for _, p := range fb.Pixels {
		if p != ColorBlack {
			lines++
		}
	}
	if lines == 0 {
		t.Error("wire mode drew nothing")
	}
	if stats.Pixels != 0 {
		t.Errorf("wire mode composited %d pixels", stats.Pixels)
	}
}

func TestDrawWorldHUD(t *testing.T) {
	plain, _ := drawRoom(t, func(c *Camera) { c.RendMap = RendZones })
	hud, _ := drawRoom(t, func(c *Camera) {
		c.RendMap = RendZones
		c.Show |= ShowHUD
	})
	diff := 0
	for i := range plain.Pixels {
		if plain.Pixels[i] != hud.Pixels[i] {
			diff++
		}
	}
	if diff == 0 {
		t.Error("HUD drew nothing")
	}
}

func TestDrawWorldBounds(t *testing.T) {
	fb, _ := drawRoom(t, func(c *Camera) {
		c.RendMap = RendWire
		c.Show |= ShowBounds
	})
	green := 0
	for _, p := range fb.Pixels {
		if p == ColorGreen {
			green++
		}
	}
	if green == 0 {
		t.Error("no node bounds drawn")
	}
}

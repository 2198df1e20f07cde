//go:build window

package main

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/taigrr/softbsp/pkg/config"
	"github.com/taigrr/softbsp/pkg/level"
	"github.com/taigrr/softbsp/pkg/render"
)

// window flies through lvl in a desktop window. It blocks until the window
// closes.
func window(cfg *config.Config, lvl *level.Level) error {
	cam := cfg.Camera()
	home, extent := startPosition(lvl)
	rig := NewCameraRig(*targetFPS, home, extent.X)
	rig.Reset(cam)

	g := &windowGame{
		r:     render.NewRenderer(cfg.Render()),
		lvl:   lvl,
		cam:   cam,
		rig:   rig,
		fb:    render.NewFramebuffer(cfg.Width, cfg.Height),
		start: time.Now(),
	}
	ebiten.SetWindowTitle("softbsp - " + lvl.Name)
	ebiten.SetWindowSize(cfg.Width*cfg.Scale, cfg.Height*cfg.Scale)
	ebiten.SetTPS(*targetFPS)
	return ebiten.RunGame(g)
}

type windowGame struct {
	r     *render.Renderer
	lvl   *level.Level
	cam   *render.Camera
	rig   *CameraRig
	fb    *render.Framebuffer
	fbImg *ebiten.Image
	start time.Time
}

// held maps movement keys to rig pushes: forward, strafe, lift, yaw, pitch.
var held = []struct {
	key  ebiten.Key
	push [5]float64
}{
	{ebiten.KeyW, [5]float64{1, 0, 0, 0, 0}},
	{ebiten.KeyS, [5]float64{-1, 0, 0, 0, 0}},
	{ebiten.KeyA, [5]float64{0, -1, 0, 0, 0}},
	{ebiten.KeyD, [5]float64{0, 1, 0, 0, 0}},
	{ebiten.KeySpace, [5]float64{0, 0, 1, 0, 0}},
	{ebiten.KeyC, [5]float64{0, 0, -1, 0, 0}},
	{ebiten.KeyArrowLeft, [5]float64{0, 0, 0, 1, 0}},
	{ebiten.KeyArrowRight, [5]float64{0, 0, 0, -1, 0}},
	{ebiten.KeyArrowUp, [5]float64{0, 0, 0, 0, 1}},
	{ebiten.KeyArrowDown, [5]float64{0, 0, 0, 0, -1}},
}

var toggles = map[ebiten.Key]string{
	ebiten.KeyDigit1: "1",
	ebiten.KeyDigit2: "2",
	ebiten.KeyDigit3: "3",
	ebiten.KeyDigit4: "4",
	ebiten.KeyB:      "b",
	ebiten.KeyL:      "l",
	ebiten.KeyO:      "o",
	ebiten.KeySlash:  "?",
	ebiten.KeyR:      "r",
}

func (g *windowGame) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	for key, name := range toggles {
		if inpututil.IsKeyJustPressed(key) {
			viewKeys(g.cam, g.rig, name)
		}
	}
	// Holding a key keeps pushing; the springs bring the rig to rest on release.
	for _, h := range held {
		if ebiten.IsKeyPressed(h.key) {
			p := h.push
			g.rig.Push(p[0]/4, p[1]/4, p[2]/4, p[3]/4, p[4]/4)
		}
	}
	g.rig.Update(g.cam)
	return nil
}

func (g *windowGame) Draw(screen *ebiten.Image) {
	g.r.DrawWorld(g.cam, g.lvl, g.fb, time.Since(g.start).Seconds())

	if g.fbImg == nil || g.fbImg.Bounds().Dx() != g.fb.Width || g.fbImg.Bounds().Dy() != g.fb.Height {
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(g.fb.Width, g.fb.Height)
	}
	g.fbImg.WritePixels(g.fb.ToImage().Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *windowGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cam.SizeX, g.cam.SizeY
}

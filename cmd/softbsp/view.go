package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/softbsp/pkg/config"
	"github.com/taigrr/softbsp/pkg/level"
	"github.com/taigrr/softbsp/pkg/render"
)

// view flies through lvl in the terminal. Each cell shows two framebuffer
// rows, so the viewport is the terminal width by twice its height.
func view(cfg *config.Config, lvl *level.Level) error {
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	r := render.NewRenderer(cfg.Render())
	cam := cfg.Camera()
	cam.SizeX, cam.SizeY = width, height*2
	fb := render.NewFramebuffer(cam.SizeX, cam.SizeY)

	home, extent := startPosition(lvl)
	rig := NewCameraRig(*targetFPS, home, extent.X)
	rig.Reset(cam)

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Guards cam, rig and the terminal size between the event and render loops.
	var mu sync.Mutex

	go func() {
		for ev := range term.Events() {
			mu.Lock()
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				cam.SizeX, cam.SizeY = width, height*2

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape", "ctrl+c"):
					cancel()
				case ev.MatchString("w"):
					rig.Push(1, 0, 0, 0, 0)
				case ev.MatchString("s"):
					rig.Push(-1, 0, 0, 0, 0)
				case ev.MatchString("a"):
					rig.Push(0, -1, 0, 0, 0)
				case ev.MatchString("d"):
					rig.Push(0, 1, 0, 0, 0)
				case ev.MatchString("space"):
					rig.Push(0, 0, 1, 0, 0)
				case ev.MatchString("c"):
					rig.Push(0, 0, -1, 0, 0)
				case ev.MatchString("left"):
					rig.Push(0, 0, 0, 1, 0)
				case ev.MatchString("right"):
					rig.Push(0, 0, 0, -1, 0)
				case ev.MatchString("up"):
					rig.Push(0, 0, 0, 0, 1)
				case ev.MatchString("down"):
					rig.Push(0, 0, 0, 0, -1)
				case ev.MatchString("?", "shift+/"):
					viewKeys(cam, rig, "?")
				default:
					viewKeys(cam, rig, ev.String())
				}
			}
			mu.Unlock()
		}
	}()

	cleanup := func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	// Main loop
	targetDuration := time.Second / time.Duration(*targetFPS)
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}

		now := time.Now()

		mu.Lock()
		rig.Update(cam)
		r.DrawWorld(cam, lvl, fb, now.Sub(start).Seconds())
		fb.Draw(term, term.Bounds())
		mu.Unlock()

		if err := term.Display(); err != nil {
			cleanup()
			return fmt.Errorf("display: %w", err)
		}

		// Frame timing
		elapsed := time.Since(now)
		if elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}

// softbsp - Software BSP Renderer
// Render span-buffered, lattice-lit BSP levels to image files, the terminal,
// or a desktop window.
//
// Modes:
//
//	render  - Orbit the level and write frames to the output directory
//	view    - Fly through the level in the terminal
//	window  - Fly through the level in a desktop window (build tag "window")
//	info    - Print level statistics
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/taigrr/softbsp/pkg/config"
	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/level"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/render"
	"github.com/taigrr/softbsp/pkg/texture"
)

var (
	configPath = flag.String("config", "", "Path to JSON config file")
	mode       = flag.String("mode", "render", "Mode: render, view, window or info")
	levelName  = flag.String("level", "", "Level: room, tworooms or a .glb/.gltf path")
	frames     = flag.Int("frames", 0, "Frames to render in render mode")
	outDir     = flag.String("out", "", "Output directory for rendered frames")
	format     = flag.String("format", "", "Output format: png or webp")
	width      = flag.Int("w", 0, "Viewport width")
	height     = flag.Int("h", 0, "Viewport height")
	scale      = flag.Int("scale", 0, "Output upscale factor")
	showHUD    = flag.Bool("hud", false, "Stamp frame statistics")
	checks     = flag.Bool("checks", false, "Enable internal consistency checks")
	verbose    = flag.Bool("v", false, "Log per-frame statistics")
	targetFPS  = flag.Int("fps", 30, "Target FPS for view and window modes")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "softbsp - Software BSP Renderer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: softbsp [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls (view and window):\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Move\n")
		fmt.Fprintf(os.Stderr, "  Arrows      - Turn and look\n")
		fmt.Fprintf(os.Stderr, "  Space/C     - Up/down\n")
		fmt.Fprintf(os.Stderr, "  1-4         - Dynamic, polys, zones, wire\n")
		fmt.Fprintf(os.Stderr, "  B           - Toggle brightness-only lighting\n")
		fmt.Fprintf(os.Stderr, "  L           - Toggle light markers\n")
		fmt.Fprintf(os.Stderr, "  O           - Toggle node bounds\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	diag.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
	diag.SetChecks(cfg.Checks)

	lvl, err := openLevel(&cfg)
	if err != nil {
		return err
	}

	switch *mode {
	case "render":
		return renderFrames(&cfg, lvl)
	case "view":
		return view(&cfg, lvl)
	case "window":
		return window(&cfg, lvl)
	case "info":
		printInfo(lvl)
		return nil
	default:
		return fmt.Errorf("unknown mode %q (use render, view, window or info)", *mode)
	}
}

func loadConfig() (config.Config, error) {
	var cfg config.Config
	baseDir := ""
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return cfg, err
		}
		baseDir = filepath.Dir(*configPath)
	}

	cfg.Resolve(config.Flags{
		Level:     *levelName,
		OutputDir: *outDir,
		Format:    *format,
		Frames:    *frames,
		Width:     *width,
		Height:    *height,
		Scale:     *scale,
		HUD:       *showHUD,
		Checks:    *checks,
	}, baseDir)
	return cfg, cfg.Validate()
}

// openLevel builds the configured level. The first configured texture, if
// any, skins the built-in rooms.
func openLevel(cfg *config.Config) (*level.Level, error) {
	var tex *texture.Texture
	if len(cfg.Textures) > 0 {
		var err error
		tex, err = texture.Load(cfg.Textures[0])
		if err != nil {
			return nil, fmt.Errorf("load texture: %w", err)
		}
	}

	var (
		lvl *level.Level
		err error
	)
	switch cfg.Level {
	case "room":
		lvl, err = level.BoxRoom(level.DefaultRoomSize, tex)
	case "tworooms":
		lvl, err = level.TwoRooms(tex)
	default:
		lvl, err = level.Open(cfg.Level, level.GLTFOptions{Scale: cfg.GLTFScale})
	}
	if err != nil {
		return nil, fmt.Errorf("open level: %w", err)
	}

	if diag.Checks() {
		if err := lvl.Model.Validate(); err != nil {
			return nil, fmt.Errorf("level %s: %w", lvl.Name, err)
		}
	}
	return lvl, nil
}

// startPosition returns an eye point inside the level, the center of its
// bounds nudged along +X until it lands in a non-solid zone, and the half
// size of the bounds.
func startPosition(lvl *level.Level) (math3d.Vec3, math3d.Vec3) {
	m := lvl.Model
	if len(m.Nodes) == 0 {
		return math3d.Zero3(), math3d.V3(64, 64, 64)
	}
	box, ok := m.NodeBound(0)
	if !ok {
		return math3d.Zero3(), math3d.V3(64, 64, 64)
	}
	center, extent := box.Center(), box.Extent()
	step := extent.X / 8
	for i := range 8 {
		p := center.Add(math3d.V3(float64(i)*step, 0, 0))
		if m.PointZone(p) != 0 {
			return p, extent
		}
	}
	return center, extent
}

// renderFrames orbits the eye around the start position, writing one image
// per frame.
func renderFrames(cfg *config.Config, lvl *level.Level) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	r := render.NewRenderer(cfg.Render())
	cam := cfg.Camera()
	fb := render.NewFramebuffer(cfg.Width, cfg.Height)
	center, extent := startPosition(lvl)
	radius := math.Min(extent.X, extent.Y) / 4

	start := time.Now()
	var total render.FrameStats
	for i := range cfg.Frames {
		t := float64(i) / float64(cfg.Frames)
		angle := t * 2 * math.Pi
		cam.Position = center.Add(math3d.V3(math.Cos(angle)*radius, math.Sin(angle)*radius, 0))
		cam.Yaw = angle + math.Pi/2
		cam.Pitch = -0.1

		stats := r.DrawWorld(cam, lvl, fb, float64(i)/float64(*targetFPS))
		total.Pixels += stats.Pixels
		total.Solid += stats.Solid

		path := filepath.Join(cfg.OutputDir, fmt.Sprintf("frame_%04d.%s", i, cfg.Format))
		if cfg.Scale > 1 {
			err := render.SaveImage(path, fb.Scaled(fb.Width*cfg.Scale, fb.Height*cfg.Scale))
			if err != nil {
				return err
			}
		} else if err := fb.Save(path); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("Rendered %d frames of %s to %s in %v (%.1f fps, %d polys, %d pixels)\n",
		cfg.Frames, lvl.Name, cfg.OutputDir, elapsed.Round(time.Millisecond),
		float64(cfg.Frames)/elapsed.Seconds(), total.Solid, total.Pixels)
	return nil
}

func printInfo(lvl *level.Level) {
	s := lvl.Model.Stats()
	fmt.Printf("Level:        %s\n", lvl.Name)
	fmt.Printf("Nodes:        %d (depth %d)\n", s.Nodes, s.Depth)
	fmt.Printf("Surfaces:     %d\n", s.Surfs)
	fmt.Printf("Points:       %d\n", s.Points)
	fmt.Printf("Zones:        %d\n", s.Zones)
	fmt.Printf("Portals:      %d\n", s.Portals)
	fmt.Printf("Light meshes: %d\n", s.LightMeshes)
	for kind, n := range lvl.LightCount() {
		fmt.Printf("Lights:       %d %s\n", n, kind)
	}
}

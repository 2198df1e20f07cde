package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/render"
)

// Config holds the viewport, output and renderer settings.
type Config struct {
	// Viewport
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FOV        float64 `json:"fov"` // degrees
	ColorBytes int     `json:"color_bytes"`

	// Output
	Frames    int    `json:"frames"`
	OutputDir string `json:"output_dir"`
	Format    string `json:"format"`
	Scale     int    `json:"scale"`

	// World
	Level     string   `json:"level"`
	Textures  []string `json:"textures"`
	GLTFScale float64  `json:"gltf_scale"`

	Lattice  Lattice  `json:"lattice"`
	Lighting Lighting `json:"lighting"`

	HUD    bool `json:"hud"`
	Checks bool `json:"checks"`
}

// Lattice holds the texture lattice settings.
type Lattice struct {
	render.LatticeTolerance
	MaxXBits uint `json:"max_x_bits"`
	MaxYBits uint `json:"max_y_bits"`
	MinBits  uint `json:"min_bits"`
}

// Lighting holds the light manager limits plus output dithering.
type Lighting struct {
	light.Config
	Dither bool `json:"dither"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Level     string
	OutputDir string
	Format    string
	Frames    int
	Width     int
	Height    int
	Scale     int
	HUD       bool
	Checks    bool
}

// Resolve applies flag overrides, then fills any empty fields with
// defaults. Relative texture paths resolve against baseDir, normally the
// config file's directory.
func (c *Config) Resolve(flags Flags, baseDir string) {
	// CLI flags override config file
	if flags.Level != "" {
		c.Level = flags.Level
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.Format = flags.Format
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	if flags.Width > 0 {
		c.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Height = flags.Height
	}
	if flags.Scale > 0 {
		c.Scale = flags.Scale
	}
	c.HUD = c.HUD || flags.HUD
	c.Checks = c.Checks || flags.Checks

	if baseDir != "" {
		for i, p := range c.Textures {
			if !filepath.IsAbs(p) {
				c.Textures[i] = filepath.Join(baseDir, p)
			}
		}
		if ext := strings.ToLower(filepath.Ext(c.Level)); (ext == ".glb" || ext == ".gltf") && !filepath.IsAbs(c.Level) {
			c.Level = filepath.Join(baseDir, c.Level)
		}
	}

	// Defaults
	if c.Width <= 0 {
		c.Width = 320
	}
	if c.Height <= 0 {
		c.Height = 200
	}
	if c.FOV <= 0 || c.FOV >= 180 {
		c.FOV = 90
	}
	if c.ColorBytes != 1 {
		c.ColorBytes = 4
	}
	if c.Frames <= 0 {
		c.Frames = 1
	}
	if c.OutputDir == "" {
		c.OutputDir = "frames"
	}
	c.Format = strings.ToLower(strings.TrimPrefix(c.Format, "."))
	if c.Format == "" {
		c.Format = "png"
	}
	if c.Scale <= 0 {
		c.Scale = 1
	}
	if c.Level == "" {
		c.Level = "room"
	}
}

// Validate reports settings Resolve cannot repair.
func (c *Config) Validate() error {
	switch c.Format {
	case "png", "webp":
	default:
		return fmt.Errorf("config: unknown format %q (use png or webp)", c.Format)
	}
	if c.Lattice.MinBits > 0 && c.Lattice.MaxXBits > 0 && c.Lattice.MinBits > c.Lattice.MaxXBits {
		return fmt.Errorf("config: lattice min_bits %d above max_x_bits %d", c.Lattice.MinBits, c.Lattice.MaxXBits)
	}
	return nil
}

// Render returns the renderer options; unset fields keep the defaults.
func (c *Config) Render() render.Options {
	o := render.DefaultOptions()
	if c.Lattice.Line > 0 {
		o.Tolerance.Line = c.Lattice.Line
	}
	if c.Lattice.Cell > 0 {
		o.Tolerance.Cell = c.Lattice.Cell
	}
	if c.Lattice.MaxXBits > 0 {
		o.MaxXBits = c.Lattice.MaxXBits
	}
	if c.Lattice.MaxYBits > 0 {
		o.MaxYBits = c.Lattice.MaxYBits
	}
	if c.Lattice.MinBits > 0 {
		o.MinBits = c.Lattice.MinBits
	}
	o.Dither = c.Lighting.Dither
	o.Lighting = c.LightConfig()
	return o
}

// LightConfig returns the light manager limits; zero fields take the
// manager's defaults.
func (c *Config) LightConfig() light.Config {
	return c.Lighting.Config
}

// Camera returns a camera for the configured viewport.
func (c *Config) Camera() *render.Camera {
	cam := render.NewCamera(c.Width, c.Height)
	cam.FOV = c.FOV * math.Pi / 180
	cam.ColorBytes = c.ColorBytes
	if c.HUD {
		cam.Show |= render.ShowHUD
	}
	return cam
}

// Package render draws a BSP model into a framebuffer: span-buffer
// occlusion, lattice texture setup, lighting and span compositing.
package render

import (
	"math"

	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/math3d"
)

// ShowFlags gate optional passes.
type ShowFlags uint32

const (
	ShowBackdrop ShowFlags = 1 << iota // draw the sky on fake backdrop surfaces
	ShowLights                         // mark light positions
	ShowHUD                            // stamp frame statistics
	ShowBounds                         // outline the bounds of drawn nodes
)

// RendMap selects how surfaces are colored.
type RendMap uint8

const (
	RendDynamic RendMap = iota // textured and lit
	RendPolys                  // flat color per node
	RendZones                  // flat color per zone
	RendWire                   // BSP edges only
)

func (r RendMap) String() string {
	switch r {
	case RendPolys:
		return "polys"
	case RendZones:
		return "zones"
	case RendWire:
		return "wire"
	default:
		return "dynamic"
	}
}

// NearClip is the distance of the near clipping plane.
const NearClip = 1.0

// Camera is a viewpoint and viewport. Lock derives the view transform and
// projection constants used for one frame.
type Camera struct {
	Position math3d.Vec3

	// Euler angles in radians. Yaw turns around world Z; positive pitch
	// looks up.
	Pitch float64
	Yaw   float64
	Roll  float64

	// FOV is the horizontal field of view in radians.
	FOV float64

	SizeX, SizeY int
	// ColorBytes is 1 for brightness-only lighting, 4 for colored light.
	ColorBytes int
	Show       ShowFlags
	RendMap    RendMap

	// Valid while locked.
	Coords math3d.Coords
	FX2    float64
	FY2    float64
	Proj   float64

	locked bool
}

// NewCamera returns a camera for a width x height viewport with a 90 degree
// field of view.
func NewCamera(width, height int) *Camera {
	return &Camera{
		FOV:        math.Pi / 2,
		SizeX:      width,
		SizeY:      height,
		ColorBytes: 4,
		Show:       ShowBackdrop,
	}
}

// Lock freezes the camera for rendering. Locking a locked camera is fatal.
func (c *Camera) Lock() {
	if c.locked {
		diag.Fatalf("render: camera locked twice")
	}
	c.locked = true
	c.Coords = math3d.ViewCoords(c.Position, c.Pitch, c.Yaw, c.Roll)
	c.FX2 = float64(c.SizeX) / 2
	c.FY2 = float64(c.SizeY) / 2
	fov := c.FOV
	if fov <= 0 || fov >= math.Pi {
		fov = math.Pi / 2
	}
	c.Proj = c.FX2 / math.Tan(fov/2)
}

// Unlock releases a locked camera.
func (c *Camera) Unlock() {
	if !c.locked {
		diag.Fatalf("render: unlock of an unlocked camera")
	}
	c.locked = false
}

// viewKey holds everything that fixes where a world point lands on screen.
type viewKey struct {
	coords       math3d.Coords
	fx2, fy2     float64
	proj         float64
	sizeX, sizeY int
}

func (c *Camera) viewKey() viewKey {
	return viewKey{c.Coords, c.FX2, c.FY2, c.Proj, c.SizeX, c.SizeY}
}

// Locked reports whether the camera is locked.
func (c *Camera) Locked() bool { return c.locked }

// Project maps a view-space point with positive Z to screen coordinates.
func (c *Camera) Project(v math3d.Vec3) math3d.Vec2 {
	rz := 1 / v.Z
	return math3d.V2(c.FX2+v.X*c.Proj*rz, c.FY2+v.Y*c.Proj*rz)
}

// WorldToScreen projects a world point. ok is false behind the near plane.
func (c *Camera) WorldToScreen(p math3d.Vec3) (s math3d.Vec2, z float64, ok bool) {
	v := c.Coords.Transform(p)
	if v.Z < NearClip {
		return math3d.Vec2{}, v.Z, false
	}
	return c.Project(v), v.Z, true
}

// Ray returns the world direction through screen point (sx, sy).
func (c *Camera) Ray(sx, sy float64) math3d.Vec3 {
	return c.Coords.UntransformDir(math3d.V3((sx-c.FX2)/c.Proj, (sy-c.FY2)/c.Proj, 1)).Normalize()
}

// Forward returns the viewing direction.
func (c *Camera) Forward() math3d.Vec3 {
	cp := math.Cos(c.Pitch)
	return math3d.V3(cp*math.Cos(c.Yaw), cp*math.Sin(c.Yaw), math.Sin(c.Pitch))
}

// Right returns the horizontal right vector.
func (c *Camera) Right() math3d.Vec3 {
	return math3d.V3(math.Sin(c.Yaw), -math.Cos(c.Yaw), 0)
}

// MoveForward moves along the viewing direction.
func (c *Camera) MoveForward(d float64) {
	c.Position = c.Position.Add(c.Forward().Scale(d))
}

// MoveRight strafes sideways.
func (c *Camera) MoveRight(d float64) {
	c.Position = c.Position.Add(c.Right().Scale(d))
}

// MoveUp moves along world Z.
func (c *Camera) MoveUp(d float64) {
	c.Position = c.Position.Add(math3d.Up().Scale(d))
}

// Rotate turns the camera, keeping pitch short of straight up or down.
func (c *Camera) Rotate(dPitch, dYaw, dRoll float64) {
	c.Pitch += dPitch
	c.Yaw += dYaw
	c.Roll += dRoll

	const maxPitch = math.Pi/2 - 0.01
	c.Pitch = math.Max(-maxPitch, math.Min(maxPitch, c.Pitch))
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()
	c.Pitch = math.Asin(math.Max(-1, math.Min(1, dir.Z)))
	c.Yaw = math.Atan2(dir.Y, dir.X)
	c.Roll = 0
}

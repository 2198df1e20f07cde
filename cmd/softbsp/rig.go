package main

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/render"
)

// MotionAxis tracks velocity along one degree of freedom with spring decay.
type MotionAxis struct {
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewMotionAxis creates an axis with a harmonica spring for smooth velocity decay.
func NewMotionAxis(fps int) MotionAxis {
	return MotionAxis{
		// Frequency 6.0 stops a released key within a few frames without overshoot.
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Step returns the distance moved this frame and decays velocity toward 0.
func (a *MotionAxis) Step() float64 {
	d := a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
	return d
}

// CameraRig flies a camera with spring-damped movement and turning.
type CameraRig struct {
	Forward, Strafe, Lift MotionAxis
	Yaw, Pitch            MotionAxis

	home      math3d.Vec3
	fps       int
	moveSpeed float64
}

// NewCameraRig returns a rig that resets the camera to home.
func NewCameraRig(fps int, home math3d.Vec3, moveSpeed float64) *CameraRig {
	r := &CameraRig{home: home, fps: fps, moveSpeed: moveSpeed}
	r.Stop()
	return r
}

// Stop zeroes every velocity.
func (r *CameraRig) Stop() {
	r.Forward = NewMotionAxis(r.fps)
	r.Strafe = NewMotionAxis(r.fps)
	r.Lift = NewMotionAxis(r.fps)
	r.Yaw = NewMotionAxis(r.fps)
	r.Pitch = NewMotionAxis(r.fps)
}

// Reset stops the rig and puts cam back at home looking along +X.
func (r *CameraRig) Reset(cam *render.Camera) {
	r.Stop()
	cam.Position = r.home
	cam.Yaw, cam.Pitch, cam.Roll = 0, 0, 0
}

// Push adds velocity in units of the rig's move speed (movement) or radians
// per frame (turning).
func (r *CameraRig) Push(forward, strafe, lift, yaw, pitch float64) {
	step := r.moveSpeed / float64(r.fps)
	r.Forward.Velocity += forward * step
	r.Strafe.Velocity += strafe * step
	r.Lift.Velocity += lift * step
	r.Yaw.Velocity += yaw / float64(r.fps)
	r.Pitch.Velocity += pitch / float64(r.fps)
}

// Update moves cam one frame.
func (r *CameraRig) Update(cam *render.Camera) {
	cam.MoveForward(r.Forward.Step())
	cam.MoveRight(r.Strafe.Step())
	cam.MoveUp(r.Lift.Step())
	cam.Rotate(r.Pitch.Step(), r.Yaw.Step(), 0)
	cam.Yaw = math.Remainder(cam.Yaw, 2*math.Pi)
}

// viewKeys maps a key name to a view toggle. It returns false for keys it
// does not handle.
func viewKeys(cam *render.Camera, rig *CameraRig, key string) bool {
	switch key {
	case "1":
		cam.RendMap = render.RendDynamic
	case "2":
		cam.RendMap = render.RendPolys
	case "3":
		cam.RendMap = render.RendZones
	case "4":
		cam.RendMap = render.RendWire
	case "b":
		if cam.ColorBytes == 1 {
			cam.ColorBytes = 4
		} else {
			cam.ColorBytes = 1
		}
	case "l":
		cam.Show ^= render.ShowLights
	case "o":
		cam.Show ^= render.ShowBounds
	case "?":
		cam.Show ^= render.ShowHUD
	case "r":
		rig.Reset(cam)
	default:
		return false
	}
	return true
}

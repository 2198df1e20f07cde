package render

import (
	"math"
	"testing"

	"github.com/taigrr/softbsp/pkg/math3d"
)

func lockedCamera(t testing.TB, w, h int, pos math3d.Vec3, yaw float64) *Camera {
	t.Helper()
	cam := NewCamera(w, h)
	cam.Position = pos
	cam.Yaw = yaw
	cam.Lock()
	t.Cleanup(func() {
		if cam.Locked() {
			cam.Unlock()
		}
	})
	return cam
}

func TestCameraLock(t *testing.T) {
	cam := NewCamera(320, 200)
	cam.Lock()
	if cam.FX2 != 160 || cam.FY2 != 100 {
		t.Errorf("center = (%v, %v), want (160, 100)", cam.FX2, cam.FY2)
	}
	// 90 degree FOV: Proj equals half the width.
	if math.Abs(cam.Proj-160) > 1e-9 {
		t.Errorf("Proj = %v, want 160", cam.Proj)
	}

	defer func() {
		if recover() == nil {
			t.Error("second Lock did not panic")
		}
	}()
	cam.Lock()
}

func TestCameraUnlockWithoutLock(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Unlock of an unlocked camera did not panic")
		}
	}()
	NewCamera(10, 10).Unlock()
}

func TestCameraProject(t *testing.T) {
	cam := lockedCamera(t, 320, 200, math3d.Zero3(), 0)

	tests := []struct {
		name  string
		world math3d.Vec3
		want  math3d.Vec2
		ok    bool
	}{
		{"ahead", math3d.V3(100, 0, 0), math3d.V2(160, 100), true},
		{"right", math3d.V3(100, -100, 0), math3d.V2(320, 100), true},
		{"up", math3d.V3(100, 0, 50), math3d.V2(160, 20), true},
		{"behind", math3d.V3(-100, 0, 0), math3d.Vec2{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, ok := cam.WorldToScreen(tc.world)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got.Sub(tc.want).Dot(got.Sub(tc.want)) > 1e-12 {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCameraRayRoundTrip(t *testing.T) {
	cam := lockedCamera(t, 64, 48, math3d.V3(10, 20, 30), 0.7)
	for _, p := range []math3d.Vec2{{X: 0.5, Y: 0.5}, {X: 32, Y: 24}, {X: 63.5, Y: 10}} {
		dir := cam.Ray(p.X, p.Y)
		s, _, ok := cam.WorldToScreen(cam.Position.Add(dir.Scale(100)))
		if !ok {
			t.Fatalf("ray through %v points behind the camera", p)
		}
		if math.Abs(s.X-p.X) > 1e-6 || math.Abs(s.Y-p.Y) > 1e-6 {
			t.Errorf("ray through %v projects to %v", p, s)
		}
	}
}

func TestCameraMovement(t *testing.T) {
	cam := NewCamera(10, 10)
	cam.MoveForward(10)
	cam.MoveRight(5)
	cam.MoveUp(2)
	want := math3d.V3(10, -5, 2)
	if !cam.Position.NearlyEqual(want, 1e-9) {
		t.Errorf("position = %v, want %v", cam.Position, want)
	}

	cam.Rotate(10, 0, 0)
	if cam.Pitch >= math.Pi/2 {
		t.Errorf("pitch %v not clamped", cam.Pitch)
	}

	cam.Position = math3d.Zero3()
	cam.LookAt(math3d.V3(0, 10, 0))
	if math.Abs(cam.Yaw-math.Pi/2) > 1e-9 || cam.Pitch != 0 {
		t.Errorf("LookAt: yaw %v pitch %v", cam.Yaw, cam.Pitch)
	}
}

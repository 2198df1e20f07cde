package render

import (
	"math/rand"
	"testing"

	"github.com/taigrr/softbsp/pkg/level"
	"github.com/taigrr/softbsp/pkg/math3d"
)

func BenchmarkFrustumBuild(b *testing.B) {
	cam := lockedCamera(b, 320, 200, math3d.V3(10, 20, 30), 0.3)
	for b.Loop() {
		_ = cam.Frustum()
	}
}

func BenchmarkFrustumIntersectBox(b *testing.B) {
	cam := lockedCamera(b, 320, 200, math3d.Zero3(), 0)
	f := cam.Frustum()
	rng := rand.New(rand.NewSource(1))
	boxes := make([]math3d.Box, 1024)
	for i := range boxes {
		c := math3d.V3(rng.Float64()*400-200, rng.Float64()*400-200, rng.Float64()*400-200)
		boxes[i] = math3d.BoxOf(c.Sub(math3d.V3(8, 8, 8)), c.Add(math3d.V3(8, 8, 8)))
	}
	i := 0
	for b.Loop() {
		_ = f.IntersectBox(boxes[i&1023])
		i++
	}
}

func benchmarkDrawWorld(b *testing.B, open func() (*level.Level, error), pos math3d.Vec3, yaw float64) {
	lvl, err := open()
	if err != nil {
		b.Fatalf("level: %v", err)
	}
	cam := NewCamera(320, 200)
	cam.Position = pos
	cam.Yaw = yaw
	fb := NewFramebuffer(320, 200)
	r := NewRenderer(DefaultOptions())
	var t float64
	for b.Loop() {
		r.DrawWorld(cam, lvl, fb, t)
		t += 1.0 / 60
	}
}

func BenchmarkDrawWorldRoom(b *testing.B) {
	benchmarkDrawWorld(b, func() (*level.Level, error) {
		return level.BoxRoom(level.DefaultRoomSize, nil)
	}, math3d.V3(200, 240, 110), 0.3)
}

func BenchmarkDrawWorldTwoRooms(b *testing.B) {
	benchmarkDrawWorld(b, func() (*level.Level, error) {
		return level.TwoRooms(nil)
	}, math3d.V3(128, 256, 80), 0)
}

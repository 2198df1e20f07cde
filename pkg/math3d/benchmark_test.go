package math3d

import (
	"testing"
)

func BenchmarkMat4Mul(b *testing.B) {
	m1 := Translate(V3(1, 2, 3))
	m2 := RotateZ(0.5)

	for b.Loop() {
		_ = m1.Mul(m2)
	}
}

func BenchmarkMat4MulVec3(b *testing.B) {
	m := Translate(V3(1, 2, 3)).Mul(RotateZ(0.5))
	v := V3(1, 2, 3)

	for b.Loop() {
		_ = m.MulVec3(v)
	}
}

func BenchmarkCoordsTransform(b *testing.B) {
	c := ViewCoords(V3(10, 20, 30), 0.3, 1.1, 0)
	p := V3(100, -50, 12)

	for b.Loop() {
		_ = c.Transform(p)
	}
}

func BenchmarkPlaneClassifyPolygon(b *testing.B) {
	p := PlaneFromNormal(V3(1, 1, 0), V3(0, 0, 0))
	pts := []Vec3{V3(-1, -1, 0), V3(2, 0, 0), V3(0, 2, 1), V3(-2, 0, 1)}

	for b.Loop() {
		_ = p.ClassifyPolygon(pts)
	}
}

func BenchmarkVec3Normalize(b *testing.B) {
	v := V3(1, 2, 3)

	for b.Loop() {
		_ = v.Normalize()
	}
}

func BenchmarkVec3Cross(b *testing.B) {
	v1 := V3(1, 2, 3)
	v2 := V3(4, 5, 6)

	for b.Loop() {
		_ = v1.Cross(v2)
	}
}

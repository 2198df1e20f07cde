package model

import (
	"testing"

	"github.com/taigrr/softbsp/pkg/math3d"
)

// corridor is the slab 0 <= x <= 10 bounded by two inward-facing walls.
func corridor() *Model {
	m := &Model{
		Points: []math3d.Vec3{
			{X: 0, Y: -5, Z: -5}, {X: 0, Y: 5, Z: -5}, {X: 0, Y: 5, Z: 5}, {X: 0, Y: -5, Z: 5},
			{X: 10, Y: -5, Z: -5}, {X: 10, Y: -5, Z: 5}, {X: 10, Y: 5, Z: 5}, {X: 10, Y: 5, Z: -5},
		},
		Verts:  []int{0, 1, 2, 3, 4, 5, 6, 7},
		Zones:  []Zone{{Name: "solid"}, {Name: "corridor"}},
		Surfs:  []Surf{{Texture: IndexNone, LightMesh: IndexNone}, {Texture: IndexNone, LightMesh: IndexNone}},
		Bounds: []math3d.Box{math3d.BoxOf(math3d.V3(0, -5, -5), math3d.V3(10, 5, 5)), math3d.BoxOf(math3d.V3(10, -5, -5), math3d.V3(10, 5, 5))},
	}
	m.Nodes = []Node{
		{
			Plane: math3d.PlaneFromNormal(math3d.V3(1, 0, 0), math3d.V3(0, 0, 0)),
			Front: 1, Back: IndexNone, Coplanar: IndexNone,
			Surf: 0, VertPool: 0, NumVerts: 4, Zone: [2]int{0, 1}, Bound: 0,
			ZoneMask: 0b11,
		},
		{
			Plane: math3d.PlaneFromNormal(math3d.V3(-1, 0, 0), math3d.V3(10, 0, 0)),
			Front: IndexNone, Back: IndexNone, Coplanar: IndexNone,
			Surf: 1, VertPool: 4, NumVerts: 4, Zone: [2]int{0, 1}, Bound: 1,
			ZoneMask: 0b11,
		},
	}
	return m
}

func TestPointZone(t *testing.T) {
	m := corridor()
	tests := []struct {
		name string
		p    math3d.Vec3
		want int
	}{
		{"inside", math3d.V3(5, 0, 0), 1},
		{"behind first wall", math3d.V3(-3, 0, 0), 0},
		{"behind second wall", math3d.V3(12, 0, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.PointZone(tt.p); got != tt.want {
				t.Errorf("PointZone(%v) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}

	if (&Model{}).PointZone(math3d.V3(1, 2, 3)) != 0 {
		t.Error("empty model should report zone 0")
	}
}

func TestLineCheck(t *testing.T) {
	m := corridor()
	tests := []struct {
		name string
		a, b math3d.Vec3
		want bool
	}{
		{"inside", math3d.V3(1, 0, 0), math3d.V3(9, 3, 1), true},
		{"through far wall", math3d.V3(2, 0, 0), math3d.V3(12, 0, 0), false},
		{"through near wall", math3d.V3(2, 0, 0), math3d.V3(-1, 0, 0), false},
		{"endpoint on wall", math3d.V3(2, 0, 0), math3d.V3(10, 0, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.LineCheck(tt.a, tt.b); got != tt.want {
				t.Errorf("LineCheck = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSphereNodes(t *testing.T) {
	m := corridor()
	var hit []int
	m.SphereNodes(math3d.V3(8, 0, 0), 3, func(n int) { hit = append(hit, n) })
	if len(hit) != 1 || hit[0] != 1 {
		t.Errorf("sphere near the far wall touched %v, want [1]", hit)
	}

	hit = hit[:0]
	m.SphereNodes(math3d.V3(5, 0, 0), 6, func(n int) { hit = append(hit, n) })
	if len(hit) != 2 {
		t.Errorf("large sphere touched %v, want both walls", hit)
	}
}

func TestValidate(t *testing.T) {
	m := corridor()
	if err := m.Validate(); err != nil {
		t.Fatalf("valid model: %v", err)
	}
	m.Nodes[1].Front = 7
	m.Surfs[0].LightMesh = 3
	if err := m.Validate(); err == nil {
		t.Error("Validate should report bad indices")
	}
}

func TestStatsAndDefaults(t *testing.T) {
	m := corridor()
	s := m.Stats()
	if s.Nodes != 2 || s.Depth != 2 || s.Zones != 2 {
		t.Errorf("Stats = %+v", s)
	}
	if m.SurfTexture(0) == nil {
		t.Error("surface without texture should get the default")
	}
	if m.LightMesh(0) != nil {
		t.Error("surface without light mesh should return nil")
	}
	if !PolyMasked.Any(PolyNoOcclude) || (PolyPortal).Occludes() || !PolyFlags(0).Occludes() {
		t.Error("occlusion flag helpers disagree")
	}
}

func TestOccludes(t *testing.T) {
	tests := []struct {
		name  string
		flags PolyFlags
		want  bool
	}{
		{"plain", 0, true},
		{"two sided", PolyTwoSided, true},
		{"unlit", PolyUnlit, true},
		{"semi solid", PolySemiSolid, false},
		{"not solid", PolyNotSolid, false},
		{"masked", PolyMasked, false},
		{"translucent", PolyTranslucent, false},
		{"invisible", PolyInvisible, false},
		{"portal", PolyPortal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.flags.Occludes(); got != tt.want {
				t.Errorf("Occludes() = %v, want %v", got, tt.want)
			}
		})
	}
}

package level

import (
	"math"
	"testing"

	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
)

func TestAxisRectFacing(t *testing.T) {
	for axis := range 3 {
		for _, facing := range []float64{1, -1} {
			pts := axisRect(axis, 5, 0, 0, 10, 20, facing)
			plane, ok := math3d.PlaneFromPolygon(pts)
			if !ok {
				t.Fatalf("axis %d: degenerate rectangle", axis)
			}
			if got := component(plane.Normal, axis); math.Abs(got-facing) > 1e-9 {
				t.Errorf("axis %d facing %v: normal %v", axis, facing, plane.Normal)
			}
		}
	}
}

func TestBoxRoom(t *testing.T) {
	lvl, err := BoxRoom(DefaultRoomSize, nil)
	if err != nil {
		t.Fatalf("BoxRoom: %v", err)
	}
	m := lvl.Model

	if got := len(m.Surfs); got != 6 {
		t.Errorf("surfs = %d, want 6", got)
	}
	if got := m.PointZone(DefaultRoomSize.Scale(0.5)); got != 1 {
		t.Errorf("center zone = %d, want 1", got)
	}
	for _, p := range []math3d.Vec3{{X: -10, Y: 10, Z: 10}, {X: 10, Y: 10, Z: 400}, {X: 600, Y: 600, Z: 100}} {
		if got := m.PointZone(p); got != 0 {
			t.Errorf("PointZone(%v) = %d, want solid", p, got)
		}
	}
	if len(m.LightMeshes) != 6 {
		t.Fatalf("light meshes = %d, want 6", len(m.LightMeshes))
	}
	for i, lm := range m.LightMeshes {
		if len(lm.Lights) != 1 || len(lm.Shadows) != 1 {
			t.Errorf("mesh %d: lights %v shadows %d", i, lm.Lights, len(lm.Shadows))
			continue
		}
		mid := (lm.VSize/2)*lm.USize + lm.USize/2
		if lm.Shadows[0][mid] != 255 {
			t.Errorf("mesh %d: middle sample shadowed", i)
		}
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLightMeshCoversSurface(t *testing.T) {
	lvl, err := BoxRoom(DefaultRoomSize, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := lvl.Model
	for s := range m.Surfs {
		lm := m.LightMesh(s)
		surf := &m.Surfs[s]
		// Mesh point (i, j) maps back to texture coordinates on the grid.
		for _, ij := range [][2]int{{0, 0}, {lm.USize - 1, 0}, {1, lm.VSize - 1}} {
			p := lm.PointAt(ij[0], ij[1])
			d := p.Sub(surf.Base)
			u, v := d.Dot(surf.TextureU), d.Dot(surf.TextureV)
			wantU := lm.UStart + float64(ij[0])*lm.Spacing
			wantV := lm.VStart + float64(ij[1])*lm.Spacing
			if math.Abs(u-wantU) > 1e-6 || math.Abs(v-wantV) > 1e-6 {
				t.Errorf("surf %d point %v: (u,v) = (%v,%v), want (%v,%v)", s, ij, u, v, wantU, wantV)
			}
			if math.Abs(surf.Normal.Dot(p.Sub(surf.Base))) > 1e-6 {
				t.Errorf("surf %d point %v off the surface plane", s, ij)
			}
		}
	}
}

func TestTwoRooms(t *testing.T) {
	lvl, err := TwoRooms(nil)
	if err != nil {
		t.Fatalf("TwoRooms: %v", err)
	}
	m := lvl.Model

	tests := []struct {
		name string
		p    math3d.Vec3
		want int
	}{
		{"west room", math3d.V3(256, 256, 100), 1},
		{"east room", math3d.V3(800, 256, 100), 2},
		{"corridor", math3d.V3(528, 256, 50), 1},
		{"inside wall", math3d.V3(528, 64, 50), 0},
		{"above corridor", math3d.V3(528, 256, 200), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.PointZone(tt.p); got != tt.want {
				t.Errorf("PointZone(%v) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}

	if !m.LineCheck(math3d.V3(256, 256, 60), math3d.V3(800, 256, 60)) {
		t.Error("line through the doorway should be clear")
	}
	if m.LineCheck(math3d.V3(256, 64, 60), math3d.V3(800, 64, 60)) {
		t.Error("line through the wall should be blocked")
	}
	if m.Zones[1].Connect&(1<<2) == 0 || m.Zones[2].Connect&(1<<1) == 0 {
		t.Error("portal should connect the two zones")
	}
	if s := m.Stats(); s.Portals != 1 {
		t.Errorf("portals = %d, want 1", s.Portals)
	}
	if m.Nodes[0].ZoneMask&0b110 != 0b110 {
		t.Errorf("root zone mask %b misses a room", m.Nodes[0].ZoneMask)
	}
}

func TestBuildRejectsBadZone(t *testing.T) {
	b := NewBuilder()
	b.AddPoly(Poly{Verts: axisRect(2, 0, 0, 0, 1, 1, 1), Zone: 3})
	if _, err := b.Build(); err == nil {
		t.Error("expected an error for an unknown zone")
	}
	if _, err := NewBuilder().Build(); err == nil {
		t.Error("expected an error for an empty build")
	}
}

func TestBuildSplitsAndBounds(t *testing.T) {
	b := NewBuilder()
	zone := b.AddZone(model.Zone{Name: "a"})
	b.AddBox(math3d.V3(0, 0, 0), math3d.V3(100, 100, 100), zone, 0)
	// A free-standing pillar splits some of the room's walls' planes.
	b.AddPoly(Poly{Verts: axisRect(0, 50, 20, 0, 80, 100, 1), Zone: zone, BackZone: zone, Flags: model.PolyTwoSided})

	m, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	root, ok := m.NodeBound(0)
	if !ok {
		t.Fatal("root has no bound")
	}
	if !root.ContainsPoint(math3d.V3(0, 0, 0)) || !root.ContainsPoint(math3d.V3(100, 100, 100)) {
		t.Errorf("root bound %v does not cover the room", root)
	}
	seen := make(map[int]bool)
	for i := range m.Nodes {
		seen[m.Nodes[i].Surf] = true
	}
	if len(seen) != 7 {
		t.Errorf("%d surfaces reached the tree, want 7", len(seen))
	}
}

func TestFitAxes(t *testing.T) {
	p := [3]math3d.Vec3{{X: 0, Y: 0, Z: 0}, {X: 64, Y: 0, Z: 0}, {X: 0, Y: 64, Z: 0}}
	uv := [3]math3d.Vec2{{X: 10, Y: 20}, {X: 74, Y: 20}, {X: 10, Y: 84}}
	tu, tv, pu, pv := fitAxes(p, uv)
	if !tu.NearlyEqual(math3d.V3(1, 0, 0), 1e-9) || !tv.NearlyEqual(math3d.V3(0, 1, 0), 1e-9) {
		t.Errorf("axes = %v %v", tu, tv)
	}
	if pu != 10 || pv != 20 {
		t.Errorf("pan = %v %v", pu, pv)
	}
}

func TestLoadGLTFInvalidPath(t *testing.T) {
	if _, _, err := LoadGLTF("/nonexistent/path.glb", GLTFOptions{}); err == nil {
		t.Error("expected error for nonexistent file")
	}
	if _, err := Open("/nonexistent/level.gltf", GLTFOptions{}); err == nil {
		t.Error("Open should fail for a missing file")
	}
}

package light

import (
	"math"
	"testing"

	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
)

// floorModel has two 96x96 floor surfaces, each with a 4x4 light mesh.
// Surface 0 is lit by lights 0 and 1, surface 1 by light 2.
func floorModel(lights0 ...int) *model.Model {
	if lights0 == nil {
		lights0 = []int{0, 1}
	}
	surf := func(base math3d.Vec3, mesh int) model.Surf {
		return model.Surf{
			Texture: model.IndexNone, Base: base, Normal: math3d.V3(0, 0, 1),
			TextureU: math3d.V3(1, 0, 0), TextureV: math3d.V3(0, 1, 0), LightMesh: mesh,
		}
	}
	mesh := func(origin math3d.Vec3, lights []int) model.LightMeshIndex {
		return model.LightMeshIndex{
			Origin: origin, UAxis: math3d.V3(32, 0, 0), VAxis: math3d.V3(0, 32, 0),
			USize: 4, VSize: 4, Spacing: 32, Shift: 5, Lights: lights,
		}
	}
	far := math3d.V3(1000, 0, 0)
	return &model.Model{
		Surfs:       []model.Surf{surf(math3d.Zero3(), 0), surf(far, 1)},
		LightMeshes: []model.LightMeshIndex{mesh(math3d.Zero3(), lights0), mesh(far, []int{2})},
		Zones:       []model.Zone{{Name: "solid"}, {Name: "floor", Ambient: 0.1}},
		Nodes: []model.Node{{
			Plane: math3d.PlaneFromNormal(math3d.V3(0, 0, 1), math3d.Zero3()),
			Front: model.IndexNone, Back: model.IndexNone, Coplanar: model.IndexNone,
			Surf: 0, Bound: model.IndexNone, Zone: [2]int{0, 1},
		}},
	}
}

func testLights() []*Actor {
	return []*Actor{
		{Name: "a", Location: math3d.V3(10, 10, 40), Type: TypeSteady, Brightness: 0.6, Radius: 200, Hue: 0, Saturation: 0.5, Static: true},
		{Name: "b", Location: math3d.V3(90, 60, 30), Type: TypeSteady, Brightness: 0.8, Radius: 150, Hue: 120, Saturation: 0.5, Static: true},
		{Name: "c", Location: math3d.V3(1040, 40, 30), Type: TypeSteady, Brightness: 1, Radius: 150, Static: true},
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		a    Actor
		want Kind
	}{
		{"dark", Actor{Type: TypeSteady, Radius: 10}, NotLight},
		{"no type", Actor{Brightness: 1, Radius: 10}, NotLight},
		{"backdrop", Actor{Type: TypeBackdrop, Brightness: 1, Radius: 10}, BackdropLight},
		{"static", Actor{Type: TypeSteady, Brightness: 1, Radius: 10, Static: true}, StaticLight},
		{"pulsing", Actor{Type: TypePulse, Brightness: 1, Radius: 10, Static: true}, DynamicLight},
		{"searchlight", Actor{Type: TypeSteady, Effect: EffectSearchlight, Brightness: 1, Radius: 10, Static: true}, DynamicLight},
		{"moving", Actor{Type: TypeSteady, Brightness: 1, Radius: 10, Moving: true}, MovingLight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
	if !(NotLight < BackdropLight && BackdropLight < StaticLight && StaticLight < DynamicLight && DynamicLight < MovingLight) {
		t.Error("kinds are not ordered by per-frame cost")
	}
}

func TestTypeScale(t *testing.T) {
	a := &Actor{Period: 1}
	tests := []struct {
		typ  Type
		time float64
		want float64
	}{
		{TypeSteady, 3.3, 1},
		{TypeNone, 0, 0},
		{TypeBlink, 0.25, 1},
		{TypeBlink, 0.75, 0},
		{TypeStrobe, 0.05, 1},
		{TypeStrobe, 0.5, 0},
		{TypePulse, 0.25, 1},
		{TypePulse, 0.75, 0.2},
	}
	for _, tt := range tests {
		if got := tt.typ.Scale(a, tt.time); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Type %d at %v = %v, want %v", tt.typ, tt.time, got, tt.want)
		}
	}
	for i := range 50 {
		if v := TypeFlicker.Scale(a, float64(i)*0.37); v < 0.5 || v > 1 {
			t.Fatalf("flicker %v out of range", v)
		}
	}
}

func TestSpotlightCone(t *testing.T) {
	a := &Actor{Location: math3d.V3(0, 0, 100), Direction: math3d.V3(0, 0, -1), Type: TypeSteady, Effect: EffectSpotlight, Brightness: 1, Radius: 500, Cone: 20}
	in := resolve(a, 0, 0)
	n := math3d.V3(0, 0, 1)
	if f := in.Effect.Factor(&in, math3d.V3(0, 0, 0), n); f <= 0 {
		t.Errorf("point under the spot got %v", f)
	}
	if f := in.Effect.Factor(&in, math3d.V3(200, 0, 0), n); f != 0 {
		t.Errorf("point outside the cone got %v", f)
	}
}

func TestVolumeFog(t *testing.T) {
	eye := math3d.V3(-100, 0, 0)
	if got := volumeFog(math3d.Zero3(), 10, eye, math3d.V3(100, 0, 0)); math.Abs(got-1) > 1e-9 {
		t.Errorf("ray through the center = %v, want 1", got)
	}
	if got := volumeFog(math3d.Zero3(), 10, eye, math3d.V3(100, 50, 0)); got != 0 {
		t.Errorf("ray missing the sphere = %v, want 0", got)
	}
	if got := volumeFog(math3d.Zero3(), 10, eye, math3d.Zero3()); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("ray ending at the center = %v, want 0.5", got)
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	lights := testLights()
	render := func(order ...int) []Sample {
		m := NewManager(Config{})
		m.BeginFrame(floorModel(order...), lights, 0, math3d.WorldCoords())
		return m.SetupForSurf(0, 1, 4).Samples
	}
	ab := render(0, 1)
	ba := render(1, 0)
	for i := range ab {
		d := math.Abs(float64(ab[i].R-ba[i].R)) + math.Abs(float64(ab[i].G-ba[i].G)) + math.Abs(float64(ab[i].B-ba[i].B))
		if d > 1e-5 {
			t.Fatalf("sample %d differs: %v vs %v", i, ab[i], ba[i])
		}
	}
}

func TestNearestBrighterThanFarthest(t *testing.T) {
	lights := testLights()[:1]
	m := NewManager(Config{})
	m.BeginFrame(floorModel(0), lights, 0, math3d.WorldCoords())
	mesh := m.SetupForSurf(0, 1, 1)
	near := mesh.At(math3d.V3(10, 10, 0))
	far := mesh.At(math3d.V3(96, 96, 0))
	if near.R <= far.R {
		t.Errorf("near %v not brighter than far %v", near, far)
	}
	if near.R != near.G || near.G != near.B {
		t.Errorf("depth 1 light should be grey, got %v", near)
	}
}

func TestChangedInvalidatesOnlyItsMaps(t *testing.T) {
	lights := testLights()
	mdl := floorModel()
	m := NewManager(Config{})

	frame := func() Stats {
		m.BeginFrame(mdl, lights, 0, math3d.WorldCoords())
		m.SetupForSurf(0, 1, 4)
		m.SetupForSurf(1, 1, 4)
		return m.Stats()
	}
	first := frame()
	if first.Illum.Misses != 3 || first.Static.Misses != 2 {
		t.Fatalf("first frame: illum %+v static %+v", first.Illum, first.Static)
	}

	lights[0].Changed = true
	second := frame()
	if lights[0].Changed {
		t.Error("BeginFrame should clear Changed")
	}
	if d := second.Illum.Misses - first.Illum.Misses; d != 1 {
		t.Errorf("illumination misses after change = %d, want 1", d)
	}
	if d := second.Illum.Hits - first.Illum.Hits; d != 1 {
		t.Errorf("illumination hits after change = %d, want 1", d)
	}
	if d := second.Static.Hits - first.Static.Hits; d != 1 {
		t.Errorf("unrelated surface should hit its static map, hits +%d", d)
	}
	if d := second.Shadow.Misses - first.Shadow.Misses; d != 0 {
		t.Errorf("shadow maps should survive a light change, misses +%d", d)
	}

	third := frame()
	if third.Illum.Misses != second.Illum.Misses || third.Static.Misses != second.Static.Misses {
		t.Error("an unchanged frame should not miss")
	}
}

// sameLighting reports whether two meshes light surface 0 of floorModel
// alike on a 16 unit grid.
func sameLighting(a, b *Mesh) bool {
	const eps = 1e-5
	for y := 0.0; y <= 96; y += 16 {
		for x := 0.0; x <= 96; x += 16 {
			p := math3d.V3(x, y, 0)
			sa, sb := a.At(p), b.At(p)
			if math.Abs(float64(sa.R-sb.R)) > eps || math.Abs(float64(sa.G-sb.G)) > eps || math.Abs(float64(sa.B-sb.B)) > eps {
				return false
			}
		}
	}
	return true
}

func TestStaticResultantAfterLightOff(t *testing.T) {
	lights := testLights()
	mdl := floorModel()
	m := NewManager(Config{})
	frame := func() *Mesh {
		m.BeginFrame(mdl, lights, 0, math3d.WorldCoords())
		return m.SetupForSurf(0, 1, 4)
	}
	fresh := func() *Mesh {
		f := NewManager(Config{})
		f.BeginFrame(mdl, lights, 0, math3d.WorldCoords())
		return f.SetupForSurf(0, 1, 4)
	}

	bothOn := frame()
	lights[0].Brightness, lights[0].Changed = 0, true
	frame()
	lights[1].Changed = true
	got := frame()
	if sameLighting(got, bothOn) {
		t.Error("switched off light still lights the surface")
	}
	if !sameLighting(got, fresh()) {
		t.Error("cached lighting differs from a fresh build after a light went off")
	}

	lights[0].Brightness = 0.6
	lights[0].Type = TypePulse
	frame()
	lights[0].Type, lights[0].Changed = TypeSteady, true
	lights[1].Changed = true
	if !sameLighting(frame(), fresh()) {
		t.Error("cached lighting differs from a fresh build after a kind change")
	}
}

func TestStaticSetTransitions(t *testing.T) {
	// spare is outside every mesh; switching it on pushes b past MaxLights.
	spare := &Actor{Name: "spare", Location: math3d.V3(5000, 5000, 5000), Type: TypeSteady, Radius: 10, Static: true}
	lights := append([]*Actor{spare}, testLights()...)
	a, b := lights[1], lights[2]
	mdl := floorModel(1, 2)
	cfg := Config{MaxLights: 2}
	m := NewManager(cfg)

	steps := []struct {
		name   string
		change func()
	}{
		{"both static", func() {}},
		{"a off", func() { a.Brightness, a.Changed = 0, true }},
		{"b changed", func() { b.Changed = true }},
		{"a back on", func() { a.Brightness, a.Changed = 0.6, true }},
		{"a moving", func() { a.Moving = true }},
		{"b changed while a moves", func() { b.Changed = true }},
		{"a static again", func() { a.Moving = false }},
		{"b dropped", func() { spare.Brightness = 1 }},
		{"a changed while b dropped", func() { a.Changed = true }},
		{"b restored", func() { spare.Brightness = 0 }},
	}
	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			st.change()
			m.BeginFrame(mdl, lights, 0, math3d.WorldCoords())
			got := m.SetupForSurf(0, 1, 4)

			f := NewManager(cfg)
			f.BeginFrame(mdl, lights, 0, math3d.WorldCoords())
			if !sameLighting(got, f.SetupForSurf(0, 1, 4)) {
				t.Error("cached lighting differs from a fresh manager")
			}
		})
	}
}

func TestConstantMeshes(t *testing.T) {
	mdl := floorModel()
	mdl.Surfs = append(mdl.Surfs, model.Surf{LightMesh: model.IndexNone}, model.Surf{Flags: model.PolyUnlit, LightMesh: 0})
	m := NewManager(Config{})
	m.BeginFrame(mdl, nil, 0, math3d.WorldCoords())

	if mesh := m.SetupForSurf(2, 1, 4); mesh != nil {
		t.Error("surface without a light mesh should return nil")
	}
	if mesh := m.SetupForSurf(3, 1, 4); mesh.At(math3d.Zero3()) != Grey(1) {
		t.Error("unlit surface should be full bright")
	}
	mesh := m.SetupForSurf(0, 1, 4)
	if mesh.Index != nil || mesh.Constant != Grey(0.1) {
		t.Errorf("surface with no active lights = %+v, want zone ambient", mesh)
	}
	if b := m.SetupForBackdrop(4); b.Constant != Grey(1) {
		t.Errorf("backdrop without lights = %v", b.Constant)
	}
}

func TestMovingLight(t *testing.T) {
	lights := append(testLights(), &Actor{
		Name: "torch", Location: math3d.V3(48, 48, 20), Type: TypeSteady,
		Brightness: 1, Radius: 100, Moving: true,
	})
	mdl := floorModel()
	m := NewManager(Config{})

	m.BeginFrame(mdl, lights[:3], 0, math3d.WorldCoords())
	still := m.SetupForSurf(0, 1, 4).At(math3d.V3(48, 48, 0))

	m.BeginFrame(mdl, lights, 0, math3d.WorldCoords())
	mesh := m.SetupForSurf(0, 1, 4)
	if !mesh.Dynamic {
		t.Error("mesh touched by a moving light should be rebuilt per frame")
	}
	if got := m.Stats().MovingPairs; got != 1 {
		t.Errorf("moving pairs = %d, want 1", got)
	}
	if lit := mesh.At(math3d.V3(48, 48, 0)); lit.B <= still.B {
		t.Errorf("moving light did not brighten the floor: %v vs %v", lit, still)
	}
}

func TestMaxLightsDrops(t *testing.T) {
	before := diag.Drops.Snapshot()
	m := NewManager(Config{MaxLights: 1})
	m.BeginFrame(floorModel(), testLights(), 0, math3d.WorldCoords())
	if got := len(m.Infos()); got != 1 {
		t.Errorf("resolved %d lights, want 1", got)
	}
	if d := diag.Drops.Snapshot().Sub(before); d.Lights != 2 {
		t.Errorf("dropped %d lights, want 2", d.Lights)
	}
}

func TestApplyLatticeEffectsStride(t *testing.T) {
	m := NewManager(Config{})
	mdl := floorModel(0)
	m.BeginFrame(mdl, testLights(), 0, math3d.WorldCoords())
	mesh := m.SetupForSurf(0, 1, 4)

	row := make([]LatticePoint, 5)
	for i := range row {
		row[i].World = math3d.V3(float64(i)*20, 30, 0)
	}
	m.ApplyLatticeEffects(mesh, &mdl.Surfs[0], 1, row, 2)

	want := row[0].Light.Lerp(row[2].Light, 0.5)
	if math.Abs(float64(row[1].Light.R-want.R)) > 1e-6 {
		t.Errorf("interpolated light %v, want %v", row[1].Light, want)
	}
	if row[4].Light != mesh.At(row[4].World) {
		t.Error("last point of the row should be sampled")
	}

	xb, yb := m.LatticeLimits(&model.Surf{Flags: model.PolySmallWavy}, nil)
	if xb != 4 || yb != 4 {
		t.Errorf("wavy limits = %d,%d", xb, yb)
	}
	xb, yb = m.LatticeLimits(&mdl.Surfs[0], mesh)
	if xb != MaxLatticeXBits || yb != MaxLatticeYBits {
		t.Errorf("plain limits = %d,%d", xb, yb)
	}
}

func BenchmarkSetupForSurf(b *testing.B) {
	lights := testLights()
	lights[1].Type = TypePulse
	mdl := floorModel()
	m := NewManager(Config{})
	for b.Loop() {
		m.BeginFrame(mdl, lights, 0.5, math3d.WorldCoords())
		m.SetupForSurf(0, 1, 4)
	}
}

package light

import (
	"slices"

	"github.com/taigrr/softbsp/pkg/cache"
	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/memstack"
	"github.com/taigrr/softbsp/pkg/model"
)

// Config holds the Manager's capacity limits.
type Config struct {
	// MaxPolyLights caps the lights merged into one surface.
	MaxPolyLights int `json:"max_poly_lights"`
	// MaxDynLightPolys caps the surface/light pairs moving lights add per frame.
	MaxDynLightPolys int `json:"max_dyn_light_polys"`
	// MaxLights caps the lights resolved per frame.
	MaxLights int `json:"max_lights"`
	// CacheLimit is the soft entry limit of each cache tier.
	CacheLimit int `json:"cache_limit"`
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxPolyLights:    model.MaxPolyLights,
		MaxDynLightPolys: 512,
		MaxLights:        256,
		CacheLimit:       4096,
	}
}

// Tier identifies a cache level.
type Tier uint8

const (
	TierShadow Tier = iota
	TierIllum
	TierStatic
)

// CacheID keys every cached lighting map. Fields a tier does not depend on
// are left zero.
type CacheID struct {
	Tier  Tier
	Surf  int
	Light int
	Zone  int
	Depth int
	Gen   uint64
}

// Stats reports cache behaviour and per-frame work.
type Stats struct {
	Shadow cache.Stats
	Illum  cache.Stats
	Static cache.Stats

	Lights      int // lights resolved this frame
	MovingPairs int // surface/light pairs added by moving lights
	Meshes      int // meshes built this frame
}

// Manager builds and caches surface illumination.
type Manager struct {
	cfg   Config
	model *model.Model

	infos   []Info
	byLight []int // light index -> infos index, -1 when inactive
	gens    []uint64
	moving  map[int][]int
	time    float64
	eye     math3d.Vec3

	frame  *memstack.Stack[Sample]
	scalar *memstack.Stack[float32]

	shadows *cache.Cache[CacheID, []float32]
	illum   *cache.Cache[CacheID, []float32]
	static  *cache.Cache[CacheID, staticEntry]

	staticSet []uint64

	movingPairs int
	meshes      int
}

// NewManager returns a Manager with the given limits; zero fields take the
// defaults.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.MaxPolyLights <= 0 || cfg.MaxPolyLights > model.MaxPolyLights {
		cfg.MaxPolyLights = def.MaxPolyLights
	}
	if cfg.MaxDynLightPolys <= 0 {
		cfg.MaxDynLightPolys = def.MaxDynLightPolys
	}
	if cfg.MaxLights <= 0 {
		cfg.MaxLights = def.MaxLights
	}
	if cfg.CacheLimit <= 0 {
		cfg.CacheLimit = def.CacheLimit
	}
	return &Manager{
		cfg:     cfg,
		moving:  make(map[int][]int),
		frame:   memstack.New[Sample](0),
		scalar:  memstack.New[float32](0),
		shadows: cache.New[CacheID, []float32](cfg.CacheLimit),
		illum:   cache.New[CacheID, []float32](cfg.CacheLimit),
		static:  cache.New[CacheID, staticEntry](cfg.CacheLimit),
	}
}

// Config returns the limits in use.
func (m *Manager) Config() Config { return m.cfg }

// BeginFrame resolves the lights for a frame at time seconds seen from
// coords. Meshes returned during the previous frame become invalid.
func (m *Manager) BeginFrame(mdl *model.Model, lights []*Actor, time float64, coords math3d.Coords) {
	if mdl != m.model {
		m.Flush()
		m.model = mdl
	}
	before := diag.Drops.Snapshot()

	m.frame.Reset()
	m.scalar.Reset()
	m.time = time
	m.eye = coords.Origin
	m.infos = m.infos[:0]
	m.movingPairs, m.meshes = 0, 0
	clear(m.moving)

	for len(m.gens) < len(lights) {
		m.gens = append(m.gens, 0)
	}
	m.byLight = m.byLight[:0]
	for i, a := range lights {
		m.byLight = append(m.byLight, -1)
		if a == nil {
			continue
		}
		if a.Changed {
			m.gens[i]++
			a.Changed = false
		}
		if a.Kind() == NotLight {
			continue
		}
		if len(m.infos) >= m.cfg.MaxLights {
			diag.Drops.Lights.Add(1)
			continue
		}
		m.byLight[i] = len(m.infos)
		m.infos = append(m.infos, resolve(a, i, time))
	}

	for k := range m.infos {
		if m.infos[k].Kind == MovingLight {
			m.addMoving(&m.infos[k])
		}
	}

	if d := diag.Drops.Snapshot().Sub(before); d.Any() {
		diag.Logger().Warn("light limits reached", "drops", d)
	}
}

// addMoving attaches a moving light to every lit surface within its radius.
func (m *Manager) addMoving(in *Info) {
	if m.model == nil {
		return
	}
	m.model.SphereNodes(in.Location, in.Radius, func(node int) {
		n := &m.model.Nodes[node]
		surf := &m.model.Surfs[n.Surf]
		if surf.LightMesh == model.IndexNone || surf.Flags.Has(model.PolyUnlit) {
			return
		}
		if n.Plane.Dot(in.Location) <= 0 && !surf.Flags.Has(model.PolyTwoSided) {
			return
		}
		list := m.moving[n.Surf]
		for _, l := range list {
			if l == in.Index {
				return
			}
		}
		switch {
		case len(list)+len(m.model.LightMeshes[surf.LightMesh].Lights) >= m.cfg.MaxPolyLights:
			diag.Drops.PolyLights.Add(1)
		case m.movingPairs >= m.cfg.MaxDynLightPolys:
			diag.Drops.DynLightPolys.Add(1)
		default:
			m.moving[n.Surf] = append(list, in.Index)
			m.movingPairs++
		}
	})
}

// info returns the frame info of light index li, or nil.
func (m *Manager) info(li int) *Info {
	if li < 0 || li >= len(m.byLight) || m.byLight[li] < 0 {
		return nil
	}
	return &m.infos[m.byLight[li]]
}

// Infos returns the lights resolved for this frame.
func (m *Manager) Infos() []Info { return m.infos }

// SetupForSurf returns the illumination of surf seen in zone with the given
// color depth (1 for brightness only, 4 for RGB). It returns nil when the
// surface has no light mesh; callers then light it with a constant.
func (m *Manager) SetupForSurf(surf, zone, depth int) *Mesh {
	diag.Assertf(m.model != nil, "light: SetupForSurf before BeginFrame")
	s := &m.model.Surfs[surf]
	if s.Flags.Has(model.PolyUnlit) {
		return &Mesh{Constant: Grey(1)}
	}
	idx := m.model.LightMesh(surf)
	if idx == nil {
		return nil
	}
	m.meshes++

	mesh := &Mesh{
		Index: idx,
		base:  s.Base,
		tu:    s.TextureU,
		tv:    s.TextureV,
	}
	var bits uint
	note := func(in *Info) {
		if b := in.Effect.LatticeBits(); b > 0 && (bits == 0 || b < bits) {
			bits = b
		}
	}

	ambient := m.ambient(zone)
	hasStatic := false
	dynamic := false
	for _, li := range idx.Lights {
		if in := m.info(li); in != nil && in.Kind >= StaticLight {
			note(in)
			if in.Kind == StaticLight {
				hasStatic = true
			} else {
				dynamic = true
			}
		}
	}
	for _, li := range m.moving[surf] {
		note(m.info(li))
		dynamic = true
	}
	mesh.LatticeBits = bits

	if !hasStatic && !dynamic {
		mesh.Index = nil
		mesh.Constant = Grey(ambient)
		return mesh
	}

	static := m.staticResultant(surf, zone, depth, idx, ambient)
	if !dynamic {
		mesh.Samples = static
		return mesh
	}

	out := m.frame.AllocSlice(len(static))
	copy(out, static)
	for k, li := range idx.Lights {
		in := m.info(li)
		if in == nil || in.Kind < DynamicLight {
			continue
		}
		m.merge(out, m.illumination(surf, k, in, idx), in, depth)
	}
	for _, li := range m.moving[surf] {
		in := m.info(li)
		m.merge(out, m.computeIllum(surf, in, idx, nil, m.scalar.AllocSlice(idx.Points())), in, depth)
	}
	mesh.Samples = out
	mesh.Dynamic = true
	return mesh
}

// SetupForBackdrop returns the constant light applied to the sky backdrop.
func (m *Manager) SetupForBackdrop(depth int) *Mesh {
	var sum Sample
	n := 0
	for k := range m.infos {
		in := &m.infos[k]
		if in.Kind != BackdropLight {
			continue
		}
		sum = sum.Add(color(in, depth).Scale(float32(in.Brightness)))
		n++
	}
	if n == 0 {
		sum = Grey(1)
	}
	return &Mesh{Constant: sum.Clamp()}
}

func (m *Manager) ambient(zone int) float32 {
	if zone > 0 && zone < len(m.model.Zones) {
		return m.model.Zones[zone].Ambient
	}
	return 0
}

// staticEntry is a static resultant together with the exact light set it
// was merged from.
type staticEntry struct {
	set     []uint64
	samples []Sample
}

// staticSetFor returns the (light, generation) pairs of the surface's static
// lights this frame, packed two words per light, and a hash of them.
func (m *Manager) staticSetFor(idx *model.LightMeshIndex) ([]uint64, uint64) {
	set := m.staticSet[:0]
	const prime = 1099511628211
	h := uint64(14695981039346656037)
	for _, li := range idx.Lights {
		if in := m.info(li); in != nil && in.Kind == StaticLight {
			set = append(set, uint64(li), m.gens[li])
			h = (h ^ uint64(li)) * prime
			h = (h ^ m.gens[li]) * prime
		}
	}
	m.staticSet = set
	return set, h
}

// staticResultant merges the ambient level and every static light of a
// surface. The sum is stored unclamped so later merges stay additive.
// Entries are keyed by a hash of the static light set and checked against
// the full set on every hit.
func (m *Manager) staticResultant(surf, zone, depth int, idx *model.LightMeshIndex, ambient float32) []Sample {
	set, h := m.staticSetFor(idx)
	id := CacheID{Tier: TierStatic, Surf: surf, Zone: zone, Depth: depth, Gen: h}
	if e, ok := m.static.Get(id); ok && slices.Equal(e.set, set) {
		return e.samples
	}
	out := make([]Sample, idx.Points())
	for i := range out {
		out[i] = Grey(ambient)
	}
	for k, li := range idx.Lights {
		in := m.info(li)
		if in == nil || in.Kind != StaticLight {
			continue
		}
		m.merge(out, m.illumination(surf, k, in, idx), in, depth)
	}
	m.static.Set(id, staticEntry{set: slices.Clone(set), samples: out})
	return out
}

// merge adds one light's illumination map to dst.
func (m *Manager) merge(dst []Sample, illum []float32, in *Info, depth int) {
	c := color(in, depth).Scale(float32(in.Brightness))
	for i, f := range illum {
		if f != 0 {
			dst[i] = dst[i].Add(c.Scale(f))
		}
	}
}

func color(in *Info, depth int) Sample {
	if depth == 1 {
		return in.Color.Grey()
	}
	return in.Color
}

// illumination returns light k of the mesh with its spatial effect and
// shadows applied. Volatile effects are recomputed every frame.
func (m *Manager) illumination(surf, k int, in *Info, idx *model.LightMeshIndex) []float32 {
	if in.Effect.Volatile() {
		return m.computeIllum(surf, in, idx, m.shadowMap(surf, k, in.Index, idx), m.scalar.AllocSlice(idx.Points()))
	}
	id := CacheID{Tier: TierIllum, Surf: surf, Light: in.Index, Gen: m.gens[in.Index]}
	if v, ok := m.illum.Get(id); ok {
		return v
	}
	v := m.computeIllum(surf, in, idx, m.shadowMap(surf, k, in.Index, idx), make([]float32, idx.Points()))
	m.illum.Set(id, v)
	return v
}

func (m *Manager) computeIllum(surf int, in *Info, idx *model.LightMeshIndex, shadow, out []float32) []float32 {
	n := m.model.Surfs[surf].Normal
	if m.model.Surfs[surf].Flags.Has(model.PolyTwoSided) && m.model.Surfs[surf].Normal.Dot(in.Location.Sub(idx.Origin)) < 0 {
		n = n.Negate()
	}
	for j := range idx.VSize {
		for i := range idx.USize {
			p := j*idx.USize + i
			f := in.Effect.Factor(in, idx.PointAt(i, j), n)
			if shadow != nil {
				f *= float64(shadow[p])
			}
			out[p] = float32(f)
		}
	}
	return out
}

// shadowMap returns the smoothed coverage of light k of the mesh.
func (m *Manager) shadowMap(surf, k, li int, idx *model.LightMeshIndex) []float32 {
	id := CacheID{Tier: TierShadow, Surf: surf, Light: li}
	if v, ok := m.shadows.Get(id); ok {
		return v
	}
	out := make([]float32, idx.Points())
	if k >= len(idx.Shadows) || len(idx.Shadows[k]) != len(out) {
		for i := range out {
			out[i] = 1
		}
	} else {
		smooth(idx.Shadows[k], idx.USize, idx.VSize, out)
	}
	m.shadows.Set(id, out)
	return out
}

// smooth applies a 3x3 box filter to a byte coverage map.
func smooth(src []uint8, w, h int, dst []float32) {
	for y := range h {
		for x := range w {
			var sum, n int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sx, sy := x+dx, y+dy
					if sx < 0 || sy < 0 || sx >= w || sy >= h {
						continue
					}
					sum += int(src[sy*w+sx])
					n++
				}
			}
			dst[y*w+x] = float32(sum) / float32(n*255)
		}
	}
}

// Stats returns cache statistics and the current frame's work counts.
func (m *Manager) Stats() Stats {
	return Stats{
		Shadow:      m.shadows.Stats(),
		Illum:       m.illum.Stats(),
		Static:      m.static.Stats(),
		Lights:      len(m.infos),
		MovingPairs: m.movingPairs,
		Meshes:      m.meshes,
	}
}

// Flush drops every cached map.
func (m *Manager) Flush() {
	m.shadows.Clear()
	m.illum.Clear()
	m.static.Clear()
}

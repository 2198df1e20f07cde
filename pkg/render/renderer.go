package render

import (
	"cmp"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/taigrr/softbsp/pkg/diag"
	"github.com/taigrr/softbsp/pkg/level"
	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/memstack"
	"github.com/taigrr/softbsp/pkg/model"
	"github.com/taigrr/softbsp/pkg/raster"
	"github.com/taigrr/softbsp/pkg/span"
	"github.com/taigrr/softbsp/pkg/texture"
)

// Options configure a Renderer.
type Options struct {
	// Tolerance is the lattice interpolation error budget.
	Tolerance LatticeTolerance
	// Lattice cell limits in bits per axis.
	MaxXBits, MaxYBits, MinBits uint
	// MaxDrawEntries caps the draw list; excess fragments are dropped.
	MaxDrawEntries int
	// Dither applies a 2x2 ordered dither to light before quantising.
	Dither bool

	Lighting light.Config

	// Sky gradient for fake backdrop surfaces.
	Horizon, Zenith color.RGBA
	// Void fills pixels no polygon claims.
	Void color.RGBA
}

// DefaultOptions returns the stock renderer settings.
func DefaultOptions() Options {
	return Options{
		Tolerance:      DefaultLatticeTolerance,
		MaxXBits:       light.MaxLatticeXBits,
		MaxYBits:       light.MaxLatticeYBits,
		MinBits:        1,
		MaxDrawEntries: 4096,
		Lighting:       light.DefaultConfig(),
		Horizon:        RGB(200, 190, 170),
		Zenith:         ColorSky,
		Void:           ColorBlack,
	}
}

// FrameStats describes the work done for one frame.
type FrameStats struct {
	ViewZone int

	NodesTested    int
	ZoneRejects    int
	FrustumRejects int
	BoundRejects   int
	PolyRejects    int
	Backfaces      int
	Degenerate     int
	EarlyOut       bool

	Portals  int
	Solid    int
	NonSolid int

	Pixels        int
	LatticePoints int
	Cells         int
	Fogged        int

	Lights  light.Stats
	Drops   diag.DropSnapshot
	Elapsed time.Duration
}

// Entries returns the number of draw list entries.
func (s FrameStats) Entries() int { return s.Solid + s.NonSolid }

// LogValue implements slog.LogValuer.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("zone", s.ViewZone),
		slog.Int("nodes", s.NodesTested),
		slog.Int("solid", s.Solid),
		slog.Int("nonsolid", s.NonSolid),
		slog.Int("portals", s.Portals),
		slog.Int("pixels", s.Pixels),
		slog.Int("lattice", s.LatticePoints),
		slog.Int("cells", s.Cells),
		slog.Bool("early_out", s.EarlyOut),
		slog.Duration("elapsed", s.Elapsed),
	)
}

// HUD formats the stats for the on-screen overlay.
func (s FrameStats) HUD() string {
	return fmt.Sprintf("zone %d  polys %d+%d  portals %d\nnodes %d  rej z%d f%d b%d p%d\nlattice %d  cells %d  %s",
		s.ViewZone, s.Solid, s.NonSolid, s.Portals,
		s.NodesTested, s.ZoneRejects, s.FrustumRejects, s.BoundRejects, s.PolyRejects,
		s.LatticePoints, s.Cells, s.Elapsed.Round(time.Microsecond))
}

// Scanner observes the occlusion pass of every frame. PreScan runs before
// the traversal and PostScan after it, while the draw list is still valid.
type Scanner interface {
	PreScan(f *Frame)
	PostScan(f *Frame)
}

// frameArena holds what lives for one frame.
type frameArena struct {
	spans   *span.Pool
	points  *memstack.Stack[ScreenPoint]
	entries *memstack.Stack[DrawEntry]
}

type frameMark struct {
	spans           span.PoolMark
	points, entries memstack.Mark
}

func (a *frameArena) mark() frameMark {
	return frameMark{spans: a.spans.Mark(), points: a.points.Mark(), entries: a.entries.Mark()}
}

func (a *frameArena) release(m frameMark) {
	a.entries.Release(m.entries)
	a.points.Release(m.points)
	a.spans.Release(m.spans)
}

// surfArena holds what lives while one polygon is set up and drawn.
type surfArena struct {
	spans   *span.Pool
	lines   *memstack.Stack[raster.Line]
	lattice *memstack.Stack[light.LatticePoint]
	cells   *memstack.Stack[TexCell]
}

type surfMark struct {
	spans                 span.PoolMark
	lines, lattice, cells memstack.Mark
}

func (a *surfArena) mark() surfMark {
	return surfMark{
		spans:   a.spans.Mark(),
		lines:   a.lines.Mark(),
		lattice: a.lattice.Mark(),
		cells:   a.cells.Mark(),
	}
}

func (a *surfArena) release(m surfMark) {
	a.cells.Release(m.cells)
	a.lattice.Release(m.lattice)
	a.lines.Release(m.lines)
	a.spans.Release(m.spans)
}

// Renderer draws BSP levels. It keeps per-frame scratch memory and the
// lighting caches between frames, so one Renderer should be reused for
// successive frames. It is not safe for concurrent use.
type Renderer struct {
	Scanner Scanner

	opts   Options
	lights *light.Manager
	model  *model.Model

	frameMem  frameArena
	surfMem   surfArena
	frameMark frameMark
	points    pointCache
	stack     []nodeItem

	// serial counts frames; planeFrame[i] is the serial in which node i's
	// coplanar chain was last resolved.
	serial     uint64
	lastView   viewKey
	planeFrame []uint64
	mipTable  [maxMips]float64
	frame     Frame

	rowLight, rowFog []light.Sample
	solid, nonSolid  []*DrawEntry
}

// NewRenderer returns a renderer; zero option fields take the defaults.
func NewRenderer(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.Tolerance.Line <= 0 {
		opts.Tolerance.Line = def.Tolerance.Line
	}
	if opts.Tolerance.Cell <= 0 {
		opts.Tolerance.Cell = def.Tolerance.Cell
	}
	if opts.MaxXBits == 0 || opts.MaxXBits > light.MaxLatticeXBits {
		opts.MaxXBits = def.MaxXBits
	}
	if opts.MaxYBits == 0 || opts.MaxYBits > light.MaxLatticeYBits {
		opts.MaxYBits = def.MaxYBits
	}
	opts.MinBits = min(opts.MinBits, opts.MaxXBits, opts.MaxYBits)
	if opts.MaxDrawEntries <= 0 {
		opts.MaxDrawEntries = def.MaxDrawEntries
	}
	if opts.Horizon == (color.RGBA{}) && opts.Zenith == (color.RGBA{}) {
		opts.Horizon, opts.Zenith = def.Horizon, def.Zenith
	}
	if opts.Void.A == 0 {
		opts.Void = def.Void
	}
	return &Renderer{
		opts:   opts,
		lights: light.NewManager(opts.Lighting),
		frameMem: frameArena{
			spans:   span.NewPool(),
			points:  memstack.New[ScreenPoint](1024),
			entries: memstack.New[DrawEntry](256),
		},
		surfMem: surfArena{
			spans:   span.NewPool(),
			lines:   memstack.New[raster.Line](1024),
			lattice: memstack.New[light.LatticePoint](2048),
			cells:   memstack.New[TexCell](1024),
		},
	}
}

// Options returns the settings in use.
func (r *Renderer) Options() Options { return r.opts }

// Lights returns the lighting manager.
func (r *Renderer) Lights() *light.Manager { return r.lights }

// beginFrame locks in the per-frame state. The camera must be locked.
func (r *Renderer) beginFrame(cam *Camera, lvl *level.Level, seconds float64) *Frame {
	m := lvl.Model
	view := cam.viewKey()
	steady := m == r.model && r.serial > 0 && view == r.lastView
	if m != r.model {
		m.ResetVisibility()
		r.model = m
		r.planeFrame = r.planeFrame[:0]
	}
	if len(r.planeFrame) != len(m.Nodes) {
		r.planeFrame = append(r.planeFrame[:0], make([]uint64, len(m.Nodes))...)
	}
	r.serial++
	r.lastView = view
	r.frameMark = r.frameMem.mark()
	r.points.begin(len(m.Points))
	r.lights.BeginFrame(m, lvl.Lights, seconds, cam.Coords)
	r.buildMipTable(cam)

	f := &r.frame
	*f = Frame{
		Camera:     cam,
		Model:      m,
		Frustum:    cam.Frustum(),
		Time:       seconds,
		Zones:      f.Zones[:0],
		Entries:    f.Entries[:0],
		r:          r,
		points:     &r.points,
		viewPlanes: cam.viewPlanes(),
		screenRect: image.Rect(0, 0, cam.SizeX, cam.SizeY),
		clipA:      f.clipA[:0],
		clipB:      f.clipB[:0],
		screen:     f.screen[:0],
		steady:     steady,
	}
	return f
}

func (r *Renderer) endFrame() {
	r.frameMem.release(r.frameMark)
}

// scan runs the occlusion pass between the Scanner hooks.
func (r *Renderer) scan(f *Frame) {
	if r.Scanner != nil {
		r.Scanner.PreScan(f)
	}
	r.OccludeBsp(f)
	if r.Scanner != nil {
		r.Scanner.PostScan(f)
	}
}

// DrawWorld renders lvl through cam into fb at the given time in seconds.
// The framebuffer is resized to the camera's viewport when they differ.
func (r *Renderer) DrawWorld(cam *Camera, lvl *level.Level, fb *Framebuffer, seconds float64) FrameStats {
	start := time.Now()
	if fb.Width != cam.SizeX || fb.Height != cam.SizeY {
		fb.Resize(cam.SizeX, cam.SizeY)
	}
	cam.Lock()
	defer cam.Unlock()
	drops := diag.Drops.Snapshot()

	f := r.beginFrame(cam, lvl, seconds)
	defer r.endFrame()
	r.scan(f)

	if cam.RendMap == RendWire {
		fb.Clear(r.opts.Void)
		w := NewWireframe(cam, fb)
		w.DrawModel(f.Model, ColorGray, ColorCyan)
		w.DrawEntries(f.Entries, ColorWhite)
	} else {
		r.fillVoid(f, fb)
		r.solid, r.nonSolid = r.solid[:0], r.nonSolid[:0]
		for _, e := range f.Entries {
			if e.Solid() {
				r.solid = append(r.solid, e)
			} else {
				r.nonSolid = append(r.nonSolid, e)
			}
		}
		slices.SortStableFunc(r.solid, func(a, b *DrawEntry) int { return cmp.Compare(a.Key, b.Key) })
		for _, e := range r.solid {
			r.drawEntry(f, e, fb)
		}
		for i := len(r.nonSolid) - 1; i >= 0; i-- {
			r.drawEntry(f, r.nonSolid[i], fb)
		}
	}

	if cam.Show&ShowLights != 0 {
		w := NewWireframe(cam, fb)
		for _, in := range r.lights.Infos() {
			w.DrawPoint(in.Location, 16, ColorYellow)
		}
	}
	if cam.Show&ShowBounds != 0 {
		w := NewWireframe(cam, fb)
		for _, e := range f.Entries {
			if box, ok := f.Model.NodeBound(e.Node); ok {
				w.DrawBox(box, ColorGreen)
			}
		}
	}

	f.Stats.ViewZone = f.ViewZone
	f.Stats.Lights = r.lights.Stats()
	f.Stats.Drops = diag.Drops.Snapshot().Sub(drops)
	f.Stats.Elapsed = time.Since(start)
	if f.Stats.Drops.DrawList > 0 {
		diag.Logger().Warn("draw list full", "dropped", f.Stats.Drops.DrawList, "limit", r.opts.MaxDrawEntries)
	}
	if cam.Show&ShowHUD != 0 {
		drawHUD(fb, f.Stats.HUD())
	}
	diag.Logger().Debug("frame", "stats", f.Stats)
	return f.Stats
}

const hudGlyphWidth = 7

var hudPanel = RGB(16, 16, 24)

// drawHUD stamps text on a boxed panel in the top-left corner.
func drawHUD(fb *Framebuffer, text string) {
	lines := strings.Split(text, "\n")
	w := 0
	for _, l := range lines {
		w = max(w, len(l))
	}
	pw, ph := w*hudGlyphWidth+6, len(lines)*TextLineHeight+4
	fb.DrawRect(1, 1, pw, ph, hudPanel)
	fb.DrawRectOutline(1, 1, pw, ph, ColorGray)
	fb.DrawText(4, 2, text, ColorWhite)
}

// fillVoid paints the pixels no polygon claimed.
func (r *Renderer) fillVoid(f *Frame, fb *Framebuffer) {
	for z, b := range f.Zones {
		if f.ViewZone == 0 && z > 0 {
			break
		}
		fb.FillSpans(b, r.opts.Void)
	}
}

// drawEntry draws one fragment inside its own scratch memory scope.
func (r *Renderer) drawEntry(f *Frame, e *DrawEntry, fb *Framebuffer) {
	cam := f.Camera
	switch cam.RendMap {
	case RendPolys:
		r.fillFlat(f, e, DebugColor(e.Node), fb)
		return
	case RendZones:
		r.fillFlat(f, e, DebugColor(e.Zone), fb)
		return
	}

	m := f.Model
	surf := &m.Surfs[e.Surf]
	if surf.Flags.Has(model.PolyFakeBackdrop) {
		if cam.Show&ShowBackdrop != 0 {
			r.drawBackdrop(f, e, fb)
		} else {
			r.fillFlat(f, e, r.opts.Void, fb)
		}
		return
	}

	mark := r.surfMem.mark()
	defer r.surfMem.release(mark)

	mesh := r.lights.SetupForSurf(e.Surf, e.Zone, cam.ColorBytes)
	tex := m.SurfTexture(e.Surf)
	info := tex.Lock()
	defer tex.Unlock(info)

	panU, panV := surfPan(surf, tex, f.Time)
	st, ok := r.setupLattice(f, e, mesh, panU, panV)
	if !ok {
		return
	}
	r.drawAcross(f, e, st, info, fb)
}

// defaultPanSpeed is the auto-pan rate, in texels per second, of textures
// that do not set one.
const defaultPanSpeed = 32

func surfPan(surf *model.Surf, tex *texture.Texture, seconds float64) (u, v float64) {
	u, v = surf.PanU, surf.PanV
	speed := func(s float64) float64 {
		if s == 0 {
			return defaultPanSpeed
		}
		return s
	}
	if surf.Flags.Has(model.PolyAutoUPan) {
		u += seconds * speed(tex.PanU)
	}
	if surf.Flags.Has(model.PolyAutoVPan) {
		v += seconds * speed(tex.PanV)
	}
	return u, v
}

// Hit is the surface under a picked pixel.
type Hit struct {
	Node  int
	Surf  int
	Zone  int
	Flags model.PolyFlags
	Z     float64
}

// Pick returns the nearest surface covering pixel (x, y), found by running
// the occlusion pass and searching the draw list in traversal order.
func (r *Renderer) Pick(cam *Camera, lvl *level.Level, x, y int) (Hit, bool) {
	cam.Lock()
	defer cam.Unlock()
	f := r.beginFrame(cam, lvl, 0)
	defer r.endFrame()
	r.scan(f)

	for _, e := range f.Entries {
		if !e.Span.Contains(x, y) {
			continue
		}
		hit := Hit{Node: e.Node, Surf: e.Surf, Zone: e.Zone, Flags: e.Flags}
		if g, ok := cam.SurfGradients(f.Model.Nodes[e.Node].Plane, &f.Model.Surfs[e.Surf], 0, 0); ok {
			if rz := g.RZ.At(float64(x)+0.5, float64(y)+0.5); rz > 0 {
				hit.Z = 1 / rz
			}
		}
		return hit, true
	}
	return Hit{}, false
}

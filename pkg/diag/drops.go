package diag

import (
	"log/slog"
	"sync/atomic"
)

// DropCounters counts entries discarded by soft capacity limits.
type DropCounters struct {
	PolyLights    atomic.Int64 // lights beyond the per-surface cap
	DynLightPolys atomic.Int64 // surfaces beyond the per-frame moving light cap
	Lights        atomic.Int64 // lights beyond the per-frame light cap
	DrawList      atomic.Int64 // draw entries beyond the per-frame cap
}

// Drops is the process-wide drop counter set.
var Drops DropCounters

// DropSnapshot is a point-in-time copy of DropCounters.
type DropSnapshot struct {
	PolyLights    int64
	DynLightPolys int64
	Lights        int64
	DrawList      int64
}

// Snapshot copies the current counter values.
func (d *DropCounters) Snapshot() DropSnapshot {
	return DropSnapshot{
		PolyLights:    d.PolyLights.Load(),
		DynLightPolys: d.DynLightPolys.Load(),
		Lights:        d.Lights.Load(),
		DrawList:      d.DrawList.Load(),
	}
}

// Reset zeroes all counters.
func (d *DropCounters) Reset() {
	d.PolyLights.Store(0)
	d.DynLightPolys.Store(0)
	d.Lights.Store(0)
	d.DrawList.Store(0)
}

// Sub returns the counts accumulated since an earlier snapshot.
func (s DropSnapshot) Sub(earlier DropSnapshot) DropSnapshot {
	return DropSnapshot{
		PolyLights:    s.PolyLights - earlier.PolyLights,
		DynLightPolys: s.DynLightPolys - earlier.DynLightPolys,
		Lights:        s.Lights - earlier.Lights,
		DrawList:      s.DrawList - earlier.DrawList,
	}
}

// Any reports whether any counter is non-zero.
func (s DropSnapshot) Any() bool {
	return s.PolyLights != 0 || s.DynLightPolys != 0 || s.Lights != 0 || s.DrawList != 0
}

// LogValue implements slog.LogValuer.
func (s DropSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("poly_lights", s.PolyLights),
		slog.Int64("dyn_light_polys", s.DynLightPolys),
		slog.Int64("lights", s.Lights),
		slog.Int64("draw_list", s.DrawList),
	)
}

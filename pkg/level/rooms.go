package level

import (
	"image/color"

	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
	"github.com/taigrr/softbsp/pkg/texture"
)

var (
	brickColor  = color.RGBA{148, 72, 52, 255}
	mortarColor = color.RGBA{180, 172, 160, 255}
	checkerA    = color.RGBA{200, 200, 190, 255}
	checkerB    = color.RGBA{90, 100, 120, 255}
)

// DefaultRoomSize is the size of the stock room.
var DefaultRoomSize = math3d.V3(512, 512, 256)

// axisRect returns the rectangle a0..a1 by b0..b1 on the plane where the
// given axis equals at, wound to face the sign of facing along that axis.
func axisRect(axis int, at, a0, b0, a1, b1, facing float64) []math3d.Vec3 {
	mk := func(a, b float64) math3d.Vec3 {
		switch axis {
		case 0:
			return math3d.V3(at, a, b)
		case 1:
			return math3d.V3(a, at, b)
		default:
			return math3d.V3(a, b, at)
		}
	}
	pts := []math3d.Vec3{mk(a0, b0), mk(a1, b0), mk(a1, b1), mk(a0, b1)}
	n := pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[0]))
	if component(n, axis)*facing < 0 {
		pts[1], pts[3] = pts[3], pts[1]
	}
	return pts
}

func component(v math3d.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// AddBox adds the six inward-facing walls of the box min..max, all in zone.
func (b *Builder) AddBox(min, max math3d.Vec3, zone, tex int) {
	walls := [][]math3d.Vec3{
		axisRect(0, min.X, min.Y, min.Z, max.Y, max.Z, 1),
		axisRect(0, max.X, min.Y, min.Z, max.Y, max.Z, -1),
		axisRect(1, min.Y, min.X, min.Z, max.X, max.Z, 1),
		axisRect(1, max.Y, min.X, min.Z, max.X, max.Z, -1),
		axisRect(2, min.Z, min.X, min.Y, max.X, max.Y, 1),
		axisRect(2, max.Z, min.X, min.Y, max.X, max.Y, -1),
	}
	for _, w := range walls {
		b.AddPoly(Poly{Verts: w, Texture: tex, Zone: zone})
	}
}

// BoxRoom returns a closed room of the given size with one static light at
// its center. A nil texture uses bricks.
func BoxRoom(size math3d.Vec3, tex *texture.Texture) (*Level, error) {
	if tex == nil {
		tex = texture.NewBricks("bricks", 64, brickColor, mortarColor)
	}
	b := NewBuilder()
	zone := b.AddZone(model.Zone{Name: "room", Ambient: 0.1})
	b.AddBox(math3d.Zero3(), size, zone, b.AddTexture(tex))

	lights := []*light.Actor{{
		Name:       "center",
		Location:   size.Scale(0.5),
		Type:       light.TypeSteady,
		Brightness: 1,
		Radius:     size.Len(),
		Hue:        40,
		Saturation: 0.2,
		Static:     true,
	}}
	return Finish("room", b, lights)
}

// Two rooms joined by a short corridor; the portal sits at the far end of
// the corridor, where it opens into the east room.
const (
	roomW     = 512
	roomH     = 256
	wallThick = 32
	doorY0    = 192
	doorY1    = 320
	doorH     = 160
)

// TwoRooms returns two portal-connected rooms, each with a light. A nil
// texture uses a checker.
func TwoRooms(tex *texture.Texture) (*Level, error) {
	if tex == nil {
		tex = texture.NewChecker("checker", 64, 16, checkerA, checkerB)
	}
	b := NewBuilder()
	t := b.AddTexture(tex)
	west := b.AddZone(model.Zone{Name: "west", Ambient: 0.08})
	east := b.AddZone(model.Zone{Name: "east", Ambient: 0.08})

	x0, x1 := 0.0, float64(roomW)
	x2, x3 := x1+wallThick, x1+wallThick+roomW
	add := func(zone int, pts []math3d.Vec3) {
		b.AddPoly(Poly{Verts: pts, Texture: t, Zone: zone})
	}

	// West room, open on its east wall.
	add(west, axisRect(2, 0, x0, 0, x1, roomW, 1))
	add(west, axisRect(2, roomH, x0, 0, x1, roomW, -1))
	add(west, axisRect(0, x0, 0, 0, roomW, roomH, 1))
	add(west, axisRect(1, 0, x0, 0, x1, roomH, 1))
	add(west, axisRect(1, roomW, x0, 0, x1, roomH, -1))
	for _, r := range doorFrame() {
		add(west, axisRect(0, x1, r[0], r[1], r[2], r[3], -1))
	}

	// Corridor through the wall, part of the west zone.
	add(west, axisRect(2, 0, x1, doorY0, x2, doorY1, 1))
	add(west, axisRect(2, doorH, x1, doorY0, x2, doorY1, -1))
	add(west, axisRect(1, doorY0, x1, 0, x2, doorH, 1))
	add(west, axisRect(1, doorY1, x1, 0, x2, doorH, -1))

	b.AddPoly(Poly{
		Verts:    axisRect(0, x2, doorY0, 0, doorY1, doorH, -1),
		Texture:  t,
		Flags:    model.PolyPortal | model.PolyInvisible,
		Zone:     west,
		BackZone: east,
	})

	// East room, open on its west wall.
	add(east, axisRect(2, 0, x2, 0, x3, roomW, 1))
	add(east, axisRect(2, roomH, x2, 0, x3, roomW, -1))
	add(east, axisRect(0, x3, 0, 0, roomW, roomH, -1))
	add(east, axisRect(1, 0, x2, 0, x3, roomH, 1))
	add(east, axisRect(1, roomW, x2, 0, x3, roomH, -1))
	for _, r := range doorFrame() {
		add(east, axisRect(0, x2, r[0], r[1], r[2], r[3], 1))
	}

	lights := []*light.Actor{
		{
			Name:       "west",
			Location:   math3d.V3(roomW/2, roomW/2, roomH*0.75),
			Type:       light.TypeSteady,
			Brightness: 1,
			Radius:     600,
			Hue:        30,
			Saturation: 0.3,
			Static:     true,
		},
		{
			Name:       "east",
			Location:   math3d.V3(x2+roomW/2, roomW/2, roomH*0.75),
			Type:       light.TypePulse,
			Brightness: 0.9,
			Radius:     600,
			Hue:        210,
			Saturation: 0.4,
			Period:     2,
			Static:     true,
		},
	}
	return Finish("tworooms", b, lights)
}

// doorFrame returns the wall pieces around the doorway as (y0, z0, y1, z1).
func doorFrame() [][4]float64 {
	return [][4]float64{
		{0, 0, doorY0, roomH},
		{doorY1, 0, roomW, roomH},
		{doorY0, doorH, doorY1, roomH},
	}
}

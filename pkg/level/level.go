package level

import (
	"fmt"

	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/model"
)

// Level is a built world with its lights.
type Level struct {
	Name   string
	Model  *model.Model
	Lights []*light.Actor
}

// DefaultMeshSpacing is the light mesh spacing in texels.
const DefaultMeshSpacing = 32

// Finish builds b into a level, lays out light meshes for lights and traces
// their shadows.
func Finish(name string, b *Builder, lights []*light.Actor) (*Level, error) {
	m, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", name, err)
	}
	BuildLightMeshes(m, lights, DefaultMeshSpacing)
	Illuminate(m, lights)
	return &Level{Name: name, Model: m, Lights: lights}, nil
}

// Open returns a built-in level by name or loads a glTF file.
func Open(name string, opts GLTFOptions) (*Level, error) {
	switch name {
	case "", "room":
		return BoxRoom(DefaultRoomSize, nil)
	case "tworooms":
		return TwoRooms(nil)
	}
	return LoadGLTFLevel(name, opts)
}

// LightCount returns how many of the level's lights are of each kind.
func (l *Level) LightCount() map[light.Kind]int {
	out := make(map[light.Kind]int)
	for _, a := range l.Lights {
		out[a.Kind()]++
	}
	return out
}

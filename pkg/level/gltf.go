package level

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/softbsp/pkg/light"
	"github.com/taigrr/softbsp/pkg/math3d"
	"github.com/taigrr/softbsp/pkg/model"
	"github.com/taigrr/softbsp/pkg/texture"
)

// GLTFOptions controls brush import.
type GLTFOptions struct {
	// Scale converts glTF meters to world units.
	Scale float64
	// Inside flips every triangle so a closed mesh is viewed from within.
	Inside bool
}

// DefaultGLTFScale maps one glTF meter to world units.
const DefaultGLTFScale = 64

// LoadGLTF imports the triangles of every mesh in a glTF or GLB file as BSP
// polygons. glTF is Y-up; polygons come back in the Z-up world frame with
// texture axes fitted to the file's texture coordinates. Texture indexes in
// the polygons refer to the returned slice.
func LoadGLTF(path string, opts GLTFOptions) ([]Poly, []*texture.Texture, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open gltf: %w", err)
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultGLTFScale
	}

	imp := &importer{
		doc:    doc,
		dir:    filepath.Dir(path),
		opts:   opts,
		images: make(map[int]int),
		mats:   make(map[int]matInfo),
	}
	// Y-up to Z-up, then scale.
	root := math3d.Scale(math3d.V3(opts.Scale, opts.Scale, opts.Scale)).Mul(math3d.RotateX(math.Pi / 2))

	switch {
	case doc.Scene != nil && *doc.Scene < len(doc.Scenes):
		for _, n := range doc.Scenes[*doc.Scene].Nodes {
			if err := imp.node(n, root); err != nil {
				return nil, nil, err
			}
		}
	case len(doc.Scenes) > 0:
		for _, n := range doc.Scenes[0].Nodes {
			if err := imp.node(n, root); err != nil {
				return nil, nil, err
			}
		}
	default:
		for i := range doc.Meshes {
			if err := imp.mesh(i, root); err != nil {
				return nil, nil, err
			}
		}
	}
	if len(imp.polys) == 0 {
		return nil, nil, fmt.Errorf("gltf %s: no triangles", filepath.Base(path))
	}
	return imp.polys, imp.textures, nil
}

// LoadGLTFLevel imports a glTF file as a single-zone level lit by one
// light above the center of its bounds.
func LoadGLTFLevel(path string, opts GLTFOptions) (*Level, error) {
	polys, texs, err := LoadGLTF(path, opts)
	if err != nil {
		return nil, err
	}
	b := NewBuilder()
	for _, t := range texs {
		b.AddTexture(t)
	}
	zone := b.AddZone(model.Zone{Name: filepath.Base(path), Ambient: 0.15})
	var box math3d.Box
	for _, p := range polys {
		p.Zone = zone
		b.AddPoly(p)
		box = box.Union(math3d.BoxOf(p.Verts...))
	}
	ext := box.Extent()
	lights := []*light.Actor{{
		Name:       "key",
		Location:   box.Center().Add(math3d.V3(0, 0, ext.Z*0.5)),
		Type:       light.TypeSteady,
		Brightness: 1,
		Radius:     ext.Len() * 2,
		Static:     true,
	}}
	return Finish(filepath.Base(path), b, lights)
}

type matInfo struct {
	texture int
	flags   model.PolyFlags
}

type importer struct {
	doc      *gltf.Document
	dir      string
	opts     GLTFOptions
	polys    []Poly
	textures []*texture.Texture
	images   map[int]int
	mats     map[int]matInfo
}

func (imp *importer) node(i int, parent math3d.Mat4) error {
	n := imp.doc.Nodes[i]
	world := parent.Mul(localMatrix(n))
	if n.Mesh != nil {
		if err := imp.mesh(*n.Mesh, world); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := imp.node(c, world); err != nil {
			return err
		}
	}
	return nil
}

func localMatrix(n *gltf.Node) math3d.Mat4 {
	if n.Matrix != [16]float64{} && n.Matrix != gltf.DefaultMatrix {
		return math3d.Mat4(n.Matrix)
	}
	t := math3d.Translate(math3d.V3(n.Translation[0], n.Translation[1], n.Translation[2]))
	r := math3d.FromQuat(n.Rotation[0], n.Rotation[1], n.Rotation[2], n.Rotation[3])
	if n.Rotation == [4]float64{} {
		r = math3d.Identity()
	}
	s := math3d.Scale(math3d.V3(n.Scale[0], n.Scale[1], n.Scale[2]))
	if n.Scale == [3]float64{} {
		s = math3d.Identity()
	}
	return t.Mul(r).Mul(s)
}

func (imp *importer) mesh(i int, world math3d.Mat4) error {
	m := imp.doc.Meshes[i]
	mirrored := world.Determinant3() < 0
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		positions, err := readVec3(imp.doc, posIdx)
		if err != nil {
			return fmt.Errorf("mesh %q: read positions: %w", m.Name, err)
		}
		var uvs []math3d.Vec2
		if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
			if uvs, err = readVec2(imp.doc, uvIdx); err != nil {
				return fmt.Errorf("mesh %q: read uvs: %w", m.Name, err)
			}
		}

		var indices []int
		if prim.Indices != nil {
			if indices, err = readIndices(imp.doc, *prim.Indices); err != nil {
				return fmt.Errorf("mesh %q: read indices: %w", m.Name, err)
			}
		} else {
			indices = make([]int, len(positions))
			for k := range indices {
				indices[k] = k
			}
		}

		mat := imp.material(prim.Material)
		tw, th := 64.0, 64.0
		if mat.texture >= 0 {
			w, h := imp.textures[mat.texture].Size()
			tw, th = float64(w), float64(h)
		}

		for k := 0; k+2 < len(indices); k += 3 {
			tri := [3]int{indices[k], indices[k+1], indices[k+2]}
			if mirrored != imp.opts.Inside {
				tri[1], tri[2] = tri[2], tri[1]
			}
			var pts [3]math3d.Vec3
			var uv [3]math3d.Vec2
			bad := false
			for c, v := range tri {
				if v < 0 || v >= len(positions) {
					bad = true
					break
				}
				pts[c] = world.MulVec3(positions[v])
				if v < len(uvs) {
					uv[c] = math3d.V2(uvs[v].X*tw, uvs[v].Y*th)
				}
			}
			if bad {
				return fmt.Errorf("mesh %q: index out of range", m.Name)
			}
			p := Poly{Verts: pts[:], Texture: mat.texture, Flags: mat.flags}
			if uvs != nil {
				p.TextureU, p.TextureV, p.PanU, p.PanV = fitAxes(pts, uv)
			}
			imp.polys = append(imp.polys, p)
		}
	}
	return nil
}

// fitAxes solves for texture axes that reproduce the triangle's texture
// coordinates, with the first vertex as the surface base.
func fitAxes(p [3]math3d.Vec3, uv [3]math3d.Vec2) (tu, tv math3d.Vec3, panU, panV float64) {
	e1, e2 := p[1].Sub(p[0]), p[2].Sub(p[0])
	a, b, c := e1.Dot(e1), e1.Dot(e2), e2.Dot(e2)
	det := a*c - b*b
	if math.Abs(det) < 1e-12 {
		return math3d.Vec3{}, math3d.Vec3{}, 0, 0
	}
	solve := func(d1, d2 float64) math3d.Vec3 {
		x := (d1*c - d2*b) / det
		y := (d2*a - d1*b) / det
		return e1.Scale(x).Add(e2.Scale(y))
	}
	tu = solve(uv[1].X-uv[0].X, uv[2].X-uv[0].X)
	tv = solve(uv[1].Y-uv[0].Y, uv[2].Y-uv[0].Y)
	return tu, tv, uv[0].X, uv[0].Y
}

// material resolves a primitive's material to a texture index and flags.
func (imp *importer) material(idx *int) matInfo {
	if idx == nil || *idx >= len(imp.doc.Materials) {
		return matInfo{texture: -1}
	}
	if mi, ok := imp.mats[*idx]; ok {
		return mi
	}
	mat := imp.doc.Materials[*idx]
	mi := matInfo{texture: -1}
	switch mat.AlphaMode {
	case gltf.AlphaMask:
		mi.flags |= model.PolyMasked
	case gltf.AlphaBlend:
		mi.flags |= model.PolyTranslucent
	}
	if mat.DoubleSided {
		mi.flags |= model.PolyTwoSided
	}
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorTexture != nil && pbr.BaseColorTexture.Index < len(imp.doc.Textures) {
			if src := imp.doc.Textures[pbr.BaseColorTexture.Index].Source; src != nil {
				mi.texture = imp.image(*src)
			}
		}
		if mi.texture < 0 && pbr.BaseColorFactor != nil {
			f := pbr.BaseColorFactor
			c := color.RGBA{uint8(f[0] * 255), uint8(f[1] * 255), uint8(f[2] * 255), 255}
			imp.textures = append(imp.textures, texture.NewChecker(mat.Name, 8, 8, c, c))
			mi.texture = len(imp.textures) - 1
		}
	}
	imp.mats[*idx] = mi
	return mi
}

// image decodes an embedded or external image once. Undecodable images fall
// back to the default texture.
func (imp *importer) image(i int) int {
	if t, ok := imp.images[i]; ok {
		return t
	}
	img := imp.doc.Images[i]
	var data []byte
	switch {
	case img.BufferView != nil:
		bv := imp.doc.BufferViews[*img.BufferView]
		if buf := imp.doc.Buffers[bv.Buffer]; buf.Data != nil {
			data = buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
		}
	case img.URI != "" && !img.IsEmbeddedResource():
		data, _ = os.ReadFile(filepath.Join(imp.dir, img.URI))
	case img.IsEmbeddedResource():
		data, _ = img.MarshalData()
	}

	var tex *texture.Texture
	if decoded, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image%d", i)
		}
		tex, _ = texture.New(name, decoded)
	}
	if tex == nil {
		tex = texture.Default()
	}
	imp.textures = append(imp.textures, tex)
	imp.images[i] = len(imp.textures) - 1
	return imp.images[i]
}

func readVec3(doc *gltf.Document, accessor int) ([]math3d.Vec3, error) {
	a := doc.Accessors[accessor]
	if a.Type != gltf.AccessorVec3 || a.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC3, got %v/%v", a.Type, a.ComponentType)
	}
	raw, stride, err := accessorBytes(doc, a, 12)
	if err != nil {
		return nil, err
	}
	out := make([]math3d.Vec3, a.Count)
	for i := range out {
		b := raw[i*stride:]
		out[i] = math3d.V3(readFloat32(b), readFloat32(b[4:]), readFloat32(b[8:]))
	}
	return out, nil
}

func readVec2(doc *gltf.Document, accessor int) ([]math3d.Vec2, error) {
	a := doc.Accessors[accessor]
	if a.Type != gltf.AccessorVec2 || a.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("expected float VEC2, got %v/%v", a.Type, a.ComponentType)
	}
	raw, stride, err := accessorBytes(doc, a, 8)
	if err != nil {
		return nil, err
	}
	out := make([]math3d.Vec2, a.Count)
	for i := range out {
		b := raw[i*stride:]
		out[i] = math3d.V2(readFloat32(b), readFloat32(b[4:]))
	}
	return out, nil
}

func readIndices(doc *gltf.Document, accessor int) ([]int, error) {
	a := doc.Accessors[accessor]
	var size int
	switch a.ComponentType {
	case gltf.ComponentUbyte:
		size = 1
	case gltf.ComponentUshort:
		size = 2
	case gltf.ComponentUint:
		size = 4
	default:
		return nil, fmt.Errorf("unexpected index component %v", a.ComponentType)
	}
	raw, stride, err := accessorBytes(doc, a, size)
	if err != nil {
		return nil, err
	}
	out := make([]int, a.Count)
	for i := range out {
		b := raw[i*stride:]
		switch size {
		case 1:
			out[i] = int(b[0])
		case 2:
			out[i] = int(b[0]) | int(b[1])<<8
		default:
			out[i] = int(b[0]) | int(b[1])<<8 | int(b[2])<<16 | int(b[3])<<24
		}
	}
	return out, nil
}

// accessorBytes returns the accessor's bytes starting at its first element
// and the element stride.
func accessorBytes(doc *gltf.Document, a *gltf.Accessor, elem int) ([]byte, int, error) {
	if a.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor has no buffer view")
	}
	bv := doc.BufferViews[*a.BufferView]
	data := doc.Buffers[bv.Buffer].Data
	if data == nil {
		return nil, 0, fmt.Errorf("buffer %d has no data", bv.Buffer)
	}
	stride := bv.ByteStride
	if stride == 0 {
		stride = elem
	}
	start := bv.ByteOffset + a.ByteOffset
	end := start + (a.Count-1)*stride + elem
	if a.Count == 0 {
		return nil, stride, nil
	}
	if end > len(data) {
		return nil, 0, fmt.Errorf("accessor overruns buffer (%d > %d)", end, len(data))
	}
	return data[start:end], stride, nil
}

func readFloat32(b []byte) float64 {
	return float64(math.Float32frombits(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24))
}

package tessellate

import (
	"math"

	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
)

// ExtentMesher meshes a body as the 12-triangle box of its exact extent.
// It needs no kernel, so bounds-only runs stay fast and deterministic.
type ExtentMesher struct{}

var _ geometry.Mesher = ExtentMesher{}

// boxFaces indexes the corners produced by boxMesh, two triangles per face,
// counter-clockwise seen from outside.
var boxFaces = []uint32{
	0, 2, 1, 0, 3, 2, // -z
	4, 5, 6, 4, 6, 7, // +z
	0, 1, 5, 0, 5, 4, // -y
	3, 7, 6, 3, 6, 2, // +y
	0, 4, 7, 0, 7, 3, // -x
	1, 2, 6, 1, 6, 5, // +x
}

// Mesh returns the box mesh of b's extent clipped to hint. A body lying
// outside hint gives an empty mesh.
func (ExtentMesher) Mesh(b *geometry.Body, hint kernel.AABB) (*kernel.Mesh, error) {
	var ext kernel.AABB
	if b.Shape.Bounded() {
		ext = b.Shape.Extent(hint)
	} else {
		var err error
		if ext, err = clippedExtent(b, hint); err != nil {
			return nil, err
		}
	}
	if ext.IsNull() {
		return &kernel.Mesh{}, nil
	}
	return boxMesh(ext), nil
}

// boxMesh builds the mesh of bb with smoothed corner normals.
func boxMesh(bb kernel.AABB) *kernel.Mesh {
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, 24),
		Normals:  make([]float32, 0, 24),
		Indices:  append([]uint32(nil), boxFaces...),
	}
	inv := float32(1 / math.Sqrt(3))
	for i := 0; i < 8; i++ {
		// Corners walk the bottom face 0-1-2-3 counter-clockwise, then the
		// top face 4-5-6-7.
		hx := (i&1)^((i>>1)&1) == 1
		hy := i&2 != 0
		hz := i&4 != 0
		p := [3]bool{hx, hy, hz}
		for a := 0; a < 3; a++ {
			if p[a] {
				m.Vertices = append(m.Vertices, float32(bb.Max[a]))
				m.Normals = append(m.Normals, inv)
			} else {
				m.Vertices = append(m.Vertices, float32(bb.Min[a]))
				m.Normals = append(m.Normals, -inv)
			}
		}
	}
	return m
}

//go:build manifold

// Package manifold is a kernel.Kernel backed by the Manifold C API
// (manifoldc). Booleans are exact on triangle meshes, so region meshes come
// out watertight without a marching-cubes pass.
//
// Needs libmanifoldc under /usr/local. Build with -tags=manifold; without
// the tag New reports ErrUnavailable.
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/chazu/csgnorm/pkg/kernel"
)

var _ kernel.Kernel = (*Kernel)(nil)

// ErrUnavailable is returned by New when the package was built without
// Manifold support.
var ErrUnavailable = errors.New("manifold: kernel not available, build with -tags=manifold")

// solid owns one C manifold; the finalizer frees it.
type solid struct {
	ptr *C.ManifoldManifold
}

func (s *solid) BoundingBox() (min, max [3]float64) {
	box := C.manifold_bounding_box(C.manifold_alloc_box(), s.ptr)
	defer C.manifold_delete_box(box)

	min = [3]float64{
		float64(C.manifold_box_min_x(box)),
		float64(C.manifold_box_min_y(box)),
		float64(C.manifold_box_min_z(box)),
	}
	max = [3]float64{
		float64(C.manifold_box_max_x(box)),
		float64(C.manifold_box_max_y(box)),
		float64(C.manifold_box_max_z(box)),
	}
	return min, max
}

// build allocates a manifold, lets f fill it and wraps the result.
func build(f func(alloc *C.ManifoldManifold) *C.ManifoldManifold) kernel.Solid {
	s := &solid{ptr: f(C.manifold_alloc_manifold())}
	runtime.SetFinalizer(s, func(s *solid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

func ptr(s kernel.Solid) *C.ManifoldManifold { return s.(*solid).ptr }

// Kernel builds solids with Manifold. Primitives are centred on the origin
// and Z is the axis of revolution, as kernel.Kernel requires.
type Kernel struct{}

// New returns a Manifold kernel.
func New() (kernel.Kernel, error) {
	return &Kernel{}, nil
}

const centred = C.int(1)

func (*Kernel) Box(x, y, z float64) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_cube(m, C.double(x), C.double(y), C.double(z), centred)
	})
}

// Sphere lets Manifold pick the segment count from its circular quality
// settings.
func (*Kernel) Sphere(radius float64) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_sphere(m, C.double(radius), C.int(0))
	})
}

func (k *Kernel) Cylinder(height, radius float64, segments int) kernel.Solid {
	return k.Cone(height, radius, radius, segments)
}

// Cone has radius r0 at the bottom cap and r1 at the top cap.
func (*Kernel) Cone(height, r0, r1 float64, segments int) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_cylinder(m, C.double(height), C.double(r0), C.double(r1), C.int(segments), centred)
	})
}

func (*Kernel) Union(a, b kernel.Solid) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_union(m, ptr(a), ptr(b))
	})
}

// Difference returns a minus b.
func (*Kernel) Difference(a, b kernel.Solid) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_difference(m, ptr(a), ptr(b))
	})
}

func (*Kernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_intersection(m, ptr(a), ptr(b))
	})
}

func (*Kernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_translate(m, ptr(s), C.double(x), C.double(y), C.double(z))
	})
}

// Rotate takes Euler angles in degrees about X, then Y, then Z.
func (*Kernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return build(func(m *C.ManifoldManifold) *C.ManifoldManifold {
		return C.manifold_rotate(m, ptr(s), C.double(x), C.double(y), C.double(z))
	})
}

// ToMesh copies the solid's MeshGL into a kernel.Mesh. A solid Manifold
// flagged as invalid (for instance a non-manifold boolean input) is an
// error rather than an empty mesh.
func (*Kernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	if st := C.manifold_status(ptr(s)); st != C.MANIFOLD_NO_ERROR {
		return nil, fmt.Errorf("manifold: solid status %d", int(st))
	}

	gl := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ptr(s))
	defer C.manifold_delete_meshgl(gl)

	nVert := int(C.manifold_meshgl_num_vert(gl))
	nTri := int(C.manifold_meshgl_num_tri(gl))
	if nVert == 0 || nTri == 0 {
		return &kernel.Mesh{}, nil
	}
	nProp := int(C.manifold_meshgl_num_prop(gl))
	if nProp < 3 {
		return nil, fmt.Errorf("manifold: mesh has %d properties per vertex, want at least 3", nProp)
	}

	props := make([]float32, nVert*nProp)
	C.manifold_meshgl_vert_properties((*C.float)(unsafe.Pointer(&props[0])), gl)
	indices := make([]uint32, nTri*3)
	C.manifold_meshgl_tri_verts((*C.uint32_t)(unsafe.Pointer(&indices[0])), gl)

	vertices, normals := splitProperties(props, nProp)
	if normals == nil {
		normals = vertexNormals(vertices, indices)
	}
	return &kernel.Mesh{Vertices: vertices, Normals: normals, Indices: indices}, nil
}

// splitProperties separates the interleaved MeshGL properties. Position is
// always properties 0-2; properties 3-5 are normals when present.
func splitProperties(props []float32, nProp int) (vertices, normals []float32) {
	n := len(props) / nProp
	vertices = make([]float32, 0, n*3)
	if nProp >= 6 {
		normals = make([]float32, 0, n*3)
	}
	for p := 0; p < len(props); p += nProp {
		vertices = append(vertices, props[p:p+3]...)
		if normals != nil {
			normals = append(normals, props[p+3:p+6]...)
		}
	}
	return vertices, normals
}

// vertexNormals averages the area-weighted face normals around each vertex.
func vertexNormals(vertices []float32, indices []uint32) []float32 {
	acc := make([]float64, len(vertices))
	at := func(i uint32) [3]float64 {
		return [3]float64{float64(vertices[i*3]), float64(vertices[i*3+1]), float64(vertices[i*3+2])}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		tri := indices[t : t+3]
		a, b, c := at(tri[0]), at(tri[1]), at(tri[2])
		u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
		v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
		n := [3]float64{u[1]*v[2] - u[2]*v[1], u[2]*v[0] - u[0]*v[2], u[0]*v[1] - u[1]*v[0]}
		for _, i := range tri {
			for j := 0; j < 3; j++ {
				acc[i*3+uint32(j)] += n[j]
			}
		}
	}

	out := make([]float32, len(acc))
	for i := 0; i < len(acc); i += 3 {
		l := math.Sqrt(acc[i]*acc[i] + acc[i+1]*acc[i+1] + acc[i+2]*acc[i+2])
		if l < 1e-12 {
			continue
		}
		for j := 0; j < 3; j++ {
			out[i+j] = float32(acc[i+j] / l)
		}
	}
	return out
}

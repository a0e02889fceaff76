//go:build manifold

package manifold

import (
	"testing"

	"github.com/chazu/csgnorm/pkg/kernel"
)

func newKernel(t *testing.T) kernel.Kernel {
	t.Helper()
	k, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k
}

func TestSolidBounds(t *testing.T) {
	k := newKernel(t)
	tests := []struct {
		name  string
		solid kernel.Solid
		want  kernel.AABB
		tol   float64
	}{
		{"box", k.Box(4, 6, 8), kernel.NewAABB(-2, 2, -3, 3, -4, 4), 1e-6},
		{"translated box", k.Translate(k.Box(10, 10, 10), 100, 200, 300), kernel.NewAABB(95, 105, 195, 205, 295, 305), 1e-6},
		// Polygonal sections sit inside the true circle.
		{"cylinder", k.Cylinder(20, 5, 64), kernel.NewAABB(-5, 5, -5, 5, -10, 10), 0.1},
		{"cone", k.Cone(20, 4, 1, 64), kernel.NewAABB(-4, 4, -4, 4, -10, 10), 0.1},
		{"box minus bore", k.Difference(k.Box(10, 10, 10), k.Cylinder(20, 3, 32)), kernel.NewAABB(-5, 5, -5, 5, -5, 5), 1e-6},
		{"overlap", k.Intersection(k.Box(10, 10, 10), k.Translate(k.Box(10, 10, 10), 5, 0, 0)), kernel.NewAABB(0, 5, -5, 5, -5, 5), 1e-6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kernel.AABBFromSolid(tt.solid)
			if !tt.want.Expand(1e-6).Contains(got) || !got.Expand(tt.tol).Contains(tt.want) {
				t.Errorf("bounds = %v, want %v within %g", got, tt.want, tt.tol)
			}
		})
	}
}

func TestToMeshBox(t *testing.T) {
	k := newKernel(t)
	mesh, err := k.ToMesh(k.Box(10, 10, 10))
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if mesh.TriangleCount() < 12 || mesh.VertexCount() < 8 {
		t.Errorf("box mesh has %d triangles and %d vertices", mesh.TriangleCount(), mesh.VertexCount())
	}
	if len(mesh.Normals) != len(mesh.Vertices) {
		t.Errorf("normals length %d != vertices length %d", len(mesh.Normals), len(mesh.Vertices))
	}
	if got, want := kernel.AABBFromMesh(mesh), kernel.NewAABB(-5, 5, -5, 5, -5, 5); got != want {
		t.Errorf("mesh bounds = %v, want %v", got, want)
	}
}

func TestToMeshSphere(t *testing.T) {
	k := newKernel(t)
	mesh, err := k.ToMesh(k.Translate(k.Sphere(5), 1, 2, 3))
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	bb := kernel.AABBFromMesh(mesh)
	want := kernel.NewAABB(-4, 6, -3, 7, -2, 8)
	if !want.Expand(1e-4).Contains(bb) || !bb.Expand(0.5).Contains(want) {
		t.Errorf("sphere mesh box %v, want close to %v", bb, want)
	}
}

func TestSplitProperties(t *testing.T) {
	props := []float32{
		1, 2, 3, 0, 0, 1, 9,
		4, 5, 6, 1, 0, 0, 9,
	}
	v, n := splitProperties(props, 7)
	if len(v) != 6 || v[3] != 4 || v[5] != 6 {
		t.Errorf("vertices = %v", v)
	}
	if len(n) != 6 || n[2] != 1 || n[3] != 1 {
		t.Errorf("normals = %v", n)
	}

	if _, n := splitProperties([]float32{1, 2, 3}, 3); n != nil {
		t.Errorf("positions only should give nil normals, got %v", n)
	}
}

func TestVertexNormals(t *testing.T) {
	// One triangle in the XY plane, counter-clockwise from +Z.
	n := vertexNormals([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2})
	for i := 0; i < 3; i++ {
		if n[i*3] != 0 || n[i*3+1] != 0 || n[i*3+2] != 1 {
			t.Errorf("normal %d = %v, want +Z", i, n[i*3:i*3+3])
		}
	}
}

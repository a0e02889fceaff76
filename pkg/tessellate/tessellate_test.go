package tessellate_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
	"github.com/chazu/csgnorm/pkg/kernel/sdfx"
	"github.com/chazu/csgnorm/pkg/tessellate"
)

// newKernel returns a fresh sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.New(32)
}

func body(t *testing.T, name string, kind geometry.Kind, p ...float64) *geometry.Body {
	t.Helper()
	s, err := geometry.NewShape(kind, p)
	if err != nil {
		t.Fatalf("NewShape: %v", err)
	}
	return geometry.NewBody(name, s)
}

func near(a, b kernel.AABB, tol float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(a.Min[i]-b.Min[i]) > tol || math.Abs(a.Max[i]-b.Max[i]) > tol {
			return false
		}
	}
	return true
}

var unitHint = kernel.NewAABB(-1, 1, -1, 1, -1, 1)

// ---------------------------------------------------------------------------
// Recording kernel
// ---------------------------------------------------------------------------

// exprSolid records how it was built.
type exprSolid struct{ expr string }

func (s *exprSolid) BoundingBox() (min, max [3]float64) { return }

// exprKernel builds solids whose expr spells out the kernel calls made.
type exprKernel struct{ meshes int }

func mk(format string, args ...any) kernel.Solid {
	return &exprSolid{expr: fmt.Sprintf(format, args...)}
}

func ex(s kernel.Solid) string { return s.(*exprSolid).expr }

func (k *exprKernel) Box(x, y, z float64) kernel.Solid { return mk("box(%g,%g,%g)", x, y, z) }
func (k *exprKernel) Sphere(r float64) kernel.Solid    { return mk("sph(%g)", r) }
func (k *exprKernel) Cylinder(h, r float64, _ int) kernel.Solid {
	return mk("cyl(%g,%g)", h, r)
}
func (k *exprKernel) Cone(h, r0, r1 float64, _ int) kernel.Solid {
	return mk("cone(%g,%g,%g)", h, r0, r1)
}
func (k *exprKernel) Union(a, b kernel.Solid) kernel.Solid {
	return mk("or(%s,%s)", ex(a), ex(b))
}
func (k *exprKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return mk("sub(%s,%s)", ex(a), ex(b))
}
func (k *exprKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	return mk("and(%s,%s)", ex(a), ex(b))
}
func (k *exprKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return mk("T(%s,%g,%g,%g)", ex(s), x, y, z)
}
func (k *exprKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return mk("R(%s,%.6g,%.6g,%.6g)", ex(s), x, y, z)
}
func (k *exprKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	k.meshes++
	return &kernel.Mesh{Vertices: []float32{0, 0, 0}, Name: ex(s)}, nil
}

var _ kernel.Kernel = (*exprKernel)(nil)

func TestSolidPlacement(t *testing.T) {
	m := tessellate.NewKernelMesher(&exprKernel{})
	tests := []struct {
		name string
		body *geometry.Body
		want string
	}{
		{"sphere at origin", body(t, "A", geometry.KindSPH, 0, 0, 0, 1), "sph(1)"},
		{"sphere moved", body(t, "A", geometry.KindSPH, 1, 2, 3, 1), "T(sph(1),1,2,3)"},
		{"box", body(t, "B", geometry.KindRPP, 0, 2, 0, 4, 0, 6), "T(box(2,4,6),1,2,3)"},
		{"cylinder along z", body(t, "C", geometry.KindRCC, 0, 0, 0, 0, 0, 10, 2), "T(cyl(10,2),0,0,5)"},
		{"cylinder along x", body(t, "C", geometry.KindRCC, 0, 0, 0, 10, 0, 0, 2), "T(R(cyl(10,2),0,90,0),5,0,0)"},
		{"cone along z", body(t, "K", geometry.KindTRC, 0, 0, 0, 0, 0, 4, 3, 1), "T(cone(4,3,1),0,0,2)"},
		{"half-space", body(t, "P", geometry.KindXYP, 0), "T(box(2,2,1),0,0,-0.5)"},
		{"infinite cylinder", body(t, "Z", geometry.KindZCC, 0, 0, 0.5), "and(cyl(2,0.5),box(1,1,2))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := m.Solid(tt.body, unitHint)
			if err != nil {
				t.Fatalf("Solid: %v", err)
			}
			if got := ex(s); got != tt.want {
				t.Errorf("solid = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSolidUnboundedNeedsHint(t *testing.T) {
	m := tessellate.NewKernelMesher(&exprKernel{})
	for _, hint := range []kernel.AABB{kernel.NullAABB(), kernel.InfiniteAABB()} {
		if _, err := m.Solid(body(t, "P", geometry.KindXZP, 0), hint); err == nil {
			t.Errorf("hint %v: expected error for unbounded body", hint)
		}
	}
}

func TestSolidOutsideHint(t *testing.T) {
	k := &exprKernel{}
	m := tessellate.NewKernelMesher(k)
	p := body(t, "P", geometry.KindXYP, -5)

	s, err := m.Solid(p, unitHint)
	if err != nil {
		t.Fatalf("Solid: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil solid, got %s", ex(s))
	}

	mesh, err := p.Mesh(m, unitHint)
	if err != nil {
		t.Fatalf("Mesh: %v", err)
	}
	if !mesh.IsEmpty() {
		t.Error("expected empty mesh for a body outside the hint")
	}
	if k.meshes != 0 {
		t.Errorf("kernel ToMesh called %d times, want 0", k.meshes)
	}
}

func TestZoneSolid(t *testing.T) {
	reg := geometry.NewRegistry()
	a := body(t, "A", geometry.KindSPH, 0, 0, 0, 1)
	b := body(t, "B", geometry.KindRPP, 0, 2, 0, 2, 0, 2)
	for _, bd := range []*geometry.Body{a, b} {
		if err := reg.AddBody(bd); err != nil {
			t.Fatal(err)
		}
	}
	boxB := "T(box(2,2,2),1,1,1)"

	m := tessellate.NewKernelMesher(&exprKernel{})
	tests := []struct {
		name string
		zone *geometry.Zone
		want string
	}{
		{"single", geometry.NewZone().AddIntersection(a), "sph(1)"},
		{"intersection", geometry.NewZone().AddIntersection(a, b), "and(sph(1)," + boxB + ")"},
		{"subtraction", geometry.NewZone().AddIntersection(a).AddSubtraction(b), "sub(sph(1)," + boxB + ")"},
		{
			"nested",
			geometry.NewZone().AddIntersection(a).AddSubtraction(
				geometry.NewZone().AddIntersection(b).AddSubtraction(a)),
			"sub(sph(1),sub(" + boxB + ",sph(1)))",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := m.ZoneSolid(tt.zone, unitHint)
			if err != nil {
				t.Fatalf("ZoneSolid: %v", err)
			}
			if got := ex(s); got != tt.want {
				t.Errorf("solid = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestZoneSolidErrors(t *testing.T) {
	m := tessellate.NewKernelMesher(&exprKernel{})
	a := body(t, "A", geometry.KindSPH, 0, 0, 0, 1)

	if _, err := m.ZoneSolid(geometry.NewZone().AddSubtraction(a), unitHint); err == nil {
		t.Error("expected error for zone without an intersection operand")
	}
	p := body(t, "P", geometry.KindYZP, 0)
	if _, err := m.ZoneSolid(geometry.NewZone().AddIntersection(a, p), kernel.NullAABB()); err == nil {
		t.Error("expected error for unbounded operand without a hint")
	}
}

func TestZoneSolidEmptyOperand(t *testing.T) {
	m := tessellate.NewKernelMesher(&exprKernel{})
	a := body(t, "A", geometry.KindSPH, 0, 0, 0, 1)
	far := body(t, "P", geometry.KindXYP, -5)

	s, err := m.ZoneSolid(geometry.NewZone().AddIntersection(a, far), unitHint)
	if err != nil {
		t.Fatalf("ZoneSolid: %v", err)
	}
	if s != nil {
		t.Errorf("intersection with an empty operand should be empty, got %s", ex(s))
	}

	s, err = m.ZoneSolid(geometry.NewZone().AddIntersection(a).AddSubtraction(far), unitHint)
	if err != nil {
		t.Fatalf("ZoneSolid: %v", err)
	}
	if got := ex(s); got != "sph(1)" {
		t.Errorf("subtracting an empty operand should be a no-op, got %s", got)
	}
}

func TestRegionMesh(t *testing.T) {
	k := &exprKernel{}
	m := tessellate.NewKernelMesher(k)
	a := body(t, "A", geometry.KindSPH, 0, 0, 0, 1)
	far := body(t, "P", geometry.KindXYP, -5)

	r := geometry.NewRegion("R",
		geometry.NewZone().AddIntersection(a),
		geometry.NewZone().AddIntersection(far),
		geometry.NewZone().AddIntersection(a).AddSubtraction(a),
	)
	mesh, err := m.RegionMesh(r, unitHint)
	if err != nil {
		t.Fatalf("RegionMesh: %v", err)
	}
	if mesh.Name != "R" {
		t.Errorf("mesh name = %q, want R", mesh.Name)
	}
	if k.meshes != 1 {
		t.Errorf("ToMesh called %d times, want 1", k.meshes)
	}

	empty, err := m.RegionMesh(geometry.NewRegion("VOID"), unitHint)
	if err != nil {
		t.Fatalf("RegionMesh: %v", err)
	}
	if !empty.IsEmpty() || empty.Name != "VOID" {
		t.Errorf("expected empty mesh named VOID, got %+v", empty)
	}
}

// ---------------------------------------------------------------------------
// Real kernel
// ---------------------------------------------------------------------------

func TestSdfxCylinderAlongX(t *testing.T) {
	m := tessellate.NewKernelMesher(newKernel())
	c := body(t, "C", geometry.KindRCC, 0, 0, 0, 10, 0, 0, 2)
	s, err := m.Solid(c, kernel.NullAABB())
	if err != nil {
		t.Fatalf("Solid: %v", err)
	}
	got := kernel.AABBFromSolid(s)
	if !near(got, c.Shape.Extent(kernel.NullAABB()), 1e-3) {
		t.Errorf("solid box = %v, want %v", got, c.Shape.Extent(kernel.NullAABB()))
	}
}

func TestSdfxHalfSpace(t *testing.T) {
	m := tessellate.NewKernelMesher(newKernel())
	p := body(t, "P", geometry.KindXYP, 0)
	s, err := m.Solid(p, unitHint)
	if err != nil {
		t.Fatalf("Solid: %v", err)
	}
	want := kernel.NewAABB(-1, 1, -1, 1, -1, 0)
	if got := kernel.AABBFromSolid(s); !near(got, want, 1e-6) {
		t.Errorf("solid box = %v, want %v", got, want)
	}
}

func TestTessellateRegions(t *testing.T) {
	reg := geometry.NewRegistry()
	a := body(t, "A", geometry.KindSPH, 0, 0, 0, 1)
	b := body(t, "B", geometry.KindSPH, 3, 0, 0, 1)
	for _, bd := range []*geometry.Body{a, b} {
		if err := reg.AddBody(bd); err != nil {
			t.Fatal(err)
		}
	}
	r := geometry.NewRegion("PAIR",
		geometry.NewZone().AddIntersection(a),
		geometry.NewZone().AddIntersection(b))
	if err := reg.AddRegion(r); err != nil {
		t.Fatal(err)
	}

	meshes, err := tessellate.Tessellate(reg, newKernel(), kernel.NullAABB())
	if err != nil {
		t.Fatalf("Tessellate: %v", err)
	}
	if len(meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(meshes))
	}
	mesh := meshes[0]
	if mesh.IsEmpty() {
		t.Fatal("region mesh is empty")
	}
	if mesh.Name != "PAIR" {
		t.Errorf("mesh name = %q, want PAIR", mesh.Name)
	}
	bb := kernel.AABBFromMesh(mesh)
	exact := kernel.NewAABB(-1, 4, -1, 1, -1, 1)
	if !exact.Expand(1e-3).Contains(bb) {
		t.Errorf("mesh box %v escapes exact box %v", bb, exact)
	}
	if bb.Max[0] < 3.5 || bb.Min[0] > -0.5 {
		t.Errorf("mesh box %v does not cover both spheres", bb)
	}
}

func TestTessellateNilRegistry(t *testing.T) {
	meshes, err := tessellate.Tessellate(nil, newKernel(), kernel.NullAABB())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meshes != nil {
		t.Errorf("expected nil meshes, got %d", len(meshes))
	}
}

// Package tessellate turns bodies, zones and regions into triangle meshes
// using a geometry kernel. One mesh is produced per region.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
)

// DefaultSegments is the facet count passed to kernels that tessellate
// round primitives into polygons.
const DefaultSegments = 32

// errNoHint is returned when an unbounded body is meshed without a box to
// clip it to.
var errNoHint = errors.New("tessellate: unbounded body needs a hint box")

// KernelMesher meshes bodies with a geometry kernel. It implements
// geometry.Mesher, so its meshes drive the pruner's bounding boxes.
type KernelMesher struct {
	Kernel   kernel.Kernel
	Segments int
}

var _ geometry.Mesher = (*KernelMesher)(nil)

// NewKernelMesher returns a mesher over k.
func NewKernelMesher(k kernel.Kernel) *KernelMesher {
	return &KernelMesher{Kernel: k, Segments: DefaultSegments}
}

func (m *KernelMesher) segments() int {
	if m.Segments <= 0 {
		return DefaultSegments
	}
	return m.Segments
}

// Mesh tessellates one body. A body lying entirely outside hint gives an
// empty mesh.
func (m *KernelMesher) Mesh(b *geometry.Body, hint kernel.AABB) (*kernel.Mesh, error) {
	s, err := m.Solid(b, hint)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return &kernel.Mesh{}, nil
	}
	mesh, err := m.Kernel.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for body %s: %w", b.Name, err)
	}
	return mesh, nil
}

// Solid builds the kernel solid for b. Kernel primitives are centered on the
// origin, so each shape is built, aligned to its axis, then translated.
// Unbounded shapes are clipped to hint; a nil solid means nothing of the
// body lies inside it.
func (m *KernelMesher) Solid(b *geometry.Body, hint kernel.AABB) (kernel.Solid, error) {
	k := m.Kernel
	switch s := b.Shape.(type) {
	case geometry.Sphere:
		return translate(k, k.Sphere(s.Radius), s.Center), nil

	case geometry.Box:
		size := s.Max.Sub(s.Min)
		centre := s.Min.Add(size.Scale(0.5))
		return translate(k, k.Box(size.X, size.Y, size.Z), centre), nil

	case geometry.Cylinder:
		solid := k.Cylinder(s.Height.Len(), s.Radius, m.segments())
		return placeAxial(k, solid, s.Base, s.Height), nil

	case geometry.Cone:
		solid := k.Cone(s.Height.Len(), s.BaseRadius, s.TopRadius, m.segments())
		return placeAxial(k, solid, s.Base, s.Height), nil

	case geometry.HalfSpace:
		ext, err := clippedExtent(b, hint)
		if err != nil || ext.IsNull() {
			return nil, err
		}
		return boxSolid(k, ext), nil

	case geometry.InfiniteCylinder:
		ext, err := clippedExtent(b, hint)
		if err != nil || ext.IsNull() {
			return nil, err
		}
		// A finite cylinder spanning the hint along the axis, trimmed to
		// the hint on the cross axes.
		size := ext.Size()
		var base, h [3]float64
		base[s.Axis] = ext.Min[s.Axis]
		h[s.Axis] = size[s.Axis]
		u, v := s.CrossAxes()
		base[u], base[v] = s.U, s.V
		cyl := placeAxial(k, k.Cylinder(size[s.Axis], s.Radius, m.segments()), vec(base), vec(h))
		return k.Intersection(cyl, boxSolid(k, ext)), nil

	default:
		return nil, fmt.Errorf("tessellate: body %s has unsupported shape %T", b.Name, b.Shape)
	}
}

// clippedExtent returns the extent of an unbounded body inside hint.
func clippedExtent(b *geometry.Body, hint kernel.AABB) (kernel.AABB, error) {
	if hint.IsNull() || !hint.IsBounded() {
		return kernel.NullAABB(), fmt.Errorf("%w: %s", errNoHint, b)
	}
	return b.Shape.Extent(hint), nil
}

func vec(a [3]float64) geometry.Vec3 { return geometry.Vec3{X: a[0], Y: a[1], Z: a[2]} }

// boxSolid builds a kernel box filling bb.
func boxSolid(k kernel.Kernel, bb kernel.AABB) kernel.Solid {
	size, c := bb.Size(), bb.Center()
	return translate(k, k.Box(size[0], size[1], size[2]), vec(c))
}

// placeAxial moves a Z-aligned, origin-centered primitive so that it runs
// from base to base+h.
func placeAxial(k kernel.Kernel, s kernel.Solid, base, h geometry.Vec3) kernel.Solid {
	s = kernel.AlignZ(k, s, h.Array())
	return translate(k, s, base.Add(h.Scale(0.5)))
}

func translate(k kernel.Kernel, s kernel.Solid, v geometry.Vec3) kernel.Solid {
	if v.IsZero() {
		return s
	}
	return k.Translate(s, v.X, v.Y, v.Z)
}

// ZoneSolid evaluates z exactly: the intersection of its intersection
// operands minus each subtraction operand. A nil solid means the zone is
// empty inside hint.
func (m *KernelMesher) ZoneSolid(z *geometry.Zone, hint kernel.AABB) (kernel.Solid, error) {
	if len(z.Intersections) == 0 {
		return nil, fmt.Errorf("tessellate: zone %q has no intersection operand", zoneLabel(z))
	}

	var acc kernel.Solid
	for _, op := range z.Intersections {
		s, err := m.operandSolid(op, hint)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, nil
		}
		if acc == nil {
			acc = s
		} else {
			acc = m.Kernel.Intersection(acc, s)
		}
	}
	for _, op := range z.Subtractions {
		s, err := m.operandSolid(op, hint)
		if err != nil {
			return nil, err
		}
		if s != nil {
			acc = m.Kernel.Difference(acc, s)
		}
	}
	return acc, nil
}

func (m *KernelMesher) operandSolid(op geometry.Operand, hint kernel.AABB) (kernel.Solid, error) {
	switch v := op.(type) {
	case *geometry.Body:
		return m.Solid(v, hint)
	case *geometry.Zone:
		return m.ZoneSolid(v, hint)
	}
	return nil, fmt.Errorf("tessellate: unknown operand type %T", op)
}

// RegionMesh tessellates the union of r's zones. An empty region gives an
// empty mesh named after the region.
func (m *KernelMesher) RegionMesh(r *geometry.Region, hint kernel.AABB) (*kernel.Mesh, error) {
	var acc kernel.Solid
	for i, z := range r.Zones {
		s, err := m.ZoneSolid(z, hint)
		if err != nil {
			return nil, fmt.Errorf("tessellate: region %s zone %d: %w", r.Name, i+1, err)
		}
		if s == nil {
			continue
		}
		if acc == nil {
			acc = s
		} else {
			acc = m.Kernel.Union(acc, s)
		}
	}

	mesh := &kernel.Mesh{}
	if acc != nil {
		var err error
		mesh, err = m.Kernel.ToMesh(acc)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for region %s: %w", r.Name, err)
		}
	}
	mesh.Name = r.Name
	return mesh, nil
}

// Tessellate produces one mesh per region of reg, in registry order. The
// registry is read-only here.
func Tessellate(reg *geometry.Registry, k kernel.Kernel, hint kernel.AABB) ([]*kernel.Mesh, error) {
	if reg == nil {
		return nil, nil
	}
	m := NewKernelMesher(k)
	var meshes []*kernel.Mesh
	for _, r := range reg.Regions() {
		mesh, err := m.RegionMesh(r, hint)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// zoneLabel renders the top-level body names of z for error messages.
func zoneLabel(z *geometry.Zone) string {
	var s string
	for _, b := range z.Bodies() {
		if s != "" {
			s += " "
		}
		s += b.Name
	}
	return s
}

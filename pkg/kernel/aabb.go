package kernel

import (
	"fmt"
	"math"
)

// AABB is an immutable axis-aligned bounding box. The zero value is a
// degenerate box at the origin; use NullAABB for "no box".
type AABB struct {
	Min [3]float64 `yaml:"min" json:"min"`
	Max [3]float64 `yaml:"max" json:"max"`
}

// NullAABB returns the empty box. It intersects nothing and is the
// identity for Union.
func NullAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: [3]float64{inf, inf, inf},
		Max: [3]float64{-inf, -inf, -inf},
	}
}

// InfiniteAABB returns the box covering all of space.
func InfiniteAABB() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: [3]float64{-inf, -inf, -inf},
		Max: [3]float64{inf, inf, inf},
	}
}

// NewAABB builds a box from the six scalars in FLUKA RPP order.
func NewAABB(xmin, xmax, ymin, ymax, zmin, zmax float64) AABB {
	return AABB{
		Min: [3]float64{xmin, ymin, zmin},
		Max: [3]float64{xmax, ymax, zmax},
	}
}

// AABBFromSolid reads a kernel solid's bounding box.
func AABBFromSolid(s Solid) AABB {
	min, max := s.BoundingBox()
	return AABB{Min: min, Max: max}
}

// AABBFromMesh returns the tightest box around the mesh vertices, or the
// null box for an empty mesh.
func AABBFromMesh(m *Mesh) AABB {
	if m.IsEmpty() {
		return NullAABB()
	}
	b := NullAABB()
	for i := 0; i+2 < len(m.Vertices); i += 3 {
		for axis := 0; axis < 3; axis++ {
			v := float64(m.Vertices[i+axis])
			b.Min[axis] = math.Min(b.Min[axis], v)
			b.Max[axis] = math.Max(b.Max[axis], v)
		}
	}
	return b
}

// IsNull reports whether the box is empty on any axis.
func (b AABB) IsNull() bool {
	for axis := 0; axis < 3; axis++ {
		if b.Min[axis] > b.Max[axis] || math.IsNaN(b.Min[axis]) || math.IsNaN(b.Max[axis]) {
			return true
		}
	}
	return false
}

// IsBounded reports whether every bound is finite.
func (b AABB) IsBounded() bool {
	for axis := 0; axis < 3; axis++ {
		if math.IsInf(b.Min[axis], 0) || math.IsInf(b.Max[axis], 0) {
			return false
		}
	}
	return true
}

// Intersects reports whether the closed boxes share at least one point.
// Touching faces count as intersecting.
func (b AABB) Intersects(o AABB) bool {
	if b.IsNull() || o.IsNull() {
		return false
	}
	for axis := 0; axis < 3; axis++ {
		if b.Max[axis] < o.Min[axis] || o.Max[axis] < b.Min[axis] {
			return false
		}
	}
	return true
}

// Intersect clamps b to o component-wise. Disjoint boxes yield the null box.
func (b AABB) Intersect(o AABB) AABB {
	if !b.Intersects(o) {
		return NullAABB()
	}
	var r AABB
	for axis := 0; axis < 3; axis++ {
		r.Min[axis] = math.Max(b.Min[axis], o.Min[axis])
		r.Max[axis] = math.Min(b.Max[axis], o.Max[axis])
	}
	return r
}

// Union returns the smallest box containing both.
func (b AABB) Union(o AABB) AABB {
	if b.IsNull() {
		return o
	}
	if o.IsNull() {
		return b
	}
	var r AABB
	for axis := 0; axis < 3; axis++ {
		r.Min[axis] = math.Min(b.Min[axis], o.Min[axis])
		r.Max[axis] = math.Max(b.Max[axis], o.Max[axis])
	}
	return r
}

// Contains reports whether o lies entirely inside b.
func (b AABB) Contains(o AABB) bool {
	if o.IsNull() {
		return true
	}
	if b.IsNull() {
		return false
	}
	for axis := 0; axis < 3; axis++ {
		if o.Min[axis] < b.Min[axis] || o.Max[axis] > b.Max[axis] {
			return false
		}
	}
	return true
}

// Expand grows the box by eps on every side. The null box stays null.
func (b AABB) Expand(eps float64) AABB {
	if b.IsNull() || eps == 0 {
		return b
	}
	for axis := 0; axis < 3; axis++ {
		b.Min[axis] -= eps
		b.Max[axis] += eps
	}
	return b
}

// Size returns the edge lengths. The null box has zero size.
func (b AABB) Size() [3]float64 {
	if b.IsNull() {
		return [3]float64{}
	}
	return [3]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Center returns the midpoint of the box.
func (b AABB) Center() [3]float64 {
	return [3]float64{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

func (b AABB) String() string {
	if b.IsNull() {
		return "AABB(null)"
	}
	return fmt.Sprintf("AABB([%g %g] [%g %g] [%g %g])",
		b.Min[0], b.Max[0], b.Min[1], b.Max[1], b.Min[2], b.Max[2])
}

// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, manifold) mesh primitive bodies and evaluate
// exact boolean operations behind this interface. The normalization passes
// never look inside a kernel; they only consume the bounding boxes derived
// from the meshes it produces.
package kernel

import "math"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
// All primitives are centered on the origin; callers place them with
// Rotate and Translate.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Sphere(radius float64) Solid
	Cylinder(height, radius float64, segments int) Solid
	Cone(height, r0, r1 float64, segments int) Solid // r0 at -height/2, r1 at +height/2

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// AlignZ rotates s so that its +Z axis points along axis. Kernels apply
// Euler rotations as Rz*Ry*Rx, so tilting about Y by the polar angle and
// then about Z by the azimuth lands +Z on axis.
func AlignZ(k Kernel, s Solid, axis [3]float64) Solid {
	x, y, z := axis[0], axis[1], axis[2]
	n := math.Sqrt(x*x + y*y + z*z)
	if n == 0 {
		return s
	}
	polar := math.Acos(clamp(z/n, -1, 1)) * 180 / math.Pi
	azimuth := math.Atan2(y, x) * 180 / math.Pi
	if polar == 0 {
		return s
	}
	return k.Rotate(s, 0, polar, azimuth)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package geometry

import (
	"fmt"
	"math"

	"github.com/chazu/csgnorm/pkg/kernel"
)

// Kind names a primitive body type by its FLUKA card code.
type Kind string

const (
	KindSPH Kind = "SPH" // sphere
	KindRPP Kind = "RPP" // axis-aligned box
	KindRCC Kind = "RCC" // right circular cylinder
	KindTRC Kind = "TRC" // truncated right cone
	KindXYP Kind = "XYP" // half-space z < v
	KindXZP Kind = "XZP" // half-space y < v
	KindYZP Kind = "YZP" // half-space x < v
	KindXCC Kind = "XCC" // infinite cylinder along x
	KindYCC Kind = "YCC" // infinite cylinder along y
	KindZCC Kind = "ZCC" // infinite cylinder along z
)

// paramCount is the number of scalars each kind takes on its card.
var paramCount = map[Kind]int{
	KindSPH: 4,
	KindRPP: 6,
	KindRCC: 7,
	KindTRC: 8,
	KindXYP: 1,
	KindXZP: 1,
	KindYZP: 1,
	KindXCC: 3,
	KindYCC: 3,
	KindZCC: 3,
}

// ParamCount returns the number of card parameters for kind, or false if
// the kind is unknown.
func ParamCount(kind Kind) (int, bool) {
	n, ok := paramCount[kind]
	return n, ok
}

// Shape is the geometric definition of a body. The set of shapes is
// closed; every implementation lives in this file.
type Shape interface {
	// Kind returns the card code.
	Kind() Kind
	// Params returns the defining scalars in card order.
	Params() []float64
	// Extent returns the exact bounding box of the shape. Unbounded shapes
	// are clipped to hint; a null hint leaves them infinite.
	Extent(hint kernel.AABB) kernel.AABB
	// Bounded reports whether the shape is finite.
	Bounded() bool
	// Validate checks the parameters.
	Validate() error

	shape() // marker method restricting implementations to this package
}

// NewShape builds a shape from its card code and parameters.
func NewShape(kind Kind, p []float64) (Shape, error) {
	n, ok := paramCount[kind]
	if !ok {
		return nil, fmt.Errorf("geometry: unknown body kind %q", kind)
	}
	if len(p) != n {
		return nil, fmt.Errorf("geometry: %s takes %d parameters, got %d", kind, n, len(p))
	}
	var s Shape
	switch kind {
	case KindSPH:
		s = Sphere{Center: Vec3{p[0], p[1], p[2]}, Radius: p[3]}
	case KindRPP:
		s = Box{Min: Vec3{p[0], p[2], p[4]}, Max: Vec3{p[1], p[3], p[5]}}
	case KindRCC:
		s = Cylinder{Base: Vec3{p[0], p[1], p[2]}, Height: Vec3{p[3], p[4], p[5]}, Radius: p[6]}
	case KindTRC:
		s = Cone{Base: Vec3{p[0], p[1], p[2]}, Height: Vec3{p[3], p[4], p[5]}, BaseRadius: p[6], TopRadius: p[7]}
	case KindXYP, KindXZP, KindYZP:
		s = HalfSpace{Axis: planeAxis[kind], Value: p[0]}
	case KindXCC, KindYCC, KindZCC:
		s = InfiniteCylinder{Axis: cylinderAxis[kind], U: p[0], V: p[1], Radius: p[2]}
	}
	return s, nil
}

// Axis indexes x, y, z.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

var planeAxis = map[Kind]Axis{KindYZP: AxisX, KindXZP: AxisY, KindXYP: AxisZ}

var cylinderAxis = map[Kind]Axis{KindXCC: AxisX, KindYCC: AxisY, KindZCC: AxisZ}

// clip restricts an unbounded box to hint when one is given.
func clip(b, hint kernel.AABB) kernel.AABB {
	if hint.IsNull() {
		return b
	}
	return b.Intersect(hint)
}

// ---------------------------------------------------------------------------
// Bounded shapes
// ---------------------------------------------------------------------------

// Sphere is an SPH body.
type Sphere struct {
	Center Vec3
	Radius float64
}

func (Sphere) shape()        {}
func (Sphere) Kind() Kind    { return KindSPH }
func (Sphere) Bounded() bool { return true }
func (s Sphere) Params() []float64 {
	return []float64{s.Center.X, s.Center.Y, s.Center.Z, s.Radius}
}

func (s Sphere) Extent(kernel.AABB) kernel.AABB {
	c, r := s.Center, s.Radius
	return kernel.NewAABB(c.X-r, c.X+r, c.Y-r, c.Y+r, c.Z-r, c.Z+r)
}

func (s Sphere) Validate() error {
	if !(s.Radius > 0) {
		return fmt.Errorf("SPH radius must be positive, got %g", s.Radius)
	}
	return nil
}

// Box is an RPP body. Card order is xmin xmax ymin ymax zmin zmax.
type Box struct {
	Min, Max Vec3
}

func (Box) shape()        {}
func (Box) Kind() Kind    { return KindRPP }
func (Box) Bounded() bool { return true }
func (b Box) Params() []float64 {
	return []float64{b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, b.Min.Z, b.Max.Z}
}

func (b Box) Extent(kernel.AABB) kernel.AABB {
	return kernel.AABB{Min: b.Min.Array(), Max: b.Max.Array()}
}

func (b Box) Validate() error {
	if !(b.Min.X < b.Max.X && b.Min.Y < b.Max.Y && b.Min.Z < b.Max.Z) {
		return fmt.Errorf("RPP min corner %v must be below max corner %v on every axis", b.Min, b.Max)
	}
	return nil
}

// Cylinder is an RCC body: a base point, a height vector and a radius.
type Cylinder struct {
	Base, Height Vec3
	Radius       float64
}

func (Cylinder) shape()        {}
func (Cylinder) Kind() Kind    { return KindRCC }
func (Cylinder) Bounded() bool { return true }
func (c Cylinder) Params() []float64 {
	return []float64{c.Base.X, c.Base.Y, c.Base.Z, c.Height.X, c.Height.Y, c.Height.Z, c.Radius}
}

func (c Cylinder) Extent(kernel.AABB) kernel.AABB {
	return capsuleExtent(c.Base, c.Height, c.Radius, c.Radius)
}

func (c Cylinder) Validate() error {
	if !(c.Radius > 0) {
		return fmt.Errorf("RCC radius must be positive, got %g", c.Radius)
	}
	if c.Height.IsZero() {
		return fmt.Errorf("RCC height vector must be non-zero")
	}
	return nil
}

// Cone is a TRC body: radius BaseRadius at Base, TopRadius at Base+Height.
type Cone struct {
	Base, Height          Vec3
	BaseRadius, TopRadius float64
}

func (Cone) shape()        {}
func (Cone) Kind() Kind    { return KindTRC }
func (Cone) Bounded() bool { return true }
func (c Cone) Params() []float64 {
	return []float64{c.Base.X, c.Base.Y, c.Base.Z, c.Height.X, c.Height.Y, c.Height.Z, c.BaseRadius, c.TopRadius}
}

func (c Cone) Extent(kernel.AABB) kernel.AABB {
	return capsuleExtent(c.Base, c.Height, c.BaseRadius, c.TopRadius)
}

func (c Cone) Validate() error {
	if c.BaseRadius < 0 || c.TopRadius < 0 || c.BaseRadius+c.TopRadius == 0 {
		return fmt.Errorf("TRC radii must be non-negative and not both zero, got %g and %g", c.BaseRadius, c.TopRadius)
	}
	if c.Height.IsZero() {
		return fmt.Errorf("TRC height vector must be non-zero")
	}
	return nil
}

// capsuleExtent bounds two end discs of radii r0 and r1 perpendicular to h.
// A disc of radius r with unit normal a spans r*sqrt(1-a_i^2) along axis i.
func capsuleExtent(base, h Vec3, r0, r1 float64) kernel.AABB {
	a := h.Unit().Array()
	p0 := base.Array()
	p1 := base.Add(h).Array()
	var b kernel.AABB
	for i := 0; i < 3; i++ {
		k := math.Sqrt(math.Max(0, 1-a[i]*a[i]))
		b.Min[i] = math.Min(p0[i]-r0*k, p1[i]-r1*k)
		b.Max[i] = math.Max(p0[i]+r0*k, p1[i]+r1*k)
	}
	return b
}

// ---------------------------------------------------------------------------
// Unbounded shapes
// ---------------------------------------------------------------------------

// HalfSpace is an XYP, XZP or YZP body: the points whose coordinate along
// Axis is below Value.
type HalfSpace struct {
	Axis  Axis
	Value float64
}

func (HalfSpace) shape()          {}
func (HalfSpace) Bounded() bool   { return false }
func (HalfSpace) Validate() error { return nil }

func (h HalfSpace) Kind() Kind {
	switch h.Axis {
	case AxisX:
		return KindYZP
	case AxisY:
		return KindXZP
	default:
		return KindXYP
	}
}

func (h HalfSpace) Params() []float64 { return []float64{h.Value} }

func (h HalfSpace) Extent(hint kernel.AABB) kernel.AABB {
	b := kernel.InfiniteAABB()
	b.Max[h.Axis] = h.Value
	return clip(b, hint)
}

// InfiniteCylinder is an XCC, YCC or ZCC body. U and V are the centre
// coordinates on the two remaining axes in x, y, z order.
type InfiniteCylinder struct {
	Axis   Axis
	U, V   float64
	Radius float64
}

func (InfiniteCylinder) shape()        {}
func (InfiniteCylinder) Bounded() bool { return false }

func (c InfiniteCylinder) Kind() Kind {
	switch c.Axis {
	case AxisX:
		return KindXCC
	case AxisY:
		return KindYCC
	default:
		return KindZCC
	}
}

func (c InfiniteCylinder) Params() []float64 { return []float64{c.U, c.V, c.Radius} }

func (c InfiniteCylinder) Extent(hint kernel.AABB) kernel.AABB {
	b := kernel.InfiniteAABB()
	u, v := c.CrossAxes()
	b.Min[u], b.Max[u] = c.U-c.Radius, c.U+c.Radius
	b.Min[v], b.Max[v] = c.V-c.Radius, c.V+c.Radius
	return clip(b, hint)
}

func (c InfiniteCylinder) Validate() error {
	if !(c.Radius > 0) {
		return fmt.Errorf("%s radius must be positive, got %g", c.Kind(), c.Radius)
	}
	return nil
}

// CrossAxes returns the two axes perpendicular to the cylinder axis in
// x, y, z order.
func (c InfiniteCylinder) CrossAxes() (Axis, Axis) {
	switch c.Axis {
	case AxisX:
		return AxisY, AxisZ
	case AxisY:
		return AxisX, AxisZ
	default:
		return AxisX, AxisY
	}
}

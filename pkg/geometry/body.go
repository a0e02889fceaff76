package geometry

import (
	"fmt"
	"sync"

	"github.com/chazu/csgnorm/pkg/kernel"
)

// Mesher produces a triangle mesh for a body. The hint bounds unbounded
// bodies; bounded bodies may ignore it.
type Mesher interface {
	Mesh(b *Body, hint kernel.AABB) (*kernel.Mesh, error)
}

// Body is a named primitive solid. Bodies are created once by a reader and
// shared by reference between zones; the name is unique within a registry.
type Body struct {
	Name  string
	Shape Shape

	mu    sync.Mutex
	boxes map[boxKey]kernel.AABB
}

// boxKey identifies a cached box. Meshers must be comparable: pointers or
// plain structs.
type boxKey struct {
	mesher Mesher
	hint   kernel.AABB
}

// NewBody creates a body.
func NewBody(name string, s Shape) *Body {
	return &Body{Name: name, Shape: s}
}

func (*Body) operand() {}

func (b *Body) String() string {
	return fmt.Sprintf("%s %s", b.Shape.Kind(), b.Name)
}

// Mesh tessellates the body with m.
func (b *Body) Mesh(m Mesher, hint kernel.AABB) (*kernel.Mesh, error) {
	mesh, err := m.Mesh(b, hint)
	if err != nil {
		return nil, fmt.Errorf("geometry: mesh body %s: %w", b.Name, err)
	}
	mesh.Name = b.Name
	return mesh, nil
}

// AABB returns the bounding box of the body's mesh. With a nil mesher the
// exact extent of the shape is used instead. Results are cached per mesher
// and hint for the lifetime of the body.
func (b *Body) AABB(m Mesher, hint kernel.AABB) (kernel.AABB, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := boxKey{mesher: m, hint: hint}
	if box, ok := b.boxes[key]; ok {
		return box, nil
	}

	var box kernel.AABB
	if m == nil {
		box = b.Shape.Extent(hint)
	} else {
		mesh, err := b.Mesh(m, hint)
		if err != nil {
			return kernel.NullAABB(), err
		}
		box = kernel.AABBFromMesh(mesh)
	}

	if b.boxes == nil {
		b.boxes = make(map[boxKey]kernel.AABB)
	}
	b.boxes[key] = box
	return box, nil
}

// Package prune removes zone operands that cannot contribute volume, using
// axis-aligned bounding boxes as a conservative test. Disjoint boxes prove
// an intersection empty; overlapping boxes prove nothing, so a zone kept by
// this pass may still be empty under exact evaluation.
package prune

import (
	"fmt"
	"log/slog"

	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
)

// DefaultTolerance is the amount body boxes are grown by before testing.
// Mesh-derived boxes of curved bodies sit slightly inside the exact extent.
const DefaultTolerance = 1e-6

// Pruner prunes zones and regions. The zero value uses exact shape extents,
// no world box, no tolerance and the default depth limit.
type Pruner struct {
	// Mesher derives body boxes; nil uses each shape's exact extent.
	Mesher geometry.Mesher
	// World bounds unbounded bodies. The zero value means no world box.
	World kernel.AABB
	// Tolerance grows every body box before it is tested.
	Tolerance float64
	// MaxDepth bounds zone nesting; zero selects geometry.DefaultMaxDepth.
	MaxDepth int
	// Logger receives debug output; nil discards it.
	Logger *slog.Logger
}

func (p *Pruner) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

func (p *Pruner) hint() kernel.AABB {
	if p.World == (kernel.AABB{}) {
		return kernel.NullAABB()
	}
	return p.World
}

// box returns b's inflated bounding box.
func (p *Pruner) box(b *geometry.Body) (kernel.AABB, error) {
	box, err := b.AABB(p.Mesher, p.hint())
	if err != nil {
		return kernel.NullAABB(), fmt.Errorf("prune: %w", err)
	}
	return box.Expand(p.Tolerance), nil
}

// PruneRegion prunes every zone of r and drops those that become empty.
// running, when not null, bounds every zone. The result may have no zones;
// that is not an error.
func (p *Pruner) PruneRegion(r *geometry.Region, running kernel.AABB) (*geometry.Region, error) {
	out := geometry.NewRegion(r.Name)
	for i, z := range r.Zones {
		pz, err := p.PruneZone(z, running)
		if err != nil {
			return nil, fmt.Errorf("prune: region %q zone %d: %w", r.Name, i+1, err)
		}
		if pz.IsEmpty() {
			p.logger().Debug("dropped empty zone", "region", r.Name, "zone", i+1)
			continue
		}
		out.AddZone(pz)
	}
	return out, nil
}

// PruneZone returns a copy of z without the operands its boxes show to be
// irrelevant. Pass kernel.NullAABB() as running to start unbounded; the
// first intersection operand then seeds the box and is always kept. An
// empty result means the zone was proven empty.
func (p *Pruner) PruneZone(z *geometry.Zone, running kernel.AABB) (*geometry.Zone, error) {
	pz, _, err := p.prune(z, running, 1)
	return pz, err
}

// prune returns the pruned zone and the box bounding its intersection.
func (p *Pruner) prune(z *geometry.Zone, running kernel.AABB, depth int) (*geometry.Zone, kernel.AABB, error) {
	if err := geometry.CheckDepth(depth, p.MaxDepth); err != nil {
		return nil, kernel.NullAABB(), err
	}

	out := geometry.NewZone()
	if z.IsEmpty() {
		return out, kernel.NullAABB(), nil
	}
	seeded := !running.IsNull()

	for _, op := range z.Intersections {
		switch v := op.(type) {
		case *geometry.Body:
			box, err := p.box(v)
			if err != nil {
				return nil, kernel.NullAABB(), err
			}
			if box.IsNull() {
				p.logger().Debug("body has no extent, zone is empty", "body", v.Name)
				return geometry.NewZone(), kernel.NullAABB(), nil
			}
			if !seeded {
				running, seeded = box, true
				out.AddIntersection(v)
				continue
			}
			if !box.Intersects(running) {
				p.logger().Debug("disjoint intersection, zone is empty", "body", v.Name, "box", box, "running", running)
				return geometry.NewZone(), kernel.NullAABB(), nil
			}
			running = running.Intersect(box)
			out.AddIntersection(v)

		case *geometry.Zone:
			seed := kernel.NullAABB()
			if seeded {
				seed = running
			}
			sub, subBox, err := p.prune(v, seed, depth+1)
			if err != nil {
				return nil, kernel.NullAABB(), err
			}
			if sub.IsEmpty() {
				p.logger().Debug("nested intersection is empty, zone is empty")
				return geometry.NewZone(), kernel.NullAABB(), nil
			}
			running, seeded = subBox, true
			out.AddIntersection(sub)
		}
	}

	for _, op := range z.Subtractions {
		switch v := op.(type) {
		case *geometry.Body:
			box, err := p.box(v)
			if err != nil {
				return nil, kernel.NullAABB(), err
			}
			if !box.Intersects(running) {
				p.logger().Debug("dropped disjoint subtraction", "body", v.Name)
				continue
			}
			out.AddSubtraction(v)

		case *geometry.Zone:
			// Subtracted zones start from a fresh box.
			sub, _, err := p.prune(v, kernel.NullAABB(), depth+1)
			if err != nil {
				return nil, kernel.NullAABB(), err
			}
			if sub.IsEmpty() {
				p.logger().Debug("dropped empty nested subtraction")
				continue
			}
			out.AddSubtraction(sub)
		}
	}

	return out, running, nil
}

// Package squash replaces every body in a zone with the canonical body of
// its geometric signature, so that duplicate primitives defined under
// different names collapse onto one instance.
package squash

import (
	"fmt"
	"log/slog"

	"github.com/chazu/csgnorm/pkg/geometry"
)

// Squasher canonicalizes bodies against a shared store. The store may be
// shared between goroutines; a Squasher may not.
type Squasher struct {
	// Store is shared by every call. Nil selects a fresh store per call.
	Store *geometry.BodyStore
	// MaxDepth bounds zone nesting; zero selects geometry.DefaultMaxDepth.
	MaxDepth int
	// Logger receives debug output; nil discards it.
	Logger *slog.Logger

	// Replaced counts body operands swapped for a different canonical
	// body, summed over every call.
	Replaced int
}

func (s *Squasher) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Squasher) store() *geometry.BodyStore {
	if s.Store == nil {
		return geometry.NewBodyStore(0)
	}
	return s.Store
}

// Zone returns a copy of z with every body replaced by its canonical
// instance. Operand lists, signs and nesting are unchanged.
func (s *Squasher) Zone(z *geometry.Zone) (*geometry.Zone, error) {
	w := walker{store: s.store(), limit: s.MaxDepth}
	out, err := w.rebuild(z, 1)
	if err != nil {
		return nil, fmt.Errorf("squash: %w", err)
	}
	s.Replaced += w.replaced
	if w.replaced > 0 {
		s.logger().Debug("squashed zone", "replaced", w.replaced)
	}
	return out, nil
}

// Region squashes every zone of r against one store.
func (s *Squasher) Region(r *geometry.Region) (*geometry.Region, error) {
	w := walker{store: s.store(), limit: s.MaxDepth}
	out := geometry.NewRegion(r.Name)
	for i, z := range r.Zones {
		sz, err := w.rebuild(z, 1)
		if err != nil {
			return nil, fmt.Errorf("squash: region %q zone %d: %w", r.Name, i+1, err)
		}
		out.AddZone(sz)
	}
	s.Replaced += w.replaced
	s.logger().Debug("squashed region", "region", r.Name, "replaced", w.replaced)
	return out, nil
}

type walker struct {
	store    *geometry.BodyStore
	limit    int
	replaced int
}

func (w *walker) rebuild(z *geometry.Zone, depth int) (*geometry.Zone, error) {
	if err := geometry.CheckDepth(depth, w.limit); err != nil {
		return nil, err
	}
	out := geometry.NewZone()
	for _, op := range z.Intersections {
		c, err := w.canonical(op, depth)
		if err != nil {
			return nil, err
		}
		out.AddIntersection(c)
	}
	for _, op := range z.Subtractions {
		c, err := w.canonical(op, depth)
		if err != nil {
			return nil, err
		}
		out.AddSubtraction(c)
	}
	return out, nil
}

func (w *walker) canonical(op geometry.Operand, depth int) (geometry.Operand, error) {
	switch v := op.(type) {
	case *geometry.Body:
		c := w.store.GetDegenerateBody(v)
		if c != v {
			w.replaced++
		}
		return c, nil
	case *geometry.Zone:
		return w.rebuild(v, depth+1)
	}
	return nil, fmt.Errorf("unknown operand type %T", op)
}

package geometry

import "fmt"

// Registry owns the bodies and regions of one geometry. Lookup is by name;
// iteration follows insertion order so output is reproducible.
type Registry struct {
	bodies  []*Body
	byName  map[string]*Body
	regions []*Region
	regionN map[string]*Region
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Body),
		regionN: make(map[string]*Region),
	}
}

// AddBody registers b. Names must be unique.
func (r *Registry) AddBody(b *Body) error {
	if _, exists := r.byName[b.Name]; exists {
		return fmt.Errorf("geometry: body %q already defined", b.Name)
	}
	r.bodies = append(r.bodies, b)
	r.byName[b.Name] = b
	return nil
}

// Body returns the body with the given name, or nil.
func (r *Registry) Body(name string) *Body {
	return r.byName[name]
}

// Bodies returns all bodies in insertion order.
func (r *Registry) Bodies() []*Body {
	return append([]*Body(nil), r.bodies...)
}

// AddRegion registers reg. Names must be unique.
func (r *Registry) AddRegion(reg *Region) error {
	if _, exists := r.regionN[reg.Name]; exists {
		return fmt.Errorf("geometry: region %q already defined", reg.Name)
	}
	r.regions = append(r.regions, reg)
	r.regionN[reg.Name] = reg
	return nil
}

// Region returns the region with the given name, or nil.
func (r *Registry) Region(name string) *Region {
	return r.regionN[name]
}

// Regions returns all regions in insertion order.
func (r *Registry) Regions() []*Region {
	return append([]*Region(nil), r.regions...)
}

// AddZoneBodies registers every body reachable from z that is not yet
// present. A different body already registered under the same name is an
// error.
func (r *Registry) AddZoneBodies(z *Zone) error {
	for _, b := range z.Bodies() {
		existing, ok := r.byName[b.Name]
		if !ok {
			if err := r.AddBody(b); err != nil {
				return err
			}
			continue
		}
		if existing != b {
			return fmt.Errorf("geometry: body name %q bound to two different bodies", b.Name)
		}
	}
	return nil
}

// Referenced returns the registered bodies used by at least one region, in
// registration order.
func (r *Registry) Referenced() []*Body {
	used := make(map[*Body]bool)
	for _, reg := range r.regions {
		for _, b := range reg.Bodies() {
			used[b] = true
		}
	}
	var out []*Body
	for _, b := range r.bodies {
		if used[b] {
			out = append(out, b)
		}
	}
	return out
}

// BodyCount returns the number of registered bodies.
func (r *Registry) BodyCount() int { return len(r.bodies) }

// RegionCount returns the number of registered regions.
func (r *Registry) RegionCount() int { return len(r.regions) }

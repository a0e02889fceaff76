package geometry

// Operand is an entry in a zone's intersection or subtraction list: either
// a *Body or a nested *Zone.
type Operand interface {
	operand() // marker method restricting implementations to this package
}

// Zone is the intersection of its Intersections minus the union of its
// Subtractions. A zone with no intersections is empty; it only appears as
// an intermediate pruning result and is never written out.
type Zone struct {
	Intersections []Operand
	Subtractions  []Operand
}

// NewZone returns an empty zone.
func NewZone() *Zone {
	return &Zone{}
}

func (*Zone) operand() {}

// AddIntersection appends intersection operands and returns z.
func (z *Zone) AddIntersection(ops ...Operand) *Zone {
	z.Intersections = append(z.Intersections, ops...)
	return z
}

// AddSubtraction appends subtraction operands and returns z.
func (z *Zone) AddSubtraction(ops ...Operand) *Zone {
	z.Subtractions = append(z.Subtractions, ops...)
	return z
}

// IsEmpty reports whether the zone has no intersection operands.
func (z *Zone) IsEmpty() bool {
	return len(z.Intersections) == 0
}

// IsFlat reports whether every operand is a body.
func (z *Zone) IsFlat() bool {
	for _, op := range z.Intersections {
		if _, ok := op.(*Zone); ok {
			return false
		}
	}
	for _, op := range z.Subtractions {
		if _, ok := op.(*Zone); ok {
			return false
		}
	}
	return true
}

// Depth returns the nesting depth: 1 for a zone of bodies only.
func (z *Zone) Depth() int {
	d := 0
	for _, ops := range [][]Operand{z.Intersections, z.Subtractions} {
		for _, op := range ops {
			if sub, ok := op.(*Zone); ok {
				if sd := sub.Depth(); sd > d {
					d = sd
				}
			}
		}
	}
	return d + 1
}

// depthWithin reports whether z, sitting at depth, nests no deeper than
// limit. It stops at the first level past the limit.
func (z *Zone) depthWithin(depth, limit int) bool {
	if depth > limit {
		return false
	}
	for _, ops := range [][]Operand{z.Intersections, z.Subtractions} {
		for _, op := range ops {
			if sub, ok := op.(*Zone); ok && !sub.depthWithin(depth+1, limit) {
				return false
			}
		}
	}
	return true
}

// OperandCount returns the number of operands at every nesting level,
// counting a nested zone itself as one operand.
func (z *Zone) OperandCount() int {
	n := 0
	for _, ops := range [][]Operand{z.Intersections, z.Subtractions} {
		for _, op := range ops {
			n++
			if sub, ok := op.(*Zone); ok {
				n += sub.OperandCount()
			}
		}
	}
	return n
}

// Bodies returns every body reachable from z, each once, in the order
// first met walking intersections before subtractions.
func (z *Zone) Bodies() []*Body {
	var out []*Body
	seen := make(map[*Body]bool)
	z.collectBodies(seen, &out)
	return out
}

func (z *Zone) collectBodies(seen map[*Body]bool, out *[]*Body) {
	for _, ops := range [][]Operand{z.Intersections, z.Subtractions} {
		for _, op := range ops {
			switch v := op.(type) {
			case *Body:
				if !seen[v] {
					seen[v] = true
					*out = append(*out, v)
				}
			case *Zone:
				v.collectBodies(seen, out)
			}
		}
	}
}

// Region is a named union of zones.
type Region struct {
	Name  string
	Zones []*Zone
}

// NewRegion creates a region over zones.
func NewRegion(name string, zones ...*Zone) *Region {
	return &Region{Name: name, Zones: zones}
}

// AddZone appends a zone.
func (r *Region) AddZone(z *Zone) {
	r.Zones = append(r.Zones, z)
}

// Bodies returns every body reachable from the region's zones, each once.
func (r *Region) Bodies() []*Body {
	var out []*Body
	seen := make(map[*Body]bool)
	for _, z := range r.Zones {
		z.collectBodies(seen, &out)
	}
	return out
}

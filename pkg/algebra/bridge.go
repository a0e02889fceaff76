package algebra

import (
	"fmt"

	"github.com/chazu/csgnorm/pkg/geometry"
)

// ZoneToExpr returns the conjunction of z's intersection operands and the
// negations of its subtraction operands, in operand order. Nested zones
// recurse. A zone with no intersection operands is false.
func ZoneToExpr(z *geometry.Zone) Expr {
	if z.IsEmpty() {
		return Const(false)
	}
	terms := make([]Expr, 0, len(z.Intersections)+len(z.Subtractions))
	for _, op := range z.Intersections {
		terms = append(terms, operandExpr(op))
	}
	for _, op := range z.Subtractions {
		terms = append(terms, Not{X: operandExpr(op)})
	}
	return And{Terms: terms}
}

func operandExpr(op geometry.Operand) Expr {
	switch v := op.(type) {
	case *geometry.Body:
		return Var{Name: v.Name}
	case *geometry.Zone:
		return ZoneToExpr(v)
	}
	panic(fmt.Sprintf("algebra: unknown operand type %T", op))
}

// RegionToExpr returns the disjunction of the region's zone expressions.
func RegionToExpr(r *geometry.Region) Expr {
	terms := make([]Expr, len(r.Zones))
	for i, z := range r.Zones {
		terms[i] = ZoneToExpr(z)
	}
	return Or{Terms: terms}
}

// Universe resolves symbols to the bodies they name.
type Universe map[string]*geometry.Body

// NewUniverse collects every body reachable from zones. Two distinct
// bodies sharing a name make the universe ambiguous and are rejected.
func NewUniverse(zones ...*geometry.Zone) (Universe, error) {
	reg := geometry.NewRegistry()
	for _, z := range zones {
		if err := reg.AddZoneBodies(z); err != nil {
			return nil, fmt.Errorf("algebra: universe: %w", err)
		}
	}
	u := make(Universe, reg.BodyCount())
	for _, b := range reg.Bodies() {
		u[b.Name] = b
	}
	return u, nil
}

// Zone builds a flat zone from a conjunction of literals: positive atoms
// become intersection operands and negated atoms subtraction operands, in
// expression order. A bare literal is a one-term conjunction.
func (u Universe) Zone(e Expr) (*geometry.Zone, error) {
	var terms []Expr
	switch v := e.(type) {
	case And:
		terms = v.Terms
	case Var, Not:
		terms = []Expr{v}
	default:
		return nil, fmt.Errorf("%w: %s is not a conjunction", ErrMalformedExpression, e)
	}

	z := geometry.NewZone()
	for _, t := range terms {
		name, negated, err := literal(t)
		if err != nil {
			return nil, err
		}
		b, ok := u[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSymbol, name)
		}
		if negated {
			z.AddSubtraction(b)
		} else {
			z.AddIntersection(b)
		}
	}
	if z.IsEmpty() {
		return nil, fmt.Errorf("%w: %s has no positive operand", ErrMalformedExpression, e)
	}
	return z, nil
}

func literal(e Expr) (name string, negated bool, err error) {
	switch v := e.(type) {
	case Var:
		return v.Name, false, nil
	case Not:
		if x, ok := v.X.(Var); ok {
			return x.Name, true, nil
		}
	}
	return "", false, fmt.Errorf("%w: %s is not a literal", ErrMalformedExpression, e)
}

// ExprToZone rebuilds a zone from a conjunction over the bodies of
// original.
func ExprToZone(original *geometry.Zone, e Expr) (*geometry.Zone, error) {
	u, err := NewUniverse(original)
	if err != nil {
		return nil, err
	}
	return u.Zone(e)
}

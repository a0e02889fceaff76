package algebra

import (
	"testing"

	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(name string) *geometry.Body {
	return geometry.NewBody(name, geometry.Sphere{Radius: 1})
}

func TestZoneToExpr(t *testing.T) {
	A, B, C, D := body("A"), body("B"), body("C"), body("D")
	inner := geometry.NewZone().AddIntersection(C).AddSubtraction(D)
	z := geometry.NewZone().AddIntersection(A, inner).AddSubtraction(B)

	assert.Equal(t, "A & (C & ~D) & ~B", ZoneToExpr(z).String())
	assert.Equal(t, Const(false), ZoneToExpr(geometry.NewZone()))
}

func TestZoneToExprSubtractedZone(t *testing.T) {
	A, B, C := body("A"), body("B"), body("C")
	z := geometry.NewZone().AddIntersection(A).
		AddSubtraction(geometry.NewZone().AddIntersection(B).AddSubtraction(C))
	assert.Equal(t, "A & ~(B & ~C)", ZoneToExpr(z).String())
}

func TestRegionToExpr(t *testing.T) {
	A, B := body("A"), body("B")
	r := geometry.NewRegion("R",
		geometry.NewZone().AddIntersection(A, B),
		geometry.NewZone().AddIntersection(A).AddSubtraction(B),
	)
	assert.Equal(t, "(A & B) | (A & ~B)", RegionToExpr(r).String())
	assert.Equal(t, "false", RegionToExpr(geometry.NewRegion("EMPTY")).String())
}

func TestUniverseZone(t *testing.T) {
	A, B, C := body("A"), body("B"), body("C")
	original := geometry.NewZone().AddIntersection(A).AddSubtraction(geometry.NewZone().AddIntersection(B, C))

	z, err := ExprToZone(original, And{Terms: []Expr{Var{"C"}, Not{X: Var{"B"}}, Var{"A"}}})
	require.NoError(t, err)
	assert.Equal(t, []geometry.Operand{C, A}, z.Intersections)
	assert.Equal(t, []geometry.Operand{B}, z.Subtractions)

	single, err := ExprToZone(original, Var{"B"})
	require.NoError(t, err)
	assert.Equal(t, []geometry.Operand{B}, single.Intersections)
}

func TestUniverseZoneErrors(t *testing.T) {
	A, B := body("A"), body("B")
	u, err := NewUniverse(geometry.NewZone().AddIntersection(A).AddSubtraction(B))
	require.NoError(t, err)

	tests := []struct {
		name string
		e    Expr
		want error
	}{
		{"unknown symbol", And{Terms: []Expr{Var{"A"}, Var{"Z"}}}, ErrUnknownSymbol},
		{"disjunction", Or{Terms: []Expr{Var{"A"}, Var{"B"}}}, ErrMalformedExpression},
		{"nested disjunction", And{Terms: []Expr{Var{"A"}, Or{Terms: []Expr{Var{"B"}}}}}, ErrMalformedExpression},
		{"negated conjunction", And{Terms: []Expr{Var{"A"}, Not{X: And{Terms: []Expr{Var{"B"}}}}}}, ErrMalformedExpression},
		{"constant", Const(true), ErrMalformedExpression},
		{"only negative", And{Terms: []Expr{Not{X: Var{"A"}}}}, ErrMalformedExpression},
		{"empty conjunction", And{}, ErrMalformedExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.Zone(tt.e)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewUniverseAmbiguous(t *testing.T) {
	z1 := geometry.NewZone().AddIntersection(body("A"))
	z2 := geometry.NewZone().AddIntersection(body("A"))
	_, err := NewUniverse(z1, z2)
	assert.ErrorContains(t, err, "two different bodies")
}

func TestZoneExprRoundTrip(t *testing.T) {
	A, B, C := body("A"), body("B"), body("C")
	z := geometry.NewZone().AddIntersection(A, B).AddSubtraction(C)
	u, err := NewUniverse(z)
	require.NoError(t, err)

	rebuilt, err := u.Zone(ZoneToExpr(z))
	require.NoError(t, err)
	assert.Equal(t, z, rebuilt)
}

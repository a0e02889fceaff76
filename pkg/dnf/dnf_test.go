package dnf

import (
	"errors"
	"testing"

	"github.com/chazu/csgnorm/pkg/algebra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	A = algebra.Var{Name: "A"}
	B = algebra.Var{Name: "B"}
	C = algebra.Var{Name: "C"}
	D = algebra.Var{Name: "D"}
)

func and(xs ...algebra.Expr) algebra.Expr { return algebra.And{Terms: xs} }
func or(xs ...algebra.Expr) algebra.Expr  { return algebra.Or{Terms: xs} }
func not(x algebra.Expr) algebra.Expr     { return algebra.Not{X: x} }

func TestNNF(t *testing.T) {
	tests := []struct {
		in   algebra.Expr
		want string
	}{
		{not(not(A)), "A"},
		{not(and(A, B)), "~A | ~B"},
		{not(or(A, not(B))), "~A & B"},
		{and(A, not(and(B, not(C)))), "A & (~B | C)"},
		{not(algebra.Const(true)), "false"},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			got := NNF(tt.in)
			assert.Equal(t, tt.want, got.String())
			ok, err := algebra.Equivalent(tt.in, got)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func termStrings(ts []Term) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Expr().String()
	}
	return out
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		in   algebra.Expr
		want []string
	}{
		{"atom", A, []string{"A"}},
		{"flat and", and(A, not(B)), []string{"A & ~B"}},
		{"distribute", and(A, or(B, C)), []string{"A & B", "A & C"}},
		{"subtracted zone", and(A, not(and(B, not(C)))), []string{"A & ~B", "A & C"}},
		{"contradiction", and(A, not(A)), nil},
		{"partial contradiction", and(A, or(not(A), B)), []string{"A & B"}},
		{"duplicate literal", and(A, B, A), []string{"A & B"}},
		{"false", algebra.Const(false), nil},
		{"already normal", or(and(A, B), and(A, not(B))), []string{"A & B", "A & ~B"}},
		{"duplicate disjuncts kept", or(and(A, B), and(B, A)), []string{"A & B", "B & A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.in, 0)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, termStrings(got))
		})
	}
}

func TestExpandEquivalence(t *testing.T) {
	exprs := []algebra.Expr{
		and(A, not(and(B, not(and(C, not(D)))))),
		or(and(A, not(B)), and(not(A), C), and(B, not(or(C, D)))),
		and(or(A, B), or(C, D), not(and(A, D))),
		and(A, not(A), B),
	}
	for _, e := range exprs {
		t.Run(e.String(), func(t *testing.T) {
			terms, err := Expand(e, 0)
			require.NoError(t, err)
			parts := make([]algebra.Expr, len(terms))
			for i, tm := range terms {
				parts[i] = tm.Expr()
			}
			ok, err := algebra.Equivalent(e, algebra.Or{Terms: parts})
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestExpandTooManyTerms(t *testing.T) {
	// (A1|B1) & (A2|B2) & ... doubles with every factor.
	var factors []algebra.Expr
	for i := 0; i < 8; i++ {
		factors = append(factors, or(
			algebra.Var{Name: string(rune('a' + i))},
			algebra.Var{Name: string(rune('A' + i))},
		))
	}
	_, err := Expand(and(factors...), 100)
	assert.True(t, errors.Is(err, ErrTooManyTerms), "err = %v", err)

	terms, err := Expand(and(factors...), 256)
	require.NoError(t, err)
	assert.Len(t, terms, 256)
}

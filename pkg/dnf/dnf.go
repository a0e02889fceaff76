// Package dnf rewrites regions into disjunctive normal form: a list of
// flat zones, each a pure intersection of bodies minus bodies, whose union
// is logically equivalent to the input.
package dnf

import (
	"errors"
	"fmt"

	"github.com/chazu/csgnorm/pkg/algebra"
)

// DefaultMaxTerms bounds the number of conjunctions a single expansion may
// produce.
const DefaultMaxTerms = 4096

// ErrTooManyTerms is returned when distribution would exceed the term limit.
var ErrTooManyTerms = errors.New("dnf: too many terms")

// Literal is an atom or its negation.
type Literal struct {
	Name    string
	Negated bool
}

func (l Literal) Expr() algebra.Expr {
	if l.Negated {
		return algebra.Not{X: algebra.Var{Name: l.Name}}
	}
	return algebra.Var{Name: l.Name}
}

// Term is a conjunction of literals. Terms built by Expand never hold the
// same literal twice and never hold a literal and its negation.
type Term []Literal

// Expr returns the term as an algebra.And.
func (t Term) Expr() algebra.Expr {
	terms := make([]algebra.Expr, len(t))
	for i, l := range t {
		terms[i] = l.Expr()
	}
	return algebra.And{Terms: terms}
}

// NNF pushes negations down to the atoms and folds constants under them.
func NNF(e algebra.Expr) algebra.Expr {
	return nnf(e, false)
}

func nnf(e algebra.Expr, negate bool) algebra.Expr {
	switch v := e.(type) {
	case algebra.Var:
		if negate {
			return algebra.Not{X: v}
		}
		return v
	case algebra.Not:
		return nnf(v.X, !negate)
	case algebra.Const:
		return algebra.Const(bool(v) != negate)
	case algebra.And:
		terms := make([]algebra.Expr, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = nnf(t, negate)
		}
		if negate {
			return algebra.Or{Terms: terms}
		}
		return algebra.And{Terms: terms}
	case algebra.Or:
		terms := make([]algebra.Expr, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = nnf(t, negate)
		}
		if negate {
			return algebra.And{Terms: terms}
		}
		return algebra.Or{Terms: terms}
	}
	panic(fmt.Sprintf("dnf: unknown expression type %T", e))
}

// Expand distributes e into a list of terms. Each term is simplified as it
// is built: repeated literals collapse to their first occurrence and a term
// holding a literal and its negation is dropped. An empty result means e is
// unsatisfiable. maxTerms bounds every intermediate list; non-positive
// selects DefaultMaxTerms.
func Expand(e algebra.Expr, maxTerms int) ([]Term, error) {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}
	return expand(NNF(e), maxTerms)
}

func expand(e algebra.Expr, limit int) ([]Term, error) {
	switch v := e.(type) {
	case algebra.Var:
		return []Term{{{Name: v.Name}}}, nil
	case algebra.Not:
		x, ok := v.X.(algebra.Var)
		if !ok {
			return nil, fmt.Errorf("dnf: negation of %s survived NNF", v.X)
		}
		return []Term{{{Name: x.Name, Negated: true}}}, nil
	case algebra.Const:
		if v {
			return []Term{{}}, nil
		}
		return nil, nil
	case algebra.Or:
		var out []Term
		for _, t := range v.Terms {
			sub, err := expand(t, limit)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			if len(out) > limit {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyTerms, limit)
			}
		}
		return out, nil
	case algebra.And:
		out := []Term{{}}
		for _, t := range v.Terms {
			sub, err := expand(t, limit)
			if err != nil {
				return nil, err
			}
			if out, err = product(out, sub, limit); err != nil {
				return nil, err
			}
			if len(out) == 0 {
				return nil, nil
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("dnf: unknown expression type %T", e)
}

// product conjoins every term of xs with every term of ys, dropping the
// contradictory results.
func product(xs, ys []Term, limit int) ([]Term, error) {
	var out []Term
	for _, x := range xs {
		for _, y := range ys {
			t, ok := merge(x, y)
			if !ok {
				continue
			}
			out = append(out, t)
			if len(out) > limit {
				return nil, fmt.Errorf("%w: more than %d", ErrTooManyTerms, limit)
			}
		}
	}
	return out, nil
}

// merge appends y's literals to x, skipping duplicates. It reports false if
// the result would hold a literal and its negation.
func merge(x, y Term) (Term, bool) {
	out := make(Term, len(x), len(x)+len(y))
	copy(out, x)
	for _, l := range y {
		dup := false
		for _, m := range out {
			if m.Name != l.Name {
				continue
			}
			if m.Negated != l.Negated {
				return nil, false
			}
			dup = true
			break
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out, true
}

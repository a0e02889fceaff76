// Package algebra maps zones onto boolean expressions over body names and
// builds zones back from pure conjunctions. Atoms are opaque names; the
// only operators are negation, conjunction and disjunction.
package algebra

import (
	"fmt"
	"sort"
	"strings"
)

// Expr is a boolean expression. The set of node types is closed.
type Expr interface {
	String() string
	expr() // marker method restricting implementations to this package
}

// Var is an atom naming a body.
type Var struct {
	Name string
}

// Not negates X.
type Not struct {
	X Expr
}

// And is the conjunction of Terms. An empty And is true.
type And struct {
	Terms []Expr
}

// Or is the disjunction of Terms. An empty Or is false.
type Or struct {
	Terms []Expr
}

// Const is a boolean constant.
type Const bool

func (Var) expr()   {}
func (Not) expr()   {}
func (And) expr()   {}
func (Or) expr()    {}
func (Const) expr() {}

func (v Var) String() string { return v.Name }

func (n Not) String() string {
	if _, ok := n.X.(Var); ok {
		return "~" + n.X.String()
	}
	return "~(" + n.X.String() + ")"
}

func (a And) String() string { return join(a.Terms, " & ", "true") }

func (o Or) String() string { return join(o.Terms, " | ", "false") }

func (c Const) String() string {
	if c {
		return "true"
	}
	return "false"
}

func join(terms []Expr, sep, empty string) string {
	if len(terms) == 0 {
		return empty
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		switch t.(type) {
		case And, Or:
			parts[i] = "(" + t.String() + ")"
		default:
			parts[i] = t.String()
		}
	}
	return strings.Join(parts, sep)
}

// Eval evaluates e under assignment. Names missing from assignment are
// false.
func Eval(e Expr, assignment map[string]bool) bool {
	switch v := e.(type) {
	case Var:
		return assignment[v.Name]
	case Not:
		return !Eval(v.X, assignment)
	case And:
		for _, t := range v.Terms {
			if !Eval(t, assignment) {
				return false
			}
		}
		return true
	case Or:
		for _, t := range v.Terms {
			if Eval(t, assignment) {
				return true
			}
		}
		return false
	case Const:
		return bool(v)
	}
	panic(fmt.Sprintf("algebra: unknown expression type %T", e))
}

// Symbols returns the atom names in e, each once, in order of first
// appearance.
func Symbols(e Expr) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case Var:
			if !seen[v.Name] {
				seen[v.Name] = true
				out = append(out, v.Name)
			}
		case Not:
			walk(v.X)
		case And:
			for _, t := range v.Terms {
				walk(t)
			}
		case Or:
			for _, t := range v.Terms {
				walk(t)
			}
		}
	}
	walk(e)
	return out
}

// MaxTruthTableSymbols bounds Equivalent.
const MaxTruthTableSymbols = 20

// Equivalent reports whether a and b agree under every assignment of their
// combined symbols.
func Equivalent(a, b Expr) (bool, error) {
	names := append(Symbols(a), Symbols(b)...)
	sort.Strings(names)
	names = dedupSorted(names)
	if len(names) > MaxTruthTableSymbols {
		return false, fmt.Errorf("algebra: %d symbols exceed truth table limit %d", len(names), MaxTruthTableSymbols)
	}
	assignment := make(map[string]bool, len(names))
	for bits := 0; bits < 1<<len(names); bits++ {
		for i, n := range names {
			assignment[n] = bits&(1<<i) != 0
		}
		if Eval(a, assignment) != Eval(b, assignment) {
			return false, nil
		}
	}
	return true, nil
}

func dedupSorted(s []string) []string {
	out := s[:0]
	for i, v := range s {
		if i == 0 || v != s[i-1] {
			out = append(out, v)
		}
	}
	return out
}

package fluka

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/csgnorm/pkg/geometry"
)

// ParseError reports malformed input with its line when known.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("fluka: line %d: %s", e.Line, e.Message)
	}
	return "fluka: " + e.Message
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

type tokenKind int

const (
	tokName tokenKind = iota
	tokPlus
	tokMinus
	tokLParen
	tokRParen
	tokBar
)

type token struct {
	kind tokenKind
	text string
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

func lex(text string) ([]token, error) {
	var toks []token
	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '+':
			toks = append(toks, token{tokPlus, "+"})
			i++
		case r == '-':
			toks = append(toks, token{tokMinus, "-"})
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == '|':
			toks = append(toks, token{tokBar, "|"})
			i++
		case isNameRune(r):
			j := i
			for j < len(runes) && isNameRune(runes[j]) {
				j++
			}
			toks = append(toks, token{tokName, string(runes[i:j])})
			i = j
		default:
			return nil, parseErrorf("unexpected character %q", r)
		}
	}
	return toks, nil
}

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// zoneParser is a recursive descent parser over:
//
//	zone    = operand { operand }
//	operand = ( "+" | "-" ) ( NAME | "(" zone ")" )
type zoneParser struct {
	toks []token
	pos  int
	reg  *geometry.Registry
}

func (p *zoneParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *zoneParser) zone(depth int) (*geometry.Zone, error) {
	if err := geometry.CheckDepth(depth, 0); err != nil {
		return nil, err
	}
	z := geometry.NewZone()
	for {
		t, ok := p.peek()
		if !ok || (t.kind != tokPlus && t.kind != tokMinus) {
			break
		}
		p.pos++
		op, err := p.operand(depth)
		if err != nil {
			return nil, err
		}
		if t.kind == tokPlus {
			z.AddIntersection(op)
		} else {
			z.AddSubtraction(op)
		}
	}
	if len(z.Intersections)+len(z.Subtractions) == 0 {
		if t, ok := p.peek(); ok {
			return nil, parseErrorf("expected + or - before %q", t.text)
		}
		return nil, parseErrorf("empty zone")
	}
	return z, nil
}

func (p *zoneParser) operand(depth int) (geometry.Operand, error) {
	t, ok := p.peek()
	if !ok {
		return nil, parseErrorf("operator at end of zone")
	}
	p.pos++
	switch t.kind {
	case tokName:
		b := p.reg.Body(t.text)
		if b == nil {
			return nil, parseErrorf("undefined body %q", t.text)
		}
		return b, nil
	case tokLParen:
		z, err := p.zone(depth + 1)
		if err != nil {
			return nil, err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return nil, parseErrorf("missing )")
		}
		p.pos++
		return z, nil
	}
	return nil, parseErrorf("expected body name or ( after sign, got %q", t.text)
}

// ParseZone parses one zone, resolving body names against reg.
func ParseZone(text string, reg *geometry.Registry) (*geometry.Zone, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &zoneParser{toks: toks, reg: reg}
	z, err := p.zone(1)
	if err != nil {
		return nil, err
	}
	if t, ok := p.peek(); ok {
		return nil, parseErrorf("unexpected %q after zone", t.text)
	}
	return z, nil
}

// ParseRegion parses a region card "NAME NEIGH zone | zone ...".
func ParseRegion(card string, reg *geometry.Registry) (*geometry.Region, error) {
	fields := strings.Fields(card)
	if len(fields) < 3 {
		return nil, parseErrorf("region card needs a name, a neighbourhood number and a zone: %q", card)
	}
	name := fields[0]
	if _, err := strconv.Atoi(fields[1]); err != nil {
		return nil, parseErrorf("region %s: neighbourhood %q is not an integer", name, fields[1])
	}

	// Re-lex the remainder so operators glued to names ("+A-B") split.
	rest := strings.TrimSpace(card)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, name))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, fields[1]))

	toks, err := lex(rest)
	if err != nil {
		return nil, inRegion(name, err)
	}
	p := &zoneParser{toks: toks, reg: reg}
	r := geometry.NewRegion(name)
	for {
		z, err := p.zone(1)
		if err != nil {
			return nil, inRegion(name, err)
		}
		r.AddZone(z)
		t, ok := p.peek()
		if !ok {
			break
		}
		if t.kind != tokBar {
			return nil, inRegion(name, parseErrorf("unexpected %q", t.text))
		}
		p.pos++
	}
	return r, nil
}

// inRegion prefixes err with the region name.
func inRegion(name string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		pe.Message = "region " + name + ": " + pe.Message
		return pe
	}
	return fmt.Errorf("fluka: region %s: %w", name, err)
}

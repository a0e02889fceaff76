package fluka

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/chazu/csgnorm/pkg/geometry"
)

type section int

const (
	beforeGeometry section = iota
	titleLine
	bodies
	regions
	afterGeometry
)

// pendingCard accumulates a card that may continue on following lines.
type pendingCard struct {
	line int
	text string
}

// Read parses a GEOBEGIN ... END ... END GEOEND block. Lines before
// GEOBEGIN and after GEOEND are ignored, as are comment lines starting
// with * or !. A body card may continue over several lines until it has
// all its parameters. A region card continues on lines that start with
// whitespace or an operator.
func Read(r io.Reader) (*geometry.Registry, error) {
	reg := geometry.NewRegistry()
	sc := bufio.NewScanner(r)
	state := beforeGeometry
	var body, region *pendingCard

	flushBody := func() error {
		if body == nil {
			return nil
		}
		err := addBody(reg, body.text)
		if err != nil {
			return atLine(body.line, err)
		}
		body = nil
		return nil
	}
	flushRegion := func() error {
		if region == nil {
			return nil
		}
		rg, err := ParseRegion(region.text, reg)
		if err == nil {
			err = reg.AddRegion(rg)
		}
		if err != nil {
			return atLine(region.line, err)
		}
		region = nil
		return nil
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if state != beforeGeometry && state != afterGeometry && isComment(line) {
			continue
		}

		switch state {
		case beforeGeometry:
			if strings.HasPrefix(line, "GEOBEGIN") {
				state = titleLine
			}

		case titleLine:
			state = bodies

		case bodies:
			if line == "" {
				continue
			}
			if line == "END" {
				if body != nil {
					return nil, atLine(body.line, errors.New("incomplete body card"))
				}
				state = regions
				continue
			}
			if strings.HasPrefix(line, "$") {
				return nil, atLine(lineNo, fmt.Errorf("directive %q is not supported", strings.Fields(line)[0]))
			}
			if body == nil {
				body = &pendingCard{line: lineNo, text: line}
			} else {
				body.text += " " + line
			}
			complete, err := cardComplete(body.text)
			if err != nil {
				return nil, atLine(body.line, err)
			}
			if complete {
				if err := flushBody(); err != nil {
					return nil, err
				}
			}

		case regions:
			if line == "" {
				continue
			}
			if line == "END" {
				if err := flushRegion(); err != nil {
					return nil, err
				}
				state = afterGeometry
				continue
			}
			if region != nil && isContinuation(raw) {
				region.text += " " + line
				continue
			}
			if err := flushRegion(); err != nil {
				return nil, err
			}
			region = &pendingCard{line: lineNo, text: line}

		case afterGeometry:
			if strings.HasPrefix(line, "GEOEND") {
				return reg, sc.Err()
			}
			if line != "" {
				return nil, atLine(lineNo, fmt.Errorf("expected GEOEND, got %q", line))
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("fluka: read: %w", err)
	}
	if state == beforeGeometry {
		return nil, &ParseError{Message: "no GEOBEGIN card"}
	}
	return nil, &ParseError{Line: lineNo, Message: "unexpected end of input before GEOEND"}
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "*") || strings.HasPrefix(line, "!")
}

func isContinuation(raw string) bool {
	if raw == "" {
		return false
	}
	r := rune(raw[0])
	return unicode.IsSpace(r) || r == '+' || r == '-' || r == '|' || r == '('
}

// cardComplete reports whether a body card has all its parameters.
func cardComplete(text string) (bool, error) {
	fields := strings.Fields(text)
	kind := geometry.Kind(fields[0])
	n, ok := geometry.ParamCount(kind)
	if !ok {
		return false, fmt.Errorf("unknown body kind %q", fields[0])
	}
	switch have := len(fields) - 2; {
	case have < n:
		return false, nil
	case have > n:
		return false, fmt.Errorf("%s takes %d parameters, got %d", kind, n, have)
	}
	return true, nil
}

func addBody(reg *geometry.Registry, text string) error {
	fields := strings.Fields(text)
	params := make([]float64, 0, len(fields)-2)
	for _, f := range fields[2:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return fmt.Errorf("body %s: parameter %q is not a number", fields[1], f)
		}
		params = append(params, v)
	}
	s, err := geometry.NewShape(geometry.Kind(fields[0]), params)
	if err != nil {
		return err
	}
	return reg.AddBody(geometry.NewBody(fields[1], s))
}

// atLine attaches a line number to err.
func atLine(line int, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Line == 0 {
			pe.Line = line
		}
		return pe
	}
	return &ParseError{Line: line, Message: err.Error()}
}

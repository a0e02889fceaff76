package algebra

import "errors"

var (
	// ErrMalformedExpression is returned when an expression cannot be
	// expressed as a single zone.
	ErrMalformedExpression = errors.New("algebra: malformed expression")

	// ErrUnknownSymbol is returned when an expression names a body outside
	// the universe it is rebuilt against.
	ErrUnknownSymbol = errors.New("algebra: unknown symbol")
)

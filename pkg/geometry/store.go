package geometry

import (
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultPrecision is the quantum parameters are rounded to when computing
// body signatures.
const DefaultPrecision = 1e-9

const storeStripes = 32

// BodyStore maps geometric signatures to canonical bodies. The first body
// seen with a signature becomes canonical; later bodies with the same
// signature resolve to it. A store is safe for concurrent use: lookup and
// insert for one signature happen under a single stripe lock.
type BodyStore struct {
	precision float64
	stripes   [storeStripes]storeStripe
}

type storeStripe struct {
	mu     sync.Mutex
	bodies map[string]*Body
}

// NewBodyStore creates a store. A non-positive precision selects
// DefaultPrecision.
func NewBodyStore(precision float64) *BodyStore {
	if precision <= 0 {
		precision = DefaultPrecision
	}
	s := &BodyStore{precision: precision}
	for i := range s.stripes {
		s.stripes[i].bodies = make(map[string]*Body)
	}
	return s
}

// Signature returns the body's kind and its parameters expressed as whole
// multiples of the store precision. The name does not take part.
func (s *BodyStore) Signature(b *Body) string {
	var sb strings.Builder
	sb.WriteString(string(b.Shape.Kind()))
	for _, p := range b.Shape.Params() {
		q := math.Round(p / s.precision)
		if q == 0 {
			q = 0 // fold -0
		}
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(q, 'f', 0, 64))
	}
	return sb.String()
}

// GetDegenerateBody returns the canonical body for b's signature,
// registering b as canonical if the signature is new.
func (s *BodyStore) GetDegenerateBody(b *Body) *Body {
	sig := s.Signature(b)
	st := &s.stripes[xxhash.Sum64String(sig)%storeStripes]

	st.mu.Lock()
	defer st.mu.Unlock()
	if c, ok := st.bodies[sig]; ok {
		return c
	}
	st.bodies[sig] = b
	return b
}

// Len returns the number of canonical bodies.
func (s *BodyStore) Len() int {
	n := 0
	for i := range s.stripes {
		st := &s.stripes[i]
		st.mu.Lock()
		n += len(st.bodies)
		st.mu.Unlock()
	}
	return n
}

package geometry

import (
	"errors"
	"fmt"
)

// DefaultMaxDepth bounds zone nesting when no limit is configured.
const DefaultMaxDepth = 64

var (
	// ErrEmptyRegion is returned where a region must contain at least one
	// zone. The normalization passes never return it themselves.
	ErrEmptyRegion = errors.New("geometry: region has no zones")

	// ErrNestingTooDeep is wrapped by DepthError.
	ErrNestingTooDeep = errors.New("geometry: zone nesting too deep")
)

// DepthError reports a zone nested beyond the configured limit. Depth is
// the first level found past the limit, not necessarily the deepest.
type DepthError struct {
	Depth int
	Limit int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("geometry: zone nesting depth %d exceeds limit %d", e.Depth, e.Limit)
}

func (e *DepthError) Unwrap() error { return ErrNestingTooDeep }

// CheckDepth returns a *DepthError when depth exceeds limit. A non-positive
// limit selects DefaultMaxDepth.
func CheckDepth(depth, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if depth > limit {
		return &DepthError{Depth: depth, Limit: limit}
	}
	return nil
}

// CheckZoneDepth is CheckDepth for a whole zone tree. It never descends
// more than one level past limit.
func CheckZoneDepth(z *Zone, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxDepth
	}
	if z.depthWithin(1, limit) {
		return nil
	}
	return &DepthError{Depth: limit + 1, Limit: limit}
}

// RequireZones returns ErrEmptyRegion, annotated with the region name, if r
// has no zones.
func RequireZones(r *Region) error {
	if r == nil || len(r.Zones) == 0 {
		name := ""
		if r != nil {
			name = r.Name
		}
		return fmt.Errorf("region %q: %w", name, ErrEmptyRegion)
	}
	return nil
}

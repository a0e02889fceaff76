package dnf

import (
	"fmt"
	"log/slog"

	"github.com/chazu/csgnorm/pkg/algebra"
	"github.com/chazu/csgnorm/pkg/geometry"
)

// Normalizer converts regions into lists of flat zones.
type Normalizer struct {
	// MaxTerms bounds the expansion; zero selects DefaultMaxTerms.
	MaxTerms int
	// MaxDepth bounds zone nesting; zero selects geometry.DefaultMaxDepth.
	MaxDepth int
	// Logger receives debug output; nil discards it.
	Logger *slog.Logger
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return n.Logger
}

// NormalizeRegion returns flat zones whose union is equivalent to r. An
// empty result is not an error: it means every term was contradictory, and
// the caller decides whether an empty region is acceptable. Equivalent
// terms are not merged across zones.
func (n *Normalizer) NormalizeRegion(r *geometry.Region) ([]*geometry.Zone, error) {
	for _, z := range r.Zones {
		if err := geometry.CheckZoneDepth(z, n.MaxDepth); err != nil {
			return nil, fmt.Errorf("dnf: region %q: %w", r.Name, err)
		}
	}

	u, err := algebra.NewUniverse(r.Zones...)
	if err != nil {
		return nil, fmt.Errorf("dnf: region %q: %w", r.Name, err)
	}

	terms, err := Expand(algebra.RegionToExpr(r), n.MaxTerms)
	if err != nil {
		return nil, fmt.Errorf("dnf: region %q: %w", r.Name, err)
	}

	zones := make([]*geometry.Zone, 0, len(terms))
	for _, t := range terms {
		z, err := u.Zone(t.Expr())
		if err != nil {
			return nil, fmt.Errorf("dnf: region %q: term %s: %w", r.Name, t.Expr(), err)
		}
		zones = append(zones, z)
	}

	n.logger().Debug("normalized region",
		"region", r.Name,
		"zones_in", len(r.Zones),
		"zones_out", len(zones),
	)
	return zones, nil
}

// NormalizeZone normalizes a single zone as a one-zone region.
func (n *Normalizer) NormalizeZone(z *geometry.Zone) ([]*geometry.Zone, error) {
	return n.NormalizeRegion(geometry.NewRegion("", z))
}

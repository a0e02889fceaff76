// Package convert runs the normalization passes over every region of a
// registry.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/csgnorm/pkg/config"
	"github.com/chazu/csgnorm/pkg/dnf"
	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
	"github.com/chazu/csgnorm/pkg/prune"
	"github.com/chazu/csgnorm/pkg/squash"
)

// Stats summarizes one conversion.
type Stats struct {
	Regions        int // regions in the output
	ZonesIn        int
	ZonesOut       int
	TermsPruned    int
	BodiesSquashed int // body operands replaced by an identical earlier body
	EmptyRegions   int
}

// Converter applies the configured passes, in order, to each region.
type Converter struct {
	Config config.Config
	// Mesher derives body boxes for the prune pass; nil uses exact extents.
	Mesher geometry.Mesher
	// Logger receives per-region output; nil discards it.
	Logger *slog.Logger
}

// New returns a converter for cfg.
func New(cfg config.Config, m geometry.Mesher, logger *slog.Logger) *Converter {
	return &Converter{Config: cfg, Mesher: m, Logger: logger}
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// regionResult is the output of one region's passes.
type regionResult struct {
	region *geometry.Region
	stats  Stats
}

// Convert runs the passes over every region of reg concurrently and
// returns a new registry holding the converted regions, in input order,
// and only the bodies they still reference. reg is not modified.
func (c *Converter) Convert(ctx context.Context, reg *geometry.Registry) (*geometry.Registry, Stats, error) {
	if err := c.Config.Validate(); err != nil {
		return nil, Stats{}, err
	}

	regions := reg.Regions()
	store := geometry.NewBodyStore(c.Config.Squash.Precision)
	if c.has(config.PassSquash) {
		seedStore(store, reg)
	}

	results := make([]regionResult, len(regions))
	g, ctx := errgroup.WithContext(ctx)
	if c.Config.Workers > 0 {
		g.SetLimit(c.Config.Workers)
	}
	for i, r := range regions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.convertRegion(r, store)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	out := geometry.NewRegistry()
	var total Stats
	for _, res := range results {
		total.ZonesIn += res.stats.ZonesIn
		total.ZonesOut += res.stats.ZonesOut
		total.TermsPruned += res.stats.TermsPruned
		total.BodiesSquashed += res.stats.BodiesSquashed
		total.EmptyRegions += res.stats.EmptyRegions
		if res.region == nil {
			continue
		}
		if err := out.AddRegion(res.region); err != nil {
			return nil, Stats{}, fmt.Errorf("convert: %w", err)
		}
	}
	if err := addReferencedBodies(out, reg); err != nil {
		return nil, Stats{}, err
	}
	total.Regions = out.RegionCount()
	return out, total, nil
}

// seedStore registers every body in registry order, then bodies reachable
// only through zones, so canonical choices do not depend on scheduling.
func seedStore(store *geometry.BodyStore, reg *geometry.Registry) {
	for _, b := range reg.Bodies() {
		store.GetDegenerateBody(b)
	}
	for _, r := range reg.Regions() {
		for _, b := range r.Bodies() {
			store.GetDegenerateBody(b)
		}
	}
}

// addReferencedBodies copies the bodies out's regions use, in the order of
// the input registry, followed by any that were never registered there.
func addReferencedBodies(out, in *geometry.Registry) error {
	used := make(map[*geometry.Body]bool)
	for _, r := range out.Regions() {
		for _, b := range r.Bodies() {
			used[b] = true
		}
	}
	for _, b := range in.Bodies() {
		if used[b] {
			if err := out.AddBody(b); err != nil {
				return fmt.Errorf("convert: %w", err)
			}
		}
	}
	for _, r := range out.Regions() {
		for _, z := range r.Zones {
			if err := out.AddZoneBodies(z); err != nil {
				return fmt.Errorf("convert: region %q: %w", r.Name, err)
			}
		}
	}
	return nil
}

func (c *Converter) has(pass string) bool {
	for _, p := range c.Config.Passes {
		if p == pass {
			return true
		}
	}
	return false
}

// convertRegion runs every pass over r. A nil region in the result means
// r ended up empty and was dropped.
func (c *Converter) convertRegion(r *geometry.Region, store *geometry.BodyStore) (regionResult, error) {
	start := time.Now()
	cfg := c.Config
	log := c.logger().With("region", r.Name)

	res := regionResult{stats: Stats{ZonesIn: len(r.Zones)}}
	cur := r
	for _, pass := range cfg.Passes {
		switch pass {
		case config.PassSquash:
			sq := &squash.Squasher{Store: store, MaxDepth: cfg.Limits.MaxDepth, Logger: log}
			next, err := sq.Region(cur)
			if err != nil {
				return res, fmt.Errorf("convert: %w", err)
			}
			res.stats.BodiesSquashed += sq.Replaced
			cur = next

		case config.PassDNF:
			n := &dnf.Normalizer{MaxTerms: cfg.DNF.MaxTerms, MaxDepth: cfg.Limits.MaxDepth, Logger: log}
			zones, err := n.NormalizeRegion(cur)
			if err != nil {
				return res, fmt.Errorf("convert: %w", err)
			}
			cur = geometry.NewRegion(cur.Name, zones...)

		case config.PassPrune:
			before := operandCount(cur)
			p := &prune.Pruner{
				Mesher:    c.Mesher,
				World:     cfg.World(),
				Tolerance: cfg.Prune.Tolerance,
				MaxDepth:  cfg.Limits.MaxDepth,
				Logger:    log,
			}
			next, err := p.PruneRegion(cur, kernel.NullAABB())
			if err != nil {
				return res, fmt.Errorf("convert: %w", err)
			}
			res.stats.TermsPruned += before - operandCount(next)
			cur = next
		}
	}

	res.stats.ZonesOut = len(cur.Zones)
	elapsed := time.Since(start)
	regionDuration.Observe(elapsed.Seconds())
	zonesIn.Add(float64(res.stats.ZonesIn))
	zonesOut.Add(float64(res.stats.ZonesOut))
	termsPruned.Add(float64(res.stats.TermsPruned))
	bodiesSquashed.Add(float64(res.stats.BodiesSquashed))

	if len(cur.Zones) == 0 {
		regionsEmpty.Inc()
		res.stats.EmptyRegions = 1
		if !cfg.AllowEmptyRegions {
			return res, fmt.Errorf("convert: %w", geometry.RequireZones(cur))
		}
		log.Warn("dropped empty region", "zones_in", res.stats.ZonesIn)
		return res, nil
	}

	log.Info("converted region",
		"zones_in", res.stats.ZonesIn,
		"zones_out", res.stats.ZonesOut,
		"terms_pruned", res.stats.TermsPruned,
		"bodies_squashed", res.stats.BodiesSquashed,
		"duration", elapsed)
	res.region = cur
	return res, nil
}

func operandCount(r *geometry.Region) int {
	n := 0
	for _, z := range r.Zones {
		n += z.OperandCount()
	}
	return n
}

// Package config loads the YAML settings that drive a conversion run.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
)

// Pass names accepted in Config.Passes.
const (
	PassSquash = "squash"
	PassDNF    = "dnf"
	PassPrune  = "prune"
)

// Kernel backends accepted in KernelConfig.Backend.
const (
	BackendSdfx     = "sdfx"
	BackendManifold = "manifold"
	BackendExtent   = "extent"
)

// Config is the full run configuration.
type Config struct {
	Passes            []string     `yaml:"passes"`
	Prune             PruneConfig  `yaml:"prune"`
	DNF               DNFConfig    `yaml:"dnf"`
	Squash            SquashConfig `yaml:"squash"`
	Limits            LimitsConfig `yaml:"limits"`
	Kernel            KernelConfig `yaml:"kernel"`
	Workers           int          `yaml:"workers"`             // 0 means GOMAXPROCS
	AllowEmptyRegions bool         `yaml:"allow_empty_regions"` // drop instead of failing
	Log               LogConfig    `yaml:"log"`
}

type PruneConfig struct {
	Tolerance float64    `yaml:"tolerance"`
	World     [6]float64 `yaml:"world,flow"` // xmin xmax ymin ymax zmin zmax
	// MeshBoxes takes body boxes from kernel meshes instead of exact
	// extents. Mesh boxes sit inside the true extent by up to one cell, so
	// Tolerance must cover the cell size.
	MeshBoxes bool `yaml:"mesh_boxes"`
}

type DNFConfig struct {
	MaxTerms int `yaml:"max_terms"`
}

type SquashConfig struct {
	Precision float64 `yaml:"precision"`
}

type LimitsConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

type KernelConfig struct {
	Backend   string `yaml:"backend"`
	MeshCells int    `yaml:"mesh_cells"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DefaultWorldSize is the half-width of the default world box.
const DefaultWorldSize = 1e5

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	w := DefaultWorldSize
	return Config{
		Passes: []string{PassSquash, PassDNF, PassPrune},
		Prune: PruneConfig{
			Tolerance: 1e-6,
			World:     [6]float64{-w, w, -w, w, -w, w},
		},
		DNF:    DNFConfig{MaxTerms: 4096},
		Squash: SquashConfig{Precision: geometry.DefaultPrecision},
		Limits: LimitsConfig{MaxDepth: geometry.DefaultMaxDepth},
		Kernel: KernelConfig{Backend: BackendSdfx, MeshCells: 64},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path and decodes it over DefaultConfig. An empty path returns
// the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if cfg, err = Parse(data); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data over DefaultConfig and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, p := range c.Passes {
		switch p {
		case PassSquash, PassDNF, PassPrune:
		default:
			errs = append(errs, fmt.Errorf("unknown pass %q", p))
		}
		if seen[p] {
			errs = append(errs, fmt.Errorf("pass %q listed twice", p))
		}
		seen[p] = true
	}
	if c.Prune.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("prune.tolerance must be non-negative, got %g", c.Prune.Tolerance))
	}
	if c.World().IsNull() {
		errs = append(errs, fmt.Errorf("prune.world is inverted: %v", c.Prune.World))
	}
	if c.DNF.MaxTerms <= 0 {
		errs = append(errs, fmt.Errorf("dnf.max_terms must be positive, got %d", c.DNF.MaxTerms))
	}
	if !(c.Squash.Precision > 0) {
		errs = append(errs, fmt.Errorf("squash.precision must be positive, got %g", c.Squash.Precision))
	}
	if c.Limits.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_depth must be positive, got %d", c.Limits.MaxDepth))
	}
	switch c.Kernel.Backend {
	case BackendSdfx, BackendManifold, BackendExtent:
	default:
		errs = append(errs, fmt.Errorf("unknown kernel.backend %q", c.Kernel.Backend))
	}
	if c.Kernel.MeshCells <= 0 {
		errs = append(errs, fmt.Errorf("kernel.mesh_cells must be positive, got %d", c.Kernel.MeshCells))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be non-negative, got %d", c.Workers))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// World returns the world box used to clip unbounded bodies.
func (c Config) World() kernel.AABB {
	w := c.Prune.World
	return kernel.NewAABB(w[0], w[1], w[2], w[3], w[4], w[5])
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log.level %q", s)
	}
	return l, nil
}

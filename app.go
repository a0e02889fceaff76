package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/chazu/csgnorm/pkg/config"
	"github.com/chazu/csgnorm/pkg/convert"
	"github.com/chazu/csgnorm/pkg/engine"
	"github.com/chazu/csgnorm/pkg/fluka"
	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
	"github.com/chazu/csgnorm/pkg/kernel/manifold"
	"github.com/chazu/csgnorm/pkg/kernel/sdfx"
	"github.com/chazu/csgnorm/pkg/tessellate"
)

// App runs the pipeline: read a geometry, validate it, normalize it and
// write it back as FLUKA text, optionally tessellating the result.
type App struct {
	cfg    config.Config
	engine *engine.Engine
	kernel kernel.Kernel // nil for the extent backend
	mesher geometry.Mesher
	logger *slog.Logger
}

// EvalErrorData is one problem found while reading or checking the input.
// Line is zero when the problem has no source position.
type EvalErrorData struct {
	Line    int
	Col     int
	Message string
}

// EvalResult is the full result of one run.
type EvalResult struct {
	Registry *geometry.Registry // converted geometry; nil on error
	Output   string             // FLUKA text of Registry
	Stats    convert.Stats
	Meshes   []*kernel.Mesh // one per region when tessellation was requested
	Errors   []EvalErrorData
	Warnings []EvalErrorData
}

// NewApp creates an App using the kernel backend named in cfg.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{cfg: cfg, engine: engine.NewEngine(), logger: logger}

	switch cfg.Kernel.Backend {
	case config.BackendSdfx:
		a.kernel = sdfx.New(cfg.Kernel.MeshCells)
	case config.BackendManifold:
		k, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("kernel backend %s: %w", cfg.Kernel.Backend, err)
		}
		a.kernel = k
	}
	if a.kernel != nil {
		a.mesher = tessellate.NewKernelMesher(a.kernel)
	} else {
		a.mesher = tessellate.ExtentMesher{}
	}
	return a, nil
}

// pruneMesher returns the mesher whose boxes the pruner tests, or nil for
// exact shape extents.
func (a *App) pruneMesher() geometry.Mesher {
	if a.cfg.Prune.MeshBoxes {
		return a.mesher
	}
	return nil
}

// isLisp reports whether name should be read with the Lisp engine rather
// than as FLUKA text.
func isLisp(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".lisp", ".csg", ".zy":
		return true
	}
	return false
}

// Load reads source as Lisp or FLUKA text depending on name's extension.
func (a *App) Load(name, source string) (*geometry.Registry, []EvalErrorData) {
	if isLisp(name) {
		reg, evalErrs, err := a.engine.Evaluate(source)
		if err != nil {
			// Fatal error (panic, timeout, etc.)
			a.logger.Error("evaluate failed", "input", name, "err", err)
			return nil, []EvalErrorData{{Message: err.Error()}}
		}
		if len(evalErrs) > 0 {
			out := make([]EvalErrorData, len(evalErrs))
			for i, e := range evalErrs {
				out[i] = EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
			}
			return nil, out
		}
		return reg, nil
	}

	reg, err := fluka.Read(strings.NewReader(source))
	if err != nil {
		var pe *fluka.ParseError
		if errors.As(err, &pe) {
			return nil, []EvalErrorData{{Line: pe.Line, Message: pe.Message}}
		}
		return nil, []EvalErrorData{{Message: err.Error()}}
	}
	return reg, nil
}

// Check validates reg and splits the findings by severity.
func (a *App) Check(reg *geometry.Registry) (errs, warnings []EvalErrorData) {
	for _, f := range geometry.Validate(reg, a.cfg.Limits.MaxDepth) {
		d := EvalErrorData{Message: f.Error()}
		if f.Severity == geometry.SeverityError {
			errs = append(errs, d)
		} else {
			warnings = append(warnings, d)
		}
	}
	return errs, warnings
}

// Evaluate runs the whole pipeline over one input.
func (a *App) Evaluate(ctx context.Context, name, source string, withMeshes bool) EvalResult {
	var result EvalResult

	// Step 1: Read the input into a registry.
	reg, loadErrs := a.Load(name, source)
	if len(loadErrs) > 0 {
		result.Errors = loadErrs
		return result
	}

	// Step 2: Structural checks.
	result.Errors, result.Warnings = a.Check(reg)
	for _, w := range result.Warnings {
		a.logger.Warn("validation", "input", name, "finding", w.Message)
	}
	if len(result.Errors) > 0 {
		return result
	}

	// Step 3: Run the passes.
	conv := convert.New(a.cfg, a.pruneMesher(), a.logger)
	out, stats, err := conv.Convert(ctx, reg)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	result.Registry, result.Stats = out, stats

	// Step 4: Render FLUKA text.
	var sb strings.Builder
	if err := fluka.Write(&sb, out); err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	result.Output = sb.String()

	// Step 5: Tessellate the converted regions.
	if withMeshes {
		if a.kernel == nil {
			result.Errors = append(result.Errors, EvalErrorData{
				Message: "tessellation needs a mesh kernel, backend is " + a.cfg.Kernel.Backend,
			})
			return result
		}
		meshes, err := tessellate.Tessellate(out, a.kernel, a.cfg.World())
		if err != nil {
			result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
			return result
		}
		result.Meshes = meshes
	}

	a.logger.Info("converted",
		"input", name,
		"regions", stats.Regions,
		"zones_in", stats.ZonesIn,
		"zones_out", stats.ZonesOut,
		"terms_pruned", stats.TermsPruned,
		"bodies_squashed", stats.BodiesSquashed,
	)
	return result
}

// BodyBounds is one row of the bounds report.
type BodyBounds struct {
	Body *geometry.Body
	Box  kernel.AABB
}

// Bounds returns the box the pruner would test for every body of reg.
func (a *App) Bounds(reg *geometry.Registry) ([]BodyBounds, error) {
	p := a.pruneMesher()
	out := make([]BodyBounds, 0, reg.BodyCount())
	for _, b := range reg.Bodies() {
		box, err := b.AABB(p, a.cfg.World())
		if err != nil {
			return nil, err
		}
		out = append(out, BodyBounds{Body: b, Box: box.Expand(a.cfg.Prune.Tolerance)})
	}
	return out, nil
}

package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/csgnorm/pkg/fluka"
	"github.com/chazu/csgnorm/pkg/geometry"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms geometry source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: zone-text -> zone_text
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpBody wraps a registered body so it can be used as a zone operand.
type sexpBody struct {
	body *geometry.Body
}

func (b *sexpBody) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(body %q)", b.body.Name)
}
func (b *sexpBody) Type() *zygo.RegisteredType { return nil }

// sexpZone wraps a zone built by `zone` or `zone-text`.
type sexpZone struct {
	zone *geometry.Zone
}

func (z *sexpZone) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(zone-text %q)", fluka.ZoneString(z.zone))
}
func (z *sexpZone) Type() *zygo.RegisteredType { return nil }

// sexpRegion wraps a registered region.
type sexpRegion struct {
	region *geometry.Region
}

func (r *sexpRegion) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(region %q)", r.region.Name)
}
func (r *sexpRegion) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a geometry.Vec3.
type sexpVec3 struct {
	vec geometry.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value â€” treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (geometry.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geometry.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// numberArg reads a required numeric keyword argument.
func numberArg(pa kwArgs, fn, key string) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing :%s", fn, key)
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return f, nil
}

// vecArg reads a required vec3 keyword argument.
func vecArg(pa kwArgs, fn, key string) (geometry.Vec3, error) {
	v, ok := pa.kw[key]
	if !ok {
		return geometry.Vec3{}, fmt.Errorf("%s: missing :%s", fn, key)
	}
	vec, err := toVec3(v)
	if err != nil {
		return geometry.Vec3{}, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return vec, nil
}

// nameArg reads the leading positional body or region name.
func nameArg(pa kwArgs, fn string) (string, error) {
	if len(pa.positional) < 1 {
		return "", fmt.Errorf("%s requires a name argument", fn)
	}
	name, err := toString(pa.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", fn, err)
	}
	if name == "" || strings.ContainsAny(name, " \t+-|()") {
		return "", fmt.Errorf("%s: invalid name %q", fn, name)
	}
	return name, nil
}

// ---------------------------------------------------------------------------
// Body construction
// ---------------------------------------------------------------------------

// shapeBuilder turns parsed arguments into a shape for one body builtin.
type shapeBuilder func(pa kwArgs) (geometry.Shape, error)

func sphereShape(pa kwArgs) (geometry.Shape, error) {
	c, err := vecArg(pa, "sph", "center")
	if err != nil {
		return nil, err
	}
	r, err := numberArg(pa, "sph", "radius")
	if err != nil {
		return nil, err
	}
	return geometry.Sphere{Center: c, Radius: r}, nil
}

func boxShape(pa kwArgs) (geometry.Shape, error) {
	lo, err := vecArg(pa, "rpp", "min")
	if err != nil {
		return nil, err
	}
	hi, err := vecArg(pa, "rpp", "max")
	if err != nil {
		return nil, err
	}
	return geometry.Box{Min: lo, Max: hi}, nil
}

func cylinderShape(pa kwArgs) (geometry.Shape, error) {
	base, err := vecArg(pa, "rcc", "base")
	if err != nil {
		return nil, err
	}
	h, err := vecArg(pa, "rcc", "height")
	if err != nil {
		return nil, err
	}
	r, err := numberArg(pa, "rcc", "radius")
	if err != nil {
		return nil, err
	}
	return geometry.Cylinder{Base: base, Height: h, Radius: r}, nil
}

func coneShape(pa kwArgs) (geometry.Shape, error) {
	base, err := vecArg(pa, "trc", "base")
	if err != nil {
		return nil, err
	}
	h, err := vecArg(pa, "trc", "height")
	if err != nil {
		return nil, err
	}
	r1, err := numberArg(pa, "trc", "r1")
	if err != nil {
		return nil, err
	}
	r2, err := numberArg(pa, "trc", "r2")
	if err != nil {
		return nil, err
	}
	return geometry.Cone{Base: base, Height: h, BaseRadius: r1, TopRadius: r2}, nil
}

// halfSpaceShape builds XYP, XZP and YZP bodies. The plane position is
// either the second positional argument or :value.
func halfSpaceShape(fn string, axis geometry.Axis) shapeBuilder {
	return func(pa kwArgs) (geometry.Shape, error) {
		var v float64
		var err error
		if len(pa.positional) >= 2 {
			v, err = toFloat64(pa.positional[1])
			if err != nil {
				return nil, fmt.Errorf("%s: value: %w", fn, err)
			}
		} else if v, err = numberArg(pa, fn, "value"); err != nil {
			return nil, err
		}
		return geometry.HalfSpace{Axis: axis, Value: v}, nil
	}
}

// infiniteCylinderShape builds XCC, YCC and ZCC bodies from the centre
// coordinates on the two axes perpendicular to axis.
func infiniteCylinderShape(fn string, axis geometry.Axis) shapeBuilder {
	return func(pa kwArgs) (geometry.Shape, error) {
		c := geometry.InfiniteCylinder{Axis: axis}
		u, v := c.CrossAxes()
		var err error
		if c.U, err = numberArg(pa, fn, u.String()); err != nil {
			return nil, err
		}
		if c.V, err = numberArg(pa, fn, v.String()); err != nil {
			return nil, err
		}
		if c.Radius, err = numberArg(pa, fn, "radius"); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// ---------------------------------------------------------------------------
// Zone operands
// ---------------------------------------------------------------------------

// toOperand accepts a body, a zone, or the name of a registered body.
func toOperand(reg *geometry.Registry, s zygo.Sexp) (geometry.Operand, error) {
	switch v := s.(type) {
	case *sexpBody:
		return v.body, nil
	case *sexpZone:
		return v.zone, nil
	case *zygo.SexpStr:
		if b := reg.Body(v.S); b != nil {
			return b, nil
		}
		return nil, fmt.Errorf("no body named %q", v.S)
	}
	return nil, fmt.Errorf("expected body or zone, got %T (%s)", s, s.SexpString(nil))
}

// toOperands accepts a single operand or a list of them.
func toOperands(reg *geometry.Registry, s zygo.Sexp) ([]geometry.Operand, error) {
	items := []zygo.Sexp{s}
	switch s.(type) {
	case *zygo.SexpPair, *zygo.SexpArray:
		var err error
		if items, err = sexpListToSlice(s); err != nil {
			return nil, err
		}
	}
	ops := make([]geometry.Operand, 0, len(items))
	for _, item := range items {
		op, err := toOperand(reg, item)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// toZone accepts a zone or FLUKA zone text.
func toZone(reg *geometry.Registry, s zygo.Sexp) (*geometry.Zone, error) {
	switch v := s.(type) {
	case *sexpZone:
		return v.zone, nil
	case *zygo.SexpStr:
		return fluka.ParseZone(v.S, reg)
	}
	return nil, fmt.Errorf("expected zone or zone text, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the geometry builtins into a zygomys environment.
// The builtins operate on the provided Registry, populating it during
// evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, reg *geometry.Registry) {

	// -----------------------------------------------------------------------
	// (sph "A" :center (vec3 0 0 0) :radius 5)
	// (rpp "B" :min (vec3 -1 -1 -1) :max (vec3 1 1 1))
	// (rcc "C" :base (vec3 0 0 0) :height (vec3 0 0 10) :radius 2)
	// (trc "D" :base (vec3 0 0 0) :height (vec3 0 0 10) :r1 3 :r2 1)
	// (xyp "P" 10)  (zcc "Z" :x 0 :y 0 :radius 3)
	// -----------------------------------------------------------------------
	bodies := []struct {
		name  string
		build shapeBuilder
	}{
		{"sph", sphereShape},
		{"rpp", boxShape},
		{"rcc", cylinderShape},
		{"trc", coneShape},
		{"xyp", halfSpaceShape("xyp", geometry.AxisZ)},
		{"xzp", halfSpaceShape("xzp", geometry.AxisY)},
		{"yzp", halfSpaceShape("yzp", geometry.AxisX)},
		{"xcc", infiniteCylinderShape("xcc", geometry.AxisX)},
		{"ycc", infiniteCylinderShape("ycc", geometry.AxisY)},
		{"zcc", infiniteCylinderShape("zcc", geometry.AxisZ)},
	}
	for _, def := range bodies {
		fn, build := def.name, def.build
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			bodyName, err := nameArg(pa, fn)
			if err != nil {
				return zygo.SexpNull, err
			}
			s, err := build(pa)
			if err != nil {
				return zygo.SexpNull, err
			}
			if err := s.Validate(); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s %s: %w", fn, bodyName, err)
			}
			b := geometry.NewBody(bodyName, s)
			if err := reg.AddBody(b); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			return &sexpBody{body: b}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (body "A")
	// -----------------------------------------------------------------------
	env.AddFunction("body", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("body requires a name argument")
		}
		bodyName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("body: name: %w", err)
		}
		b := reg.Body(bodyName)
		if b == nil {
			return zygo.SexpNull, fmt.Errorf("body: no body named %q", bodyName)
		}
		return &sexpBody{body: b}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: geometry.Vec3{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (zone :intersect (list a b) :subtract (list c (zone ...)))
	//
	// Operands are bodies, zones, or body names.
	// -----------------------------------------------------------------------
	env.AddFunction("zone", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("zone takes only :intersect and :subtract")
		}
		z := geometry.NewZone()
		if v, ok := pa.kw["intersect"]; ok {
			ops, err := toOperands(reg, v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("zone: intersect: %w", err)
			}
			z.AddIntersection(ops...)
		}
		if v, ok := pa.kw["subtract"]; ok {
			ops, err := toOperands(reg, v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("zone: subtract: %w", err)
			}
			z.AddSubtraction(ops...)
		}
		if err := geometry.CheckZoneDepth(z, 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("zone: %w", err)
		}
		return &sexpZone{zone: z}, nil
	})

	// -----------------------------------------------------------------------
	// (zone-text "+A +B -( +C -D )")
	//
	// Registered as "zone_text"; the preprocessor rewrites the hyphen.
	// -----------------------------------------------------------------------
	env.AddFunction("zone_text", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("zone-text requires exactly 1 argument, got %d", len(args))
		}
		text, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("zone-text: %w", err)
		}
		z, err := fluka.ParseZone(text, reg)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("zone-text: %w", err)
		}
		return &sexpZone{zone: z}, nil
	})

	// -----------------------------------------------------------------------
	// (region "TARGET" (zone ...) "+A -B" ...)
	// -----------------------------------------------------------------------
	env.AddFunction("region", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		regionName, err := nameArg(pa, "region")
		if err != nil {
			return zygo.SexpNull, err
		}
		r := geometry.NewRegion(regionName)
		for i, arg := range pa.positional[1:] {
			z, err := toZone(reg, arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("region %s: zone %d: %w", regionName, i+1, err)
			}
			r.AddZone(z)
		}
		if err := reg.AddRegion(r); err != nil {
			return zygo.SexpNull, fmt.Errorf("region: %w", err)
		}
		return &sexpRegion{region: r}, nil
	})
}

package geometry

import "fmt"

// ValidationSeverity indicates whether a validation finding blocks
// conversion or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks conversion
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Subject  string             // "body NAME", "region NAME", or empty for registry-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Subject, e.Message)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate runs the structural checks on a registry and returns the
// findings. An empty slice means the registry is valid. maxDepth bounds
// zone nesting; non-positive selects DefaultMaxDepth. Validate never
// mutates the registry.
func Validate(r *Registry, maxDepth int) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateShapes(r)...)
	errs = append(errs, validateRegions(r, maxDepth)...)
	errs = append(errs, validateReferences(r)...)
	errs = append(errs, validateUnused(r)...)
	return errs
}

// validateShapes checks every body's parameters.
func validateShapes(r *Registry) []ValidationError {
	var errs []ValidationError
	for _, b := range r.bodies {
		if err := b.Shape.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Subject:  "body " + b.Name,
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateRegions checks that every region has zones, that no zone at any
// nesting level lacks an intersection operand, and that nesting stays
// within maxDepth.
func validateRegions(r *Registry, maxDepth int) []ValidationError {
	var errs []ValidationError
	for _, reg := range r.regions {
		subject := "region " + reg.Name
		if len(reg.Zones) == 0 {
			errs = append(errs, ValidationError{
				Subject:  subject,
				Message:  "region has no zones",
				Severity: SeverityError,
			})
		}
		for i, z := range reg.Zones {
			if err := CheckZoneDepth(z, maxDepth); err != nil {
				errs = append(errs, ValidationError{
					Subject:  subject,
					Message:  fmt.Sprintf("zone %d: %v", i+1, err),
					Severity: SeverityError,
				})
				continue
			}
			if n := countEmptyZones(z); n > 0 {
				errs = append(errs, ValidationError{
					Subject:  subject,
					Message:  fmt.Sprintf("zone %d: %d zone(s) with no intersection operand", i+1, n),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

func countEmptyZones(z *Zone) int {
	n := 0
	if z.IsEmpty() {
		n++
	}
	for _, ops := range [][]Operand{z.Intersections, z.Subtractions} {
		for _, op := range ops {
			if sub, ok := op.(*Zone); ok {
				n += countEmptyZones(sub)
			}
		}
	}
	return n
}

// validateReferences checks that every body a region uses is the body
// registered under its name.
func validateReferences(r *Registry) []ValidationError {
	var errs []ValidationError
	for _, reg := range r.regions {
		for _, b := range reg.Bodies() {
			registered, ok := r.byName[b.Name]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					Subject:  "region " + reg.Name,
					Message:  fmt.Sprintf("body %q is not registered", b.Name),
					Severity: SeverityError,
				})
			case registered != b:
				errs = append(errs, ValidationError{
					Subject:  "region " + reg.Name,
					Message:  fmt.Sprintf("body %q differs from the registered body of that name", b.Name),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateUnused warns about bodies no region references.
func validateUnused(r *Registry) []ValidationError {
	used := make(map[*Body]bool)
	for _, b := range r.Referenced() {
		used[b] = true
	}
	var errs []ValidationError
	for _, b := range r.bodies {
		if !used[b] {
			errs = append(errs, ValidationError{
				Subject:  "body " + b.Name,
				Message:  "body is not used by any region",
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

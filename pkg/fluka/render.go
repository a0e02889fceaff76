// Package fluka reads and writes FLUKA free-format geometry: body cards,
// then region cards whose zones use + for intersection, - for subtraction,
// parentheses for nested zones and | between the zones of a region.
package fluka

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/csgnorm/pkg/geometry"
)

// Neighbourhood is the region card's neighbourhood number. It only tunes
// FLUKA's tracking and carries no geometry.
const Neighbourhood = 5

// FormatFloat renders f in the shortest form that reads back exactly.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// BodyCard renders b as "KIND NAME p1 p2 ...".
func BodyCard(b *geometry.Body) string {
	parts := []string{string(b.Shape.Kind()), b.Name}
	for _, p := range b.Shape.Params() {
		parts = append(parts, FormatFloat(p))
	}
	return strings.Join(parts, " ")
}

// ZoneString renders z as "+A +B -C -( +D -E )".
func ZoneString(z *geometry.Zone) string {
	var parts []string
	for _, op := range z.Intersections {
		parts = append(parts, "+"+operandString(op))
	}
	for _, op := range z.Subtractions {
		parts = append(parts, "-"+operandString(op))
	}
	return strings.Join(parts, " ")
}

func operandString(op geometry.Operand) string {
	switch v := op.(type) {
	case *geometry.Body:
		return v.Name
	case *geometry.Zone:
		return "( " + ZoneString(v) + " )"
	}
	panic(fmt.Sprintf("fluka: unknown operand type %T", op))
}

// RegionString renders r as "NAME 5 zone | zone".
func RegionString(r *geometry.Region) string {
	zones := make([]string, len(r.Zones))
	for i, z := range r.Zones {
		zones[i] = ZoneString(z)
	}
	return fmt.Sprintf("%s %d %s", r.Name, Neighbourhood, strings.Join(zones, " | "))
}

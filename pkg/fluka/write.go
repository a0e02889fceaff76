package fluka

import (
	"bufio"
	"fmt"
	"io"

	"github.com/chazu/csgnorm/pkg/geometry"
)

// Write emits reg in the layout Read accepts. Every region must have at
// least one non-empty zone; an empty region fails with
// geometry.ErrEmptyRegion before anything is written.
func Write(w io.Writer, reg *geometry.Registry) error {
	for _, r := range reg.Regions() {
		if err := geometry.RequireZones(r); err != nil {
			return fmt.Errorf("fluka: write: %w", err)
		}
		for i, z := range r.Zones {
			if z.IsEmpty() {
				return fmt.Errorf("fluka: write: region %q zone %d has no intersection operand", r.Name, i+1)
			}
		}
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-70sCOMBNAME\n", "GEOBEGIN")
	fmt.Fprintf(bw, "    0    0\n")
	for _, b := range reg.Bodies() {
		fmt.Fprintln(bw, BodyCard(b))
	}
	fmt.Fprintln(bw, "END")
	for _, r := range reg.Regions() {
		fmt.Fprintln(bw, RegionString(r))
	}
	fmt.Fprintln(bw, "END")
	fmt.Fprintln(bw, "GEOEND")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("fluka: write: %w", err)
	}
	return nil
}

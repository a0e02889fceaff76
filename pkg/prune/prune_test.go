package prune

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/chazu/csgnorm/pkg/geometry"
	"github.com/chazu/csgnorm/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sphereAt(name string, x, y, z, r float64) *geometry.Body {
	return geometry.NewBody(name, geometry.Sphere{Center: geometry.Vec3{X: x, Y: y, Z: z}, Radius: r})
}

func box(name string, xmin, xmax, ymin, ymax, zmin, zmax float64) *geometry.Body {
	return geometry.NewBody(name, geometry.Box{
		Min: geometry.Vec3{X: xmin, Y: ymin, Z: zmin},
		Max: geometry.Vec3{X: xmax, Y: ymax, Z: zmax},
	})
}

func TestPruneDisjointSubtraction(t *testing.T) {
	a := sphereAt("A", 0, 0, 0, 5)
	b := box("B", 100, 200, -1, 1, -1, 1)
	z := geometry.NewZone().AddIntersection(a).AddSubtraction(b)

	p := &Pruner{}
	got, err := p.PruneZone(z, kernel.NullAABB())
	require.NoError(t, err)
	assert.Equal(t, []geometry.Operand{a}, got.Intersections)
	assert.Empty(t, got.Subtractions)

	// The input zone is left alone.
	assert.Equal(t, []geometry.Operand{b}, z.Subtractions)
}

func TestPruneOverlappingSubtractionKept(t *testing.T) {
	a := sphereAt("A", 0, 0, 0, 5)
	b := box("B", 4, 10, -1, 1, -1, 1)
	z := geometry.NewZone().AddIntersection(a).AddSubtraction(b)

	got, err := (&Pruner{}).PruneZone(z, kernel.NullAABB())
	require.NoError(t, err)
	assert.Equal(t, []geometry.Operand{b}, got.Subtractions)
}

func TestPruneDisjointIntersection(t *testing.T) {
	a := sphereAt("A", 0, 0, 0, 1)
	b := sphereAt("B", 10, 0, 0, 1)
	c := sphereAt("C", 0, 0, 0, 2)
	z := geometry.NewZone().AddIntersection(a, b, c).AddSubtraction(c)

	got, err := (&Pruner{}).PruneZone(z, kernel.NullAABB())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Empty(t, got.Subtractions)
}

func TestPruneRunningBoxTightens(t *testing.T) {
	// A and B overlap on x in [4, 5]; C overlaps A but not A∩B.
	a := box("A", 0, 5, 0, 1, 0, 1)
	b := box("B", 4, 10, 0, 1, 0, 1)
	c := box("C", 0, 2, 0, 1, 0, 1)

	got, err := (&Pruner{}).PruneZone(geometry.NewZone().AddIntersection(a, b, c), kernel.NullAABB())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	// A subtraction overlapping A but not A∩B is dropped.
	got, err = (&Pruner{}).PruneZone(geometry.NewZone().AddIntersection(a, b).AddSubtraction(c), kernel.NullAABB())
	require.NoError(t, err)
	assert.Equal(t, []geometry.Operand{a, b}, got.Intersections)
	assert.Empty(t, got.Subtractions)
}

func TestPruneSuppliedRunningBox(t *testing.T) {
	a := sphereAt("A", 0, 0, 0, 1)
	z := geometry.NewZone().AddIntersection(a)

	got, err := (&Pruner{}).PruneZone(z, kernel.NewAABB(50, 60, 50, 60, 50, 60))
	require.NoError(t, err)
	assert.True(t, got.IsEmpty(), "first operand is tested when a box is supplied")

	got, err = (&Pruner{}).PruneZone(z, kernel.NewAABB(0, 60, 0, 60, 0, 60))
	require.NoError(t, err)
	assert.False(t, got.IsEmpty())
}

func TestPruneNestedIntersection(t *testing.T) {
	a := box("A", 0, 10, 0, 10, 0, 10)
	b := box("B", 8, 20, 0, 10, 0, 10)
	c := box("C", 0, 2, 0, 10, 0, 10)
	d := box("D", 9, 30, 0, 10, 0, 10)

	t.Run("nested zone sees parent box", func(t *testing.T) {
		// C is disjoint from A∩B, so the nested zone and the whole zone die.
		z := geometry.NewZone().AddIntersection(a, b, geometry.NewZone().AddIntersection(c))
		got, err := (&Pruner{}).PruneZone(z, kernel.NullAABB())
		require.NoError(t, err)
		assert.True(t, got.IsEmpty())
	})

	t.Run("nested zone tightens parent box", func(t *testing.T) {
		// (A ∩ (B − D)) − C: the nested zone narrows x to [8, 10], so C
		// at x in [0, 2] no longer overlaps.
		nested := geometry.NewZone().AddIntersection(b).AddSubtraction(d)
		z := geometry.NewZone().AddIntersection(a, nested).AddSubtraction(c)
		got, err := (&Pruner{}).PruneZone(z, kernel.NullAABB())
		require.NoError(t, err)
		require.Len(t, got.Intersections, 2)
		assert.Empty(t, got.Subtractions)
		sub := got.Intersections[1].(*geometry.Zone)
		assert.NotSame(t, nested, sub)
		assert.Equal(t, []geometry.Operand{d}, sub.Subtractions)
	})

	t.Run("nested zone first seeds the box", func(t *testing.T) {
		z := geometry.NewZone().AddIntersection(geometry.NewZone().AddIntersection(c), b)
		got, err := (&Pruner{}).PruneZone(z, kernel.NullAABB())
		require.NoError(t, err)
		assert.True(t, got.IsEmpty())
	})
}

func TestPruneNestedSubtraction(t *testing.T) {
	a := box("A", 0, 10, 0, 10, 0, 10)
	far1 := box("F1", 100, 110, 0, 1, 0, 1)
	far2 := box("F2", 200, 210, 0, 1, 0, 1)
	near := box("N", 5, 6, 5, 6, 5, 6)

	// A nested subtraction that is itself empty subtracts nothing.
	dead := geometry.NewZone().AddIntersection(far1, far2)
	// A nested subtraction is pruned with a fresh box, so it survives even
	// though it lies outside A.
	fresh := geometry.NewZone().AddIntersection(far1)
	live := geometry.NewZone().AddIntersection(near).AddSubtraction(far2)

	z := geometry.NewZone().AddIntersection(a).AddSubtraction(dead, fresh, live)
	got, err := (&Pruner{}).PruneZone(z, kernel.NullAABB())
	require.NoError(t, err)
	require.Len(t, got.Subtractions, 2)
	assert.Equal(t, []geometry.Operand{far1}, got.Subtractions[0].(*geometry.Zone).Intersections)
	liveOut := got.Subtractions[1].(*geometry.Zone)
	assert.Equal(t, []geometry.Operand{near}, liveOut.Intersections)
	assert.Empty(t, liveOut.Subtractions, "F2 is disjoint from N")
}

func TestPruneTolerance(t *testing.T) {
	a := box("A", 0, 1, 0, 1, 0, 1)
	b := box("B", 1.0000001, 2, 0, 1, 0, 1)
	z := geometry.NewZone().AddIntersection(a, b)

	got, err := (&Pruner{}).PruneZone(z, kernel.NullAABB())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	got, err = (&Pruner{Tolerance: DefaultTolerance}).PruneZone(z, kernel.NullAABB())
	require.NoError(t, err)
	assert.False(t, got.IsEmpty())
}

func TestPruneUnboundedBodies(t *testing.T) {
	a := sphereAt("A", 0, 0, 0, 5)
	below := geometry.NewBody("BELOW", geometry.HalfSpace{Axis: geometry.AxisZ, Value: -10})
	above := geometry.NewBody("ABOVE", geometry.HalfSpace{Axis: geometry.AxisZ, Value: 10})
	world := kernel.NewAABB(-100, 100, -100, 100, -100, 100)

	p := &Pruner{World: world}
	got, err := p.PruneZone(geometry.NewZone().AddIntersection(a, below), kernel.NullAABB())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty(), "sphere does not reach z < -10")

	got, err = p.PruneZone(geometry.NewZone().AddIntersection(a, above), kernel.NullAABB())
	require.NoError(t, err)
	assert.False(t, got.IsEmpty())

	outside := geometry.NewBody("OUT", geometry.HalfSpace{Axis: geometry.AxisX, Value: -500})
	got, err = p.PruneZone(geometry.NewZone().AddIntersection(outside), kernel.NullAABB())
	require.NoError(t, err)
	assert.True(t, got.IsEmpty(), "body with no extent inside the world")
}

type failingMesher struct{}

func (failingMesher) Mesh(*geometry.Body, kernel.AABB) (*kernel.Mesh, error) {
	return nil, errors.New("kernel down")
}

func TestPruneMesherError(t *testing.T) {
	z := geometry.NewZone().AddIntersection(sphereAt("A", 0, 0, 0, 1))
	_, err := (&Pruner{Mesher: failingMesher{}}).PruneZone(z, kernel.NullAABB())
	assert.ErrorContains(t, err, "kernel down")
}

func TestPruneDepthLimit(t *testing.T) {
	a := sphereAt("A", 0, 0, 0, 1)
	z := geometry.NewZone().AddIntersection(a)
	for i := 0; i < 4; i++ {
		z = geometry.NewZone().AddIntersection(a).AddSubtraction(z)
	}
	_, err := (&Pruner{MaxDepth: 3}).PruneZone(z, kernel.NullAABB())
	var de *geometry.DepthError
	require.True(t, errors.As(err, &de), "err = %v", err)
	assert.Equal(t, 4, de.Depth)
	assert.Equal(t, 3, de.Limit)

	_, err = (&Pruner{MaxDepth: 5}).PruneZone(z, kernel.NullAABB())
	assert.NoError(t, err)
}

func TestPruneRegion(t *testing.T) {
	a := sphereAt("A", 0, 0, 0, 1)
	b := sphereAt("B", 10, 0, 0, 1)
	r := geometry.NewRegion("R",
		geometry.NewZone().AddIntersection(a, b),
		geometry.NewZone().AddIntersection(b).AddSubtraction(a),
	)

	var buf bytes.Buffer
	p := &Pruner{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	got, err := p.PruneRegion(r, kernel.NullAABB())
	require.NoError(t, err)
	assert.Equal(t, "R", got.Name)
	require.Len(t, got.Zones, 1)
	assert.Equal(t, []geometry.Operand{b}, got.Zones[0].Intersections)
	assert.Empty(t, got.Zones[0].Subtractions)
	assert.Contains(t, buf.String(), "dropped empty zone")

	empty, err := p.PruneRegion(geometry.NewRegion("R", geometry.NewZone().AddIntersection(a, b)), kernel.NullAABB())
	require.NoError(t, err)
	assert.Empty(t, empty.Zones)
	assert.ErrorIs(t, geometry.RequireZones(empty), geometry.ErrEmptyRegion)
}

// TestPruneProperties enumerates every flat zone with three intersection
// and two subtraction operands over a small pool of boxes and checks that
// pruning only removes operands, that kept intersections overlap pairwise,
// and that a zone is emptied exactly when two intersection boxes are
// disjoint.
func TestPruneProperties(t *testing.T) {
	pool := []*geometry.Body{
		box("P0", 0, 4, 0, 4, 0, 4),
		box("P1", 3, 7, 0, 4, 0, 4),
		box("P2", 6, 10, 0, 4, 0, 4),
		box("P3", 0, 10, 3, 5, 0, 4),
		sphereAt("P4", 2, 2, 2, 1),
		sphereAt("P5", 50, 50, 50, 1),
	}
	boxes := make(map[*geometry.Body]kernel.AABB)
	for _, b := range pool {
		boxes[b] = b.Shape.Extent(kernel.NullAABB())
	}
	p := &Pruner{}

	for _, i0 := range pool {
		for _, i1 := range pool {
			for _, i2 := range pool {
				for _, s0 := range pool {
					for _, s1 := range pool {
						inter := []*geometry.Body{i0, i1, i2}
						z := geometry.NewZone().AddIntersection(i0, i1, i2).AddSubtraction(s0, s1)
						name := fmt.Sprintf("%s %s %s - %s %s", i0.Name, i1.Name, i2.Name, s0.Name, s1.Name)

						got, err := p.PruneZone(z, kernel.NullAABB())
						require.NoError(t, err, name)

						assert.LessOrEqual(t, len(got.Intersections), len(z.Intersections), name)
						assert.LessOrEqual(t, len(got.Subtractions), len(z.Subtractions), name)

						disjoint := false
						for x := range inter {
							for y := range inter {
								if !boxes[inter[x]].Intersects(boxes[inter[y]]) {
									disjoint = true
								}
							}
						}
						assert.Equal(t, disjoint, got.IsEmpty(), name)

						for _, x := range got.Intersections {
							for _, y := range got.Intersections {
								bx, by := boxes[x.(*geometry.Body)], boxes[y.(*geometry.Body)]
								assert.True(t, bx.Intersects(by), name)
							}
						}
					}
				}
			}
		}
	}
}

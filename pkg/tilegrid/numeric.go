package tilegrid

import "math"

// NumericTileGrid holds one 32-bit float per cell, defaulting to 0. It keeps
// a lazily computed cache of the (min, max) range over finite cells, which is
// invalidated by every write. Non-finite values (NaN, Inf) are stored but
// excluded from the range and the total.
//
// The zero value is not usable - use [NewNumericTileGrid] to construct a
// validated grid.
type NumericTileGrid struct {
	frame
	data []float32

	// rng caches the finite value range; nil means stale.
	rng *valueRange
}

type valueRange struct{ min, max float64 }

// NewNumericTileGrid creates a numeric grid with every cell 0.
// It returns [ErrInvalidZoom], [ErrInvalidOrigin] or [ErrInvalidExtent] when
// the geometry violates the zoom coordinate rules.
func NewNumericTileGrid(zoom, x, y, width, height int) (*NumericTileGrid, error) {
	f, err := newFrame(zoom, x, y, width, height)
	if err != nil {
		return nil, err
	}
	return &NumericTileGrid{frame: f, data: make([]float32, f.cells())}, nil
}

// Type returns [TypeNumeric].
func (g *NumericTileGrid) Type() Type { return TypeNumeric }

// Get returns the cell at native-zoom coordinate (cx, cy), or 0 when the
// coordinate lies outside the grid's extent.
func (g *NumericTileGrid) Get(cx, cy int) float32 {
	if !g.contains(cx, cy) {
		return 0
	}
	return g.data[g.index(cx, cy)]
}

// GetAtZoom reads the cell covering (cx, cy) expressed in queryZoom
// coordinates, floor-dividing into native coordinates first. Out-of-extent
// reads return 0; a query zoom coarser than the grid's own returns
// [ErrZoomTooCoarse].
func (g *NumericTileGrid) GetAtZoom(cx, cy, queryZoom int) (float32, error) {
	nx, ny, err := g.rescale(cx, cy, queryZoom)
	if err != nil {
		return 0, err
	}
	return g.Get(nx, ny), nil
}

// Set writes the cell at native-zoom coordinate (cx, cy) and invalidates the
// cached value range. Writes outside the extent fail with [ErrOutOfBounds]
// and leave the buffer untouched.
func (g *NumericTileGrid) Set(cx, cy int, v float32) error {
	if !g.contains(cx, cy) {
		return ErrOutOfBounds
	}
	g.data[g.index(cx, cy)] = v
	g.rng = nil
	return nil
}

// MinMax returns the smallest and largest finite cell values, computing and
// caching the range on first use after a write. A grid with no finite cells
// reports (0, 0).
func (g *NumericTileGrid) MinMax() (float64, float64) {
	if g.rng == nil {
		g.rng = g.computeRange()
	}
	return g.rng.min, g.rng.max
}

func (g *NumericTileGrid) computeRange() *valueRange {
	var (
		r     valueRange
		found bool
	)
	for _, v := range g.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if !found {
			r = valueRange{min: f, max: f}
			found = true
			continue
		}
		r.min = math.Min(r.min, f)
		r.max = math.Max(r.max, f)
	}
	return &r
}

// Total returns the sum of all finite cell values.
func (g *NumericTileGrid) Total() float64 {
	var sum float64
	for _, v := range g.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		sum += f
	}
	return sum
}

// Stats returns the finite value range via [NumericTileGrid.MinMax].
func (g *NumericTileGrid) Stats() Stats {
	min, max := g.MinMax()
	return Stats{Type: TypeNumeric, Min: min, Max: max}
}

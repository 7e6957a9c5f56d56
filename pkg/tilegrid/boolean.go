package tilegrid

// BooleanTileGrid holds one boolean per cell, stored as a byte buffer of 0/1
// values. Cells default to false.
//
// The zero value is not usable - use [NewBooleanTileGrid] to construct a
// validated grid.
type BooleanTileGrid struct {
	frame
	data []uint8
}

// NewBooleanTileGrid creates a boolean grid with every cell false.
// It returns [ErrInvalidZoom], [ErrInvalidOrigin] or [ErrInvalidExtent] when
// the geometry violates the zoom coordinate rules.
func NewBooleanTileGrid(zoom, x, y, width, height int) (*BooleanTileGrid, error) {
	f, err := newFrame(zoom, x, y, width, height)
	if err != nil {
		return nil, err
	}
	return &BooleanTileGrid{frame: f, data: make([]uint8, f.cells())}, nil
}

// Type returns [TypeBoolean].
func (g *BooleanTileGrid) Type() Type { return TypeBoolean }

// Get returns the cell at native-zoom coordinate (cx, cy), or false when the
// coordinate lies outside the grid's extent.
func (g *BooleanTileGrid) Get(cx, cy int) bool {
	if !g.contains(cx, cy) {
		return false
	}
	return g.data[g.index(cx, cy)] != 0
}

// GetAtZoom reads the cell covering (cx, cy) expressed in queryZoom
// coordinates. The coordinate is floor-divided by 2^(queryZoom - Zoom) into
// native coordinates first; out-of-extent reads return false. Querying at a
// coarser zoom than the grid's own returns [ErrZoomTooCoarse].
func (g *BooleanTileGrid) GetAtZoom(cx, cy, queryZoom int) (bool, error) {
	nx, ny, err := g.rescale(cx, cy, queryZoom)
	if err != nil {
		return false, err
	}
	return g.Get(nx, ny), nil
}

// Set writes the cell at native-zoom coordinate (cx, cy). Unlike reads,
// writes outside the extent fail with [ErrOutOfBounds] and leave the buffer
// untouched.
func (g *BooleanTileGrid) Set(cx, cy int, v bool) error {
	if !g.contains(cx, cy) {
		return ErrOutOfBounds
	}
	var b uint8
	if v {
		b = 1
	}
	g.data[g.index(cx, cy)] = b
	return nil
}

// Stats returns the fixed boolean range (0, 1).
func (g *BooleanTileGrid) Stats() Stats {
	return Stats{Type: TypeBoolean, Min: 0, Max: 1}
}

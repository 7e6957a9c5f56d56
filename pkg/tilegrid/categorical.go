package tilegrid

import (
	"maps"
	"slices"
)

// NoDataCode is the sentinel cell value of a [CategoricalTileGrid] marking a
// cell that belongs to no category. New grids start with every cell set to it.
const NoDataCode uint8 = 255

// CategoricalTileGrid holds one byte-sized category code per cell together
// with a table mapping codes to display labels. Cells default to
// [NoDataCode]. The value range degenerates to (0, label count).
//
// The zero value is not usable - use [NewCategoricalTileGrid] to construct a
// validated grid.
type CategoricalTileGrid struct {
	frame
	data   []uint8
	labels map[uint8]string
}

// NewCategoricalTileGrid creates a categorical grid with every cell set to
// [NoDataCode]. The labels map may be nil; it is copied, so later changes to
// the argument do not affect the grid. Geometry violations return
// [ErrInvalidZoom], [ErrInvalidOrigin] or [ErrInvalidExtent].
func NewCategoricalTileGrid(zoom, x, y, width, height int, labels map[uint8]string) (*CategoricalTileGrid, error) {
	f, err := newFrame(zoom, x, y, width, height)
	if err != nil {
		return nil, err
	}
	data := make([]uint8, f.cells())
	for i := range data {
		data[i] = NoDataCode
	}
	g := &CategoricalTileGrid{frame: f, data: data, labels: make(map[uint8]string, len(labels))}
	maps.Copy(g.labels, labels)
	return g, nil
}

// Type returns [TypeCategorical].
func (g *CategoricalTileGrid) Type() Type { return TypeCategorical }

// Get returns the category code at native-zoom coordinate (cx, cy), or
// [NoDataCode] when the coordinate lies outside the grid's extent.
func (g *CategoricalTileGrid) Get(cx, cy int) uint8 {
	if !g.contains(cx, cy) {
		return NoDataCode
	}
	return g.data[g.index(cx, cy)]
}

// GetAtZoom reads the cell covering (cx, cy) expressed in queryZoom
// coordinates, floor-dividing into native coordinates first. Out-of-extent
// reads return [NoDataCode]; a query zoom coarser than the grid's own
// returns [ErrZoomTooCoarse].
func (g *CategoricalTileGrid) GetAtZoom(cx, cy, queryZoom int) (uint8, error) {
	nx, ny, err := g.rescale(cx, cy, queryZoom)
	if err != nil {
		return NoDataCode, err
	}
	return g.Get(nx, ny), nil
}

// Set writes the category code at native-zoom coordinate (cx, cy). Writes
// outside the extent fail with [ErrOutOfBounds] and leave the buffer
// untouched.
func (g *CategoricalTileGrid) Set(cx, cy int, code uint8) error {
	if !g.contains(cx, cy) {
		return ErrOutOfBounds
	}
	g.data[g.index(cx, cy)] = code
	return nil
}

// LabelFor returns the display label for a category code and whether the
// code is present in the label table.
func (g *CategoricalTileGrid) LabelFor(code uint8) (string, bool) {
	label, ok := g.labels[code]
	return label, ok
}

// SetLabel adds or replaces the display label for a category code.
func (g *CategoricalTileGrid) SetLabel(code uint8, label string) {
	g.labels[code] = label
}

// Labels returns the label table as (code, label) pairs sorted by code.
func (g *CategoricalTileGrid) Labels() []LabelEntry {
	entries := make([]LabelEntry, 0, len(g.labels))
	for _, code := range slices.Sorted(maps.Keys(g.labels)) {
		entries = append(entries, LabelEntry{Code: code, Label: g.labels[code]})
	}
	return entries
}

// ApplyCategory paints the grid from a boolean mask: every cell of this
// grid's extent where the mask reads true is set to code, all other cells
// are left unchanged. The mask is queried at this grid's zoom, so a mask at
// an equal or coarser zoom works; a finer mask returns [ErrZoomTooFine].
func (g *CategoricalTileGrid) ApplyCategory(mask *BooleanTileGrid, code uint8) error {
	if mask.Zoom() > g.zoom {
		return ErrZoomTooFine
	}
	for cx := g.x; cx < g.x+g.width; cx++ {
		for cy := g.y; cy < g.y+g.height; cy++ {
			on, err := mask.GetAtZoom(cx, cy, g.zoom)
			if err != nil {
				return err
			}
			if on {
				g.data[g.index(cx, cy)] = code
			}
		}
	}
	return nil
}

// Stats returns the degenerate categorical range (0, label count) together
// with the ordered label table.
func (g *CategoricalTileGrid) Stats() Stats {
	return Stats{
		Type:   TypeCategorical,
		Min:    0,
		Max:    float64(len(g.labels)),
		Labels: g.Labels(),
	}
}

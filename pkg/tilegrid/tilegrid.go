package tilegrid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidZoom is returned by the grid constructors when the zoom
	// level is negative. Zoom levels are non-negative integers: zoom z has
	// 2^z tiles per axis.
	ErrInvalidZoom = errors.New("zoom must be a non-negative integer")

	// ErrInvalidOrigin is returned by the grid constructors when the x or y
	// origin lies outside [0, 2^zoom).
	ErrInvalidOrigin = errors.New("origin outside zoom coordinate space")

	// ErrInvalidExtent is returned by the grid constructors when width or
	// height is not positive, or when origin+extent exceeds 2^zoom on
	// either axis.
	ErrInvalidExtent = errors.New("extent outside zoom coordinate space")

	// ErrOutOfBounds is returned by Set when the target cell lies outside
	// the grid's extent. Reads never return this error: out-of-extent reads
	// yield the variant's default value instead.
	ErrOutOfBounds = errors.New("coordinate outside grid extent")

	// ErrZoomTooCoarse is returned by GetAtZoom when the query zoom is
	// smaller than the grid's native zoom. A grid can be queried at its own
	// resolution or finer, never coarser.
	ErrZoomTooCoarse = errors.New("query zoom coarser than grid zoom")

	// ErrZoomTooFine is returned by [CategoricalTileGrid.ApplyCategory]
	// when the mask grid is at a finer zoom than the categorical grid, so
	// its cells cannot be resolved at the categorical grid's resolution.
	ErrZoomTooFine = errors.New("mask zoom finer than grid zoom")
)

// Type identifies the concrete tile grid variant. The values double as the
// wire format's type tag, so they must stay stable across versions.
type Type string

const (
	// TypeBoolean tags a [BooleanTileGrid].
	TypeBoolean Type = "BooleanTileGrid"
	// TypeNumeric tags a [NumericTileGrid].
	TypeNumeric Type = "NumericTileGrid"
	// TypeCategorical tags a [CategoricalTileGrid].
	TypeCategorical Type = "CategoricalTileGrid"
)

// Grid is the contract shared by the three tile grid variants. It exposes the
// common geometry and summary statistics; cell access is per-variant because
// the value types differ.
//
// A grid produced by an evaluation pass is owned by that pass until it is
// handed to an external store, after which it must be treated as immutable.
type Grid interface {
	// Type returns the variant tag used in the wire format.
	Type() Type
	// Zoom returns the grid's native zoom level.
	Zoom() int
	// X returns the tile-space x origin at the native zoom.
	X() int
	// Y returns the tile-space y origin at the native zoom.
	Y() int
	// Width returns the extent along x in tiles.
	Width() int
	// Height returns the extent along y in tiles.
	Height() int
	// Extent returns the grid's bounding rectangle translated into the
	// coordinate space of targetZoom.
	Extent(targetZoom int) Bounds
	// Stats returns the variant's summary statistics.
	Stats() Stats
}

// Bounds is an axis-aligned rectangle in tile coordinates at some zoom.
// Coordinates are fractional because translating bounds to a coarser zoom
// divides them by a power of two.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Stats summarizes a grid for display: the value range, the variant tag and,
// for categorical grids, the label table ordered by code.
type Stats struct {
	Type   Type         `json:"type"`
	Min    float64      `json:"min"`
	Max    float64      `json:"max"`
	Labels []LabelEntry `json:"labels,omitempty"`
}

// LabelEntry pairs a categorical cell code with its display label.
type LabelEntry struct {
	Code  uint8  `json:"code"`
	Label string `json:"label"`
}

// frame is the geometry shared by all grid variants: a rectangular window
// [x, x+width) x [y, y+height) of tiles at a fixed zoom level. Cells are
// stored row-major with x as the major axis, so the buffer index of cell
// (cx, cy) is (cx-x)*height + (cy-y).
type frame struct {
	zoom   int
	x, y   int
	width  int
	height int
}

// newFrame validates the geometry rules: zoom non-negative, origin within
// [0, 2^zoom) per axis, extent positive and not reaching past 2^zoom.
func newFrame(zoom, x, y, width, height int) (frame, error) {
	if zoom < 0 {
		return frame{}, fmt.Errorf("%w: %d", ErrInvalidZoom, zoom)
	}
	size := 1 << zoom
	if x < 0 || x >= size || y < 0 || y >= size {
		return frame{}, fmt.Errorf("%w: (%d, %d) at zoom %d", ErrInvalidOrigin, x, y, zoom)
	}
	if width <= 0 || height <= 0 || x+width > size || y+height > size {
		return frame{}, fmt.Errorf("%w: %dx%d at (%d, %d), zoom %d", ErrInvalidExtent, width, height, x, y, zoom)
	}
	return frame{zoom: zoom, x: x, y: y, width: width, height: height}, nil
}

// Zoom returns the grid's native zoom level.
func (f frame) Zoom() int { return f.zoom }

// X returns the tile-space x origin at the native zoom.
func (f frame) X() int { return f.x }

// Y returns the tile-space y origin at the native zoom.
func (f frame) Y() int { return f.y }

// Width returns the extent along x in tiles.
func (f frame) Width() int { return f.width }

// Height returns the extent along y in tiles.
func (f frame) Height() int { return f.height }

// Extent returns the frame's bounding rectangle in the coordinate space of
// targetZoom: each bound is multiplied by 2^(targetZoom - zoom). Only the
// bounds are translated, never cell contents.
func (f frame) Extent(targetZoom int) Bounds {
	scale := math.Pow(2, float64(targetZoom-f.zoom))
	return Bounds{
		MinX: float64(f.x) * scale,
		MinY: float64(f.y) * scale,
		MaxX: float64(f.x+f.width) * scale,
		MaxY: float64(f.y+f.height) * scale,
	}
}

// contains reports whether the native-zoom cell (cx, cy) lies inside the
// frame's extent.
func (f frame) contains(cx, cy int) bool {
	return cx >= f.x && cx < f.x+f.width && cy >= f.y && cy < f.y+f.height
}

// index returns the buffer position of the native-zoom cell (cx, cy).
// The caller must have checked contains first.
func (f frame) index(cx, cy int) int {
	return (cx-f.x)*f.height + (cy-f.y)
}

// cells returns the buffer length implied by the extent.
func (f frame) cells() int { return f.width * f.height }

// rescale maps a coordinate pair at queryZoom down to the frame's native
// zoom by floor division with 2^(queryZoom - zoom). Querying at a coarser
// zoom than the grid's own is rejected with [ErrZoomTooCoarse].
func (f frame) rescale(cx, cy, queryZoom int) (int, int, error) {
	if queryZoom < f.zoom {
		return 0, 0, fmt.Errorf("%w: query %d, grid %d", ErrZoomTooCoarse, queryZoom, f.zoom)
	}
	scale := 1 << (queryZoom - f.zoom)
	return floorDiv(cx, scale), floorDiv(cy, scale), nil
}

// floorDiv divides rounding toward negative infinity, so coordinates left or
// above the origin never fold back into the extent.
func floorDiv(a, scale int) int {
	q := a / scale
	if a%scale != 0 && a < 0 {
		q--
	}
	return q
}

// Package tilegrid provides the typed, multi-resolution raster model that
// flows through a dataflow graph: rectangular windows of cells addressed in
// slippy-map tile coordinates at a fixed zoom level.
//
// # Overview
//
// A tile grid covers [x, x+width) x [y, y+height) tiles at an integer zoom
// level, where coordinate space at zoom z spans 2^z tiles per axis. Three
// variants share this geometry and differ only in their cell type:
//
//   - [BooleanTileGrid]: one bit of information per cell, default false
//   - [NumericTileGrid]: one 32-bit float per cell, default 0
//   - [CategoricalTileGrid]: one byte category code per cell plus a label
//     table, default [NoDataCode]
//
// Constructors validate geometry and fail on a negative zoom, an origin
// outside [0, 2^zoom) or an extent reaching past the zoom's coordinate
// space.
//
// # Resolution
//
// Grids at different zoom levels compose: GetAtZoom queries a grid using
// coordinates expressed at any equal-or-finer zoom by floor-dividing the
// coordinate with 2^(queryZoom - nativeZoom). Querying coarser than the
// grid's own zoom is an error, because one coarse cell would cover several
// native cells with no single answer. [Grid.Extent] translates only the
// bounding rectangle between zooms and never touches cell contents.
//
// Reads outside a grid's extent return the variant default rather than an
// error; writes outside the extent fail with [ErrOutOfBounds].
//
// # Wire Format
//
// [Marshal] and [Unmarshal] move grids across process and storage
// boundaries as tagged JSON objects. The type tag restores the exact
// concrete variant on decode, including the categorical label table; an
// unknown tag is a fatal decode error. Numeric cells that are NaN or
// infinite encode as null.
//
// # Concurrency
//
// Grids are not safe for concurrent mutation. The evaluation engine treats
// a grid as owned by the pass that produced it; once handed to an external
// store the grid must no longer be written.
package tilegrid

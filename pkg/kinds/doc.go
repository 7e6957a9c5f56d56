// Package kinds is the built-in node catalog: sources, boolean set
// algebra, numeric arithmetic, categorical painting, diagnostics and the
// layer output sink.
//
// # Geometry
//
// Combining kinds adopt the frame (zoom and tile extent) of their first
// input and read the remaining inputs at that zoom. Coarser inputs are
// upsampled block-wise by the grid's own resolution rules; an input finer
// than the first is a node error. Reads outside a grid's extent yield the
// variant's default value, so partially overlapping extents combine
// without padding.
//
// # Errors
//
// Kind errors are node-local: the engine annotates the failing node and
// the pass continues. [ErrNoInput] is the usual case, a required socket
// with nothing connected (or with a failed upstream node).
package kinds

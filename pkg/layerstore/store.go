// Package layerstore persists finished layers, the grids produced by sink
// nodes, keyed by the node that produced them.
//
// A Store sits behind the engine's save callback: Save has the same shape
// as the callback the sink kind is registered with, so a store method can
// be handed to it directly. Layers cross the store boundary in the tagged
// JSON wire format, so a grid returned by Get is always a decoded copy,
// never a handle shared with the producer.
package layerstore

import (
	"context"
	"errors"

	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// ErrNotFound is returned by Get when no layer exists for the node.
var ErrNotFound = errors.New("layer not found")

// Store persists one layer per node.
type Store interface {
	// Save persists grid as the layer for nodeID, replacing any previous
	// layer for that node.
	Save(ctx context.Context, nodeID int, grid tilegrid.Grid) error

	// Get returns the layer for nodeID, or ErrNotFound.
	Get(ctx context.Context, nodeID int) (tilegrid.Grid, error)

	// List returns the node IDs that have a stored layer, ascending.
	List(ctx context.Context) ([]int, error)

	// Delete removes the layer for nodeID. Deleting an absent layer is
	// not an error.
	Delete(ctx context.Context, nodeID int) error

	// Close releases the store's resources.
	Close() error
}

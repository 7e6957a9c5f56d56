package layerstore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/rastermill/rastermill/pkg/observability"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// MemoryStore keeps layers in process memory. Layers are held in wire
// form, so a stored layer is a snapshot: mutating a grid after Save does
// not alter what Get returns.
type MemoryStore struct {
	mu     sync.RWMutex
	layers map[int][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{layers: map[int][]byte{}}
}

// Save encodes and stores grid as the layer for nodeID.
func (s *MemoryStore) Save(ctx context.Context, nodeID int, grid tilegrid.Grid) error {
	data, err := tilegrid.Marshal(grid)
	if err != nil {
		observability.Store().OnStoreError(ctx, "memory", "save", err)
		return fmt.Errorf("encode layer for node %d: %w", nodeID, err)
	}
	s.mu.Lock()
	s.layers[nodeID] = data
	s.mu.Unlock()
	observability.Store().OnLayerSaved(ctx, "memory", nodeID, len(data))
	return nil
}

// Get decodes and returns the layer for nodeID.
func (s *MemoryStore) Get(ctx context.Context, nodeID int) (tilegrid.Grid, error) {
	s.mu.RLock()
	data, ok := s.layers[nodeID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	g, err := tilegrid.Unmarshal(data)
	if err != nil {
		observability.Store().OnStoreError(ctx, "memory", "get", err)
		return nil, fmt.Errorf("decode layer for node %d: %w", nodeID, err)
	}
	observability.Store().OnLayerLoaded(ctx, "memory", nodeID)
	return g, nil
}

// List returns the node IDs with stored layers in ascending order.
func (s *MemoryStore) List(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.layers)), nil
}

// Delete removes the layer for nodeID.
func (s *MemoryStore) Delete(ctx context.Context, nodeID int) error {
	s.mu.Lock()
	delete(s.layers, nodeID)
	s.mu.Unlock()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

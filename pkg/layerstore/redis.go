package layerstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rastermill/rastermill/pkg/observability"
	"github.com/rastermill/rastermill/pkg/tilegrid"
)

// RedisStore persists layers in Redis so a server and other processes
// share them. Keys are namespaced by project:
//
//	rastermill:{project}:layer:{node}
//
// Layers are stored in wire form without expiry.
type RedisStore struct {
	rdb     *redis.Client
	project string
}

// NewRedisStore creates a Redis-backed store on an existing client,
// namespaced to project. An empty project falls back to "default". The
// store takes ownership of the client; Close closes it.
func NewRedisStore(rdb *redis.Client, project string) *RedisStore {
	if project == "" {
		project = "default"
	}
	return &RedisStore{rdb: rdb, project: project}
}

func (s *RedisStore) key(nodeID int) string {
	return fmt.Sprintf("rastermill:%s:layer:%d", s.project, nodeID)
}

func (s *RedisStore) keyPrefix() string {
	return fmt.Sprintf("rastermill:%s:layer:", s.project)
}

// Save encodes and stores grid as the layer for nodeID.
func (s *RedisStore) Save(ctx context.Context, nodeID int, grid tilegrid.Grid) error {
	data, err := tilegrid.Marshal(grid)
	if err != nil {
		observability.Store().OnStoreError(ctx, "redis", "save", err)
		return fmt.Errorf("encode layer for node %d: %w", nodeID, err)
	}
	if err := s.rdb.Set(ctx, s.key(nodeID), data, 0).Err(); err != nil {
		observability.Store().OnStoreError(ctx, "redis", "save", err)
		return fmt.Errorf("store layer for node %d: %w", nodeID, err)
	}
	observability.Store().OnLayerSaved(ctx, "redis", nodeID, len(data))
	return nil
}

// Get fetches and decodes the layer for nodeID.
func (s *RedisStore) Get(ctx context.Context, nodeID int) (tilegrid.Grid, error) {
	data, err := s.rdb.Get(ctx, s.key(nodeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		observability.Store().OnStoreError(ctx, "redis", "get", err)
		return nil, fmt.Errorf("fetch layer for node %d: %w", nodeID, err)
	}
	g, err := tilegrid.Unmarshal(data)
	if err != nil {
		observability.Store().OnStoreError(ctx, "redis", "get", err)
		return nil, fmt.Errorf("decode layer for node %d: %w", nodeID, err)
	}
	observability.Store().OnLayerLoaded(ctx, "redis", nodeID)
	return g, nil
}

// List scans the project namespace and returns the node IDs with stored
// layers in ascending order. Keys with a malformed node suffix are
// skipped.
func (s *RedisStore) List(ctx context.Context) ([]int, error) {
	prefix := s.keyPrefix()
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()

	var ids []int
	for iter.Next(ctx) {
		id, err := strconv.Atoi(strings.TrimPrefix(iter.Val(), prefix))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		observability.Store().OnStoreError(ctx, "redis", "list", err)
		return nil, fmt.Errorf("scan layers: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}

// Delete removes the layer for nodeID. Deleting an absent layer is not
// an error.
func (s *RedisStore) Delete(ctx context.Context, nodeID int) error {
	if err := s.rdb.Del(ctx, s.key(nodeID)).Err(); err != nil {
		observability.Store().OnStoreError(ctx, "redis", "delete", err)
		return fmt.Errorf("delete layer for node %d: %w", nodeID, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error { return s.rdb.Close() }

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

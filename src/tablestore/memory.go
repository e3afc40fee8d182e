// Package tablestore provides an in-memory store implementation.
package tablestore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory implementation of Store.
// Useful for testing and local mode.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]map[string]Entity // partition key -> row key -> entity
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string]map[string]Entity),
	}
}

// Get reads a single entity by its composite key.
func (s *MemoryStore) Get(ctx context.Context, partitionKey, rowKey string) (Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.partitions[partitionKey]
	if !ok {
		return Entity{}, ErrNotFound{PartitionKey: partitionKey, RowKey: rowKey}
	}
	e, ok := rows[rowKey]
	if !ok {
		return Entity{}, ErrNotFound{PartitionKey: partitionKey, RowKey: rowKey}
	}
	return e.clone(), nil
}

// Query returns entities matching q in key order.
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partitionKeys := make([]string, 0, len(s.partitions))
	if q.PartitionKey != "" {
		partitionKeys = append(partitionKeys, q.PartitionKey)
	} else {
		for pk := range s.partitions {
			partitionKeys = append(partitionKeys, pk)
		}
		sort.Strings(partitionKeys)
	}

	var results []Entity
	for _, pk := range partitionKeys {
		rows, ok := s.partitions[pk]
		if !ok {
			continue
		}
		rowKeys := make([]string, 0, len(rows))
		for rk := range rows {
			rowKeys = append(rowKeys, rk)
		}
		sort.Strings(rowKeys)

		for _, rk := range rowKeys {
			e := rows[rk]
			if !matchFilters(e, q.Filters) {
				continue
			}
			results = append(results, project(e, q.Select))
			if q.Limit > 0 && len(results) >= q.Limit {
				return results, nil
			}
		}
	}
	return results, nil
}

// Upsert inserts or replaces a single entity.
func (s *MemoryStore) Upsert(ctx context.Context, e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(e)
	return nil
}

// SubmitBatch atomically upserts a single-partition batch.
func (s *MemoryStore) SubmitBatch(ctx context.Context, partitionKey string, entities []Entity) error {
	if err := validateBatch(partitionKey, entities); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		s.upsertLocked(e)
	}
	return nil
}

func (s *MemoryStore) upsertLocked(e Entity) {
	rows, ok := s.partitions[e.PartitionKey]
	if !ok {
		rows = make(map[string]Entity)
		s.partitions[e.PartitionKey] = rows
	}
	rows[e.RowKey] = e.clone()
}

// Delete removes a single entity.
func (s *MemoryStore) Delete(ctx context.Context, partitionKey, rowKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.partitions[partitionKey]
	if !ok {
		return ErrNotFound{PartitionKey: partitionKey, RowKey: rowKey}
	}
	if _, ok := rows[rowKey]; !ok {
		return ErrNotFound{PartitionKey: partitionKey, RowKey: rowKey}
	}
	delete(rows, rowKey)
	if len(rows) == 0 {
		delete(s.partitions, partitionKey)
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

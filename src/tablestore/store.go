// Package tablestore defines the interface for the key-value table store
// backing the metrics cache, and provides implementations.
//
// The entity model mirrors a managed table store: each entity is
// addressed by a (partition key, row key) composite and carries a flat
// property bag. Queries support a filter predicate, a column projection,
// and a row limit; writes can be batched per partition up to a fixed
// entity count.
package tablestore

import (
	"context"
	"fmt"
)

// MaxBatchSize is the store's transaction-size limit: the largest number
// of entities accepted by a single batch submission.
const MaxBatchSize = 100

// Entity is one stored row.
type Entity struct {
	PartitionKey string
	RowKey       string
	Properties   map[string]interface{}
}

// Op is a filter comparison operator.
type Op string

const (
	OpEqual          Op = "eq"
	OpGreaterOrEqual Op = "ge"
	OpLessOrEqual    Op = "le"
)

// Filter compares one property against a value. String comparison is
// used throughout; date properties stored as YYYY-MM-DD order correctly
// under it.
type Filter struct {
	Property string
	Op       Op
	Value    string
}

// Query describes a filtered, projected, bounded read.
type Query struct {
	// PartitionKey restricts the query to one partition. Empty means a
	// full scan; callers are expected to pair scans with a Limit.
	PartitionKey string
	// Filters are ANDed property predicates.
	Filters []Filter
	// Select lists the properties to return. Empty returns everything.
	Select []string
	// Limit caps the number of returned entities. Zero means no cap.
	Limit int
}

// Store is the table store contract. Implementations must return
// entities in (partition key, row key) order so bounded reads are
// deterministic.
type Store interface {
	// Get reads a single entity by its composite key.
	Get(ctx context.Context, partitionKey, rowKey string) (Entity, error)

	// Query returns entities matching q.
	Query(ctx context.Context, q Query) ([]Entity, error)

	// Upsert inserts or replaces a single entity.
	Upsert(ctx context.Context, e Entity) error

	// SubmitBatch atomically upserts up to MaxBatchSize entities that
	// all share partitionKey.
	SubmitBatch(ctx context.Context, partitionKey string, entities []Entity) error

	// Delete removes a single entity.
	Delete(ctx context.Context, partitionKey, rowKey string) error

	// Close releases the store connection.
	Close() error
}

// ErrNotFound reports a missing entity.
type ErrNotFound struct {
	PartitionKey string
	RowKey       string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("entity not found: partition=%s row=%s", e.PartitionKey, e.RowKey)
}

// validateBatch enforces the per-request entity limit and the
// single-partition rule shared by all implementations.
func validateBatch(partitionKey string, entities []Entity) error {
	if len(entities) == 0 {
		return fmt.Errorf("batch must not be empty")
	}
	if len(entities) > MaxBatchSize {
		return fmt.Errorf("batch of %d entities exceeds the %d entity transaction limit", len(entities), MaxBatchSize)
	}
	for _, e := range entities {
		if e.PartitionKey != partitionKey {
			return fmt.Errorf("batch entity partition %q does not match batch partition %q", e.PartitionKey, partitionKey)
		}
	}
	return nil
}

// matchFilters applies q's property predicates to an entity. Missing
// properties never match.
func matchFilters(e Entity, filters []Filter) bool {
	for _, f := range filters {
		raw, ok := e.Properties[f.Property]
		if !ok {
			return false
		}
		s, ok := raw.(string)
		if !ok {
			s = fmt.Sprintf("%v", raw)
		}
		switch f.Op {
		case OpEqual:
			if s != f.Value {
				return false
			}
		case OpGreaterOrEqual:
			if s < f.Value {
				return false
			}
		case OpLessOrEqual:
			if s > f.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// project returns a copy of e restricted to the selected properties.
func project(e Entity, selected []string) Entity {
	if len(selected) == 0 {
		return e.clone()
	}
	out := Entity{
		PartitionKey: e.PartitionKey,
		RowKey:       e.RowKey,
		Properties:   make(map[string]interface{}, len(selected)),
	}
	for _, name := range selected {
		if v, ok := e.Properties[name]; ok {
			out.Properties[name] = v
		}
	}
	return out
}

func (e Entity) clone() Entity {
	props := make(map[string]interface{}, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = v
	}
	return Entity{PartitionKey: e.PartitionKey, RowKey: e.RowKey, Properties: props}
}

// Open is the provider factory: it instantiates the configured store
// backend.
func Open(provider, dsn string) (Store, error) {
	switch provider {
	case "memory", "":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %q", provider)
	}
}

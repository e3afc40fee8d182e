package tablestore

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func entity(pk, rk string, props map[string]interface{}) Entity {
	return Entity{PartitionKey: pk, RowKey: rk, Properties: props}
}

func TestMemoryStore_UpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	e := entity("proj_main", "2026-01-01_000000000000", map[string]interface{}{
		"ProjectKey": "proj",
		"Branch":     "main",
		"coverage":   81.5,
	})
	if err := store.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, e.PartitionKey, e.RowKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Properties["ProjectKey"] != "proj" || got.Properties["coverage"] != 81.5 {
		t.Errorf("Unexpected properties: %+v", got.Properties)
	}

	// Upsert replaces
	e.Properties["coverage"] = 82.0
	if err := store.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	got, _ = store.Get(ctx, e.PartitionKey, e.RowKey)
	if got.Properties["coverage"] != 82.0 {
		t.Errorf("Expected replaced coverage 82.0, got %v", got.Properties["coverage"])
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.Get(context.Background(), "missing", "row")
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_SubmitBatchValidation(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	// Over the transaction limit
	oversized := make([]Entity, MaxBatchSize+1)
	for i := range oversized {
		oversized[i] = entity("pk", fmt.Sprintf("row-%03d", i), nil)
	}
	if err := store.SubmitBatch(ctx, "pk", oversized); err == nil {
		t.Error("Expected error for oversized batch")
	}

	// Mixed partitions
	mixed := []Entity{
		entity("pk", "row-1", nil),
		entity("other", "row-2", nil),
	}
	if err := store.SubmitBatch(ctx, "pk", mixed); err == nil {
		t.Error("Expected error for mixed-partition batch")
	}

	// Empty batch
	if err := store.SubmitBatch(ctx, "pk", nil); err == nil {
		t.Error("Expected error for empty batch")
	}

	// A full batch at the limit is accepted
	full := make([]Entity, MaxBatchSize)
	for i := range full {
		full[i] = entity("pk", fmt.Sprintf("row-%03d", i), map[string]interface{}{"i": i})
	}
	if err := store.SubmitBatch(ctx, "pk", full); err != nil {
		t.Fatalf("SubmitBatch at limit failed: %v", err)
	}

	results, err := store.Query(ctx, Query{PartitionKey: "pk"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != MaxBatchSize {
		t.Errorf("Expected %d entities, got %d", MaxBatchSize, len(results))
	}
}

func TestMemoryStore_QueryFilters(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	seed := []Entity{
		entity("shared", "r1", map[string]interface{}{"ProjectKey": "my", "Branch": "project_main", "Date": "2026-01-01"}),
		entity("shared", "r2", map[string]interface{}{"ProjectKey": "my_project", "Branch": "main", "Date": "2026-01-02"}),
		entity("shared", "r3", map[string]interface{}{"ProjectKey": "my_project", "Branch": "main", "Date": "2026-02-01"}),
		entity("other", "r1", map[string]interface{}{"ProjectKey": "other", "Branch": "main", "Date": "2026-01-01"}),
	}
	for _, e := range seed {
		if err := store.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	// Property filters separate identities sharing a partition
	results, err := store.Query(ctx, Query{
		PartitionKey: "shared",
		Filters: []Filter{
			{Property: "ProjectKey", Op: OpEqual, Value: "my_project"},
			{Property: "Branch", Op: OpEqual, Value: "main"},
		},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(results))
	}

	// Date range filter
	results, err = store.Query(ctx, Query{
		PartitionKey: "shared",
		Filters: []Filter{
			{Property: "Date", Op: OpGreaterOrEqual, Value: "2026-01-02"},
			{Property: "Date", Op: OpLessOrEqual, Value: "2026-01-31"},
		},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 || results[0].RowKey != "r2" {
		t.Errorf("Unexpected date-filtered results: %+v", results)
	}
}

func TestMemoryStore_QuerySelectAndLimit(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		e := entity("pk", fmt.Sprintf("row-%02d", i), map[string]interface{}{
			"ProjectKey": "proj",
			"bugs":       float64(i),
			"secret":     "do-not-return",
		})
		if err := store.Upsert(ctx, e); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	results, err := store.Query(ctx, Query{
		PartitionKey: "pk",
		Select:       []string{"ProjectKey", "bugs"},
		Limit:        4,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 entities, got %d", len(results))
	}
	for _, e := range results {
		if _, ok := e.Properties["secret"]; ok {
			t.Error("Projection must drop unselected properties")
		}
		if _, ok := e.Properties["bugs"]; !ok {
			t.Error("Projection must keep selected properties")
		}
	}

	// Deterministic key order
	if results[0].RowKey != "row-00" || results[3].RowKey != "row-03" {
		t.Errorf("Expected key-ordered results, got %s..%s", results[0].RowKey, results[3].RowKey)
	}
}

func TestMemoryStore_FullScanOrdersPartitions(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	store.Upsert(ctx, entity("b", "r", map[string]interface{}{"ProjectKey": "b"}))
	store.Upsert(ctx, entity("a", "r", map[string]interface{}{"ProjectKey": "a"}))

	results, err := store.Query(ctx, Query{Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 || results[0].PartitionKey != "a" {
		t.Errorf("Expected partition-ordered scan, got %+v", results)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	e := entity("pk", "rk", nil)
	store.Upsert(ctx, e)

	if err := store.Delete(ctx, "pk", "rk"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "pk", "rk"); err == nil {
		t.Error("Expected ErrNotFound on second delete")
	}
}

func TestOpenFactory(t *testing.T) {
	store, err := Open("memory", "")
	if err != nil {
		t.Fatalf("Open(memory) failed: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("Expected *MemoryStore, got %T", store)
	}

	if _, err := Open("cassandra", ""); err == nil {
		t.Error("Expected error for unsupported provider")
	}
}

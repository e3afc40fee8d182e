// Package metrics implements the metrics cache: the layer that maps
// (project, branch) identities onto table storage, batches writes under
// the store's transaction limit, and maintains the metadata partition
// that indexes known identities so listing them never scans the full
// metrics table.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sonardash/src/contracts"
	"sonardash/src/keys"
	"sonardash/src/logger"
	"sonardash/src/tablestore"
)

const (
	// MetadataPartition indexes one entry per distinct identity ever
	// written, so list operations read O(identities) rows instead of
	// scanning every metric row.
	MetadataPartition = "METADATA_PROJECTS"

	// MigrationStatusRowKey marks that the metadata partition covers
	// all legacy rows written before the index existed.
	MigrationStatusRowKey = "MIGRATION_STATUS"

	// DefaultMaxRows is the global cap on rows returned by a single
	// read, protecting caller memory against unbounded result sets.
	DefaultMaxRows = 10000
)

// Entity property names shared with legacy data.
const (
	propProjectKey = "ProjectKey"
	propBranch     = "Branch"
	propDate       = "Date"
	propTimestamp  = "Timestamp"
	propStatus     = "Status"

	migrationComplete = "Complete"
)

// Store is the metrics cache over a table store.
type Store struct {
	table   tablestore.Store
	log     logger.Logger
	maxRows int
}

// NewStore creates a metrics cache on top of a table store.
func NewStore(table tablestore.Store, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Store{
		table:   table,
		log:     log,
		maxRows: DefaultMaxRows,
	}
}

// SetMaxRows overrides the global retrieval cap.
func (s *Store) SetMaxRows(n int) {
	if n > 0 {
		s.maxRows = n
	}
}

// Close closes the underlying table store.
func (s *Store) Close() error {
	return s.table.Close()
}

// identityBatch collects the entities of one (project, branch) identity
// keyed by observation time.
type identityBatch struct {
	ref      contracts.ProjectRef
	pair     keys.Pair
	entities map[string]tablestore.Entity // row key -> entity
}

// WriteBatch persists records grouped by identity and observation time.
// Entities are submitted in chunks no larger than the store's
// transaction limit; the metadata index entry for an identity is
// upserted only after every data batch of that identity has been
// acknowledged, so a mid-batch failure never leaves the index pointing
// at data that was not written. Row keys derive from the observation
// time, which makes a re-driven batch an idempotent upsert.
func (s *Store) WriteBatch(ctx context.Context, records []contracts.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	batches := make(map[keys.Pair]*identityBatch)
	var order []keys.Pair

	for _, rec := range records {
		if !rec.Metric.IsValid() {
			return fmt.Errorf("unknown metric %q for %s/%s", rec.Metric, rec.ProjectKey, rec.Branch)
		}
		pair, err := keys.Derive(rec.ProjectKey, rec.Branch)
		if err != nil {
			return err
		}

		batch, ok := batches[pair]
		if !ok {
			batch = &identityBatch{
				ref:      contracts.ProjectRef{ProjectKey: rec.ProjectKey, Branch: rec.Branch},
				pair:     pair,
				entities: make(map[string]tablestore.Entity),
			}
			batches[pair] = batch
			order = append(order, pair)
		}

		rowKey := keys.RowKeyForTime(rec.ObservedAt)
		e, ok := batch.entities[rowKey]
		if !ok {
			e = tablestore.Entity{
				PartitionKey: pair.PartitionKey,
				RowKey:       rowKey,
				Properties: map[string]interface{}{
					propProjectKey: rec.ProjectKey,
					propBranch:     rec.Branch,
					propDate:       rec.ObservedAt.UTC().Format("2006-01-02"),
					propTimestamp:  rec.ObservedAt.UTC().Format(time.RFC3339),
				},
			}
		}
		e.Properties[string(rec.Metric)] = rec.Value
		batch.entities[rowKey] = e
	}

	for _, pair := range order {
		batch := batches[pair]
		if err := s.writeIdentity(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// writeIdentity submits one identity's entities in chunks and then
// records the identity in the metadata partition.
func (s *Store) writeIdentity(ctx context.Context, batch *identityBatch) error {
	rowKeys := make([]string, 0, len(batch.entities))
	for rk := range batch.entities {
		rowKeys = append(rowKeys, rk)
	}
	sort.Strings(rowKeys)

	entities := make([]tablestore.Entity, 0, len(rowKeys))
	for _, rk := range rowKeys {
		entities = append(entities, batch.entities[rk])
	}

	for start := 0; start < len(entities); start += tablestore.MaxBatchSize {
		end := start + tablestore.MaxBatchSize
		if end > len(entities) {
			end = len(entities)
		}
		if err := s.table.SubmitBatch(ctx, batch.pair.PartitionKey, entities[start:end]); err != nil {
			return fmt.Errorf("failed to write batch for %s/%s: %w", batch.ref.ProjectKey, batch.ref.Branch, err)
		}
	}

	// Data acknowledged; now the identity may appear in the index.
	if err := s.upsertIndexEntry(ctx, batch.pair, batch.ref); err != nil {
		return fmt.Errorf("failed to index %s/%s: %w", batch.ref.ProjectKey, batch.ref.Branch, err)
	}

	s.log.Debug("cached %d entities for %s/%s", len(entities), batch.ref.ProjectKey, batch.ref.Branch)
	return nil
}

func (s *Store) upsertIndexEntry(ctx context.Context, pair keys.Pair, ref contracts.ProjectRef) error {
	return s.table.Upsert(ctx, tablestore.Entity{
		PartitionKey: MetadataPartition,
		RowKey:       pair.RowKey,
		Properties: map[string]interface{}{
			propProjectKey: ref.ProjectKey,
			propBranch:     ref.Branch,
		},
	})
}

// selectColumns is the projection used for reads: key metadata plus the
// known metric set, nothing else. Legacy rows may carry properties this
// layer never wrote; they stay in the store.
func selectColumns() []string {
	cols := []string{propProjectKey, propBranch, propDate, propTimestamp}
	for _, m := range contracts.AllMetrics {
		cols = append(cols, string(m))
	}
	return cols
}

// ReadRange returns the stored records of an identity within [since,
// until]. The query is keyed by the derived partition and additionally
// filtered by the original identity properties, so rows of an unrelated
// identity that happens to share the partition are never returned.
// Results are capped at maxRows (and the global cap); the boolean
// result reports truncation.
func (s *Store) ReadRange(ctx context.Context, projectKey, branch string, since, until time.Time, maxRows int) ([]contracts.MetricRecord, bool, error) {
	pair, err := keys.Derive(projectKey, branch)
	if err != nil {
		return nil, false, err
	}

	cap := s.maxRows
	if maxRows > 0 && maxRows < cap {
		cap = maxRows
	}

	entities, err := s.table.Query(ctx, tablestore.Query{
		PartitionKey: pair.PartitionKey,
		Filters: []tablestore.Filter{
			{Property: propProjectKey, Op: tablestore.OpEqual, Value: projectKey},
			{Property: propBranch, Op: tablestore.OpEqual, Value: branch},
			{Property: propDate, Op: tablestore.OpGreaterOrEqual, Value: since.UTC().Format("2006-01-02")},
			{Property: propDate, Op: tablestore.OpLessOrEqual, Value: until.UTC().Format("2006-01-02")},
		},
		Select: selectColumns(),
		Limit:  cap + 1,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read range for %s/%s: %w", projectKey, branch, err)
	}

	var records []contracts.MetricRecord
	truncated := false
	for _, e := range entities {
		observed := entityObservedAt(e)
		for _, m := range contracts.AllMetrics {
			raw, ok := e.Properties[string(m)]
			if !ok {
				continue
			}
			value, ok := raw.(float64)
			if !ok {
				continue
			}
			if len(records) >= cap {
				truncated = true
				break
			}
			records = append(records, contracts.MetricRecord{
				ProjectKey: projectKey,
				Branch:     branch,
				Metric:     m,
				Value:      value,
				ObservedAt: observed,
			})
		}
		if truncated {
			break
		}
	}
	if !truncated && len(entities) > cap {
		truncated = true
	}

	if truncated {
		s.log.Warn("read for %s/%s hit the %d row limit; results truncated", projectKey, branch, cap)
	}
	return records, truncated, nil
}

func entityObservedAt(e tablestore.Entity) time.Time {
	if raw, ok := e.Properties[propTimestamp].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	if raw, ok := e.Properties[propDate].(string); ok {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// ListKnownProjects returns every (project, branch) identity the cache
// has seen. When the migration marker is present the read touches only
// the metadata partition. Otherwise it falls back to a capped scan of
// the primary table, lazily backfills the missing index entries, and
// writes the marker so the scan never runs again.
func (s *Store) ListKnownProjects(ctx context.Context) ([]contracts.ProjectRef, error) {
	marker, err := s.table.Get(ctx, MetadataPartition, MigrationStatusRowKey)
	if err == nil && marker.Properties[propStatus] == migrationComplete {
		return s.listFromIndex(ctx)
	}
	var notFound tablestore.ErrNotFound
	if err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("failed to read migration marker: %w", err)
	}

	return s.backfillIndex(ctx)
}

func (s *Store) listFromIndex(ctx context.Context) ([]contracts.ProjectRef, error) {
	entities, err := s.table.Query(ctx, tablestore.Query{
		PartitionKey: MetadataPartition,
		Select:       []string{propProjectKey, propBranch},
		Limit:        s.maxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata partition: %w", err)
	}

	refs := make([]contracts.ProjectRef, 0, len(entities))
	for _, e := range entities {
		ref, ok := entityRef(e)
		if !ok {
			continue // marker row
		}
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs, nil
}

// backfillIndex performs the read-through migration: scan the primary
// table (capped), create the index entries the metadata partition is
// missing, and record completion. A capped scan may be incomplete; in
// that case the marker is not written and the result carries a warning.
func (s *Store) backfillIndex(ctx context.Context) ([]contracts.ProjectRef, error) {
	entities, err := s.table.Query(ctx, tablestore.Query{
		Select: []string{propProjectKey, propBranch},
		Limit:  s.maxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan metrics table: %w", err)
	}

	complete := len(entities) < s.maxRows
	if !complete {
		s.log.Warn("project scan hit the %d row limit; project list may be incomplete", s.maxRows)
	}

	seen := make(map[contracts.ProjectRef]bool)
	var refs []contracts.ProjectRef
	for _, e := range entities {
		if e.PartitionKey == MetadataPartition {
			continue
		}
		ref, ok := entityRef(e)
		if !ok || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)

		pair, err := keys.Derive(ref.ProjectKey, ref.Branch)
		if err != nil {
			s.log.Warn("skipping unindexable identity %s/%s: %v", ref.ProjectKey, ref.Branch, err)
			continue
		}
		if err := s.upsertIndexEntry(ctx, pair, ref); err != nil {
			return nil, fmt.Errorf("failed to backfill index for %s/%s: %w", ref.ProjectKey, ref.Branch, err)
		}
	}

	if complete {
		err := s.table.Upsert(ctx, tablestore.Entity{
			PartitionKey: MetadataPartition,
			RowKey:       MigrationStatusRowKey,
			Properties:   map[string]interface{}{propStatus: migrationComplete},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to write migration marker: %w", err)
		}
	}

	sortRefs(refs)
	return refs, nil
}

// Delete removes the stored rows of one identity. Candidate rows come
// from the derived partition but only rows whose original identity
// properties match are deleted, so an unrelated identity sharing the
// partition is untouched. The metadata index entry survives.
func (s *Store) Delete(ctx context.Context, projectKey, branch string) (int, error) {
	pair, err := keys.Derive(projectKey, branch)
	if err != nil {
		return 0, err
	}

	entities, err := s.table.Query(ctx, tablestore.Query{
		PartitionKey: pair.PartitionKey,
		Filters: []tablestore.Filter{
			{Property: propProjectKey, Op: tablestore.OpEqual, Value: projectKey},
			{Property: propBranch, Op: tablestore.OpEqual, Value: branch},
		},
		Select: []string{propProjectKey, propBranch},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find rows for %s/%s: %w", projectKey, branch, err)
	}

	deleted := 0
	for _, e := range entities {
		if err := s.table.Delete(ctx, e.PartitionKey, e.RowKey); err != nil {
			return deleted, fmt.Errorf("failed to delete row %s/%s: %w", e.PartitionKey, e.RowKey, err)
		}
		deleted++
	}
	return deleted, nil
}

func entityRef(e tablestore.Entity) (contracts.ProjectRef, bool) {
	projectKey, ok := e.Properties[propProjectKey].(string)
	if !ok || projectKey == "" {
		return contracts.ProjectRef{}, false
	}
	branch, _ := e.Properties[propBranch].(string)
	return contracts.ProjectRef{ProjectKey: projectKey, Branch: branch}, true
}

func sortRefs(refs []contracts.ProjectRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ProjectKey != refs[j].ProjectKey {
			return refs[i].ProjectKey < refs[j].ProjectKey
		}
		return refs[i].Branch < refs[j].Branch
	})
}

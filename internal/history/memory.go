package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pps-player/tablewatch/internal/table"
)

// MemoryStore keeps the history in process. It is used for --mock runs and
// tests; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []table.Entry
	nextID  int64
	now     func() time.Time
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{now: o.now, nextID: 1}
}

func (s *MemoryStore) Append(_ context.Context, storeID string, rec table.Record) (table.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := table.Entry{
		ID:         s.nextID,
		StoreID:    storeID,
		IngestedAt: s.now(),
		Record:     rec,
	}
	s.nextID++
	s.entries = append(s.entries, e)
	return e, nil
}

func (s *MemoryStore) Latest(_ context.Context, storeID string) ([]table.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := make(map[string]table.Entry)
	for _, e := range s.entries {
		if e.StoreID != storeID {
			continue
		}
		if prev, ok := latest[e.TableName]; ok && !table.Newer(e, prev) {
			continue
		}
		latest[e.TableName] = e
	}
	result := make([]table.Entry, 0, len(latest))
	for _, e := range latest {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TableName < result[j].TableName })
	return result, nil
}

func (s *MemoryStore) LatestByTable(ctx context.Context, storeID string) (table.Snapshot, error) {
	entries, _ := s.Latest(ctx, storeID)
	return table.SnapshotOf(entries), nil
}

func (s *MemoryStore) History(_ context.Context, storeID, tableName string, limit int) ([]table.Entry, error) {
	s.mu.RLock()
	var result []table.Entry
	for _, e := range s.entries {
		if e.StoreID == storeID && e.TableName == tableName {
			result = append(result, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool { return table.Newer(result[i], result[j]) })
	if limit = clampLimit(limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) Close() error { return nil }

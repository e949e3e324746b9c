package allocation

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps plans in memory for tests and one-shot CLI runs.
type MemoryStore struct {
	mu      sync.Mutex
	plans   map[string]Plan
	records map[string][]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: map[string]Plan{}, records: map[string][]Record{}}
}

// Replace overwrites the plans of every operation in b.
func (s *MemoryStore) Replace(_ context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range b.OperationIDs() {
		delete(s.plans, id)
		delete(s.records, id)
	}
	for _, p := range b.Plans {
		s.plans[p.OperationID] = p
	}
	for _, r := range b.Records {
		s.records[r.OperationID] = append(s.records[r.OperationID], r)
	}
	return nil
}

// Allocations returns matching records ordered by date, cell and start time.
func (s *MemoryStore) Allocations(_ context.Context, q Query) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Record
	for _, recs := range s.records {
		for _, r := range recs {
			if q.Match(r) {
				res = append(res, r)
			}
		}
	}
	SortRecords(res)
	return res, nil
}

// Plan returns the stored plan of an operation.
func (s *MemoryStore) Plan(_ context.Context, operationID string) (Plan, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[operationID]
	return p, ok, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// SortRecords orders records by date, cell, start time and operation.
func SortRecords(recs []Record) {
	slices.SortFunc(recs, func(a, b Record) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		if c := cmp.Compare(a.CellID, b.CellID); c != 0 {
			return c
		}
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.OperationID, b.OperationID)
	})
}

package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/epimine/pkg/epimine/internalerr"
	"github.com/cognicore/epimine/pkg/epimine/process"
	"github.com/cognicore/epimine/pkg/epimine/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]store.Run
	papers  map[string][]store.Paper
	records map[string][]process.Record
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:    make(map[string]store.Run),
		papers:  make(map[string][]store.Paper),
		records: make(map[string][]process.Record),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun implements store.Store. Saving an existing id replaces it.
func (s *Store) SaveRun(ctx context.Context, run store.Run, papers []store.Paper, records []process.Record) error {
	if run.ID == "" {
		return fmt.Errorf("%w: run without id", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ps := make([]store.Paper, len(papers))
	copy(ps, papers)
	sort.Slice(ps, func(i, j int) bool { return ps[i].PaperID < ps[j].PaperID })

	rs := make([]process.Record, len(records))
	for i, r := range records {
		rs[i] = store.CloneRecord(r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].DocumentID < rs[j].DocumentID })

	s.runs[run.ID] = run
	s.papers[run.ID] = ps
	s.records[run.ID] = rs
	return nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return run, nil
}

// ListRuns implements store.Store.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// RunRecords implements store.Store.
func (s *Store) RunRecords(ctx context.Context, id string) ([]process.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[id]; !ok {
		return nil, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	out := make([]process.Record, len(s.records[id]))
	for i, r := range s.records[id] {
		out[i] = store.CloneRecord(r)
	}
	return out, nil
}

// RunPapers implements store.Store.
func (s *Store) RunPapers(ctx context.Context, id string) ([]store.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.runs[id]; !ok {
		return nil, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	out := make([]store.Paper, len(s.papers[id]))
	copy(out, s.papers[id])
	return out, nil
}

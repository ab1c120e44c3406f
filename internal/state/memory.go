package state

import (
	"slices"
	"sync"
	"time"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// MemoryStore keeps results in a map guarded by a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	results map[string]core.StoredResult
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: map[string]core.StoredResult{}}
}

// Put stores res, replacing any entry with the same ID.
func (s *MemoryStore) Put(res core.StoredResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.ID] = res
	return nil
}

// Get returns the result stored under id.
func (s *MemoryStore) Get(id string) (core.StoredResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[id]
	return res, ok, nil
}

// Delete removes id.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, id)
	return nil
}

// Evict drops results finished before cutoff, then the oldest beyond max.
func (s *MemoryStore) Evict(cutoff time.Time, max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, res := range s.results {
		if res.FinishedAt.Before(cutoff) {
			delete(s.results, id)
			removed++
		}
	}

	if max > 0 && len(s.results) > max {
		all := make([]core.StoredResult, 0, len(s.results))
		for _, res := range s.results {
			all = append(all, res)
		}
		slices.SortFunc(all, func(a, b core.StoredResult) int {
			return a.FinishedAt.Compare(b.FinishedAt)
		})
		for _, res := range all[:len(all)-max] {
			delete(s.results, res.ID)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored results.
func (s *MemoryStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results), nil
}

// Close releases all results.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.results)
	return nil
}

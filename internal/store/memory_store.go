package store

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps reviews in-process. It mirrors GormStore semantics
// (monotonic ids, newest-first listing) and backs the app/server tests.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	reviews map[int64]Review
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reviews: make(map[int64]Review)}
}

// CreateReview stores a review and assigns the next id.
func (m *MemoryStore) CreateReview(r Review) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	m.reviews[r.ID] = r
	return r, nil
}

// ListReviews returns reviews newest first, id descending on equal timestamps.
func (m *MemoryStore) ListReviews() ([]Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

// GetReview fetches a review by id.
func (m *MemoryStore) GetReview(id int64) (Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviews[id]
	return r, ok, nil
}

// DeleteReview removes a review; the id is never reassigned.
func (m *MemoryStore) DeleteReview(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

// CountReviews returns the stored review count.
func (m *MemoryStore) CountReviews() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reviews), nil
}

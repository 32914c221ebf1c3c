package category

import (
	"context"
	"sync"
)

// Repository reports how many products each category holds.
type Repository interface {
	Counts(ctx context.Context) (map[string]int, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	counts map[string]int
}

func NewInMemoryRepository(counts map[string]int) *InMemoryRepository {
	copied := make(map[string]int, len(counts))
	for k, v := range counts {
		copied[k] = v
	}
	return &InMemoryRepository{counts: copied}
}

func (r *InMemoryRepository) Counts(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out, nil
}

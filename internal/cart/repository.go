package cart

import (
	"context"
	"sync"
)

type Repository interface {
	Get(ctx context.Context, userID int) (Snapshot, error)
	// Save overwrites the snapshot. A non-nil expectedVersion must match the
	// stored version or ErrVersionConflict is returned.
	Save(ctx context.Context, userID int, items []Item, expectedVersion *int) (Snapshot, error)
}

type InMemoryRepository struct {
	mu    sync.Mutex
	carts map[int]Snapshot
}

// NewInMemoryRepository creates carts for the given user ids.
func NewInMemoryRepository(userIDs ...int) *InMemoryRepository {
	carts := make(map[int]Snapshot, len(userIDs))
	for _, id := range userIDs {
		carts[id] = Snapshot{Items: []Item{}}
	}
	return &InMemoryRepository{carts: carts}
}

func (r *InMemoryRepository) Get(_ context.Context, userID int) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.carts[userID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap.Items = append([]Item{}, snap.Items...)
	return snap, nil
}

func (r *InMemoryRepository) Save(_ context.Context, userID int, items []Item, expectedVersion *int) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.carts[userID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if expectedVersion != nil && *expectedVersion != snap.Version {
		return Snapshot{}, ErrVersionConflict
	}

	next := Snapshot{Items: append([]Item{}, items...), Version: snap.Version + 1}
	r.carts[userID] = next
	return next, nil
}

package favorite

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
)

// Repository stores the favorite product ids on the user row.
type Repository interface {
	Get(ctx context.Context, userID int) ([]int, error)
	Toggle(ctx context.Context, userID, productID int) ([]int, error)
}

type InMemoryRepository struct {
	mu        sync.Mutex
	favorites map[int][]int
}

// NewInMemoryRepository seeds favorites per user id; only seeded users exist.
func NewInMemoryRepository(seed map[int][]int) *InMemoryRepository {
	favs := make(map[int][]int, len(seed))
	for id, ids := range seed {
		favs[id] = append([]int{}, ids...)
	}
	return &InMemoryRepository{favorites: favs}
}

func (r *InMemoryRepository) Get(_ context.Context, userID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.favorites[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]int{}, ids...), nil
}

func (r *InMemoryRepository) Toggle(_ context.Context, userID, productID int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.favorites[userID]
	if !ok {
		return nil, ErrNotFound
	}

	next := make([]int, 0, len(ids)+1)
	removed := false
	for _, id := range ids {
		if id == productID {
			removed = true
			continue
		}
		next = append(next, id)
	}
	if !removed {
		next = append(next, productID)
	}
	r.favorites[userID] = next
	return append([]int{}, next...), nil
}

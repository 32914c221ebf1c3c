package address

import (
	"context"
	"sync"
)

type Repository interface {
	List(ctx context.Context, userID int) ([]Address, error)
	Create(ctx context.Context, addr Address) (Address, error)
	Update(ctx context.Context, addr Address) (Address, error)
	Delete(ctx context.Context, userID, addressID int) error
}

// InMemoryRepository for tests
type InMemoryRepository struct {
	mu     sync.Mutex
	data   []Address
	nextID int
}

func NewInMemoryRepository(seed []Address) *InMemoryRepository {
	repo := &InMemoryRepository{data: append([]Address{}, seed...), nextID: 1}
	for _, a := range seed {
		if a.ID >= repo.nextID {
			repo.nextID = a.ID + 1
		}
	}
	return repo
}

func (r *InMemoryRepository) List(_ context.Context, userID int) ([]Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Address, 0)
	for _, a := range r.data {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, addr Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if addr.IsDefault {
		r.clearDefault(addr.UserID)
	}
	addr.ID = r.nextID
	r.nextID++
	r.data = append(r.data, addr)
	return addr, nil
}

func (r *InMemoryRepository) Update(_ context.Context, addr Address) (Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.data {
		if a.ID == addr.ID && a.UserID == addr.UserID {
			if addr.IsDefault {
				r.clearDefault(addr.UserID)
			}
			addr.CreatedAt = a.CreatedAt
			r.data[i] = addr
			return addr, nil
		}
	}
	return Address{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, userID, addressID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, a := range r.data {
		if a.ID == addressID && a.UserID == userID {
			r.data = append(r.data[:i], r.data[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) clearDefault(userID int) {
	for i := range r.data {
		if r.data[i].UserID == userID {
			r.data[i].IsDefault = false
		}
	}
}

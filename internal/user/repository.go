package user

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	ListPending(ctx context.Context) ([]User, error)
	GetByID(ctx context.Context, id int) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id int) error
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	users  []User
	nextID int
}

func NewInMemoryRepository(seed []User) *InMemoryRepository {
	repo := &InMemoryRepository{
		users:  make([]User, 0, len(seed)),
		nextID: 1,
	}

	maxID := 0
	for _, user := range seed {
		repo.users = append(repo.users, user)
		if user.ID > maxID {
			maxID = user.ID
		}
	}

	repo.nextID = maxID + 1
	return repo
}

func (r *InMemoryRepository) List(_ context.Context, filter ListFilter) ([]User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filter = filter.normalized()
	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))

	matched := make([]User, 0, len(r.users))
	for _, user := range r.users {
		if keyword != "" &&
			!strings.Contains(strings.ToLower(user.Name), keyword) &&
			!strings.Contains(user.Email, keyword) {
			continue
		}
		matched = append(matched, user)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	start := filter.offset()
	if start >= total {
		return []User{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *InMemoryRepository) ListPending(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]User, 0)
	for _, user := range r.users {
		if !user.IsApproved {
			pending = append(pending, user)
		}
	}
	return pending, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.ID == id {
			return user, nil
		}
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return User{}, ErrEmailExists
		}
	}

	if user.ID == 0 {
		user.ID = r.nextID
		r.nextID++
	}

	r.users = append(r.users, user)
	return user, nil
}

func (r *InMemoryRepository) Update(_ context.Context, update User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID != update.ID {
			continue
		}
		for _, other := range r.users {
			if other.ID != update.ID && other.Email == update.Email {
				return User{}, ErrEmailExists
			}
		}
		if update.Password == "" {
			update.Password = user.Password
		}
		update.CreatedAt = user.CreatedAt
		r.users[i] = update
		return update, nil
	}

	return User{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, user := range r.users {
		if user.ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}

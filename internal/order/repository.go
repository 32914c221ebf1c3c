package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, ord Order) (Order, error)
	GetByID(ctx context.Context, id int) (Order, error)
	ListByUser(ctx context.Context, userID int) ([]Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	// Update persists the mutable lifecycle fields: status, payment result,
	// gateway order id, paid/delivered timestamps.
	Update(ctx context.Context, ord Order) (Order, error)
	// DeleteUnpaid removes an order that has no payment result.
	DeleteUnpaid(ctx context.Context, id int) error
	// DeleteStalePending removes unpaid gateway orders still Placed that were
	// created before cutoff, returning what it removed.
	DeleteStalePending(ctx context.Context, cutoff time.Time) ([]Order, error)
}

type InMemoryRepository struct {
	mu     sync.Mutex
	orders []Order
	nextID int
	// FailDeletes makes DeleteUnpaid fail, standing in for a dropped request.
	FailDeletes error
}

func NewInMemoryRepository(seed []Order) *InMemoryRepository {
	repo := &InMemoryRepository{orders: append([]Order{}, seed...), nextID: 1}
	for _, o := range seed {
		if o.ID >= repo.nextID {
			repo.nextID = o.ID + 1
		}
	}
	return repo
}

func (r *InMemoryRepository) Create(_ context.Context, ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ord.ID = r.nextID
	r.nextID++
	r.orders = append(r.orders, ord)
	return ord, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) ListByUser(_ context.Context, userID int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.User == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) List(_ context.Context, filter ListFilter) ([]Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	filter = filter.normalized()
	matched := make([]Order, 0)
	for _, o := range r.orders {
		if filter.UserID != 0 && o.User != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	start := filter.offset()
	if start >= total {
		return []Order{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *InMemoryRepository) Update(_ context.Context, ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, o := range r.orders {
		if o.ID == ord.ID {
			o.Status = ord.Status
			o.PaymentResult = ord.PaymentResult
			o.GatewayOrderID = ord.GatewayOrderID
			o.PaidAt = ord.PaidAt
			o.DeliveredAt = ord.DeliveredAt
			o.UpdatedAt = ord.UpdatedAt
			r.orders[i] = o
			return o, nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) DeleteUnpaid(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailDeletes != nil {
		return r.FailDeletes
	}
	for i, o := range r.orders {
		if o.ID == id {
			if o.IsPaid() {
				return ErrAlreadyPaid
			}
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *InMemoryRepository) DeleteStalePending(_ context.Context, cutoff time.Time) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.orders[:0]
	removed := make([]Order, 0)
	for _, o := range r.orders {
		if isStalePending(o, cutoff) {
			removed = append(removed, o)
			continue
		}
		kept = append(kept, o)
	}
	r.orders = kept
	return removed, nil
}

func isStalePending(o Order, cutoff time.Time) bool {
	return o.PaymentMethod == MethodRazorpay &&
		o.Status == StatusPlaced &&
		!o.IsPaid() &&
		o.CreatedAt.Before(cutoff)
}

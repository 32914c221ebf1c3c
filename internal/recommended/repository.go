package recommended

import (
	"context"
	"sort"
	"sync"

	"github.com/wichananm65/chocolate-shop-backend/internal/product"
)

// Repository returns products ordered by rating, best first.
type Repository interface {
	Top(ctx context.Context, limit int) ([]product.Product, error)
}

type InMemoryRepository struct {
	mu       sync.RWMutex
	products []product.Product
}

func NewInMemoryRepository(seed []product.Product) *InMemoryRepository {
	return &InMemoryRepository{products: append([]product.Product{}, seed...)}
}

func (r *InMemoryRepository) Top(_ context.Context, limit int) ([]product.Product, error) {
	r.mu.RLock()
	sorted := append([]product.Product{}, r.products...)
	r.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Rating != sorted[j].Rating {
			return sorted[i].Rating > sorted[j].Rating
		}
		if sorted[i].NumReviews != sorted[j].NumReviews {
			return sorted[i].NumReviews > sorted[j].NumReviews
		}
		return sorted[i].ID < sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

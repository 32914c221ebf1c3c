package category

import (
	"context"

	"github.com/wichananm65/chocolate-shop-backend/internal/product"
)

// Service provides business logic for categories.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

// List returns every allowed category in display order, including empty ones.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(product.AllowedCategories))
	for _, name := range product.AllowedCategories {
		items = append(items, Item{Name: name, ProductCount: counts[name]})
	}
	return items, nil
}

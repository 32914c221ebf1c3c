package favorite

import (
	"context"
	"errors"
	"slices"

	"github.com/wichananm65/chocolate-shop-backend/internal/product"
)

// Catalog resolves product ids; product.Service satisfies it.
type Catalog interface {
	GetByID(ctx context.Context, id int) (product.Product, error)
	GetByIDs(ctx context.Context, ids []int) ([]product.Product, error)
}

type Service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// List returns the user's favorite products. Ids whose product has since
// been deleted are skipped.
func (s *Service) List(ctx context.Context, userID int) ([]product.Product, error) {
	ids, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.catalog.GetByIDs(ctx, ids)
}

// Toggle adds productID to the favorites or removes it when already present.
// Only additions are checked against the catalog, so ids of deleted products
// can still be removed.
func (s *Service) Toggle(ctx context.Context, userID, productID int) ([]int, error) {
	ids, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(ids, productID) {
		return s.repo.Toggle(ctx, userID, productID)
	}

	if _, err := s.catalog.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return s.repo.Toggle(ctx, userID, productID)
}

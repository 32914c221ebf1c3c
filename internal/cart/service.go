package cart

import (
	"context"
	"fmt"
	"strings"
)

// Service orchestrates cart operations.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, userID int) (Snapshot, error) {
	return s.repo.Get(ctx, userID)
}

// Replace overwrites the stored snapshot wholesale. Without expectedVersion
// the last writer wins.
func (s *Service) Replace(ctx context.Context, userID int, items []Item, expectedVersion *int) (Snapshot, error) {
	if err := validateItems(items); err != nil {
		return Snapshot{}, err
	}
	return s.repo.Save(ctx, userID, items, expectedVersion)
}

func validateItems(items []Item) error {
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.Product == nil && strings.TrimSpace(item.CustomKey) == "" {
			return fmt.Errorf("%w: item %d needs a product or customKey", ErrValidation, i)
		}
		if item.Qty < 1 {
			return fmt.Errorf("%w: item %d has qty %d", ErrValidation, i, item.Qty)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: item %d has a negative price", ErrValidation, i)
		}
		if seen[item.Key()] {
			return fmt.Errorf("%w: item %d is a duplicate", ErrValidation, i)
		}
		seen[item.Key()] = true
	}
	return nil
}

package recommended

import "context"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Top returns up to limit picks; out-of-range limits fall back to the
// default or the maximum.
func (s *Service) Top(ctx context.Context, limit int) ([]Item, error) {
	products, err := s.repo.Top(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, fromProduct(p))
	}
	return items, nil
}

package product

import (
	"context"
	"strings"
	"time"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter Filter) (Page, error) {
	filter = filter.normalized()
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Products: products,
		Page:     filter.Page,
		Pages:    (total + filter.PageSize - 1) / filter.PageSize,
		Total:    total,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id int) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByIDs(ctx context.Context, ids []int) ([]Product, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// Create stores a product owned by the admin with id adminID.
func (s *Service) Create(ctx context.Context, adminID int, p Product) (Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := validate(p); err != nil {
		return Product{}, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	now := s.now().UTC()
	p.ID = 0
	p.User = &adminID
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id int, p Product) (Product, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}

	p.Name = strings.TrimSpace(p.Name)
	if err := validate(p); err != nil {
		return Product{}, err
	}
	if p.Images == nil {
		p.Images = existing.Images
	}
	p.ID = id
	p.User = existing.User
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now().UTC()
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

package address

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Input is the client-editable part of an address.
type Input struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	IsDefault  bool   `json:"isDefault"`
}

func (in Input) validate() error {
	missing := make([]string, 0)
	fields := []struct{ name, value string }{
		{"street", in.Street},
		{"city", in.City},
		{"postalCode", in.PostalCode},
		{"country", in.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, userID int) ([]Address, error) {
	return s.repo.List(ctx, userID)
}

// Add saves a new address. The first address a user saves becomes the default.
func (s *Service) Add(ctx context.Context, userID int, in Input) (Address, error) {
	if err := in.validate(); err != nil {
		return Address{}, err
	}
	existing, err := s.repo.List(ctx, userID)
	if err != nil {
		return Address{}, err
	}

	now := s.now().UTC()
	return s.repo.Create(ctx, Address{
		UserID:     userID,
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
		Phone:      strings.TrimSpace(in.Phone),
		IsDefault:  in.IsDefault || len(existing) == 0,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (s *Service) Update(ctx context.Context, userID, addressID int, in Input) (Address, error) {
	if err := in.validate(); err != nil {
		return Address{}, err
	}
	return s.repo.Update(ctx, Address{
		ID:         addressID,
		UserID:     userID,
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
		Phone:      strings.TrimSpace(in.Phone),
		IsDefault:  in.IsDefault,
		UpdatedAt:  s.now().UTC(),
	})
}

func (s *Service) Delete(ctx context.Context, userID, addressID int) error {
	return s.repo.Delete(ctx, userID, addressID)
}

package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	IsAdminRequest bool
}

type ProfileUpdate struct {
	Name     *string
	Email    *string
	Password *string
}

type AdminUpdate struct {
	Name    *string
	Email   *string
	IsAdmin *bool
}

type Service struct {
	repo   Repository
	tokens *TokenIssuer
	cost   int
	now    func() time.Time
}

func NewService(repo Repository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens, cost: bcrypt.DefaultCost, now: time.Now}
}

// Register creates an account. Admin requests are parked unapproved and get
// no token; everyone else is approved and signed in immediately.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, string, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return User{}, "", fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if len(input.Password) < 6 {
		return User{}, "", fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, "", ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, "", err
	}

	hashed, err := s.hash(input.Password)
	if err != nil {
		return User{}, "", err
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, User{
		Name:           name,
		Email:          email,
		Password:       hashed,
		IsApproved:     !input.IsAdminRequest,
		AdminRequested: input.IsAdminRequest,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return User{}, "", err
	}

	if input.IsAdminRequest {
		logger.Info().Int("user_id", created.ID).Msg("admin access requested")
		return created, "", nil
	}

	token, err := s.tokens.Issue(created)
	if err != nil {
		return User{}, "", err
	}
	return created, token, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, string, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return User{}, "", ErrInvalidCredentials
	}
	if !user.IsApproved {
		return User{}, "", ErrPendingApproval
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

func (s *Service) GetByID(ctx context.Context, id int) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) ListPending(ctx context.Context) ([]User, error) {
	return s.repo.ListPending(ctx)
}

// UpdateProfile applies self-service changes and returns a fresh token so
// the email claim stays current.
func (s *Service) UpdateProfile(ctx context.Context, id int, update ProfileUpdate) (User, string, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, "", err
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return User{}, "", fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		if err := s.applyEmail(ctx, &user, *update.Email); err != nil {
			return User{}, "", err
		}
	}
	user.Password = ""
	if update.Password != nil && *update.Password != "" {
		if len(*update.Password) < 6 {
			return User{}, "", fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
		}
		if user.Password, err = s.hash(*update.Password); err != nil {
			return User{}, "", err
		}
	}
	user.UpdatedAt = s.now().UTC()

	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return User{}, "", err
	}
	token, err := s.tokens.Issue(updated)
	if err != nil {
		return User{}, "", err
	}
	return updated, token, nil
}

func (s *Service) AdminUpdate(ctx context.Context, id int, update AdminUpdate) (User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		if err := s.applyEmail(ctx, &user, *update.Email); err != nil {
			return User{}, err
		}
	}
	if update.IsAdmin != nil {
		user.IsAdmin = *update.IsAdmin
	}
	user.Password = ""
	user.UpdatedAt = s.now().UTC()

	return s.repo.Update(ctx, user)
}

// ApproveOrReject settles a pending account. Rejection removes the account.
func (s *Service) ApproveOrReject(ctx context.Context, id int, action string, makeAdmin bool) (User, error) {
	switch action {
	case ActionApprove:
		user, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return User{}, err
		}
		user.IsApproved = true
		if makeAdmin {
			user.IsAdmin = true
		}
		user.AdminRequested = false
		user.Password = ""
		user.UpdatedAt = s.now().UTC()
		return s.repo.Update(ctx, user)
	case ActionReject:
		if err := s.repo.Delete(ctx, id); err != nil {
			return User{}, err
		}
		logger.Info().Int("user_id", id).Msg("account request rejected")
		return User{}, nil
	default:
		return User{}, fmt.Errorf("%w: action must be %q or %q", ErrValidation, ActionApprove, ActionReject)
	}
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) applyEmail(ctx context.Context, user *User, raw string) error {
	email := normalizeEmail(raw)
	if email == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrValidation)
	}
	if email == user.Email {
		return nil
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	user.Email = email
	return nil
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrPendingApproval    = errors.New("account is pending admin approval")
	ErrValidation         = errors.New("validation failed")
	ErrHasOrders          = errors.New("user has orders")
)

type User struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Password       string    `json:"password,omitempty"`
	IsAdmin        bool      `json:"isAdmin"`
	IsApproved     bool      `json:"isApproved"`
	AdminRequested bool      `json:"adminRequested"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ListFilter narrows the admin user listing.
type ListFilter struct {
	Keyword  string
	Page     int
	PageSize int
}

func (f ListFilter) normalized() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}
	return f
}

func (f ListFilter) offset() int {
	return (f.Page - 1) * f.PageSize
}

func sanitizeUser(user User) User {
	user.Password = ""
	return user
}

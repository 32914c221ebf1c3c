package address

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("address not found")
	ErrValidation = errors.New("invalid address")
)

// Address is a saved shipping address. At most one per user is the default.
type Address struct {
	ID         int       `json:"id"`
	UserID     int       `json:"userId"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postalCode"`
	Country    string    `json:"country"`
	Phone      string    `json:"phone"`
	IsDefault  bool      `json:"isDefault"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

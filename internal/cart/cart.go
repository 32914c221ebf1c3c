package cart

import (
	"encoding/json"
	"errors"
	"strconv"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrValidation      = errors.New("invalid cart")
	ErrVersionConflict = errors.New("cart was changed by another session")
)

// Item is one line of a cart snapshot. Catalog items carry a product id;
// configurator items carry a CustomKey and their customization payload.
type Item struct {
	Product       *int            `json:"product,omitempty"`
	CustomKey     string          `json:"customKey,omitempty"`
	Name          string          `json:"name"`
	Price         float64         `json:"price"`
	Image         string          `json:"image"`
	Qty           int             `json:"qty"`
	CountInStock  int             `json:"countInStock"`
	Customization json.RawMessage `json:"customization,omitempty"`
}

// Key identifies the line within a cart.
func (i Item) Key() string {
	if i.Product != nil {
		return "product:" + strconv.Itoa(*i.Product)
	}
	return "custom:" + i.CustomKey
}

// Snapshot is the server copy of a user's cart. Version increases on every write.
type Snapshot struct {
	Items   []Item `json:"cartItems"`
	Version int    `json:"version"`
}

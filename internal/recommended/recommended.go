// Package recommended serves the top-rated products shown as storefront picks.
package recommended

import "github.com/wichananm65/chocolate-shop-backend/internal/product"

const (
	DefaultLimit = 3
	MaxLimit     = 20
)

// Item is a product as listed among the picks.
type Item struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Price        float64  `json:"price"`
	Rating       float64  `json:"rating"`
	NumReviews   int      `json:"numReviews"`
	Images       []string `json:"images"`
	IsBestseller bool     `json:"isBestseller"`
}

func fromProduct(p product.Product) Item {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return Item{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Price:        p.Price,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		Images:       images,
		IsBestseller: p.IsBestseller,
	}
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

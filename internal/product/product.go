package product

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("product not found")
	ErrValidation = errors.New("invalid product")
)

// Product maps to the `products` table.
type Product struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	CountInStock int       `json:"countInStock"`
	Rating       float64   `json:"rating"`
	NumReviews   int       `json:"numReviews"`
	Images       []string  `json:"images"`
	IsBestseller bool      `json:"isBestseller"`
	User         *int      `json:"user"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AllowedCategories contains the supported product categories used across the app.
var AllowedCategories = []string{
	"Dark Chocolate",
	"Milk Chocolate",
	"White Chocolate",
	"Truffles",
	"Pralines",
	"Bars",
	"Gift Boxes",
	"Seasonal",
}

// Filter narrows catalog listings. Zero values mean "no constraint".
type Filter struct {
	Keyword    string
	Category   string
	Bestseller bool
	Page       int
	PageSize   int
}

func (f Filter) normalized() Filter {
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Category = strings.TrimSpace(f.Category)
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 12
	}
	return f
}

func (f Filter) offset() int {
	return (f.Page - 1) * f.PageSize
}

// Page is one slice of a filtered listing.
type Page struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Total    int       `json:"total"`
}

// ValidationErrors collects field level problems.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field, msg := range v {
		fields = append(fields, field+": "+msg)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(fields, "; "))
}

func (v ValidationErrors) Unwrap() error { return ErrValidation }

func validate(p Product) error {
	errs := ValidationErrors{}
	if strings.TrimSpace(p.Name) == "" {
		errs["name"] = "name is required"
	}
	if p.Price < 0 {
		errs["price"] = "price must be >= 0"
	}
	if p.CountInStock < 0 {
		errs["countInStock"] = "countInStock must be >= 0"
	}
	if p.Rating < 0 || p.Rating > 5 {
		errs["rating"] = "rating must be between 0 and 5"
	}
	if p.NumReviews < 0 {
		errs["numReviews"] = "numReviews must be >= 0"
	}
	if !IsAllowedCategory(p.Category) {
		errs["category"] = "invalid category"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func IsAllowedCategory(name string) bool {
	for _, c := range AllowedCategories {
		if name == c {
			return true
		}
	}
	return false
}

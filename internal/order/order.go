package order

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("order not found")
	ErrValidation       = errors.New("invalid order")
	ErrForbidden        = errors.New("not allowed to access this order")
	ErrAlreadyPaid      = errors.New("order is already paid")
	ErrNotCancellable   = errors.New("order can no longer be cancelled")
	ErrInvalidSignature = errors.New("payment signature mismatch")
)

type Status string

const (
	StatusPlaced     Status = "Placed"
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

var statuses = []Status{StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus accepts only the five known statuses.
func ParseStatus(raw string) (Status, bool) {
	for _, s := range statuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

// Cancellable reports whether a customer may still cancel.
func (s Status) Cancellable() bool {
	return s == StatusPlaced || s == StatusProcessing
}

type PaymentMethod string

const (
	MethodCOD      PaymentMethod = "COD"
	MethodRazorpay PaymentMethod = "Razorpay"
)

func (m PaymentMethod) valid() bool {
	return m == MethodCOD || m == MethodRazorpay
}

// Item is a snapshot of a cart line. Product is nil for configurator items.
type Item struct {
	Name          string          `json:"name"`
	Qty           int             `json:"qty"`
	Image         string          `json:"image"`
	Price         float64         `json:"price"`
	Product       *int            `json:"product"`
	Customization json.RawMessage `json:"customization,omitempty"`
}

type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type Order struct {
	ID              int             `json:"id"`
	User            int             `json:"user"`
	Items           []Item          `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ItemsPrice      float64         `json:"itemsPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	Status          Status          `json:"status"`
	PaymentResult   *PaymentResult  `json:"paymentResult"`
	GatewayOrderID  string          `json:"gatewayOrderId,omitempty"`
	PaidAt          *time.Time      `json:"paidAt"`
	DeliveredAt     *time.Time      `json:"deliveredAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// IsPaid is derived from the payment result; there is no stored flag.
func (o Order) IsPaid() bool {
	return o.PaymentResult != nil
}

func (o Order) IsDelivered() bool {
	return o.Status == StatusDelivered
}

// MarshalJSON adds the read-only isPaid and isDelivered views.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		IsPaid      bool `json:"isPaid"`
		IsDelivered bool `json:"isDelivered"`
	}{plain(o), o.IsPaid(), o.IsDelivered()})
}

// ListFilter narrows the admin order listing.
type ListFilter struct {
	UserID   int
	Status   Status
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

package order

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wichananm65/chocolate-shop-backend/internal/events"
	"github.com/wichananm65/chocolate-shop-backend/internal/payment"
	"github.com/wichananm65/chocolate-shop-backend/internal/pricing"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "order").Logger()

// Gateway is the slice of the payment client the order flow needs.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (payment.GatewayOrder, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
}

type Options struct {
	StrictPricing   bool
	Currency        string
	VerifySignature bool
}

// Caller identifies who is acting on an order, as read from the token claims.
type Caller struct {
	UserID  int
	IsAdmin bool
}

func (c Caller) canAccess(ord Order) bool {
	return c.IsAdmin || ord.User == c.UserID
}

type CreateInput struct {
	Items           []Item          `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ItemsPrice      float64         `json:"itemsPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TotalPrice      float64         `json:"totalPrice"`
}

type PaymentInput struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
	Signature    string `json:"signature"`
}

type Page struct {
	Orders []Order `json:"orders"`
	Page   int     `json:"page"`
	Pages  int     `json:"pages"`
	Total  int     `json:"total"`
}

type Service struct {
	repo      Repository
	gateway   Gateway
	publisher events.Publisher
	opts      Options
	now       func() time.Time
}

func NewService(repo Repository, gateway Gateway, publisher events.Publisher, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new Placed order. Identical payloads produce distinct orders.
func (s *Service) Create(ctx context.Context, userID int, in CreateInput) (Order, error) {
	if err := validateCreate(in); err != nil {
		return Order{}, err
	}

	if s.opts.StrictPricing {
		lines := make([]pricing.Line, 0, len(in.Items))
		for _, item := range in.Items {
			lines = append(lines, pricing.Line{Price: item.Price, Qty: item.Qty})
		}
		claimed := pricing.Breakdown{
			ItemsPrice:    in.ItemsPrice,
			TaxPrice:      in.TaxPrice,
			ShippingPrice: in.ShippingPrice,
			TotalPrice:    in.TotalPrice,
		}
		if err := pricing.Verify(lines, claimed); err != nil {
			return Order{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	now := s.now()
	created, err := s.repo.Create(ctx, Order{
		User:            userID,
		Items:           in.Items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ItemsPrice:      in.ItemsPrice,
		TaxPrice:        in.TaxPrice,
		ShippingPrice:   in.ShippingPrice,
		TotalPrice:      in.TotalPrice,
		Status:          StatusPlaced,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return Order{}, err
	}

	s.emit(ctx, events.OrderCreated, created)
	logger.Info().Int("order_id", created.ID).Int("user_id", userID).Str("method", string(created.PaymentMethod)).Msg("order placed")
	return created, nil
}

func validateCreate(in CreateInput) error {
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: no order items", ErrValidation)
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", ErrValidation, i)
		}
		if item.Qty < 1 {
			return fmt.Errorf("%w: item %d quantity must be at least 1", ErrValidation, i)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: item %d price must not be negative", ErrValidation, i)
		}
	}
	if !in.PaymentMethod.valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}

	addr := in.ShippingAddress
	required := []struct {
		name  string
		value string
	}{
		{"street", addr.Street},
		{"city", addr.City},
		{"postalCode", addr.PostalCode},
		{"country", addr.Country},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: shipping address %s is required", ErrValidation, field.name)
		}
	}

	if in.ItemsPrice < 0 || in.TaxPrice < 0 || in.ShippingPrice < 0 || in.TotalPrice < 0 {
		return fmt.Errorf("%w: prices must not be negative", ErrValidation)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, caller Caller, id int) (Order, error) {
	ord, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !caller.canAccess(ord) {
		return Order{}, ErrForbidden
	}
	return ord, nil
}

func (s *Service) ListMine(ctx context.Context, userID int) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) (Page, error) {
	filter = filter.normalized()
	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	pages := (total + filter.PageSize - 1) / filter.PageSize
	return Page{Orders: orders, Page: filter.Page, Pages: pages, Total: total}, nil
}

// CreateGatewayOrder opens a payment handle for the stored total and
// remembers its id on the order.
func (s *Service) CreateGatewayOrder(ctx context.Context, caller Caller, id int) (payment.GatewayOrder, error) {
	ord, err := s.Get(ctx, caller, id)
	if err != nil {
		return payment.GatewayOrder{}, err
	}
	if ord.IsPaid() {
		return payment.GatewayOrder{}, ErrAlreadyPaid
	}
	if ord.Status == StatusCancelled {
		return payment.GatewayOrder{}, fmt.Errorf("%w: order is cancelled", ErrValidation)
	}
	if s.gateway == nil {
		return payment.GatewayOrder{}, fmt.Errorf("%w: payment gateway is not configured", payment.ErrUpstream)
	}

	amount := decimal.NewFromFloat(ord.TotalPrice).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	handle, err := s.gateway.CreateOrder(ctx, amount, s.opts.Currency, "order_"+strconv.Itoa(ord.ID))
	if err != nil {
		logger.Error().Err(err).Int("order_id", ord.ID).Msg("gateway order creation failed")
		return payment.GatewayOrder{}, err
	}

	ord.GatewayOrderID = handle.ID
	ord.UpdatedAt = s.now()
	if _, err := s.repo.Update(ctx, ord); err != nil {
		return payment.GatewayOrder{}, err
	}
	return handle, nil
}

// MarkPaid records the payment confirmation.
func (s *Service) MarkPaid(ctx context.Context, caller Caller, id int, in PaymentInput) (Order, error) {
	ord, err := s.Get(ctx, caller, id)
	if err != nil {
		return Order{}, err
	}
	if ord.IsPaid() {
		return Order{}, ErrAlreadyPaid
	}
	if ord.Status == StatusCancelled {
		return Order{}, fmt.Errorf("%w: order is cancelled", ErrValidation)
	}
	if strings.TrimSpace(in.ID) == "" {
		return Order{}, fmt.Errorf("%w: payment id is required", ErrValidation)
	}
	if s.opts.VerifySignature && ord.PaymentMethod == MethodRazorpay {
		if s.gateway == nil || ord.GatewayOrderID == "" || !s.gateway.VerifySignature(ord.GatewayOrderID, in.ID, in.Signature) {
			logger.Warn().Int("order_id", ord.ID).Msg("payment signature rejected")
			return Order{}, ErrInvalidSignature
		}
	}

	now := s.now()
	ord.PaymentResult = &PaymentResult{
		ID:           in.ID,
		Status:       in.Status,
		UpdateTime:   in.UpdateTime,
		EmailAddress: in.EmailAddress,
	}
	ord.PaidAt = &now
	ord.UpdatedAt = now

	updated, err := s.repo.Update(ctx, ord)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, events.OrderPaid, updated)
	return updated, nil
}

// UpdateStatus sets any known status. There is no transition guard.
func (s *Service) UpdateStatus(ctx context.Context, id int, raw string) (Order, error) {
	status, ok := ParseStatus(raw)
	if !ok {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
	}

	ord, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	ord.Status = status
	if status == StatusDelivered {
		ord.DeliveredAt = &now
	} else {
		ord.DeliveredAt = nil
	}
	ord.UpdatedAt = now

	updated, err := s.repo.Update(ctx, ord)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, events.OrderStatus, updated)
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, caller Caller, id int) (Order, error) {
	ord, err := s.Get(ctx, caller, id)
	if err != nil {
		return Order{}, err
	}
	if !ord.Status.Cancellable() {
		return Order{}, ErrNotCancellable
	}

	ord.Status = StatusCancelled
	ord.DeliveredAt = nil
	ord.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, ord)
	if err != nil {
		return Order{}, err
	}
	s.emit(ctx, events.OrderCancelled, updated)
	return updated, nil
}

// Delete removes an unpaid order. Paid orders are kept.
func (s *Service) Delete(ctx context.Context, caller Caller, id int) error {
	ord, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	if ord.IsPaid() {
		return ErrAlreadyPaid
	}
	if err := s.repo.DeleteUnpaid(ctx, id); err != nil {
		return err
	}
	s.emit(ctx, events.OrderDeleted, ord)
	return nil
}

// ExpireStalePending deletes unpaid gateway orders older than ttl.
func (s *Service) ExpireStalePending(ctx context.Context, ttl time.Duration) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	removed, err := s.repo.DeleteStalePending(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	for _, ord := range removed {
		s.emit(ctx, events.OrderExpired, ord)
	}
	return len(removed), nil
}

func (s *Service) emit(ctx context.Context, eventType string, ord Order) {
	event := events.New(eventType, ord.ID, ord.User)
	event.Status = string(ord.Status)
	event.TotalPrice = ord.TotalPrice
	events.Emit(ctx, s.publisher, event)
}

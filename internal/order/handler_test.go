package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/chocolate-shop-backend/internal/events"
	"github.com/wichananm65/chocolate-shop-backend/internal/payment"
)

const orderBody = `{
	"orderItems": [
		{"name": "Sea Salt Dark Bar", "qty": 2, "image": "bar.jpg", "price": 250, "product": 1},
		{"name": "Custom Box", "qty": 1, "image": "box.jpg", "price": 400, "product": null, "customization": {"shape": "heart"}}
	],
	"shippingAddress": {"street": "12 Cocoa Lane", "city": "Pune", "postalCode": "411001", "country": "India"},
	"paymentMethod": "%s",
	"itemsPrice": 900,
	"taxPrice": 162,
	"shippingPrice": 100,
	"totalPrice": 1162
}`

type fakeGateway struct {
	secret string
	err    error
	calls  int
	amount int64
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (payment.GatewayOrder, error) {
	g.calls++
	g.amount = amount
	if g.err != nil {
		return payment.GatewayOrder{}, g.err
	}
	return payment.GatewayOrder{ID: "order_gw_" + strconv.Itoa(g.calls), Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}, nil
}

func (g *fakeGateway) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	return payment.Sign(g.secret, gatewayOrderID, paymentID) == signature
}

func makeApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				claims := jwt.MapClaims{"user_id": id, "is_admin": c.Get("X-Admin") == "true"}
				c.Locals("user", &jwt.Token{Claims: claims})
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

type fixture struct {
	app     *fiber.App
	repo    *InMemoryRepository
	gateway *fakeGateway
	pub     *events.MemoryPublisher
}

func newFixture(opts Options) *fixture {
	repo := NewInMemoryRepository(nil)
	gw := &fakeGateway{secret: "rzp-secret"}
	pub := &events.MemoryPublisher{}
	svc := NewService(repo, gw, pub, opts)
	return &fixture{app: makeApp(NewHandler(svc)), repo: repo, gateway: gw, pub: pub}
}

func send(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func asUser(id int) map[string]string {
	return map[string]string{"X-User-ID": strconv.Itoa(id)}
}

func asAdmin(id int) map[string]string {
	return map[string]string{"X-User-ID": strconv.Itoa(id), "X-Admin": "true"}
}

func decodeOrder(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func placeOrder(t *testing.T, f *fixture, userID int, method string) int {
	t.Helper()
	status, body := send(t, f.app, "POST", "/api/orders", fmt.Sprintf(orderBody, method), asUser(userID))
	require.Equal(t, fiber.StatusCreated, status, body)
	return int(decodeOrder(t, body)["id"].(float64))
}

func TestCreateOrder_IdenticalPayloadsAreDistinct(t *testing.T) {
	f := newFixture(Options{})

	first := placeOrder(t, f, 7, "COD")
	second := placeOrder(t, f, 7, "COD")
	assert.NotEqual(t, first, second)

	orders, _ := f.repo.ListByUser(context.Background(), 7)
	assert.Len(t, orders, 2)
	assert.Len(t, f.pub.Events(), 2)
}

func TestCreateOrder_ResponseShape(t *testing.T) {
	f := newFixture(Options{})

	status, body := send(t, f.app, "POST", "/api/orders", fmt.Sprintf(orderBody, "COD"), asUser(7))
	require.Equal(t, fiber.StatusCreated, status)

	got := decodeOrder(t, body)
	assert.Equal(t, "Placed", got["status"])
	assert.Equal(t, false, got["isPaid"])
	assert.Equal(t, false, got["isDelivered"])
	assert.Nil(t, got["paymentResult"])

	items := got["orderItems"].([]any)
	custom := items[1].(map[string]any)
	assert.Nil(t, custom["product"])
	assert.Equal(t, map[string]any{"shape": "heart"}, custom["customization"])
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(Options{})

	cases := map[string]string{
		"empty items":    `{"orderItems": [], "paymentMethod": "COD", "shippingAddress": {"street": "a", "city": "b", "postalCode": "c", "country": "d"}}`,
		"zero qty":       `{"orderItems": [{"name": "Bar", "qty": 0, "price": 10}], "paymentMethod": "COD", "shippingAddress": {"street": "a", "city": "b", "postalCode": "c", "country": "d"}}`,
		"bad method":     `{"orderItems": [{"name": "Bar", "qty": 1, "price": 10}], "paymentMethod": "Cheque", "shippingAddress": {"street": "a", "city": "b", "postalCode": "c", "country": "d"}}`,
		"missing city":   `{"orderItems": [{"name": "Bar", "qty": 1, "price": 10}], "paymentMethod": "COD", "shippingAddress": {"street": "a", "postalCode": "c", "country": "d"}}`,
		"negative price": `{"orderItems": [{"name": "Bar", "qty": 1, "price": -1}], "paymentMethod": "COD", "shippingAddress": {"street": "a", "city": "b", "postalCode": "c", "country": "d"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, _ := send(t, f.app, "POST", "/api/orders", body, asUser(7))
			assert.Equal(t, fiber.StatusBadRequest, status)
		})
	}
}

func TestCreateOrder_StrictPricingRejectsTamperedTotals(t *testing.T) {
	f := newFixture(Options{StrictPricing: true})

	tampered := strings.Replace(fmt.Sprintf(orderBody, "COD"), `"totalPrice": 1162`, `"totalPrice": 1`, 1)
	status, body := send(t, f.app, "POST", "/api/orders", tampered, asUser(7))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "totalPrice")

	status, _ = send(t, f.app, "POST", "/api/orders", fmt.Sprintf(orderBody, "COD"), asUser(7))
	assert.Equal(t, fiber.StatusCreated, status)
}

func TestCreateOrder_RequiresUser(t *testing.T) {
	f := newFixture(Options{})
	status, _ := send(t, f.app, "POST", "/api/orders", fmt.Sprintf(orderBody, "COD"), nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestGetOrder_OwnerOrAdminOnly(t *testing.T) {
	f := newFixture(Options{})
	id := placeOrder(t, f, 7, "COD")
	path := "/api/orders/" + strconv.Itoa(id)

	status, _ := send(t, f.app, "GET", path, "", asUser(7))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = send(t, f.app, "GET", path, "", asUser(8))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = send(t, f.app, "GET", path, "", asAdmin(1))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = send(t, f.app, "GET", "/api/orders/999", "", asAdmin(1))
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestMyOrdersAndAdminList(t *testing.T) {
	f := newFixture(Options{})
	placeOrder(t, f, 7, "COD")
	placeOrder(t, f, 8, "COD")
	placeOrder(t, f, 7, "Razorpay")

	status, body := send(t, f.app, "GET", "/api/orders/myorders", "", asUser(7))
	require.Equal(t, fiber.StatusOK, status)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &mine))
	assert.Len(t, mine, 2)

	status, _ = send(t, f.app, "GET", "/api/orders", "", asUser(7))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = send(t, f.app, "GET", "/api/orders?user=8", "", asAdmin(1))
	require.Equal(t, fiber.StatusOK, status)
	var page Page
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	assert.Equal(t, 1, page.Total)

	status, _ = send(t, f.app, "GET", "/api/orders?status=Lost", "", asAdmin(1))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestUpdateStatus_NoTransitionGuard(t *testing.T) {
	f := newFixture(Options{})
	id := placeOrder(t, f, 7, "COD")
	path := "/api/orders/" + strconv.Itoa(id) + "/status"

	status, body := send(t, f.app, "PUT", path, `{"status": "Delivered"}`, asAdmin(1))
	require.Equal(t, fiber.StatusOK, status)
	got := decodeOrder(t, body)
	assert.Equal(t, true, got["isDelivered"])
	assert.NotNil(t, got["deliveredAt"])

	status, body = send(t, f.app, "PUT", path, `{"status": "Placed"}`, asAdmin(1))
	require.Equal(t, fiber.StatusOK, status)
	got = decodeOrder(t, body)
	assert.Equal(t, "Placed", got["status"])
	assert.Equal(t, false, got["isDelivered"])
	assert.Nil(t, got["deliveredAt"])

	status, _ = send(t, f.app, "PUT", path, `{"status": "Teleported"}`, asAdmin(1))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = send(t, f.app, "PUT", path, `{"status": "Shipped"}`, asUser(7))
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(Options{})
	id := placeOrder(t, f, 7, "COD")
	path := "/api/orders/" + strconv.Itoa(id)

	status, _ := send(t, f.app, "PUT", path+"/cancel", "", asUser(8))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := send(t, f.app, "PUT", path+"/cancel", "", asUser(7))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Cancelled", decodeOrder(t, body)["status"])

	status, _ = send(t, f.app, "PUT", path+"/cancel", "", asUser(7))
	assert.Equal(t, fiber.StatusConflict, status)

	shipped := placeOrder(t, f, 7, "COD")
	send(t, f.app, "PUT", "/api/orders/"+strconv.Itoa(shipped)+"/status", `{"status": "Shipped"}`, asAdmin(1))
	status, _ = send(t, f.app, "PUT", "/api/orders/"+strconv.Itoa(shipped)+"/cancel", "", asUser(7))
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestGatewayCheckout_PayFlow(t *testing.T) {
	f := newFixture(Options{VerifySignature: true, Currency: "INR"})
	id := placeOrder(t, f, 7, "Razorpay")

	status, body := send(t, f.app, "POST", "/api/orders/razorpay", fmt.Sprintf(`{"orderId": %d}`, id), asUser(7))
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, int64(116200), f.gateway.amount)
	assert.Contains(t, body, "order_gw_1")

	payPath := "/api/orders/" + strconv.Itoa(id) + "/pay"
	status, _ = send(t, f.app, "PUT", payPath, `{"id": "pay_1", "status": "captured", "signature": "forged"}`, asUser(7))
	assert.Equal(t, fiber.StatusBadRequest, status)

	sig := payment.Sign("rzp-secret", "order_gw_1", "pay_1")
	status, body = send(t, f.app, "PUT", payPath, fmt.Sprintf(`{"id": "pay_1", "status": "captured", "update_time": "now", "email_address": "a@b.c", "signature": %q}`, sig), asUser(7))
	require.Equal(t, fiber.StatusOK, status, body)
	got := decodeOrder(t, body)
	assert.Equal(t, true, got["isPaid"])
	assert.NotNil(t, got["paidAt"])
	assert.Equal(t, "pay_1", got["paymentResult"].(map[string]any)["id"])

	status, _ = send(t, f.app, "PUT", payPath, fmt.Sprintf(`{"id": "pay_1", "signature": %q}`, sig), asUser(7))
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = send(t, f.app, "DELETE", "/api/orders/"+strconv.Itoa(id), "", asUser(7))
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestGatewayCheckout_UpstreamFailure(t *testing.T) {
	f := newFixture(Options{})
	f.gateway.err = fmt.Errorf("%w: dial tcp: timeout", payment.ErrUpstream)
	id := placeOrder(t, f, 7, "Razorpay")

	status, body := send(t, f.app, "POST", "/api/orders/razorpay", fmt.Sprintf(`{"orderId": %d}`, id), asUser(7))
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, body, "payment gateway unavailable")

	status, _ = send(t, f.app, "POST", "/api/orders/razorpay", `{}`, asUser(7))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestDismissedCheckout_DeleteRemovesUnpaidOrder(t *testing.T) {
	f := newFixture(Options{})
	id := placeOrder(t, f, 7, "Razorpay")

	status, _ := send(t, f.app, "DELETE", "/api/orders/"+strconv.Itoa(id), "", asUser(7))
	assert.Equal(t, fiber.StatusOK, status)

	_, err := f.repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDismissedCheckout_DroppedDeleteLeavesOrphan(t *testing.T) {
	f := newFixture(Options{})
	id := placeOrder(t, f, 7, "Razorpay")
	f.repo.FailDeletes = errors.New("connection reset by peer")

	status, _ := send(t, f.app, "DELETE", "/api/orders/"+strconv.Itoa(id), "", asUser(7))
	assert.Equal(t, fiber.StatusInternalServerError, status)

	ord, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, ord.Status)
	assert.Nil(t, ord.PaymentResult)
	assert.False(t, ord.IsPaid())
}

package product

import (
	"context"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

func makeApp(h *Handler) *fiber.App {
	app := fiber.New()
	h.RegisterPublicRoutes(app)
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

func seedProducts() []Product {
	return []Product{
		{ID: 1, Name: "Sea Salt Dark Bar", Category: "Dark Chocolate", Price: 250, CountInStock: 10, IsBestseller: true, Images: []string{"a.jpg"}},
		{ID: 2, Name: "Hazelnut Praline", Category: "Pralines", Price: 480, CountInStock: 3},
		{ID: 3, Name: "Dark Truffle Box", Category: "Truffles", Price: 1200, CountInStock: 0, IsBestseller: true},
	}
}

func send(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

var adminHeaders = map[string]string{"X-User-ID": "9", "X-Admin": "true"}

func TestGetProducts_Filters(t *testing.T) {
	app := makeApp(NewHandler(NewService(NewInMemoryRepository(seedProducts()))))

	status, body := send(t, app, "GET", "/api/products?keyword=dark", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "Sea Salt Dark Bar") || !strings.Contains(body, "Dark Truffle Box") || strings.Contains(body, "Hazelnut") {
		t.Fatalf("keyword filter mismatch: %s", body)
	}

	_, body = send(t, app, "GET", "/api/products?category=Pralines", "", nil)
	if !strings.Contains(body, "Hazelnut Praline") || strings.Contains(body, "Sea Salt") {
		t.Fatalf("category filter mismatch: %s", body)
	}

	_, body = send(t, app, "GET", "/api/products?bestseller=true&pageSize=1&page=2", "", nil)
	if !strings.Contains(body, "Dark Truffle Box") || !strings.Contains(body, `"pages":2`) {
		t.Fatalf("bestseller pagination mismatch: %s", body)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	app := makeApp(NewHandler(NewService(NewInMemoryRepository(seedProducts()))))

	status, _ := send(t, app, "GET", "/api/products/99", "", nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestCreateProduct_AdminOnlyAndValidated(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	app := makeApp(NewHandler(NewService(repo)))
	payload := `{"name":"Ruby Bar","category":"Bars","price":300,"countInStock":5,"rating":4.5}`

	status, _ := send(t, app, "POST", "/api/products", payload, map[string]string{"X-User-ID": "4"})
	if status != fiber.StatusForbidden {
		t.Fatalf("non-admin create: expected 403, got %d", status)
	}

	status, body := send(t, app, "POST", "/api/products", `{"name":"","category":"Cookies","price":-1,"rating":7}`, adminHeaders)
	if status != fiber.StatusBadRequest {
		t.Fatalf("invalid create: expected 400, got %d", status)
	}
	for _, field := range []string{"name", "category", "price", "rating"} {
		if !strings.Contains(body, field) {
			t.Fatalf("expected validation error for %s: %s", field, body)
		}
	}

	status, body = send(t, app, "POST", "/api/products", payload, adminHeaders)
	if status != fiber.StatusCreated {
		t.Fatalf("admin create: expected 201, got %d: %s", status, body)
	}
	created, err := repo.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("product not stored: %v", err)
	}
	if created.User == nil || *created.User != 9 {
		t.Fatalf("expected owning admin 9, got %v", created.User)
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	repo := NewInMemoryRepository(seedProducts())
	app := makeApp(NewHandler(NewService(repo)))

	status, body := send(t, app, "PUT", "/api/products/2",
		`{"name":"Hazelnut Praline Box","category":"Pralines","price":520,"countInStock":8}`, adminHeaders)
	if status != fiber.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", status, body)
	}
	updated, _ := repo.GetByID(context.Background(), 2)
	if updated.Price != 520 || updated.CountInStock != 8 {
		t.Fatalf("update not persisted: %+v", updated)
	}

	status, _ = send(t, app, "DELETE", "/api/products/2", "", adminHeaders)
	if status != fiber.StatusOK {
		t.Fatalf("delete: expected 200, got %d", status)
	}
	status, _ = send(t, app, "DELETE", "/api/products/2", "", adminHeaders)
	if status != fiber.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", status)
	}
}

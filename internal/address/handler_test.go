package address

import (
	"context"
	"io"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAppWithAddressHandler(a *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": id}})
			}
		}
		return c.Next()
	})
	a.RegisterProtectedRoutes(app)
	return app
}

func request(t *testing.T, app *fiber.App, method, path, body, userID string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

const homeJSON = `{"street":"12 Cocoa Lane","city":"Pune","postalCode":"411001","country":"IN","phone":"99999"}`

func TestAddAddress_FirstBecomesDefault(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	app := makeAppWithAddressHandler(NewHandler(NewService(repo)))

	status, body := request(t, app, "POST", "/api/auth/addresses", homeJSON, "42")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}
	if !strings.Contains(body, `"isDefault":true`) {
		t.Fatalf("first address should be default: %s", body)
	}

	status, body = request(t, app, "POST", "/api/auth/addresses",
		`{"street":"1 Office Rd","city":"Mumbai","postalCode":"400001","country":"IN","isDefault":true}`, "42")
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	addrs, _ := repo.List(context.Background(), 42)
	defaults := 0
	for _, a := range addrs {
		if a.IsDefault {
			defaults++
			if a.City != "Mumbai" {
				t.Fatalf("expected the newest default to win, got %+v", a)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default address, got %d", defaults)
	}
}

func TestAddAddress_Validation(t *testing.T) {
	app := makeAppWithAddressHandler(NewHandler(NewService(NewInMemoryRepository(nil))))

	status, body := request(t, app, "POST", "/api/auth/addresses", `{"street":"x"}`, "42")
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if !strings.Contains(body, "city, postalCode, country") {
		t.Fatalf("expected missing fields listed, got %s", body)
	}

	status, _ = request(t, app, "POST", "/api/auth/addresses", homeJSON, "")
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestUpdateAndDeleteAddress_ScopedToOwner(t *testing.T) {
	seed := []Address{{ID: 1, UserID: 42, Street: "a", City: "b", PostalCode: "c", Country: "d", IsDefault: true}}
	app := makeAppWithAddressHandler(NewHandler(NewService(NewInMemoryRepository(seed))))

	status, _ := request(t, app, "PUT", "/api/auth/addresses/1", homeJSON, "7")
	if status != fiber.StatusNotFound {
		t.Fatalf("other user update: expected 404, got %d", status)
	}

	status, body := request(t, app, "PUT", "/api/auth/addresses/1", homeJSON, "42")
	if status != fiber.StatusOK || !strings.Contains(body, "Cocoa Lane") {
		t.Fatalf("owner update failed: %d %s", status, body)
	}

	status, _ = request(t, app, "DELETE", "/api/auth/addresses/1", "", "7")
	if status != fiber.StatusNotFound {
		t.Fatalf("other user delete: expected 404, got %d", status)
	}
	status, _ = request(t, app, "DELETE", "/api/auth/addresses/1", "", "42")
	if status != fiber.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", status)
	}
}

func TestPostgresRepository_CreateDefaultClearsOthers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(clearDefaultQuery)).WithArgs(42).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(insertAddressQuery)).
		WithArgs(42, "s", "c", "p", "IN", "", true, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	addr, err := NewPostgresRepository(db).Create(context.Background(), Address{
		UserID: 42, Street: "s", City: "c", PostalCode: "p", Country: "IN", IsDefault: true, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, addr.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package user

import (
	"context"
	"encoding/json"
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
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// makeApp injects a jwt.Token into locals when the X-User-ID header is
// provided; X-Admin: true adds the admin claim.
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

func newTestService(t *testing.T, seed []User) (*Service, *InMemoryRepository) {
	t.Helper()
	repo := NewInMemoryRepository(seed)
	svc := NewService(repo, NewTokenIssuer("test-secret", time.Hour))
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return string(h)
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, string) {
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

func TestRoutesRegistered(t *testing.T) {
	svc, _ := newTestService(t, nil)
	app := makeApp(NewHandler(svc))

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Method+" "+r.Path] = true
		}
	}
	for _, want := range []string{
		"POST /api/auth/register",
		"POST /api/auth/login",
		"GET /api/auth/profile",
		"PUT /api/auth/approve-user/:id<int>",
	} {
		if !routes[want] {
			t.Fatalf("expected route %q to be registered", want)
		}
	}
}

func TestRegister_ShopperGetsTokenImmediately(t *testing.T) {
	svc, repo := newTestService(t, nil)
	app := makeApp(NewHandler(svc))

	status, body := doJSON(t, app, "POST", "/api/auth/register",
		`{"name":"Asha","email":"Asha@Example.com","password":"secret1"}`, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", status, body)
	}

	var resp struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected token in registration response")
	}
	if !resp.User.IsApproved {
		t.Fatalf("shopper account should be approved")
	}
	if strings.Contains(body, "password") {
		t.Fatalf("response must not expose password: %s", body)
	}

	stored, err := repo.GetByEmail(context.Background(), "asha@example.com")
	if err != nil {
		t.Fatalf("user not stored under lower-cased email: %v", err)
	}
	if stored.Password == "secret1" {
		t.Fatalf("password stored in plaintext")
	}
}

func TestRegister_AdminRequestIsParked(t *testing.T) {
	svc, repo := newTestService(t, nil)
	app := makeApp(NewHandler(svc))

	status, body := doJSON(t, app, "POST", "/api/auth/register",
		`{"name":"Ravi","email":"ravi@example.com","password":"secret1","isAdmin":true}`, nil)
	if status != fiber.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", status, body)
	}
	if strings.Contains(body, "token") {
		t.Fatalf("admin request must not receive a token: %s", body)
	}

	stored, _ := repo.GetByEmail(context.Background(), "ravi@example.com")
	if stored.IsApproved || !stored.AdminRequested || stored.IsAdmin {
		t.Fatalf("unexpected flags on admin request: %+v", stored)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t, []User{{ID: 1, Name: "A", Email: "a@example.com", IsApproved: true}})
	app := makeApp(NewHandler(svc))

	status, _ := doJSON(t, app, "POST", "/api/auth/register",
		`{"name":"A2","email":"a@example.com","password":"secret1"}`, nil)
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
}

func TestLogin_Outcomes(t *testing.T) {
	seed := []User{
		{ID: 1, Name: "Ok", Email: "ok@example.com", Password: hashed(t, "secret1"), IsApproved: true},
		{ID: 2, Name: "Wait", Email: "wait@example.com", Password: hashed(t, "secret1"), AdminRequested: true},
	}
	svc, _ := newTestService(t, seed)
	app := makeApp(NewHandler(svc))

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"approved", `{"email":"ok@example.com","password":"secret1"}`, fiber.StatusOK},
		{"wrong password", `{"email":"ok@example.com","password":"nope"}`, fiber.StatusUnauthorized},
		{"unknown email", `{"email":"ghost@example.com","password":"secret1"}`, fiber.StatusUnauthorized},
		{"pending approval", `{"email":"wait@example.com","password":"secret1"}`, fiber.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := doJSON(t, app, "POST", "/api/auth/login", tc.body, nil)
			if status != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, status, body)
			}
		})
	}
}

func TestProfile_RequiresToken(t *testing.T) {
	svc, _ := newTestService(t, []User{{ID: 7, Name: "Jenny", Email: "j@example.com", Password: "x", IsApproved: true}})
	app := makeApp(NewHandler(svc))

	status, _ := doJSON(t, app, "GET", "/api/auth/profile", "", nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}

	status, body := doJSON(t, app, "GET", "/api/auth/profile", "", map[string]string{"X-User-ID": "7"})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "j@example.com") || strings.Contains(body, "password") {
		t.Fatalf("unexpected profile body: %s", body)
	}
}

func TestApproveUser_AdminGate(t *testing.T) {
	seed := []User{
		{ID: 1, Name: "Boss", Email: "boss@example.com", IsAdmin: true, IsApproved: true},
		{ID: 2, Name: "Wait", Email: "wait@example.com", AdminRequested: true},
		{ID: 3, Name: "Gone", Email: "gone@example.com", AdminRequested: true},
	}
	svc, repo := newTestService(t, seed)
	app := makeApp(NewHandler(svc))

	status, _ := doJSON(t, app, "PUT", "/api/auth/approve-user/2", `{"action":"approve"}`,
		map[string]string{"X-User-ID": "2"})
	if status != fiber.StatusForbidden {
		t.Fatalf("non-admin approve: expected 403, got %d", status)
	}

	admin := map[string]string{"X-User-ID": "1", "X-Admin": "true"}
	status, body := doJSON(t, app, "PUT", "/api/auth/approve-user/2", `{"action":"approve","makeAdmin":true}`, admin)
	if status != fiber.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", status, body)
	}
	approved, _ := repo.GetByID(context.Background(), 2)
	if !approved.IsApproved || !approved.IsAdmin {
		t.Fatalf("approve did not persist: %+v", approved)
	}

	status, _ = doJSON(t, app, "PUT", "/api/auth/approve-user/3", `{"action":"reject"}`, admin)
	if status != fiber.StatusOK {
		t.Fatalf("reject: expected 200, got %d", status)
	}
	if _, err := repo.GetByID(context.Background(), 3); err != ErrNotFound {
		t.Fatalf("rejected user should be deleted, got %v", err)
	}

	status, _ = doJSON(t, app, "PUT", "/api/auth/approve-user/2", `{"action":"promote"}`, admin)
	if status != fiber.StatusBadRequest {
		t.Fatalf("unknown action: expected 400, got %d", status)
	}
}

func TestPendingUsers_ListsOnlyUnapproved(t *testing.T) {
	seed := []User{
		{ID: 1, Name: "Boss", Email: "boss@example.com", IsAdmin: true, IsApproved: true},
		{ID: 2, Name: "Wait", Email: "wait@example.com", AdminRequested: true},
	}
	svc, _ := newTestService(t, seed)
	app := makeApp(NewHandler(svc))

	status, body := doJSON(t, app, "GET", "/api/auth/pending-users", "",
		map[string]string{"X-User-ID": "1", "X-Admin": "true"})
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "wait@example.com") || strings.Contains(body, "boss@example.com") {
		t.Fatalf("unexpected pending list: %s", body)
	}
}

func TestDeleteUser_WithOrdersIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(deleteUserQuery)).
		WithArgs(5).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "orders_user_id_fkey"})
	mock.ExpectExec(regexp.QuoteMeta(deleteUserQuery)).
		WithArgs(6).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := NewService(NewPostgresRepository(db), NewTokenIssuer("test-secret", time.Hour))
	app := makeApp(NewHandler(svc))
	admin := map[string]string{"X-User-ID": "1", "X-Admin": "true"}

	status, body := doJSON(t, app, "DELETE", "/api/auth/users/5", "", admin)
	if status != fiber.StatusConflict {
		t.Fatalf("customer with orders: expected 409, got %d: %s", status, body)
	}
	status, body = doJSON(t, app, "DELETE", "/api/auth/users/6", "", admin)
	if status != fiber.StatusOK {
		t.Fatalf("customer without orders: expected 200, got %d: %s", status, body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

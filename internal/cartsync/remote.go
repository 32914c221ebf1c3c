package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wichananm65/chocolate-shop-backend/internal/cart"
)

var (
	ErrUnauthorized = errors.New("session rejected by server")
	ErrConflict     = errors.New("server cart changed since last sync")
)

// Session is what the client keeps after login.
type Session struct {
	UserID  int    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

func (s *Session) authenticated() bool {
	return s != nil && s.Token != ""
}

// Remote is the server side of the cart snapshot.
type Remote interface {
	Fetch(ctx context.Context, token string) (cart.Snapshot, error)
	// Push overwrites the server snapshot. A nil version skips the
	// conflict check.
	Push(ctx context.Context, token string, items []cart.Item, version *int) (cart.Snapshot, error)
}

// HTTPRemote talks to /api/auth/cart.
type HTTPRemote struct {
	baseURL string
	http    *http.Client
}

func NewHTTPRemote(baseURL string) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *HTTPRemote) Fetch(ctx context.Context, token string) (cart.Snapshot, error) {
	return r.do(ctx, http.MethodGet, token, nil)
}

func (r *HTTPRemote) Push(ctx context.Context, token string, items []cart.Item, version *int) (cart.Snapshot, error) {
	body, err := json.Marshal(struct {
		Items   []cart.Item `json:"cartItems"`
		Version *int        `json:"version,omitempty"`
	}{items, version})
	if err != nil {
		return cart.Snapshot{}, err
	}
	return r.do(ctx, http.MethodPut, token, body)
}

func (r *HTTPRemote) do(ctx context.Context, method, token string, body []byte) (cart.Snapshot, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+"/api/auth/cart", reader)
	if err != nil {
		return cart.Snapshot{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return cart.Snapshot{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return cart.Snapshot{}, ErrUnauthorized
	case resp.StatusCode == http.StatusConflict:
		return cart.Snapshot{}, ErrConflict
	case resp.StatusCode >= 300:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return cart.Snapshot{}, fmt.Errorf("cart sync: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var snap cart.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return cart.Snapshot{}, err
	}
	return snap, nil
}

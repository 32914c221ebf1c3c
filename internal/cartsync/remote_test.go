package cartsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/chocolate-shop-backend/internal/cart"
)

func TestHTTPRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/cart", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
		case "Bearer stale":
			w.WriteHeader(http.StatusConflict)
			return
		default:
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if r.Method == http.MethodPut {
			var body struct {
				Items   []cart.Item `json:"cartItems"`
				Version *int        `json:"version"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			_ = json.NewEncoder(w).Encode(cart.Snapshot{Items: body.Items, Version: 2})
			return
		}
		_, _ = w.Write([]byte(`{"cartItems":[{"product":5,"name":"Bar","price":10,"qty":1}],"version":1}`))
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL + "/")

	snap, err := remote.Fetch(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
	require.Len(t, snap.Items, 1)

	v := 1
	snap, err = remote.Push(context.Background(), "good", snap.Items, &v)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Version)

	_, err = remote.Push(context.Background(), "stale", nil, &v)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = remote.Fetch(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("../escape", []byte("x")))

	require.NoError(t, store.Set(KeyCart, []byte("[]")))
	got, ok, err := store.Get(KeyCart)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(got))

	require.NoError(t, store.Delete(KeyCart))
	require.NoError(t, store.Delete(KeyCart))
	_, ok, _ = store.Get(KeyCart)
	assert.False(t, ok)
}

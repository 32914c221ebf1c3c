// Package cartsync keeps a client's local cart snapshot in step with the
// server copy. It is the library a storefront client embeds; the server
// side lives in the cart package.
package cartsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wichananm65/chocolate-shop-backend/internal/cart"
	"github.com/wichananm65/chocolate-shop-backend/internal/pricing"
)

const DefaultDebounce = time.Second

var ErrUnknownItem = errors.New("item is not in the cart")

// Reconciler owns the local cart. Mutations are saved to the Store at once
// and, while a session is present, pushed to the Remote after a trailing
// debounce.
type Reconciler struct {
	store    Store
	remote   Remote
	debounce time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	session  *Session
	items    []cart.Item
	version  *int
	timer    *time.Timer
	gen      int
	inFlight bool
	dirty    bool
	idle     chan struct{}
}

type Option func(*Reconciler)

func WithDebounce(d time.Duration) Option {
	return func(r *Reconciler) { r.debounce = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

func New(store Store, remote Remote, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    store,
		remote:   remote,
		debounce: DefaultDebounce,
		log:      zerolog.New(os.Stdout).With().Timestamp().Str("component", "cartsync").Logger(),
		items:    []cart.Item{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load restores the local snapshot and session, then merges with the server
// when a token is present.
func (r *Reconciler) Load(ctx context.Context) error {
	r.mu.Lock()
	items, err := r.readItems()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.items = items

	session, err := r.readSession()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.session = session
	r.mu.Unlock()

	if !session.authenticated() {
		return nil
	}
	return r.merge(ctx)
}

// Login stores the session and adopts the server cart when it has items.
func (r *Reconciler) Login(ctx context.Context, session Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if err := r.store.Set(KeySession, raw); err != nil {
		r.mu.Unlock()
		return err
	}
	r.stopTimerLocked()
	r.gen++
	r.session = &session
	r.version = nil
	r.mu.Unlock()

	return r.merge(ctx)
}

// Logout forgets the session and drops any pending push. The local cart
// stays as a guest cart.
func (r *Reconciler) Logout() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopTimerLocked()
	r.gen++
	r.session = nil
	r.version = nil
	return r.store.Delete(KeySession)
}

// merge applies the server-wins rule: a non-empty server cart replaces the
// local one, an empty server cart leaves it untouched.
func (r *Reconciler) merge(ctx context.Context) error {
	r.mu.Lock()
	if !r.session.authenticated() {
		r.mu.Unlock()
		return nil
	}
	token := r.session.Token
	gen := r.gen
	r.mu.Unlock()

	snap, err := r.remote.Fetch(ctx, token)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to fetch server cart")
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return nil
	}
	version := snap.Version
	r.version = &version
	if len(snap.Items) == 0 {
		return nil
	}
	r.items = append([]cart.Item{}, snap.Items...)
	return r.writeItemsLocked()
}

func (r *Reconciler) Session() (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return Session{}, false
	}
	return *r.session, true
}

func (r *Reconciler) Items() []cart.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cart.Item{}, r.items...)
}

// Prices derives the breakdown from the current items on every call.
func (r *Reconciler) Prices() pricing.Breakdown {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]pricing.Line, 0, len(r.items))
	for _, item := range r.items {
		lines = append(lines, pricing.Line{Price: item.Price, Qty: item.Qty})
	}
	return pricing.Compute(lines)
}

// Add puts item in the cart with qty. An item with the same identity has its
// quantity replaced.
func (r *Reconciler) Add(item cart.Item, qty int) error {
	if item.Product == nil && item.CustomKey == "" {
		return fmt.Errorf("cartsync: item %q has neither product nor custom key", item.Name)
	}
	item.Qty = clampQty(qty, item.CountInStock)

	return r.mutate(func(items []cart.Item) ([]cart.Item, error) {
		for i := range items {
			if items[i].Key() == item.Key() {
				items[i].Qty = item.Qty
				return items, nil
			}
		}
		return append(items, item), nil
	})
}

// UpdateQty sets the quantity, clamped to [1, countInStock].
func (r *Reconciler) UpdateQty(key string, qty int) error {
	return r.mutate(func(items []cart.Item) ([]cart.Item, error) {
		for i := range items {
			if items[i].Key() == key {
				items[i].Qty = clampQty(qty, items[i].CountInStock)
				return items, nil
			}
		}
		return nil, ErrUnknownItem
	})
}

func (r *Reconciler) Remove(key string) error {
	return r.mutate(func(items []cart.Item) ([]cart.Item, error) {
		kept := items[:0]
		for _, item := range items {
			if item.Key() != key {
				kept = append(kept, item)
			}
		}
		return kept, nil
	})
}

func (r *Reconciler) Clear() error {
	return r.mutate(func([]cart.Item) ([]cart.Item, error) {
		return []cart.Item{}, nil
	})
}

// clampQty bounds qty to [1, stock]. Items without a stock figure only get
// the lower bound.
func clampQty(qty, stock int) int {
	if stock > 0 && qty > stock {
		qty = stock
	}
	if qty < 1 {
		qty = 1
	}
	return qty
}

func (r *Reconciler) mutate(fn func([]cart.Item) ([]cart.Item, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(append([]cart.Item{}, r.items...))
	if err != nil {
		return err
	}
	r.items = next
	if err := r.writeItemsLocked(); err != nil {
		return err
	}
	r.schedulePushLocked()
	return nil
}

func (r *Reconciler) schedulePushLocked() {
	if !r.session.authenticated() {
		return
	}
	r.stopTimerLocked()
	gen := r.gen
	var timer *time.Timer
	timer = time.AfterFunc(r.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		r.mu.Lock()
		// Flush or a newer mutation already took this push over
		if r.timer != timer {
			r.mu.Unlock()
			return
		}
		r.timer = nil
		r.pushLocked(ctx, gen)
	})
	r.timer = timer
}

func (r *Reconciler) stopTimerLocked() {
	if r.timer == nil {
		return
	}
	r.timer.Stop()
	r.timer = nil
}

// Flush sends a pending push now instead of waiting for the debounce and
// waits for any push already in flight.
func (r *Reconciler) Flush(ctx context.Context) {
	r.mu.Lock()
	pending := r.timer != nil
	r.stopTimerLocked()
	if pending {
		r.pushLocked(ctx, r.gen)
	} else {
		r.mu.Unlock()
	}
	r.wait(ctx)
}

// Close flushes any pending push.
func (r *Reconciler) Close(ctx context.Context) {
	r.Flush(ctx)
}

func (r *Reconciler) wait(ctx context.Context) {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()
	if idle == nil {
		return
	}
	select {
	case <-idle:
	case <-ctx.Done():
	}
}

// pushLocked overwrites the server snapshot and releases r.mu. One push runs
// at a time: a push requested while another is in flight marks the cart
// dirty, and the running push sends another round with the version the
// server just returned. Failures are logged and dropped.
func (r *Reconciler) pushLocked(ctx context.Context, gen int) {
	if gen != r.gen || !r.session.authenticated() {
		r.mu.Unlock()
		return
	}
	if r.inFlight {
		r.dirty = true
		r.mu.Unlock()
		return
	}
	r.inFlight = true
	r.idle = make(chan struct{})

	for {
		token := r.session.Token
		items := append([]cart.Item{}, r.items...)
		version := r.version
		r.dirty = false
		r.mu.Unlock()

		snap, err := r.send(ctx, token, items, version)

		r.mu.Lock()
		if err == nil && gen == r.gen {
			v := snap.Version
			r.version = &v
		}
		if !r.dirty || !r.session.authenticated() {
			break
		}
		if err != nil {
			r.dirty = false
			r.schedulePushLocked()
			break
		}
		gen = r.gen
	}

	r.inFlight = false
	close(r.idle)
	r.idle = nil
	r.mu.Unlock()
}

// send pushes items. On a version conflict the server copy is only read for
// its version and the local items are pushed again over it: local state is
// authoritative for the session.
func (r *Reconciler) send(ctx context.Context, token string, items []cart.Item, version *int) (cart.Snapshot, error) {
	snap, err := r.remote.Push(ctx, token, items, version)
	if errors.Is(err, ErrConflict) {
		r.log.Warn().Msg("server cart changed elsewhere, overwriting with local cart")
		var current cart.Snapshot
		current, err = r.remote.Fetch(ctx, token)
		if err != nil {
			r.log.Warn().Err(err).Msg("failed to fetch server cart after conflict")
			return cart.Snapshot{}, err
		}
		v := current.Version
		snap, err = r.remote.Push(ctx, token, items, &v)
	}
	if err != nil {
		r.log.Warn().Err(err).Int("items", len(items)).Msg("failed to push cart")
		return cart.Snapshot{}, err
	}
	return snap, nil
}

func (r *Reconciler) readItems() ([]cart.Item, error) {
	raw, ok, err := r.store.Get(KeyCart)
	if err != nil || !ok {
		return []cart.Item{}, err
	}
	items := []cart.Item{}
	if err := json.Unmarshal(raw, &items); err != nil {
		r.log.Warn().Err(err).Msg("discarding unreadable local cart")
		return []cart.Item{}, nil
	}
	return items, nil
}

func (r *Reconciler) readSession() (*Session, error) {
	raw, ok, err := r.store.Get(KeySession)
	if err != nil || !ok {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		r.log.Warn().Err(err).Msg("discarding unreadable session")
		return nil, nil
	}
	return &s, nil
}

func (r *Reconciler) writeItemsLocked() error {
	raw, err := json.Marshal(r.items)
	if err != nil {
		return err
	}
	return r.store.Set(KeyCart, raw)
}

// Package guestcart holds carts for visitors who have not authenticated yet.
// It is a convenience cache keyed by session id, never authoritative state:
// once a user logs in, the persisted cart in Mongo is the source of truth.
package guestcart

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTTL is how long an untouched guest cart survives.
const DefaultTTL = 24 * time.Hour

var ErrNotFound = errors.New("guest cart not found")

// Item is one product line in a guest cart. Product ids are kept as hex
// strings; they are validated against the catalog when the cart is merged
// into an authenticated one.
type Item struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart is a guest's ephemeral cart.
type Cart struct {
	SessionID string    `json:"sessionId"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Add merges a quantity into the line for productID, appending a new line
// when none exists yet.
func (c *Cart) Add(productID string, quantity int, now time.Time) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			c.UpdatedAt = now
			return
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity, AddedAt: now})
	c.UpdatedAt = now
}

// Store abstracts where guest carts live so handlers do not care whether the
// backing is an in-process map or a shared cache.
type Store interface {
	Get(ctx context.Context, sessionID string) (Cart, error)
	Set(ctx context.Context, cart Cart, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	cart      Cart
	expiresAt time.Time
}

// MemoryStore is the in-process implementation, used in tests and in
// single-instance deployments without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return Cart{}, ErrNotFound
	}
	return entry.cart, nil
}

func (s *MemoryStore) Set(_ context.Context, cart Cart, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[cart.SessionID] = memoryEntry{cart: cart, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}

// StartSweeper evicts expired carts on a fixed interval. It runs on its own
// goroutine and never blocks request handling.
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.done:
				return
			}
		}
	}()
}

func (s *MemoryStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}

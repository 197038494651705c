package cache

import (
	"context"
	"sync"
	"time"

	"github.com/crosspost/backend/internal/domain/shared"
)

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// InMemoryIdempotencyStore keeps processed-event marks in a local map.
// Good for tests and single-instance deployments; marks are not shared
// across processes.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	marks     map[string]time.Time // event ID -> claim expiry
	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a janitor
// goroutine that evicts expired marks.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		marks:  make(map[string]time.Time),
		stopCh: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.janitor()

	return store
}

// MarkProcessed claims an event ID for the TTL window. Returns true
// when the claim is fresh, false when a live claim already existed.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, exists := s.marks[eventID]; exists && time.Now().Before(expiry) {
		return false, nil
	}
	s.marks[eventID] = time.Now().Add(ttl)
	return true, nil
}

// IsProcessed reports whether an event ID holds a live claim.
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, exists := s.marks[eventID]
	return exists && time.Now().Before(expiry), nil
}

// Remove releases a claim so the event can be handled again.
func (s *InMemoryIdempotencyStore) Remove(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.marks, eventID)
	return nil
}

// Close stops the janitor. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of marks currently held.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.marks)
}

func (s *InMemoryIdempotencyStore) janitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for eventID, expiry := range s.marks {
		if now.After(expiry) {
			delete(s.marks, eventID)
		}
	}
}

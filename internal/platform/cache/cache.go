// Package cache provides the collection cache that sits between the HTTP
// handlers and the repositories. Cached values are keyed by case-scoped
// collection (entities for a case, dates for a case, ...); any successful
// mutation invalidates the exact keys it affects, forcing a re-fetch rather
// than an in-place patch.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is the cache backend. Implementations must be safe for concurrent
// use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Collection is a read-through cache over a Store. Concurrent loads for the
// same key are deduplicated so a burst of identical reads produces a single
// repository query.
type Collection struct {
	store Store
	ttl   time.Duration
	group singleflight.Group
}

func NewCollection(store Store, ttl time.Duration) *Collection {
	return &Collection{store: store, ttl: ttl}
}

// GetOrLoad fetches the value for key into dest, loading it via load and
// populating the cache on a miss. dest must be a pointer; values round-trip
// through JSON.
func (c *Collection) GetOrLoad(ctx context.Context, key string, dest interface{}, load func(ctx context.Context) (interface{}, error)) error {
	if data, ok, err := c.store.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal(data, dest); err == nil {
			return nil
		}
		// Corrupt entry: drop it and fall through to the loader.
		_ = c.store.Delete(ctx, key)
	}

	data, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal cache value for %s: %w", key, err)
		}
		_ = c.store.Set(ctx, key, raw, c.ttl)
		return raw, nil
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(data.([]byte), dest)
}

// Invalidate removes the given keys. Missing keys are not an error.
func (c *Collection) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_ = c.store.Delete(ctx, keys...)
}

// Case-scoped collection keys.

func EntitiesKey(caseID string) string  { return "entities:" + caseID }
func DatesKey(caseID string) string     { return "dates:" + caseID }
func AuditKey(caseID string) string     { return "audit:" + caseID }
func DocumentsKey(caseID string) string { return "documents:" + caseID }
func ExamsKey(caseID string) string     { return "exams:" + caseID }
func ReportsKey(caseID string) string   { return "reports:" + caseID }
func TimelineKey(caseID string) string  { return "timeline:" + caseID }
func QAKey(caseID string) string        { return "qa:" + caseID }

// ReviewKeys returns every key touched by a review-surface mutation on a
// case: the extraction collections plus the audit trail that records the
// change.
func ReviewKeys(caseID string) []string {
	return []string{EntitiesKey(caseID), DatesKey(caseID), AuditKey(caseID)}
}

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory Store with lazy expiration.
type MemoryStore struct {
	entries map[string]*memoryEntry
	mu      sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memoryEntry{data: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, k)
	}
	return nil
}

// StartCleanup runs a background goroutine that periodically removes expired
// entries. It stops when the context is cancelled.
func (s *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				now := time.Now()
				for k, v := range s.entries {
					if now.After(v.expiresAt) {
						delete(s.entries, k)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}

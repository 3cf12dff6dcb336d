// Package cache provides a namespaced key/value cache with per-entry TTL,
// lazy expiry, and hit/miss accounting. Backend failures degrade to a miss or
// a no-op with a logged warning; they never propagate to the caller.
package cache

import (
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"
)

// entry is the stored representation. A zero ExpiresAt means no expiry.
type entry struct {
	Value     []byte    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Stats is a snapshot of the manager's counters.
type Stats struct {
	Hits   uint64
	Misses uint64
	Sets   uint64
}

// Manager is a namespaced cache over a pluggable Backend.
type Manager struct {
	backend   Backend
	namespace string
	ttl       time.Duration
	enabled   bool
	log       *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	hits   uint64
	misses uint64
	sets   uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// New creates a Manager. All keys are stored under the given namespace; ttl is
// the default expiry applied by Set (zero means entries never expire). A
// disabled manager treats every Get as a miss and every Set as a no-op.
func New(backend Backend, namespace string, ttl time.Duration, enabled bool, opts ...Option) *Manager {
	m := &Manager{
		backend:   backend,
		namespace: namespace,
		ttl:       ttl,
		enabled:   enabled,
		log:       slog.Default().With("component", "cache"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) key(k string) string {
	return m.namespace + ":" + k
}

// Get returns the cached value for key, lazily evicting it if expired.
// The second return is false on a miss of any kind.
func (m *Manager) Get(key string) ([]byte, bool) {
	if !m.enabled {
		return nil, false
	}

	raw, err := m.backend.Get(m.key(key))
	if err != nil {
		m.log.Warn("cache backend get failed", "key", key, "error", err)
		m.recordMiss()
		return nil, false
	}
	if raw == nil {
		m.recordMiss()
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		m.log.Warn("cache entry corrupt", "key", key, "error", err)
		m.recordMiss()
		return nil, false
	}

	if !e.ExpiresAt.IsZero() && !m.now().Before(e.ExpiresAt) {
		if err := m.backend.Delete(m.key(key)); err != nil {
			m.log.Warn("cache backend delete failed", "key", key, "error", err)
		}
		m.recordMiss()
		return nil, false
	}

	m.recordHit()
	return e.Value, true
}

// Set stores value under key with the given TTL. A zero ttl falls back to the
// manager default; a negative ttl means no expiry.
func (m *Manager) Set(key string, value []byte, ttl time.Duration) {
	if !m.enabled {
		return
	}
	if ttl == 0 {
		ttl = m.ttl
	}

	e := entry{Value: value}
	if ttl > 0 {
		e.ExpiresAt = m.now().Add(ttl)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		m.log.Warn("cache entry marshal failed", "key", key, "error", err)
		return
	}
	if err := m.backend.Set(m.key(key), raw); err != nil {
		m.log.Warn("cache backend set failed", "key", key, "error", err)
		return
	}

	m.mu.Lock()
	m.sets++
	m.mu.Unlock()
}

// Delete removes a single entry.
func (m *Manager) Delete(key string) {
	if !m.enabled {
		return
	}
	if err := m.backend.Delete(m.key(key)); err != nil {
		m.log.Warn("cache backend delete failed", "key", key, "error", err)
	}
}

// Clear removes every entry in this manager's namespace.
func (m *Manager) Clear() {
	if !m.enabled {
		return
	}
	if err := m.backend.DeletePrefix(m.namespace + ":"); err != nil {
		m.log.Warn("cache backend clear failed", "error", err)
	}
}

// Stats returns a consistent snapshot of the counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Hits: m.hits, Misses: m.misses, Sets: m.sets}
}

// HitRate reports hits/(hits+misses) as a percentage rounded to two decimals,
// or 0.0 when no lookups have happened.
func (m *Manager) HitRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := m.hits + m.misses
	if total == 0 {
		return 0.0
	}
	rate := float64(m.hits) / float64(total) * 100
	return math.Round(rate*100) / 100
}

func (m *Manager) recordHit() {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
}

func (m *Manager) recordMiss() {
	m.mu.Lock()
	m.misses++
	m.mu.Unlock()
}

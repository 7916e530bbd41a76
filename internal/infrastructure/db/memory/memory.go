// Package memory holds process-local stores for single-instance deployments
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

// SessionStore expires a session ttl after its last Save. A zero ttl keeps
// sessions until they are deleted.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	data map[string]expiring[domain.Session]
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{ttl: ttl, now: time.Now, data: make(map[string]expiring[domain.Session])}
}

func (s *SessionStore) Load(_ context.Context, key string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		return nil, nil
	}
	sess := e.value
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return &sess, nil
}

func (s *SessionStore) Save(_ context.Context, key string, sess domain.Session) error {
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sweep(s.data, now)
	var exp time.Time
	if s.ttl > 0 {
		exp = now.Add(s.ttl)
	}
	s.data[key] = expiring[domain.Session]{value: sess, expires: exp}
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *SessionStore) Ping(context.Context) error { return nil }

// expiring is a value with a deadline. The zero deadline never passes.
type expiring[T any] struct {
	value   T
	expires time.Time
}

func (e expiring[T]) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// sweep drops every expired entry. Callers hold the lock.
func sweep[T any](m map[string]expiring[T], now time.Time) {
	for k, e := range m {
		if e.expired(now) {
			delete(m, k)
		}
	}
}

// FlashStore hides a banner once its ttl passes and drops expired banners of
// every session on each Set.
type FlashStore struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	data map[string]expiring[ports.Flash]
}

func NewFlashStore(ttl time.Duration) *FlashStore {
	return &FlashStore{ttl: ttl, now: time.Now, data: make(map[string]expiring[ports.Flash])}
}

func (f *FlashStore) Set(_ context.Context, key string, fl ports.Flash) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	sweep(f.data, now)
	f.data[key] = expiring[ports.Flash]{value: fl, expires: now.Add(f.ttl)}
	return nil
}

func (f *FlashStore) Get(_ context.Context, key string) (*ports.Flash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.data[key]
	if !ok {
		return nil, nil
	}
	if e.expired(f.now()) {
		delete(f.data, key)
		return nil, nil
	}
	fl := e.value
	return &fl, nil
}

type SubmissionGuard struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	keys map[string]time.Time
}

func NewSubmissionGuard(ttl time.Duration) *SubmissionGuard {
	return &SubmissionGuard{ttl: ttl, now: time.Now, keys: make(map[string]time.Time)}
}

func (g *SubmissionGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, exp := range g.keys {
		if !now.Before(exp) {
			delete(g.keys, k)
		}
	}
	if _, held := g.keys[key]; held {
		return false, nil
	}
	g.keys[key] = now.Add(g.ttl)
	return true, nil
}

func (g *SubmissionGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

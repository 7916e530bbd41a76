package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

type memSessionStore struct {
	mu   sync.Mutex
	data map[string]domain.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{data: make(map[string]domain.Session)}
}

func (m *memSessionStore) Load(_ context.Context, key string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memSessionStore) Save(_ context.Context, key string, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = s
	return nil
}

func (m *memSessionStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memSessionStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type stubAuthAPI struct {
	mu sync.Mutex

	loginSession *domain.Session
	loginErr     error
	refreshed    *domain.Session
	refreshErr   error
	me           *domain.User
	meErr        error
	logoutErr    error

	refreshCalls  int
	refreshTokens []string
	meCalls       int
	logoutCalls   int
}

func (s *stubAuthAPI) Login(context.Context, ports.Credentials) (*domain.Session, error) {
	return s.loginSession, s.loginErr
}

func (s *stubAuthAPI) Register(context.Context, ports.Registration) (*domain.Session, error) {
	return s.loginSession, s.loginErr
}

func (s *stubAuthAPI) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutCalls++
	return s.logoutErr
}

func (s *stubAuthAPI) Refresh(ctx context.Context) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	s.refreshTokens = append(s.refreshTokens, authctx.Token(ctx))
	return s.refreshed, s.refreshErr
}

func (s *stubAuthAPI) Me(context.Context) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meCalls++
	return s.me, s.meErr
}

func (s *stubAuthAPI) ForgotPassword(context.Context, string) error       { return nil }
func (s *stubAuthAPI) ResetPassword(context.Context, string, string) error { return nil }

var errUpstream = errors.New("upstream unavailable")

func signedToken(exp time.Time) string {
	claims := jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(exp)}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test"))
	if err != nil {
		panic(err)
	}
	return tok
}

func testUser(role domain.Role) *domain.User {
	return &domain.User{ID: "u1", Email: "u1@example.com", Role: role}
}

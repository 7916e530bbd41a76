package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/api/middleware"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
	"github.com/batuta/dashboard/internal/core/service"
	"github.com/batuta/dashboard/internal/infrastructure/db/memory"
)

// testToken has no exp claim, so guard checks go straight to Me.
const testToken = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ1MSJ9.c2ln"

const testSID = "0b3c2a44-7a5e-4b0e-9e59-64b7d3f0c8a1"

type stubAuthAPI struct {
	loginFn   func(ports.Credentials) (*domain.Session, error)
	logoutErr error
	forgotErr error
	me        *domain.User
}

func (s *stubAuthAPI) Login(_ context.Context, c ports.Credentials) (*domain.Session, error) {
	return s.loginFn(c)
}
func (s *stubAuthAPI) Register(_ context.Context, r ports.Registration) (*domain.Session, error) {
	return &domain.Session{User: &domain.User{ID: "new", Email: r.Email, Role: r.Role}, Token: testToken}, nil
}
func (s *stubAuthAPI) Logout(context.Context) error { return s.logoutErr }
func (s *stubAuthAPI) Refresh(context.Context) (*domain.Session, error) {
	return nil, errors.New("refresh disabled")
}
func (s *stubAuthAPI) Me(context.Context) (*domain.User, error) {
	if s.me == nil {
		return nil, errors.New("unauthorized")
	}
	return s.me, nil
}
func (s *stubAuthAPI) ForgotPassword(context.Context, string) error       { return s.forgotErr }
func (s *stubAuthAPI) ResetPassword(context.Context, string, string) error { return nil }

type stubMessageAPI struct {
	messages  []domain.Message
	unread    int
	unreadErr error
	sent      []domain.ComposeInput
	deleted   []string
}

func (s *stubMessageAPI) List(context.Context) ([]domain.Message, error) { return s.messages, nil }
func (s *stubMessageAPI) UnreadCount(context.Context) (int, error)      { return s.unread, s.unreadErr }
func (s *stubMessageAPI) Get(_ context.Context, id string) (*domain.Message, error) {
	for _, m := range s.messages {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, domain.ErrNotFound
}
func (s *stubMessageAPI) Send(_ context.Context, in domain.ComposeInput) (*domain.Message, error) {
	s.sent = append(s.sent, in)
	return &domain.Message{ID: "sent-1", Subject: in.Subject, Content: in.Content, ParentMessage: in.ParentMessage}, nil
}
func (s *stubMessageAPI) MarkAsRead(_ context.Context, id string) (*domain.Message, error) {
	return &domain.Message{ID: id, Read: true}, nil
}
func (s *stubMessageAPI) Delete(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}
func (s *stubMessageAPI) Conversation(context.Context, string) ([]domain.Message, error) {
	return nil, nil
}

type recordingMarker struct {
	receipts []ports.ReadReceipt
}

func (m *recordingMarker) Enqueue(r ports.ReadReceipt) bool {
	m.receipts = append(m.receipts, r)
	return true
}

type stubResourceAPI[T any] struct {
	items   []T
	created []T
	err     error
}

func (s *stubResourceAPI[T]) List(context.Context) ([]T, error) { return s.items, s.err }
func (s *stubResourceAPI[T]) Get(context.Context, string) (*T, error) {
	if len(s.items) == 0 {
		return nil, domain.ErrNotFound
	}
	return &s.items[0], nil
}
func (s *stubResourceAPI[T]) Create(_ context.Context, item T) (*T, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, item)
	return &item, nil
}
func (s *stubResourceAPI[T]) Update(_ context.Context, _ string, item T) (*T, error) {
	return &item, s.err
}
func (s *stubResourceAPI[T]) Delete(context.Context, string) error { return s.err }

// env wires handlers behind the real session and guard middleware, backed by
// in-memory stores.
type env struct {
	e        *echo.Echo
	auth     *stubAuthAPI
	sessions *memory.SessionStore
	flash    *memory.FlashStore
}

func newEnv(user *domain.User) *env {
	ev := &env{
		e:        echo.New(),
		auth:     &stubAuthAPI{me: user},
		sessions: memory.NewSessionStore(0),
		flash:    memory.NewFlashStore(time.Minute),
	}
	ev.e.Validator = NewValidator()
	if user != nil {
		_ = ev.sessions.Save(context.Background(), ev.key(), domain.Session{User: user, Token: testToken})
	}
	return ev
}

func (ev *env) key() string { return middleware.StorageKeyPrefix + testSID }

func (ev *env) session() echo.MiddlewareFunc {
	return middleware.Session(middleware.SessionConfig{
		NewStore: func(key string) *service.AuthStore {
			return service.NewAuthStore(ev.auth, ev.sessions, key, zerolog.Nop())
		},
	}, zerolog.Nop())
}

// call runs h behind the session middleware, and behind the guard when
// guarded is set, returning the handler error.
func (ev *env) call(h echo.HandlerFunc, guarded bool, method, target, body string, params ...string) (*httptest.ResponseRecorder, error) {
	if guarded {
		h = middleware.Guard(service.NewGuard(time.Second, zerolog.Nop()))(h)
	}
	h = ev.session()(h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.AddCookie(&http.Cookie{Name: "batuta_sid", Value: testSID})
	rec := httptest.NewRecorder()
	c := ev.e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return rec, h(c)
}

func (ev *env) lastFlash() *ports.Flash {
	fl, _ := ev.flash.Get(context.Background(), ev.key())
	return fl
}

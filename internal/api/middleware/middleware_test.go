package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
	"github.com/batuta/dashboard/internal/core/service"
	"github.com/batuta/dashboard/internal/infrastructure/db/memory"
)

type stubAuthAPI struct {
	me *domain.User
}

func (s *stubAuthAPI) Login(context.Context, ports.Credentials) (*domain.Session, error) {
	return nil, errors.New("unused")
}
func (s *stubAuthAPI) Register(context.Context, ports.Registration) (*domain.Session, error) {
	return nil, errors.New("unused")
}
func (s *stubAuthAPI) Logout(context.Context) error { return nil }
func (s *stubAuthAPI) Refresh(context.Context) (*domain.Session, error) {
	return nil, errors.New("refresh disabled")
}
func (s *stubAuthAPI) Me(context.Context) (*domain.User, error) {
	if s.me == nil {
		return nil, errors.New("unauthorized")
	}
	return s.me, nil
}
func (s *stubAuthAPI) ForgotPassword(context.Context, string) error       { return nil }
func (s *stubAuthAPI) ResetPassword(context.Context, string, string) error { return nil }

// tokenWithoutExp never expires, so CheckAuth goes straight to Me.
const tokenWithoutExp = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ1MSJ9.c2ln"

func newStoreFactory(api ports.AuthAPI, sessions ports.SessionStore) func(string) *service.AuthStore {
	return func(key string) *service.AuthStore {
		return service.NewAuthStore(api, sessions, key, zerolog.Nop())
	}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const sid = "5f0c6a8e-2d0b-4a55-9c3e-7d3b0a1f2e11"

func guardedEcho(role domain.Role, allowed ...domain.Role) (*echo.Echo, *memory.SessionStore) {
	sessions := memory.NewSessionStore(0)
	if role != "" {
		_ = sessions.Save(context.Background(), StorageKeyPrefix+sid, domain.Session{
			User:  &domain.User{ID: "u1", Role: role},
			Token: tokenWithoutExp,
		})
	}
	api := &stubAuthAPI{}
	if role != "" {
		api.me = &domain.User{ID: "u1", Role: role}
	}

	e := echo.New()
	e.Use(Session(SessionConfig{CookieName: "batuta_sid", NewStore: newStoreFactory(api, sessions)}, zerolog.Nop()))
	g := service.NewGuard(time.Second, zerolog.Nop())
	e.GET("/dashboard/users", func(c echo.Context) error {
		return c.String(http.StatusOK, string(Role(c))+":"+authctx.Token(c.Request().Context()))
	}, Guard(g, allowed...))
	return e, sessions
}

func withCookie(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "batuta_sid", Value: sid})
	return req
}

func TestSession_IssuesCookie(t *testing.T) {
	e := echo.New()
	var key string
	e.Use(Session(SessionConfig{CookieName: "batuta_sid", NewStore: newStoreFactory(&stubAuthAPI{}, memory.NewSessionStore(0))}, zerolog.Nop()))
	e.GET("/", func(c echo.Context) error {
		key = SessionKey(c)
		if AuthStore(c) == nil {
			t.Fatal("store missing")
		}
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "batuta_sid" || !cookies[0].HttpOnly {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	if key != StorageKeyPrefix+cookies[0].Value {
		t.Fatalf("unexpected key %q", key)
	}

	rec = serve(e, withCookie(httptest.NewRequest(http.MethodGet, "/", nil)))
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("existing cookie must be reused")
	}
	if key != StorageKeyPrefix+sid {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestGuard_Authorized(t *testing.T) {
	e, _ := guardedEcho(domain.RoleAdmin, domain.RoleAdmin)
	rec := serve(e, withCookie(httptest.NewRequest(http.MethodGet, "/dashboard/users", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "admin:"+tokenWithoutExp {
		t.Fatalf("handler must see role and token, got %q", rec.Body.String())
	}
}

func TestGuard_ForbiddenJSON(t *testing.T) {
	e, _ := guardedEcho(domain.RoleClient, domain.RoleAdmin)
	req := withCookie(httptest.NewRequest(http.MethodGet, "/dashboard/users", nil))
	req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
	rec := serve(e, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body guardResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Redirect != "/unauthorized?role=client" {
		t.Fatalf("unexpected redirect %q", body.Redirect)
	}
}

func TestGuard_UnauthenticatedBrowserRedirect(t *testing.T) {
	e, _ := guardedEcho("", domain.RoleAdmin)
	req := httptest.NewRequest(http.MethodGet, "/dashboard/users", nil)
	req.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
	rec := serve(e, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/auth/login?redirect=%2Fdashboard%2Fusers" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestGuard_FailedCheckClearsPersistedSession(t *testing.T) {
	_, sessions := guardedEcho(domain.RoleAdmin, domain.RoleAdmin)
	// Same persisted session, but upstream now rejects the token.
	e2 := echo.New()
	e2.Use(Session(SessionConfig{CookieName: "batuta_sid", NewStore: newStoreFactory(&stubAuthAPI{}, sessions)}, zerolog.Nop()))
	e2.GET("/dashboard/users", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		Guard(service.NewGuard(time.Second, zerolog.Nop()), domain.RoleAdmin))

	rec := serve(e2, withCookie(httptest.NewRequest(http.MethodGet, "/dashboard/users", nil)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if s, _ := sessions.Load(context.Background(), StorageKeyPrefix+sid); s != nil {
		t.Fatal("failed auth check must clear the persisted session")
	}
}

func TestSubmitOnce_RejectsDuplicate(t *testing.T) {
	e := echo.New()
	guard := memory.NewSubmissionGuard(5 * time.Second)
	calls := 0
	e.POST("/dashboard/messages", func(c echo.Context) error {
		calls++
		var body map[string]string
		if err := c.Bind(&body); err != nil || body["subject"] != "Hi" {
			t.Errorf("body must reach the handler intact: %v %v", body, err)
		}
		return c.NoContent(http.StatusCreated)
	}, SubmitOnce(guard, zerolog.Nop()))

	send := func(payload string) int {
		req := httptest.NewRequest(http.MethodPost, "/dashboard/messages", strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(`{"subject":"Hi"}`); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	if code := send(`{"subject":"Hi"}`); code == http.StatusCreated {
		t.Fatal("duplicate submission must be rejected")
	}
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
}

func TestSubmitOnce_FailedSubmissionCanBeRetried(t *testing.T) {
	e := echo.New()
	guard := memory.NewSubmissionGuard(5 * time.Second)
	calls := 0
	e.POST("/dashboard/messages", func(c echo.Context) error {
		calls++
		if calls == 1 {
			return echo.NewHTTPError(http.StatusBadGateway, "Failed to send message")
		}
		return c.NoContent(http.StatusCreated)
	}, SubmitOnce(guard, zerolog.Nop()))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/dashboard/messages", strings.NewReader(`{"subject":"Hi"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return serve(e, req).Code
	}

	if code := send(); code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}
	if code := send(); code != http.StatusCreated {
		t.Fatalf("retry after a failure must go through, got %d", code)
	}
	if code := send(); code == http.StatusCreated {
		t.Fatal("duplicate of a successful submission must be rejected")
	}
}

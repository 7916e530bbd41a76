package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/authctx"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc, hook func(context.Context, int)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL, Timeout: time.Second, OnAuthFailure: hook, Logger: zerolog.Nop()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]int{"count": 3})
	}, nil)

	ctx := authctx.WithToken(context.Background(), "tok")
	n, err := NewMessageAPI(c).UnreadCount(ctx)
	if err != nil {
		t.Fatalf("UnreadCount returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
	if got != "Bearer tok" {
		t.Fatalf("unexpected Authorization header %q", got)
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []domain.Product{})
	}, nil)

	if _, err := Products(c).List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("expected no Authorization header, got %q", got)
	}
}

func TestClient_AuthFailureCallsHookOnceWithoutRetry(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		var calls atomic.Int32
		var hookStatus []int
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			writeJSON(w, status, map[string]string{"message": "Token expired"})
		}, func(_ context.Context, s int) { hookStatus = append(hookStatus, s) })

		_, err := Orders(c).Create(authctx.WithToken(context.Background(), "tok"), domain.Order{})
		if !errors.Is(err, domain.ErrAuthExpired) {
			t.Fatalf("%d: expected ErrAuthExpired, got %v", status, err)
		}
		if calls.Load() != 1 {
			t.Fatalf("%d: request must not be retried, got %d calls", status, calls.Load())
		}
		if len(hookStatus) != 1 || hookStatus[0] != status {
			t.Fatalf("%d: hook calls %v", status, hookStatus)
		}
	}
}

func TestClient_LoginFailureSurfacesServerMessage(t *testing.T) {
	hookCalled := false
	hook := func(context.Context, int) { hookCalled = true }

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	}, hook)
	_, err := NewAuthAPI(c).Login(context.Background(), ports.Credentials{Email: "a@b.c", Password: "x"})
	if err == nil || err.Error() != "Invalid credentials" {
		t.Fatalf("expected server message, got %v", err)
	}
	if hookCalled {
		t.Fatal("login failures must not trigger the auth redirect")
	}

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, hook)
	_, err = NewAuthAPI(c).Login(context.Background(), ports.Credentials{})
	if err == nil || err.Error() != "Login failed" {
		t.Fatalf("expected fallback, got %v", err)
	}
}

func TestClient_FallbackMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	_, err := Equipments(c).Get(context.Background(), "e1")
	if err == nil || err.Error() != "Failed to get equipment" {
		t.Fatalf("unexpected error %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected APIError with status, got %#v", err)
	}
	if err := Deliveries(c).Delete(context.Background(), "d1"); err == nil || err.Error() != "Failed to delete delivery" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClient_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Message not found"})
	}, nil)

	_, err := NewMessageAPI(c).Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err.Error() != "Message not found" {
		t.Fatalf("expected server message from error field, got %q", err.Error())
	}
}

func TestClient_TransportFailureUsesFallback(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond, Logger: zerolog.Nop()})
	_, err := Users(c).List(context.Background())
	if err == nil || err.Error() != "Failed to get users" {
		t.Fatalf("unexpected error %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Fatal("cause must be kept")
	}
}

func TestClient_CollapsesConcurrentGets(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeJSON(w, http.StatusOK, []domain.Message{{ID: "m1"}})
	}, nil)
	api := NewMessageAPI(c)
	ctx := authctx.WithToken(context.Background(), "tok")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msgs, err := api.List(ctx)
			if err != nil || len(msgs) != 1 {
				t.Errorf("unexpected result %v %v", msgs, err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
}

func TestClient_CancelledCallerDoesNotFailSharedGet(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]int{"count": 4})
	}, nil)
	api := NewMessageAPI(c)

	leaderCtx, cancel := context.WithCancel(authctx.WithToken(context.Background(), "tok"))
	leaderErr := make(chan error, 1)
	go func() {
		_, err := api.UnreadCount(leaderCtx)
		leaderErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	type result struct {
		n   int
		err error
	}
	follower := make(chan result, 1)
	go func() {
		n, err := api.UnreadCount(authctx.WithToken(context.Background(), "tok"))
		follower <- result{n, err}
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller should see context.Canceled, got %v", err)
	}
	got := <-follower
	if got.err != nil || got.n != 4 {
		t.Fatalf("follower got n=%d err=%v", got.n, got.err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream call, got %d", calls.Load())
	}
}

func TestMessageAPI_SendAndMarkAsRead(t *testing.T) {
	var method, path string
	var body domain.ComposeInput
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&body)
			writeJSON(w, http.StatusCreated, map[string]any{"_id": "m9", "subject": body.Subject, "parentMessage": body.ParentMessage})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_id": "m1", "read": true})
	}, nil)
	api := NewMessageAPI(c)

	sent, err := api.Send(context.Background(), domain.ComposeInput{Recipient: "u2", Subject: "Re: Hi", Content: "x", ParentMessage: "m1"})
	if err != nil {
		t.Fatal(err)
	}
	if sent.ID != "m9" || sent.ParentMessage != "m1" || body.ParentMessage != "m1" {
		t.Fatalf("unexpected send round trip: %+v / %+v", sent, body)
	}

	msg, err := api.MarkAsRead(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPut || path != "/api/messages/m1/read" || !msg.Read {
		t.Fatalf("unexpected mark-as-read call %s %s %+v", method, path, msg)
	}
}

func TestResourceOf(t *testing.T) {
	cases := map[string]string{
		"/api/messages/1/read": "messages",
		"/api/equipments":      "equipments",
		"/api/auth/me":         "auth",
		"/api/":                "root",
	}
	for in, want := range cases {
		if got := resourceOf(in); got != want {
			t.Errorf("resourceOf(%q) = %q, want %q", in, got, want)
		}
	}
}

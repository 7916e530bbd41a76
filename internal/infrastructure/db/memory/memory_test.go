package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestFlashStore_ClearsAfterTTL(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	f := NewFlashStore(3 * time.Second)
	f.now = c.now
	ctx := context.Background()

	_ = f.Set(ctx, "s1", ports.Flash{Kind: "error", Text: "Failed to send message"})
	c.t = c.t.Add(2 * time.Second)
	if got, _ := f.Get(ctx, "s1"); got == nil || got.Text != "Failed to send message" {
		t.Fatalf("flash must still be visible, got %+v", got)
	}
	c.t = c.t.Add(time.Second)
	if got, _ := f.Get(ctx, "s1"); got != nil {
		t.Fatalf("flash must clear after 3s, got %+v", got)
	}
}

func TestSubmissionGuard_Window(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	g := NewSubmissionGuard(5 * time.Second)
	g.now = c.now
	ctx := context.Background()

	if ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Fatal("first acquire must succeed")
	}
	if ok, _ := g.Acquire(ctx, "k"); ok {
		t.Fatal("duplicate inside the window must be rejected")
	}
	if ok, _ := g.Acquire(ctx, "other"); !ok {
		t.Fatal("different key must succeed")
	}
	c.t = c.t.Add(5 * time.Second)
	if ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Fatal("acquire after the window must succeed")
	}
}

func TestFlashStore_SetSweepsExpiredBanners(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	f := NewFlashStore(3 * time.Second)
	f.now = c.now
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_ = f.Set(ctx, fmt.Sprintf("s%d", i), ports.Flash{Kind: "success", Text: "Message sent"})
	}
	c.t = c.t.Add(3 * time.Second)
	_ = f.Set(ctx, "fresh", ports.Flash{Kind: "success", Text: "Product created"})

	if n := len(f.data); n != 1 {
		t.Fatalf("expected only the fresh banner to be held, got %d", n)
	}
	if got, _ := f.Get(ctx, "fresh"); got == nil || got.Text != "Product created" {
		t.Fatalf("fresh banner missing, got %+v", got)
	}
}

func TestSessionStore_ExpiresAfterTTL(t *testing.T) {
	c := &clock{t: time.Unix(1000, 0)}
	s := NewSessionStore(time.Hour)
	s.now = c.now
	ctx := context.Background()
	sess := domain.Session{User: &domain.User{ID: "u1", Role: domain.RoleClient}, Token: "tok"}

	_ = s.Save(ctx, "abandoned", sess)
	_ = s.Save(ctx, "active", sess)
	c.t = c.t.Add(30 * time.Minute)
	_ = s.Save(ctx, "active", sess)
	c.t = c.t.Add(40 * time.Minute)

	if got, _ := s.Load(ctx, "abandoned"); got != nil {
		t.Fatalf("abandoned session must expire, got %+v", got)
	}
	if got, _ := s.Load(ctx, "active"); got == nil || got.Token != "tok" {
		t.Fatalf("saving must extend the session, got %+v", got)
	}

	_ = s.Save(ctx, "other", sess)
	c.t = c.t.Add(2 * time.Hour)
	_ = s.Save(ctx, "late", sess)
	if n := len(s.data); n != 1 {
		t.Fatalf("expired sessions must be swept on save, %d held", n)
	}
}

func TestSubmissionGuard_Release(t *testing.T) {
	g := NewSubmissionGuard(5 * time.Second)
	ctx := context.Background()

	if ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Fatal("first acquire must succeed")
	}
	_ = g.Release(ctx, "k")
	if ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Fatal("released key must be acquirable again")
	}
}

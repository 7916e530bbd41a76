package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/infrastructure/apiclient"
)

func newProductEnv() (*env, *stubResourceAPI[domain.Product], *ResourceHandler[domain.Product]) {
	ev := newEnv(&domain.User{ID: "u1", Role: domain.RoleFournisseur})
	api := &stubResourceAPI[domain.Product]{}
	return ev, api, NewResourceHandler[domain.Product](api, "product", ev.flash, zerolog.Nop())
}

func TestResourceHandler_List_EmptyIsArray(t *testing.T) {
	ev, _, h := newProductEnv()

	rec, err := ev.call(h.List, true, http.MethodGet, "/dashboard/products", "")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	items, ok := resp["items"].([]any)
	if !ok || len(items) != 0 {
		t.Fatalf("expected empty items array, got %v", resp)
	}
}

func TestResourceHandler_Create(t *testing.T) {
	ev, api, h := newProductEnv()

	rec, err := ev.call(h.Create, true, http.MethodPost, "/dashboard/products",
		`{"name":"Drill","price":120.5,"stock":4}`)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated || len(api.created) != 1 || api.created[0].Name != "Drill" {
		t.Fatalf("unexpected create %d %+v", rec.Code, api.created)
	}
	if fl := ev.lastFlash(); fl == nil || fl.Text != "Product created" {
		t.Fatalf("expected banner, got %+v", fl)
	}
}

func TestResourceHandler_Create_Invalid(t *testing.T) {
	ev, api, h := newProductEnv()

	_, err := ev.call(h.Create, true, http.MethodPost, "/dashboard/products", `{"price":-1}`)
	msg, ok := ValidationMessage(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if msg != "name is required; price must be at least 0" {
		t.Fatalf("unexpected message %q", msg)
	}
	if len(api.created) != 0 {
		t.Fatal("invalid item must not reach the backend")
	}
}

func TestResourceHandler_Delete_FailureFlashesServerMessage(t *testing.T) {
	ev, api, h := newProductEnv()
	api.err = &apiclient.APIError{Status: http.StatusConflict, Message: "Product is referenced by an order"}

	_, err := ev.call(h.Delete, true, http.MethodDelete, "/dashboard/products/p1", "", "id", "p1")
	var apiErr *apiclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected API error, got %v", err)
	}
	if fl := ev.lastFlash(); fl == nil || fl.Kind != flashError || fl.Text != "Product is referenced by an order" {
		t.Fatalf("expected error banner, got %+v", fl)
	}
}

func TestResourceHandler_Get_NotFound(t *testing.T) {
	ev, _, h := newProductEnv()

	_, err := ev.call(h.Get, true, http.MethodGet, "/dashboard/products/p1", "", "id", "p1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

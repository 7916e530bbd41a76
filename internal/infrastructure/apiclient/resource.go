package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

// Resource is uniform CRUD over /api/<plural>. Failures carry the server's
// message, or "Failed to <verb> <noun>" when it sent none.
type Resource[T any] struct {
	c      *Client
	path   string
	noun   string
	plural string
}

var _ ports.ResourceAPI[domain.Product] = (*Resource[domain.Product])(nil)

// NewResource serves /api/<plural>; noun and plural name it in error messages.
func NewResource[T any](c *Client, plural, noun, pluralNoun string) *Resource[T] {
	return &Resource[T]{c: c, path: "/api/" + plural, noun: noun, plural: pluralNoun}
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.c.Do(ctx, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, Normalize(err, "Failed to get "+r.plural)
	}
	return out, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodGet, r.item(id), nil, &out); err != nil {
		return nil, Normalize(err, "Failed to get "+r.noun)
	}
	return &out, nil
}

func (r *Resource[T]) Create(ctx context.Context, item T) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPost, r.path, item, &out); err != nil {
		return nil, Normalize(err, "Failed to create "+r.noun)
	}
	return &out, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, item T) (*T, error) {
	var out T
	if err := r.c.Do(ctx, http.MethodPut, r.item(id), item, &out); err != nil {
		return nil, Normalize(err, "Failed to update "+r.noun)
	}
	return &out, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return Normalize(r.c.Do(ctx, http.MethodDelete, r.item(id), nil, nil), "Failed to delete "+r.noun)
}

func (r *Resource[T]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func Equipments(c *Client) *Resource[domain.Equipment] {
	return NewResource[domain.Equipment](c, "equipments", "equipment", "equipment")
}

func Products(c *Client) *Resource[domain.Product] {
	return NewResource[domain.Product](c, "products", "product", "products")
}

func Orders(c *Client) *Resource[domain.Order] {
	return NewResource[domain.Order](c, "orders", "order", "orders")
}

func Deliveries(c *Client) *Resource[domain.Delivery] {
	return NewResource[domain.Delivery](c, "deliveries", "delivery", "deliveries")
}

func Users(c *Client) *Resource[domain.Account] {
	return NewResource[domain.Account](c, "users", "user", "users")
}

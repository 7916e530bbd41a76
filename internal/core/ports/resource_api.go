package ports

import "context"

// ResourceAPI is the uniform CRUD contract shared by equipment, products,
// orders, deliveries and users.
type ResourceAPI[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, item T) (*T, error)
	Update(ctx context.Context, id string, item T) (*T, error)
	Delete(ctx context.Context, id string) error
}

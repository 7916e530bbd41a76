package ports

import (
	"context"

	"github.com/batuta/dashboard/internal/core/domain"
)

// MessageAPI is the upstream messaging contract.
type MessageAPI interface {
	List(ctx context.Context) ([]domain.Message, error)
	UnreadCount(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (*domain.Message, error)
	Send(ctx context.Context, in domain.ComposeInput) (*domain.Message, error)
	MarkAsRead(ctx context.Context, id string) (*domain.Message, error)
	Delete(ctx context.Context, id string) error
	Conversation(ctx context.Context, userID string) ([]domain.Message, error)
}

// ReadReceipt asks for one message to be marked read on behalf of the
// session owning Token.
type ReadReceipt struct {
	MessageID string
	Token     string
}

// ReadMarker accepts receipts for background delivery. Enqueue never blocks
// and reports false when the receipt was dropped.
type ReadMarker interface {
	Enqueue(r ReadReceipt) bool
}

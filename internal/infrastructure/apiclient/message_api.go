package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

// MessageAPI implements ports.MessageAPI over /api/messages.
type MessageAPI struct {
	c *Client
}

func NewMessageAPI(c *Client) *MessageAPI {
	return &MessageAPI{c: c}
}

var _ ports.MessageAPI = (*MessageAPI)(nil)

func (m *MessageAPI) List(ctx context.Context) ([]domain.Message, error) {
	var out []domain.Message
	if err := m.c.Do(ctx, http.MethodGet, "/api/messages", nil, &out); err != nil {
		return nil, Normalize(err, "Failed to get messages")
	}
	return out, nil
}

func (m *MessageAPI) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := m.c.Do(ctx, http.MethodGet, "/api/messages/unread", nil, &out); err != nil {
		return 0, Normalize(err, "Failed to get unread count")
	}
	return out.Count, nil
}

func (m *MessageAPI) Get(ctx context.Context, id string) (*domain.Message, error) {
	var out domain.Message
	if err := m.c.Do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, Normalize(err, "Failed to get message")
	}
	return &out, nil
}

func (m *MessageAPI) Send(ctx context.Context, in domain.ComposeInput) (*domain.Message, error) {
	var out domain.Message
	if err := m.c.Do(ctx, http.MethodPost, "/api/messages", in, &out); err != nil {
		return nil, Normalize(err, "Failed to send message")
	}
	return &out, nil
}

func (m *MessageAPI) MarkAsRead(ctx context.Context, id string) (*domain.Message, error) {
	var out domain.Message
	if err := m.c.Do(ctx, http.MethodPut, "/api/messages/"+url.PathEscape(id)+"/read", nil, &out); err != nil {
		return nil, Normalize(err, "Failed to mark message as read")
	}
	return &out, nil
}

func (m *MessageAPI) Delete(ctx context.Context, id string) error {
	err := m.c.Do(ctx, http.MethodDelete, "/api/messages/"+url.PathEscape(id), nil, nil)
	return Normalize(err, "Failed to delete message")
}

func (m *MessageAPI) Conversation(ctx context.Context, userID string) ([]domain.Message, error) {
	var out []domain.Message
	if err := m.c.Do(ctx, http.MethodGet, "/api/messages/conversation/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, Normalize(err, "Failed to get conversation")
	}
	return out, nil
}

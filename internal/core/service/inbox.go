package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
)

// Viewer is the session the inbox is shown to.
type Viewer interface {
	User() *domain.User
	Token() string
}

// Confirmer asks the user to confirm a destructive action.
type Confirmer func() bool

// Inbox keeps the loaded message list of one viewer and applies local
// updates after each mutation instead of refetching.
type Inbox struct {
	api      ports.MessageAPI
	marker   ports.ReadMarker
	viewer   Viewer
	validate *validator.Validate
	log      zerolog.Logger

	mu       sync.RWMutex
	messages []domain.Message
}

func NewInbox(api ports.MessageAPI, marker ports.ReadMarker, viewer Viewer, log zerolog.Logger) *Inbox {
	return &Inbox{
		api:      api,
		marker:   marker,
		viewer:   viewer,
		validate: validator.New(),
		log:      log.With().Str("component", "inbox").Logger(),
	}
}

// Load replaces the local list with the server's.
func (in *Inbox) Load(ctx context.Context) ([]domain.Message, error) {
	msgs, err := in.api.List(ctx)
	if err != nil {
		return nil, err
	}
	in.mu.Lock()
	in.messages = msgs
	in.mu.Unlock()
	return in.Messages(), nil
}

// Messages returns a copy of the local list.
func (in *Inbox) Messages() []domain.Message {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return slices.Clone(in.messages)
}

// Select opens a message. An unread message addressed to the viewer is
// queued for mark-as-read and shown as read right away.
func (in *Inbox) Select(ctx context.Context, id string) (*domain.Message, error) {
	in.mu.RLock()
	idx := in.indexOf(id)
	var msg domain.Message
	if idx >= 0 {
		msg = in.messages[idx]
	}
	in.mu.RUnlock()

	if idx < 0 {
		fetched, err := in.api.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		msg = *fetched
	}

	if !msg.Read && in.isRecipient(msg) {
		if !in.marker.Enqueue(ports.ReadReceipt{MessageID: msg.ID, Token: in.viewer.Token()}) {
			in.log.Warn().Str("message_id", msg.ID).Msg("read receipt dropped")
		}
		msg.Read = true
		in.mu.Lock()
		if i := in.indexOf(id); i >= 0 {
			in.messages[i].Read = true
		}
		in.mu.Unlock()
	}
	return &msg, nil
}

// Compose validates and sends a new message, adding it to the local list.
func (in *Inbox) Compose(ctx context.Context, input domain.ComposeInput) (*domain.Message, error) {
	if err := in.validate.Struct(input); err != nil {
		return nil, err
	}
	sent, err := in.api.Send(ctx, input)
	if err != nil {
		return nil, err
	}
	in.mu.Lock()
	in.messages = append([]domain.Message{*sent}, in.messages...)
	in.mu.Unlock()
	return sent, nil
}

// Reply answers original. The reply goes back to the original sender and
// references original as its parent.
func (in *Inbox) Reply(ctx context.Context, original domain.Message, content string) (*domain.Message, error) {
	if original.ID == "" {
		return nil, fmt.Errorf("reply: %w", domain.ErrNotFound)
	}
	return in.Compose(ctx, domain.ComposeInput{
		Recipient:     original.Sender.ID,
		Subject:       domain.ReplySubject(original.Subject),
		Content:       content,
		ParentMessage: original.ID,
	})
}

// Delete removes a message once confirm agrees. It reports whether a delete
// was issued.
func (in *Inbox) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if confirm == nil || !confirm() {
		return false, nil
	}
	if err := in.api.Delete(ctx, id); err != nil {
		return false, err
	}
	in.mu.Lock()
	if i := in.indexOf(id); i >= 0 {
		in.messages = slices.Delete(in.messages, i, i+1)
	}
	in.mu.Unlock()
	return true, nil
}

// Replies lists the loaded messages whose parent is parentID.
func (in *Inbox) Replies(parentID string) []domain.Message {
	in.mu.RLock()
	defer in.mu.RUnlock()
	var out []domain.Message
	for _, m := range in.messages {
		if m.ParentMessage == parentID && parentID != "" {
			out = append(out, m)
		}
	}
	return out
}

func (in *Inbox) isRecipient(m domain.Message) bool {
	u := in.viewer.User()
	return u != nil && m.IsFor(u.ID)
}

// indexOf must be called with mu held.
func (in *Inbox) indexOf(id string) int {
	return slices.IndexFunc(in.messages, func(m domain.Message) bool { return m.ID == id })
}

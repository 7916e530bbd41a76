package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/batuta/dashboard/internal/api/metrics"
	"github.com/batuta/dashboard/internal/core/domain"
	"github.com/batuta/dashboard/internal/core/ports"
	"github.com/batuta/dashboard/internal/core/service"
)

// MessageHandler serves the inbox. Each request builds an Inbox over the
// session's view of the mailbox.
type MessageHandler struct {
	api          ports.MessageAPI
	marker       ports.ReadMarker
	pollInterval time.Duration
	flash        flasher
	log          zerolog.Logger
}

func NewMessageHandler(api ports.MessageAPI, marker ports.ReadMarker, flash ports.FlashStore, pollInterval time.Duration, log zerolog.Logger) *MessageHandler {
	l := log.With().Str("component", "message_handler").Logger()
	return &MessageHandler{
		api:          api,
		marker:       marker,
		pollInterval: pollInterval,
		flash:        flasher{store: flash, log: l},
		log:          l,
	}
}

func (h *MessageHandler) inbox(c echo.Context) (*service.Inbox, error) {
	store, err := ctxAuth(c)
	if err != nil {
		return nil, err
	}
	return service.NewInbox(h.api, h.marker, store, h.log), nil
}

// List returns the mailbox with the unread badge.
//
// @Summary      List messages
// @Tags         messages
// @Produce      json
// @Success      200  {object}  inboxResponse
// @Failure      401  {object}  errorResponse
// @Router       /dashboard/messages [get]
func (h *MessageHandler) List(c echo.Context) error {
	in, err := h.inbox(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	msgs, err := in.Load(ctx)
	if err != nil {
		return err
	}

	count, err := h.api.UnreadCount(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("unread count unavailable")
		count = 0
	}
	b := newUnreadResponse(count)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return c.JSON(http.StatusOK, inboxResponse{
		Messages:    msgs,
		Unread:      count,
		Badge:       b.Badge,
		MobileBadge: b.MobileBadge,
		Flash:       h.flash.get(c),
	})
}

// Unread returns the unread count and its badge rendering.
//
// @Summary      Unread count
// @Tags         messages
// @Produce      json
// @Success      200  {object}  unreadResponse
// @Router       /dashboard/messages/unread [get]
func (h *MessageHandler) Unread(c echo.Context) error {
	n, err := h.api.UnreadCount(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newUnreadResponse(n))
}

// Stream pushes the unread count as server-sent events: once on connect,
// then every poll interval, until the client leaves or the session ends.
//
// @Summary      Unread count stream
// @Tags         messages
// @Produce      text/event-stream
// @Success      200  {object}  unreadResponse
// @Router       /dashboard/messages/unread/stream [get]
func (h *MessageHandler) Stream(c echo.Context) error {
	store, err := ctxAuth(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	// Re-read the persisted session on every tick so a logout from another
	// tab stops this stream.
	active := func() bool {
		if err := store.Hydrate(ctx); err != nil {
			return false
		}
		return store.Token() != ""
	}

	res := c.Response()
	send := func(n int) {
		payload, _ := json.Marshal(newUnreadResponse(n))
		if _, err := fmt.Fprintf(res, "event: unread\ndata: %s\n\n", payload); err != nil {
			h.log.Debug().Err(err).Msg("stream write failed")
			return
		}
		res.Flush()
	}

	poller := service.NewUnreadPoller(h.api, active, h.pollInterval, send, h.log)
	if !active() {
		return domain.ErrUnauthenticated
	}

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	if !poller.Start(ctx) {
		return nil
	}
	metrics.UnreadStreamsActive.Inc()
	defer metrics.UnreadStreamsActive.Dec()

	select {
	case <-ctx.Done():
	case <-poller.Done():
	}
	poller.Stop()
	return nil
}

// Get opens one message with the replies to it, marking it read in the
// background when the viewer is its recipient.
//
// @Summary      Open a message
// @Tags         messages
// @Produce      json
// @Param        id   path      string  true  "Message ID"
// @Success      200  {object}  messageDetail
// @Failure      404  {object}  errorResponse
// @Router       /dashboard/messages/{id} [get]
func (h *MessageHandler) Get(c echo.Context) error {
	in, err := h.inbox(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := in.Load(ctx); err != nil {
		h.log.Warn().Err(err).Str("message_id", id).Msg("load mailbox for replies")
	}
	msg, err := in.Select(ctx, id)
	if err != nil {
		return err
	}
	replies := in.Replies(msg.ID)
	if replies == nil {
		replies = []domain.Message{}
	}
	return c.JSON(http.StatusOK, messageDetail{Message: *msg, Replies: replies})
}

// Compose sends a new message.
//
// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        body  body      domain.ComposeInput  true  "Message"
// @Success      201   {object}  domain.Message
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /dashboard/messages [post]
func (h *MessageHandler) Compose(c echo.Context) error {
	var req domain.ComposeInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	in, err := h.inbox(c)
	if err != nil {
		return err
	}
	msg, err := in.Compose(c.Request().Context(), req)
	if err != nil {
		return h.flash.failed(c, err)
	}
	h.flash.set(c, flashSuccess, "Message sent")
	return c.JSON(http.StatusCreated, msg)
}

// Reply answers a message; the reply references it as parent.
//
// @Summary      Reply to a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Message ID"
// @Param        body  body      replyRequest  true  "Reply"
// @Success      201   {object}  domain.Message
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /dashboard/messages/{id}/reply [post]
func (h *MessageHandler) Reply(c echo.Context) error {
	var req replyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	in, err := h.inbox(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	original, err := h.api.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	msg, err := in.Reply(ctx, *original, req.Content)
	if err != nil {
		return h.flash.failed(c, err)
	}
	h.flash.set(c, flashSuccess, "Reply sent")
	return c.JSON(http.StatusCreated, msg)
}

// Delete removes a message. Without ?confirm=true nothing is deleted and the
// client is asked to confirm.
//
// @Summary      Delete a message
// @Tags         messages
// @Produce      json
// @Param        id       path   string  true   "Message ID"
// @Param        confirm  query  bool    false  "Must be true to delete"
// @Success      204
// @Failure      428  {object}  deletePrompt
// @Router       /dashboard/messages/{id} [delete]
func (h *MessageHandler) Delete(c echo.Context) error {
	in, err := h.inbox(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	confirmed := c.QueryParam("confirm") == "true"

	done, err := in.Delete(c.Request().Context(), id, func() bool { return confirmed })
	if err != nil {
		return h.flash.failed(c, err)
	}
	if !done {
		return c.JSON(http.StatusPreconditionRequired, deletePrompt{
			Error:   domain.ErrConfirmationRequired.Error(),
			Confirm: c.Request().URL.Path + "?confirm=true",
		})
	}
	h.flash.set(c, flashSuccess, "Message deleted")
	return c.NoContent(http.StatusNoContent)
}

// Conversation lists the messages exchanged with one user.
//
// @Summary      Conversation with a user
// @Tags         messages
// @Produce      json
// @Param        userId  path      string  true  "Other user's ID"
// @Success      200     {array}   domain.Message
// @Router       /dashboard/messages/conversation/{userId} [get]
func (h *MessageHandler) Conversation(c echo.Context) error {
	msgs, err := h.api.Conversation(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return c.JSON(http.StatusOK, msgs)
}

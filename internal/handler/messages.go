package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/docreplace-portal/internal/apperr"
	"github.com/iliyamo/docreplace-portal/internal/model"
	"github.com/iliyamo/docreplace-portal/internal/service"
	"github.com/iliyamo/docreplace-portal/internal/session"
)

// MessageHandler exposes the customer/staff chat.
type MessageHandler struct {
	Messages *service.MessageService
	Roles    session.RoleChecker
}

func NewMessageHandler(messages *service.MessageService, roles session.RoleChecker) *MessageHandler {
	return &MessageHandler{Messages: messages, Roles: roles}
}

// canTalkTo enforces that customers only message staff.  Admins may
// message anyone.
func (h *MessageHandler) canTalkTo(ctx context.Context, me, peer uint64) error {
	if ok, err := h.Roles.HasRole(ctx, me, model.RoleAdmin); err != nil || ok {
		return err
	}
	ok, err := h.Roles.HasRole(ctx, peer, model.RoleAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden()
	}
	return nil
}

// Conversation handles GET /v1/messages/:peer.  Opening a conversation
// marks the peer's messages as read.
func (h *MessageHandler) Conversation(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	peer, err := userIDParam(c, "peer")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.canTalkTo(ctx, s.UserID, peer); err != nil {
		return writeError(c, err)
	}
	msgs, err := h.Messages.ListConversation(ctx, s.UserID, peer)
	if err != nil {
		return writeError(c, err)
	}
	if _, err := h.Messages.MarkRead(ctx, s.UserID, peer); err != nil {
		c.Logger().Warnf("messages: mark read %d<-%d: %v", s.UserID, peer, err)
	}
	return c.JSON(http.StatusOK, msgs)
}

// Send handles POST /v1/messages/:peer with {"content": "..."}.
func (h *MessageHandler) Send(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	peer, err := userIDParam(c, "peer")
	if err != nil {
		return writeError(c, err)
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.canTalkTo(ctx, s.UserID, peer); err != nil {
		return writeError(c, err)
	}
	m, err := h.Messages.Send(ctx, s.UserID, peer, body.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// MarkRead handles POST /v1/messages/:peer/read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	peer, err := userIDParam(c, "peer")
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Messages.MarkRead(ctx, s.UserID, peer)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

// Unread handles GET /v1/messages/unread: unread counts keyed by sender.
func (h *MessageHandler) Unread(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	counts, err := h.Messages.UnreadCounts(ctx, s.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}

// SupportContact handles GET /v1/messages/support: the staff user a
// customer chats with.
func (h *MessageHandler) SupportContact(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Messages.StaffContact(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": id})
}

// Stream handles GET /v1/messages/stream as Server-Sent Events.  With
// ?peer=<id> it follows that conversation: a "history" event first, then
// "message" events for each new message from peer, which are marked read
// as they arrive.  Without peer it forwards every inbound message.  The
// stream ends when the client disconnects.
func (h *MessageHandler) Stream(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	incoming := make(chan model.Message, 16)
	deliver := func(m model.Message) {
		select {
		case incoming <- m:
		case <-ctx.Done():
		}
	}

	var history []model.Message
	p := c.QueryParam("peer")
	if p != "" {
		peer, err := strconv.ParseUint(p, 10, 64)
		if err != nil || peer == 0 {
			return writeError(c, apperr.Validation("peer", "must be a user id"))
		}
		if err := h.canTalkTo(ctx, s.UserID, peer); err != nil {
			return writeError(c, err)
		}
		if history, err = h.Messages.OpenConversation(ctx, s.UserID, peer, deliver); err != nil {
			return writeError(c, err)
		}
	} else if err := h.Messages.SubscribeInbound(ctx, s.UserID, deliver); err != nil {
		return writeError(c, err)
	}

	stream := openSSE(c)
	if p != "" {
		if history == nil {
			history = []model.Message{}
		}
		if err := stream.send("history", history); err != nil {
			return nil
		}
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-incoming:
			if err := stream.send("message", m); err != nil {
				return nil
			}
		case <-ticker.C:
			if err := stream.ping(); err != nil {
				return nil
			}
		}
	}
}

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/advocate-booking/internal/model"
)

// Chats is the appointment chat surface of the service layer.
type Chats interface {
	OpenChatRoom(ctx context.Context, actor model.Actor, appointmentID uint64) (*model.ChatRoom, error)
	SendChatMessage(ctx context.Context, actor model.Actor, roomID uint64, text string) (*model.ChatMessage, error)
	ListChatMessages(ctx context.Context, actor model.Actor, roomID, afterID uint64) ([]model.ChatMessage, error)
}

// ChatHandler serves the message thread between a client and an advocate.
type ChatHandler struct {
	Svc Chats
}

func NewChatHandler(svc Chats) *ChatHandler { return &ChatHandler{Svc: svc} }

type chatMessageReq struct {
	Text string `json:"text" validate:"required"`
}

// Open handles POST /v1/appointments/:id/chat.  It returns the room and
// its first page of messages.
func (h *ChatHandler) Open(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	ctx := c.Request().Context()
	room, err := h.Svc.OpenChatRoom(ctx, actor, id)
	if err != nil {
		return respondError(c, err)
	}
	msgs, err := h.Svc.ListChatMessages(ctx, actor, room.ID, 0)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"room": room, "messages": msgs})
}

// Send handles POST /v1/chats/:id/messages.
func (h *ChatHandler) Send(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var req chatMessageReq
	if err := bind(c, &req); err != nil {
		return done(err)
	}
	m, err := h.Svc.SendChatMessage(c.Request().Context(), actor, id, req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// List handles GET /v1/chats/:id/messages?after=.  after is the last
// message id the caller has seen.
func (h *ChatHandler) List(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return done(err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return done(err)
	}
	var after uint64
	if s := c.QueryParam("after"); s != "" {
		after, err = strconv.ParseUint(s, 10, 64)
		if err != nil {
			return done(badRequest(c, "after must be a message id"))
		}
	}
	msgs, err := h.Svc.ListChatMessages(c.Request().Context(), actor, id, after)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

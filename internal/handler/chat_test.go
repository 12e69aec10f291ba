package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/advocate-booking/internal/model"
	"github.com/iliyamo/advocate-booking/internal/service"
)

type stubChats struct {
	sent  string
	after uint64
}

func (s *stubChats) OpenChatRoom(_ context.Context, _ model.Actor, appointmentID uint64) (*model.ChatRoom, error) {
	if appointmentID != 5 {
		return nil, service.ValidationError("chat is available only for approved or completed appointments")
	}
	return &model.ChatRoom{ID: 3, AppointmentID: appointmentID}, nil
}

func (s *stubChats) SendChatMessage(_ context.Context, a model.Actor, roomID uint64, text string) (*model.ChatMessage, error) {
	s.sent = text
	return &model.ChatMessage{ID: 10, RoomID: roomID, SenderID: a.UserID, Text: text}, nil
}

func (s *stubChats) ListChatMessages(_ context.Context, _ model.Actor, roomID, afterID uint64) ([]model.ChatMessage, error) {
	s.after = afterID
	return []model.ChatMessage{{ID: afterID + 1, RoomID: roomID, Text: "hello"}}, nil
}

func TestChatOpen(t *testing.T) {
	h := NewChatHandler(&stubChats{})

	rec := serveJSON(http.MethodPost, "/v1/appointments/:id/chat", "/v1/appointments/5/chat", "", &client, h.Open)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 3, body["room"].(map[string]any)["id"])
	assert.Len(t, body["messages"], 1)

	rec = serveJSON(http.MethodPost, "/v1/appointments/:id/chat", "/v1/appointments/6/chat", "", &client, h.Open)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatSendAndList(t *testing.T) {
	stub := &stubChats{}
	h := NewChatHandler(stub)

	rec := serveJSON(http.MethodPost, "/v1/chats/:id/messages", "/v1/chats/3/messages", `{"text":"hello"}`, &client, h.Send)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 3, body["room_id"])
	assert.Equal(t, "hello", stub.sent)

	rec = serveJSON(http.MethodPost, "/v1/chats/:id/messages", "/v1/chats/3/messages", `{}`, &client, h.Send)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", decode(t, rec)["fields"].(map[string]any)["text"])

	rec = serveJSON(http.MethodGet, "/v1/chats/:id/messages", "/v1/chats/3/messages?after=41", "", &client, h.List)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(41), stub.after)

	rec = serveJSON(http.MethodGet, "/v1/chats/:id/messages", "/v1/chats/3/messages?after=x", "", &client, h.List)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serveJSON(http.MethodGet, "/v1/chats/:id/messages", "/v1/chats/3/messages", "", nil, h.List)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

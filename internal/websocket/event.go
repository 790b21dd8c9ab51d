package websocket

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Wire protocol: every frame in either direction is {"event": ..., "data": ...}.
const (
	// client -> server
	EventJoinChat  = "join_chat"
	EventLeaveChat = "leave_chat"
	EventMessage   = "message"
	EventHistory   = "history"
	EventTyping    = "typing"

	// server -> client
	EventJoined     = "joined"
	EventLeft       = "left"
	EventAiThinking = "ai_thinking"
	EventError      = "error"
	// message, history and typing reuse the inbound names on the way out
)

type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type JoinChatPayload struct {
	ChatId uuid.UUID `json:"chatId"`
}

type LeaveChatPayload struct {
	ChatId uuid.UUID `json:"chatId"`
}

type MessagePayload struct {
	ChatId uuid.UUID `json:"chatId"`
	Text   string    `json:"text"`
}

type HistoryRequestPayload struct {
	ChatId uuid.UUID `json:"chatId"`
	Limit  int       `json:"limit"`
}

type TypingPayload struct {
	ChatId   uuid.UUID `json:"chatId"`
	IsTyping bool      `json:"isTyping"`
}

type JoinedPayload struct {
	ChatId uuid.UUID `json:"chatId"`
	Title  string    `json:"title"`
	Topics []string  `json:"topics"`
}

type MessageEventPayload struct {
	ChatId    uuid.UUID `json:"chatId"`
	MessageId uuid.UUID `json:"messageId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Model     *string   `json:"model,omitempty"`
	Position  int       `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryEventPayload struct {
	ChatId   uuid.UUID             `json:"chatId"`
	Messages []MessageEventPayload `json:"messages"`
}

type TypingEventPayload struct {
	ChatId   uuid.UUID `json:"chatId"`
	UserId   uuid.UUID `json:"userId"`
	IsTyping bool      `json:"isTyping"`
}

type AiThinkingPayload struct {
	ChatId uuid.UUID `json:"chatId"`
}

type ErrorPayload struct {
	ChatId  *uuid.UUID `json:"chatId,omitempty"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
}

// encodeFrame marshals an outbound frame. Payload types here never fail to
// marshal, so errors collapse to a generic error frame.
func encodeFrame(event string, data interface{}) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte(`{}`)
	}
	frame, _ := json.Marshal(Frame{Event: event, Data: raw})
	return frame
}

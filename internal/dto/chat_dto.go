package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartChatRequest struct {
	Topics []string `json:"topics" validate:"required,min=1,max=2"`
	Title  string   `json:"title" validate:"omitempty,max=200"`
}

type SetContextRequest struct {
	Key   string      `json:"key" validate:"required,max=100"`
	Value interface{} `json:"value" validate:"required"`
}

type UpdateTitleRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type ChatSessionResponse struct {
	Id            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Topics        []string   `json:"topics"`
	MessageCount  int        `json:"messageCount"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Model     *string   `json:"model,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatDetailResponse struct {
	ChatSessionResponse
	Messages []MessageResponse `json:"messages"`
}

type ChatStatsResponse struct {
	ChatId        uuid.UUID  `json:"chatId"`
	Topics        []string   `json:"topics"`
	TotalMessages int64      `json:"totalMessages"`
	UserMessages  int64      `json:"userMessages"`
	AiMessages    int64      `json:"aiMessages"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
}

type BackendHealthResponse struct {
	Backend     string    `json:"backend"`
	Available   bool      `json:"available"`
	LastChecked time.Time `json:"lastChecked"`
	Error       string    `json:"error,omitempty"`
	LatencyMs   int64     `json:"latencyMs"`
}

// RecordUtteranceMessage is the payload carried on the in-process extraction
// pipeline between the realtime coordinator and the extraction worker.
type RecordUtteranceMessage struct {
	ChatId uuid.UUID `json:"chat_id"`
	Text   string    `json:"text"`
}

package mapper

import (
	"encoding/json"
	"time"

	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/model"

	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var topics []constant.ChatTopic
	_ = json.Unmarshal(s.Topics, &topics)

	var userInfo entity.UserInfo
	if len(s.UserInfo) > 0 {
		_ = json.Unmarshal(s.UserInfo, &userInfo)
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:             s.Id,
		OwnerId:        s.OwnerId,
		Topics:         topics,
		Title:          s.Title,
		IsActive:       s.IsActive,
		MessageCount:   s.MessageCount,
		LastMessageAt:  s.LastMessageAt,
		SessionContext: map[string]interface{}(s.SessionContext),
		UserInfo:       userInfo,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	topics, _ := json.Marshal(s.Topics)
	userInfo, _ := json.Marshal(s.UserInfo)

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:             s.Id,
		OwnerId:        s.OwnerId,
		Topics:         datatypes.JSON(topics),
		Title:          s.Title,
		IsActive:       s.IsActive,
		MessageCount:   s.MessageCount,
		LastMessageAt:  s.LastMessageAt,
		SessionContext: datatypes.JSONMap(s.SessionContext),
		UserInfo:       datatypes.JSON(userInfo),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      updatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Sender:        msg.Sender,
		Text:          msg.Text,
		Model:         msg.Model,
		Position:      msg.Position,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Sender:        msg.Sender,
		Text:          msg.Text,
		Model:         msg.Model,
		Position:      msg.Position,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessagesToEntities(models []*model.ChatMessage) []*entity.ChatMessage {
	entities := make([]*entity.ChatMessage, len(models))
	for i, msg := range models {
		entities[i] = m.ChatMessageToEntity(msg)
	}
	return entities
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_messages_session_position,priority:1"`
	Sender        string    `gorm:"type:varchar(8);not null"`
	Text          string    `gorm:"type:text;not null"`
	Model         *string   `gorm:"type:text"`
	Position      int       `gorm:"not null;uniqueIndex:idx_chat_messages_session_position,priority:2"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

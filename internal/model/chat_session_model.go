package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatSession struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OwnerId        uuid.UUID         `gorm:"type:uuid;not null;index"` // ownership scoping for data isolation
	Topics         datatypes.JSON    `gorm:"type:jsonb;not null"`
	Title          string            `gorm:"type:text;not null"`
	IsActive       bool              `gorm:"not null;default:true;index"`
	MessageCount   int               `gorm:"not null;default:0"`
	LastMessageAt  *time.Time        `gorm:"index"`
	SessionContext datatypes.JSONMap `gorm:"type:jsonb"`
	UserInfo       datatypes.JSON    `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

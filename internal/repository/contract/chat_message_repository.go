package contract

import (
	"context"

	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/repository/specification"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	CountBySender(ctx context.Context, specs ...specification.Specification) (map[string]int64, error)
}

package contract

import (
	"context"

	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/repository/specification"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Update(ctx context.Context, session *entity.ChatSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	// FindOneForUpdate takes a row lock on the matched session for the
	// lifetime of the surrounding transaction. It is the serialization point
	// for message appends; only call it inside a started UnitOfWork.
	FindOneForUpdate(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

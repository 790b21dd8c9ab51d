package contract

import (
	"context"

	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/repository/specification"
)

// UserRepository is read-only: the identity table belongs to the auth
// collaborator.
type UserRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
}

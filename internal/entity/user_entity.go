package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the verified external identity handed to the core by the auth
// collaborator. The core never mutates it; it is only a lookup key for
// ownership scoping.
type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	CreatedAt time.Time
}

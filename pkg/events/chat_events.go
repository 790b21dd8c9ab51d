package events

import (
	"time"

	"github.com/google/uuid"
)

// Operational chat lifecycle events published to the message bus. Consumers
// are external (analytics, moderation tooling); nothing in this process
// subscribes to them.
const (
	EventChatCreated     = "CHAT_CREATED"
	EventMessageAppended = "CHAT_MESSAGE_APPENDED"
	EventChatDeactivated = "CHAT_DEACTIVATED"
)

func NewChatCreated(chatID, ownerID uuid.UUID, topics []string) Event {
	return BaseEvent{
		Type: EventChatCreated,
		Data: map[string]interface{}{
			"chat_id":  chatID.String(),
			"owner_id": ownerID.String(),
			"topics":   topics,
		},
		OccurredAt: time.Now(),
	}
}

func NewMessageAppended(chatID, messageID uuid.UUID, sender string) Event {
	return BaseEvent{
		Type: EventMessageAppended,
		Data: map[string]interface{}{
			"chat_id":    chatID.String(),
			"message_id": messageID.String(),
			"sender":     sender,
		},
		OccurredAt: time.Now(),
	}
}

func NewChatDeactivated(chatID, ownerID uuid.UUID) Event {
	return BaseEvent{
		Type: EventChatDeactivated,
		Data: map[string]interface{}{
			"chat_id":  chatID.String(),
			"owner_id": ownerID.String(),
		},
		OccurredAt: time.Now(),
	}
}

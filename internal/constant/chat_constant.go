package constant

// ChatTopic is an enumerated conversation topic a chat session is scoped to.
type ChatTopic string

const (
	TopicHealth        ChatTopic = "health"
	TopicCareer        ChatTopic = "career"
	TopicFinance       ChatTopic = "finance"
	TopicRelationships ChatTopic = "relationships"
)

// AllTopics is the enumerated topic set, in declaration order.
var AllTopics = []ChatTopic{TopicHealth, TopicCareer, TopicFinance, TopicRelationships}

// IsValidTopic reports whether t belongs to the enumerated set.
func IsValidTopic(t ChatTopic) bool {
	for _, known := range AllTopics {
		if t == known {
			return true
		}
	}
	return false
}

const (
	ChatMessageSenderUser = "user"
	ChatMessageSenderAI   = "ai"

	// MaxMessagesPerChat caps the append-only message log. Appends beyond the
	// cap fail explicitly instead of truncating.
	MaxMessagesPerChat = 1000

	// MaxMessageLength bounds a single message text in runes.
	MaxMessageLength = 5000

	// MaxTopicsPerChat bounds the topic set fixed at chat creation.
	MaxTopicsPerChat = 2

	// ContextHistoryDepth is how many trailing messages AssembleContext renders.
	ContextHistoryDepth = 5

	// UtteranceTopic is the watermill topic carrying user utterances to the
	// extraction worker.
	UtteranceTopic = "CHAT_UTTERANCE_RECORDED"
)

const (
	ChatGreetingMessage = "Hi! I'm here to chat with you. What's on your mind?"

	// AIFallbackMessage is the stable user-facing text returned when every
	// backend in the fallback chain has failed. Operators get the real reason
	// via AIResult.ErrorReason; clients only ever see this string.
	AIFallbackMessage = "I'm having trouble responding right now. Please try again in a moment."

	// AIHealthProbePrompt is the benign prompt used by router health checks.
	AIHealthProbePrompt = "Reply with the single word: ok"
)

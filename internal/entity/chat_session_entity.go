package entity

import (
	"strings"
	"time"

	"github.com/akvekariya/AIChatBot/internal/constant"

	"github.com/google/uuid"
)

// ChatSession is the central aggregate: one user's topic-scoped conversation
// with the AI system. Messages live in their own table but the session row
// carries the derived MessageCount / LastMessageAt so the append cap and
// activity ordering never require a message scan.
type ChatSession struct {
	Id             uuid.UUID
	OwnerId        uuid.UUID
	Topics         []constant.ChatTopic
	Title          string
	IsActive       bool
	MessageCount   int
	LastMessageAt  *time.Time
	SessionContext map[string]interface{}
	UserInfo       UserInfo
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// ChatMessage is immutable once appended. Timestamp and Position are assigned
// at append time under the session row lock, never client-supplied.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Sender        string
	Text          string
	Model         *string // backend id; set when Sender == ai, nil for user
	Position      int
	CreatedAt     time.Time
}

// UserInfo is the structured, best-effort fact set extracted from user
// utterances. It only grows: merges never remove facts, only an explicit
// context clear resets it.
type UserInfo struct {
	Name        string            `json:"name,omitempty"`
	Interests   []string          `json:"interests,omitempty"`
	Goals       []string          `json:"goals,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// Merge folds newly extracted facts in. Name and preference keys overwrite,
// interests and goals append if not already present (case-insensitive).
func (u *UserInfo) Merge(name string, interests, goals []string, preferences map[string]string) {
	if name != "" {
		u.Name = name
	}
	u.Interests = appendNovel(u.Interests, interests)
	u.Goals = appendNovel(u.Goals, goals)
	if len(preferences) > 0 {
		if u.Preferences == nil {
			u.Preferences = make(map[string]string, len(preferences))
		}
		for k, v := range preferences {
			u.Preferences[k] = v
		}
	}
}

// IsEmpty reports whether no fact has been recorded yet.
func (u UserInfo) IsEmpty() bool {
	return u.Name == "" && len(u.Interests) == 0 && len(u.Goals) == 0 && len(u.Preferences) == 0
}

func appendNovel(existing, incoming []string) []string {
	for _, candidate := range incoming {
		seen := false
		for _, have := range existing {
			if strings.EqualFold(have, candidate) {
				seen = true
				break
			}
		}
		if !seen && strings.TrimSpace(candidate) != "" {
			existing = append(existing, candidate)
		}
	}
	return existing
}

// DefaultTitle derives the deterministic fallback title from the topic set,
// e.g. "Health Chat" or "Health & Career Chat".
func DefaultTitle(topics []constant.ChatTopic) string {
	names := make([]string, len(topics))
	for i, t := range topics {
		names[i] = titleCase(string(t))
	}
	return strings.Join(names, " & ") + " Chat"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

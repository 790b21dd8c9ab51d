package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/akvekariya/AIChatBot/internal/apperror"
	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/pkg/logger"
	"github.com/akvekariya/AIChatBot/internal/repository/memory"
	"github.com/akvekariya/AIChatBot/internal/repository/specification"
	"github.com/akvekariya/AIChatBot/internal/repository/unitofwork"
	"github.com/akvekariya/AIChatBot/pkg/extraction"

	"github.com/google/uuid"
)

// IMemoryService manages per-chat session memory: the extracted user fact
// set, the free-form session context map, and the prompt context assembled
// from both plus recent history.
type IMemoryService interface {
	// RecordUserUtterance runs fact extraction on one user message and merges
	// the result into the chat's UserInfo. Best effort: failures are logged,
	// never returned, the chat flow must not notice.
	RecordUserUtterance(ctx context.Context, chatId uuid.UUID, text string)

	AssembleContext(ctx context.Context, chatId uuid.UUID) (string, error)

	SetContext(ctx context.Context, chatId, ownerId uuid.UUID, key string, value interface{}) error
	GetContext(ctx context.Context, chatId, ownerId uuid.UUID) (map[string]interface{}, error)
	ClearContext(ctx context.Context, chatId, ownerId uuid.UUID) error
}

type memoryService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *memory.ContextCache
	logger     logger.ILogger
}

func NewMemoryService(uowFactory unitofwork.RepositoryFactory, cache *memory.ContextCache, log logger.ILogger) IMemoryService {
	return &memoryService{
		uowFactory: uowFactory,
		cache:      cache,
		logger:     log,
	}
}

func (ms *memoryService) RecordUserUtterance(ctx context.Context, chatId uuid.UUID, text string) {
	facts := extraction.Extract(text)
	if facts.IsEmpty() {
		return
	}

	uow := ms.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		ms.warn(chatId, "begin utterance merge", err)
		return
	}
	defer uow.Rollback()

	// Row lock so concurrent extraction workers never lose a merge.
	session, err := uow.ChatSessionRepository().FindOneForUpdate(ctx,
		specification.ByID{ID: chatId},
	)
	if err != nil {
		ms.warn(chatId, "lock session for merge", err)
		return
	}
	if session == nil || !session.IsActive {
		return
	}

	session.UserInfo.Merge(facts.Name, facts.Interests, facts.Goals, facts.Preferences)
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		ms.warn(chatId, "persist merged user info", err)
		return
	}
	if err := uow.Commit(); err != nil {
		ms.warn(chatId, "commit utterance merge", err)
	}
}

// AssembleContext renders the prompt context block for one AI generation:
// known user facts, session notes and the last few messages.
func (ms *memoryService) AssembleContext(ctx context.Context, chatId uuid.UUID) (string, error) {
	uow := ms.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return "", apperror.Persistencef("load session for context", err)
	}
	if session == nil {
		return "", apperror.NotFoundf("chat %s", chatId)
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatId},
		specification.OrderBy{Field: "position", Desc: true},
		specification.Limit{N: constant.ContextHistoryDepth},
	)
	if err != nil {
		return "", apperror.Persistencef("load recent messages", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return BuildContext(session.UserInfo, session.SessionContext, messages), nil
}

func (ms *memoryService) SetContext(ctx context.Context, chatId, ownerId uuid.UUID, key string, value interface{}) error {
	if key == "" {
		return apperror.Validationf("context key is empty")
	}

	uow := ms.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Persistencef("begin set context", err)
	}
	defer uow.Rollback()

	session, err := ms.lockOwned(ctx, uow, chatId, ownerId)
	if err != nil {
		return err
	}

	if session.SessionContext == nil {
		session.SessionContext = map[string]interface{}{}
	}
	session.SessionContext[key] = value

	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return apperror.Persistencef("persist session context", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Persistencef("commit set context", err)
	}

	ms.cache.Save(chatId.String(), session.SessionContext)
	return nil
}

func (ms *memoryService) GetContext(ctx context.Context, chatId, ownerId uuid.UUID) (map[string]interface{}, error) {
	uow := ms.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{OwnerID: ownerId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, apperror.Persistencef("load session context", err)
	}
	if session == nil {
		return nil, apperror.NotFoundf("chat %s", chatId)
	}

	if cached, ok := ms.cache.Get(chatId.String()); ok {
		return cached, nil
	}

	ms.cache.Save(chatId.String(), session.SessionContext)
	return session.SessionContext, nil
}

// ClearContext resets both the context map and the extracted user facts.
func (ms *memoryService) ClearContext(ctx context.Context, chatId, ownerId uuid.UUID) error {
	uow := ms.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Persistencef("begin clear context", err)
	}
	defer uow.Rollback()

	session, err := ms.lockOwned(ctx, uow, chatId, ownerId)
	if err != nil {
		return err
	}

	session.SessionContext = map[string]interface{}{}
	session.UserInfo = entity.UserInfo{}

	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return apperror.Persistencef("clear session context", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Persistencef("commit clear context", err)
	}

	ms.cache.Delete(chatId.String())
	return nil
}

func (ms *memoryService) lockOwned(ctx context.Context, uow unitofwork.UnitOfWork, chatId, ownerId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOneForUpdate(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{OwnerID: ownerId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, apperror.Persistencef("lock chat session", err)
	}
	if session == nil {
		return nil, apperror.NotFoundf("chat %s", chatId)
	}
	return session, nil
}

func (ms *memoryService) warn(chatId uuid.UUID, step string, err error) {
	ms.logger.Warn("MemoryService", "Utterance merge step failed", map[string]interface{}{
		"chatId": chatId.String(),
		"step":   step,
		"error":  err.Error(),
	})
}

// BuildContext renders the assembled memory as plain text sections. Empty
// sections are omitted; an entirely empty memory renders as "".
func BuildContext(info entity.UserInfo, contextMap map[string]interface{}, messages []*entity.ChatMessage) string {
	var b strings.Builder

	if !info.IsEmpty() {
		b.WriteString("Known about the user:\n")
		if info.Name != "" {
			fmt.Fprintf(&b, "- Name: %s\n", info.Name)
		}
		if len(info.Interests) > 0 {
			fmt.Fprintf(&b, "- Interests: %s\n", strings.Join(info.Interests, ", "))
		}
		if len(info.Goals) > 0 {
			fmt.Fprintf(&b, "- Goals: %s\n", strings.Join(info.Goals, ", "))
		}
		if len(info.Preferences) > 0 {
			keys := make([]string, 0, len(info.Preferences))
			for k := range info.Preferences {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "- %s: %s\n", k, info.Preferences[k])
			}
		}
	}

	if len(contextMap) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Session notes:\n")
		keys := make([]string, 0, len(contextMap))
		for k := range contextMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, contextMap[k])
		}
	}

	if len(messages) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Recent conversation:\n")
		for _, m := range messages {
			fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Text)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

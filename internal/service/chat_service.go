package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/akvekariya/AIChatBot/internal/apperror"
	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/dto"
	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/pkg/logger"
	"github.com/akvekariya/AIChatBot/internal/repository/specification"
	"github.com/akvekariya/AIChatBot/internal/repository/unitofwork"
	"github.com/akvekariya/AIChatBot/pkg/events"

	"github.com/google/uuid"
)

// MessageDraft is the caller-supplied part of a message. Id, timestamp and
// position are assigned at append time, never by the caller.
type MessageDraft struct {
	Sender string
	Text   string
	Model  *string
}

// EventPublisher is the operational event feed (NATS in production). A nil
// publisher disables the feed without touching the chat flow.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// IChatService is the authoritative chat session store: every read and
// mutation is scoped by (chatId, ownerId) and filtered to active chats.
type IChatService interface {
	StartChat(ctx context.Context, ownerId uuid.UUID, request *dto.StartChatRequest) (*dto.ChatSessionResponse, error)
	ListChats(ctx context.Context, ownerId uuid.UUID) ([]*dto.ChatSessionResponse, error)
	GetChat(ctx context.Context, ownerId uuid.UUID, chatId uuid.UUID) (*dto.ChatDetailResponse, error)
	AppendMessage(ctx context.Context, chatId, ownerId uuid.UUID, draft MessageDraft) (*entity.ChatMessage, error)
	GetHistory(ctx context.Context, chatId, ownerId uuid.UUID, limit int) ([]*entity.ChatMessage, error)
	Deactivate(ctx context.Context, chatId, ownerId uuid.UUID) error
	UpdateTitle(ctx context.Context, ownerId uuid.UUID, request *dto.UpdateTitleRequest, chatId uuid.UUID) (*dto.ChatSessionResponse, error)
	GetStats(ctx context.Context, ownerId uuid.UUID, chatId uuid.UUID) (*dto.ChatStatsResponse, error)
	VerifyOwnership(ctx context.Context, chatId, ownerId uuid.UUID) error
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	publisher  EventPublisher
	logger     logger.ILogger
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, publisher EventPublisher, log logger.ILogger) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		publisher:  publisher,
		logger:     log,
	}
}

// StartChat creates a chat scoped to 1..2 enumerated topics and seeds the
// opening AI greeting.
func (cs *chatService) StartChat(ctx context.Context, ownerId uuid.UUID, request *dto.StartChatRequest) (*dto.ChatSessionResponse, error) {
	topics, err := parseTopics(request.Topics)
	if err != nil {
		return nil, err
	}

	title := request.Title
	if title == "" {
		title = entity.DefaultTitle(topics)
	}

	now := time.Now()
	session := entity.ChatSession{
		Id:             uuid.New(),
		OwnerId:        ownerId,
		Topics:         topics,
		Title:          title,
		IsActive:       true,
		SessionContext: map[string]interface{}{},
		CreatedAt:      now,
	}

	greeterModel := "system"
	greeting := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Sender:        constant.ChatMessageSenderAI,
		Text:          constant.ChatGreetingMessage,
		Model:         &greeterModel,
		Position:      0,
		CreatedAt:     now,
	}
	session.MessageCount = 1
	session.LastMessageAt = &now

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Persistencef("begin start chat", err)
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, apperror.Persistencef("create chat session", err)
	}
	if err := uow.ChatMessageRepository().Create(ctx, &greeting); err != nil {
		return nil, apperror.Persistencef("create greeting message", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Persistencef("commit start chat", err)
	}

	cs.emit(ctx, events.NewChatCreated(session.Id, ownerId, topicStrings(topics)))

	return sessionToResponse(&session), nil
}

func (cs *chatService) ListChats(ctx context.Context, ownerId uuid.UUID) ([]*dto.ChatSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.OwnedBy{OwnerID: ownerId},
		specification.ActiveOnly{},
		specification.OrderBy{Field: "last_message_at", Desc: true},
	)
	if err != nil {
		return nil, apperror.Persistencef("list chats", err)
	}

	response := make([]*dto.ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		response = append(response, sessionToResponse(s))
	}
	return response, nil
}

func (cs *chatService) GetChat(ctx context.Context, ownerId uuid.UUID, chatId uuid.UUID) (*dto.ChatDetailResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.findActive(ctx, uow, chatId, ownerId)
	if err != nil {
		return nil, err
	}

	messages, err := cs.GetHistory(ctx, chatId, ownerId, 50)
	if err != nil {
		return nil, err
	}

	detail := &dto.ChatDetailResponse{
		ChatSessionResponse: *sessionToResponse(session),
		Messages:            messagesToResponse(messages),
	}
	return detail, nil
}

// AppendMessage is the single serialization point for a chat: the session row
// lock taken inside the transaction guarantees at-most-one in-flight append
// per chat, so stored order always matches timestamp order.
func (cs *chatService) AppendMessage(ctx context.Context, chatId, ownerId uuid.UUID, draft MessageDraft) (*entity.ChatMessage, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Persistencef("begin append", err)
	}
	defer uow.Rollback()

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
	if session.MessageCount >= constant.MaxMessagesPerChat {
		return nil, apperror.ErrMessageLimitExceeded
	}

	now := time.Now()
	// Wall clock can step backwards between appends; the stored order is the
	// invariant, so clamp rather than violate it.
	if session.LastMessageAt != nil && now.Before(*session.LastMessageAt) {
		now = *session.LastMessageAt
	}

	message := entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatId,
		Sender:        draft.Sender,
		Text:          draft.Text,
		Model:         draft.Model,
		Position:      session.MessageCount,
		CreatedAt:     now,
	}

	if err := uow.ChatMessageRepository().Create(ctx, &message); err != nil {
		return nil, apperror.Persistencef("insert message", err)
	}

	session.MessageCount++
	session.LastMessageAt = &now
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, apperror.Persistencef("update chat session", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Persistencef("commit append", err)
	}

	cs.emit(ctx, events.NewMessageAppended(chatId, message.Id, message.Sender))

	return &message, nil
}

// GetHistory returns the most recent limit messages in chronological order.
func (cs *chatService) GetHistory(ctx context.Context, chatId, ownerId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.findActive(ctx, uow, chatId, ownerId); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatId},
		specification.OrderBy{Field: "position", Desc: true},
		specification.Limit{N: limit},
	)
	if err != nil {
		return nil, apperror.Persistencef("load history", err)
	}

	// Query is newest-first for the limit; flip back to chronological.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Deactivate soft-deletes a chat. A second call surfaces NotFound because
// lookups filter on active status; callers treating that as success get
// idempotency for free.
func (cs *chatService) Deactivate(ctx context.Context, chatId, ownerId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Persistencef("begin deactivate", err)
	}
	defer uow.Rollback()

	session, err := uow.ChatSessionRepository().FindOneForUpdate(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{OwnerID: ownerId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return apperror.Persistencef("lock chat session", err)
	}
	if session == nil {
		return apperror.NotFoundf("chat %s", chatId)
	}

	session.IsActive = false
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return apperror.Persistencef("deactivate chat", err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Persistencef("commit deactivate", err)
	}

	cs.emit(ctx, events.NewChatDeactivated(chatId, ownerId))
	return nil
}

func (cs *chatService) UpdateTitle(ctx context.Context, ownerId uuid.UUID, request *dto.UpdateTitleRequest, chatId uuid.UUID) (*dto.ChatSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.findActive(ctx, uow, chatId, ownerId)
	if err != nil {
		return nil, err
	}

	session.Title = request.Title
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		return nil, apperror.Persistencef("update title", err)
	}

	return sessionToResponse(session), nil
}

func (cs *chatService) GetStats(ctx context.Context, ownerId uuid.UUID, chatId uuid.UUID) (*dto.ChatStatsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := cs.findActive(ctx, uow, chatId, ownerId)
	if err != nil {
		return nil, err
	}

	counts, err := uow.ChatMessageRepository().CountBySender(ctx,
		specification.ByChatSessionID{ChatSessionID: chatId},
	)
	if err != nil {
		return nil, apperror.Persistencef("count messages", err)
	}

	return &dto.ChatStatsResponse{
		ChatId:        session.Id,
		Topics:        topicStrings(session.Topics),
		TotalMessages: counts[constant.ChatMessageSenderUser] + counts[constant.ChatMessageSenderAI],
		UserMessages:  counts[constant.ChatMessageSenderUser],
		AiMessages:    counts[constant.ChatMessageSenderAI],
		CreatedAt:     session.CreatedAt,
		LastMessageAt: session.LastMessageAt,
	}, nil
}

// VerifyOwnership is the room-join check: NotFound for missing/inactive
// chats, AccessDenied when the chat exists but belongs to someone else.
func (cs *chatService) VerifyOwnership(ctx context.Context, chatId, ownerId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return apperror.Persistencef("verify ownership", err)
	}
	if session == nil {
		return apperror.NotFoundf("chat %s", chatId)
	}
	if session.OwnerId != ownerId {
		return apperror.ErrAccessDenied
	}
	return nil
}

// --- helpers ---

func (cs *chatService) findActive(ctx context.Context, uow unitofwork.UnitOfWork, chatId, ownerId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{OwnerID: ownerId},
		specification.ActiveOnly{},
	)
	if err != nil {
		return nil, apperror.Persistencef("find chat session", err)
	}
	if session == nil {
		return nil, apperror.NotFoundf("chat %s", chatId)
	}
	return session, nil
}

// emit publishes to the operational feed without ever failing the caller.
func (cs *chatService) emit(ctx context.Context, event events.Event) {
	if cs.publisher == nil {
		return
	}
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := cs.publisher.Publish(publishCtx, event); err != nil {
		cs.logger.Warn("ChatService", "Event publish failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func parseTopics(raw []string) ([]constant.ChatTopic, error) {
	if len(raw) == 0 || len(raw) > constant.MaxTopicsPerChat {
		return nil, apperror.ErrInvalidTopics
	}
	topics := make([]constant.ChatTopic, 0, len(raw))
	for _, r := range raw {
		topic := constant.ChatTopic(r)
		if !constant.IsValidTopic(topic) {
			return nil, apperror.ErrInvalidTopics
		}
		for _, seen := range topics {
			if seen == topic {
				return nil, apperror.ErrInvalidTopics
			}
		}
		topics = append(topics, topic)
	}
	return topics, nil
}

func validateDraft(draft MessageDraft) error {
	if draft.Sender != constant.ChatMessageSenderUser && draft.Sender != constant.ChatMessageSenderAI {
		return apperror.Validationf("unknown sender %q", draft.Sender)
	}
	text := draft.Text
	if text == "" {
		return apperror.Validationf("message text is empty")
	}
	if utf8.RuneCountInString(text) > constant.MaxMessageLength {
		return apperror.Validationf("message text exceeds %d characters", constant.MaxMessageLength)
	}
	if draft.Sender == constant.ChatMessageSenderAI && (draft.Model == nil || *draft.Model == "") {
		return apperror.Validationf("ai message requires a model identifier")
	}
	if draft.Sender == constant.ChatMessageSenderUser && draft.Model != nil {
		return apperror.Validationf("user message must not carry a model identifier")
	}
	return nil
}

func topicStrings(topics []constant.ChatTopic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = string(t)
	}
	return out
}

func sessionToResponse(s *entity.ChatSession) *dto.ChatSessionResponse {
	return &dto.ChatSessionResponse{
		Id:            s.Id,
		Title:         s.Title,
		Topics:        topicStrings(s.Topics),
		MessageCount:  s.MessageCount,
		LastMessageAt: s.LastMessageAt,
		CreatedAt:     s.CreatedAt,
	}
}

func messagesToResponse(messages []*entity.ChatMessage) []dto.MessageResponse {
	out := make([]dto.MessageResponse, len(messages))
	for i, m := range messages {
		out[i] = dto.MessageResponse{
			Id:        m.Id,
			Sender:    m.Sender,
			Text:      m.Text,
			Model:     m.Model,
			Timestamp: m.CreatedAt,
		}
	}
	return out
}

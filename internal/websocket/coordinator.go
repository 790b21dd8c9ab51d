package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/akvekariya/AIChatBot/internal/apperror"
	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/pkg/logger"
	"github.com/akvekariya/AIChatBot/internal/service"
	"github.com/akvekariya/AIChatBot/pkg/ai/router"

	"github.com/google/uuid"
)

// Generator is the slice of the model router the coordinator needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, topics []constant.ChatTopic, preferred ...constant.AIBackend) *router.AIResult
}

// Coordinator owns the realtime protocol: it validates inbound frames,
// enforces room membership, and drives the append -> broadcast -> generate ->
// append AI reply flow for each user message.
type Coordinator struct {
	hub             *Hub
	chatService     service.IChatService
	memoryService   service.IMemoryService
	publisher       service.IPublisherService
	generator       Generator
	generateTimeout time.Duration
	logger          logger.ILogger

	// emitLocks serializes append+broadcast per chat so room delivery order
	// always matches persisted message order.
	locksMu   sync.Mutex
	emitLocks map[uuid.UUID]*sync.Mutex
}

func NewCoordinator(
	hub *Hub,
	chatService service.IChatService,
	memoryService service.IMemoryService,
	publisher service.IPublisherService,
	generator Generator,
	generateTimeout time.Duration,
	log logger.ILogger,
) *Coordinator {
	return &Coordinator{
		hub:             hub,
		chatService:     chatService,
		memoryService:   memoryService,
		publisher:       publisher,
		generator:       generator,
		generateTimeout: generateTimeout,
		logger:          log,
		emitLocks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

func (co *Coordinator) emitLock(chatId uuid.UUID) *sync.Mutex {
	co.locksMu.Lock()
	defer co.locksMu.Unlock()
	lock := co.emitLocks[chatId]
	if lock == nil {
		lock = &sync.Mutex{}
		co.emitLocks[chatId] = lock
	}
	return lock
}

// ServeClient runs a connection's pumps until it closes.
func (co *Coordinator) ServeClient(client *Client) {
	client.Hub.Register(client)

	go client.writePump()
	client.readPump(co) // runs in the handler goroutine
}

// Dispatch routes one inbound frame. All failures are answered with a scoped
// error frame to the origin connection; the room never sees another member's
// errors.
func (co *Coordinator) Dispatch(client *Client, frame Frame) {
	switch frame.Event {
	case EventJoinChat:
		var payload JoinChatPayload
		if !co.decode(client, frame.Data, &payload) {
			return
		}
		co.handleJoin(client, payload)
	case EventLeaveChat:
		var payload LeaveChatPayload
		if !co.decode(client, frame.Data, &payload) {
			return
		}
		co.handleLeave(client, payload)
	case EventMessage:
		var payload MessagePayload
		if !co.decode(client, frame.Data, &payload) {
			return
		}
		co.handleMessage(client, payload)
	case EventHistory:
		var payload HistoryRequestPayload
		if !co.decode(client, frame.Data, &payload) {
			return
		}
		co.handleHistory(client, payload)
	case EventTyping:
		var payload TypingPayload
		if !co.decode(client, frame.Data, &payload) {
			return
		}
		co.handleTyping(client, payload)
	default:
		client.SendFrame(encodeFrame(EventError, ErrorPayload{
			Code:    "VALIDATION_FAILURE",
			Message: "unknown event " + frame.Event,
		}))
	}
}

func (co *Coordinator) handleJoin(client *Client, payload JoinChatPayload) {
	ctx := context.Background()

	if err := co.chatService.VerifyOwnership(ctx, payload.ChatId, client.UserID); err != nil {
		co.sendError(client, &payload.ChatId, err)
		return
	}

	detail, err := co.chatService.GetChat(ctx, client.UserID, payload.ChatId)
	if err != nil {
		co.sendError(client, &payload.ChatId, err)
		return
	}

	co.hub.Join(client, payload.ChatId)
	client.SendFrame(encodeFrame(EventJoined, JoinedPayload{
		ChatId: payload.ChatId,
		Title:  detail.Title,
		Topics: detail.Topics,
	}))
}

func (co *Coordinator) handleLeave(client *Client, payload LeaveChatPayload) {
	co.hub.Leave(client, payload.ChatId)
	client.SendFrame(encodeFrame(EventLeft, LeaveChatPayload{ChatId: payload.ChatId}))
}

func (co *Coordinator) handleMessage(client *Client, payload MessagePayload) {
	if !co.requireRoom(client, payload.ChatId) {
		return
	}

	ctx := context.Background()

	lock := co.emitLock(payload.ChatId)
	lock.Lock()
	userMessage, err := co.chatService.AppendMessage(ctx, payload.ChatId, client.UserID, service.MessageDraft{
		Sender: constant.ChatMessageSenderUser,
		Text:   payload.Text,
	})
	if err != nil {
		lock.Unlock()
		co.sendError(client, &payload.ChatId, err)
		return
	}

	co.hub.BroadcastToRoom(payload.ChatId, encodeFrame(EventMessage, messageEvent(userMessage)))
	lock.Unlock()

	if err := co.publisher.PublishUtterance(ctx, payload.ChatId, payload.Text); err != nil {
		// extraction is best effort, the chat flow continues
		co.logger.Warn("Coordinator", "Utterance publish failed", map[string]interface{}{
			"chatId": payload.ChatId.String(),
			"error":  err.Error(),
		})
	}

	client.SendFrame(encodeFrame(EventAiThinking, AiThinkingPayload{ChatId: payload.ChatId}))

	// Generation is detached from the connection: a disconnect mid-generation
	// must not lose the AI reply for the next session.
	go co.generateReply(client, payload.ChatId, client.UserID, payload.Text)
}

func (co *Coordinator) generateReply(origin *Client, chatId, ownerId uuid.UUID, userText string) {
	ctx, cancel := context.WithTimeout(context.Background(), co.generateTimeout+10*time.Second)
	defer cancel()

	session, err := co.chatService.GetChat(ctx, ownerId, chatId)
	if err != nil {
		co.sendError(origin, &chatId, err)
		return
	}
	topics := make([]constant.ChatTopic, len(session.Topics))
	for i, t := range session.Topics {
		topics[i] = constant.ChatTopic(t)
	}

	prompt := userText
	if contextBlock, err := co.memoryService.AssembleContext(ctx, chatId); err == nil && contextBlock != "" {
		prompt = contextBlock + "\n\nUser message:\n" + userText
	}

	result := co.generator.Generate(ctx, prompt, topics)
	if !result.Success {
		// Failed attempts persist nothing and stay scoped to the origin;
		// the room never learns another member's generation failed.
		co.logger.Warn("Coordinator", "AI generation failed", map[string]interface{}{
			"chatId": chatId.String(),
			"reason": result.ErrorReason,
		})
		origin.SendFrame(encodeFrame(EventError, ErrorPayload{
			ChatId:  &chatId,
			Code:    "AI_GENERATION_FAILED",
			Message: result.Text,
		}))
		return
	}

	model := string(result.BackendUsed)
	lock := co.emitLock(chatId)
	lock.Lock()
	aiMessage, err := co.chatService.AppendMessage(ctx, chatId, ownerId, service.MessageDraft{
		Sender: constant.ChatMessageSenderAI,
		Text:   result.Text,
		Model:  &model,
	})
	if err != nil {
		lock.Unlock()
		co.sendError(origin, &chatId, err)
		return
	}

	co.hub.BroadcastToRoom(chatId, encodeFrame(EventMessage, messageEvent(aiMessage)))
	lock.Unlock()
}

func (co *Coordinator) handleHistory(client *Client, payload HistoryRequestPayload) {
	if !co.requireRoom(client, payload.ChatId) {
		return
	}

	messages, err := co.chatService.GetHistory(context.Background(), payload.ChatId, client.UserID, payload.Limit)
	if err != nil {
		co.sendError(client, &payload.ChatId, err)
		return
	}

	events := make([]MessageEventPayload, len(messages))
	for i, m := range messages {
		events[i] = messageEvent(m)
	}
	client.SendFrame(encodeFrame(EventHistory, HistoryEventPayload{
		ChatId:   payload.ChatId,
		Messages: events,
	}))
}

func (co *Coordinator) handleTyping(client *Client, payload TypingPayload) {
	if !co.requireRoom(client, payload.ChatId) {
		return
	}

	co.hub.BroadcastToRoomExcept(payload.ChatId, client, encodeFrame(EventTyping, TypingEventPayload{
		ChatId:   payload.ChatId,
		UserId:   client.UserID,
		IsTyping: payload.IsTyping,
	}))
}

func (co *Coordinator) requireRoom(client *Client, chatId uuid.UUID) bool {
	if co.hub.InRoom(client, chatId) {
		return true
	}
	client.SendFrame(encodeFrame(EventError, ErrorPayload{
		ChatId:  &chatId,
		Code:    "ACCESS_DENIED",
		Message: "join the chat before sending to it",
	}))
	return false
}

func (co *Coordinator) decode(client *Client, raw json.RawMessage, out interface{}) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		client.SendFrame(encodeFrame(EventError, ErrorPayload{
			Code:    "VALIDATION_FAILURE",
			Message: "malformed payload",
		}))
		return false
	}
	return true
}

func (co *Coordinator) sendError(client *Client, chatId *uuid.UUID, err error) {
	client.SendFrame(encodeFrame(EventError, ErrorPayload{
		ChatId:  chatId,
		Code:    apperror.Code(err),
		Message: err.Error(),
	}))
}

func messageEvent(m *entity.ChatMessage) MessageEventPayload {
	return MessageEventPayload{
		ChatId:    m.ChatSessionId,
		MessageId: m.Id,
		Sender:    m.Sender,
		Text:      m.Text,
		Model:     m.Model,
		Position:  m.Position,
		Timestamp: m.CreatedAt,
	}
}

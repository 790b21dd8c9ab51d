package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/akvekariya/AIChatBot/internal/apperror"
	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/dto"
	"github.com/akvekariya/AIChatBot/internal/entity"
	"github.com/akvekariya/AIChatBot/internal/service"
	"github.com/akvekariya/AIChatBot/pkg/ai/router"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Debug(module, message string, details map[string]interface{}) {}
func (testLogger) Info(module, message string, details map[string]interface{})  {}
func (testLogger) Warn(module, message string, details map[string]interface{})  {}
func (testLogger) Error(module, message string, details map[string]interface{}) {}
func (testLogger) Sync() error                                                  { return nil }

// fakeChatSvc scripts the session store behind the coordinator.
type fakeChatSvc struct {
	mu        sync.Mutex
	verifyErr error
	appendErr error
	detail    *dto.ChatDetailResponse
	history   []*entity.ChatMessage
	appended  []*entity.ChatMessage
	position  int
}

func (f *fakeChatSvc) StartChat(ctx context.Context, ownerId uuid.UUID, request *dto.StartChatRequest) (*dto.ChatSessionResponse, error) {
	return nil, nil
}

func (f *fakeChatSvc) ListChats(ctx context.Context, ownerId uuid.UUID) ([]*dto.ChatSessionResponse, error) {
	return nil, nil
}

func (f *fakeChatSvc) GetChat(ctx context.Context, ownerId uuid.UUID, chatId uuid.UUID) (*dto.ChatDetailResponse, error) {
	if f.detail == nil {
		return nil, apperror.NotFoundf("chat %s", chatId)
	}
	return f.detail, nil
}

func (f *fakeChatSvc) AppendMessage(ctx context.Context, chatId, ownerId uuid.UUID, draft service.MessageDraft) (*entity.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	m := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: chatId,
		Sender:        draft.Sender,
		Text:          draft.Text,
		Model:         draft.Model,
		Position:      f.position,
		CreatedAt:     time.Now(),
	}
	f.position++
	f.appended = append(f.appended, m)
	return m, nil
}

func (f *fakeChatSvc) GetHistory(ctx context.Context, chatId, ownerId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	return f.history, nil
}

func (f *fakeChatSvc) Deactivate(ctx context.Context, chatId, ownerId uuid.UUID) error { return nil }

func (f *fakeChatSvc) UpdateTitle(ctx context.Context, ownerId uuid.UUID, request *dto.UpdateTitleRequest, chatId uuid.UUID) (*dto.ChatSessionResponse, error) {
	return nil, nil
}

func (f *fakeChatSvc) GetStats(ctx context.Context, ownerId uuid.UUID, chatId uuid.UUID) (*dto.ChatStatsResponse, error) {
	return nil, nil
}

func (f *fakeChatSvc) VerifyOwnership(ctx context.Context, chatId, ownerId uuid.UUID) error {
	return f.verifyErr
}

func (f *fakeChatSvc) appendedMessages() []*entity.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*entity.ChatMessage, len(f.appended))
	copy(out, f.appended)
	return out
}

type fakeMemorySvc struct {
	contextBlock string
}

func (f *fakeMemorySvc) RecordUserUtterance(ctx context.Context, chatId uuid.UUID, text string) {}

func (f *fakeMemorySvc) AssembleContext(ctx context.Context, chatId uuid.UUID) (string, error) {
	return f.contextBlock, nil
}

func (f *fakeMemorySvc) SetContext(ctx context.Context, chatId, ownerId uuid.UUID, key string, value interface{}) error {
	return nil
}

func (f *fakeMemorySvc) GetContext(ctx context.Context, chatId, ownerId uuid.UUID) (map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeMemorySvc) ClearContext(ctx context.Context, chatId, ownerId uuid.UUID) error {
	return nil
}

type fakeUtterancePublisher struct {
	mu         sync.Mutex
	utterances []string
}

func (f *fakeUtterancePublisher) PublishUtterance(ctx context.Context, chatId uuid.UUID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.utterances = append(f.utterances, text)
	return nil
}

type fakeGenerator struct {
	result  *router.AIResult
	release chan struct{} // when set, Generate blocks until closed
	prompts []string
	mu      sync.Mutex
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, topics []constant.ChatTopic, preferred ...constant.AIBackend) *router.AIResult {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.result
}

type fixture struct {
	hub       *Hub
	co        *Coordinator
	chat      *fakeChatSvc
	publisher *fakeUtterancePublisher
	generator *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hub := NewHub(nil, testLogger{})
	go hub.Run()

	chatId := uuid.New()
	chat := &fakeChatSvc{
		detail: &dto.ChatDetailResponse{
			ChatSessionResponse: dto.ChatSessionResponse{
				Id:     chatId,
				Title:  "Health Chat",
				Topics: []string{"health"},
			},
		},
	}
	publisher := &fakeUtterancePublisher{}
	generator := &fakeGenerator{
		result: &router.AIResult{
			Success:     true,
			Text:        "a helpful reply",
			BackendUsed: constant.BackendOllama,
		},
	}
	co := NewCoordinator(hub, chat, &fakeMemorySvc{contextBlock: "Known about the user:\n- Name: Sam"}, publisher, generator, time.Second, testLogger{})
	return &fixture{hub: hub, co: co, chat: chat, publisher: publisher, generator: generator}
}

func (fx *fixture) chatId() uuid.UUID {
	return fx.chat.detail.Id
}

func newTestClient(hub *Hub) *Client {
	client := &Client{
		Hub:    hub,
		UserID: uuid.New(),
		Send:   make(chan []byte, 64),
	}
	hub.Register(client)
	return client
}

func recvFrame(t *testing.T, client *Client) Frame {
	t.Helper()
	select {
	case raw := <-client.Send:
		var frame Frame
		require.NoError(t, json.Unmarshal(raw, &frame))
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func inbound(t *testing.T, event string, payload interface{}) Frame {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Frame{Event: event, Data: raw}
}

func TestJoinChatHappyPath(t *testing.T) {
	fx := newFixture(t)
	client := newTestClient(fx.hub)

	fx.co.Dispatch(client, inbound(t, EventJoinChat, JoinChatPayload{ChatId: fx.chatId()}))

	frame := recvFrame(t, client)
	assert.Equal(t, EventJoined, frame.Event)

	var payload JoinedPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, fx.chatId(), payload.ChatId)
	assert.Equal(t, "Health Chat", payload.Title)
	assert.True(t, fx.hub.InRoom(client, fx.chatId()))
}

func TestJoinChatDenied(t *testing.T) {
	fx := newFixture(t)
	fx.chat.verifyErr = apperror.ErrAccessDenied
	client := newTestClient(fx.hub)

	fx.co.Dispatch(client, inbound(t, EventJoinChat, JoinChatPayload{ChatId: fx.chatId()}))

	frame := recvFrame(t, client)
	assert.Equal(t, EventError, frame.Event)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "ACCESS_DENIED", payload.Code)
	assert.False(t, fx.hub.InRoom(client, fx.chatId()))
}

func TestMessageRequiresRoomMembership(t *testing.T) {
	fx := newFixture(t)
	client := newTestClient(fx.hub)

	fx.co.Dispatch(client, inbound(t, EventMessage, MessagePayload{ChatId: fx.chatId(), Text: "hi"}))

	frame := recvFrame(t, client)
	assert.Equal(t, EventError, frame.Event)
	assert.Empty(t, fx.chat.appendedMessages())
}

func TestMessageFlowOrdering(t *testing.T) {
	fx := newFixture(t)
	client := newTestClient(fx.hub)
	fx.hub.Join(client, fx.chatId())

	fx.co.Dispatch(client, inbound(t, EventMessage, MessagePayload{ChatId: fx.chatId(), Text: "I like hiking"}))

	first := recvFrame(t, client)
	require.Equal(t, EventMessage, first.Event)
	var userMsg MessageEventPayload
	require.NoError(t, json.Unmarshal(first.Data, &userMsg))
	assert.Equal(t, constant.ChatMessageSenderUser, userMsg.Sender)
	assert.Equal(t, "I like hiking", userMsg.Text)

	second := recvFrame(t, client)
	assert.Equal(t, EventAiThinking, second.Event)

	third := recvFrame(t, client)
	require.Equal(t, EventMessage, third.Event)
	var aiMsg MessageEventPayload
	require.NoError(t, json.Unmarshal(third.Data, &aiMsg))
	assert.Equal(t, constant.ChatMessageSenderAI, aiMsg.Sender)
	assert.Equal(t, "a helpful reply", aiMsg.Text)
	require.NotNil(t, aiMsg.Model)
	assert.Equal(t, "ollama", *aiMsg.Model)

	assert.Equal(t, []string{"I like hiking"}, fx.publisher.utterances)

	// The assembled memory rides along in the prompt.
	fx.generator.mu.Lock()
	defer fx.generator.mu.Unlock()
	require.Len(t, fx.generator.prompts, 1)
	assert.Contains(t, fx.generator.prompts[0], "Known about the user:")
	assert.Contains(t, fx.generator.prompts[0], "I like hiking")
}

func TestMessageAppendFailureScopedToOrigin(t *testing.T) {
	fx := newFixture(t)
	fx.chat.appendErr = apperror.ErrMessageLimitExceeded

	origin := newTestClient(fx.hub)
	other := newTestClient(fx.hub)
	fx.hub.Join(origin, fx.chatId())
	fx.hub.Join(other, fx.chatId())

	fx.co.Dispatch(origin, inbound(t, EventMessage, MessagePayload{ChatId: fx.chatId(), Text: "over the cap"}))

	frame := recvFrame(t, origin)
	assert.Equal(t, EventError, frame.Event)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, "MESSAGE_LIMIT_EXCEEDED", payload.Code)

	select {
	case raw := <-other.Send:
		t.Fatalf("room member must not receive another member's error, got %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGenerationFailureScopedToOriginPersistsNothing(t *testing.T) {
	fx := newFixture(t)
	fx.generator.result = &router.AIResult{
		Success:     false,
		Text:        constant.AIFallbackMessage,
		ErrorReason: "all backends down",
	}

	origin := newTestClient(fx.hub)
	other := newTestClient(fx.hub)
	fx.hub.Join(origin, fx.chatId())
	fx.hub.Join(other, fx.chatId())

	fx.co.Dispatch(origin, inbound(t, EventMessage, MessagePayload{ChatId: fx.chatId(), Text: "hello?"}))

	// the user message itself still reaches the room
	userFrame := recvFrame(t, other)
	assert.Equal(t, EventMessage, userFrame.Event)

	// origin sees its echo, the thinking notice, then the scoped failure
	recvFrame(t, origin)
	recvFrame(t, origin)
	failure := recvFrame(t, origin)
	require.Equal(t, EventError, failure.Event)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(failure.Data, &payload))
	assert.Equal(t, "AI_GENERATION_FAILED", payload.Code)
	assert.Equal(t, constant.AIFallbackMessage, payload.Message)

	select {
	case raw := <-other.Send:
		t.Fatalf("room member must not see another member's failed attempt, got %s", raw)
	case <-time.After(100 * time.Millisecond):
	}

	msgs := fx.chat.appendedMessages()
	require.Len(t, msgs, 1, "failed attempt must persist nothing beyond the user message")
	assert.Equal(t, constant.ChatMessageSenderUser, msgs[0].Sender)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	fx := newFixture(t)
	client := newTestClient(fx.hub)
	fx.hub.Join(client, fx.chatId())

	fx.hub.Unregister(client)
	fx.hub.Unregister(client)

	assert.False(t, fx.hub.InRoom(client, fx.chatId()))

	// frames and joins after teardown are dropped, not delivered or panicking
	client.SendFrame(encodeFrame(EventAiThinking, AiThinkingPayload{ChatId: fx.chatId()}))
	fx.hub.Join(client, fx.chatId())
	assert.False(t, fx.hub.InRoom(client, fx.chatId()))
}

func TestConcurrentSendersDeliverInPersistedOrder(t *testing.T) {
	fx := newFixture(t)

	observer := newTestClient(fx.hub)
	senderA := newTestClient(fx.hub)
	senderB := newTestClient(fx.hub)
	fx.hub.Join(observer, fx.chatId())
	fx.hub.Join(senderA, fx.chatId())
	fx.hub.Join(senderB, fx.chatId())

	const perSender = 5
	frame := inbound(t, EventMessage, MessagePayload{ChatId: fx.chatId(), Text: "ping"})

	var wg sync.WaitGroup
	for _, sender := range []*Client{senderA, senderB} {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				fx.co.Dispatch(c, frame)
			}
		}(sender)
	}
	wg.Wait()

	// 10 user messages and 10 AI replies; the observer must see every one of
	// them in persisted position order.
	positions := make([]int, 0, 4*perSender)
	for len(positions) < 4*perSender {
		got := recvFrame(t, observer)
		require.Equal(t, EventMessage, got.Event)
		var payload MessageEventPayload
		require.NoError(t, json.Unmarshal(got.Data, &payload))
		positions = append(positions, payload.Position)
	}
	for i := 1; i < len(positions); i++ {
		require.Greater(t, positions[i], positions[i-1],
			"frame %d arrived out of order: %v", i, positions)
	}
}

func TestGenerationSurvivesDisconnect(t *testing.T) {
	fx := newFixture(t)
	fx.generator.release = make(chan struct{})

	client := newTestClient(fx.hub)
	fx.hub.Join(client, fx.chatId())

	fx.co.Dispatch(client, inbound(t, EventMessage, MessagePayload{ChatId: fx.chatId(), Text: "still there?"}))

	// user echo + ai_thinking arrive, then the client drops mid-generation
	recvFrame(t, client)
	recvFrame(t, client)
	fx.hub.Unregister(client)

	close(fx.generator.release)

	require.Eventually(t, func() bool {
		msgs := fx.chat.appendedMessages()
		return len(msgs) == 2 && msgs[1].Sender == constant.ChatMessageSenderAI
	}, 2*time.Second, 10*time.Millisecond, "AI reply must be persisted after disconnect")
}

func TestTypingRelayedToOthersOnly(t *testing.T) {
	fx := newFixture(t)
	origin := newTestClient(fx.hub)
	other := newTestClient(fx.hub)
	fx.hub.Join(origin, fx.chatId())
	fx.hub.Join(other, fx.chatId())

	fx.co.Dispatch(origin, inbound(t, EventTyping, TypingPayload{ChatId: fx.chatId(), IsTyping: true}))

	frame := recvFrame(t, other)
	assert.Equal(t, EventTyping, frame.Event)
	var payload TypingEventPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	assert.Equal(t, origin.UserID, payload.UserId)
	assert.True(t, payload.IsTyping)

	select {
	case <-origin.Send:
		t.Fatal("typing must not echo back to the sender")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHistoryRequest(t *testing.T) {
	fx := newFixture(t)
	fx.chat.history = []*entity.ChatMessage{
		{Id: uuid.New(), ChatSessionId: fx.chatId(), Sender: "ai", Text: "hello", Position: 0},
		{Id: uuid.New(), ChatSessionId: fx.chatId(), Sender: "user", Text: "hi", Position: 1},
	}
	client := newTestClient(fx.hub)
	fx.hub.Join(client, fx.chatId())

	fx.co.Dispatch(client, inbound(t, EventHistory, HistoryRequestPayload{ChatId: fx.chatId(), Limit: 10}))

	frame := recvFrame(t, client)
	require.Equal(t, EventHistory, frame.Event)
	var payload HistoryEventPayload
	require.NoError(t, json.Unmarshal(frame.Data, &payload))
	require.Len(t, payload.Messages, 2)
	assert.Equal(t, "hello", payload.Messages[0].Text)
}

func TestUnknownEventAnswered(t *testing.T) {
	fx := newFixture(t)
	client := newTestClient(fx.hub)

	fx.co.Dispatch(client, Frame{Event: "self_destruct", Data: json.RawMessage(`{}`)})

	frame := recvFrame(t, client)
	assert.Equal(t, EventError, frame.Event)
}

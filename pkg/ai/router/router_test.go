package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider scripts one backend's behavior per call.
type fakeProvider struct {
	reply string
	err   error
	panic bool
	calls int
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.Complete(ctx, "", "")
}

func (f *fakeProvider) Complete(ctx context.Context, systemPrompt, userPrompt string, options ...llm.Option) (string, error) {
	f.calls++
	if f.panic {
		panic("provider exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type testLogger struct{}

func (testLogger) Debug(module, message string, details map[string]interface{}) {}
func (testLogger) Info(module, message string, details map[string]interface{})  {}
func (testLogger) Warn(module, message string, details map[string]interface{})  {}
func (testLogger) Error(module, message string, details map[string]interface{}) {}
func (testLogger) Sync() error                                                  { return nil }

func newTestRouter(t *testing.T, primary, secondary *fakeProvider, policy Policy) *Router {
	t.Helper()
	r, err := New([]Backend{
		{ID: constant.BackendOllama, Provider: primary},
		{ID: constant.BackendHuggingFace, Provider: secondary},
	}, policy, time.Second, testLogger{})
	require.NoError(t, err)
	return r
}

func TestNewRequiresBackends(t *testing.T) {
	_, err := New(nil, nil, time.Second, testLogger{})
	assert.Error(t, err)
}

func TestSelectBackendFollowsPolicy(t *testing.T) {
	r := newTestRouter(t, &fakeProvider{}, &fakeProvider{}, Policy{
		constant.TopicFinance: constant.BackendHuggingFace,
	})

	assert.Equal(t, constant.BackendHuggingFace, r.SelectBackend([]constant.ChatTopic{constant.TopicFinance}))
	// No policy entry falls through to the first declared backend.
	assert.Equal(t, constant.BackendOllama, r.SelectBackend([]constant.ChatTopic{constant.TopicHealth}))
	// First topic with an entry wins.
	assert.Equal(t, constant.BackendHuggingFace, r.SelectBackend([]constant.ChatTopic{constant.TopicHealth, constant.TopicFinance}))
}

func TestBuildSystemPromptConcatenatesTopicBlocks(t *testing.T) {
	prompt := BuildSystemPrompt([]constant.ChatTopic{constant.TopicHealth, constant.TopicCareer})

	baseIdx := strings.Index(prompt, constant.BaseSystemPrompt)
	healthIdx := strings.Index(prompt, constant.TopicSystemPrompts[constant.TopicHealth])
	careerIdx := strings.Index(prompt, constant.TopicSystemPrompts[constant.TopicCareer])

	require.GreaterOrEqual(t, baseIdx, 0)
	assert.Greater(t, healthIdx, baseIdx, "topic blocks follow the base prompt")
	assert.Greater(t, careerIdx, healthIdx, "blocks keep topic-array order")
}

func TestGenerateUsesPreferredBackendFirst(t *testing.T) {
	primary := &fakeProvider{reply: "from ollama"}
	secondary := &fakeProvider{reply: "from hf"}
	r := newTestRouter(t, primary, secondary, nil)

	result := r.Generate(context.Background(), "hello", []constant.ChatTopic{constant.TopicHealth}, constant.BackendHuggingFace)

	assert.True(t, result.Success)
	assert.Equal(t, "from hf", result.Text)
	assert.Equal(t, constant.BackendHuggingFace, result.BackendUsed)
	assert.Equal(t, 0, primary.calls)
}

func TestGenerateFallsBackOnError(t *testing.T) {
	primary := &fakeProvider{err: errors.New("connection refused")}
	secondary := &fakeProvider{reply: "rescued"}
	r := newTestRouter(t, primary, secondary, nil)

	result := r.Generate(context.Background(), "hello", []constant.ChatTopic{constant.TopicHealth})

	assert.True(t, result.Success)
	assert.Equal(t, "rescued", result.Text)
	assert.Equal(t, constant.BackendHuggingFace, result.BackendUsed)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, result.TokenCount)
}

func TestGenerateNeverRaises(t *testing.T) {
	primary := &fakeProvider{panic: true}
	secondary := &fakeProvider{err: errors.New("503 service unavailable")}
	r := newTestRouter(t, primary, secondary, nil)

	result := r.Generate(context.Background(), "hello", []constant.ChatTopic{constant.TopicHealth})

	assert.False(t, result.Success)
	assert.Equal(t, constant.AIFallbackMessage, result.Text)
	assert.Equal(t, "503 service unavailable", result.ErrorReason)
	assert.Equal(t, constant.BackendHuggingFace, result.BackendUsed)
}

func TestHealthCheckProbesAllBackends(t *testing.T) {
	primary := &fakeProvider{reply: "ok"}
	secondary := &fakeProvider{err: errors.New("unreachable")}
	r := newTestRouter(t, primary, secondary, nil)

	health := r.HealthCheck(context.Background())
	require.Len(t, health, 2)

	assert.True(t, health[constant.BackendOllama].Available)
	assert.False(t, health[constant.BackendHuggingFace].Available)
	assert.Equal(t, "unreachable", health[constant.BackendHuggingFace].Error)
	assert.False(t, health[constant.BackendOllama].LastChecked.IsZero())
}

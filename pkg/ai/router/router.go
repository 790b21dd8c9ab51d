package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/pkg/logger"
	"github.com/akvekariya/AIChatBot/pkg/llm"
)

// Backend pairs an enumerated backend id with its provider client.
type Backend struct {
	ID       constant.AIBackend
	Provider llm.LLMProvider
}

// Policy maps a topic to its preferred backend. Topics without an entry fall
// through to the router's default (the first declared backend).
type Policy map[constant.ChatTopic]constant.AIBackend

// AIResult is the uniform outcome of a generation attempt. Provider errors
// never escape the router; they are normalized into a failed result.
type AIResult struct {
	Success     bool
	Text        string
	BackendUsed constant.AIBackend
	TokenCount  int
	Latency     time.Duration
	ErrorReason string
}

// BackendHealth is the probe outcome for one backend.
type BackendHealth struct {
	Available   bool
	LastChecked time.Time
	Error       string
	Latency     time.Duration
}

// Router selects a backend for a topic set and drives the ordered fallback
// chain. It holds no per-request state: the backend list and policy are fixed
// at startup.
type Router struct {
	backends []Backend // declared fallback order
	policy   Policy
	timeout  time.Duration
	logger   logger.ILogger
}

func New(backends []Backend, policy Policy, timeout time.Duration, log logger.ILogger) (*Router, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("router requires at least one backend")
	}
	if policy == nil {
		policy = Policy{}
	}
	return &Router{
		backends: backends,
		policy:   policy,
		timeout:  timeout,
		logger:   log,
	}, nil
}

// SelectBackend returns the preferred backend for the topic set: the policy
// entry of the first topic that has one, otherwise the first declared backend.
func (r *Router) SelectBackend(topics []constant.ChatTopic) constant.AIBackend {
	for _, topic := range topics {
		if id, ok := r.policy[topic]; ok && r.lookup(id) != nil {
			return id
		}
	}
	return r.backends[0].ID
}

// BuildSystemPrompt concatenates the base instructions with each topic's
// instruction block, in topic-array order.
func BuildSystemPrompt(topics []constant.ChatTopic) string {
	parts := []string{constant.BaseSystemPrompt}
	for _, topic := range topics {
		if block, ok := constant.TopicSystemPrompts[topic]; ok {
			parts = append(parts, block)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Generate invokes the preferred (or policy-selected) backend with the topic
// system prompt, falling back across the remaining backends in declared order.
// It always returns a result: if the whole chain fails, the result carries the
// stable user-safe fallback text and the last error reason.
func (r *Router) Generate(ctx context.Context, prompt string, topics []constant.ChatTopic, preferred ...constant.AIBackend) *AIResult {
	systemPrompt := BuildSystemPrompt(topics)

	first := r.SelectBackend(topics)
	if len(preferred) > 0 && r.lookup(preferred[0]) != nil {
		first = preferred[0]
	}

	var lastReason string
	var lastTried constant.AIBackend
	for _, backend := range r.orderedFrom(first) {
		lastTried = backend.ID
		result := r.attempt(ctx, backend, systemPrompt, prompt)
		if result.Success {
			return result
		}
		lastReason = result.ErrorReason
		r.logger.Warn("ModelRouter", "Backend attempt failed", map[string]interface{}{
			"backend": string(backend.ID),
			"reason":  result.ErrorReason,
			"latency": result.Latency.String(),
		})
	}

	return &AIResult{
		Success:     false,
		Text:        constant.AIFallbackMessage,
		BackendUsed: lastTried,
		ErrorReason: lastReason,
	}
}

// HealthCheck probes every backend with a benign prompt. Operational use
// only; never called on the message path.
func (r *Router) HealthCheck(ctx context.Context) map[constant.AIBackend]BackendHealth {
	health := make(map[constant.AIBackend]BackendHealth, len(r.backends))
	for _, backend := range r.backends {
		result := r.attempt(ctx, backend, "", constant.AIHealthProbePrompt)
		health[backend.ID] = BackendHealth{
			Available:   result.Success,
			LastChecked: time.Now(),
			Error:       result.ErrorReason,
			Latency:     result.Latency,
		}
	}
	return health
}

// attempt runs one bounded backend invocation, converting errors, timeouts
// and panics into a failed AIResult.
func (r *Router) attempt(ctx context.Context, backend Backend, systemPrompt, userPrompt string) (result *AIResult) {
	start := time.Now()
	result = &AIResult{BackendUsed: backend.ID}

	defer func() {
		if rec := recover(); rec != nil {
			result.Success = false
			result.ErrorReason = fmt.Sprintf("provider panic: %v", rec)
			result.Latency = time.Since(start)
		}
	}()

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := backend.Provider.Complete(callCtx, systemPrompt, userPrompt)
	result.Latency = time.Since(start)
	if err != nil {
		result.ErrorReason = err.Error()
		return result
	}

	result.Success = true
	result.Text = text
	result.TokenCount = len(strings.Fields(text))
	return result
}

func (r *Router) lookup(id constant.AIBackend) *Backend {
	for i := range r.backends {
		if r.backends[i].ID == id {
			return &r.backends[i]
		}
	}
	return nil
}

// orderedFrom yields the fallback chain: first the given backend, then the
// remaining backends in declared order.
func (r *Router) orderedFrom(first constant.AIBackend) []Backend {
	ordered := make([]Backend, 0, len(r.backends))
	if b := r.lookup(first); b != nil {
		ordered = append(ordered, *b)
	}
	for _, backend := range r.backends {
		if backend.ID != first {
			ordered = append(ordered, backend)
		}
	}
	return ordered
}

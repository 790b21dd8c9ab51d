package factory

import (
	"fmt"

	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/pkg/ai/router"
	"github.com/akvekariya/AIChatBot/pkg/llm"
	"github.com/akvekariya/AIChatBot/pkg/llm/huggingface"
	"github.com/akvekariya/AIChatBot/pkg/llm/ollama"
)

// BackendConfig carries the provider settings a backend needs. Unused fields
// are ignored per backend type.
type BackendConfig struct {
	OllamaBaseURL      string
	OllamaModel        string
	HuggingFaceAPIKey  string
	HuggingFaceBaseURL string
	HuggingFaceModel   string
}

// NewProvider builds the provider client for one enumerated backend.
func NewProvider(id constant.AIBackend, cfg BackendConfig) (llm.LLMProvider, error) {
	switch id {
	case constant.BackendOllama:
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.OllamaModel), nil
	case constant.BackendHuggingFace:
		return huggingface.NewHuggingFaceProvider(cfg.HuggingFaceAPIKey, cfg.HuggingFaceBaseURL, cfg.HuggingFaceModel), nil
	default:
		return nil, fmt.Errorf("unsupported AI backend: %s", id)
	}
}

// NewBackends builds the ordered fallback chain from the enumerated backend
// set. The order of constant.AllBackends is the declared fallback order.
func NewBackends(cfg BackendConfig) ([]router.Backend, error) {
	backends := make([]router.Backend, 0, len(constant.AllBackends))
	for _, id := range constant.AllBackends {
		provider, err := NewProvider(id, cfg)
		if err != nil {
			return nil, err
		}
		backends = append(backends, router.Backend{ID: id, Provider: provider})
	}
	return backends, nil
}

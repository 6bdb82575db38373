// Package ai talks to the text generation providers used for insights and
// dataset chat: OpenAI-compatible hosted routers and a local Ollama.
package ai

import (
	"context"
	"errors"
	"strings"
)

// Runtime is implemented by every text generation backend.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers accepted in configuration.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenRouter  = "openrouter"
	ProviderOllama      = "ollama"
	ProviderNone        = "none"
)

var (
	// ErrMissingAPIKey is returned by hosted runtimes when no API key is configured.
	ErrMissingAPIKey = errors.New("api key is missing")
	ErrNoModel       = errors.New("model cannot be empty")
	ErrNoMessages    = errors.New("messages cannot be empty")
)

// NormalizeProvider maps aliases to a provider identifier.
func NormalizeProvider(name string) string {
	switch name {
	case "hf", "huggingface", "HuggingFace", "HUGGINGFACE":
		return ProviderHuggingFace
	case "openrouter", "OpenRouter", "OPENROUTER", "openai", "anthropic", "google", "meta":
		return ProviderOpenRouter
	case "ollama", "Ollama", "local", "LOCAL":
		return ProviderOllama
	case "", "none", "off", "fallback":
		return ProviderNone
	}
	return name
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// NewRequest builds a single-turn request. An empty system prompt is left out.
func NewRequest(model, system, prompt string, maxTokens int, temperature float64) GenerateRequest {
	req := GenerateRequest{Model: model, MaxTokens: maxTokens, Temperature: temperature}
	if system != "" {
		req.Messages = append(req.Messages, Message{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, Message{Role: "user", Content: prompt})
	return req
}

func (r GenerateRequest) validate() error {
	if r.Model == "" {
		return ErrNoModel
	}
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	return nil
}

type Choice struct {
	Message Message `json:"message"`
}

type GenerateResponse struct {
	Choices []Choice `json:"choices"`
}

// Text returns the trimmed content of the first choice, or "" when there is none.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Choices[0].Message.Content)
}

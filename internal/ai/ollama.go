package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultOllamaHost is where a local Ollama listens unless configured.
const DefaultOllamaHost = "http://127.0.0.1:11434"

// ollamaClient calls the non-streaming /api/chat endpoint of Ollama.
type ollamaClient struct {
	poster
	endpoint string
	retry    policy
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message Message `json:"message"`
}

func newOllamaClient(c RuntimeConfig) *ollamaClient {
	host := c.Host
	if host == "" {
		host = DefaultOllamaHost
	}
	return &ollamaClient{
		poster:   poster{http: c.httpClient()},
		endpoint: strings.TrimRight(host, "/") + "/api/chat",
		retry:    c.policy(localPolicy),
	}
}

// toOllama maps max_tokens and temperature onto Ollama's sampling options.
func toOllama(req GenerateRequest) ollamaRequest {
	out := ollamaRequest{Model: req.Model, Messages: req.Messages}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		out.Options = map[string]any{}
	}
	if req.Temperature > 0 {
		out.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		out.Options["num_predict"] = req.MaxTokens
	}
	return out
}

func (c *ollamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(toOllama(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out ollamaResponse
	err = c.retry.do(ctx, func(ctx context.Context) error {
		out = ollamaResponse{}
		return c.post(ctx, c.endpoint, payload, &out)
	})
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: out.Message.Content}}}}, nil
}

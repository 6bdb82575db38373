package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Base URLs of the OpenAI-compatible chat completion routers.
const (
	OpenRouterBaseURL  = "https://openrouter.ai/api/v1"
	HuggingFaceBaseURL = "https://router.huggingface.co/v1"
)

// hostedClient calls an OpenAI-compatible /chat/completions endpoint.
type hostedClient struct {
	poster
	apiKey   string
	endpoint string
	retry    policy
}

func newHostedClient(c RuntimeConfig, baseURL string, extra map[string]string) *hostedClient {
	if c.BaseURL != "" {
		baseURL = c.BaseURL
	}
	p := poster{http: c.httpClient()}
	p.header = make(map[string][]string, len(extra)+1)
	if c.APIKey != "" {
		p.header.Set("Authorization", "Bearer "+c.APIKey)
	}
	for k, v := range extra {
		p.header.Set(k, v)
	}
	return &hostedClient{
		poster:   p,
		apiKey:   c.APIKey,
		endpoint: strings.TrimRight(baseURL, "/") + "/chat/completions",
		retry:    c.policy(hostedPolicy),
	}
}

func (c *hostedClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out GenerateResponse
	err = c.retry.do(ctx, func(ctx context.Context) error {
		out = GenerateResponse{}
		return c.post(ctx, c.endpoint, payload, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

package ai

import (
	"net/http"
	"time"
)

// RuntimeFactory builds a Runtime from the generic config below.
type RuntimeFactory func(RuntimeConfig) Runtime

// RuntimeConfig carries the knobs shared by runtimes. Zero values take the
// provider's defaults.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// hosted providers
	APIKey  string
	BaseURL string
	// ollama
	Host string
}

func (c RuntimeConfig) httpClient() *http.Client {
	timeout := c.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c RuntimeConfig) policy(def policy) policy {
	if c.RetryMax > 0 {
		def.attempts = c.RetryMax
	}
	if c.BaseDelay > 0 {
		def.base = c.BaseDelay
	}
	if c.MaxDelay > 0 {
		def.max = c.MaxDelay
	}
	return def
}

var registry = map[string]RuntimeFactory{}

// RegisterRuntime registers a provider name with its factory.
func RegisterRuntime(name string, f RuntimeFactory) { registry[name] = f }

// GetRuntime creates a Runtime for the given provider if registered.
func GetRuntime(name string, cfg RuntimeConfig) (Runtime, bool) {
	if f, ok := registry[name]; ok {
		return f(cfg), true
	}
	return nil, false
}

func init() {
	RegisterRuntime(ProviderOpenRouter, func(c RuntimeConfig) Runtime {
		// attribution headers shown on openrouter.ai
		return newHostedClient(c, OpenRouterBaseURL, map[string]string{
			"HTTP-Referer": "https://github.com/bouyassine11/AnalytIQ",
			"X-Title":      "AnalytIQ",
		})
	})
	RegisterRuntime(ProviderHuggingFace, func(c RuntimeConfig) Runtime {
		return newHostedClient(c, HuggingFaceBaseURL, nil)
	})
	RegisterRuntime(ProviderOllama, func(c RuntimeConfig) Runtime {
		return newOllamaClient(c)
	})
}

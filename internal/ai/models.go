package ai

// DefaultContextTokens is assumed for models missing from contextWindows.
const DefaultContextTokens = 8192

// contextWindows holds approximate context sizes of the models we default to
// or have seen configured.
var contextWindows = map[string]int{
	"mistralai/Mistral-7B-Instruct-v0.2": 32768,
	"Qwen/Qwen3-Coder-Next:novita":       262144,
	"meta-llama/Llama-3.1-8B-Instruct":   131072,
	"openai/gpt-4o-mini":                 128000,
	"deepseek/deepseek-r1:free":          128000,
	"llama3.1:8b":                        131072,
	"phi3:mini":                          4096,
}

// ContextWindow returns the context size of model, or DefaultContextTokens.
func ContextWindow(model string) int {
	if n, ok := contextWindows[model]; ok && n > 0 {
		return n
	}
	return DefaultContextTokens
}

// DefaultModel returns the model used for a provider when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderHuggingFace:
		return "Qwen/Qwen3-Coder-Next:novita"
	case ProviderOpenRouter:
		return "openai/gpt-4o-mini"
	case ProviderOllama:
		return "llama3.1:8b"
	}
	return ""
}

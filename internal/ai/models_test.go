package ai

import "testing"

func TestDefaultModelPerProvider(t *testing.T) {
	for _, p := range []string{ProviderHuggingFace, ProviderOpenRouter, ProviderOllama} {
		m := DefaultModel(p)
		if m == "" {
			t.Fatalf("expected default model for %s", p)
		}
		if _, ok := contextWindows[m]; !ok {
			t.Fatalf("default model %s for %s has no context window", m, p)
		}
	}
	if DefaultModel(ProviderNone) != "" {
		t.Fatalf("expected no model for provider none")
	}
}

func TestContextWindowFallback(t *testing.T) {
	if got := ContextWindow("phi3:mini"); got != 4096 {
		t.Fatalf("unexpected context window: %d", got)
	}
	if got := ContextWindow("unknown/model"); got != DefaultContextTokens {
		t.Fatalf("expected default context window, got %d", got)
	}
}

func TestNormalizeProvider(t *testing.T) {
	cases := map[string]string{
		"hf":         ProviderHuggingFace,
		"OpenRouter": ProviderOpenRouter,
		"local":      ProviderOllama,
		"":           ProviderNone,
		"custom":     "custom",
	}
	for in, want := range cases {
		if got := NormalizeProvider(in); got != want {
			t.Fatalf("NormalizeProvider(%q) = %q, want %q", in, got, want)
		}
	}
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func ollamaRuntime(t *testing.T, host string, retryMax int) Runtime {
	t.Helper()
	rt, ok := GetRuntime(ProviderOllama, RuntimeConfig{Host: host, RetryMax: retryMax, BaseDelay: time.Millisecond, HTTPTimeout: 2 * time.Second})
	if !ok {
		t.Fatal("ollama runtime not registered")
	}
	return rt
}

func TestOllamaGenerateMapsOptions(t *testing.T) {
	var got ollamaRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"role": "assistant", "content": "hello from ollama"},
		})
	}))

	resp, err := ollamaRuntime(t, srv.URL, 1).Generate(context.Background(), NewRequest("llama3.1:8b", "system text", "hi", 16, 0.2))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "hello from ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.Stream || len(got.Messages) != 2 || got.Messages[0].Content != "system text" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.Options["num_predict"] != float64(16) || got.Options["temperature"] != 0.2 {
		t.Fatalf("unexpected options: %v", got.Options)
	}
}

func TestOllamaMissingModel(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": `model "llama9" not found, try pulling it first`})
	}))
	_, err := ollamaRuntime(t, srv.URL, 3).Generate(context.Background(), NewRequest("llama9", "", "hi", 0, 0))
	var nf *ModelNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected ModelNotFoundError, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("missing model retried: %d calls", n)
	}
}

func TestOllamaRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "loading model"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"content": "ready"}})
	}))
	resp, err := ollamaRuntime(t, srv.URL, 2).Generate(context.Background(), NewRequest("llama3.1:8b", "", "hi", 0, 0))
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Text() != "ready" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("unexpected response %+v after %d calls", resp, calls)
	}
}

func TestOllamaUnreachableIsProviderError(t *testing.T) {
	_, err := ollamaRuntime(t, "http://127.0.0.1:1", 1).Generate(context.Background(), NewRequest("llama3.1:8b", "", "hi", 0, 0))
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
	if ue.Host != "http://127.0.0.1:1" || !IsProviderError(err) {
		t.Fatalf("unexpected classification: %v", err)
	}
}

func TestOllamaValidatesRequest(t *testing.T) {
	rt := ollamaRuntime(t, DefaultOllamaHost, 1)
	if _, err := rt.Generate(context.Background(), GenerateRequest{Model: "llama3.1:8b"}); !errors.Is(err, ErrNoMessages) {
		t.Fatalf("expected ErrNoMessages, got %v", err)
	}
	if _, err := rt.Generate(context.Background(), NewRequest("", "", "hi", 0, 0)); !errors.Is(err, ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
}

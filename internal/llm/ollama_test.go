package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOllamaProvider_Narrate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !strings.Contains(req.Prompt, "BREAKING!!!") {
			t.Errorf("prompt does not list the top word")
		}

		resp := ollamaResponse{
			Model:           "llama3.1",
			Response:        "The `exclamation_point_frequency` feature dominated.",
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{
		BaseURL: server.URL,
		Model:   "llama3.1",
		Timeout: 5,
		Strict:  true,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	report := testReport()
	resp, err := provider.Narrate(context.Background(), NarrateRequest{Report: report, AllowedTerms: AllowedTerms(report)})
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}

	if len(resp.CitedTerms) != 1 || resp.CitedTerms[0] != "exclamation_point_frequency" {
		t.Errorf("Unexpected cited terms: %v", resp.CitedTerms)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Unexpected token usage: %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Narrate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Internal Server Error"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})

	_, err := provider.Narrate(context.Background(), NarrateRequest{Report: testReport()})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Internal Server Error") {
		t.Errorf("Expected error message to contain 'Internal Server Error', got %v", err)
	}
}

func TestOllamaProvider_Narrate_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	if _, err := provider.Narrate(context.Background(), NarrateRequest{Report: testReport()}); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestNewProvider_PassesLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	core, logs := observer.New(zap.WarnLevel)
	provider, err := NewProvider(Config{Provider: "ollama", BaseURL: server.URL, Model: "llama3.1"}, zap.New(core))
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if provider.IsAvailable(context.Background()) {
		t.Fatal("Expected unavailable provider")
	}

	entries := logs.FilterMessage("Ollama availability check failed").All()
	if len(entries) != 1 {
		t.Fatalf("Expected one availability warning, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(http.StatusServiceUnavailable) {
		t.Errorf("Expected status field 503, got %v", got)
	}
}

func TestOllamaProvider_Narrate_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://localhost:11434"})

	_, err := provider.Narrate(context.Background(), NarrateRequest{Report: testReport()})
	if err == nil {
		t.Fatal("Expected error when no model provided, got nil")
	}
	if !strings.Contains(err.Error(), "must be specified") {
		t.Errorf("Expected error about missing model, got %v", err)
	}
}

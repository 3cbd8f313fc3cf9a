package responder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewLLM_RequiresAPIKey(t *testing.T) {
	if _, err := NewLLM("", testPersona); err != ErrNoAPIKey {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestLLM_Respond(t *testing.T) {
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Expected bearer auth, got %q", got)
		}

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)

		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": "  Nine to five, Monday through Friday.  "},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	llm, err := NewLLM("sk-test", testPersona, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewLLM failed: %v", err)
	}

	history := []Exchange{{Caller: "hello", Assistant: "hi there"}}
	got, err := llm.Respond(context.Background(), "what are your hours", history)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if got != "Nine to five, Monday through Friday." {
		t.Errorf("Expected trimmed response, got %q", got)
	}

	messages := gotPayload["messages"].([]any)

	system := messages[0].(map[string]any)
	if system["role"] != "system" {
		t.Errorf("Expected leading system message, got %v", system["role"])
	}
	if !strings.Contains(system["content"].(string), "Alex") ||
		!strings.Contains(system["content"].(string), "repair shop") {
		t.Errorf("Expected persona in system prompt, got %v", system["content"])
	}

	// system + 1 history exchange (2 messages) + current transcript
	if len(messages) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(messages))
	}
	last := messages[3].(map[string]any)
	if last["content"] != "what are your hours" {
		t.Errorf("Expected transcript as final message, got %v", last["content"])
	}
}

func TestLLM_HistoryWindow(t *testing.T) {
	var gotPayload map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]string{"content": "ok"},
			}},
		})
	}))
	defer srv.Close()

	llm, err := NewLLM("sk-test", testPersona, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewLLM failed: %v", err)
	}

	history := make([]Exchange, 10)
	for i := range history {
		history[i] = Exchange{Caller: "q", Assistant: "a"}
	}

	if _, err := llm.Respond(context.Background(), "latest", history); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}

	// system + 4 windowed exchanges (8 messages) + current transcript
	messages := gotPayload["messages"].([]any)
	if len(messages) != 10 {
		t.Errorf("Expected 10 messages with windowed history, got %d", len(messages))
	}
}

func TestLLM_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	}))
	defer srv.Close()

	llm, err := NewLLM("sk-test", testPersona, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewLLM failed: %v", err)
	}

	if _, err := llm.Respond(context.Background(), "hi", nil); err == nil {
		t.Error("Expected error from API failure")
	}
}

func TestLLM_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	llm, err := NewLLM("sk-test", testPersona, WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewLLM failed: %v", err)
	}

	_, err = llm.Respond(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("Expected error for empty choices")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Errorf("Expected ProviderError, got %T", err)
	}
}

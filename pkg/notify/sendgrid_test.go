package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashikalishaik/ai-call-agent/pkg/store"
)

func testSummary() *store.CallSummary {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return &store.CallSummary{
		CallSID:   "CA123",
		From:      "+15550100",
		To:        "+15550200",
		Status:    store.StatusCompleted,
		StartedAt: started,
		EndedAt:   started.Add(90 * time.Second),
		Turns: []store.Turn{{
			Transcript: "What are your hours",
			Response:   "Nine to five, Monday through Friday",
		}},
	}
}

func TestFormatSummary(t *testing.T) {
	body := FormatSummary(testSummary())

	for _, want := range []string{
		"CALLER: What are your hours",
		"ASSISTANT: Nine to five, Monday through Friday",
		"Call ID: CA123",
		"From: +15550100",
		"Status: completed",
		"Duration: 1m30s",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %q in body:\n%s", want, body)
		}
	}
}

func TestFormatSummary_NoTurns(t *testing.T) {
	summary := testSummary()
	summary.Turns = nil
	summary.Status = store.StatusFailed

	body := FormatSummary(summary)
	if !strings.Contains(body, "(no completed turns)") {
		t.Errorf("Expected empty-call marker in body:\n%s", body)
	}
	if !strings.Contains(body, "Status: failed") {
		t.Errorf("Expected failed status in body:\n%s", body)
	}
}

func TestSendGrid_NotifyCallEnded(t *testing.T) {
	var gotPayload map[string]any
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mail/send" {
			t.Errorf("Expected /mail/send, got %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotPayload)

		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg, err := NewSendGrid("sg-test", "owner@example.com", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewSendGrid failed: %v", err)
	}

	if err := sg.NotifyCallEnded(context.Background(), testSummary()); err != nil {
		t.Fatalf("NotifyCallEnded failed: %v", err)
	}

	if gotAuth != "Bearer sg-test" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
	if got := gotPayload["subject"]; got != "Call Summary - CA123" {
		t.Errorf("Unexpected subject: %v", got)
	}

	content := gotPayload["content"].([]any)[0].(map[string]any)
	if !strings.Contains(content["value"].(string), "What are your hours") {
		t.Errorf("Expected transcript in mail body, got %v", content["value"])
	}
}

func TestSendGrid_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"errors":[{"message":"bad key"}]}`)
	}))
	defer srv.Close()

	sg, err := NewSendGrid("sg-bad", "owner@example.com", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewSendGrid failed: %v", err)
	}

	if err := sg.NotifyCallEnded(context.Background(), testSummary()); err == nil {
		t.Error("Expected error from API failure")
	}
}

func TestNewSendGrid_Validation(t *testing.T) {
	if _, err := NewSendGrid("", "owner@example.com"); err == nil {
		t.Error("Expected error for missing API key")
	}
	if _, err := NewSendGrid("sg-test", ""); err == nil {
		t.Error("Expected error for missing recipient")
	}
}

func TestNoop(t *testing.T) {
	if err := (Noop{}).NotifyCallEnded(context.Background(), testSummary()); err != nil {
		t.Errorf("Noop must never fail, got %v", err)
	}
}

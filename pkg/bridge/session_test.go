package bridge

import (
	"testing"

	"github.com/ashikalishaik/ai-call-agent/pkg/store"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("CA123", "+15550100", "+15550111")

	if s.Status() != StatusPending {
		t.Errorf("Expected pending, got %s", s.Status())
	}
	if s.Summary() != nil {
		t.Error("Expected no summary before terminal state")
	}

	if err := s.Activate("MZ001"); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if s.Status() != StatusActive {
		t.Errorf("Expected active, got %s", s.Status())
	}
	if s.StreamSID() != "MZ001" {
		t.Errorf("Expected stream MZ001, got %s", s.StreamSID())
	}
	if err := s.Activate("MZ002"); err != ErrNotPending {
		t.Errorf("Expected ErrNotPending on double activate, got %v", err)
	}

	if err := s.BeginTurn("what are your hours"); err != nil {
		t.Fatalf("BeginTurn failed: %v", err)
	}
	if err := s.BeginTurn("again"); err != ErrTurnOpen {
		t.Errorf("Expected ErrTurnOpen, got %v", err)
	}
	if err := s.CompleteTurn("nine to five", 640); err != nil {
		t.Fatalf("CompleteTurn failed: %v", err)
	}
	if err := s.CompleteTurn("again", 0); err != ErrNoOpenTurn {
		t.Errorf("Expected ErrNoOpenTurn, got %v", err)
	}

	if got := s.Finish(); got != StatusCompleted {
		t.Errorf("Expected completed, got %s", got)
	}
	if got := s.Finish(); got != StatusCompleted {
		t.Errorf("Expected Finish to be idempotent, got %s", got)
	}

	summary := s.Summary()
	if summary == nil {
		t.Fatal("Expected summary after finish")
	}
	if summary.Status != store.StatusCompleted {
		t.Errorf("Expected completed summary, got %s", summary.Status)
	}
	if len(summary.Turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(summary.Turns))
	}
	if summary.Turns[0].Response != "nine to five" {
		t.Errorf("Unexpected response: %s", summary.Turns[0].Response)
	}
	if summary.Turns[0].AudioBytes != 640 {
		t.Errorf("Expected 640 audio bytes, got %d", summary.Turns[0].AudioBytes)
	}
}

func TestSessionFailsWithoutTurns(t *testing.T) {
	s := NewSession("CA124", "+15550100", "+15550111")
	s.Activate("MZ001")

	if got := s.Finish(); got != StatusFailed {
		t.Errorf("Expected failed with zero turns, got %s", got)
	}
	if s.Summary().Status != store.StatusFailed {
		t.Errorf("Expected failed summary, got %s", s.Summary().Status)
	}
}

func TestSessionFailsWithOpenTurn(t *testing.T) {
	s := NewSession("CA125", "+15550100", "+15550111")
	s.Activate("MZ001")
	s.BeginTurn("first")
	s.CompleteTurn("reply", 100)
	s.BeginTurn("second, cut off")

	if got := s.Finish(); got != StatusFailed {
		t.Errorf("Expected failed with open turn, got %s", got)
	}

	summary := s.Summary()
	if len(summary.Turns) != 2 {
		t.Fatalf("Expected partial turns preserved, got %d", len(summary.Turns))
	}
	if summary.Turns[1].Response != "" {
		t.Errorf("Expected open turn without response, got %q", summary.Turns[1].Response)
	}
}

func TestSessionNeverActivatedFails(t *testing.T) {
	s := NewSession("CA126", "+15550100", "+15550111")

	if err := s.BeginTurn("early"); err != ErrNotActive {
		t.Errorf("Expected ErrNotActive before activation, got %v", err)
	}
	if got := s.Finish(); got != StatusFailed {
		t.Errorf("Expected failed, got %s", got)
	}
}

func TestSessionHistoryExcludesOpenTurn(t *testing.T) {
	s := NewSession("CA127", "+15550100", "+15550111")
	s.Activate("MZ001")
	s.BeginTurn("hello")
	s.CompleteTurn("hi there", 0)
	s.BeginTurn("what are your hours")

	history := s.History()
	if len(history) != 1 {
		t.Fatalf("Expected 1 exchange, got %d", len(history))
	}
	if history[0].Caller != "hello" || history[0].Assistant != "hi there" {
		t.Errorf("Unexpected exchange: %+v", history[0])
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	s := NewSession("CA200", "+15550100", "+15550111")
	if err := r.Add(s); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(NewSession("CA200", "", "")); err != ErrDuplicateCall {
		t.Errorf("Expected ErrDuplicateCall, got %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Expected count 1, got %d", r.Count())
	}

	got, err := r.Get("CA200")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != s {
		t.Error("Expected same session back")
	}

	if _, err := r.Get("CA999"); err != ErrUnknownCall {
		t.Errorf("Expected ErrUnknownCall, got %v", err)
	}

	r.Remove("CA200")
	r.Remove("CA200") // absent is a no-op
	if r.Count() != 0 {
		t.Errorf("Expected count 0 after remove, got %d", r.Count())
	}
}

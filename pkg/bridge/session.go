// Package bridge relays audio between a caller's media stream and the
// speech services, one bridge per active call.
package bridge

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashikalishaik/ai-call-agent/pkg/responder"
	"github.com/ashikalishaik/ai-call-agent/pkg/store"
)

// Status is the call session lifecycle state.
type Status string

// Session lifecycle: Pending -> Active -> {Completed | Failed}.
// No transition leaves a terminal state.
const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Session state machine errors.
var (
	ErrNotPending = errors.New("bridge: session not pending")
	ErrNotActive  = errors.New("bridge: session not active")
	ErrTurnOpen   = errors.New("bridge: turn already open")
	ErrNoOpenTurn = errors.New("bridge: no open turn")
)

// Session is the in-memory state of one call, owned by its bridge for
// the call's lifetime and handed to the store at termination.
type Session struct {
	mu sync.Mutex

	callSID   string
	from      string
	to        string
	streamSID string

	status    Status
	startedAt time.Time
	endedAt   time.Time

	turns    []store.Turn
	turnOpen bool
}

// NewSession creates a pending session for an accepted webhook.
func NewSession(callSID, from, to string) *Session {
	return &Session{
		callSID:   callSID,
		from:      from,
		to:        to,
		status:    StatusPending,
		startedAt: time.Now(),
	}
}

// CallSID returns the provider-assigned call identifier.
func (s *Session) CallSID() string {
	return s.callSID
}

// StreamSID returns the media stream identifier, set on activation.
func (s *Session) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Activate transitions pending -> active when the media stream opens.
func (s *Session) Activate(streamSID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return ErrNotPending
	}
	s.status = StatusActive
	s.streamSID = streamSID
	return nil
}

// BeginTurn appends the caller half of a new turn. The turn stays open
// until CompleteTurn records the response.
func (s *Session) BeginTurn(transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return ErrNotActive
	}
	if s.turnOpen {
		return ErrTurnOpen
	}

	s.turns = append(s.turns, store.Turn{
		ID:         uuid.NewString(),
		Transcript: transcript,
		HeardAt:    time.Now(),
	})
	s.turnOpen = true
	return nil
}

// CompleteTurn records the response half of the open turn.
func (s *Session) CompleteTurn(response string, audioBytes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.turnOpen {
		return ErrNoOpenTurn
	}

	turn := &s.turns[len(s.turns)-1]
	turn.Response = response
	turn.RepliedAt = time.Now()
	turn.AudioBytes = audioBytes
	s.turnOpen = false
	return nil
}

// History returns the completed exchanges in conversation order, for
// the response generator's context window.
func (s *Session) History() []responder.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]responder.Exchange, 0, len(s.turns))
	for i, turn := range s.turns {
		if i == len(s.turns)-1 && s.turnOpen {
			break
		}
		history = append(history, responder.Exchange{
			Caller:    turn.Transcript,
			Assistant: turn.Response,
		})
	}
	return history
}

// TurnCount returns the number of turns, including an open one.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Finish transitions the session to its terminal state and returns it.
// A session with at least one completed turn and no turn left open
// completed normally; anything else failed, preserving partial turns.
// Finish is idempotent: a terminal session keeps its state.
func (s *Session) Finish() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusCompleted || s.status == StatusFailed {
		return s.status
	}

	s.endedAt = time.Now()

	if len(s.turns) > 0 && !s.turnOpen {
		s.status = StatusCompleted
	} else {
		s.status = StatusFailed
	}
	return s.status
}

// Summary snapshots a terminal session for persistence. Returns nil if
// the session has not finished.
func (s *Session) Summary() *store.CallSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusCompleted && s.status != StatusFailed {
		return nil
	}

	turns := make([]store.Turn, len(s.turns))
	copy(turns, s.turns)

	status := store.StatusCompleted
	if s.status == StatusFailed {
		status = store.StatusFailed
	}

	return &store.CallSummary{
		CallSID:   s.callSID,
		From:      s.from,
		To:        s.to,
		Status:    status,
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
		Turns:     turns,
	}
}

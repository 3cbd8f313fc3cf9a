// Package store persists call summaries.
//
// A summary is the immutable record of a completed or failed call: its
// turns plus metadata, keyed by the provider-assigned call SID. Two
// backends are provided: an in-memory store with TTL eviction and a
// SQLite store for durable retention.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no summary exists for a call SID.
	ErrNotFound = errors.New("store: summary not found")

	// ErrClosed is returned after the store has been closed.
	ErrClosed = errors.New("store: closed")
)

// Call status values. A summary only exists for terminal calls.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Turn is one caller-utterance/assistant-response pair.
type Turn struct {
	ID         string    `json:"id"`
	Transcript string    `json:"transcript"`
	Response   string    `json:"response"`
	HeardAt    time.Time `json:"heard_at"`
	RepliedAt  time.Time `json:"replied_at"`
	AudioBytes int       `json:"audio_bytes"`
}

// CallSummary is the immutable snapshot of a finished call.
type CallSummary struct {
	CallSID   string    `json:"call_sid"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Turns     []Turn    `json:"turns"`
}

// Store persists and retrieves call summaries.
// Summaries are immutable once saved: saving an existing call SID again
// is a no-op, not an update.
type Store interface {
	// Save persists a summary.
	Save(ctx context.Context, summary *CallSummary) error

	// Get retrieves one summary by exact call SID.
	// Returns ErrNotFound when absent.
	Get(ctx context.Context, callSID string) (*CallSummary, error)

	// List returns all retained summaries, newest first.
	List(ctx context.Context) ([]*CallSummary, error)

	// Close releases backend resources.
	Close() error
}

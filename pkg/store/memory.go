package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map and per-entry TTL.
// Entries are evicted lazily on read.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
	closed  bool
}

type memoryEntry struct {
	summary   *CallSummary
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store. A zero or negative TTL
// retains summaries for the life of the process.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// Save persists a summary. Duplicate call SIDs are ignored; summaries
// are immutable.
func (s *MemoryStore) Save(ctx context.Context, summary *CallSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if _, exists := s.entries[summary.CallSID]; exists {
		return nil
	}

	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}

	s.entries[summary.CallSID] = memoryEntry{
		summary:   cloneSummary(summary),
		expiresAt: expires,
	}
	return nil
}

// Get retrieves one summary by exact call SID.
func (s *MemoryStore) Get(ctx context.Context, callSID string) (*CallSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	entry, ok := s.entries[callSID]
	if !ok {
		return nil, ErrNotFound
	}

	if s.expired(entry) {
		delete(s.entries, callSID)
		return nil, ErrNotFound
	}

	return cloneSummary(entry.summary), nil
}

// List returns all live summaries, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*CallSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	out := make([]*CallSummary, 0, len(s.entries))
	for sid, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, sid)
			continue
		}
		out = append(out, cloneSummary(entry.summary))
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].EndedAt.After(out[j].EndedAt)
	})
	return out, nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}

// expired reports whether the entry's TTL has lapsed.
func (s *MemoryStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt)
}

// cloneSummary deep-copies a summary so callers cannot mutate stored state.
func cloneSummary(in *CallSummary) *CallSummary {
	out := *in
	out.Turns = make([]Turn, len(in.Turns))
	copy(out.Turns, in.Turns)
	return &out
}

// Verify MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)

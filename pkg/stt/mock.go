package stt

import (
	"context"
	"sync"
)

// Mock implements Provider for testing.
// Tests push transcript events with Emit and inspect received audio.
type Mock struct {
	// ConnectFunc is called when Connect is invoked.
	// If nil, Connect succeeds.
	ConnectFunc func(ctx context.Context) error

	// SendAudioFunc is called when SendAudio is invoked.
	// If nil, frames are recorded and SendAudio succeeds.
	SendAudioFunc func(frame []byte) error

	mu           sync.Mutex
	connected    bool
	closed       bool
	frames       [][]byte
	onTranscript func(Result)
	onError      func(error)
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{}
}

// Connect marks the stream open.
func (m *Mock) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		if err := m.ConnectFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	return nil
}

// SendAudio records the frame.
func (m *Mock) SendAudio(frame []byte) error {
	if m.SendAudioFunc != nil {
		return m.SendAudioFunc(frame)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}

	buf := make([]byte, len(frame))
	copy(buf, frame)
	m.frames = append(m.frames, buf)
	return nil
}

// OnTranscript registers the transcript event callback.
func (m *Mock) OnTranscript(fn func(Result)) {
	m.mu.Lock()
	m.onTranscript = fn
	m.mu.Unlock()
}

// OnError registers the stream error callback.
func (m *Mock) OnError(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

// Close marks the stream closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.connected = false
	m.mu.Unlock()
	return nil
}

// Emit delivers a transcript event to the registered callback.
func (m *Mock) Emit(r Result) {
	m.mu.Lock()
	fn := m.onTranscript
	m.mu.Unlock()

	if fn != nil {
		fn(r)
	}
}

// EmitError delivers a stream error to the registered callback.
func (m *Mock) EmitError(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()

	if fn != nil {
		fn(err)
	}
}

// Frames returns all audio frames received so far.
func (m *Mock) Frames() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

// Closed reports whether Close has been called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Provider at compile time.
var _ Provider = (*Mock)(nil)

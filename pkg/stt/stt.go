// Package stt provides a unified interface for streaming speech-to-text
// providers.
//
// A Provider wraps a live transcription connection: callers push telephony
// audio frames in and receive transcript events (interim and final) through
// a callback. The bundled Deepgram implementation speaks the live
// transcription WebSocket protocol; the Mock implementation supports tests.
//
// Example usage:
//
//	provider, _ := stt.NewDeepgram(
//	    stt.WithAPIKey(os.Getenv("DEEPGRAM_API_KEY")),
//	)
//	provider.OnTranscript(func(r stt.Result) {
//	    if r.IsFinal {
//	        handle(r.Text)
//	    }
//	})
//	_ = provider.Connect(ctx)
//	_ = provider.SendAudio(frame)
package stt

import "context"

// Result is one transcript event from the recognition stream.
type Result struct {
	// Text is the transcribed speech. May be empty for silence.
	Text string

	// IsFinal reports whether the provider has finalized this segment.
	// Interim results may be revised by later events.
	IsFinal bool

	// Confidence is the provider's confidence in the transcript (0.0-1.0).
	Confidence float64
}

// Provider is a streaming speech-to-text connection.
type Provider interface {
	// Connect opens the recognition stream. Callbacks must be registered
	// before calling Connect.
	Connect(ctx context.Context) error

	// SendAudio pushes one audio frame to the recognition stream.
	// Audio must match the encoding and sample rate the provider was
	// configured with.
	SendAudio(frame []byte) error

	// OnTranscript registers the transcript event callback.
	OnTranscript(fn func(Result))

	// OnError registers the callback for stream errors. The stream is
	// unusable after an error; callers should Close and terminate.
	OnError(fn func(error))

	// Close flushes and tears down the recognition stream.
	Close() error
}

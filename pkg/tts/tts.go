// Package tts provides a unified interface for text-to-speech providers.
//
// The bundled Deepgram implementation synthesizes telephony audio (μ-law
// 8kHz) so synthesized frames can be written to the caller leg without
// transcoding. All providers implement the Provider interface, enabling
// seamless switching without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.NewDeepgram(
//	    tts.WithAPIKey(os.Getenv("DEEPGRAM_API_KEY")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Nine to five, Monday through Friday")
//	// result.Audio contains μ-law audio bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec (e.g., mulaw, linear16).
	Encoding Encoding

	// SampleRate in Hz (e.g., 8000, 16000, 24000).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for linear PCM formats (8 for μ-law).
	BitDepth int
}

// Encoding represents audio encoding types.
// These match Deepgram speak encoding options.
type Encoding string

const (
	// EncodingMulaw is μ-law 8-bit audio (telephony).
	EncodingMulaw Encoding = "mulaw"

	// EncodingLinear16 is 16-bit linear PCM.
	EncodingLinear16 Encoding = "linear16"
)

// BytesPerSecond returns the audio byte rate for an encoding at a
// sample rate, used for duration estimates.
func BytesPerSecond(enc Encoding, sampleRate int) int {
	switch enc {
	case EncodingLinear16:
		return sampleRate * 2
	default:
		return sampleRate
	}
}

// Package responder generates assistant replies for caller transcripts.
//
// A Provider is a text-in/text-out function over the call's turn history.
// Two implementations are bundled: Rules (no external dependencies, always
// available) and LLM (OpenAI-compatible chat completions). Chain composes
// them so generation degrades to rules when the LLM is unavailable.
package responder

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Sentinel errors.
var (
	// ErrNoAPIKey is returned when the LLM API key is missing.
	ErrNoAPIKey = errors.New("responder: API key required")

	// ErrEmptyResponse is returned when the generator produced no usable text.
	ErrEmptyResponse = errors.New("responder: empty response")

	// ErrNoProviders is returned when a chain has no providers.
	ErrNoProviders = errors.New("responder: no providers")
)

// FallbackUtterance is spoken when every generator fails. The call
// continues; availability is preferred over a perfect answer.
const FallbackUtterance = "I'm here to help. Could you please repeat that?"

// MaxResponseChars caps generated responses; longer text is truncated
// before synthesis to keep spoken replies short.
const MaxResponseChars = 500

// Exchange is one prior caller/assistant pair given to the generator as
// conversation context.
type Exchange struct {
	Caller    string
	Assistant string
}

// Provider generates a reply to a finalized caller transcript.
type Provider interface {
	// Respond produces the assistant reply for transcript, given the
	// conversation history in order (oldest first).
	Respond(ctx context.Context, transcript string, history []Exchange) (string, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, transcript string, history []Exchange) (string, error)

// Respond calls the wrapped function.
func (f ProviderFunc) Respond(ctx context.Context, transcript string, history []Exchange) (string, error) {
	return f(ctx, transcript, history)
}

// Persona is the identity injected into generated responses.
type Persona struct {
	// Name is who the agent answers for ("calling <Name>").
	Name string

	// UserInfo is free-form background text about the person the agent
	// represents, injected into the system prompt.
	UserInfo string
}

// WithTimeout wraps a provider with a per-request timeout.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	return ProviderFunc(func(ctx context.Context, transcript string, history []Exchange) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return p.Respond(ctx, transcript, history)
	})
}

// Truncate clamps a response to MaxResponseChars, cutting on a rune
// boundary so the result stays valid UTF-8 for synthesis.
func Truncate(text string) string {
	if len(text) <= MaxResponseChars {
		return text
	}
	cut := MaxResponseChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("responder [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

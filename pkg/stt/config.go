package stt

import (
	"log/slog"
	"time"
)

// Config holds STT provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey  string
	BaseURL string

	// Recognition parameters
	Model      string
	Encoding   string
	SampleRate int
	Language   string

	// InterimResults requests partial transcripts in addition to finals.
	// The bridge uses interims for barge-in detection only.
	InterimResults bool

	// Timeouts
	Timeout           time.Duration
	KeepAliveInterval time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring STT providers.
type Option func(*Config)

// WithAPIKey sets the API key for the provider.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default WebSocket base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel sets the recognition model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithEncoding sets the audio encoding and sample rate of pushed frames.
func WithEncoding(encoding string, sampleRate int) Option {
	return func(c *Config) {
		c.Encoding = encoding
		c.SampleRate = sampleRate
	}
}

// WithLanguage sets the recognition language.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithInterimResults controls whether partial transcripts are delivered.
func WithInterimResults(enabled bool) Option {
	return func(c *Config) {
		c.InterimResults = enabled
	}
}

// WithTimeout sets the connection handshake timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithKeepAlive sets the idle keep-alive interval.
func WithKeepAlive(interval time.Duration) Option {
	return func(c *Config) {
		c.KeepAliveInterval = interval
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible defaults for telephony transcription.
func DefaultConfig() *Config {
	return &Config{
		Model:             "nova-2",
		Encoding:          "mulaw",
		SampleRate:        8000,
		Language:          "en",
		InterimResults:    true,
		Timeout:           10 * time.Second,
		KeepAliveInterval: 5 * time.Second,
		Logger:            slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

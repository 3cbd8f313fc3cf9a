// Package config loads call agent configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultPort       = 8080
	DefaultAgentName  = "AI Assistant"
	DefaultUserInfo   = "No user info provided"
	DefaultModel      = "gpt-4o-mini"
	DefaultSummaryTTL = 24 * time.Hour
)

// Config holds all runtime configuration for the call agent.
type Config struct {
	// HTTP server
	Port       int
	PublicHost string // externally reachable host used in the media-stream URL

	// Provider credentials
	DeepgramAPIKey   string
	TwilioAccountSID string
	TwilioAuthToken  string

	// Response generation
	OpenAIAPIKey string // optional; rule-based responder is used when empty
	OpenAIModel  string
	AgentName    string
	UserInfo     string

	// Notifications
	NotificationEmail string
	SendGridAPIKey    string

	// Persistence
	StorePath  string // SQLite database path; empty selects the in-memory store
	SummaryTTL time.Duration

	// Observability
	LogLevel string
}

// FromEnv builds a Config from environment variables, applying defaults
// for anything unset.
func FromEnv() Config {
	return Config{
		Port:              envInt("PORT", DefaultPort),
		PublicHost:        os.Getenv("PUBLIC_HOST"),
		DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envString("OPENAI_MODEL", DefaultModel),
		AgentName:         envString("AGENT_NAME", DefaultAgentName),
		UserInfo:          envString("USER_INFO", DefaultUserInfo),
		NotificationEmail: os.Getenv("NOTIFICATION_EMAIL"),
		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		StorePath:         os.Getenv("STORE_PATH"),
		SummaryTTL:        envDuration("SUMMARY_TTL", DefaultSummaryTTL),
		LogLevel:          envString("LOG_LEVEL", "info"),
	}
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("config: DEEPGRAM_API_KEY is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	return nil
}

// envString returns the env var value or the default when unset.
func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt returns the env var parsed as an int, or the default when
// unset or unparseable.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envDuration returns the env var parsed as a duration ("24h", "90m"),
// or the default when unset or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

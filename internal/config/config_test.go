package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.Port != DefaultPort {
		t.Errorf("Expected default port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.AgentName != DefaultAgentName {
		t.Errorf("Expected default agent name %q, got %q", DefaultAgentName, cfg.AgentName)
	}
	if cfg.SummaryTTL != DefaultSummaryTTL {
		t.Errorf("Expected default TTL %v, got %v", DefaultSummaryTTL, cfg.SummaryTTL)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AGENT_NAME", "Reception Bot")
	t.Setenv("SUMMARY_TTL", "1h")
	t.Setenv("DEEPGRAM_API_KEY", "dg-test")

	cfg := FromEnv()

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.AgentName != "Reception Bot" {
		t.Errorf("Expected agent name override, got %q", cfg.AgentName)
	}
	if cfg.SummaryTTL != time.Hour {
		t.Errorf("Expected 1h TTL, got %v", cfg.SummaryTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("SUMMARY_TTL", "soon")

	cfg := FromEnv()

	if cfg.Port != DefaultPort {
		t.Errorf("Expected fallback port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.SummaryTTL != DefaultSummaryTTL {
		t.Errorf("Expected fallback TTL %v, got %v", DefaultSummaryTTL, cfg.SummaryTTL)
	}
}

func TestValidate_MissingKey(t *testing.T) {
	cfg := Config{Port: 8080}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing Deepgram API key")
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := Config{Port: -1, DeepgramAPIKey: "dg-test"}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for invalid port")
	}
}

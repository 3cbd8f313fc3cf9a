package responder

import (
	"context"
	"fmt"
	"strings"
)

// Rules implements Provider with keyword matching. It never fails and
// needs no network, so it serves as the terminal fallback generator.
type Rules struct {
	persona Persona
}

// NewRules creates a rule-based responder for the given persona.
func NewRules(persona Persona) *Rules {
	return &Rules{persona: persona}
}

// Respond matches the transcript against the rule set.
func (r *Rules) Respond(ctx context.Context, transcript string, history []Exchange) (string, error) {
	lower := strings.ToLower(transcript)

	switch {
	case containsAny(lower, "hello", "hi ", "hey"), lower == "hi":
		return fmt.Sprintf("Hello! I'm %s's AI assistant. How can I help you today?", r.persona.Name), nil

	case containsAny(lower, "hour", "open", "close"):
		return "Nine to five, Monday through Friday.", nil

	case containsAny(lower, "message", "tell them", "let them know"):
		return "Of course, I'll pass your message along. Go ahead.", nil

	case containsAny(lower, "bye", "goodbye", "thank"):
		return "Thanks for calling. Goodbye!", nil
	}

	return fmt.Sprintf("I understood you said: %s. Can you tell me more?", transcript), nil
}

// containsAny reports whether s contains any of the substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Verify Rules implements Provider at compile time.
var _ Provider = (*Rules)(nil)

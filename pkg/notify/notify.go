// Package notify delivers call summary notifications.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashikalishaik/ai-call-agent/pkg/store"
)

// Notifier delivers a notification for a finished call.
// Failures are logged by callers and never affect the call itself.
type Notifier interface {
	// NotifyCallEnded sends a notification for the given summary.
	NotifyCallEnded(ctx context.Context, summary *store.CallSummary) error
}

// Noop is a Notifier that does nothing, used when notification is not
// configured.
type Noop struct{}

// NotifyCallEnded does nothing.
func (Noop) NotifyCallEnded(ctx context.Context, summary *store.CallSummary) error {
	return nil
}

// FormatSummary renders a summary as the plain-text notification body.
func FormatSummary(summary *store.CallSummary) string {
	var b strings.Builder

	b.WriteString("Call Conversation:\n\n")
	for _, turn := range summary.Turns {
		fmt.Fprintf(&b, "- CALLER: %s\n", turn.Transcript)
		fmt.Fprintf(&b, "- ASSISTANT: %s\n", turn.Response)
	}
	if len(summary.Turns) == 0 {
		b.WriteString("(no completed turns)\n")
	}

	fmt.Fprintf(&b, "\nCall ID: %s\n", summary.CallSID)
	fmt.Fprintf(&b, "From: %s\n", summary.From)
	fmt.Fprintf(&b, "Status: %s\n", summary.Status)
	fmt.Fprintf(&b, "Duration: %s\n", summary.EndedAt.Sub(summary.StartedAt).Round(time.Second))

	return b.String()
}

// Verify Noop implements Notifier at compile time.
var _ Notifier = Noop{}

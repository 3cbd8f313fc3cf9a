package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ashikalishaik/ai-call-agent/internal/httpc"
	"github.com/ashikalishaik/ai-call-agent/pkg/store"
)

const sendGridBaseURL = "https://api.sendgrid.com/v3"

// DefaultFromAddress is the sender when none is configured.
const DefaultFromAddress = "noreply@callagent.local"

// SendGrid implements Notifier using the SendGrid v3 mail API.
type SendGrid struct {
	apiKey  string
	to      string
	from    string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// SendGridOption configures the SendGrid notifier.
type SendGridOption func(*SendGrid)

// WithFromAddress sets the sender address.
func WithFromAddress(from string) SendGridOption {
	return func(s *SendGrid) {
		s.from = from
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) SendGridOption {
	return func(s *SendGrid) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) SendGridOption {
	return func(s *SendGrid) {
		s.http = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) SendGridOption {
	return func(s *SendGrid) {
		s.logger = logger
	}
}

// NewSendGrid creates a SendGrid notifier sending to the given address.
func NewSendGrid(apiKey, to string, opts ...SendGridOption) (*SendGrid, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("notify: SendGrid API key required")
	}
	if to == "" {
		return nil, fmt.Errorf("notify: recipient address required")
	}

	s := &SendGrid{
		apiKey:  apiKey,
		to:      to,
		from:    DefaultFromAddress,
		baseURL: sendGridBaseURL,
		http:    httpc.NewClient(10 * time.Second),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "notify.sendgrid")

	return s, nil
}

// NotifyCallEnded emails the call summary to the configured recipient.
func (s *SendGrid) NotifyCallEnded(ctx context.Context, summary *store.CallSummary) error {
	payload := map[string]any{
		"personalizations": []map[string]any{{
			"to": []map[string]string{{"email": s.to}},
		}},
		"from":    map[string]string{"email": s.from},
		"subject": fmt.Sprintf("Call Summary - %s", summary.CallSID),
		"content": []map[string]string{{
			"type":  "text/plain",
			"value": FormatSummary(summary),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: API error %d: %s",
			resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	s.logger.Info("call notification sent",
		"call_sid", summary.CallSID,
		"turns", len(summary.Turns),
	)
	return nil
}

// Verify SendGrid implements Notifier at compile time.
var _ Notifier = (*SendGrid)(nil)

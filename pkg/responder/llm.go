package responder

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
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	providerLLM   = "llm"

	// historyWindow is how many prior exchanges are sent as context.
	historyWindow = 4
)

// LLM implements Provider using an OpenAI-compatible chat completions API.
// Works with OpenAI, Ollama, vLLM, Together, Groq, and similar endpoints.
type LLM struct {
	baseURL string
	apiKey  string
	model   string
	persona Persona
	http    *http.Client
	logger  *slog.Logger
}

// LLMOption configures the LLM provider.
type LLMOption func(*LLM)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) LLMOption {
	return func(l *LLM) {
		l.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel sets the chat model.
func WithModel(model string) LLMOption {
	return func(l *LLM) {
		l.model = model
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) LLMOption {
	return func(l *LLM) {
		l.http = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) LLMOption {
	return func(l *LLM) {
		l.logger = logger
	}
}

// NewLLM creates an LLM responder.
func NewLLM(apiKey string, persona Persona, opts ...LLMOption) (*LLM, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	l := &LLM{
		baseURL: openAIBaseURL,
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
		persona: persona,
		http:    httpc.NewClient(15 * time.Second),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "responder.llm")

	return l, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Model string `json:"model"`
}

// Respond generates a reply via the chat completions API.
func (l *LLM) Respond(ctx context.Context, transcript string, history []Exchange) (string, error) {
	start := time.Now()

	payload := map[string]any{
		"model":       l.model,
		"messages":    l.buildMessages(transcript, history),
		"max_tokens":  100,
		"temperature": 0.7,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", WrapError(providerLLM, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", WrapError(providerLLM, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return "", WrapError(providerLLM, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", WrapError(providerLLM,
			fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var result chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(providerLLM, fmt.Errorf("decode response: %w", err))
	}

	if len(result.Choices) == 0 {
		return "", WrapError(providerLLM, ErrEmptyResponse)
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", WrapError(providerLLM, ErrEmptyResponse)
	}

	l.logger.Debug("generated response",
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
		"model", result.Model,
	)

	return Truncate(text), nil
}

// buildMessages assembles the system prompt and recent conversation.
func (l *LLM) buildMessages(transcript string, history []Exchange) []chatMessage {
	system := fmt.Sprintf(`You are a helpful AI assistant answering phone calls for %s.
User Information: %s

Respond naturally and concisely in 1-2 sentences. Be conversational and friendly.`,
		l.persona.Name, l.persona.UserInfo)

	messages := []chatMessage{{Role: "system", Content: system}}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	for _, ex := range recent {
		messages = append(messages,
			chatMessage{Role: "user", Content: ex.Caller},
			chatMessage{Role: "assistant", Content: ex.Assistant},
		)
	}

	return append(messages, chatMessage{Role: "user", Content: transcript})
}

// Verify LLM implements Provider at compile time.
var _ Provider = (*LLM)(nil)

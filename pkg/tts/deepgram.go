package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ashikalishaik/ai-call-agent/internal/httpc"
)

const (
	deepgramBaseURL  = "https://api.deepgram.com/v1"
	providerDeepgram = "deepgram"
)

// Deepgram implements Provider using the Deepgram speak API.
type Deepgram struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewDeepgram creates a new Deepgram TTS provider.
func NewDeepgram(opts ...Option) (*Deepgram, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deepgramBaseURL
	}

	return &Deepgram{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "tts.deepgram"),
		baseURL: baseURL,
	}, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (d *Deepgram) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	start := time.Now()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, WrapError(providerDeepgram, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.speakURL(), bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerDeepgram, fmt.Errorf("create request: %w", err))
	}

	d.setHeaders(req)

	resp, err := d.doWithRetry(ctx, req, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, d.parseError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerDeepgram, fmt.Errorf("read response: %w", err))
	}

	d.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"model", d.config.Model,
	)

	return &AudioResult{
		Audio:     audio,
		Format:    d.outputFormat(),
		CharCount: len(text),
		LatencyMs: latency,
		Duration:  d.estimateDuration(len(audio)),
	}, nil
}

// Health checks API connectivity and API key validity.
func (d *Deepgram) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", d.baseURL+"/projects", nil)
	if err != nil {
		return WrapError(providerDeepgram, err)
	}

	req.Header.Set("Authorization", "Token "+d.config.APIKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return WrapError(providerDeepgram, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return d.parseError(resp)
	}

	return nil
}

// Close releases resources held by the provider.
func (d *Deepgram) Close() error {
	d.client.CloseIdleConnections()
	return nil
}

// speakURL constructs the speak endpoint URL with output parameters.
func (d *Deepgram) speakURL() string {
	q := url.Values{}
	q.Set("model", d.config.Model)
	q.Set("encoding", string(d.config.OutputFormat))
	q.Set("sample_rate", strconv.Itoa(d.config.SampleRate))
	return d.baseURL + "/speak?" + q.Encode()
}

// setHeaders sets required HTTP headers.
func (d *Deepgram) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Token "+d.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// doWithRetry performs the request with retry logic.
func (d *Deepgram) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= d.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.config.RetryDelay * time.Duration(attempt)):
			}

			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := d.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerDeepgram, err)
			continue
		}

		// Check if retryable
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = d.parseError(resp)
			d.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads and parses an error response.
func (d *Deepgram) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var errResp struct {
		ErrCode string `json:"err_code"`
		ErrMsg  string `json:"err_msg"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.ErrMsg != "" {
		message = errResp.ErrMsg
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerDeepgram,
	}
}

// outputFormat returns the audio format configuration.
func (d *Deepgram) outputFormat() AudioFormat {
	bitDepth := 8
	if d.config.OutputFormat == EncodingLinear16 {
		bitDepth = 16
	}
	return AudioFormat{
		Encoding:   d.config.OutputFormat,
		SampleRate: d.config.SampleRate,
		Channels:   1,
		BitDepth:   bitDepth,
	}
}

// estimateDuration estimates audio duration from byte count.
func (d *Deepgram) estimateDuration(bytes int) time.Duration {
	rate := BytesPerSecond(d.config.OutputFormat, d.config.SampleRate)
	seconds := float64(bytes) / float64(rate)
	return time.Duration(seconds * float64(time.Second))
}

// Verify Deepgram implements Provider at compile time.
var _ Provider = (*Deepgram)(nil)

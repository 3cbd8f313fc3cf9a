package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	deepgramBaseURL  = "wss://api.deepgram.com/v1/listen"
	providerDeepgram = "deepgram"
)

// Deepgram implements Provider using the Deepgram live transcription
// WebSocket API.
type Deepgram struct {
	config *Config
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	cancelCtx context.CancelFunc

	onTranscript func(Result)
	onError      func(error)
}

// liveMessage is the subset of Deepgram's live transcription response
// the agent consumes.
type liveMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// controlMessage is a client-to-server text frame.
type controlMessage struct {
	Type string `json:"type"`
}

// NewDeepgram creates a new Deepgram live transcription provider.
func NewDeepgram(opts ...Option) (*Deepgram, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Deepgram{
		config: cfg,
		logger: cfg.Logger.With("component", "stt.deepgram"),
	}, nil
}

// OnTranscript registers the transcript event callback.
func (d *Deepgram) OnTranscript(fn func(Result)) {
	d.mu.Lock()
	d.onTranscript = fn
	d.mu.Unlock()
}

// OnError registers the stream error callback.
func (d *Deepgram) OnError(fn func(error)) {
	d.mu.Lock()
	d.onError = fn
	d.mu.Unlock()
}

// Connect opens the live transcription stream.
func (d *Deepgram) Connect(ctx context.Context) error {
	d.mu.Lock()
	if d.connected {
		d.mu.Unlock()
		return ErrAlreadyConnected
	}
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.mu.Unlock()

	wsURL, err := d.buildURL()
	if err != nil {
		return WrapError(providerDeepgram, err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.config.APIKey)

	dialer := websocket.Dialer{
		HandshakeTimeout: d.config.Timeout,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return WrapError(providerDeepgram,
				fmt.Errorf("dial failed with status %d: %w", resp.StatusCode, err))
		}
		return WrapError(providerDeepgram, fmt.Errorf("dial failed: %w", err))
	}

	readCtx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	d.conn = conn
	d.connected = true
	d.cancelCtx = cancel
	d.mu.Unlock()

	go d.readLoop(readCtx)
	go d.keepAliveLoop(readCtx)

	d.logger.Debug("connected to live transcription",
		"model", d.config.Model,
		"encoding", d.config.Encoding,
		"sample_rate", d.config.SampleRate,
	)

	return nil
}

// SendAudio pushes one audio frame to the recognition stream.
func (d *Deepgram) SendAudio(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected || d.conn == nil {
		return ErrNotConnected
	}

	if err := d.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return WrapError(providerDeepgram, fmt.Errorf("send audio: %w", err))
	}
	return nil
}

// Close flushes the stream and tears down the connection.
func (d *Deepgram) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.connected = false
	conn := d.conn
	cancel := d.cancelCtx
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if conn != nil {
		// Ask the server to finalize any pending transcript, then close.
		msg, _ := json.Marshal(controlMessage{Type: "CloseStream"})
		_ = conn.WriteMessage(websocket.TextMessage, msg)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	}
	return nil
}

// buildURL constructs the live transcription URL with query parameters.
func (d *Deepgram) buildURL() (string, error) {
	base := d.config.BaseURL
	if base == "" {
		base = deepgramBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("model", d.config.Model)
	q.Set("encoding", d.config.Encoding)
	q.Set("sample_rate", strconv.Itoa(d.config.SampleRate))
	q.Set("language", d.config.Language)
	q.Set("interim_results", strconv.FormatBool(d.config.InterimResults))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// readLoop parses server messages until the stream ends.
func (d *Deepgram) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := d.conn.ReadMessage()
		if err != nil {
			d.mu.Lock()
			closed := d.closed
			errFn := d.onError
			d.connected = false
			d.mu.Unlock()

			if !closed && errFn != nil {
				errFn(WrapError(providerDeepgram, err))
			}
			return
		}

		var msg liveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			d.logger.Debug("skipping unparseable message", "error", err)
			continue
		}

		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}

		alt := msg.Channel.Alternatives[0]

		d.mu.Lock()
		fn := d.onTranscript
		d.mu.Unlock()

		if fn != nil {
			fn(Result{
				Text:       alt.Transcript,
				IsFinal:    msg.IsFinal,
				Confidence: alt.Confidence,
			})
		}
	}
}

// keepAliveLoop sends periodic KeepAlive frames so the server does not
// drop the stream during caller silence.
func (d *Deepgram) keepAliveLoop(ctx context.Context) {
	if d.config.KeepAliveInterval <= 0 {
		return
	}

	ticker := time.NewTicker(d.config.KeepAliveInterval)
	defer ticker.Stop()

	msg, _ := json.Marshal(controlMessage{Type: "KeepAlive"})

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.mu.Lock()
			if !d.connected || d.conn == nil {
				d.mu.Unlock()
				return
			}
			err := d.conn.WriteMessage(websocket.TextMessage, msg)
			d.mu.Unlock()

			if err != nil {
				return
			}
		}
	}
}

// Verify Deepgram implements Provider at compile time.
var _ Provider = (*Deepgram)(nil)

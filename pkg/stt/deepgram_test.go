package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeDeepgram is a minimal live-transcription server for tests.
type fakeDeepgram struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	gotQuery map[string]string
	gotAuth  string
	audio    [][]byte
}

func (f *fakeDeepgram) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.gotAuth = r.Header.Get("Authorization")
	f.gotQuery = map[string]string{}
	for k := range r.URL.Query() {
		f.gotQuery[k] = r.URL.Query().Get(k)
	}
	f.mu.Unlock()

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.t.Errorf("upgrade failed: %v", err)
		return
	}

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.BinaryMessage {
			f.mu.Lock()
			f.audio = append(f.audio, data)
			f.mu.Unlock()
		}
	}
}

func (f *fakeDeepgram) send(t *testing.T, raw string) {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		t.Fatal("no client connected")
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("server write failed: %v", err)
	}
}

func newTestProvider(t *testing.T, opts ...Option) (*Deepgram, *fakeDeepgram) {
	fake := &fakeDeepgram{t: t}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	all := append([]Option{
		WithAPIKey("dg-test"),
		WithBaseURL(wsURL),
		WithKeepAlive(0),
	}, opts...)

	provider, err := NewDeepgram(all...)
	if err != nil {
		t.Fatalf("NewDeepgram failed: %v", err)
	}
	t.Cleanup(func() { _ = provider.Close() })

	return provider, fake
}

func TestNewDeepgram_RequiresAPIKey(t *testing.T) {
	if _, err := NewDeepgram(); err != ErrNoAPIKey {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestDeepgram_ConnectSendsQueryAndAuth(t *testing.T) {
	provider, fake := newTestProvider(t)

	if err := provider.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()

	if fake.gotAuth != "Token dg-test" {
		t.Errorf("Expected token auth header, got %q", fake.gotAuth)
	}
	if fake.gotQuery["model"] != "nova-2" {
		t.Errorf("Expected model nova-2, got %q", fake.gotQuery["model"])
	}
	if fake.gotQuery["encoding"] != "mulaw" {
		t.Errorf("Expected mulaw encoding, got %q", fake.gotQuery["encoding"])
	}
	if fake.gotQuery["sample_rate"] != "8000" {
		t.Errorf("Expected 8000 sample rate, got %q", fake.gotQuery["sample_rate"])
	}
}

func TestDeepgram_ConnectTwiceFails(t *testing.T) {
	provider, _ := newTestProvider(t)

	if err := provider.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := provider.Connect(context.Background()); err != ErrAlreadyConnected {
		t.Errorf("Expected ErrAlreadyConnected, got %v", err)
	}
}

func TestDeepgram_SendAudioBeforeConnect(t *testing.T) {
	provider, err := NewDeepgram(WithAPIKey("dg-test"))
	if err != nil {
		t.Fatalf("NewDeepgram failed: %v", err)
	}

	if err := provider.SendAudio([]byte{0xff}); err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestDeepgram_TranscriptEvents(t *testing.T) {
	provider, fake := newTestProvider(t)

	results := make(chan Result, 4)
	provider.OnTranscript(func(r Result) {
		results <- r
	})

	if err := provider.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fake.send(t, `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":"what are","confidence":0.5}]}}`)
	fake.send(t, `{"type":"Metadata","request_id":"abc"}`)
	fake.send(t, `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"what are your hours","confidence":0.98}]}}`)

	interim := waitResult(t, results)
	if interim.IsFinal || interim.Text != "what are" {
		t.Errorf("Expected interim 'what are', got %+v", interim)
	}

	final := waitResult(t, results)
	if !final.IsFinal || final.Text != "what are your hours" {
		t.Errorf("Expected final transcript, got %+v", final)
	}
	if final.Confidence < 0.9 {
		t.Errorf("Expected confidence >= 0.9, got %f", final.Confidence)
	}

	// Metadata messages must not surface as transcripts.
	select {
	case extra := <-results:
		t.Errorf("Unexpected extra result: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeepgram_AudioReachesServer(t *testing.T) {
	provider, fake := newTestProvider(t)

	if err := provider.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	frame := []byte{0x7f, 0x7f, 0xff, 0xff}
	if err := provider.SendAudio(frame); err != nil {
		t.Fatalf("SendAudio failed: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		fake.mu.Lock()
		n := len(fake.audio)
		fake.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Server never received audio")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDeepgram_ServerDisconnectSurfacesError(t *testing.T) {
	provider, fake := newTestProvider(t)

	errs := make(chan error, 1)
	provider.OnError(func(err error) {
		errs <- err
	})

	if err := provider.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	fake.mu.Lock()
	fake.conn.Close()
	fake.mu.Unlock()

	select {
	case err := <-errs:
		if err == nil {
			t.Error("Expected non-nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("Error callback never fired")
	}
}

func TestDeepgram_CloseIsIdempotent(t *testing.T) {
	provider, _ := newTestProvider(t)

	if err := provider.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for transcript")
		return Result{}
	}
}

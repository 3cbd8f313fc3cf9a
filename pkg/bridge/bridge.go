package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashikalishaik/ai-call-agent/internal/log"
	"github.com/ashikalishaik/ai-call-agent/pkg/audio"
	"github.com/ashikalishaik/ai-call-agent/pkg/notify"
	"github.com/ashikalishaik/ai-call-agent/pkg/responder"
	"github.com/ashikalishaik/ai-call-agent/pkg/store"
	"github.com/ashikalishaik/ai-call-agent/pkg/stt"
	"github.com/ashikalishaik/ai-call-agent/pkg/tts"
)

// transcriptBuffer bounds the queue of finalized transcripts waiting
// for the pipeline. A caller cannot realistically finalize utterances
// faster than replies drain, so overflow indicates a stalled pipeline
// and the transcript is dropped rather than blocking the audio path.
const transcriptBuffer = 16

var errMalformedFrame = errors.New("bridge: malformed stream frame")

// Config carries the providers a bridge relays between.
type Config struct {
	STT       stt.Provider
	TTS       tts.Provider
	Responder responder.Provider
	Store     store.Store
	Notifier  notify.Notifier
	Registry  *Registry
	Logger    *slog.Logger

	// FrameDelay paces outbound audio frames. Zero means real-time
	// pacing at the telephony frame duration.
	FrameDelay time.Duration
}

// Bridge relays one call: inbound caller audio to the transcriber,
// finalized transcripts through the responder and synthesizer, and the
// reply audio back to the caller. Interim speech while a reply is
// playing interrupts the playback.
type Bridge struct {
	cfg     Config
	session *Session
	leg     *telephonyLeg
	logger  *slog.Logger

	transcripts chan string

	playMu     sync.Mutex
	playCancel context.CancelFunc
}

// New creates a bridge for a registered session.
func New(session *Session, cfg Config) *Bridge {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Noop{}
	}
	if cfg.FrameDelay <= 0 {
		cfg.FrameDelay = audio.FrameDuration
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.L()
	}

	return &Bridge{
		cfg:         cfg,
		session:     session,
		logger:      logger.With("call_sid", session.CallSID()),
		transcripts: make(chan string, transcriptBuffer),
	}
}

// Run drives the call until the caller hangs up, the transcriber
// fails, or the context is cancelled. It always leaves the session in
// a terminal state, persists the summary, and deregisters the call.
func (b *Bridge) Run(ctx context.Context, conn MediaConn) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.leg = newTelephonyLeg(conn)

	// Unblock the frame read when the run context ends.
	go func() {
		<-runCtx.Done()
		conn.Close()
	}()

	readErr := b.readLoop(runCtx, cancel)

	cancel()
	if err := b.cfg.STT.Close(); err != nil {
		b.logger.Debug("transcriber close", "error", err)
	}

	b.finish()

	if readErr != nil {
		b.logger.Info("media stream ended", "reason", readErr)
	}
	return nil
}

// readLoop consumes inbound stream frames until stop or disconnect.
func (b *Bridge) readLoop(ctx context.Context, cancel context.CancelFunc) error {
	started := false

	for {
		frame, err := b.leg.readFrame()
		if err != nil {
			if errors.Is(err, errMalformedFrame) {
				b.logger.Warn("dropping malformed frame", "error", err)
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		switch frame.Event {
		case eventConnected:
			// Handshake preamble, nothing to do.

		case eventStart:
			if frame.Start == nil {
				b.logger.Warn("start frame missing body")
				continue
			}
			if err := b.handleStart(ctx, cancel, frame.Start); err != nil {
				return err
			}
			started = true

		case eventMedia:
			if !started {
				b.logger.Debug("media before start, dropping frame")
				continue
			}
			payload, err := decodeMediaPayload(frame.Media)
			if err != nil {
				b.logger.Warn("dropping undecodable media", "error", err)
				continue
			}
			if err := b.cfg.STT.SendAudio(payload); err != nil {
				b.logger.Warn("transcriber rejected audio", "error", err)
			}

		case eventMark:
			// Playback checkpoints echoed back by the provider.

		case eventStop:
			return nil

		default:
			b.logger.Debug("ignoring stream event", "event", frame.Event)
		}
	}
}

// handleStart activates the session, connects the transcriber, and
// starts the reply pipeline.
func (b *Bridge) handleStart(ctx context.Context, cancel context.CancelFunc, start *startFrame) error {
	if err := b.session.Activate(start.StreamSID); err != nil {
		return err
	}
	b.logger.Info("media stream started",
		"stream_sid", start.StreamSID,
		"encoding", start.MediaFormat.Encoding)

	b.cfg.STT.OnTranscript(func(res stt.Result) {
		if res.Text == "" {
			return
		}
		b.interruptPlayback()
		if !res.IsFinal {
			return
		}
		select {
		case b.transcripts <- res.Text:
		default:
			b.logger.Warn("transcript queue full, dropping", "text", res.Text)
		}
	})
	b.cfg.STT.OnError(func(err error) {
		b.logger.Error("transcriber stream failed", "error", err)
		cancel()
	})

	if err := b.cfg.STT.Connect(ctx); err != nil {
		return err
	}

	go b.pipelineLoop(ctx)
	return nil
}

// interruptPlayback cancels any in-flight reply and tells the provider
// to drop its buffered audio. Callers that start speaking over a reply
// hear it stop within one frame.
func (b *Bridge) interruptPlayback() {
	b.playMu.Lock()
	cancel := b.playCancel
	b.playCancel = nil
	b.playMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := b.leg.sendClear(b.session.StreamSID()); err != nil {
		b.logger.Warn("clear frame failed", "error", err)
	}
}

// finish moves the session to its terminal state, saves the summary,
// and sends the end-of-call notification. Persistence failures are
// retried once and then logged, never propagated to the caller path.
func (b *Bridge) finish() {
	status := b.session.Finish()
	summary := b.session.Summary()

	b.logger.Info("call ended",
		"status", string(status),
		"turns", len(summary.Turns))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := b.cfg.Store.Save(ctx, summary)
	if err != nil {
		b.logger.Warn("summary save failed, retrying", "error", err)
		err = b.cfg.Store.Save(ctx, summary)
	}
	if err != nil {
		b.logger.Error("summary lost", "error", err)
	} else if err := b.cfg.Notifier.NotifyCallEnded(ctx, summary); err != nil {
		b.logger.Warn("notification failed", "error", err)
	}

	if b.cfg.Registry != nil {
		b.cfg.Registry.Remove(b.session.CallSID())
	}
}

package bridge

import (
	"context"
	"time"

	"github.com/ashikalishaik/ai-call-agent/pkg/audio"
	"github.com/ashikalishaik/ai-call-agent/pkg/responder"
	"github.com/ashikalishaik/ai-call-agent/pkg/tts"
)

// pipelineLoop is the single consumer of finalized transcripts. One
// goroutine per call guarantees replies are generated and played in
// the order the caller spoke.
func (b *Bridge) pipelineLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-b.transcripts:
			b.handleTurn(ctx, text)
		}
	}
}

// handleTurn runs one turn of the conversation: record the transcript,
// generate a reply, synthesize it, and play it to the caller.
func (b *Bridge) handleTurn(ctx context.Context, text string) {
	if err := b.session.BeginTurn(text); err != nil {
		b.logger.Warn("turn rejected", "error", err)
		return
	}

	history := b.session.History()

	reply, err := b.cfg.Responder.Respond(ctx, text, history)
	if err != nil || reply == "" {
		if err != nil {
			b.logger.Warn("responder failed, using fallback", "error", err)
		}
		reply = responder.FallbackUtterance
	}

	speech := b.synthesize(ctx, reply)

	if err := b.session.CompleteTurn(reply, len(speech)); err != nil {
		b.logger.Warn("turn completion rejected", "error", err)
		return
	}
	b.logger.Info("turn completed", "transcript", text, "reply", reply)

	if len(speech) > 0 {
		b.play(ctx, speech)
	}
}

// synthesize converts the reply to caller audio, degrading to the
// fallback utterance when synthesis fails. A nil result means the turn
// proceeds silently with the text still recorded.
func (b *Bridge) synthesize(ctx context.Context, reply string) []byte {
	result, err := b.cfg.TTS.Synthesize(ctx, reply)
	if err == nil {
		return callerAudio(result)
	}
	b.logger.Warn("synthesis failed, trying fallback utterance", "error", err)

	result, err = b.cfg.TTS.Synthesize(ctx, responder.FallbackUtterance)
	if err != nil {
		b.logger.Error("fallback synthesis failed, turn plays silent", "error", err)
		return nil
	}
	return callerAudio(result)
}

// callerAudio converts a synthesis result to the telephony leg's
// format. μ-law results pass through untouched; linear PCM is
// resampled to 8 kHz and μ-law encoded.
func callerAudio(result *tts.AudioResult) []byte {
	if result.Format.Encoding == tts.EncodingMulaw {
		return result.Audio
	}

	pcm := result.Audio
	if result.Format.SampleRate > 0 && result.Format.SampleRate != audio.SampleRate {
		pcm = audio.ResampleBytes(pcm, result.Format.SampleRate, audio.SampleRate)
	}
	return audio.PCM16BytesToMulaw(pcm)
}

// play streams reply audio to the caller in paced telephony frames.
// Cancellation is checked between frames so barge-in takes effect
// before the next frame is written.
func (b *Bridge) play(ctx context.Context, speech []byte) {
	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.playMu.Lock()
	b.playCancel = cancel
	b.playMu.Unlock()

	defer func() {
		b.playMu.Lock()
		if b.playCancel != nil {
			b.playCancel = nil
		}
		b.playMu.Unlock()
	}()

	streamSID := b.session.StreamSID()

	for _, frame := range audio.Chunk(speech, audio.FrameSize) {
		if playCtx.Err() != nil {
			return
		}
		if err := b.leg.sendMedia(streamSID, frame); err != nil {
			b.logger.Warn("media write failed", "error", err)
			return
		}
		select {
		case <-playCtx.Done():
			return
		case <-time.After(b.cfg.FrameDelay):
		}
	}

	if err := b.leg.sendMark(streamSID, "reply-complete"); err != nil {
		b.logger.Debug("mark write failed", "error", err)
	}
}

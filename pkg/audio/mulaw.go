// Package audio provides telephony audio codec helpers.
//
// Phone media arrives as G.711 μ-law at 8kHz. The speech services used by
// the call agent accept and emit the same encoding, so most calls are a
// μ-law passthrough; the PCM16 conversions exist for providers that only
// speak linear audio.
package audio

import "time"

// Telephony frame constants for 8kHz μ-law media streams.
const (
	// SampleRate is the telephony sample rate in Hz.
	SampleRate = 8000

	// FrameSize is the μ-law byte count of one 20ms frame at 8kHz.
	FrameSize = 160

	// FrameDuration is the playback duration of one frame.
	FrameDuration = 20 * time.Millisecond
)

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// mulawSegments maps the top bits of a biased sample to a segment number.
var mulawSegments = [8]int16{0xFF, 0x1FF, 0x3FF, 0x7FF, 0xFFF, 0x1FFF, 0x3FFF, 0x7FFF}

// EncodeMulawSample converts one PCM16 sample to a μ-law byte.
func EncodeMulawSample(sample int16) byte {
	sign := byte(0)
	if sample < 0 {
		if sample == -32768 {
			sample = -32767
		}
		sample = -sample
		sign = 0x80
	}
	if sample > mulawClip {
		sample = mulawClip
	}
	sample += mulawBias

	segment := 7
	for i, bound := range mulawSegments {
		if sample <= bound {
			segment = i
			break
		}
	}

	mantissa := byte(sample>>(uint(segment)+3)) & 0x0F
	return ^(sign | byte(segment)<<4 | mantissa)
}

// DecodeMulawSample converts one μ-law byte to a PCM16 sample.
func DecodeMulawSample(b byte) int16 {
	b = ^b
	sign := b & 0x80
	segment := (b >> 4) & 0x07
	mantissa := b & 0x0F

	sample := (int16(mantissa)<<3 + mulawBias) << segment
	sample -= mulawBias

	if sign != 0 {
		return -sample
	}
	return sample
}

// EncodeMulaw converts PCM16 samples to μ-law bytes.
func EncodeMulaw(samples []int16) []byte {
	out := make([]byte, len(samples))
	for i, s := range samples {
		out[i] = EncodeMulawSample(s)
	}
	return out
}

// DecodeMulaw converts μ-law bytes to PCM16 samples.
func DecodeMulaw(data []byte) []int16 {
	out := make([]int16, len(data))
	for i, b := range data {
		out[i] = DecodeMulawSample(b)
	}
	return out
}

// MulawToPCM16Bytes converts μ-law bytes to PCM16 little-endian bytes.
func MulawToPCM16Bytes(data []byte) []byte {
	return SamplesToBytes(DecodeMulaw(data))
}

// PCM16BytesToMulaw converts PCM16 little-endian bytes to μ-law bytes.
func PCM16BytesToMulaw(data []byte) []byte {
	return EncodeMulaw(BytesToSamples(data))
}

// Chunk splits audio into frameSize-byte chunks for paced playback.
// The final chunk may be shorter than frameSize.
func Chunk(data []byte, frameSize int) [][]byte {
	if frameSize <= 0 || len(data) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+frameSize-1)/frameSize)
	for i := 0; i < len(data); i += frameSize {
		end := i + frameSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end])
	}
	return chunks
}

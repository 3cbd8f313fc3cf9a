package audio

import (
	"testing"
)

func TestResample_SameRate(t *testing.T) {
	samples := []int16{100, 200, 300, 400, 500}
	result := Resample(samples, 8000, 8000)

	if len(result) != len(samples) {
		t.Errorf("Expected %d samples, got %d", len(samples), len(result))
	}

	for i, s := range samples {
		if result[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, result[i])
		}
	}
}

func TestResample_Downsample(t *testing.T) {
	// 24kHz synthesis -> 8kHz telephony (3:1 ratio)
	samples := make([]int16, 480) // 20ms at 24kHz
	for i := range samples {
		samples[i] = int16(i)
	}

	result := Resample(samples, 24000, 8000)

	expectedLen := 160
	if len(result) != expectedLen {
		t.Errorf("Expected %d samples, got %d", expectedLen, len(result))
	}
}

func TestResample_Upsample(t *testing.T) {
	// 8kHz telephony -> 16kHz (1:2 ratio)
	samples := make([]int16, 160) // 20ms at 8kHz
	for i := range samples {
		samples[i] = int16(i * 100)
	}

	result := Resample(samples, 8000, 16000)

	expectedLen := 320
	if len(result) != expectedLen {
		t.Errorf("Expected %d samples, got %d", expectedLen, len(result))
	}
}

func TestResample_Empty(t *testing.T) {
	result := Resample(nil, 8000, 16000)
	if len(result) != 0 {
		t.Errorf("Expected empty result for nil input")
	}
}

func TestBytesToSamples(t *testing.T) {
	data := []byte{0x02, 0x01, 0x04, 0x03}
	samples := BytesToSamples(data)

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}

	if samples[0] != 0x0102 {
		t.Errorf("Sample 0: expected 0x0102, got 0x%04x", samples[0])
	}

	if samples[1] != 0x0304 {
		t.Errorf("Sample 1: expected 0x0304, got 0x%04x", samples[1])
	}
}

func TestSamplesToBytes_RoundTrip(t *testing.T) {
	samples := []int16{0, 32767, -32768, 12345, -12345}
	data := SamplesToBytes(samples)
	back := BytesToSamples(data)

	if len(back) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(back))
	}

	for i, s := range samples {
		if back[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, back[i])
		}
	}
}

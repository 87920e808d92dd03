package wav

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncode_HeaderRoundTrip(t *testing.T) {
	frames := 100
	left := make([]float64, frames)
	right := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left[i] = math.Sin(2 * math.Pi * float64(i) / 50)
		right[i] = -left[i]
	}

	data, err := Encode([][]float64{left, right}, 44100)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	wantSize := HeaderSize + frames*2*2
	if len(data) != wantSize {
		t.Errorf("Expected %d bytes, got %d", wantSize, len(data))
	}

	h, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if h.SampleRate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", h.SampleRate)
	}
	if h.Channels != 2 {
		t.Errorf("Expected 2 channels, got %d", h.Channels)
	}
	if h.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", h.BitsPerSample)
	}
	if h.ByteRate != 44100*2*2 {
		t.Errorf("Expected byte rate %d, got %d", 44100*2*2, h.ByteRate)
	}
	if h.BlockAlign != 4 {
		t.Errorf("Expected block align 4, got %d", h.BlockAlign)
	}
	if h.Frames() != frames {
		t.Errorf("Expected %d frames, got %d", frames, h.Frames())
	}
	if h.DataOffset != HeaderSize {
		t.Errorf("Expected data offset %d, got %d", HeaderSize, h.DataOffset)
	}
}

func TestEncode_QuantizationWithinOneLSB(t *testing.T) {
	samples := []float64{0, 0.5, -0.5, 1.0, -1.0, 0.25, -0.75}

	data, err := Encode([][]float64{samples}, 48000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	for i, s := range samples {
		got := int16(binary.LittleEndian.Uint16(data[HeaderSize+i*2:]))
		var want int16
		if s < 0 {
			want = int16(math.Round(s * 32768))
		} else {
			want = int16(math.Round(s * 32767))
		}
		diff := int(got) - int(want)
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d (%f): got %d, want %d (±1)", i, s, got, want)
		}
	}
}

func TestEncode_ExtremesDoNotOverflow(t *testing.T) {
	data, err := Encode([][]float64{{1.0, -1.0, 2.0, -2.0}}, 8000)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	values := make([]int16, 4)
	for i := range values {
		values[i] = int16(binary.LittleEndian.Uint16(data[HeaderSize+i*2:]))
	}

	if values[0] != 32767 {
		t.Errorf("Expected +1.0 to encode as 32767, got %d", values[0])
	}
	if values[1] != -32768 {
		t.Errorf("Expected -1.0 to encode as -32768, got %d", values[1])
	}
	// Out-of-range input is clamped, never wrapped.
	if values[2] != 32767 {
		t.Errorf("Expected 2.0 to clamp to 32767, got %d", values[2])
	}
	if values[3] != -32768 {
		t.Errorf("Expected -2.0 to clamp to -32768, got %d", values[3])
	}
}

func TestEncode_IsDeterministic(t *testing.T) {
	ch := [][]float64{{0.1, 0.2, 0.3}, {-0.1, -0.2, -0.3}}

	a, err := Encode(ch, 22050)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, err := Encode(ch, 22050)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if len(a) != len(b) {
		t.Fatalf("Encodings differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Encodings differ at byte %d", i)
		}
	}
}

func TestEncode_InvalidInput(t *testing.T) {
	if _, err := Encode(nil, 44100); err == nil {
		t.Error("Expected error for zero channels")
	}
	if _, err := Encode([][]float64{{0}}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := Encode([][]float64{{0, 0}, {0}}, 44100); err == nil {
		t.Error("Expected error for mismatched channel lengths")
	}
}

// streamedWAV builds the header shape ffmpeg's wav muxer emits on a
// non-seekable pipe: placeholder RIFF and data sizes, optionally with a
// LIST chunk between fmt and data.
func streamedWAV(t *testing.T, frames, channels, rate int, listChunk bool) []byte {
	t.Helper()

	var buf []byte
	put32 := func(v uint32) {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	put16 := func(v uint16) {
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}

	buf = append(buf, "RIFF"...)
	put32(0xFFFFFFFF)
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	put32(16)
	put16(1)
	put16(uint16(channels))
	put32(uint32(rate))
	put32(uint32(rate * channels * 2))
	put16(uint16(channels * 2))
	put16(16)

	if listChunk {
		info := []byte("INFOISFT\x0e\x00\x00\x00Lavf61.1.100\x00\x00")
		buf = append(buf, "LIST"...)
		put32(uint32(len(info)))
		buf = append(buf, info...)
	}

	buf = append(buf, "data"...)
	put32(0xFFFFFFFF)
	for i := 0; i < frames*channels; i++ {
		put16(uint16(int16(i)))
	}
	return buf
}

func TestParseHeader_StreamedPlaceholderSizes(t *testing.T) {
	buf := streamedWAV(t, 50, 2, 48000, false)

	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader failed on streamed header: %v", err)
	}
	if h.SampleRate != 48000 || h.Channels != 2 {
		t.Errorf("Expected 2ch@48000, got %dch@%d", h.Channels, h.SampleRate)
	}
	if h.Frames() != 50 {
		t.Errorf("Expected 50 frames, got %d", h.Frames())
	}
}

func TestParseHeader_SkipsListChunk(t *testing.T) {
	buf := streamedWAV(t, 10, 1, 44100, true)

	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader failed with LIST chunk present: %v", err)
	}
	if h.Frames() != 10 {
		t.Errorf("Expected 10 frames, got %d", h.Frames())
	}
	if h.DataOffset == HeaderSize {
		t.Error("Expected data offset beyond the canonical header")
	}
}

func TestParseHeader_DropsPartialTrailingFrame(t *testing.T) {
	buf := streamedWAV(t, 20, 2, 44100, false)
	buf = append(buf, 0x7F)

	h, err := ParseHeader(buf)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if h.Frames() != 20 {
		t.Errorf("Expected partial frame dropped, got %d frames", h.Frames())
	}
	if h.DataBytes%h.BlockAlign != 0 {
		t.Errorf("Data size %d not frame aligned", h.DataBytes)
	}
}

func TestParseHeader_RejectsGarbage(t *testing.T) {
	if _, err := ParseHeader([]byte("short")); err == nil {
		t.Error("Expected error for truncated input")
	}

	junk := make([]byte, HeaderSize)
	copy(junk, "JUNKdata")
	if _, err := ParseHeader(junk); err == nil {
		t.Error("Expected error for non-RIFF input")
	}
}

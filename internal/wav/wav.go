// Package wav serializes raw sample buffers into canonical PCM WAVE
// containers. Encoding is a pure function of its inputs so the exact
// bytes are reproducible.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// HeaderSize is the fixed size of the canonical RIFF/WAVE header.
	HeaderSize = 44

	bytesPerSample = 2
	bitsPerSample  = 16
	pcmFormatTag   = 1
)

// Header describes the fmt and data chunks of a PCM WAV file.
// DataOffset is where the sample bytes start; it is HeaderSize for the
// canonical layout Encode produces but larger when extra chunks precede
// data.
type Header struct {
	Channels      int
	SampleRate    int
	ByteRate      int
	BlockAlign    int
	BitsPerSample int
	DataOffset    int
	DataBytes     int
}

// Frames returns the number of sample frames described by the header.
func (h Header) Frames() int {
	if h.BlockAlign == 0 {
		return 0
	}
	return h.DataBytes / h.BlockAlign
}

// Encode serializes planar float samples into a complete PCM WAV file.
// Each element of channels holds one channel's samples; all channels must
// have equal length. Samples are clamped to [-1, 1] and quantized to
// signed 16-bit little-endian, channel-interleaved.
func Encode(channels [][]float64, sampleRate int) ([]byte, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels to encode")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	frames := len(channels[0])
	for i, ch := range channels[1:] {
		if len(ch) != frames {
			return nil, fmt.Errorf("channel %d length %d does not match channel 0 length %d", i+1, len(ch), frames)
		}
	}

	numChannels := len(channels)
	dataBytes := frames * numChannels * bytesPerSample

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+dataBytes))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(dataBytes+36))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(pcmFormatTag))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataBytes))

	sample := make([]byte, bytesPerSample)
	for n := 0; n < frames; n++ {
		for c := 0; c < numChannels; c++ {
			binary.LittleEndian.PutUint16(sample, uint16(quantize(channels[c][n])))
			buf.Write(sample)
		}
	}

	return buf.Bytes(), nil
}

// quantize converts one float sample to signed 16-bit PCM. Negative and
// positive halves use different scale factors so that -1.0 maps to -32768
// and +1.0 maps to +32767 without overflow.
func quantize(s float64) int16 {
	s = Clamp(s)
	if s < 0 {
		return int16(math.Round(s * 32768))
	}
	return int16(math.Round(s * 32767))
}

// Clamp limits a sample to the [-1, 1] range.
func Clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// streamingSize marks a chunk whose size was not known when the header
// was written. ffmpeg's wav muxer emits it for the RIFF and data chunks
// when writing to a pipe, since it cannot seek back to patch them.
const streamingSize = 0xFFFFFFFF

// ParseHeader reads the RIFF/WAVE header of an encoded file. It accepts
// the canonical layout Encode produces as well as streamed files where
// the RIFF and data sizes are placeholders and extra chunks (LIST, fact)
// sit between fmt and data.
func ParseHeader(data []byte) (Header, error) {
	var h Header

	if len(data) < HeaderSize {
		return h, fmt.Errorf("file too short for WAV header: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return h, fmt.Errorf("not a RIFF/WAVE file")
	}

	sawFmt := false
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int64(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return h, fmt.Errorf("truncated fmt chunk")
			}
			if binary.LittleEndian.Uint16(data[body:body+2]) != pcmFormatTag {
				return h, fmt.Errorf("not PCM format")
			}
			h.Channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			h.SampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			h.ByteRate = int(binary.LittleEndian.Uint32(data[body+8 : body+12]))
			h.BlockAlign = int(binary.LittleEndian.Uint16(data[body+12 : body+14]))
			h.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			sawFmt = true

		case "data":
			if !sawFmt {
				return h, fmt.Errorf("data chunk before fmt chunk")
			}
			h.DataOffset = body
			h.DataBytes = int(size)
			// A placeholder or overlong size means the writer could not
			// seek back to patch it: the samples run to the end, minus
			// any partial frame a cut-off stream left behind.
			if size == streamingSize || size == 0 || size > int64(len(data)-body) {
				h.DataBytes = len(data) - body
				if h.BlockAlign > 0 {
					h.DataBytes -= h.DataBytes % h.BlockAlign
				}
			}
			return h, nil
		}

		if size == streamingSize {
			return h, fmt.Errorf("streamed %s chunk has no length", id)
		}
		// Chunks are word-aligned: odd sizes carry a pad byte.
		pos = body + int(size) + int(size%2)
	}

	return h, fmt.Errorf("missing data chunk")
}

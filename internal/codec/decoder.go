// Package codec turns a track's accumulated capture bytes back into raw
// per-channel sample buffers for mixing.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDecode indicates that captured bytes are not a valid encoding of the
// configured format (corrupt or partial chunk, or an unknown format).
var ErrDecode = errors.New("decode error")

// Decoded holds one track's raw samples in planar layout along with the
// sample rate the bytes actually carry. That native rate may differ from
// the rate the capture stream was configured with.
type Decoded struct {
	Channels   [][]float64
	SampleRate int
}

// Frames returns the per-channel sample count.
func (d *Decoded) Frames() int {
	if len(d.Channels) == 0 {
		return 0
	}
	return len(d.Channels[0])
}

// Decoder converts one track's concatenated capture payload into samples.
type Decoder interface {
	Decode(data []byte) (*Decoded, error)
}

// ForFormat selects a decoder for a recording format identifier. Raw PCM
// formats carry no header, so the configured rate and channel count are
// trusted; container formats report their own.
func ForFormat(format string, sampleRate, channels int) (Decoder, error) {
	switch strings.ToLower(format) {
	case "pcm", "pcm_s16le", "raw":
		return &PCMDecoder{SampleRate: sampleRate, Channels: channels}, nil
	case "wav":
		return &WAVDecoder{}, nil
	default:
		return nil, fmt.Errorf("%w: no decoder for format %q", ErrDecode, format)
	}
}

package codec

import (
	"encoding/binary"
	"fmt"
)

// PCMDecoder decodes headerless signed 16-bit little-endian PCM. The
// stream format is whatever the capture stream was opened with.
type PCMDecoder struct {
	SampleRate int
	Channels   int
}

func (d *PCMDecoder) Decode(data []byte) (*Decoded, error) {
	if d.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: pcm decoder needs a sample rate, got %d", ErrDecode, d.SampleRate)
	}
	if d.Channels <= 0 {
		return nil, fmt.Errorf("%w: pcm decoder needs a channel count, got %d", ErrDecode, d.Channels)
	}

	frameSize := d.Channels * 2
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("%w: payload length %d is not aligned to %d-byte frames", ErrDecode, len(data), frameSize)
	}

	frames := len(data) / frameSize
	channels := make([][]float64, d.Channels)
	for c := range channels {
		channels[c] = make([]float64, frames)
	}

	// De-interleave into planar buffers.
	for n := 0; n < frames; n++ {
		base := n * frameSize
		for c := 0; c < d.Channels; c++ {
			s := int16(binary.LittleEndian.Uint16(data[base+c*2:]))
			channels[c][n] = float64(s) / 32768
		}
	}

	return &Decoded{Channels: channels, SampleRate: d.SampleRate}, nil
}

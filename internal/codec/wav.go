package codec

import (
	"fmt"

	"github.com/audiolibrelab/trackdeck/internal/wav"
)

// WAVDecoder decodes canonical 16-bit PCM WAV payloads. The sample rate
// and channel count come from the container header, which is the rate the
// capture backend actually produced.
type WAVDecoder struct{}

func (d *WAVDecoder) Decode(data []byte) (*Decoded, error) {
	h, err := wav.ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if h.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: only 16-bit PCM is supported, got %d bits", ErrDecode, h.BitsPerSample)
	}

	pcm := &PCMDecoder{SampleRate: h.SampleRate, Channels: h.Channels}
	decoded, err := pcm.Decode(data[h.DataOffset : h.DataOffset+h.DataBytes])
	if err != nil {
		return nil, err
	}
	decoded.SampleRate = h.SampleRate
	return decoded, nil
}

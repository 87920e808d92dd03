// Package mix bounces the captured tracks of one session into a single
// interleaved stereo signal.
package mix

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/trackdeck/internal/codec"
	"github.com/audiolibrelab/trackdeck/internal/wav"
)

// ErrNoAudioCaptured means every track of the session was empty at stop.
var ErrNoAudioCaptured = errors.New("no audio captured")

// OutputChannels is the fixed stereo bed all sessions bounce onto.
const OutputChannels = 2

// Signal is the mixed result: planar stereo samples clamped to [-1, 1].
// SampleRate is the rate the decoded tracks actually carried, which the
// encoder must honor to avoid speed and pitch distortion.
type Signal struct {
	Channels   [][]float64
	SampleRate int
}

// Frames returns the per-channel sample count.
func (s *Signal) Frames() int {
	if len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

type Mixer struct {
	decoder codec.Decoder
	debug   bool
}

func New(decoder codec.Decoder, debug bool) *Mixer {
	return &Mixer{decoder: decoder, debug: debug}
}

// Mix decodes each track payload and sums them onto a stereo bed whose
// length is the longest track. Shorter tracks contribute silence past
// their end. Tracks with fewer channels than the bed wrap by channel
// index modulo their own channel count. The sum is hard-clamped so the
// encoder can never overflow.
func (m *Mixer) Mix(payloads [][]byte) (*Signal, error) {
	var decoded []*codec.Decoded
	for i, payload := range payloads {
		if len(payload) == 0 {
			continue
		}
		d, err := m.decoder.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i+1, err)
		}
		if m.debug {
			slog.Debug("Track decoded", "track", i+1, "frames", d.Frames(), "channels", len(d.Channels), "sample_rate", d.SampleRate)
		}
		decoded = append(decoded, d)
	}

	if len(decoded) == 0 {
		return nil, ErrNoAudioCaptured
	}

	sampleRate := decoded[0].SampleRate
	targetFrames := 0
	for _, d := range decoded {
		if d.SampleRate != sampleRate {
			slog.Warn("Track sample rate differs from session rate", "track_rate", d.SampleRate, "session_rate", sampleRate)
		}
		if d.Frames() > targetFrames {
			targetFrames = d.Frames()
		}
	}

	out := make([][]float64, OutputChannels)
	for c := range out {
		out[c] = make([]float64, targetFrames)
	}

	for _, d := range decoded {
		trackChannels := len(d.Channels)
		if trackChannels == 0 {
			continue
		}
		for c := 0; c < OutputChannels; c++ {
			src := d.Channels[c%trackChannels]
			for n := range src {
				out[c][n] += src[n]
			}
		}
	}

	for c := range out {
		for n := range out[c] {
			out[c][n] = wav.Clamp(out[c][n])
		}
	}

	if m.debug {
		slog.Debug("Mix complete", "tracks", len(decoded), "frames", targetFrames, "sample_rate", sampleRate)
	}

	return &Signal{Channels: out, SampleRate: sampleRate}, nil
}

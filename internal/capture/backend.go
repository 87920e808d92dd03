// Package capture owns the per-track capture streams of a recording
// session. A backend binds input devices and delivers timestamped binary
// chunks; the driver fans commands out across all open streams.
package capture

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors for capture failures.
var (
	// ErrUnsupportedFormat means the configured recording format is not
	// supported by the capture backend. Checked before any stream opens.
	ErrUnsupportedFormat = errors.New("unsupported recording format")

	// ErrDeviceUnavailable means the requested device cannot be bound.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrCapture covers mid-session stream faults.
	ErrCapture = errors.New("capture error")
)

// Device identifies one capture source.
type Device struct {
	ID    string
	Label string
}

// ChunkSink receives captured binary chunks in arrival order. Callbacks
// must be cheap: buffer append only, no blocking work.
type ChunkSink func(chunk []byte)

// OpenRequest describes the stream a track wants.
type OpenRequest struct {
	DeviceID   string // empty means default device
	SampleRate int
	Channels   int
	Format     string
	Bitrate    int
}

// Stream is one live capture stream bound to one device.
type Stream interface {
	Start() error
	Pause() error
	Resume() error

	// Stop resolves only after the backend has flushed its final chunk
	// for this stream.
	Stop(ctx context.Context) error
}

// Backend is the platform capture capability.
type Backend interface {
	// Devices lists available capture sources.
	Devices() ([]Device, error)

	// SupportsFormat reports whether the backend can produce the given
	// recording format.
	SupportsFormat(format string) bool

	// Open binds a stream to a device without starting capture. Chunks
	// are pushed to sink once the stream is started.
	Open(ctx context.Context, req OpenRequest, sink ChunkSink) (Stream, error)
}

// BackendType selects a capture backend implementation.
type BackendType string

const (
	BackendTypeFFmpeg BackendType = "ffmpeg"
	BackendTypeMemory BackendType = "memory"
	BackendTypeAuto   BackendType = "auto"
)

// NewBackend creates a backend for the configured type. "auto" resolves
// to the ffmpeg backend, the only hardware-facing one available.
func NewBackend(backendType string) (Backend, error) {
	switch BackendType(strings.ToLower(backendType)) {
	case BackendTypeFFmpeg, BackendTypeAuto, "":
		return NewFFmpegBackend(), nil
	case BackendTypeMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, errors.New("unknown capture backend: " + backendType)
	}
}

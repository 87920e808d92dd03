package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryBackend is an in-process capture backend. Chunks are pushed into
// its streams programmatically, which makes session behavior testable
// without audio hardware.
type MemoryBackend struct {
	DeviceList []Device

	mu      sync.Mutex
	streams []*MemoryStream
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		DeviceList: []Device{{ID: "", Label: "Default Input"}},
	}
}

func (b *MemoryBackend) Devices() ([]Device, error) {
	return b.DeviceList, nil
}

func (b *MemoryBackend) SupportsFormat(format string) bool {
	switch strings.ToLower(format) {
	case "wav", "pcm", "pcm_s16le", "raw":
		return true
	}
	return false
}

func (b *MemoryBackend) Open(ctx context.Context, req OpenRequest, sink ChunkSink) (Stream, error) {
	if req.DeviceID != "" {
		found := false
		for _, d := range b.DeviceList {
			if d.ID == req.DeviceID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrDeviceUnavailable, req.DeviceID)
		}
	}

	s := &MemoryStream{sink: sink, device: req.DeviceID}
	b.mu.Lock()
	b.streams = append(b.streams, s)
	b.mu.Unlock()
	return s, nil
}

// Opened returns the nth stream opened on this backend, in open order.
func (b *MemoryBackend) Opened(n int) *MemoryStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= len(b.streams) {
		return nil
	}
	return b.streams[n]
}

// OpenedCount reports how many streams have been opened.
func (b *MemoryBackend) OpenedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.streams)
}

// MemoryStream delivers pushed chunks to its sink while running. Chunks
// pushed while paused or before start are dropped, matching a hardware
// stream that simply is not producing.
type MemoryStream struct {
	device string
	sink   ChunkSink

	mu      sync.Mutex
	started bool
	paused  bool
	stopped bool
	final   []byte

	FailStop bool // inject a stop failure
}

// Push delivers one captured chunk.
func (s *MemoryStream) Push(chunk []byte) {
	s.mu.Lock()
	deliver := s.started && !s.paused && !s.stopped
	s.mu.Unlock()
	if deliver {
		s.sink(chunk)
	}
}

// SetFinal stages a trailing chunk that the backend flushes during Stop.
func (s *MemoryStream) SetFinal(chunk []byte) {
	s.mu.Lock()
	s.final = chunk
	s.mu.Unlock()
}

// Paused reports the pause flag, for tests.
func (s *MemoryStream) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *MemoryStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("%w: stream already stopped", ErrCapture)
	}
	s.started = true
	return nil
}

func (s *MemoryStream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return fmt.Errorf("%w: cannot pause, stream not running", ErrCapture)
	}
	s.paused = true
	return nil
}

func (s *MemoryStream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return fmt.Errorf("%w: cannot resume, stream not running", ErrCapture)
	}
	s.paused = false
	return nil
}

func (s *MemoryStream) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	final := s.final
	s.final = nil
	fail := s.FailStop
	sink := s.sink
	s.mu.Unlock()

	if fail {
		return fmt.Errorf("%w: injected stop failure", ErrCapture)
	}

	// Flush the trailing chunk before resolving, like a real backend
	// draining its encoder.
	if len(final) > 0 {
		sink(final)
	}
	return nil
}

package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Driver owns the N concurrent capture streams of one recording session.
// Streams are opened one per track and controlled together; the joined
// stop wait guarantees every track's final chunk has landed before the
// session's buffers are considered complete.
type Driver struct {
	backend Backend

	mu      sync.Mutex
	streams []Stream
}

func NewDriver(backend Backend) *Driver {
	return &Driver{backend: backend}
}

// SupportsFormat is the pre-flight codec check. It must run before any
// stream is opened so a rejection leaves no session state behind.
func (d *Driver) SupportsFormat(format string) bool {
	return d.backend.SupportsFormat(format)
}

// Devices lists the backend's capture sources.
func (d *Driver) Devices() ([]Device, error) {
	return d.backend.Devices()
}

// Open binds one track's stream. Zero-length chunks are dropped here so
// track buffers only ever hold real payload.
func (d *Driver) Open(ctx context.Context, req OpenRequest, sink ChunkSink) (Stream, error) {
	filtered := func(chunk []byte) {
		if len(chunk) == 0 {
			return
		}
		sink(chunk)
	}

	stream, err := d.backend.Open(ctx, req, filtered)
	if err != nil {
		return nil, fmt.Errorf("open stream for device %q: %w", req.DeviceID, err)
	}

	d.mu.Lock()
	d.streams = append(d.streams, stream)
	d.mu.Unlock()

	slog.Debug("Capture stream opened", "device", req.DeviceID, "sample_rate", req.SampleRate, "format", req.Format)
	return stream, nil
}

// StartAll begins capture on every open stream.
func (d *Driver) StartAll() error {
	for i, s := range d.snapshot() {
		if err := s.Start(); err != nil {
			return fmt.Errorf("start stream %d: %w", i+1, err)
		}
	}
	return nil
}

// PauseAll pauses every open stream.
func (d *Driver) PauseAll() error {
	for i, s := range d.snapshot() {
		if err := s.Pause(); err != nil {
			return fmt.Errorf("pause stream %d: %w", i+1, err)
		}
	}
	return nil
}

// ResumeAll resumes every paused stream.
func (d *Driver) ResumeAll() error {
	for i, s := range d.snapshot() {
		if err := s.Resume(); err != nil {
			return fmt.Errorf("resume stream %d: %w", i+1, err)
		}
	}
	return nil
}

// StopAll stops every stream and waits for all of them to flush. One
// stream failing does not cut the wait short: trailing audio from healthy
// tracks would be lost otherwise.
func (d *Driver) StopAll(ctx context.Context) error {
	streams := d.snapshot()

	var g errgroup.Group
	for i, s := range streams {
		i, s := i, s
		g.Go(func() error {
			if err := s.Stop(ctx); err != nil {
				slog.Warn("Capture stream stop failed", "stream", i+1, "error", err)
				return fmt.Errorf("stop stream %d: %w", i+1, err)
			}
			return nil
		})
	}

	err := g.Wait()

	d.mu.Lock()
	d.streams = nil
	d.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	return nil
}

func (d *Driver) snapshot() []Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Stream, len(d.streams))
	copy(out, d.streams)
	return out
}

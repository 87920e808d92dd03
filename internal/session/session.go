// Package session owns the recording lifecycle: the Idle/Recording/
// Paused state machine, the live session value and its per-track chunk
// buffers.
package session

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TrackCapture is one track's capture state. Chunks are append-only
// while the session records and immutable once the session is back in
// Idle. A track is owned exclusively by its session.
type TrackCapture struct {
	Index       int    // 1-based track index
	SourceID    string // empty means default device
	SourceLabel string
	SampleRate  int
	Channels    int

	mu     sync.Mutex
	chunks [][]byte
}

// Append adds one chunk in arrival order. The chunk is copied so later
// backend buffer reuse cannot corrupt captured audio.
func (t *TrackCapture) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)

	t.mu.Lock()
	t.chunks = append(t.chunks, buf)
	t.mu.Unlock()
}

// Bytes concatenates all chunks into the track's capture payload.
func (t *TrackCapture) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	var buf bytes.Buffer
	for _, c := range t.chunks {
		buf.Write(c)
	}
	return buf.Bytes()
}

// Empty reports whether the track captured nothing.
func (t *TrackCapture) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chunks) == 0
}

// ChunkCount returns the number of buffered chunks.
func (t *TrackCapture) ChunkCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.chunks)
}

// Session is the live, singular in-progress capture. At most one exists
// process-wide; the controller owns it.
type Session struct {
	ID        string
	StartedAt time.Time
	Tracks    []*TrackCapture
}

func newSession(tracks []*TrackCapture) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Tracks:    tracks,
	}
}

package session

import (
	"errors"
	"testing"
)

func TestNext_LegalTransitions(t *testing.T) {
	tests := []struct {
		from State
		cmd  Command
		want State
	}{
		{StateIdle, CommandStart, StateRecording},
		{StateRecording, CommandPause, StatePaused},
		{StatePaused, CommandResume, StateRecording},
		{StateRecording, CommandStop, StateIdle},
		{StatePaused, CommandStop, StateIdle},
	}

	for _, tt := range tests {
		got, err := Next(tt.from, tt.cmd)
		if err != nil {
			t.Errorf("%s from %s: unexpected error: %v", tt.cmd, tt.from, err)
		}
		if got != tt.want {
			t.Errorf("%s from %s: got %s, want %s", tt.cmd, tt.from, got, tt.want)
		}
	}
}

func TestNext_RejectsSkippedStates(t *testing.T) {
	tests := []struct {
		from State
		cmd  Command
	}{
		{StateIdle, CommandStop},
		{StateIdle, CommandPause},
		{StateIdle, CommandResume},
		{StateRecording, CommandStart},
		{StateRecording, CommandResume},
		{StatePaused, CommandStart},
		{StatePaused, CommandPause},
	}

	for _, tt := range tests {
		got, err := Next(tt.from, tt.cmd)
		if err == nil {
			t.Errorf("%s from %s: expected rejection", tt.cmd, tt.from)
		}
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s from %s: expected ErrInvalidTransition, got %v", tt.cmd, tt.from, err)
		}
		if got != tt.from {
			t.Errorf("%s from %s: state must not move on rejection, got %s", tt.cmd, tt.from, got)
		}
	}
}

func TestTrackCapture_AppendOrderAndCopy(t *testing.T) {
	track := &TrackCapture{Index: 1}

	chunk := []byte{1, 2}
	track.Append(chunk)
	chunk[0] = 99 // caller reuses its buffer
	track.Append([]byte{3, 4})
	track.Append(nil)

	if track.ChunkCount() != 2 {
		t.Fatalf("Expected 2 chunks, got %d", track.ChunkCount())
	}

	got := track.Bytes()
	want := []byte{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestTrackCapture_Empty(t *testing.T) {
	track := &TrackCapture{Index: 1}
	if !track.Empty() {
		t.Error("New track should be empty")
	}
	track.Append([]byte{0})
	if track.Empty() {
		t.Error("Track with a chunk should not be empty")
	}
}

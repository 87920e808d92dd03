package session

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/audiolibrelab/trackdeck/internal/capture"
	"github.com/audiolibrelab/trackdeck/internal/codec"
	"github.com/audiolibrelab/trackdeck/internal/config"
	"github.com/audiolibrelab/trackdeck/internal/mix"
	"github.com/audiolibrelab/trackdeck/internal/output"
	"github.com/audiolibrelab/trackdeck/internal/wav"
)

type harness struct {
	cfg        *config.Config
	backend    *capture.MemoryBackend
	controller *Controller
	dir        string
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		RecordingFormat:  "pcm",
		SaveFolder:       dir,
		FilePrefix:       "rec",
		SampleRate:       44100,
		EnableMultiTrack: true,
		TrackCount:       2,
		OutputMode:       config.OutputModeSingle,
		CaptureBackend:   "memory",
	}
	if mutate != nil {
		mutate(cfg)
	}

	backend := capture.NewMemoryBackend()
	driver := capture.NewDriver(backend)

	mixer := mix.New(&codec.PCMDecoder{SampleRate: cfg.SampleRate, Channels: CaptureChannels}, cfg.Debug)
	router := output.NewRouter(output.Options{
		Storage: output.NewFSStorage(),
		Mixer:   mixer,
		Folder:  cfg.SaveFolder,
		Prefix:  cfg.FilePrefix,
		Mode:    cfg.OutputMode,
	})

	return &harness{
		cfg:        cfg,
		backend:    backend,
		controller: NewController(cfg, driver, router, nil),
		dir:        dir,
	}
}

func (h *harness) savedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, filepath.Join(h.dir, e.Name()))
	}
	return names
}

// sinePCM renders one second of a 440Hz tone as interleaved stereo s16le.
func sinePCM(frames int, rate int) []byte {
	out := make([]byte, frames*CaptureChannels*2)
	for n := 0; n < frames; n++ {
		v := 0.4 * math.Sin(2*math.Pi*440*float64(n)/float64(rate))
		s := int16(math.Round(v * 32767))
		for c := 0; c < CaptureChannels; c++ {
			binary.LittleEndian.PutUint16(out[(n*CaptureChannels+c)*2:], uint16(s))
		}
	}
	return out
}

func TestController_ToggleSemantics(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if h.controller.State() != StateIdle {
		t.Fatalf("Expected initial state Idle, got %s", h.controller.State())
	}

	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("ToggleStart failed: %v", err)
	}
	if h.controller.State() != StateRecording {
		t.Fatalf("Expected Recording, got %s", h.controller.State())
	}
	if h.backend.OpenedCount() != 2 {
		t.Errorf("Expected 2 opened streams, got %d", h.backend.OpenedCount())
	}

	// Give both tracks some audio so the stop can produce output.
	h.backend.Opened(0).Push(sinePCM(10, 44100))
	h.backend.Opened(1).Push(sinePCM(10, 44100))

	// A second toggle is always a stop, never a second session.
	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("Toggle stop failed: %v", err)
	}
	if h.controller.State() != StateIdle {
		t.Errorf("Expected Idle after stop, got %s", h.controller.State())
	}
	if h.controller.Current() != nil {
		t.Error("Session must be released after stop")
	}
}

func TestController_PauseResumeFromIdleIsNoop(t *testing.T) {
	h := newHarness(t, nil)

	if err := h.controller.TogglePauseResume(); err != nil {
		t.Fatalf("Pause from Idle must be a no-op, got: %v", err)
	}
	if h.controller.State() != StateIdle {
		t.Errorf("Expected Idle, got %s", h.controller.State())
	}
}

func TestController_PauseResumeCycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("ToggleStart failed: %v", err)
	}

	if err := h.controller.TogglePauseResume(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if h.controller.State() != StatePaused {
		t.Fatalf("Expected Paused, got %s", h.controller.State())
	}
	if !h.backend.Opened(0).Paused() {
		t.Error("Expected stream paused")
	}

	if err := h.controller.TogglePauseResume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if h.controller.State() != StateRecording {
		t.Fatalf("Expected Recording, got %s", h.controller.State())
	}

	// Stop is legal from Paused too.
	h.controller.TogglePauseResume()
	h.backend.Opened(0).SetFinal(sinePCM(10, 44100))
	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("Stop from Paused failed: %v", err)
	}
	if h.controller.State() != StateIdle {
		t.Errorf("Expected Idle, got %s", h.controller.State())
	}
}

func TestController_UnsupportedFormatLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.RecordingFormat = "opus" // memory backend cannot produce it
	})

	err := h.controller.ToggleStart(context.Background())
	if err == nil {
		t.Fatal("Expected unsupported format error")
	}
	if !errors.Is(err, capture.ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got: %v", err)
	}
	if h.controller.State() != StateIdle {
		t.Errorf("Pre-flight rejection must leave state Idle, got %s", h.controller.State())
	}
	if h.backend.OpenedCount() != 0 {
		t.Errorf("Pre-flight rejection must open no streams, got %d", h.backend.OpenedCount())
	}
}

func TestController_EmptySessionReportsNoAudio(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.controller.ToggleStart(ctx)
	err := h.controller.ToggleStart(ctx) // stop with nothing captured
	if err == nil {
		t.Fatal("Expected NoAudioCaptured")
	}
	if !errors.Is(err, mix.ErrNoAudioCaptured) {
		t.Errorf("Expected ErrNoAudioCaptured, got: %v", err)
	}
	if h.controller.State() != StateIdle {
		t.Errorf("Expected Idle after failed output, got %s", h.controller.State())
	}
	if files := h.savedFiles(t); len(files) != 0 {
		t.Errorf("Empty session must write no files, found %v", files)
	}
}

func TestController_EndToEndSingleFile(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("ToggleStart failed: %v", err)
	}

	// One second of identical 440Hz sine on both tracks, chunked.
	payload := sinePCM(44100, 44100)
	for _, n := range []int{0, 1} {
		stream := h.backend.Opened(n)
		half := len(payload) / 2
		stream.Push(payload[:half])
		stream.Push(payload[half:])
	}

	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	files := h.savedFiles(t)
	if len(files) != 1 {
		t.Fatalf("Expected one output file, got %v", files)
	}
	if !strings.Contains(filepath.Base(files[0]), "-multitrack-") {
		t.Errorf("Unexpected filename: %s", files[0])
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 44+44100*2*2 {
		t.Errorf("Expected %d bytes, got %d", 44+44100*2*2, len(data))
	}

	h1, err := wav.ParseHeader(data)
	if err != nil {
		t.Fatalf("Output is not a valid WAV: %v", err)
	}
	if h1.Frames() != 44100 || h1.Channels != 2 || h1.SampleRate != 44100 {
		t.Errorf("Unexpected WAV shape: %d frames, %d ch, %d Hz", h1.Frames(), h1.Channels, h1.SampleRate)
	}

	// The mix of two identical tracks must not be silence.
	silent := true
	for i := wav.HeaderSize; i < len(data); i += 2 {
		if int16(binary.LittleEndian.Uint16(data[i:])) != 0 {
			silent = false
			break
		}
	}
	if silent {
		t.Error("Mixed output is silent")
	}
}

func TestController_EndToEndMultiFile(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.OutputMode = config.OutputModeMultiple
	})
	ctx := context.Background()

	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("ToggleStart failed: %v", err)
	}

	payload := sinePCM(44100, 44100)
	h.backend.Opened(0).Push(payload)
	h.backend.Opened(1).Push(payload)

	if err := h.controller.ToggleStart(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	files := h.savedFiles(t)
	if len(files) != 2 {
		t.Fatalf("Expected two output files, got %v", files)
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		// Multi mode persists each track's captured bytes untouched.
		if len(data) != len(payload) {
			t.Fatalf("%s: expected %d bytes, got %d", f, len(payload), len(data))
		}
		for i := range payload {
			if data[i] != payload[i] {
				t.Fatalf("%s: byte %d differs from captured payload", f, i)
			}
		}
	}
}

func TestController_StopFaultPreservesSiblingTracks(t *testing.T) {
	h := newHarness(t, func(c *config.Config) {
		c.OutputMode = config.OutputModeMultiple
	})
	ctx := context.Background()

	h.controller.ToggleStart(ctx)
	h.backend.Opened(0).FailStop = true
	h.backend.Opened(1).Push(sinePCM(100, 44100))

	// The stop fault is reported but the healthy track still lands.
	h.controller.ToggleStart(ctx)
	if h.controller.State() != StateIdle {
		t.Errorf("Expected Idle after capture fault, got %s", h.controller.State())
	}
	if files := h.savedFiles(t); len(files) != 1 {
		t.Errorf("Expected surviving track to be saved, got %v", files)
	}
}

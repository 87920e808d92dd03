package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/audiolibrelab/trackdeck/internal/capture"
	"github.com/audiolibrelab/trackdeck/internal/config"
	"github.com/audiolibrelab/trackdeck/internal/notify"
	"github.com/audiolibrelab/trackdeck/internal/output"
)

// CaptureChannels is the channel count capture streams are opened with.
const CaptureChannels = 2

// Controller gates all recording commands through the state machine and
// owns at most one live session. Only the controller mutates the
// session and its track buffers.
type Controller struct {
	cfg      *config.Config
	driver   *capture.Driver
	router   *output.Router
	notifier notify.Notifier

	mu      sync.Mutex
	state   State
	session *Session
}

func NewController(cfg *config.Config, driver *capture.Driver, router *output.Router, notifier notify.Notifier) *Controller {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Controller{
		cfg:      cfg,
		driver:   driver,
		router:   router,
		notifier: notifier,
		state:    StateIdle,
	}
}

// State returns the current recording state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the live session, or nil when idle.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// ToggleStart starts a session from Idle and stops it from Recording or
// Paused. A toggle while recording is always a stop, never a second
// concurrent session.
func (c *Controller) ToggleStart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return c.start(ctx)
	}
	return c.stop(ctx)
}

// TogglePauseResume flips between Recording and Paused. From Idle it is
// a no-op with a user-visible notice.
func (c *Controller) TogglePauseResume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateRecording:
		if err := c.driver.PauseAll(); err != nil {
			c.notifier.Notice("Failed to pause recording", "error", err)
			return err
		}
		c.state, _ = Next(c.state, CommandPause)
		c.notifier.Notice("Recording paused")
	case StatePaused:
		if err := c.driver.ResumeAll(); err != nil {
			c.notifier.Notice("Failed to resume recording", "error", err)
			return err
		}
		c.state, _ = Next(c.state, CommandResume)
		c.notifier.Notice("Recording resumed")
	default:
		c.notifier.Notice("Nothing to pause: no recording in progress")
	}
	return nil
}

// start allocates the session and opens one stream per configured
// track. The format check runs before any stream opens so a rejection
// leaves the state machine untouched.
func (c *Controller) start(ctx context.Context) error {
	if !c.driver.SupportsFormat(c.cfg.RecordingFormat) {
		err := fmt.Errorf("%w: %s", capture.ErrUnsupportedFormat, c.cfg.RecordingFormat)
		c.notifier.Notice("Cannot start recording", "error", err)
		return err
	}

	labels := c.deviceLabels()
	sources := c.cfg.ActiveTracks()
	tracks := make([]*TrackCapture, len(sources))
	for i, sourceID := range sources {
		tracks[i] = &TrackCapture{
			Index:       i + 1,
			SourceID:    sourceID,
			SourceLabel: labels[sourceID],
			SampleRate:  c.cfg.SampleRate,
			Channels:    CaptureChannels,
		}
	}

	for i, track := range tracks {
		_, err := c.driver.Open(ctx, capture.OpenRequest{
			DeviceID:   track.SourceID,
			SampleRate: c.cfg.SampleRate,
			Channels:   CaptureChannels,
			Format:     c.cfg.RecordingFormat,
			Bitrate:    c.cfg.Bitrate,
		}, track.Append)
		if err != nil {
			// Release the streams already opened for earlier tracks.
			if stopErr := c.driver.StopAll(ctx); stopErr != nil {
				slog.Debug("Cleanup after failed open", "error", stopErr)
			}
			c.notifier.Notice("Failed to open capture stream", "track", i+1, "error", err)
			return err
		}
	}

	if err := c.driver.StartAll(); err != nil {
		if stopErr := c.driver.StopAll(ctx); stopErr != nil {
			slog.Debug("Cleanup after failed start", "error", stopErr)
		}
		c.notifier.Notice("Failed to start recording", "error", err)
		return err
	}

	c.session = newSession(tracks)
	c.state, _ = Next(c.state, CommandStart)
	c.notifier.Notice("Recording started", "tracks", len(tracks))
	slog.Debug("Session started", "session", c.session.ID, "tracks", len(tracks))
	return nil
}

// stop ends the session: joined wait on all streams, then output
// generation. Whatever happens, the state machine lands back in Idle
// and the session is released.
func (c *Controller) stop(ctx context.Context) error {
	sess := c.session

	defer func() {
		c.session = nil
		c.state = StateIdle
	}()

	stopErr := c.driver.StopAll(ctx)
	if stopErr != nil {
		// Chunks captured before the fault are intact; keep going so
		// the surviving tracks still produce output.
		c.notifier.Notice("Capture fault while stopping", "error", stopErr)
	}

	if sess == nil {
		return stopErr
	}

	ext := formatExtension(c.cfg.RecordingFormat)
	tracks := make([]output.Track, len(sess.Tracks))
	for i, t := range sess.Tracks {
		tracks[i] = output.Track{
			Label:   t.SourceLabel,
			Payload: t.Bytes(),
			Ext:     ext,
		}
	}

	result, err := c.router.Save(tracks)
	if err != nil {
		c.notifier.Notice("Recording produced no output", "error", err)
		return err
	}

	slog.Debug("Session finished", "session", sess.ID, "files", result.Saved)
	return stopErr
}

// deviceLabels maps device IDs to their human labels for filenames.
func (c *Controller) deviceLabels() map[string]string {
	labels := map[string]string{}
	devices, err := c.driver.Devices()
	if err != nil {
		slog.Debug("Device enumeration failed", "error", err)
		return labels
	}
	for _, d := range devices {
		labels[d.ID] = d.Label
	}
	return labels
}

// formatExtension maps a recording format identifier to a file
// extension for multi-file output.
func formatExtension(format string) string {
	switch f := strings.ToLower(format); f {
	case "pcm", "pcm_s16le", "raw":
		return "pcm"
	case "opus":
		return "ogg"
	default:
		return f
	}
}

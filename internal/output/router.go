// Package output routes a finished session's audio to files: either one
// multitrack bounce or one file per track.
package output

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/audiolibrelab/trackdeck/internal/mix"
	"github.com/audiolibrelab/trackdeck/internal/notify"
	"github.com/audiolibrelab/trackdeck/internal/wav"
)

// Track is one captured track as the router sees it: the device label
// for naming, the concatenated capture payload and its native extension.
type Track struct {
	Label   string
	Payload []byte
	Ext     string
}

// Result reports what actually landed on disk. Saved counts successful
// writes; in multi-file mode individual tracks may fail independently.
type Result struct {
	Saved int
	Paths []string
}

// Modes mirror the output_mode config values.
const (
	ModeSingle   = "single"
	ModeMultiple = "multiple"
)

type Router struct {
	storage  Storage
	inserter DocumentInserter
	mixer    *mix.Mixer
	notifier notify.Notifier

	folder string
	prefix string
	mode   string

	// now is injectable for deterministic filenames in tests.
	now func() time.Time
}

type Options struct {
	Storage  Storage
	Inserter DocumentInserter
	Mixer    *mix.Mixer
	Notifier notify.Notifier
	Folder   string
	Prefix   string
	Mode     string
}

func NewRouter(opts Options) *Router {
	r := &Router{
		storage:  opts.Storage,
		inserter: opts.Inserter,
		mixer:    opts.Mixer,
		notifier: opts.Notifier,
		folder:   opts.Folder,
		prefix:   opts.Prefix,
		mode:     opts.Mode,
		now:      time.Now,
	}
	if r.inserter == nil {
		r.inserter = NoopInserter{}
	}
	if r.notifier == nil {
		r.notifier = notify.Discard{}
	}
	return r
}

// Save persists the session's tracks according to the output mode and
// inserts one markdown link per saved file into the active document.
func (r *Router) Save(tracks []Track) (*Result, error) {
	var result *Result
	var err error

	switch r.mode {
	case ModeMultiple:
		result, err = r.saveMultiple(tracks)
	default:
		result, err = r.saveSingle(tracks)
	}
	if err != nil {
		return result, err
	}

	if len(result.Paths) > 0 {
		links := make([]string, len(result.Paths))
		for i, p := range result.Paths {
			links[i] = fmt.Sprintf("![%s](%s)", filepath.Base(p), p)
		}
		if insErr := r.inserter.InsertAtCursor(strings.Join(links, "\n")); insErr != nil {
			slog.Warn("Failed to insert file links", "error", insErr)
		}
	}

	return result, nil
}

// saveSingle bounces all tracks into one WAV at the rate the decoded
// audio actually carries.
func (r *Router) saveSingle(tracks []Track) (*Result, error) {
	if r.mixer == nil {
		return &Result{}, fmt.Errorf("single-file output requires a mixer")
	}

	payloads := make([][]byte, len(tracks))
	for i, t := range tracks {
		payloads[i] = t.Payload
	}

	signal, err := r.mixer.Mix(payloads)
	if err != nil {
		return &Result{}, err
	}

	data, err := wav.Encode(signal.Channels, signal.SampleRate)
	if err != nil {
		return &Result{}, fmt.Errorf("encode mixed signal: %w", err)
	}

	name := fmt.Sprintf("%s-multitrack-%s.wav", r.prefix, r.timestamp())
	path, err := r.write(name, data)
	if err != nil {
		return &Result{}, err
	}

	r.notifier.Notice("Recording saved", "file", path)
	return &Result{Saved: 1, Paths: []string{path}}, nil
}

// saveMultiple writes each non-empty track's native payload to its own
// file. Failures are independent: one bad track never aborts siblings.
func (r *Router) saveMultiple(tracks []Track) (*Result, error) {
	result := &Result{}
	timestamp := r.timestamp()
	attempted := 0

	for _, t := range tracks {
		if len(t.Payload) == 0 {
			continue
		}
		attempted++

		name := fmt.Sprintf("%s-%s-%s.%s", r.prefix, sourceLabel(t.Label), timestamp, t.Ext)
		path, err := r.write(name, t.Payload)
		if err != nil {
			r.notifier.Notice("Failed to save track", "track", t.Label, "error", err)
			continue
		}
		result.Saved++
		result.Paths = append(result.Paths, path)
	}

	if attempted == 0 {
		return result, mix.ErrNoAudioCaptured
	}

	r.notifier.Notice("Tracks saved", "saved", result.Saved, "of", attempted)
	return result, nil
}

// write resolves filename collisions before delegating to storage. The
// probe loop appends _1, _2, ... until a free name is found.
func (r *Router) write(name string, data []byte) (string, error) {
	path := filepath.Join(r.folder, sanitizeFileName(name))

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for n := 1; ; n++ {
		exists, err := r.storage.Exists(path)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		path = fmt.Sprintf("%s_%d%s", base, n, ext)
	}

	return r.storage.WriteBinary(path, data)
}

// timestamp renders the session time as ISO 8601 with ':' and '.'
// replaced so the result is a legal filename everywhere.
func (r *Router) timestamp() string {
	ts := r.now().Format("2006-01-02T15:04:05.000Z07:00")
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts)
}

var fileNameReplacer = strings.NewReplacer(
	`\`, "-", "/", "-", ":", "-", "*", "-",
	"?", "-", `"`, "-", "<", "-", ">", "-", "|", "-",
)

func sanitizeFileName(name string) string {
	return fileNameReplacer.Replace(name)
}

// sourceLabel reduces a device label to alphanumerics for embedding in
// filenames.
func sourceLabel(label string) string {
	var b strings.Builder
	for _, r := range label {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "UnknownDevice"
	}
	return b.String()
}

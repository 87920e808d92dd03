package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

const chunkReadSize = 32 * 1024

// formatArgs maps recording format identifiers to ffmpeg muxer arguments.
var formatArgs = map[string][]string{
	"wav":       {"-f", "wav"},
	"pcm":       {"-f", "s16le"},
	"pcm_s16le": {"-f", "s16le"},
	"raw":       {"-f", "s16le"},
	"flac":      {"-f", "flac"},
	"ogg":       {"-f", "ogg"},
	"opus":      {"-f", "ogg", "-c:a", "libopus"},
	"mp3":       {"-f", "mp3"},
}

// FFmpegBackend captures audio through an ffmpeg child process reading
// from PulseAudio/PipeWire, streaming encoded bytes over stdout. Each
// track gets its own process.
type FFmpegBackend struct{}

func NewFFmpegBackend() *FFmpegBackend {
	return &FFmpegBackend{}
}

// Devices lists PulseAudio sources via pactl.
func (b *FFmpegBackend) Devices() ([]Device, error) {
	cmd := exec.Command("pactl", "list", "short", "sources")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio sources: %w", err)
	}

	var devices []Device
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		devices = append(devices, Device{ID: fields[1], Label: fields[1]})
	}

	return devices, nil
}

func (b *FFmpegBackend) SupportsFormat(format string) bool {
	_, ok := formatArgs[strings.ToLower(format)]
	return ok
}

// Open validates the device binding and prepares the ffmpeg command.
// The process only starts on Stream.Start.
func (b *FFmpegBackend) Open(ctx context.Context, req OpenRequest, sink ChunkSink) (Stream, error) {
	muxArgs, ok := formatArgs[strings.ToLower(req.Format)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	device := req.DeviceID
	if device == "" {
		device = "default"
	} else if err := b.validateDevice(device); err != nil {
		return nil, err
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "pulse", "-i", device,
		"-ar", strconv.Itoa(req.SampleRate),
		"-ac", strconv.Itoa(req.Channels),
	}
	if req.Bitrate > 0 && requiresBitrate(req.Format) {
		args = append(args, "-b:a", strconv.Itoa(req.Bitrate))
	}
	args = append(args, muxArgs...)
	args = append(args, "-")

	return &ffmpegStream{
		args:   args,
		device: device,
		sink:   sink,
	}, nil
}

func (b *FFmpegBackend) validateDevice(device string) error {
	devices, err := b.Devices()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	for _, d := range devices {
		if d.ID == device {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrDeviceUnavailable, device)
}

// requiresBitrate reports whether a format is lossy and takes a bitrate.
func requiresBitrate(format string) bool {
	switch strings.ToLower(format) {
	case "opus", "ogg", "mp3":
		return true
	}
	return false
}

type ffmpegStream struct {
	args   []string
	device string
	sink   ChunkSink

	mu         sync.Mutex
	cmd        *exec.Cmd
	stderrBuf  strings.Builder
	readerDone chan struct{}
}

func (s *ffmpegStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("%w: stream already started", ErrCapture)
	}

	cmd := exec.Command("ffmpeg", s.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: failed to start ffmpeg for %s: %v", ErrDeviceUnavailable, s.device, err)
	}

	slog.Debug("FFmpeg capture started", "device", s.device, "args", strings.Join(s.args, " "))

	s.cmd = cmd
	s.readerDone = make(chan struct{})

	go s.readChunks(stdout)
	go s.readStderr(stderr)

	return nil
}

// readChunks pushes stdout bytes to the sink in arrival order. It owns
// the readerDone channel: once closed, the final chunk has been flushed.
func (s *ffmpegStream) readChunks(stdout io.ReadCloser) {
	defer close(s.readerDone)

	buf := make([]byte, chunkReadSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.sink(chunk)
		}
		if err != nil {
			if err != io.EOF {
				slog.Debug("FFmpeg stdout read ended", "device", s.device, "error", err)
			}
			return
		}
	}
}

func (s *ffmpegStream) readStderr(stderr io.ReadCloser) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		s.mu.Lock()
		s.stderrBuf.WriteString(line + "\n")
		s.mu.Unlock()
		slog.Debug("FFmpeg output", "device", s.device, "line", line)
	}
	stderr.Close()
}

func (s *ffmpegStream) Pause() error {
	return s.signal(syscall.SIGSTOP, "pause")
}

func (s *ffmpegStream) Resume() error {
	return s.signal(syscall.SIGCONT, "resume")
}

func (s *ffmpegStream) signal(sig syscall.Signal, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return fmt.Errorf("%w: cannot %s, stream not running", ErrCapture, op)
	}
	if err := s.cmd.Process.Signal(sig); err != nil {
		return fmt.Errorf("%w: %s failed: %v", ErrCapture, op, err)
	}
	return nil
}

// Stop interrupts ffmpeg and waits until the stdout reader has drained
// the final chunk. Interrupt-driven exits are normal terminations here.
func (s *ffmpegStream) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.readerDone
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if cmd.Process != nil {
		// Make sure a paused process can receive the interrupt.
		cmd.Process.Signal(syscall.SIGCONT)
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			slog.Debug("Failed to interrupt ffmpeg, killing", "device", s.device, "error", err)
			cmd.Process.Kill()
		}
	}

	// Final chunk lands before stdout hits EOF; wait for the reader
	// before declaring the track buffer complete.
	select {
	case <-done:
	case <-ctx.Done():
		cmd.Process.Kill()
		<-done
		return fmt.Errorf("%w: stop cancelled: %v", ErrCapture, ctx.Err())
	case <-time.After(10 * time.Second):
		cmd.Process.Kill()
		<-done
	}

	err := cmd.Wait()
	s.mu.Lock()
	s.cmd = nil
	stderr := s.stderrBuf.String()
	s.mu.Unlock()

	if err != nil && !isInterruptExit(err) {
		return fmt.Errorf("%w: ffmpeg exited abnormally: %v (stderr: %s)", ErrCapture, err, strings.TrimSpace(stderr))
	}
	return nil
}

// isInterruptExit recognizes the exit states ffmpeg produces when asked
// to stop via signal.
func isInterruptExit(err error) bool {
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return false
	}
	if exitErr.ExitCode() == 255 {
		return true
	}
	if exitErr.ProcessState != nil {
		state := exitErr.ProcessState.String()
		return state == "signal: interrupt" || state == "signal: killed"
	}
	return false
}

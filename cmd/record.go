package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/audiolibrelab/trackdeck/internal/capture"
	"github.com/audiolibrelab/trackdeck/internal/codec"
	"github.com/audiolibrelab/trackdeck/internal/config"
	"github.com/audiolibrelab/trackdeck/internal/mix"
	"github.com/audiolibrelab/trackdeck/internal/notify"
	"github.com/audiolibrelab/trackdeck/internal/output"
	"github.com/audiolibrelab/trackdeck/internal/session"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Start an interactive recording session",
	Long: `Starts capturing from the configured audio sources and waits for
keyboard commands:

  p + Enter    pause or resume the session
  s + Enter    stop and save
  Ctrl+C       stop and save`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, err := buildController(cfg)
		if err != nil {
			return err
		}
		return runInteractive(cmd.Context(), ctrl)
	},
}

// buildController assembles the capture, mixing and output layers from
// the loaded configuration.
func buildController(cfg *config.Config) (*session.Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	backend, err := capture.NewBackend(cfg.CaptureBackend)
	if err != nil {
		return nil, err
	}
	driver := capture.NewDriver(backend)

	var mixer *mix.Mixer
	if cfg.OutputMode == config.OutputModeSingle {
		decoder, err := codec.ForFormat(cfg.RecordingFormat, cfg.SampleRate, session.CaptureChannels)
		if err != nil {
			return nil, fmt.Errorf("output mode %q cannot mix format %q: %w",
				cfg.OutputMode, cfg.RecordingFormat, err)
		}
		mixer = mix.New(decoder, cfg.Debug)
	}

	var inserter output.DocumentInserter
	if cfg.JournalFile != "" {
		inserter = output.NewJournalInserter(cfg.JournalFile)
	}

	router := output.NewRouter(output.Options{
		Storage:  output.NewFSStorage(),
		Inserter: inserter,
		Mixer:    mixer,
		Notifier: notify.NewLog(),
		Folder:   cfg.SaveFolder,
		Prefix:   cfg.FilePrefix,
		Mode:     cfg.OutputMode,
	})

	return session.NewController(cfg, driver, router, notify.NewLog()), nil
}

// runInteractive drives the controller from stdin and OS signals until
// the session stops.
func runInteractive(ctx context.Context, ctrl *session.Controller) error {
	if err := ctrl.ToggleStart(ctx); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}

	fmt.Println("Recording. [p]ause/resume, [s]top, Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)

	inputCh := make(chan string)
	go func() {
		defer close(inputCh)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case inputCh <- strings.TrimSpace(strings.ToLower(scanner.Text())):
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case sig := <-sigCh:
			slog.Debug("signal received, stopping", "signal", sig)
			return ctrl.ToggleStart(ctx)

		case line, ok := <-inputCh:
			if !ok {
				// stdin closed, treat as stop
				return ctrl.ToggleStart(ctx)
			}
			switch line {
			case "p":
				if err := ctrl.TogglePauseResume(); err != nil {
					slog.Error("pause/resume failed", "error", err)
					continue
				}
				if ctrl.State() == session.StatePaused {
					fmt.Println("Paused.")
				} else {
					fmt.Println("Recording.")
				}
			case "s", "q", "":
				return ctrl.ToggleStart(ctx)
			default:
				fmt.Println("Unknown command. Use p (pause/resume) or s (stop).")
			}
		}
	}
}

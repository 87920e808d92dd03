package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiolibrelab/trackdeck/internal/codec"
	"github.com/audiolibrelab/trackdeck/internal/mix"
	"github.com/audiolibrelab/trackdeck/internal/notify"
	"github.com/audiolibrelab/trackdeck/internal/output"

	"github.com/spf13/cobra"
)

var (
	bounceRate     int
	bounceChannels int
	bounceFormat   string
	bounceOut      string
)

var bounceCmd = &cobra.Command{
	Use:   "bounce [files...]",
	Short: "Mix previously saved track files into a single WAV",
	Long: `Reads one or more per-track audio files from an earlier session and
mixes them into a single stereo WAV, the same bounce that runs when a
session stops in single output mode.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decoder, err := codec.ForFormat(bounceFormat, bounceRate, bounceChannels)
		if err != nil {
			return fmt.Errorf("cannot mix format %q: %w", bounceFormat, err)
		}

		tracks := make([]output.Track, 0, len(args))
		for _, path := range args {
			payload, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read track file: %w", err)
			}
			label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			tracks = append(tracks, output.Track{
				Label:   label,
				Payload: payload,
				Ext:     strings.TrimPrefix(filepath.Ext(path), "."),
			})
		}

		folder := bounceOut
		if folder == "" {
			folder = cfg.SaveFolder
		}

		router := output.NewRouter(output.Options{
			Storage:  output.NewFSStorage(),
			Mixer:    mix.New(decoder, cfg.Debug),
			Notifier: notify.NewLog(),
			Folder:   folder,
			Prefix:   cfg.FilePrefix,
			Mode:     output.ModeSingle,
		})

		result, err := router.Save(tracks)
		if err != nil {
			return fmt.Errorf("bounce failed: %w", err)
		}
		for _, p := range result.Paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	bounceCmd.Flags().IntVar(&bounceRate, "rate", 44100, "sample rate of the input tracks")
	bounceCmd.Flags().IntVar(&bounceChannels, "channels", 2, "channel count of raw PCM input tracks")
	bounceCmd.Flags().StringVar(&bounceFormat, "format", "wav", "input track format (wav, pcm)")
	bounceCmd.Flags().StringVar(&bounceOut, "out", "", "output folder (default is the configured save folder)")
}

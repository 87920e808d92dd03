package cmd

import (
	"fmt"

	"github.com/audiolibrelab/trackdeck/internal/capture"
	"github.com/audiolibrelab/trackdeck/internal/config"

	"github.com/spf13/cobra"
)

var selectTrack int

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List and select audio capture devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := capture.NewBackend(cfg.CaptureBackend)
		if err != nil {
			return err
		}

		devices, err := backend.Devices()
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		if len(devices) == 0 {
			fmt.Println("No capture devices found.")
			return nil
		}

		fmt.Println("Available capture devices:")
		for _, dev := range devices {
			marker := " "
			if dev.ID == cfg.AudioDeviceID {
				marker = "*"
			}
			fmt.Printf("%s %-40s %s\n", marker, dev.ID, dev.Label)
		}
		return nil
	},
}

var devicesSelectCmd = &cobra.Command{
	Use:   "select [device-id]",
	Short: "Select the capture device and save it to the config file",
	Long: `Sets audio_device_id to the given device and writes the config file.
With --track N the device is bound to that track's slot in
track_audio_sources instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID := args[0]

		backend, err := capture.NewBackend(cfg.CaptureBackend)
		if err != nil {
			return err
		}
		devices, err := backend.Devices()
		if err != nil {
			return fmt.Errorf("failed to list devices: %w", err)
		}
		known := false
		for _, dev := range devices {
			if dev.ID == deviceID {
				known = true
				break
			}
		}
		if !known {
			fmt.Printf("Warning: %q is not among the currently available devices\n", deviceID)
		}

		if selectTrack > 0 {
			if err := cfg.SetTrackSource(selectTrack, deviceID); err != nil {
				return err
			}
		} else {
			cfg.AudioDeviceID = deviceID
		}

		if err := config.Save(cfg, cfgFile); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		if selectTrack > 0 {
			fmt.Printf("Track %d source set to %s\n", selectTrack, deviceID)
		} else {
			fmt.Printf("Capture device set to %s\n", deviceID)
		}
		return nil
	},
}

func init() {
	devicesSelectCmd.Flags().IntVar(&selectTrack, "track", 0, "bind the device to this track slot instead of the default input")
	devicesCmd.AddCommand(devicesSelectCmd)
}

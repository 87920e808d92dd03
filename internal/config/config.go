package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output modes for finished sessions.
const (
	OutputModeSingle   = "single"   // all tracks bounced into one stereo WAV
	OutputModeMultiple = "multiple" // one file per track, native captured format
)

const (
	MinTracks = 1
	MaxTracks = 8
)

type Config struct {
	RecordingFormat   string            `mapstructure:"recording_format" yaml:"recording_format"`
	SaveFolder        string            `mapstructure:"save_folder" yaml:"save_folder"`
	FilePrefix        string            `mapstructure:"file_prefix" yaml:"file_prefix"`
	AudioDeviceID     string            `mapstructure:"audio_device_id" yaml:"audio_device_id"`
	SampleRate        int               `mapstructure:"sample_rate" yaml:"sample_rate"`
	Bitrate           int               `mapstructure:"bitrate" yaml:"bitrate"`
	EnableMultiTrack  bool              `mapstructure:"enable_multi_track" yaml:"enable_multi_track"`
	TrackCount        int               `mapstructure:"max_tracks" yaml:"max_tracks"`
	OutputMode        string            `mapstructure:"output_mode" yaml:"output_mode"`
	TrackAudioSources map[string]string `mapstructure:"track_audio_sources" yaml:"track_audio_sources"`
	CaptureBackend    string            `mapstructure:"capture_backend" yaml:"capture_backend"`
	JournalFile       string            `mapstructure:"journal_file" yaml:"journal_file"`
	Debug             bool              `mapstructure:"debug" yaml:"debug"`
}

var defaultConfig = Config{
	RecordingFormat:  "wav",
	SaveFolder:       filepath.Join(os.Getenv("HOME"), "Audio", "TrackDeck"),
	FilePrefix:       "recording",
	SampleRate:       44100,
	Bitrate:          128000,
	EnableMultiTrack: false,
	TrackCount:       2,
	OutputMode:       OutputModeSingle,
	CaptureBackend:   "auto",
}

// Load reads the configuration file, applies defaults and validates the
// result. A missing file is not an error: the defaults apply.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRACKDECK")
	v.AutomaticEnv()

	v.SetDefault("recording_format", defaultConfig.RecordingFormat)
	v.SetDefault("save_folder", defaultConfig.SaveFolder)
	v.SetDefault("file_prefix", defaultConfig.FilePrefix)
	v.SetDefault("sample_rate", defaultConfig.SampleRate)
	v.SetDefault("bitrate", defaultConfig.Bitrate)
	v.SetDefault("enable_multi_track", defaultConfig.EnableMultiTrack)
	v.SetDefault("max_tracks", defaultConfig.TrackCount)
	v.SetDefault("output_mode", defaultConfig.OutputMode)
	v.SetDefault("capture_backend", defaultConfig.CaptureBackend)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, missing := err.(*os.PathError); !missing {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.SaveFolder = expandPath(cfg.SaveFolder)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.RecordingFormat == "" {
		return fmt.Errorf("recording_format is required")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be > 0, got: %d", c.SampleRate)
	}
	if c.Bitrate < 0 {
		return fmt.Errorf("bitrate must be >= 0, got: %d", c.Bitrate)
	}
	if c.TrackCount < MinTracks || c.TrackCount > MaxTracks {
		return fmt.Errorf("max_tracks must be between %d and %d, got: %d", MinTracks, MaxTracks, c.TrackCount)
	}
	if c.OutputMode != OutputModeSingle && c.OutputMode != OutputModeMultiple {
		return fmt.Errorf("output_mode must be '%s' or '%s', got: %s", OutputModeSingle, OutputModeMultiple, c.OutputMode)
	}
	if c.FilePrefix == "" {
		return fmt.Errorf("file_prefix is required")
	}
	for key := range c.TrackAudioSources {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("track_audio_sources key %q must be a track index", key)
		}
		if idx < MinTracks || idx > MaxTracks {
			return fmt.Errorf("track_audio_sources index %d out of range %d-%d", idx, MinTracks, MaxTracks)
		}
	}
	return nil
}

// ActiveTracks resolves the per-track device assignments for a session.
// Single-device mode yields exactly one track bound to audio_device_id;
// multi-track mode yields max_tracks tracks bound per track_audio_sources,
// falling back to the default device where no source is mapped.
func (c *Config) ActiveTracks() []string {
	if !c.EnableMultiTrack {
		return []string{c.AudioDeviceID}
	}

	sources := make([]string, c.TrackCount)
	for i := range sources {
		sources[i] = c.TrackSource(i + 1)
	}
	return sources
}

// TrackSource returns the device ID mapped to a 1-based track index, or
// empty for the default device.
func (c *Config) TrackSource(index int) string {
	if c.TrackAudioSources == nil {
		return ""
	}
	return c.TrackAudioSources[strconv.Itoa(index)]
}

// SetTrackSource binds a 1-based track index to a device ID.
func (c *Config) SetTrackSource(index int, deviceID string) error {
	if index < MinTracks || index > MaxTracks {
		return fmt.Errorf("track index %d out of range %d-%d", index, MinTracks, MaxTracks)
	}
	if c.TrackAudioSources == nil {
		c.TrackAudioSources = make(map[string]string)
	}
	c.TrackAudioSources[strconv.Itoa(index)] = deviceID
	return nil
}

// Save writes the configuration to the given YAML file, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

package play

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Player auditions a finished take through whatever command line audio
// player the host has installed.
type Player struct {
	folder string
}

func New(folder string) *Player {
	return &Player{folder: folder}
}

// Play auditions the given file. A relative path is resolved against
// the save folder.
func (p *Player) Play(path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.folder, path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audio file not found: %s", path)
	}

	player, err := findAudioPlayer()
	if err != nil {
		return err
	}

	var cmd *exec.Cmd
	switch player {
	case "vlc":
		cmd = exec.Command("vlc", "--play-and-exit", path)
	case "mpv":
		cmd = exec.Command("mpv", "--no-video", path)
	case "ffplay":
		cmd = exec.Command("ffplay", "-nodisp", "-autoexit", path)
	case "aplay":
		if !strings.EqualFold(filepath.Ext(path), ".wav") {
			return fmt.Errorf("aplay requires a WAV file, got %s", filepath.Base(path))
		}
		cmd = exec.Command("aplay", path)
	default:
		return fmt.Errorf("unsupported player: %s", player)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("playback failed with %s: %w", player, err)
	}
	return nil
}

// Latest returns the most recently modified audio file in the save
// folder, for auditioning the take that just finished.
func (p *Player) Latest() (string, error) {
	entries, err := os.ReadDir(p.folder)
	if err != nil {
		return "", fmt.Errorf("failed to read save folder: %w", err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() || !isAudioFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(p.folder, e.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no audio files in %s", p.folder)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})
	return candidates[0].path, nil
}

func isAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".flac", ".ogg", ".mp3", ".pcm":
		return true
	}
	return false
}

func findAudioPlayer() (string, error) {
	players := []string{"vlc", "mpv", "ffplay", "aplay"}
	for _, player := range players {
		if _, err := exec.LookPath(player); err == nil {
			return player, nil
		}
	}
	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}

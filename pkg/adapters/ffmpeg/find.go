// Package ffmpeg drives the ffmpeg and ffprobe command line tools.
// It decodes frame ranges to raw RGBA, encodes RGBA frames to H.264 MP4,
// probes stream metadata, concatenates segments and muxes audio.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

var (
	customFFmpegPath  string
	customFFprobePath string
)

// SetFFmpegPath overrides ffmpeg discovery. An empty path restores discovery.
func SetFFmpegPath(path string) {
	customFFmpegPath = path
}

// SetFFprobePath overrides ffprobe discovery. An empty path restores discovery.
func SetFFprobePath(path string) {
	customFFprobePath = path
}

// IsAvailable reports whether both ffmpeg and ffprobe can be located.
func IsAvailable() bool {
	if _, err := FindFFmpeg(); err != nil {
		return false
	}
	_, err := FindFFprobe()
	return err == nil
}

// FindFFmpeg searches for ffmpeg.
// Priority: 1) SetFFmpegPath, 2) FFMPEG_PATH env, 3) PATH, 4) common locations
func FindFFmpeg() (string, error) {
	return findBinary("ffmpeg", customFFmpegPath, "FFMPEG_PATH", "", ErrFFmpegNotFound)
}

// FindFFprobe searches for ffprobe.
// Priority: 1) SetFFprobePath, 2) FFPROBE_PATH env, 3) next to ffmpeg, 4) PATH, 5) common locations
func FindFFprobe() (string, error) {
	sibling := ""
	if ffmpegPath, err := FindFFmpeg(); err == nil {
		sibling = filepath.Join(filepath.Dir(ffmpegPath), execName("ffprobe"))
	}
	return findBinary("ffprobe", customFFprobePath, "FFPROBE_PATH", sibling, ErrFFprobeNotFound)
}

func findBinary(name, custom, envVar, sibling string, notFound error) (string, error) {
	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", notFound, custom)
	}

	if envPath := os.Getenv(envVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: %s %s not found", notFound, envVar, envPath)
	}

	if sibling != "" {
		if _, err := os.Stat(sibling); err == nil {
			return sibling, nil
		}
	}

	if path, err := exec.LookPath(execName(name)); err == nil {
		return path, nil
	}

	for _, p := range commonPaths(name) {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", notFound
}

func execName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func commonPaths(name string) []string {
	switch runtime.GOOS {
	case "windows":
		exe := execName(name)
		return []string{
			`C:\ffmpeg\bin\` + exe,
			`C:\Program Files\ffmpeg\bin\` + exe,
			`C:\Program Files (x86)\ffmpeg\bin\` + exe,
		}
	case "darwin":
		return []string{
			"/opt/homebrew/bin/" + name,
			"/usr/local/bin/" + name,
			"/usr/bin/" + name,
		}
	default:
		return []string{
			"/usr/bin/" + name,
			"/usr/local/bin/" + name,
			"/opt/homebrew/bin/" + name,
			"/snap/bin/" + name,
		}
	}
}

// Package prefs persists the handful of client preferences that
// survive restarts. Absent files and absent fields mean "use the
// built-in default", never an error.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Prefs are the persisted client preferences.
type Prefs struct {
	PushToTalk           bool `json:"push_to_talk"`
	EventsPaneExpanded   bool `json:"events_pane_expanded"`
	AudioPlaybackEnabled bool `json:"audio_playback_enabled"`
}

// Defaults returns the built-in preference values.
func Defaults() Prefs {
	return Prefs{
		PushToTalk:           false,
		EventsPaneExpanded:   true,
		AudioPlaybackEnabled: true,
	}
}

// Store reads and writes preferences at a fixed path.
type Store struct {
	path string
}

// NewStore builds a Store over the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the per-user preference file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "fleetvoice", "prefs.json"), nil
}

// Load reads preferences from disk. A missing file yields the
// defaults. Fields absent from the file keep their default values.
func (s *Store) Load() (Prefs, error) {
	p := Defaults()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Defaults(), fmt.Errorf("parse prefs: %w", err)
	}
	return p, nil
}

// Save writes preferences to disk, creating parent directories as
// needed. The write goes through a temp file and rename so a crash
// never leaves a torn file.
func (s *Store) Save(p Prefs) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"ycstress/internal/catalog"
)

// Settings is the persisted user state: which components are checked plus the
// last-used run parameters. All three parameters accept the literal "auto".
type Settings struct {
	Selected        map[string]bool `yaml:"selected"`
	TimeLimit       string          `yaml:"time_limit"`
	DurationPerTest string          `yaml:"duration_per_test"`
	Memory          string          `yaml:"memory"`
}

// DefaultSettings returns the state used when no settings file exists:
// nothing selected, everything on auto.
func DefaultSettings() Settings {
	return Settings{
		Selected:        map[string]bool{},
		TimeLimit:       "auto",
		DurationPerTest: "auto",
		Memory:          "auto",
	}
}

// SelectedIDs returns the checked component ids in catalog order. Unknown ids
// from a stale file are dropped, so the result is always a subset of the
// catalog.
func (s Settings) SelectedIDs() []string {
	var ids []string
	for _, d := range catalog.Tests() {
		if s.Selected[d.ID] {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// LoadSettings reads the settings file. It fails soft: a missing or malformed
// file yields the defaults, never an error to the caller.
func LoadSettings(path string) Settings {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to read settings file, using defaults", "path", path, "error", err)
		}
		return DefaultSettings()
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		slog.Warn("settings file is malformed, using defaults", "path", path, "error", err)
		return DefaultSettings()
	}

	if s.Selected == nil {
		s.Selected = map[string]bool{}
	}
	if s.TimeLimit == "" {
		s.TimeLimit = "auto"
	}
	if s.DurationPerTest == "" {
		s.DurationPerTest = "auto"
	}
	if s.Memory == "" {
		s.Memory = "auto"
	}
	return s
}

// SaveSettings writes the settings file atomically: marshal to a temp file in
// the same directory, then rename over the target. A crash mid-write leaves
// the previous file intact.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ycstress-settings-*")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close settings file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

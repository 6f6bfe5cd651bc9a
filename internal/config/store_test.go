package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	s := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Empty(t, s.SelectedIDs())
	assert.Equal(t, "auto", s.TimeLimit)
	assert.Equal(t, "auto", s.DurationPerTest)
	assert.Equal(t, "auto", s.Memory)
}

func TestLoadSettingsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{ not yaml"), 0644))

	s := LoadSettings(path)
	assert.Equal(t, DefaultSettings(), s)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := DefaultSettings()
	s.Selected["BKT"] = true
	s.Selected["FFTv4"] = true
	s.TimeLimit = "3600"
	s.Memory = "12GB"

	require.NoError(t, SaveSettings(path, s))

	got := LoadSettings(path)
	assert.Equal(t, []string{"BKT", "FFTv4"}, got.SelectedIDs())
	assert.Equal(t, "3600", got.TimeLimit)
	assert.Equal(t, "auto", got.DurationPerTest)
	assert.Equal(t, "12GB", got.Memory)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	first := DefaultSettings()
	first.Selected["SNT"] = true
	require.NoError(t, SaveSettings(path, first))

	second := DefaultSettings()
	second.Selected["VT3"] = true
	require.NoError(t, SaveSettings(path, second))

	got := LoadSettings(path)
	assert.Equal(t, []string{"VT3"}, got.SelectedIDs())

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "settings.yaml", entries[0].Name())
}

func TestSaveSettingsBadDir(t *testing.T) {
	err := SaveSettings(filepath.Join(t.TempDir(), "missing", "settings.yaml"), DefaultSettings())
	assert.Error(t, err)
}

func TestSelectedIDsDropsUnknown(t *testing.T) {
	s := DefaultSettings()
	s.Selected["BKT"] = true
	s.Selected["NOT_A_TEST"] = true
	assert.Equal(t, []string{"BKT"}, s.SelectedIDs())
}

func TestLoadSettingsFillsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("selected:\n  BBP: true\n"), 0644))

	s := LoadSettings(path)
	assert.Equal(t, []string{"BBP"}, s.SelectedIDs())
	assert.Equal(t, "auto", s.TimeLimit)
	assert.Equal(t, "auto", s.Memory)
}

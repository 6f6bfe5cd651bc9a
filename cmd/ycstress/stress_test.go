package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ycstress/internal/db"
	"ycstress/internal/session"
	"ycstress/internal/ui"
)

func TestStressCommandLaunchesDashboard(t *testing.T) {
	dir := t.TempDir()
	viper.Set("log_file", filepath.Join(dir, "test.log"))
	viper.Set("settings_file", filepath.Join(dir, "settings.yaml"))
	t.Cleanup(func() {
		viper.Set("log_file", "ycstress.log")
		viper.Set("settings_file", "ycstress.yaml")
	})

	store := &mockStore{}
	originalFactory := historyStoreFactory
	historyStoreFactory = func() (db.Store, error) { return store, nil }
	t.Cleanup(func() { historyStoreFactory = originalFactory })

	var gotSettings string
	var gotHistory db.Store
	originalDashboard := ui.StartStressDashboard
	ui.StartStressDashboard = func(manager *session.Manager, history db.Store, settingsPath string) error {
		gotHistory = history
		gotSettings = settingsPath
		return nil
	}
	t.Cleanup(func() { ui.StartStressDashboard = originalDashboard })

	_, err := executeCommand(rootCmd, "stress")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "settings.yaml"), gotSettings)
	assert.Same(t, store, gotHistory)
}

func TestStressCommandSurvivesHistoryFailure(t *testing.T) {
	dir := t.TempDir()
	viper.Set("log_file", filepath.Join(dir, "test.log"))
	t.Cleanup(func() { viper.Set("log_file", "ycstress.log") })

	originalFactory := historyStoreFactory
	historyStoreFactory = func() (db.Store, error) { return nil, assert.AnError }
	t.Cleanup(func() { historyStoreFactory = originalFactory })

	var gotHistory db.Store = &mockStore{}
	originalDashboard := ui.StartStressDashboard
	ui.StartStressDashboard = func(manager *session.Manager, history db.Store, settingsPath string) error {
		gotHistory = history
		return nil
	}
	t.Cleanup(func() { ui.StartStressDashboard = originalDashboard })

	_, err := executeCommand(rootCmd, "stress")
	require.NoError(t, err)
	assert.Nil(t, gotHistory, "dashboard runs without history when the store fails to open")
}

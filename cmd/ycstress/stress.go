package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ycstress/internal/db"
	"ycstress/internal/session"
	"ycstress/internal/telemetry"
	"ycstress/internal/ui"
)

// historyStoreFactory is a test seam for the run-history store.
var historyStoreFactory = func() (db.Store, error) {
	return db.NewSQLiteStore(viper.GetString("history_db"))
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Open the interactive stress dashboard",
	Long: `Open the interactive dashboard: pick components, start and stop runs,
and watch y-cruncher's console output live. This is also what running
'ycstress' with no subcommand does.`,
	RunE: runStress,
}

func init() {
	rootCmd.AddCommand(stressCmd)
}

func runStress(cmd *cobra.Command, args []string) error {
	// The dashboard owns the terminal; logs go to the file only.
	telemetry.InitFileLogger(viper.GetBool("verbose"), viper.GetString("log_file"))

	store, err := historyStoreFactory()
	if err != nil {
		// History is a convenience, not a requirement for stressing.
		slog.Warn("run history unavailable", "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	manager := session.NewManager(
		viper.GetString("binary"),
		time.Duration(viper.GetInt("grace_period"))*time.Second,
		slog.Default(),
	)

	return ui.StartStressDashboard(manager, store, viper.GetString("settings_file"))
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ycstress/internal/catalog"
	"ycstress/internal/config"
	"ycstress/internal/db"
	"ycstress/internal/session"
	"ycstress/internal/telemetry"
)

var (
	runTests     []string
	runPreset    string
	runTimeLimit string
	runDuration  string
	runMemory    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a stress session headless, streaming output to stdout",
	Long: `Run y-cruncher without the dashboard. Components come from --tests or
--preset; with neither, the selection saved by the dashboard is used.
Ctrl-C requests a graceful stop, escalating to a forced kill after the
grace period. The y-cruncher exit code becomes this command's exit code.`,
	RunE: runHeadless,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVarP(&runTests, "tests", "t", nil, "Component ids to run, e.g. BKT,FFTv4")
	runCmd.Flags().StringVar(&runPreset, "preset", "", "Preset selection: cpu, cpu+ram or ram")
	runCmd.Flags().StringVar(&runTimeLimit, "time-limit", "auto", "Total time limit in seconds, or 'auto' (1800s per component)")
	runCmd.Flags().StringVar(&runDuration, "duration", "auto", "Seconds spent per test pass, or 'auto'")
	runCmd.Flags().StringVar(&runMemory, "memory", "auto", "Memory to test, e.g. 28GB, or 'auto'")
}

// resolveSelection turns the --tests / --preset flags into a validated
// component list. With neither flag set, the dashboard's saved selection is
// the fallback.
func resolveSelection(tests []string, preset string) ([]string, error) {
	if len(tests) > 0 && preset != "" {
		return nil, fmt.Errorf("--tests and --preset are mutually exclusive")
	}

	if preset != "" {
		switch strings.ToLower(preset) {
		case "cpu":
			return catalog.ComputePreset(catalog.PresetCPU), nil
		case "cpu+ram", "cpuram", "mixed":
			return catalog.ComputePreset(catalog.PresetCPURAM), nil
		case "ram":
			return catalog.ComputePreset(catalog.PresetRAM), nil
		default:
			return nil, fmt.Errorf("unknown preset %q (want cpu, cpu+ram or ram)", preset)
		}
	}

	if len(tests) > 0 {
		for _, id := range tests {
			if !catalog.IsValidID(id) {
				return nil, fmt.Errorf("unknown component %q, see 'ycstress tests'", id)
			}
		}
		return catalog.FilterValid(tests), nil
	}

	settings := config.LoadSettings(viper.GetString("settings_file"))
	selection := settings.SelectedIDs()
	if len(selection) == 0 {
		return nil, fmt.Errorf("no components selected: pass --tests or --preset, or pick some in the dashboard")
	}
	return selection, nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))

	selection, err := resolveSelection(runTests, runPreset)
	if err != nil {
		return err
	}

	cfg := session.RunConfig{
		Selection:       selection,
		TimeLimit:       runTimeLimit,
		DurationPerTest: runDuration,
		Memory:          runMemory,
	}

	manager := session.NewManager(
		viper.GetString("binary"),
		time.Duration(viper.GetInt("grace_period"))*time.Second,
		slog.Default(),
	)

	events, err := manager.Start(cfg)
	if err != nil {
		return err
	}

	out := termenv.NewOutput(cmd.OutOrStdout())
	out.WriteString(out.String("> "+strings.Join(session.BuildArgs(cfg), " ")).Faint().String() + "\n")

	var store db.Store
	var runID int64
	if store, err = historyStoreFactory(); err != nil {
		slog.Warn("run history unavailable", "error", err)
		store = nil
	} else {
		defer store.Close()
		if runID, err = store.RecordStart(cfg.Selection, cfg.EffectiveTimeLimit()); err != nil {
			slog.Warn("failed to record run start", "error", err)
		}
	}

	// First signal asks nicely; the manager escalates on its own.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			out.WriteString(out.String("> Stop requested, waiting for process to exit...").
				Foreground(termenv.ANSIYellow).String() + "\n")
			manager.Stop()
		}
	}()

	var final session.Status
	for ev := range events {
		switch ev.Kind {
		case session.EventLine:
			fmt.Fprintln(cmd.OutOrStdout(), ev.Line)
		case session.EventDone:
			final = ev.Status
		}
	}

	if store != nil && runID != 0 {
		if err := store.RecordFinish(runID, final.State.String(), final.ExitCode); err != nil {
			slog.Warn("failed to record run end", "error", err)
		}
	}

	if final.Forced {
		out.WriteString(out.String("> Graceful stop timed out; the process group was killed. If y-cruncher is still running, terminate it manually.").
			Foreground(termenv.ANSIRed).String() + "\n")
	}

	if final.State == session.StateFailed {
		return fmt.Errorf("stress run failed: %s", final.Reason)
	}
	if final.ExitCode != 0 {
		out.WriteString(out.String(fmt.Sprintf("> Process exited with code: %d", final.ExitCode)).
			Foreground(termenv.ANSIRed).String() + "\n")
		exit(final.ExitCode)
		return nil
	}

	out.WriteString(out.String("> Test completed or stopped.").Foreground(termenv.ANSIGreen).String() + "\n")
	return nil
}

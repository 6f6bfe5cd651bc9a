package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ycstress/internal/telemetry"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("number", "n", 10, "Number of runs to display")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent stress runs",
	Long:  `Show the most recent stress runs recorded by the dashboard and 'run', newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitLogger(false, "")

		store, err := historyStoreFactory()
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer store.Close()

		number, _ := cmd.Flags().GetInt("number")
		runs, err := store.RecentRuns(number)
		if err != nil {
			return fmt.Errorf("failed to read run history: %w", err)
		}

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			data, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		}

		if len(runs) == 0 {
			cmd.Println("No runs recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tSELECTION\tSTATUS\tEXIT\tSTARTED\tDURATION")
		for _, r := range runs {
			started := r.StartedAt.Format("2006-01-02 15:04:05")
			duration := "-"
			if r.EndedAt != nil {
				duration = r.EndedAt.Sub(r.StartedAt).Round(time.Second).String()
			} else if r.Status == "running" {
				duration = time.Since(r.StartedAt).Round(time.Second).String()
			}
			exitCode := "-"
			if r.Status != "running" {
				exitCode = fmt.Sprintf("%d", r.ExitCode)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, strings.Join(r.Selection, ","), r.Status, exitCode, started, duration)
		}
		return w.Flush()
	},
}

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ycstress/internal/catalog"
)

func init() {
	rootCmd.AddCommand(testsCmd)
	testsCmd.Flags().Bool("json", false, "Output as JSON")
}

var testsCmd = &cobra.Command{
	Use:   "tests",
	Short: "List the available stress components",
	Long: `List every y-cruncher stress component with its load profile and the
preset groups it belongs to. The ids are what --tests accepts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tests := catalog.Tests()

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			type entry struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				CPULoad string `json:"cpu_load"`
				RAMLoad string `json:"ram_load"`
			}
			out := make([]entry, 0, len(tests))
			for _, d := range tests {
				out = append(out, entry{
					ID:      d.ID,
					Name:    d.DisplayName,
					CPULoad: d.CPULoad().String(),
					RAMLoad: d.RAMLoad().String(),
				})
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCPU\tRAM\tBALANCE")
		for _, d := range tests {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.ID, d.DisplayName, d.CPULoad(), d.RAMLoad(), d.LoadVisual())
		}
		if err := w.Flush(); err != nil {
			return err
		}

		cmd.Println()
		for _, p := range []catalog.Preset{catalog.PresetCPU, catalog.PresetCPURAM, catalog.PresetRAM} {
			ids := catalog.ComputePreset(p)
			cmd.Printf("Preset %-8s %-38s %v\n", p.String()+":", p.Description(), ids)
		}
		return nil
	},
}

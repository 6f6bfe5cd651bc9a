package main

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed guide.md
var guideMarkdown string

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show the stress-testing guide",
	Long:  `Render a short guide to picking components, presets and time limits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			// Fallback to plain text
			fmt.Fprint(cmd.OutOrStdout(), guideMarkdown)
			return nil
		}

		out, err := renderer.Render(guideMarkdown)
		if err != nil {
			fmt.Fprint(cmd.OutOrStdout(), guideMarkdown)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
}

package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"ycstress/internal/download"
)

var (
	version = "v0.1.0"
	commit  = "HEAD"
	date    = "2026-08-24"
)

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Print the version information for ycstress`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("ycstress version %s\n", version)
			cmd.Printf("Commit: %s\n", commit)
			cmd.Printf("Build Date: %s\n", date)
			cmd.Printf("Pinned y-cruncher: %s\n", download.Version)
			cmd.Printf("Go Version: %s\n", runtime.Version())
			cmd.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"ycstress/internal/download"
	"ycstress/internal/session"
)

// askOneFunc is a test seam for interactive prompts.
var askOneFunc = survey.AskOne

// newDownloader is a test seam for the release fetcher.
var newDownloader = download.NewDownloader

var (
	downloadDir string
	downloadYes bool
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download and unpack the y-cruncher release",
	Long: `Download the pinned y-cruncher release (` + download.Version + `) and unpack it
into the target directory so the stress commands can find the binary.
This is the only network access the tool ever makes.`,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVarP(&downloadDir, "dir", "d", ".", "Directory to unpack y-cruncher into")
	downloadCmd.Flags().BoolVarP(&downloadYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runDownload(cmd *cobra.Command, args []string) error {
	if download.Verify(downloadDir) {
		cmd.Printf("y-cruncher is already present in %s, nothing to do.\n", downloadDir)
		return nil
	}

	if !downloadYes {
		confirm := false
		err := askOneFunc(&survey.Confirm{
			Message: fmt.Sprintf("Download y-cruncher %s (~25 MB) from numberworld.org into %s?", download.Version, downloadDir),
			Default: false,
		}, &confirm)
		if err != nil {
			return err
		}
		if !confirm {
			cmd.Println("Download cancelled.")
			return nil
		}
	}

	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	zipPath := filepath.Join(downloadDir, download.DefaultFilename)
	d := newDownloader()

	cmd.Printf("Downloading %s...\n", d.URL)
	var lastPercent int64 = -1
	err := d.Fetch(cmd.Context(), zipPath, func(downloaded, total int64) {
		if total <= 0 {
			return
		}
		percent := downloaded * 100 / total
		if percent/10 != lastPercent/10 {
			lastPercent = percent
			cmd.Printf("  %d%%\n", percent)
		}
	})
	if err != nil {
		return err
	}
	defer os.Remove(zipPath)

	cmd.Println("Unpacking...")
	if err := download.Extract(zipPath, downloadDir); err != nil {
		return err
	}
	if !download.Verify(downloadDir) {
		return fmt.Errorf("archive unpacked but %s is missing from %s", session.BinaryName(), downloadDir)
	}

	cmd.Printf("Done. y-cruncher %s is ready in %s.\n", download.Version, downloadDir)
	return nil
}

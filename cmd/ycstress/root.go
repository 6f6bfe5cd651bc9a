package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ycstress/internal/config"
)

var exit = os.Exit
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ycstress",
	Short: "ycstress: a terminal front-end for y-cruncher stress testing",
	Long: `ycstress launches and supervises the y-cruncher stress-testing binary.
Pick components, set a time limit, watch the console output live, and keep
a history of past runs. The selection is remembered between sessions.`,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'ycstress --help' for usage.")
		exit(1)
	}
}

func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		// Default behavior: open the stress dashboard.
		return runStress(cmd, args)
	}
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("binary", "", "Path to the y-cruncher executable (overrides lookup)")
	rootCmd.PersistentFlags().Int("grace-period", 3, "Seconds to wait after a graceful stop before force-killing")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("binary", rootCmd.PersistentFlags().Lookup("binary"))
	viper.BindPFlag("grace_period", rootCmd.PersistentFlags().Lookup("grace-period"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.Load(cfgFile)
}

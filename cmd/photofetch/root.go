package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"photofetch/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "photofetch",
	Short: "Resumable batch downloader for product photos",
	Long: `photofetch downloads one image per record of a JSON manifest.

Each record needs a ManufacturerProductNumber and a PhotoUrl. The page at
PhotoUrl is rendered, the first <img> on it is fetched and written to
<output>/<ManufacturerProductNumber>.jpg.

Progress is checkpointed to download_state.json in the output directory, so
running the same command again continues where the last run stopped.
Records that fail are appended to failed.json.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetNoColor(true)
		}
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./photofetch.yaml or ~/.config/photofetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, unless --log-level is given")

	rootCmd.SetVersionTemplate(`photofetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags returns the persistent flags that map onto config keys
func globalFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	} else if verbose {
		flags["log-level"] = "debug"
	}
	if noColor {
		flags["no-color"] = true
	}
	return flags
}

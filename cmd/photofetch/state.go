package main

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"photofetch/pkg/checkpoint"
	"photofetch/pkg/config"
	"photofetch/pkg/logger"
	"photofetch/pkg/manifest"
	"photofetch/pkg/ui"
)

var (
	stateOutputDir string
	resetFailures  bool
	exportPath     string
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset the checkpoint of an output directory",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the checkpoint and failure log",
	RunE:  runStateShow,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the checkpoint so the next run starts at the first record",
	Long: `Delete download_state.json so the next run starts at the first record.

The failure log is kept unless --failures is given. Downloaded images are
never removed.`,
	RunE: runStateReset,
}

var stateExportCmd = &cobra.Command{
	Use:   "export-failures",
	Short: "Write the failure log as a manifest for a targeted rerun",
	Long: `Write the records of failed.json as a manifest.

Each failed index is exported once, with the most recent entry winning, in
manifest order. Run the result into a fresh output directory, or into the
same one with --restart.`,
	Example: `  photofetch state export-failures --to retry.json
  photofetch run retry.json --output ./downloads --restart`,
	RunE: runStateExport,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd, stateResetCmd, stateExportCmd)

	stateCmd.PersistentFlags().StringVarP(&stateOutputDir, "output", "o", "", "output directory holding the checkpoint (default from config)")
	stateResetCmd.Flags().BoolVar(&resetFailures, "failures", false, "also delete the failure log")
	stateExportCmd.Flags().StringVar(&exportPath, "to", "failed-manifest.json", "path of the manifest to write")
}

func openStore(cmd *cobra.Command) (*checkpoint.Store, error) {
	flags := globalFlags(cmd)
	if stateOutputDir != "" {
		flags["output"] = stateOutputDir
	}
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	// permissions were checked by Validate
	filePerm, _ := config.ParsePerm(cfg.Output.FilePermissions)
	return checkpoint.NewStore(cfg.StatePath(), cfg.FailuresPath(), filePerm, logger.GetLogger()), nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	info, err := store.GetInfo()
	if err != nil {
		return err
	}

	ui.PrintInfo("Checkpoint", info.StatePath)
	if !info.Exists {
		ui.PrintInfo("Last processed index", "none, the next run starts at the first record")
	} else {
		ui.PrintInfo("Last processed index", fmt.Sprintf("%d", info.LastProcessedIndex))
		ui.PrintInfo("Updated", info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	ui.PrintInfo("Failure log", info.FailuresPath)
	ui.PrintInfo("Failures", fmt.Sprintf("%d", info.Failures))
	return nil
}

func runStateReset(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	if err := store.Delete(); err != nil {
		return err
	}
	ui.PrintSuccess("Checkpoint removed: " + store.StatePath())

	if resetFailures {
		if err := store.DeleteFailures(); err != nil {
			return err
		}
		ui.PrintSuccess("Failure log removed: " + store.FailuresPath())
	}
	return nil
}

func runStateExport(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	failures, err := store.LoadFailures()
	if err != nil {
		return err
	}
	if len(failures) == 0 {
		ui.PrintWarning("Failure log is empty, nothing to export")
		return nil
	}

	entries := failureEntries(failures)
	if err := manifest.Write(exportPath, entries); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Exported %d records to %s", len(entries), exportPath))
	return nil
}

// failureEntries keeps the latest failure per index, ordered by index
func failureEntries(failures []checkpoint.Failure) []manifest.Entry {
	latest := make(map[int]checkpoint.Failure, len(failures))
	for _, f := range failures {
		latest[f.Index] = f
	}

	unique := make([]checkpoint.Failure, 0, len(latest))
	for _, f := range latest {
		unique = append(unique, f)
	}
	slices.SortFunc(unique, func(a, b checkpoint.Failure) int {
		return cmp.Compare(a.Index, b.Index)
	})

	entries := make([]manifest.Entry, len(unique))
	for i, f := range unique {
		entries[i] = manifest.Entry{
			ManufacturerProductNumber: f.ManufacturerProductNumber,
			PhotoUrl:                  f.PhotoUrl,
		}
	}
	return entries
}

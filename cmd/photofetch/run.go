package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"photofetch/pkg/batch"
	"photofetch/pkg/checkpoint"
	"photofetch/pkg/config"
	"photofetch/pkg/fetch"
	"photofetch/pkg/logger"
	"photofetch/pkg/manifest"
	"photofetch/pkg/render"
	"photofetch/pkg/storage"
	"photofetch/pkg/ui"
	"photofetch/pkg/ui/tui"
)

var (
	// Run command flags
	outputDir  string
	backend    string
	headless   bool
	execPath   string
	restart    bool
	flushEvery int
	navTimeout time.Duration
	useTUI     bool
	notify     bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [manifest]",
	Short: "Download the images of a manifest",
	Long: `Download one image per manifest record.

The manifest is a JSON array of objects with ManufacturerProductNumber and
PhotoUrl fields. Records missing either field are skipped. Records are
handled strictly in order, one at a time.

The checkpoint is flushed every --flush-every records and when the run ends.
Interrupting with Ctrl+C stops after the current record and flushes; the next
run resumes at the last handled record, which is processed again.`,
	Example: `  # Download with headless Chrome into ./downloads
  photofetch run products.json

  # Plain HTTP fetching for pages that do not need JavaScript
  photofetch run products.json --backend http --output ./images

  # Start over, ignoring the stored checkpoint
  photofetch run products.json --restart

  # Live dashboard
  photofetch run products.json --tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for images and checkpoint files (default ./downloads)")
	runCmd.Flags().StringVar(&backend, "backend", "", "render backend: chrome or http (default chrome)")
	runCmd.Flags().BoolVar(&headless, "headless", true, "run Chrome without a window")
	runCmd.Flags().StringVar(&execPath, "exec-path", "", "path to the Chrome executable")
	runCmd.Flags().BoolVar(&restart, "restart", false, "ignore the stored checkpoint and start at the first record")
	runCmd.Flags().IntVar(&flushEvery, "flush-every", 0, "flush the checkpoint every N records (default 10)")
	runCmd.Flags().DurationVar(&navTimeout, "timeout", 0, "navigation timeout per page and image (default 30s)")
	runCmd.Flags().BoolVar(&useTUI, "tui", false, "show a live dashboard instead of progress lines")
	runCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

// runFlags maps the command line onto config keys. Only flags the user set
// are included so config files and the environment keep their values.
func runFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := globalFlags(cmd)
	if len(args) == 1 {
		flags["manifest"] = args[0]
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if backend != "" {
		flags["backend"] = backend
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if execPath != "" {
		flags["exec-path"] = execPath
	}
	if flushEvery > 0 {
		flags["flush-every"] = flushEvery
	}
	if navTimeout > 0 {
		flags["timeout"] = navTimeout
	}
	return flags
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, runFlags(cmd, args))
	if err != nil {
		return err
	}
	if cfg.Input.Manifest == "" {
		return errors.New("no manifest given: pass it as an argument, set input.manifest or PHOTOFETCH_MANIFEST")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dash *tui.TUI
	var logOut io.Writer = os.Stdout
	if useTUI {
		dash = tui.NewTUI(cancel)
		logOut = dash.LogWriter()
	}
	if err := logger.InitializeWithOutput(&cfg.Logging, logOut); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger().WithField("version", version)

	m, err := manifest.Load(cfg.Input.Manifest)
	if err != nil {
		return err
	}

	// permissions were checked by Validate
	filePerm, _ := config.ParsePerm(cfg.Output.FilePermissions)
	dirPerm, _ := config.ParsePerm(cfg.Output.DirPermissions)
	images, err := storage.NewManager(cfg.Output.Directory, filePerm, dirPerm)
	if err != nil {
		return err
	}
	store := checkpoint.NewStore(cfg.StatePath(), cfg.FailuresPath(), filePerm, log)

	if !useTUI {
		ui.PrintLogo()
		ui.PrintInfo("Manifest", cfg.Input.Manifest)
		ui.PrintInfo("Output", images.GetOutputDir())
		ui.PrintInfo("Backend", cfg.Browser.Backend)
	}

	renderer, err := render.New(ctx, &cfg.Browser, log)
	if err != nil {
		return fmt.Errorf("failed to start %s renderer: %w", cfg.Browser.Backend, err)
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			log.WithError(err).Warn("Failed to close renderer")
		}
	}()

	var reporter batch.Reporter = ui.NewStatusTracker()
	if dash != nil {
		reporter = dash
	}
	driver := batch.NewDriver(store, fetch.NewPipeline(renderer, images, log), reporter, log, batch.Options{
		FlushInterval: cfg.Checkpoint.FlushInterval,
		Restart:       restart,
	})

	logger.LogComponentStart(log, "batch", map[string]interface{}{
		"manifest":       cfg.Input.Manifest,
		"records":        m.Len(),
		"output":         images.GetOutputDir(),
		"backend":        cfg.Browser.Backend,
		"flush_interval": cfg.Checkpoint.FlushInterval,
		"restart":        restart,
	})

	var summary *batch.Summary
	if dash != nil {
		summary, err = runWithDashboard(ctx, cancel, dash, driver, m.Records)
		if summary != nil {
			// the dashboard left the alternate screen, keep a record of the run
			ui.NewStatusTracker().Finished(*summary)
		}
	} else {
		summary, err = driver.Run(ctx, m.Records)
	}

	if summary != nil && notify {
		if nerr := ui.NewNotifier().NotifyFinished(*summary); nerr != nil {
			log.WithError(nerr).Debug("Desktop notification failed")
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		logger.LogComponentStop(log, "batch", "interrupted")
		return errors.New("interrupted, run the same command again to resume")
	case err != nil:
		logger.LogComponentStop(log, "batch", err.Error())
		return err
	}

	logger.LogComponentStop(log, "batch", "completed")
	return nil
}

// runWithDashboard runs the driver in the background while the dashboard
// owns the terminal
func runWithDashboard(ctx context.Context, cancel context.CancelFunc, dash *tui.TUI, driver *batch.Driver, records []map[string]any) (*batch.Summary, error) {
	type result struct {
		summary *batch.Summary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := driver.Run(ctx, records)
		// a fatal error ends the run without a Finished event
		dash.Stop()
		done <- result{summary, err}
	}()

	if err := dash.Start(); err != nil {
		logger.WithError(err).Error("Dashboard failed, stopping run")
		cancel()
	}

	r := <-done
	return r.summary, r.err
}

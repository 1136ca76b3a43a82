package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"photofetch/pkg/config"
	"photofetch/pkg/manifest"
	"photofetch/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage photofetch configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (PHOTOFETCH_*, .env files are read too)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'photofetch.yaml'
unless a different path is specified with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Show the effective configuration after merging all sources.`,
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Manifest readability
  - Output and log directory accessibility
  - Chrome executable path, if one is set`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# photofetch configuration file
#
# Every option can also be set with an environment variable, for example
# PHOTOFETCH_OUTPUT_DIR, PHOTOFETCH_BACKEND or PHOTOFETCH_LOG_LEVEL.

input:
  # JSON array of {"ManufacturerProductNumber": ..., "PhotoUrl": ...}
  manifest: "./products.json"

output:
  # Images, download_state.json and failed.json are written here
  directory: "./downloads"
  file_permissions: "0644"
  dir_permissions: "0755"

browser:
  # chrome renders pages with headless Chrome, http fetches raw HTML
  backend: chrome
  headless: true

  # Leave empty to let chromedp find Chrome
  exec_path: ""

  user_agent: ""
  window_width: 1920
  window_height: 1080

  # How long Chrome may take to start
  launch_timeout: 60s

  # Per page and per image
  navigation_timeout: 30s

checkpoint:
  # download_state.json is flushed whenever index % flush_interval == 0
  flush_interval: 10
  state_file: download_state.json
  failures_file: failed.json

logging:
  # debug, info, warn, error
  level: info

  # text or json
  format: text

  # Optional log file, always JSON lines
  file: ""
  no_color: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "photofetch.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s (remove it first to overwrite)", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Point input.manifest at your manifest")
	fmt.Println("2. Run 'photofetch config validate' to check the configuration")
	fmt.Println("3. Start downloading with 'photofetch run'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, globalFlags(cmd))
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (PHOTOFETCH_*)")
	fmt.Printf("3. Configuration file: %s\n", source)
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return errors.New("no configuration file found, specify one with --config")
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		return err
	}

	problems, warnings := checkEnvironment(cfg)

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Manifest: %s\n", cfg.Input.Manifest)
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Backend: %s (headless: %t)\n", cfg.Browser.Backend, cfg.Browser.Headless)
	fmt.Printf("  Navigation timeout: %s\n", cfg.Browser.NavigationTimeout)
	fmt.Printf("  Flush interval: %d\n", cfg.Checkpoint.FlushInterval)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}

// checkEnvironment performs the checks Validate cannot do without touching
// the file system
func checkEnvironment(cfg *config.Config) (problems, warnings []string) {
	if cfg.Input.Manifest == "" {
		warnings = append(warnings, "input.manifest is not set, pass the manifest to 'photofetch run'")
	} else if m, err := manifest.Load(cfg.Input.Manifest); err != nil {
		problems = append(problems, err.Error())
	} else if m.Len() == 0 {
		warnings = append(warnings, "manifest has no records")
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if cfg.Browser.Backend == config.BackendChrome && cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
			problems = append(problems, fmt.Sprintf("chrome executable not found: %s", cfg.Browser.ExecPath))
		}
	}

	return problems, warnings
}

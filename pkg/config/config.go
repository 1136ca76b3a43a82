package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendChrome = "chrome"
	BackendHTTP   = "http"
)

// Config holds all configuration options for a download run
type Config struct {
	// Manifest input
	Input InputConfig `yaml:"input" json:"input"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Rendering collaborator settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Progress persistence
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// InputConfig holds manifest configuration
type InputConfig struct {
	Manifest string `yaml:"manifest" json:"manifest"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory       string `yaml:"directory" json:"directory"`
	FilePermissions string `yaml:"file_permissions" json:"file_permissions"`
	DirPermissions  string `yaml:"dir_permissions" json:"dir_permissions"`
}

// BrowserConfig holds rendering backend configuration
type BrowserConfig struct {
	Backend           string        `yaml:"backend" json:"backend"`
	Headless          bool          `yaml:"headless" json:"headless"`
	ExecPath          string        `yaml:"exec_path" json:"exec_path"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth       int           `yaml:"window_width" json:"window_width"`
	WindowHeight      int           `yaml:"window_height" json:"window_height"`
	LaunchTimeout     time.Duration `yaml:"launch_timeout" json:"launch_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

// CheckpointConfig holds checkpoint persistence configuration
type CheckpointConfig struct {
	FlushInterval int    `yaml:"flush_interval" json:"flush_interval"`
	StateFile     string `yaml:"state_file" json:"state_file"`
	FailuresFile  string `yaml:"failures_file" json:"failures_file"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	Format  string `yaml:"format" json:"format"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Directory:       "./downloads",
			FilePermissions: "0644",
			DirPermissions:  "0755",
		},
		Browser: BrowserConfig{
			Backend:           BackendChrome,
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			WindowWidth:       1920,
			WindowHeight:      1080,
			LaunchTimeout:     60 * time.Second,
			NavigationTimeout: 30 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			FlushInterval: 10,
			StateFile:     "download_state.json",
			FailuresFile:  "failed.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if manifest := os.Getenv("PHOTOFETCH_MANIFEST"); manifest != "" {
		c.Input.Manifest = manifest
	}
	if outputDir := os.Getenv("PHOTOFETCH_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}

	if backend := os.Getenv("PHOTOFETCH_BACKEND"); backend != "" {
		c.Browser.Backend = strings.ToLower(backend)
	}
	if headless := os.Getenv("PHOTOFETCH_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}
	if execPath := os.Getenv("PHOTOFETCH_CHROME_PATH"); execPath != "" {
		c.Browser.ExecPath = execPath
	}
	if userAgent := os.Getenv("PHOTOFETCH_USER_AGENT"); userAgent != "" {
		c.Browser.UserAgent = userAgent
	}
	if timeout := os.Getenv("PHOTOFETCH_NAVIGATION_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid PHOTOFETCH_NAVIGATION_TIMEOUT: %w", err)
		}
		c.Browser.NavigationTimeout = d
	}

	if interval := os.Getenv("PHOTOFETCH_FLUSH_INTERVAL"); interval != "" {
		val, err := strconv.Atoi(interval)
		if err != nil {
			return fmt.Errorf("invalid PHOTOFETCH_FLUSH_INTERVAL: %w", err)
		}
		c.Checkpoint.FlushInterval = val
	}

	if logLevel := os.Getenv("PHOTOFETCH_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("PHOTOFETCH_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"photofetch.yaml",
		"photofetch.yml",
		".photofetch.yaml",
		".photofetch.yml",
		filepath.Join(home, ".config", "photofetch", "config.yaml"),
		filepath.Join(home, ".photofetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if _, err := ParsePerm(c.Output.FilePermissions); err != nil {
		errs = append(errs, fmt.Errorf("file permissions: %w", err))
	}
	if _, err := ParsePerm(c.Output.DirPermissions); err != nil {
		errs = append(errs, fmt.Errorf("dir permissions: %w", err))
	}

	switch c.Browser.Backend {
	case BackendChrome, BackendHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown browser backend %q", c.Browser.Backend))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Browser.LaunchTimeout <= 0 {
		errs = append(errs, errors.New("launch timeout must be positive"))
	}

	if c.Checkpoint.FlushInterval <= 0 {
		errs = append(errs, errors.New("checkpoint flush interval must be positive"))
	}
	if c.Checkpoint.StateFile == "" || c.Checkpoint.FailuresFile == "" {
		errs = append(errs, errors.New("checkpoint file names are required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, errors.New("log format must be text or json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ParsePerm parses an octal permission string such as "0644"
func ParsePerm(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid octal permissions %q", s)
	}
	return os.FileMode(v), nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if manifest, ok := flags["manifest"].(string); ok && manifest != "" {
		c.Input.Manifest = manifest
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.Browser.Backend = strings.ToLower(backend)
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if execPath, ok := flags["exec-path"].(string); ok && execPath != "" {
		c.Browser.ExecPath = execPath
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Browser.NavigationTimeout = timeout
	}
	if interval, ok := flags["flush-every"].(int); ok && interval > 0 {
		c.Checkpoint.FlushInterval = interval
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.Logging.NoColor = true
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".photofetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// StatePath returns the checkpoint file location inside the output directory
func (c *Config) StatePath() string {
	return filepath.Join(c.Output.Directory, c.Checkpoint.StateFile)
}

// FailuresPath returns the failure log location inside the output directory
func (c *Config) FailuresPath() string {
	return filepath.Join(c.Output.Directory, c.Checkpoint.FailuresFile)
}

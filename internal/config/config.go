// Package config holds the invextract configuration: working
// directories, Grist connection settings, supervisor timing, and
// logging knobs. Values come from an optional YAML file with
// environment variable overrides layered on top, mirroring the .env
// contract of the original deployment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when --config is not given.
const DefaultFileName = "invextract.yaml"

// Config holds all invextract configuration.
type Config struct {
	// Working directories
	Dirs DirsConfig `yaml:"dirs"`

	// Grist connection
	Grist GristConfig `yaml:"grist"`

	// Supervisor timing
	Run RunConfig `yaml:"run"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DirsConfig names the pipeline directories.
type DirsConfig struct {
	Input   string `yaml:"input"`
	Archive string `yaml:"archive"`
	Error   string `yaml:"error"`
	Output  string `yaml:"output"`
	Data    string `yaml:"data"` // ledger database location
}

// GristConfig configures the Grist document connection.
type GristConfig struct {
	ServerURL       string `yaml:"server_url"`
	APIKey          string `yaml:"api_key"`
	DocID           string `yaml:"doc_id"`
	TableID         string `yaml:"table_id"`
	BatchSize       int    `yaml:"batch_size"`
	Timeout         string `yaml:"timeout"`
	ClearBeforeLoad bool   `yaml:"clear_before_load"`
}

// RunConfig configures the supervisor loop.
type RunConfig struct {
	UploadInterval string `yaml:"upload_interval"` // between upload cycles
	SupervisePoll  string `yaml:"supervise_poll"`  // extractor liveness poll
	SettleDelay    string `yaml:"settle_delay"`    // wait after a file event before reading
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration. Directory and timing
// defaults match the original deployment.
func DefaultConfig() *Config {
	return &Config{
		Dirs: DirsConfig{
			Input:   "files/input",
			Archive: "files/archive",
			Error:   "files/error",
			Output:  "files/output",
			Data:    "files/data",
		},
		Grist: GristConfig{
			ServerURL: "https://docs.getgrist.com",
			BatchSize: 100,
			Timeout:   "30s",
		},
		Run: RunConfig{
			UploadInterval: "120s",
			SupervisePoll:  "5s",
			SettleDelay:    "1s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "invextract.log",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults (plus env overrides); the caller decides whether that is
// worth a warning.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides layers the original .env variables over the file
// values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GRIST_API_KEY"); v != "" {
		c.Grist.APIKey = v
	}
	if v := os.Getenv("GRIST_SERVER_URL"); v != "" {
		c.Grist.ServerURL = v
	}
	if v := os.Getenv("GRIST_DOC_ID"); v != "" {
		c.Grist.DocID = v
	}
	if v := os.Getenv("GRIST_TABLE_ID"); v != "" {
		c.Grist.TableID = v
	}
	if v := os.Getenv("UPLOAD_INTERVAL"); v != "" {
		// The original takes seconds; accept both "90" and "90s".
		if secs, err := strconv.Atoi(v); err == nil {
			c.Run.UploadInterval = fmt.Sprintf("%ds", secs)
		} else {
			c.Run.UploadInterval = v
		}
	}
	if v := os.Getenv("WRAPPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("WRAPPER_LOG_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			mb := n / (1024 * 1024)
			if mb < 1 {
				mb = 1
			}
			c.Logging.MaxSizeMB = mb
		}
	}
	if v := os.Getenv("WRAPPER_LOG_BACKUP_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Logging.MaxBackups = n
		}
	}
}

// Validate checks settings needed by every mode. Grist credentials are
// checked separately because watch-only runs do not need them.
func (c *Config) Validate() error {
	if c.Dirs.Input == "" || c.Dirs.Archive == "" || c.Dirs.Error == "" || c.Dirs.Output == "" {
		return fmt.Errorf("all pipeline directories must be set")
	}
	if _, err := time.ParseDuration(c.Run.UploadInterval); err != nil {
		return fmt.Errorf("invalid upload_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Run.SupervisePoll); err != nil {
		return fmt.Errorf("invalid supervise_poll: %w", err)
	}
	if _, err := time.ParseDuration(c.Run.SettleDelay); err != nil {
		return fmt.Errorf("invalid settle_delay: %w", err)
	}
	return nil
}

// ValidateGrist checks the settings the uploader needs.
func (c *Config) ValidateGrist() error {
	if c.Grist.ServerURL == "" {
		return fmt.Errorf("grist server_url is required")
	}
	if c.Grist.APIKey == "" {
		return fmt.Errorf("grist api_key is required (set GRIST_API_KEY)")
	}
	if c.Grist.DocID == "" {
		return fmt.Errorf("grist doc_id is required (set GRIST_DOC_ID)")
	}
	if c.Grist.TableID == "" {
		return fmt.Errorf("grist table_id is required (set GRIST_TABLE_ID)")
	}
	return nil
}

// UploadInterval returns the parsed upload interval.
func (c *Config) UploadInterval() time.Duration {
	return parseDuration(c.Run.UploadInterval, 120*time.Second)
}

// SupervisePoll returns the parsed extractor liveness poll interval.
func (c *Config) SupervisePoll() time.Duration {
	return parseDuration(c.Run.SupervisePoll, 5*time.Second)
}

// SettleDelay returns the parsed file settle delay.
func (c *Config) SettleDelay() time.Duration {
	return parseDuration(c.Run.SettleDelay, time.Second)
}

// GristTimeout returns the parsed Grist request timeout.
func (c *Config) GristTimeout() time.Duration {
	return parseDuration(c.Grist.Timeout, 30*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

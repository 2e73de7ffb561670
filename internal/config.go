// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Data      DataConfig        `yaml:"data"`
	Uploads   UploadsConfig     `yaml:"uploads"`
	Providers ProvidersConfig   `yaml:"providers"`
	Tracker   TrackerConfig     `yaml:"tracker"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.Uploads.Validate(); err != nil {
		return err
	}
	if err := c.Providers.Validate(); err != nil {
		return err
	}
	return c.Tracker.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DataConfig holds the root directory for file-backed data (snapshots
// and uploaded backups live beneath it).
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// SnapshotsDir returns the snapshot store root.
func (c *DataConfig) SnapshotsDir() string {
	return filepath.Join(c.Dir, "snapshots")
}

// UploadsDir returns the directory for uploaded backup files.
func (c *DataConfig) UploadsDir() string {
	return filepath.Join(c.Dir, "uploads")
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// UploadsConfig bounds uploaded backup files.
type UploadsConfig struct {
	MaxSizeMB int `yaml:"max_size_mb"`
	TTLHours  int `yaml:"ttl_hours"`
}

// MaxBytes returns the upload size cap in bytes.
func (c *UploadsConfig) MaxBytes() int64 {
	return int64(c.MaxSizeMB) << 20
}

// TTL returns the upload retention period.
func (c *UploadsConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Required, validation.Min(1), validation.Max(1024)),
		validation.Field(&c.TTLHours, validation.Required, validation.Min(1)),
	)
}

// ProvidersConfig holds external search/LLM provider credentials.
// All keys are optional: a missing provider degrades the pipeline
// (empty search results, placeholder summaries) instead of failing it.
type ProvidersConfig struct {
	TavilyAPIKey    string `yaml:"tavily_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIModel     string `yaml:"openai_model"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-request timeout for provider calls.
func (c *ProvidersConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the providers configuration.
func (c *ProvidersConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1), validation.Max(600)),
	)
}

// TrackerConfig tunes the scheduler and run queue.
type TrackerConfig struct {
	SweepMinutes      int `yaml:"sweep_minutes"`
	TopicDelaySeconds int `yaml:"topic_delay_seconds"`
	RunQueueSize      int `yaml:"run_queue_size"`
	StepTimeoutSecs   int `yaml:"step_timeout_seconds"`
}

// SweepInterval returns the scheduler tick.
func (c *TrackerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepMinutes) * time.Minute
}

// TopicDelay returns the pause between topics within one sweep.
func (c *TrackerConfig) TopicDelay() time.Duration {
	return time.Duration(c.TopicDelaySeconds) * time.Second
}

// StepTimeout returns the per-step timeout for pipeline calls.
func (c *TrackerConfig) StepTimeout() time.Duration {
	return time.Duration(c.StepTimeoutSecs) * time.Second
}

// Validate validates the tracker configuration.
func (c *TrackerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SweepMinutes, validation.Required, validation.Min(1)),
		validation.Field(&c.TopicDelaySeconds, validation.Min(0)),
		validation.Field(&c.RunQueueSize, validation.Required, validation.Min(1)),
		validation.Field(&c.StepTimeoutSecs, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./loaderd.db",
		},
		Data: DataConfig{
			Dir: "./data",
		},
		Uploads: UploadsConfig{
			MaxSizeMB: 100,
			TTLHours:  72,
		},
		Providers: ProvidersConfig{
			AnthropicModel: "claude-sonnet-4-20250514",
			OpenAIModel:    "gpt-4o",
			TimeoutSeconds: 120,
		},
		Tracker: TrackerConfig{
			SweepMinutes:      15,
			TopicDelaySeconds: 5,
			RunQueueSize:      16,
			StepTimeoutSecs:   120,
		},
	}
}

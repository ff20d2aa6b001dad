// Package config loads the scrubber's YAML configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the file.
const (
	EnvVideoServiceURL = "SCRUBBER_VIDEO_SERVICE_URL"
	EnvListenAddr      = "SCRUBBER_LISTEN_ADDR"
	EnvLogLevel        = "SCRUBBER_LOG_LEVEL"
)

type Config struct {
	// Client side
	VideoServiceURL       string `yaml:"video_service_url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	JPEGQuality           int    `yaml:"jpeg_quality"`

	// Video service
	ListenAddr  string `yaml:"listen_addr"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
	FFprobePath string `yaml:"ffprobe_path"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	TempDir     string `yaml:"temp_dir"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns a Config struct with default values
func DefaultConfig() *Config {
	return &Config{
		VideoServiceURL:       "http://localhost:8080",
		RequestTimeoutSeconds: 120,
		JPEGQuality:           92,
		ListenAddr:            ":8080",
		MaxUploadMB:           500,
		FFprobePath:           "ffprobe",
		FFmpegPath:            "ffmpeg",
		TempDir:               "",
		LogLevel:              "info",
		LogFormat:             "text",
	}
}

// DefaultPath is $XDG_CONFIG_HOME/scrubber/config.yaml, or the equivalent
// under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "scrubber.yaml"
	}
	return filepath.Join(dir, "scrubber", "config.yaml")
}

// Load reads configuration from the specified file path. A missing file is
// not an error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvVideoServiceURL); v != "" {
		c.VideoServiceURL = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// fillDefaults restores essential values a file left empty.
func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.VideoServiceURL == "" {
		c.VideoServiceURL = def.VideoServiceURL
	}
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	if c.FFprobePath == "" {
		c.FFprobePath = def.FFprobePath
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = def.FFmpegPath
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = def.LogFormat
	}
}

// Validate rejects values the rest of the program cannot use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.VideoServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("video_service_url %q must be an absolute http(s) URL", c.VideoServiceURL)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative, got %d", c.RequestTimeoutSeconds)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if c.MaxUploadMB < 0 {
		return fmt.Errorf("max_upload_mb must not be negative, got %d", c.MaxUploadMB)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// RequestTimeout is zero when requests are bounded only by their context.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MaxUploadBytes is zero when uploads are not capped.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Save persists the current configuration to the specified file path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// NewLogger builds a logger writing to w at the configured level and format.
// verbose forces debug level.
func (c *Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log_level must be debug, info, warn or error, got %q", s)
	}
	return l, nil
}

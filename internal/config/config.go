package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/azargarov/parproc"
)

// Config defines configuration for the parproc CLI.
type Config struct {
	Workers         int
	PinWorkers      bool
	ReportInterval  time.Duration
	ShutdownTimeout time.Duration
	Retry           RetryConfig
	Log             LogConfig
	MetricsAddr     string
	Download        DownloadConfig
}

// RetryConfig defines retry behavior. Zero values retry forever without
// delay.
type RetryConfig struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// DownloadConfig names the objects copied by the download command.
type DownloadConfig struct {
	Bucket    string
	Prefix    string
	Dest      string
	Overwrite bool
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Workers:        0, // one per CPU
		ReportInterval: parproc.DefaultReportInterval,
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// fileConfig is the on-disk shape shared by YAML, TOML and JSON. Durations
// are strings in time.ParseDuration syntax.
type fileConfig struct {
	Workers         int          `yaml:"workers" toml:"workers" json:"workers"`
	PinWorkers      bool         `yaml:"pin_workers" toml:"pin_workers" json:"pin_workers"`
	ReportInterval  string       `yaml:"report_interval" toml:"report_interval" json:"report_interval"`
	ShutdownTimeout string       `yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout"`
	Retry           fileRetry    `yaml:"retry" toml:"retry" json:"retry"`
	Log             fileLog      `yaml:"log" toml:"log" json:"log"`
	MetricsAddr     string       `yaml:"metrics_addr" toml:"metrics_addr" json:"metrics_addr"`
	Download        fileDownload `yaml:"download" toml:"download" json:"download"`
}

type fileRetry struct {
	MaxAttempts int    `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`
	Initial     string `yaml:"initial" toml:"initial" json:"initial"`
	Max         string `yaml:"max" toml:"max" json:"max"`
}

type fileLog struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
}

type fileDownload struct {
	Bucket    string `yaml:"bucket" toml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" toml:"prefix" json:"prefix"`
	Dest      string `yaml:"dest" toml:"dest" json:"dest"`
	Overwrite bool   `yaml:"overwrite" toml:"overwrite" json:"overwrite"`
}

// LoadFile loads configuration from a YAML, TOML or JSON file, chosen by
// extension. Unset fields keep their defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".json":
		err = json.Unmarshal(data, &fc)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %q", ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.toConfig()
}

func (fc fileConfig) toConfig() (Config, error) {
	cfg := Default()
	if fc.Workers != 0 {
		cfg.Workers = fc.Workers
	}
	cfg.PinWorkers = fc.PinWorkers

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"report_interval", fc.ReportInterval, &cfg.ReportInterval},
		{"shutdown_timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout},
		{"retry.initial", fc.Retry.Initial, &cfg.Retry.Initial},
		{"retry.max", fc.Retry.Max, &cfg.Retry.Max},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	if fc.Retry.MaxAttempts != 0 {
		cfg.Retry.MaxAttempts = fc.Retry.MaxAttempts
	}
	if fc.Log.Level != "" {
		cfg.Log.Level = fc.Log.Level
	}
	if fc.Log.Format != "" {
		cfg.Log.Format = fc.Log.Format
	}
	cfg.MetricsAddr = fc.MetricsAddr
	cfg.Download = DownloadConfig(fc.Download)
	return cfg, nil
}

func (c Config) toFile() fileConfig {
	dur := func(d time.Duration) string {
		if d == 0 {
			return ""
		}
		return d.String()
	}
	return fileConfig{
		Workers:         c.Workers,
		PinWorkers:      c.PinWorkers,
		ReportInterval:  dur(c.ReportInterval),
		ShutdownTimeout: dur(c.ShutdownTimeout),
		Retry: fileRetry{
			MaxAttempts: c.Retry.MaxAttempts,
			Initial:     dur(c.Retry.Initial),
			Max:         dur(c.Retry.Max),
		},
		Log:         fileLog(c.Log),
		MetricsAddr: c.MetricsAddr,
		Download:    fileDownload(c.Download),
	}
}

// Encode renders c in the file format named by format: yaml, toml or
// json. The output loads back through LoadFile.
func (c Config) Encode(format string) ([]byte, error) {
	fc := c.toFile()
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		return yaml.Marshal(fc)
	case "toml":
		return toml.Marshal(fc)
	case "json":
		return json.MarshalIndent(fc, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported config format: %q", format)
	}
}

// LoadFromEnv overrides c from environment variables with the PARPROC_
// prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("PARPROC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PARPROC_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("PARPROC_PIN_WORKERS"); v != "" {
		c.PinWorkers = envBool(v)
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PARPROC_REPORT_INTERVAL", &c.ReportInterval},
		{"PARPROC_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout},
		{"PARPROC_RETRY_INITIAL", &c.Retry.Initial},
		{"PARPROC_RETRY_MAX", &c.Retry.Max},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		dur, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = dur
	}
	if v := os.Getenv("PARPROC_RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PARPROC_RETRY_MAX_ATTEMPTS: %w", err)
		}
		c.Retry.MaxAttempts = n
	}
	if v := os.Getenv("PARPROC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PARPROC_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("PARPROC_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("PARPROC_BUCKET"); v != "" {
		c.Download.Bucket = v
	}
	if v := os.Getenv("PARPROC_PREFIX"); v != "" {
		c.Download.Prefix = v
	}
	if v := os.Getenv("PARPROC_DEST"); v != "" {
		c.Download.Dest = v
	}
	if v := os.Getenv("PARPROC_OVERWRITE"); v != "" {
		c.Download.Overwrite = envBool(v)
	}
	return nil
}

func envBool(v string) bool {
	return v == "true" || v == "1"
}

// Validate checks the pool and logging settings.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return errors.New("config: workers must not be negative")
	}
	if c.ReportInterval <= 0 {
		return errors.New("config: report_interval must be positive")
	}
	if c.ShutdownTimeout < 0 {
		return errors.New("config: shutdown_timeout must not be negative")
	}
	if c.Retry.MaxAttempts < 0 {
		return errors.New("config: retry.max_attempts must not be negative")
	}
	if c.Retry.Initial < 0 || c.Retry.Max < 0 {
		return errors.New("config: retry delays must not be negative")
	}
	if c.Retry.Max > 0 && c.Retry.Initial > c.Retry.Max {
		return fmt.Errorf("config: retry.initial %s exceeds retry.max %s", c.Retry.Initial, c.Retry.Max)
	}
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// ValidateDownload checks the download settings in addition to Validate.
func (c *Config) ValidateDownload() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Download.Bucket == "" {
		return errors.New("config: download.bucket is required")
	}
	if c.Download.Dest == "" {
		return errors.New("config: download.dest is required")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.PinWorkers {
		c.PinWorkers = true
	}
	if override.ReportInterval != 0 {
		c.ReportInterval = override.ReportInterval
	}
	if override.ShutdownTimeout != 0 {
		c.ShutdownTimeout = override.ShutdownTimeout
	}
	if override.Retry.MaxAttempts != 0 {
		c.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.Initial != 0 {
		c.Retry.Initial = override.Retry.Initial
	}
	if override.Retry.Max != 0 {
		c.Retry.Max = override.Retry.Max
	}
	if override.Log.Level != "" {
		c.Log.Level = override.Log.Level
	}
	if override.Log.Format != "" {
		c.Log.Format = override.Log.Format
	}
	if override.MetricsAddr != "" {
		c.MetricsAddr = override.MetricsAddr
	}
	if override.Download.Bucket != "" {
		c.Download.Bucket = override.Download.Bucket
	}
	if override.Download.Prefix != "" {
		c.Download.Prefix = override.Download.Prefix
	}
	if override.Download.Dest != "" {
		c.Download.Dest = override.Download.Dest
	}
	if override.Download.Overwrite {
		c.Download.Overwrite = true
	}
	return c
}

// PoolOptions translates c into pool options logging to log.
func (c Config) PoolOptions(log *zap.Logger) parproc.Options {
	return parproc.Options{
		Workers:         c.Workers,
		PinWorkers:      c.PinWorkers,
		ReportInterval:  c.ReportInterval,
		ShutdownTimeout: c.ShutdownTimeout,
		Retry:           c.Retry.toPolicy(),
		Logger:          log,
	}
}

func (r RetryConfig) toPolicy() parproc.RetryPolicy {
	return parproc.RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		Initial:     r.Initial,
		Max:         r.Max,
	}
}

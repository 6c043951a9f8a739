package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ytget/mangadl/internal/logger"
)

const (
	configDirName  = "mangadl"
	configFileName = "config.yaml"
	defaultReferer = "https://www.mangago.me/"
)

// Config is the YAML form of every CLI setting. Flags given explicitly on
// the command line win over the file.
type Config struct {
	Output       string        `yaml:"output"`
	Workers      int           `yaml:"workers"`
	ImageWorkers int           `yaml:"image_workers"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	Retries      int           `yaml:"retries"`
	UserAgent    string        `yaml:"user_agent"`
	Proxy        string        `yaml:"proxy"`
	Referer      string        `yaml:"referer"`
	Engine       string        `yaml:"engine"`
	EvalTimeout  time.Duration `yaml:"eval_timeout"`
	KeyCacheDir  string        `yaml:"key_cache_dir"`
	RateLimit    string        `yaml:"rate_limit"`
	JPEGQuality  int           `yaml:"jpeg_quality"`
	CBZ          bool          `yaml:"cbz"`
	KeepFolder   bool          `yaml:"keep_folder"`

	Log *logger.LogConfig `yaml:"log,omitempty"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Output:       ".",
		Workers:      4,
		ImageWorkers: 4,
		HTTPTimeout:  30 * time.Second,
		Retries:      3,
		Referer:      defaultReferer,
		Engine:       "otto",
		EvalTimeout:  10 * time.Second,
		JPEGQuality:  92,
	}
}

// defaultConfigPath is <user config dir>/mangadl/config.yaml.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, configFileName)
}

// loadConfig reads path over the defaults. An empty path falls back to the
// default location, where a missing file is not an error.
func loadConfig(path string) (*Config, string, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, "", nil
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, "", nil
		}
		return nil, "", fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, path, nil
}

// saveConfig writes cfg as YAML, creating parent directories.
func saveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// mergeFlags copies every flag the user set explicitly from src into cfg.
func mergeFlags(cfg *Config, src *Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}
	set("output", func() { cfg.Output = src.Output })
	set("workers", func() { cfg.Workers = src.Workers })
	set("image-workers", func() { cfg.ImageWorkers = src.ImageWorkers })
	set("http-timeout", func() { cfg.HTTPTimeout = src.HTTPTimeout })
	set("retries", func() { cfg.Retries = src.Retries })
	set("ua", func() { cfg.UserAgent = src.UserAgent })
	set("proxy", func() { cfg.Proxy = src.Proxy })
	set("referer", func() { cfg.Referer = src.Referer })
	set("engine", func() { cfg.Engine = src.Engine })
	set("eval-timeout", func() { cfg.EvalTimeout = src.EvalTimeout })
	set("key-cache-dir", func() { cfg.KeyCacheDir = src.KeyCacheDir })
	set("rate-limit", func() { cfg.RateLimit = src.RateLimit })
	set("jpeg-quality", func() { cfg.JPEGQuality = src.JPEGQuality })
	set("cbz", func() { cfg.CBZ = src.CBZ })
	set("keep-folder", func() { cfg.KeepFolder = src.KeepFolder })
}

// parseRate parses strings like "2MiB/s", "500KiB/s" into bytes per second.
func parseRate(s string) int64 {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0
	}
	mul := int64(1)
	s = strings.TrimSpace(strings.TrimSuffix(s, "/S"))
	sfx := ""
	for _, suf := range []string{"KIB", "MIB", "GIB", "KB", "MB", "GB"} {
		if strings.HasSuffix(s, suf) {
			sfx = suf
			s = strings.TrimSuffix(s, suf)
			break
		}
	}
	s = strings.TrimSpace(s)
	var val float64
	if _, err := fmt.Sscanf(s, "%f", &val); err != nil || val <= 0 {
		return 0
	}
	switch sfx {
	case "KIB":
		mul = 1024
	case "MIB":
		mul = 1024 * 1024
	case "GIB":
		mul = 1024 * 1024 * 1024
	case "KB":
		mul = 1000
	case "MB":
		mul = 1000 * 1000
	case "GB":
		mul = 1000 * 1000 * 1000
	}
	return int64(val * float64(mul))
}

// setupLogging builds the global logger from the config file section, the
// MANGADL_LOG_* environment and the --log-level/--log-format flags.
func setupLogging(cfg *Config, level, format string) error {
	lc := cfg.Log
	if lc == nil {
		lc = logger.DefaultLogConfig()
	}
	lc = logger.EnvironmentConfig(lc)
	if level != "" {
		lc.Level = level
	}
	if format != "" {
		lc.Format = format
	}
	if err := lc.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	l, err := logger.CreateLoggerFromConfig(lc)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	logger.SetGlobalLogger(l)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

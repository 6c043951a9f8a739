package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by EnvironmentConfig.
const EnvPrefix = "MANGADL_LOG_"

// LogConfig is the file and environment form of Config.
type LogConfig struct {
	Level      string          `json:"level" yaml:"level"`
	Format     string          `json:"format" yaml:"format"`
	Output     string          `json:"output" yaml:"output"`
	Components map[string]bool `json:"components,omitempty" yaml:"components,omitempty"`
	ShowCaller bool            `json:"show_caller" yaml:"show_caller"`
	Timestamp  bool            `json:"timestamp" yaml:"timestamp"`
}

// DefaultLogConfig mirrors DefaultConfig.
func DefaultLogConfig() *LogConfig {
	components := make(map[string]bool, len(AllComponents))
	for _, c := range AllComponents {
		components[string(c)] = c == ComponentApp
	}
	return &LogConfig{
		Level:      "INFO",
		Format:     "text",
		Output:     "stderr",
		Components: components,
	}
}

// LoadConfigFromFile reads a JSON or YAML (by extension) logging config.
func LoadConfigFromFile(filename string) (*LogConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultLogConfig()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}

// SaveConfigToFile writes c as indented JSON, or YAML for .yaml/.yml names.
func (c *LogConfig) SaveConfigToFile(filename string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ToLoggerConfig converts c to a Config, opening file outputs as needed.
func (c *LogConfig) ToLoggerConfig() (*Config, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(c.Format)
	if err != nil {
		return nil, err
	}
	output, err := openOutput(c.Output)
	if err != nil {
		return nil, err
	}

	components := make(map[Component]bool, len(c.Components))
	for name, enabled := range c.Components {
		if name == "all" {
			for _, comp := range AllComponents {
				components[comp] = enabled
			}
			continue
		}
		components[Component(name)] = enabled
	}

	return &Config{
		Level:      level,
		Format:     format,
		Output:     output,
		Components: components,
		ShowCaller: c.ShowCaller,
		Timestamp:  c.Timestamp,
	}, nil
}

// Validate checks level, format and output without opening files.
func (c *LogConfig) Validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if _, err := ParseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}
	switch out := strings.ToLower(c.Output); {
	case out == "", out == "stdout", out == "stderr", out == "null", out == "none":
	case strings.HasPrefix(out, "file:") && len(out) > len("file:"):
	default:
		return fmt.Errorf("invalid output: %s", c.Output)
	}
	return nil
}

// ParseLevel parses a case-insensitive level name.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "INFO", "":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown level: %s", s)
	}
}

// ParseFormat parses text, json or color.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "color", "colored":
		return FormatColor, nil
	default:
		return FormatText, fmt.Errorf("unknown format: %s", s)
	}
}

func openOutput(s string) (io.Writer, error) {
	switch strings.ToLower(s) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	case "null", "none":
		return io.Discard, nil
	}
	if !strings.HasPrefix(s, "file:") {
		return nil, fmt.Errorf("unknown output: %s", s)
	}
	path := strings.TrimPrefix(s, "file:")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// CreateLoggerFromConfig builds a Logger from c.
func CreateLoggerFromConfig(c *LogConfig) (*Logger, error) {
	config, err := c.ToLoggerConfig()
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}
	return New(config), nil
}

// EnvironmentConfig overlays MANGADL_LOG_* variables on base, or on the
// defaults when base is nil.
func EnvironmentConfig(base *LogConfig) *LogConfig {
	config := base
	if config == nil {
		config = DefaultLogConfig()
	}
	if v := os.Getenv(EnvPrefix + "LEVEL"); v != "" {
		config.Level = v
	}
	if v := os.Getenv(EnvPrefix + "FORMAT"); v != "" {
		config.Format = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT"); v != "" {
		config.Output = v
	}
	if v := os.Getenv(EnvPrefix + "CALLER"); v != "" {
		config.ShowCaller = truthy(v)
	}
	if v := os.Getenv(EnvPrefix + "TIMESTAMP"); v != "" {
		config.Timestamp = truthy(v)
	}
	// A component list replaces the enable map outright.
	if v := os.Getenv(EnvPrefix + "COMPONENTS"); v != "" {
		config.Components = make(map[string]bool)
		for _, comp := range strings.Split(v, ",") {
			if comp = strings.TrimSpace(comp); comp != "" {
				config.Components[comp] = true
			}
		}
	}
	return config
}

func truthy(s string) bool {
	return s == "1" || strings.EqualFold(s, "true") || strings.EqualFold(s, "yes")
}

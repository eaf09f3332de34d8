package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/scalebloom"
)

// Config holds defaults for the command line tool, read from a YAML file.
type Config struct {
	Capacity      int     `yaml:"capacity"`
	ErrorRate     float64 `yaml:"error_rate"`
	FillThreshold float64 `yaml:"fill_threshold"`
	Compression   string  `yaml:"compression"`
	Log           struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	c := Config{
		Capacity:      100_000,
		ErrorRate:     0.01,
		FillThreshold: 0.8,
		Compression:   "zstd",
	}
	c.Log.Level = "warn"
	c.Log.Format = "text"
	return c
}

// LoadConfig reads path over the defaults. An empty path yields the defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, c.Validate()
}

// Validate checks the values that the library does not check itself.
func (c Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log format %q: must be text or json", c.Log.Format)
	}
	if _, err := scalebloom.ParseCompression(c.Compression); err != nil {
		return err
	}
	if c.Capacity < 1 {
		return errors.New("capacity must be greater than zero")
	}
	return nil
}

func (c Config) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return l, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	return l, nil
}

// Logger builds the logger described by the config.
func (c Config) Logger() *scalebloom.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelWarn
	}
	if c.Log.Format == "json" {
		return scalebloom.NewJSONLogger(level)
	}
	return scalebloom.NewTextLogger(level)
}

// Options returns the filter options derived from the config.
func (c Config) Options() []scalebloom.Option {
	return []scalebloom.Option{
		scalebloom.WithLogger(c.Logger()),
		scalebloom.WithFillThreshold(c.FillThreshold),
	}
}

package pngrepack

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk form of the batch runner's settings.
type Config struct {
	Root      string `yaml:"root"`
	Threshold string `yaml:"threshold"` // e.g. "1MB", "500 KiB"
	Limit     int    `yaml:"limit"`
	Apply     bool   `yaml:"apply"`
	Debug     bool   `yaml:"debug"`
}

// DefaultConfig scans the working directory for PNGs of at
// least 1MB, without modifying them.
func DefaultConfig() Config {
	return Config{
		Root:      ".",
		Threshold: "1MB",
	}
}

// ReadConfig loads a YAML config file. Keys missing from the
// file keep their DefaultConfig values.
func ReadConfig(path string) (Config, error) {
	c := DefaultConfig()
	buf, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// Options converts the config into runner options.
func (c Config) Options() (Options, error) {
	threshold, err := humanize.ParseBytes(c.Threshold)
	if err != nil {
		return Options{}, fmt.Errorf("threshold %q: %w", c.Threshold, err)
	}
	if c.Limit < 0 {
		return Options{}, fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	return Options{
		Root:      c.Root,
		Threshold: threshold,
		Limit:     c.Limit,
		Apply:     c.Apply,
	}, nil
}

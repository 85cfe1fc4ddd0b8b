package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lu-zhengda/appsweep/internal/logging"
	"github.com/lu-zhengda/appsweep/internal/utils"
	"gopkg.in/yaml.v3"
)

const defaultGracePeriod = 2 * time.Second

// Config holds all appsweep configuration.
type Config struct {
	Roots       RootsConfig   `yaml:"roots"`
	Library     string        `yaml:"library"`
	GracePeriod string        `yaml:"grace_period"`
	Concurrency int           `yaml:"concurrency"`
	Exclude     []string      `yaml:"exclude"`
	History     HistoryConfig `yaml:"history"`
	LogLevel    string        `yaml:"log_level"`
}

// RootsConfig names the directories scanned for application bundles.
type RootsConfig struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// HistoryConfig controls the removal history log.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a Config with all default values populated.
func Default() *Config {
	return &Config{
		Roots: RootsConfig{
			System: "/Applications",
			User:   "~/Applications",
		},
		Library:     "~/Library",
		GracePeriod: "2s",
		Concurrency: 8,
		Exclude:     []string{},
		History:     HistoryConfig{Enabled: true},
		LogLevel:    "warn",
	}
}

// DefaultPath is ~/.config/appsweep/config.yaml.
func DefaultPath() string {
	return filepath.Join(utils.HomeDir(), ".config", "appsweep", "config.yaml")
}

// Load loads config from the given path. If path is empty, it uses
// DefaultPath. If the file does not exist, it creates it with default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	return LoadFrom(path)
}

// LoadFrom loads and parses config from the given path. Missing fields
// keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Save marshals the config to YAML and writes it to the given path,
// creating parent directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
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

// SystemRoot returns the system application root with "~" expanded.
func (c *Config) SystemRoot() string { return utils.ExpandHome(c.Roots.System) }

// UserRoot returns the per-user application root with "~" expanded.
func (c *Config) UserRoot() string { return utils.ExpandHome(c.Roots.User) }

// LibraryDir returns the per-user Library directory with "~" expanded.
func (c *Config) LibraryDir() string { return utils.ExpandHome(c.Library) }

// Grace returns the wait after a quit request, 2s when unset or invalid.
func (c *Config) Grace() time.Duration {
	d, err := parseDuration(c.GracePeriod)
	if err != nil || d < 0 {
		return defaultGracePeriod
	}
	return d
}

// Workers returns the sizing concurrency, at least 1.
func (c *Config) Workers() int {
	if c.Concurrency < 1 {
		return 1
	}
	return c.Concurrency
}

// Validate returns a human-readable warning for every setting that will be
// ignored or replaced by a default.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Roots.System == "" && c.Roots.User == "" {
		warnings = append(warnings, "roots: both application roots are empty; /Applications and ~/Applications will be used")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		warnings = append(warnings, fmt.Sprintf("log_level: %v; using warn", err))
	}
	if c.Concurrency < 1 {
		warnings = append(warnings, fmt.Sprintf("concurrency: %d is not positive; using 1", c.Concurrency))
	}
	if c.GracePeriod != "" {
		d, err := parseDuration(c.GracePeriod)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("grace_period: %v; using %s", err, defaultGracePeriod))
		case d < 0:
			warnings = append(warnings, fmt.Sprintf("grace_period: %q is negative; using %s", c.GracePeriod, defaultGracePeriod))
		}
	}
	for _, pattern := range c.Exclude {
		glob := strings.TrimSuffix(pattern, "/**")
		if _, err := filepath.Match(glob, ""); err != nil {
			warnings = append(warnings, fmt.Sprintf("exclude: bad pattern %q: %v", pattern, err))
		}
	}

	return warnings
}

type sizeSuffix struct {
	suffix string
	mult   int64
}

var sizeSuffixes = []sizeSuffix{
	{"TB", 1024 * 1024 * 1024 * 1024},
	{"GB", 1024 * 1024 * 1024},
	{"MB", 1024 * 1024},
	{"KB", 1024},
}

// ParseSize parses a human-readable size string like "100MB", "1GB",
// "500KB", "2TB", or a plain number (bytes) into int64 bytes.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	for _, ss := range sizeSuffixes {
		if strings.HasSuffix(upper, ss.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(upper, ss.suffix))
			if numStr == "" {
				return 0, fmt.Errorf("missing numeric value in %q", s)
			}
			n, err := strconv.ParseInt(numStr, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size %q: %w", s, err)
			}
			if n < 0 {
				return 0, fmt.Errorf("negative size %q", s)
			}
			return n * ss.mult, nil
		}
	}

	// Plain number (bytes), optionally with a trailing "B".
	n, err := strconv.ParseInt(strings.TrimSuffix(upper, "B"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %q", s)
	}
	return n, nil
}

// IsExcluded checks if the given path matches any of the configured
// exclude glob patterns. Matching is done against the full path (with "~"
// expanded in the pattern) and against the base name. Patterns ending in
// "/**" are treated as directory prefix matches.
func (c *Config) IsExcluded(path string) bool {
	for _, pattern := range c.Exclude {
		pattern = utils.ExpandHome(pattern)

		if strings.HasSuffix(pattern, "/**") {
			prefix := strings.TrimSuffix(pattern, "/**")
			if strings.HasPrefix(path, prefix+"/") || path == prefix {
				return true
			}
			continue
		}

		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
		// Base name match, for patterns like "*.plist".
		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}
	}
	return false
}

// ParseDuration parses duration strings like "2s", "500ms" or "1d" into
// time.Duration, returning fallback for empty or unparseable strings.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := parseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

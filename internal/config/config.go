// Package config loads sdguide.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/sdguide/internal/index"
	"github.com/phobologic/sdguide/internal/testrunner"
)

// ProjectConfigFile is looked up in the working directory and its parents.
const ProjectConfigFile = "sdguide.yaml"

// Config is the complete sdguide configuration.
type Config struct {
	Discover DiscoverConfig `yaml:"discover"`
	Tester   TesterConfig   `yaml:"tester"`
}

// DiscoverConfig controls which files are indexed.
type DiscoverConfig struct {
	// Include and Exclude are doublestar patterns relative to the repo root.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	// Workers is the number of parse workers (0 = GOMAXPROCS).
	Workers     int   `yaml:"workers"`
	MaxFileSize int64 `yaml:"max_file_size"`
}

// TesterConfig configures the test runner and its HTTP API.
type TesterConfig struct {
	Listen string `yaml:"listen"`
	// Suites is keyed by suite name, e.g. "system" or "STAGING_TEST".
	Suites map[string]SuiteConfig `yaml:"suites"`
}

// SuiteConfig is the command run for one suite.
type SuiteConfig struct {
	Command []string          `yaml:"command"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
	Timeout time.Duration     `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Discover: DiscoverConfig{
			MaxFileSize: index.DefaultMaxFileSize,
		},
		Tester: TesterConfig{
			Listen: "localhost:19092",
			Suites: map[string]SuiteConfig{},
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Discover.Workers < 0 {
		return fmt.Errorf("discover.workers must not be negative")
	}
	if c.Discover.MaxFileSize < 0 {
		return fmt.Errorf("discover.max_file_size must not be negative")
	}
	for _, p := range append(append([]string(nil), c.Discover.Include...), c.Discover.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid discover pattern %q", p)
		}
	}
	if c.Tester.Listen == "" {
		return fmt.Errorf("tester.listen is required")
	}
	for name, sc := range c.Tester.Suites {
		if _, err := testrunner.ParseSuite(name); err != nil {
			return fmt.Errorf("tester.suites: %w", err)
		}
		if len(sc.Command) == 0 {
			return fmt.Errorf("tester.suites.%s.command is required", name)
		}
		if sc.Timeout < 0 {
			return fmt.Errorf("tester.suites.%s.timeout must not be negative", name)
		}
	}
	return nil
}

// SuiteCommands converts the configured suites for a CommandRunner. Dir is
// resolved against base when relative.
func (c *Config) SuiteCommands(base string) (map[testrunner.Suite]testrunner.SuiteCommand, error) {
	out := make(map[testrunner.Suite]testrunner.SuiteCommand, len(c.Tester.Suites))
	for name, sc := range c.Tester.Suites {
		suite, err := testrunner.ParseSuite(name)
		if err != nil {
			return nil, err
		}
		if _, dup := out[suite]; dup {
			return nil, fmt.Errorf("suite %s configured twice", suite)
		}
		dir := sc.Dir
		if dir != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		keys := make([]string, 0, len(sc.Env))
		for k := range sc.Env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		env := make([]string, 0, len(keys))
		for _, k := range keys {
			env = append(env, k+"="+sc.Env[k])
		}
		out[suite] = testrunner.SuiteCommand{
			Command: sc.Command,
			Dir:     dir,
			Env:     env,
			Timeout: sc.Timeout,
		}
	}
	return out, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// FindProjectConfig returns the nearest sdguide.yaml at or above dir, or ""
// when there is none.
func FindProjectConfig(dir string) string {
	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads path, or the nearest project config above dir when path is
// empty, and validates the result. Without any file the defaults are used.
func Load(path, dir string) (*Config, error) {
	if path == "" {
		path = FindProjectConfig(dir)
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

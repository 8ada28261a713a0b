// Package config loads .kconfigmap.yaml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/kconfigmap/internal/token"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".kconfigmap.yaml"

// Config is the on-disk configuration.
type Config struct {
	// Root is the top-level Kconfig file.
	Root string `yaml:"root"`
	// Srctree is the base directory of source directives and the value of
	// $(srctree). Empty means the directory of Root.
	Srctree string `yaml:"srctree,omitempty"`
	// Env holds macro values that take precedence over the environment.
	Env map[string]string `yaml:"env,omitempty"`
	// Exclude lists globs of paths the watcher ignores.
	Exclude   []string `yaml:"exclude,omitempty"`
	Debounce  string   `yaml:"debounce"`
	MaxFiles  int      `yaml:"max_files"`
	CacheSize int      `yaml:"cache_size"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Root:      "Kconfig",
		Debounce:  "200ms",
		CacheSize: 256,
	}
}

// Load reads path over the defaults and applies KCONFIGMAP_* environment
// overrides. A missing file is not an error. Relative Root and Srctree are
// resolved against the directory holding path.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.resolve(filepath.Dir(path))
	}

	applyEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolve(dir string) {
	if c.Root != "" && !filepath.IsAbs(c.Root) {
		c.Root = filepath.Join(dir, c.Root)
	}
	if c.Srctree != "" && !filepath.IsAbs(c.Srctree) {
		c.Srctree = filepath.Join(dir, c.Srctree)
	}
}

func applyEnvironment(cfg *Config) {
	if v := os.Getenv("KCONFIGMAP_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("KCONFIGMAP_SRCTREE"); v != "" {
		cfg.Srctree = v
	}
	if v := os.Getenv("KCONFIGMAP_DEBOUNCE"); v != "" {
		cfg.Debounce = v
	}
}

// Validate checks value ranges and the debounce duration.
func (c *Config) Validate() error {
	if _, err := c.DebounceInterval(); err != nil {
		return err
	}
	if c.MaxFiles < 0 {
		return fmt.Errorf("max_files must not be negative, got %d", c.MaxFiles)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	return nil
}

// DebounceInterval parses Debounce. An empty value means no debouncing.
func (c *Config) DebounceInterval() (time.Duration, error) {
	if c.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid debounce %q: %w", c.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("debounce must not be negative, got %s", d)
	}
	return d, nil
}

// Lookup resolves macro placeholders from Env, then srctree, then the
// process environment.
func (c *Config) Lookup() token.Lookup {
	return func(name string) (string, bool) {
		if v, ok := c.Env[name]; ok {
			return v, true
		}
		if name == "srctree" && c.Srctree != "" {
			return c.Srctree, true
		}
		return os.LookupEnv(name)
	}
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

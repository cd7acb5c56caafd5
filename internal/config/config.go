// Package config loads phest.yaml: the sites layout, fingerprint backend,
// plugin search path, watch behavior and logging.
package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "phest.yaml"

// Config is the root of phest.yaml.
type Config struct {
	SitesRoot   string            `yaml:"sites_root" validate:"required"`
	CacheDir    string            `yaml:"cache_dir" validate:"required"`
	Plugins     PluginsConfig     `yaml:"plugins"`
	Fingerprint FingerprintConfig `yaml:"fingerprint"`
	Watch       WatchConfig       `yaml:"watch"`
	Build       BuildConfig       `yaml:"build"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`

	// path of the file this config was read from; empty for defaults
	source string
}

// PluginsConfig defines the plugin search path. DefaultDir is searched first.
type PluginsConfig struct {
	DefaultDir string   `yaml:"default_dir"`
	Dirs       []string `yaml:"dirs"`
}

// FingerprintConfig selects where build fingerprints are stored.
type FingerprintConfig struct {
	Backend Backend `yaml:"backend" validate:"oneof=file sqlite"`
	// Path is a directory for the file backend and a database file for sqlite.
	Path string `yaml:"path"`
}

// WatchConfig controls watch list collection and the watch command.
type WatchConfig struct {
	// Strict reports missing watched files as build errors.
	Strict       bool          `yaml:"strict"`
	Ignore       []string      `yaml:"ignore"`
	Debounce     time.Duration `yaml:"debounce" validate:"gte=0"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"omitempty,gte=1s"`
	Concurrency  int           `yaml:"concurrency" validate:"gte=0,lte=256"`
}

// BuildConfig is the default site identity; CLI flags override it.
type BuildConfig struct {
	Site      string `yaml:"site" validate:"omitempty,excludesall=/\\"`
	Lang      string `yaml:"lang" validate:"omitempty,bcp47_language_tag"`
	BuildType string `yaml:"build_type" validate:"required,excludesall=/\\"`
}

// LoggingConfig sets the default slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Source returns the file the config was loaded from.
func (c *Config) Source() string { return c.source }

// Load reads, expands, defaults, normalizes and validates the file at path.
// An empty path selects DefaultFileName; if that file does not exist the
// defaults are used. A missing explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			cfg := Default()
			loadEnvFiles(".")
			if err := finalize(cfg, "."); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, ferrors.ConfigError("configuration file not found").
			WithCause(err).
			WithContext("path", path).
			Build()
	}

	loadEnvFiles(filepath.Dir(path))

	// #nosec G304 - path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.FileSystemError("read configuration file").WithCause(err).WithContext("path", path).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, ferrors.ConfigError("parse configuration file").WithCause(err).WithContext("path", path).Build()
	}
	cfg.source = path
	if err := finalize(cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults after expanding ${VAR}
// references. Unknown keys are rejected. Parse does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

func finalize(cfg *Config, baseDir string) error {
	applyDefaults(cfg)
	if err := normalize(cfg); err != nil {
		return err
	}
	cfg.resolvePaths(baseDir)
	return Validate(cfg)
}

// resolvePaths makes relative paths relative to the config file's directory.
func (c *Config) resolvePaths(baseDir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.SitesRoot = abs(c.SitesRoot)
	c.CacheDir = abs(c.CacheDir)
	c.Plugins.DefaultDir = abs(c.Plugins.DefaultDir)
	for i, d := range c.Plugins.Dirs {
		c.Plugins.Dirs[i] = abs(d)
	}
	c.Fingerprint.Path = abs(c.Fingerprint.Path)
	c.Metrics.Textfile = abs(c.Metrics.Textfile)
}

// PluginSearchPath returns the default directory followed by the
// configured ones.
func (c *Config) PluginSearchPath() []string {
	dirs := make([]string, 0, 1+len(c.Plugins.Dirs))
	if c.Plugins.DefaultDir != "" {
		dirs = append(dirs, c.Plugins.DefaultDir)
	}
	return append(dirs, c.Plugins.Dirs...)
}

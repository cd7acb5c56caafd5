// Package commands implements the phest CLI.
package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/phest/internal/build"
	"git.home.luguber.info/inful/phest/internal/config"
	"git.home.luguber.info/inful/phest/internal/fingerprint"
	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
	"git.home.luguber.info/inful/phest/internal/metrics"
)

var (
	// ErrBuildErrors is returned when a danger section holds messages.
	ErrBuildErrors = errors.New("build reported errors")
	// ErrUpToDate is returned by check --fail-up-to-date when nothing changed.
	ErrUpToDate = errors.New("site is up to date")
)

// Global is shared state bound into every command's Run.
type Global struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Recorder metrics.Recorder
}

// CLI definition & global flags.
type CLI struct {
	Config      string           `short:"c" help:"Configuration file path (default: ./phest.yaml when present)" type:"path"`
	Verbose     bool             `short:"v" help:"Enable verbose logging"`
	LogLevel    string           `name:"log-level" env:"PHEST_LOG_LEVEL" help:"Log level (debug, info, warn, error); overrides logging.level"`
	LogFormat   string           `name:"log-format" env:"PHEST_LOG_FORMAT" help:"Log format (text, json); overrides logging.format"`
	MetricsFile string           `name:"metrics-file" help:"Write Prometheus metrics to this textfile on exit; overrides metrics.textfile" type:"path"`
	Version     kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check  CheckCmd  `cmd:"" help:"Decide whether a site needs rebuilding and record the new fingerprint"`
	Paths  PathsCmd  `cmd:"" help:"Print the source and output paths of a site"`
	Plugin PluginCmd `cmd:"" help:"Resolve and load plugins from the search path"`
	Watch  WatchCmd  `cmd:"" help:"Re-run check whenever the site source changes"`
	Init   InitCmd   `cmd:"" help:"Write a default configuration file"`

	stderr io.Writer
	cfg    *config.Config
}

// IdentityFlags select the site, language and build type.
type IdentityFlags struct {
	Site      string `short:"s" help:"Site name (default: build.site)"`
	Lang      string `short:"l" help:"Output language (default: build.lang)"`
	BuildType string `short:"t" name:"build-type" help:"Build type (default: build.build_type)"`
}

// SetStderr selects where logs go. Must be called before parsing.
func (c *CLI) SetStderr(w io.Writer) { c.stderr = w }

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	c.configureLogging(config.Default().Logging)
	return nil
}

func (c *CLI) configureLogging(base config.LoggingConfig) {
	if c.LogLevel != "" {
		base.Level = config.NormalizeLogLevel(c.LogLevel)
	}
	if c.LogFormat != "" {
		base.Format = config.NormalizeLogFormat(c.LogFormat)
	}
	if c.Verbose {
		base.Level = config.LogLevelDebug
	}
	w := c.stderr
	if w == nil {
		w = os.Stderr
	}
	slog.SetDefault(slog.New(base.NewHandler(w)))
}

// LoadConfig loads the configuration once and applies its logging section.
func (c *CLI) LoadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.configureLogging(cfg.Logging)
	return cfg, nil
}

// Loaded returns the configuration if a command loaded it.
func (c *CLI) Loaded() *config.Config { return c.cfg }

// MetricsPath is the textfile to export to, or "".
func (c *CLI) MetricsPath() string {
	if c.MetricsFile != "" {
		return c.MetricsFile
	}
	if c.cfg != nil {
		return c.cfg.Metrics.Textfile
	}
	return ""
}

// openStore opens the configured fingerprint backend.
func openStore(cfg *config.Config) (fingerprint.Store, error) {
	switch cfg.Fingerprint.Backend {
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Fingerprint.Path), 0o750); err != nil {
			return nil, ferrors.FileSystemError("create fingerprint directory").WithCause(err).Build()
		}
		return fingerprint.NewSQLiteStore(cfg.Fingerprint.Path)
	default:
		return fingerprint.NewFSStore(cfg.Fingerprint.Path)
	}
}

// newBuildContext builds a Context for the selected identity. The returned
// close function releases the fingerprint store.
func newBuildContext(ctx context.Context, g *Global, root *CLI, id IdentityFlags, cmd string) (*build.Context, func(), error) {
	cfg, err := root.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	site := firstNonEmpty(id.Site, cfg.Build.Site)
	if site == "" {
		return nil, nil, ferrors.ValidationError("no site selected (use --site or build.site)").Build()
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	bc := build.New(cfg.SitesRoot, store,
		build.WithLogger(slog.Default().With("command", cmd)),
		build.WithRecorder(g.Recorder),
		build.WithDefaultPluginDir(cfg.Plugins.DefaultDir),
		build.WithPluginDirs(cfg.Plugins.Dirs...),
		build.WithStrictWatch(cfg.Watch.Strict),
		build.WithStatConcurrency(cfg.Watch.Concurrency))

	bc.SetLang(firstNonEmpty(id.Lang, cfg.Build.Lang))
	bc.SetBuildType(firstNonEmpty(id.BuildType, cfg.Build.BuildType))
	closeStore := func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close fingerprint store", "error", err)
		}
	}
	if err := bc.SetSite(ctx, site); err != nil {
		closeStore()
		return nil, nil, err
	}
	return bc, closeStore, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func buildErrors() error {
	return ferrors.DiagnosticsError("build reported errors").WithCause(ErrBuildErrors).Build()
}

package config

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultSitesRoot  = "sites"
	defaultCacheDir   = "cache"
	defaultPluginDir  = "plugins/phest"
	defaultBuildType  = "local"
	defaultDebounce   = 300 * time.Millisecond
	buildStatusSubdir = "buildstatus"
	sqliteFileName    = "fingerprints.db"
)

// DefaultIgnore skips VCS metadata, hidden files and editor leftovers.
var DefaultIgnore = []string{".*", "*~", "*.swp", "*.tmp", "#*#"}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		SitesRoot: defaultSitesRoot,
		CacheDir:  defaultCacheDir,
		Plugins: PluginsConfig{
			DefaultDir: defaultPluginDir,
		},
		Fingerprint: FingerprintConfig{Backend: BackendFile},
		Watch: WatchConfig{
			Ignore:   append([]string(nil), DefaultIgnore...),
			Debounce: defaultDebounce,
		},
		Build: BuildConfig{BuildType: defaultBuildType},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// applyDefaults fills values a file may have blanked out.
func applyDefaults(c *Config) {
	if strings.TrimSpace(c.SitesRoot) == "" {
		c.SitesRoot = defaultSitesRoot
	}
	if strings.TrimSpace(c.CacheDir) == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.Build.BuildType == "" {
		c.Build.BuildType = defaultBuildType
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = defaultDebounce
	}
	if c.Fingerprint.Path == "" {
		if NormalizeBackend(string(c.Fingerprint.Backend)) == BackendSQLite {
			c.Fingerprint.Path = filepath.Join(c.CacheDir, sqliteFileName)
		} else {
			c.Fingerprint.Path = filepath.Join(c.CacheDir, buildStatusSubdir)
		}
	}
}

package config

import (
	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
	"git.home.luguber.info/inful/phest/internal/foundation/normalization"
)

// Backend names a fingerprint store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

var backendNormalizer = normalization.NewNormalizer(map[string]Backend{
	"file":   BackendFile,
	"fs":     BackendFile,
	"sqlite": BackendSQLite,
}, BackendFile)

func NormalizeBackend(raw string) Backend {
	return backendNormalizer.Normalize(raw)
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer(map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer(map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}

// normalize case-folds enumerations; unknown values are errors rather than
// silently defaulted.
func normalize(c *Config) error {
	b, err := backendNormalizer.NormalizeWithError(string(c.Fingerprint.Backend))
	if err != nil {
		return ferrors.ConfigError("invalid fingerprint.backend").WithCause(err).Build()
	}
	c.Fingerprint.Backend = b

	l, err := logLevelNormalizer.NormalizeWithError(string(c.Logging.Level))
	if err != nil {
		return ferrors.ConfigError("invalid logging.level").WithCause(err).Build()
	}
	c.Logging.Level = l

	f, err := logFormatNormalizer.NormalizeWithError(string(c.Logging.Format))
	if err != nil {
		return ferrors.ConfigError("invalid logging.format").WithCause(err).Build()
	}
	c.Logging.Format = f
	return nil
}

package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeySite       = "site"
	KeyLang       = "lang"
	KeyBuildType  = "build_type"
	KeyBuildID    = "build_id"
	KeyPlugin     = "plugin"
	KeyPath       = "path"
	KeySection    = "section"
	KeyHash       = "hash"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Site(s string) slog.Attr      { return slog.String(KeySite, s) }
func Lang(l string) slog.Attr      { return slog.String(KeyLang, l) }
func BuildType(t string) slog.Attr { return slog.String(KeyBuildType, t) }
func BuildID(id string) slog.Attr  { return slog.String(KeyBuildID, id) }
func Plugin(name string) slog.Attr { return slog.String(KeyPlugin, name) }
func Path(p string) slog.Attr      { return slog.String(KeyPath, p) }
func Section(s string) slog.Attr   { return slog.String(KeySection, s) }
func Hash(h string) slog.Attr      { return slog.String(KeyHash, h) }

// Duration records d in milliseconds under KeyDurationMS.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// Package plugin resolves named plugins across an ordered list of search
// directories and loads each at most once.
//
// A plugin is a Go source file <dir>/<name>.go interpreted at load time.
// Loading is a side effect (registering hooks, writing state); it returns no
// data to the caller.
package plugin

import (
	"errors"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

// Ext is the file extension of plugin sources.
const Ext = ".go"

var (
	// ErrPluginNotFound is returned when no search directory holds the plugin.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidName marks a plugin name that is not a plain file stem.
	ErrInvalidName = errors.New("invalid plugin name")
	// ErrLoadFailed wraps failures raised while loading a found plugin.
	ErrLoadFailed = errors.New("plugin load failed")
)

// Loaded records a successfully loaded plugin.
type Loaded struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Dir      string    `json:"dir"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ValidateName rejects names that are empty or contain path elements.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\x00") {
		return ferrors.PluginError("invalid plugin name").
			WithCause(ErrInvalidName).
			WithContext("plugin", name).
			Build()
	}
	return nil
}

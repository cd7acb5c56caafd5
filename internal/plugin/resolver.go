package plugin

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
	"git.home.luguber.info/inful/phest/internal/logfields"
	"git.home.luguber.info/inful/phest/internal/metrics"
	"git.home.luguber.info/inful/phest/internal/util/ordered"
)

// Resolver owns a search path and the set of plugins it has loaded. It is
// not safe for concurrent use.
type Resolver struct {
	dirs     []string
	loaded   *ordered.Map[string, *Loaded]
	loader   Loader
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithSearchDirs seeds the search path.
func WithSearchDirs(dirs ...string) Option {
	return func(r *Resolver) { r.AddSearchDir(dirs...) }
}

// NewResolver creates a resolver that loads through loader. A nil loader
// selects the yaegi GoLoader.
func NewResolver(loader Loader, opts ...Option) *Resolver {
	if loader == nil {
		loader = NewGoLoader()
	}
	r := &Resolver{
		loaded:   ordered.New[string, *Loaded](),
		loader:   loader,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSearchDir appends one or more directories. Earlier directories win.
// Empty entries are ignored.
func (r *Resolver) AddSearchDir(dirs ...string) {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		r.dirs = append(r.dirs, d)
	}
}

// SearchDirs returns a copy of the search path.
func (r *Resolver) SearchDirs() []string {
	return append([]string(nil), r.dirs...)
}

// Resolve returns the loaded plugin for name, loading it from the first
// search directory that contains <name>.go. A plugin already loaded by this
// resolver is returned without running its side effects again.
func (r *Resolver) Resolve(ctx context.Context, name string) (*Loaded, error) {
	if err := ValidateName(name); err != nil {
		r.recorder.IncPluginResolution(metrics.PluginFailed)
		return nil, err
	}
	if p, ok := r.loaded.Get(name); ok {
		r.recorder.IncPluginResolution(metrics.PluginCached)
		r.logger.Debug("Plugin already loaded", logfields.Plugin(name), logfields.Path(p.Path))
		return p, nil
	}

	dir, path, ok := r.find(name)
	if !ok {
		r.recorder.IncPluginResolution(metrics.PluginNotFound)
		r.logger.Warn("Plugin not found", logfields.Plugin(name), slog.Any("search_dirs", r.dirs))
		return nil, ferrors.PluginError("plugin not found in any search directory").
			WithCause(ErrPluginNotFound).
			WithContext("plugin", name).
			WithContext("search_dirs", r.SearchDirs()).
			Build()
	}

	start := r.now()
	if err := r.loader.Load(ctx, path); err != nil {
		r.recorder.IncPluginResolution(metrics.PluginFailed)
		r.logger.Error("Plugin failed to load", logfields.Plugin(name), logfields.Path(path), logfields.Error(err))
		return nil, ferrors.PluginError("plugin failed to load").
			WithCause(errors.Join(ErrLoadFailed, err)).
			WithContext("plugin", name).
			WithContext("path", path).
			Build()
	}

	p := &Loaded{Name: name, Path: path, Dir: dir, LoadedAt: start}
	r.loaded.Set(name, p)
	r.recorder.IncPluginResolution(metrics.PluginLoaded)
	r.logger.Info("Plugin loaded",
		logfields.Plugin(name),
		logfields.Path(path),
		logfields.Duration(r.now().Sub(start)))
	return p, nil
}

// find returns the first search directory holding a regular <name>.go.
func (r *Resolver) find(name string) (dir, path string, ok bool) {
	for _, d := range r.dirs {
		candidate := filepath.Join(d, name+Ext)
		info, err := os.Stat(candidate)
		if err != nil {
			if !os.IsNotExist(err) {
				r.logger.Debug("Skipping unreadable plugin candidate", logfields.Path(candidate), logfields.Error(err))
			}
			continue
		}
		if info.Mode().IsRegular() {
			return d, candidate, true
		}
	}
	return "", "", false
}

// IsLoaded reports whether name has been loaded by this resolver.
func (r *Resolver) IsLoaded(name string) bool {
	return r.loaded.Has(name)
}

// Loaded returns the loaded plugins in load order.
func (r *Resolver) Loaded() []Loaded {
	out := make([]Loaded, 0, r.loaded.Len())
	r.loaded.Each(func(_ string, p *Loaded) bool {
		out = append(out, *p)
		return true
	})
	return out
}

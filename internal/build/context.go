package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/phest/internal/diagnostics"
	"git.home.luguber.info/inful/phest/internal/fingerprint"
	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
	"git.home.luguber.info/inful/phest/internal/incremental"
	"git.home.luguber.info/inful/phest/internal/logfields"
	"git.home.luguber.info/inful/phest/internal/metrics"
	"git.home.luguber.info/inful/phest/internal/plugin"
)

// Section keys registered by every Context.
const (
	SectionBuildError = "builderror"
	SectionWatch      = "watch"
)

// DefaultPluginDir is searched before any configured plugin directory.
const DefaultPluginDir = "plugins/phest"

// Context is the façade a build script drives.
type Context struct {
	sitesRoot string
	site      string
	lang      string
	buildType string

	id          string
	fp          *fingerprint.Fingerprint
	watch       []string
	strictWatch bool

	store    fingerprint.Store
	detector *incremental.Detector
	resolver *plugin.Resolver
	diag     *diagnostics.Aggregator
	logger   *slog.Logger
}

type settings struct {
	logger         *slog.Logger
	recorder       metrics.Recorder
	loader         plugin.Loader
	defaultPlugins string
	pluginDirs     []string
	concurrency    int
	clock          func() time.Time
	strictWatch    bool
	buildID        string
}

// Option configures a Context.
type Option func(*settings)

// WithLogger sets the base logger. The build ID is attached to it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithRecorder sets the metrics recorder shared by all components.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *settings) { s.recorder = r }
}

// WithPluginLoader replaces the yaegi loader.
func WithPluginLoader(l plugin.Loader) Option {
	return func(s *settings) { s.loader = l }
}

// WithDefaultPluginDir overrides DefaultPluginDir. An empty dir disables it.
func WithDefaultPluginDir(dir string) Option {
	return func(s *settings) { s.defaultPlugins = dir }
}

// WithPluginDirs appends search directories after the default one.
func WithPluginDirs(dirs ...string) Option {
	return func(s *settings) { s.pluginDirs = append(s.pluginDirs, dirs...) }
}

// WithStatConcurrency bounds parallel stat calls during change checks.
func WithStatConcurrency(n int) Option {
	return func(s *settings) { s.concurrency = n }
}

// WithClock replaces time.Now for change checks.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.clock = now }
}

// WithStrictWatch reports missing watched files as build errors instead of
// informational messages.
func WithStrictWatch(strict bool) Option {
	return func(s *settings) { s.strictWatch = strict }
}

// WithBuildID fixes the build ID instead of generating one.
func WithBuildID(id string) Option {
	return func(s *settings) { s.buildID = id }
}

// New creates a Context rooted at sitesRoot that persists fingerprints to store.
func New(sitesRoot string, store fingerprint.Store, opts ...Option) *Context {
	s := settings{
		logger:         slog.Default(),
		recorder:       metrics.NoopRecorder{},
		defaultPlugins: DefaultPluginDir,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	if s.buildID == "" {
		s.buildID = uuid.NewString()
	}
	logger := s.logger.With(logfields.BuildID(s.buildID))

	resolver := plugin.NewResolver(s.loader,
		plugin.WithLogger(logger),
		plugin.WithRecorder(s.recorder),
		plugin.WithSearchDirs(s.defaultPlugins),
		plugin.WithSearchDirs(s.pluginDirs...))

	c := &Context{
		sitesRoot:   sitesRoot,
		id:          s.buildID,
		strictWatch: s.strictWatch,
		store:       store,
		detector: incremental.NewDetector(store,
			incremental.WithLogger(logger),
			incremental.WithRecorder(s.recorder),
			incremental.WithClock(s.clock),
			incremental.WithConcurrency(s.concurrency)),
		resolver: resolver,
		diag:     diagnostics.New(diagnostics.WithLogger(logger), diagnostics.WithRecorder(s.recorder)),
		logger:   logger,
	}
	_ = c.diag.Register(SectionBuildError, "Build errors", diagnostics.WithType(diagnostics.TypeDanger))
	_ = c.diag.Register(SectionWatch, "Unverified watched files", diagnostics.WithType(diagnostics.TypeInfo), diagnostics.Sorted())
	return c
}

// BuildID identifies this Context in logs.
func (c *Context) BuildID() string { return c.id }

// SetSite selects the site and loads its fingerprint. A missing or unreadable
// record leaves the context without a fingerprint, which forces a rebuild.
func (c *Context) SetSite(ctx context.Context, site string) error {
	if err := fingerprint.ValidateSite(site); err != nil {
		c.logger.Warn("Rejected site name", logfields.Site(site), logfields.Error(err))
		return err
	}
	c.site = site
	c.fp = fingerprint.Lookup(ctx, c.store, site, c.logger)
	return nil
}

// SetLang sets the output language. Values that are not BCP 47 tags are
// kept but logged.
func (c *Context) SetLang(lang string) {
	if lang != "" {
		if _, err := language.Parse(lang); err != nil {
			c.logger.Warn("Language is not a BCP 47 tag", logfields.Lang(lang), logfields.Error(err))
		}
	}
	c.lang = lang
}

// SetBuildType sets the build type (for example "production").
func (c *Context) SetBuildType(buildType string) { c.buildType = buildType }

func (c *Context) Site() string      { return c.site }
func (c *Context) Lang() string      { return c.lang }
func (c *Context) BuildType() string { return c.buildType }

// Fingerprint returns a copy of the fingerprint in effect, or nil.
func (c *Context) Fingerprint() *fingerprint.Fingerprint {
	if c.fp == nil {
		return nil
	}
	fp := *c.fp
	return &fp
}

// AddWatchList appends paths to the watch list. Order is kept and
// duplicates are not removed.
func (c *Context) AddWatchList(paths ...string) {
	c.watch = append(c.watch, paths...)
}

// WatchList returns a copy of the watch list.
func (c *Context) WatchList() []string {
	return append([]string(nil), c.watch...)
}

// Check runs a change check for the current site. Missing watched files are
// reported to diagnostics. After a persisted rebuild the new fingerprint is
// in effect, so an immediate second check finds nothing new.
func (c *Context) Check(ctx context.Context) (incremental.Result, error) {
	if c.site == "" {
		return incremental.Result{}, ferrors.ValidationError("change check needs a site").
			WithCause(ErrSiteNotSet).
			Build()
	}

	res, err := c.detector.CheckAndUpdate(ctx, c.site, c.fp, c.watch)

	section := SectionWatch
	if c.strictWatch {
		section = SectionBuildError
	}
	for _, p := range res.Missing {
		_ = c.diag.Appendf(section, "Cannot verify timestamp of watched file: %s", p)
	}

	if err != nil {
		return res, err
	}
	if res.Persisted {
		c.fp = res.Fingerprint
	}
	return res, nil
}

// HasNew reports whether the site needs a rebuild. See Check.
func (c *Context) HasNew(ctx context.Context) (bool, error) {
	res, err := c.Check(ctx)
	return res.NeedsRebuild, err
}

// AddPluginsDir appends plugin search directories.
func (c *Context) AddPluginsDir(dirs ...string) {
	c.resolver.AddSearchDir(dirs...)
}

// PluginsDirs returns the plugin search path.
func (c *Context) PluginsDirs() []string { return c.resolver.SearchDirs() }

// LoadPlugin resolves and loads name. Failures are appended to the
// builderror section and reported as false; the build is not aborted.
func (c *Context) LoadPlugin(ctx context.Context, name string) bool {
	if _, err := c.resolver.Resolve(ctx, name); err != nil {
		msg := fmt.Sprintf("Failed to load plugin file: %s", name)
		if !errors.Is(err, plugin.ErrPluginNotFound) {
			msg = fmt.Sprintf("%s (%v)", msg, err)
		}
		_ = c.diag.Append(SectionBuildError, msg)
		return false
	}
	return true
}

// LoadedPlugins returns the plugins loaded by this context, in load order.
func (c *Context) LoadedPlugins() []plugin.Loaded { return c.resolver.Loaded() }

// RegisterSection creates or replaces a diagnostics section.
func (c *Context) RegisterSection(key, title string, opts ...diagnostics.SectionOption) error {
	return c.diag.Register(key, title, opts...)
}

// Add appends a message to a registered section. Unknown sections log a
// warning and drop the message.
func (c *Context) Add(key, message string) error {
	return c.diag.Append(key, message)
}

// HasError reports whether any danger section holds a message.
func (c *Context) HasError() bool { return c.diag.HasError() }

// MessageData returns the diagnostics view.
func (c *Context) MessageData() []diagnostics.SectionView { return c.diag.View() }

// Diagnostics exposes the underlying aggregator.
func (c *Context) Diagnostics() *diagnostics.Aggregator { return c.diag }

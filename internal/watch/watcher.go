// Package watch reruns a callback when files under the watched roots change,
// with debouncing and an optional polling fallback.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/phest/internal/logfields"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Reasons passed to the trigger.
const (
	ReasonStart  = "start"
	ReasonChange = "change"
	ReasonPoll   = "poll"
)

// Trigger runs one check. Calls never overlap.
type Trigger func(ctx context.Context, reason string)

// Options configures a Watcher.
type Options struct {
	// Roots are directories (watched recursively) or single files.
	Roots []string
	// Ignore holds base-name globs; matching events are dropped.
	Ignore   []string
	Debounce time.Duration
	// PollInterval, when positive, also triggers on a fixed schedule.
	PollInterval time.Duration
	// RunOnStart triggers once before any event arrives.
	RunOnStart bool
	Logger     *slog.Logger
}

// Watcher drives a Trigger from filesystem events.
type Watcher struct {
	opts    Options
	trigger Trigger
	logger  *slog.Logger

	// requests holds at most one pending run; further requests coalesce
	requests chan string

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a watcher. Nothing happens until Run.
func New(trigger Trigger, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		opts:     opts,
		trigger:  trigger,
		logger:   logger,
		requests: make(chan string, 1),
	}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, root := range w.opts.Roots {
		watched += w.addRecursive(fsw, root)
	}
	if watched == 0 && w.opts.PollInterval <= 0 {
		return fmt.Errorf("watch: none of %v could be watched", w.opts.Roots)
	}

	if w.opts.PollInterval > 0 {
		sched, err := w.startPoller()
		if err != nil {
			return err
		}
		defer func() {
			if err := sched.Shutdown(); err != nil {
				w.logger.Warn("Poll scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	if w.opts.RunOnStart {
		w.request(ReasonStart)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.runWorker(gctx)
		return nil
	})
	g.Go(func() error {
		return w.eventLoop(gctx, fsw)
	})
	err = g.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) startPoller() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.opts.PollInterval),
		gocron.NewTask(func() { w.request(ReasonPoll) }),
		gocron.WithName("phest-poll"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create poll job: %w", err)
	}
	s.Start()
	w.logger.Info("Polling for changes", slog.Duration("interval", w.opts.PollInterval))
	return s, nil
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-w.requests:
			w.trigger(ctx, reason)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if w.ignored(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addRecursive(fsw, ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	w.debounce()
}

// debounce restarts the quiet-period timer.
func (w *Watcher) debounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, func() { w.request(ReasonChange) })
}

func (w *Watcher) request(reason string) {
	select {
	case w.requests <- reason:
	default:
		// a run is already pending
	}
}

// addRecursive watches root and, for directories, every non-ignored
// subdirectory. It returns the number of paths added.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) int {
	info, err := os.Stat(root)
	if err != nil {
		w.logger.Warn("Cannot watch path", logfields.Path(root), logfields.Error(err))
		return 0
	}
	if !info.IsDir() {
		if err := fsw.Add(root); err != nil {
			w.logger.Warn("watch add failed", logfields.Path(root), logfields.Error(err))
			return 0
		}
		return 1
	}

	added := 0
	_ = filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && w.ignored(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			w.logger.Warn("watch add failed", logfields.Path(p), logfields.Error(err))
			return nil
		}
		added++
		return nil
	})
	return added
}

// ignored drops hidden files, editor leftovers and configured globs.
func (w *Watcher) ignored(p string) bool {
	base := filepath.Base(p)
	if strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") ||
		base == "Thumbs.db" {
		return true
	}
	for _, pattern := range w.opts.Ignore {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

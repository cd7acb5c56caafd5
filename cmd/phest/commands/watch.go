package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/phest/internal/logfields"
	"git.home.luguber.info/inful/phest/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	IdentityFlags `embed:""`

	Plugins []string      `name:"plugin" short:"p" help:"Load plugins before each check (repeatable)"`
	Poll    time.Duration `name:"poll" help:"Also check on this interval (overrides watch.poll_interval)"`
	JSON    bool          `name:"json" help:"Print each report as JSON"`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	// resolve the source path once to learn what to watch
	bc, done, err := newBuildContext(ctx, g, root, w.IdentityFlags, "watch")
	if err != nil {
		return err
	}
	src, err := bc.SourcePath()
	done()
	if err != nil {
		return err
	}

	roots := []string{src}
	if cfg.Source() != "" {
		roots = append(roots, cfg.Source())
	}
	poll := cfg.Watch.PollInterval
	if w.Poll > 0 {
		poll = w.Poll
	}

	watcher := watch.New(func(ctx context.Context, reason string) {
		w.runOnce(ctx, g, root, reason)
	}, watch.Options{
		Roots:        roots,
		Ignore:       cfg.Watch.Ignore,
		Debounce:     cfg.Watch.Debounce,
		PollInterval: poll,
		RunOnStart:   true,
	})
	slog.Info("Watching for changes", logfields.Path(src))
	return watcher.Run(ctx)
}

// runOnce performs one check with a fresh context, as a separate build
// invocation would.
func (w *WatchCmd) runOnce(ctx context.Context, g *Global, root *CLI, reason string) {
	bc, done, err := newBuildContext(ctx, g, root, w.IdentityFlags, "watch")
	if err != nil {
		slog.Error("Watch check failed", slog.String("reason", reason), logfields.Error(err))
		return
	}
	defer done()

	report, err := runCheck(ctx, bc, root, w.Plugins)
	if err != nil {
		slog.Error("Watch check failed", slog.String("reason", reason), logfields.Error(err))
		return
	}
	if report.NeedsRebuild != nil && !*report.NeedsRebuild && reason == watch.ReasonPoll && !report.HasError {
		// polls are silent unless something changed
		return
	}
	if err := writeReport(g.Stdout, report, w.JSON); err != nil {
		slog.Warn("Failed to write report", logfields.Error(err))
	}
}

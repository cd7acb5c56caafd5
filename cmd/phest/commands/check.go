package commands

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/phest/internal/build"
	"git.home.luguber.info/inful/phest/internal/logfields"
)

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	IdentityFlags `embed:""`

	Plugins      []string `name:"plugin" short:"p" help:"Load plugins before checking (repeatable)"`
	JSON         bool     `name:"json" help:"Print the report as JSON"`
	FailUpToDate bool     `name:"fail-up-to-date" help:"Exit with code 3 when no rebuild is needed"`
}

func (c *CheckCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	bc, done, err := newBuildContext(ctx, g, root, c.IdentityFlags, "check")
	if err != nil {
		return err
	}
	defer done()

	report, err := runCheck(ctx, bc, root, c.Plugins)
	if err != nil {
		return err
	}
	if err := writeReport(g.Stdout, report, c.JSON); err != nil {
		return err
	}
	if report.HasError {
		return buildErrors()
	}
	if c.FailUpToDate && !*report.NeedsRebuild {
		return ErrUpToDate
	}
	return nil
}

// runCheck loads plugins, collects the watch list and runs one change check.
func runCheck(ctx context.Context, bc *build.Context, root *CLI, plugins []string) (Report, error) {
	cfg, err := root.LoadConfig()
	if err != nil {
		return Report{}, err
	}

	var loaded []string
	for _, name := range plugins {
		if bc.LoadPlugin(ctx, name) {
			loaded = append(loaded, name)
		}
	}

	src, err := bc.SourcePath()
	if err != nil {
		return Report{}, err
	}
	files, err := build.CollectSourceFiles(src, cfg.Watch.Ignore)
	if err != nil {
		slog.Warn("Cannot collect watch list", logfields.Path(src), logfields.Error(err))
		_ = bc.Add(build.SectionBuildError, fmt.Sprintf("Cannot read source directory: %s", src))
	}
	bc.AddWatchList(files...)
	if cfg.Source() != "" {
		bc.AddWatchList(cfg.Source())
	}

	res, err := bc.Check(ctx)
	if err != nil {
		return Report{}, err
	}

	out, _ := bc.OutputPath()
	return Report{
		Site:         bc.Site(),
		Lang:         bc.Lang(),
		BuildType:    bc.BuildType(),
		BuildID:      bc.BuildID(),
		SourcePath:   src,
		OutputPath:   out,
		NeedsRebuild: &res.NeedsRebuild,
		Hash:         res.Hash,
		Watched:      len(bc.WatchList()),
		Changed:      res.Changed,
		Missing:      res.Missing,
		Plugins:      loaded,
		HasError:     bc.HasError(),
		Diagnostics:  bc.MessageData(),
	}, nil
}

package commands

import (
	"context"
)

// PluginCmd implements the 'plugin' command.
type PluginCmd struct {
	IdentityFlags `embed:""`

	Names []string `arg:"" name:"name" help:"Plugin names to load"`
	Dirs  []string `name:"dir" short:"d" help:"Extra search directories, searched after the configured ones" type:"path"`
	JSON  bool     `name:"json" help:"Print the report as JSON"`
}

func (p *PluginCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	bc, done, err := newBuildContext(ctx, g, root, p.IdentityFlags, "plugin")
	if err != nil {
		return err
	}
	defer done()

	bc.AddPluginsDir(p.Dirs...)
	var loaded []string
	for _, name := range p.Names {
		if bc.LoadPlugin(ctx, name) {
			loaded = append(loaded, name)
		}
	}

	report := Report{
		Site:        bc.Site(),
		Lang:        bc.Lang(),
		BuildType:   bc.BuildType(),
		BuildID:     bc.BuildID(),
		Plugins:     loaded,
		HasError:    bc.HasError(),
		Diagnostics: bc.MessageData(),
	}
	if err := writeReport(g.Stdout, report, p.JSON); err != nil {
		return err
	}
	if report.HasError {
		return buildErrors()
	}
	return nil
}

package commands

import (
	"context"
	"fmt"
)

// PathsCmd implements the 'paths' command.
type PathsCmd struct {
	IdentityFlags `embed:""`

	JSON bool `name:"json" help:"Print as JSON"`
}

type pathsOutput struct {
	Site         string `json:"site"`
	SourcePath   string `json:"source_path"`
	OutputPath   string `json:"output_path"`
	BuildDirName string `json:"build_dir_name"`
}

func (p *PathsCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	bc, done, err := newBuildContext(ctx, g, root, p.IdentityFlags, "paths")
	if err != nil {
		return err
	}
	defer done()

	src, err := bc.SourcePath()
	if err != nil {
		return err
	}
	out, err := bc.OutputPath()
	if err != nil {
		return err
	}
	res := pathsOutput{Site: bc.Site(), SourcePath: src, OutputPath: out, BuildDirName: bc.BuildDirName()}
	if p.JSON {
		return writeJSON(g.Stdout, res)
	}
	fmt.Fprintf(g.Stdout, "source: %s\noutput: %s\n", res.SourcePath, res.OutputPath)
	return nil
}

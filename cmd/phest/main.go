package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/phest/cmd/phest/commands"
	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
	"git.home.luguber.info/inful/phest/internal/metrics"
	"git.home.luguber.info/inful/phest/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// exitCode carries kong's requested exit (--help, --version) out of Parse.
type exitCode int

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	var cli commands.CLI
	cli.SetStderr(stderr)

	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(exitCode)
			if !ok {
				panic(r)
			}
			code = int(c)
		}
	}()

	parser, err := kong.New(&cli,
		kong.Name("phest"),
		kong.Description("Incremental build control for static sites."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(c int) { panic(exitCode(c)) }),
		kong.Vars{"version": version.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ferrors.ExitCodeInternal
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ferrors.ExitCodeUsage
	}

	registry := prometheus.NewRegistry()
	global := &commands.Global{
		Stdout:   stdout,
		Stderr:   stderr,
		Recorder: metrics.NewPrometheusRecorder(registry),
	}
	runErr := kctx.Run(global, &cli)

	if path := cli.MetricsPath(); path != "" {
		if err := metrics.WriteTextfile(path, registry); err != nil {
			slog.Warn("Failed to write metrics textfile", "path", path, "error", err)
		}
	}

	switch {
	case runErr == nil:
		return ferrors.ExitCodeOK
	case errors.Is(runErr, commands.ErrUpToDate):
		return ferrors.ExitCodeUpToDate
	default:
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		fmt.Fprintln(stderr, adapter.FormatError(runErr))
		return adapter.ExitCodeFor(runErr)
	}
}

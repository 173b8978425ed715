package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/autostart/internal/cli"
	"github.com/rbright/autostart/internal/clock"
	"github.com/rbright/autostart/internal/config"
	"github.com/rbright/autostart/internal/doctor"
	"github.com/rbright/autostart/internal/logging"
	"github.com/rbright/autostart/internal/platform"
	"github.com/rbright/autostart/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Platform builds the OS backends; nil uses platform.New.
	Platform func(config.Config) platform.Backends
	// Clock paces delays and minimizers; nil uses the wall clock.
	Clock clock.Clock
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(version.Name))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(version.Name))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := cfgLoaded.Config

	logRuntime, err := logging.New(logging.Options{Level: cfg.Log.Level, Path: cfg.Log.Path})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start", append([]any{
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	}, version.Attrs()...)...)

	build := r.Platform
	if build == nil {
		build = platform.New
	}
	backends := build(cfg)
	logger.Info("backends selected",
		"audio", backends.AudioName,
		"window", backends.WindowName,
		"power", backends.PowerName,
	)
	for _, problem := range backends.Problems() {
		logger.Warn("backend unavailable", "error", problem.Error())
	}

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfg, backends, parsed.ProfilePath, logger)
	case cli.CommandResolve:
		return r.commandResolve(ctx, backends, parsed.ProfilePath, logger)
	case cli.CommandDevices:
		return r.commandDevices(ctx, backends, parsed.JSON)
	case cli.CommandPlans:
		return r.commandPlans(ctx, backends, parsed.JSON)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, backends)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

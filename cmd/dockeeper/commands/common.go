package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/dockeeper/internal/config"
	"git.home.luguber.info/inful/dockeeper/internal/metrics"
	"git.home.luguber.info/inful/dockeeper/internal/toolchain"
	"git.home.luguber.info/inful/dockeeper/internal/verify"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"dockeeper.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Verify VerifyCmd `cmd:"" default:"withargs" help:"Verify code samples in the configured documents"`
	Watch  WatchCmd  `cmd:"" help:"Re-verify documents whenever they change"`
	Init   InitCmd   `cmd:"" help:"Initialize a new configuration file"`
	Cache  CacheCmd  `cmd:"" help:"Inspect or clear the verdict cache"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// buildService probes the configured toolchain and wires the verification
// service. A missing toolchain is fatal here, before any document is read.
func buildService(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (*verify.Service, error) {
	id, err := toolchain.Probe(ctx, cfg.Toolchain.Binary)
	if err != nil {
		return nil, err
	}
	slog.Debug("Toolchain probed", "binary", id.Binary, "version", id.Version)

	orch, err := toolchain.NewOrchestrator(id, cfg.Toolchain.ArtifactDir, toolchain.Options{
		Timeout:     cfg.Verify.Timeout.Std(),
		Concurrency: cfg.Verify.Concurrency,
	})
	if err != nil {
		return nil, err
	}
	return verify.NewService(cfg, orch.WithRecorder(rec)).WithRecorder(rec), nil
}

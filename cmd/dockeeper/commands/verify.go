package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/dockeeper/internal/config"
	"git.home.luguber.info/inful/dockeeper/internal/metrics"
	"git.home.luguber.info/inful/dockeeper/internal/verify"
)

// VerifyCmd implements the 'verify' command: one full run over the
// configured documents, report on stdout, exit 1 on any mismatch.
type VerifyCmd struct {
	Docs       []string `arg:"" optional:"" help:"Document globs (overrides the configured ones)"`
	NoCache    bool     `help:"Ignore and do not update the verdict cache"`
	KeepFailed bool     `help:"Keep harness projects of failing fragments for inspection"`
	Annotate   bool     `help:"Inject failure comments into the documents"`
}

func (v *VerifyCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if len(v.Docs) > 0 {
		cfg.Docs.Globs = v.Docs
	}
	if v.NoCache {
		cfg.Cache.Disabled = true
	}
	if v.KeepFailed {
		cfg.Verify.KeepFailed = true
	}
	if v.Annotate {
		cfg.Docs.Annotate = true
	}

	svc, err := buildService(ctx, cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}

	docs, err := verify.LoadDocuments(cfg.Docs.Globs)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents match %v", cfg.Docs.Globs)
	}

	rep, err := svc.Run(ctx, docs)
	if err != nil {
		return err
	}
	if err := rep.Render(os.Stdout); err != nil {
		return err
	}
	if rep.ExitCode() != 0 {
		os.Exit(1)
	}
	return nil
}

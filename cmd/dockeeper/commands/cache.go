package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/dockeeper/internal/cache"
	"git.home.luguber.info/inful/dockeeper/internal/config"
)

// CacheCmd groups verdict-cache maintenance commands.
type CacheCmd struct {
	Stats CacheStatsCmd `cmd:"" default:"withargs" help:"Show cache statistics"`
	Clean CacheCleanCmd `cmd:"" help:"Remove the verdict cache and harness workspace"`
}

// CacheStatsCmd prints the number of recorded verdicts.
type CacheStatsCmd struct{}

func (CacheStatsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	c := cache.Open(cfg.Cache.Path)
	fmt.Printf("%s: %d recorded verdicts\n", cfg.Cache.Path, c.Len())
	return nil
}

// CacheCleanCmd drops all recorded verdicts and synthesized projects, forcing
// a full re-verification on the next run.
type CacheCleanCmd struct{}

func (CacheCleanCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if err := os.Remove(cfg.Cache.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache manifest: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(cfg.WorkDir, "harness")); err != nil {
		return fmt.Errorf("remove harness dir: %w", err)
	}
	return nil
}

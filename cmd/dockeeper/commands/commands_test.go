package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"})
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, ctx
}

func TestCLI_VerifyFlags(t *testing.T) {
	cli, ctx := parse(t, "verify", "docs/*.md", "--no-cache", "--keep-failed")
	require.Equal(t, "verify <docs>", ctx.Command())
	require.Equal(t, []string{"docs/*.md"}, cli.Verify.Docs)
	require.True(t, cli.Verify.NoCache)
	require.True(t, cli.Verify.KeepFailed)
	require.Equal(t, "dockeeper.yaml", cli.Config)
}

func TestCLI_VerifyIsDefaultCommand(t *testing.T) {
	_, ctx := parse(t, "-c", "other.yaml")
	require.Equal(t, "verify", ctx.Command())
}

func TestCLI_WatchFlags(t *testing.T) {
	cli, ctx := parse(t, "watch", "--metrics-addr", ":9090", "--debounce", "50ms")
	require.Equal(t, "watch", ctx.Command())
	require.Equal(t, ":9090", cli.Watch.MetricsAddr)
	require.Equal(t, 50*time.Millisecond, cli.Watch.Debounce)
}

func TestInitCmd(t *testing.T) {
	root := &CLI{Config: filepath.Join(t.TempDir(), "dockeeper.yaml")}
	require.NoError(t, (&InitCmd{}).Run(&Global{}, root))
	require.FileExists(t, root.Config)
	require.Error(t, (&InitCmd{}).Run(&Global{}, root))
	require.NoError(t, (&InitCmd{Force: true}).Run(&Global{}, root))
}

func TestCacheCleanCmd(t *testing.T) {
	work := t.TempDir()
	cfgPath := filepath.Join(work, "dockeeper.yaml")
	cfg := fmt.Sprintf("work_dir: %s\n", work)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	manifest := filepath.Join(work, "verify-cache.json")
	harness := filepath.Join(work, "harness", "shared")
	require.NoError(t, os.WriteFile(manifest, []byte("{}"), 0o644))
	require.NoError(t, os.MkdirAll(harness, 0o755))

	root := &CLI{Config: cfgPath}
	require.NoError(t, (CacheCleanCmd{}).Run(&Global{}, root))
	require.NoFileExists(t, manifest)
	require.NoDirExists(t, harness)

	// Cleaning an already clean workspace succeeds.
	require.NoError(t, (CacheCleanCmd{}).Run(&Global{}, root))
}

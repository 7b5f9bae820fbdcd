package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"git.home.luguber.info/inful/dockeeper/internal/metrics"
)

// Result captures one toolchain invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Options tunes the orchestrator.
type Options struct {
	// Timeout bounds each invocation; the whole process tree is terminated
	// when it expires. Zero means DefaultTimeout.
	Timeout time.Duration
	// Concurrency bounds parallel isolated invocations. Zero means
	// DefaultConcurrency.
	Concurrency int
}

const (
	DefaultTimeout     = 2 * time.Minute
	DefaultConcurrency = 4
)

// Orchestrator invokes the external toolchain. The build-artifact
// directories (module and build caches) are shared across invocations;
// their mutation window (dependency download) is serialized process-wide
// because concurrent writers can corrupt the on-disk cache.
type Orchestrator struct {
	id          Identity
	timeout     time.Duration
	concurrency int
	env         []string

	artifactMu sync.Mutex

	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewOrchestrator creates an orchestrator whose invocations share the given
// artifact directory.
func NewOrchestrator(id Identity, artifactDir string, opts Options) (*Orchestrator, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	gocache := filepath.Join(artifactDir, "gocache")
	gomodcache := filepath.Join(artifactDir, "gomod")
	for _, dir := range []string{gocache, gomodcache} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir: %w", err)
		}
	}

	return &Orchestrator{
		id:          id,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		env: []string{
			"GOCACHE=" + gocache,
			"GOMODCACHE=" + gomodcache,
			// Generated go.sum files are merged copies; let the tool complete
			// them for per-fragment overrides.
			"GOFLAGS=-mod=mod",
		},
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}, nil
}

// WithLogger sets a custom logger.
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// WithRecorder sets a metrics recorder.
func (o *Orchestrator) WithRecorder(r metrics.Recorder) *Orchestrator {
	if r != nil {
		o.recorder = r
	}
	return o
}

// Identity returns the probed toolchain identity.
func (o *Orchestrator) Identity() Identity { return o.id }

// Concurrency returns the isolated-invocation bound.
func (o *Orchestrator) Concurrency() int { return o.concurrency }

// Download warms the shared dependency caches for one project. This is the
// narrow artifact-cache mutation window and runs under the process-wide
// lock; subsequent builds read the warm cache without locking.
func (o *Orchestrator) Download(ctx context.Context, dir string) (Result, error) {
	o.artifactMu.Lock()
	defer o.artifactMu.Unlock()
	return o.run(ctx, dir, "mod", "download", "all")
}

// TestShared runs the shared project: one invocation, machine-readable
// per-entry outcomes.
func (o *Orchestrator) TestShared(ctx context.Context, dir string) (Result, error) {
	res, err := o.run(ctx, dir, "test", "-json", "-count=1", "./...")
	o.recorder.ObserveInvocationDuration("shared", res.Duration)
	return res, err
}

// BuildIsolated compiles one isolated project. Callers expect a non-zero
// exit for expect-compile-error fragments.
func (o *Orchestrator) BuildIsolated(ctx context.Context, dir string) (Result, error) {
	res, err := o.run(ctx, dir, "build", "./...")
	o.recorder.ObserveInvocationDuration("isolated", res.Duration)
	return res, err
}

// IsolatedOutcome pairs a project directory with its invocation result.
type IsolatedOutcome struct {
	Dir    string
	Result Result
	Err    error
}

// BuildAllIsolated warms and builds each project with bounded concurrency,
// preserving input order. Individual failures never cancel the others.
func (o *Orchestrator) BuildAllIsolated(ctx context.Context, dirs []string) []IsolatedOutcome {
	o.recorder.SetBuildConcurrency(o.concurrency)
	return runOrdered(dirs, o.concurrency, func(dir string) IsolatedOutcome {
		if _, err := o.Download(ctx, dir); err != nil {
			return IsolatedOutcome{Dir: dir, Err: err}
		}
		res, err := o.BuildIsolated(ctx, dir)
		return IsolatedOutcome{Dir: dir, Result: res, Err: err}
	})
}

// run executes one toolchain invocation in dir with the configured timeout.
// On timeout the invocation's process group is killed; other invocations
// are unaffected.
func (o *Orchestrator) run(ctx context.Context, dir string, args ...string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.id.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), o.env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		// Negative pid signals the whole process group.
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	o.logger.Debug("Invoking toolchain", "dir", dir, "args", args)
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
		TimedOut: errors.Is(ctx.Err(), context.DeadlineExceeded),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case res.TimedOut:
		res.ExitCode = -1
	default:
		return res, fmt.Errorf("invoke %s %v: %w", o.id.Binary, args, err)
	}
	return res, nil
}

package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/dockeeper/internal/config"
	"git.home.luguber.info/inful/dockeeper/internal/metrics"
	"git.home.luguber.info/inful/dockeeper/internal/verify"
)

// WatchCmd re-verifies documents on change until interrupted.
type WatchCmd struct {
	Debounce    time.Duration `default:"300ms" help:"Settle window after a change before re-running"`
	MetricsAddr string        `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	rec := metrics.Recorder(metrics.NoopRecorder{})
	if w.MetricsAddr != "" {
		reg := prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		serveMetrics(ctx, w.MetricsAddr, reg)
	}

	svc, err := buildService(ctx, cfg, rec)
	if err != nil {
		return err
	}
	return verify.NewWatcher(svc, cfg.Docs.Globs, os.Stdout).
		WithDebounce(w.Debounce).
		Watch(ctx)
}

// serveMetrics exposes the registry over HTTP until ctx is canceled. The
// watch loop owns the process lifetime, so serve failures are logged rather
// than fatal.
func serveMetrics(ctx context.Context, addr string, reg *prom.Registry) {
	srv := &http.Server{Addr: addr, Handler: metrics.HTTPHandler(reg)}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics endpoint failed", "error", err)
		}
	}()
}

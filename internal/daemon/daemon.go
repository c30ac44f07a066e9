// Package daemon runs the long-lived mode: periodic re-extraction on a
// schedule, snapshot watching, and the metrics endpoint.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/brandintel/internal/config"
	"git.home.luguber.info/inful/brandintel/internal/metrics"
	"git.home.luguber.info/inful/brandintel/internal/service"
	"git.home.luguber.info/inful/brandintel/internal/watch"
)

// Daemon ties the scheduler, watcher, and metrics server to one service.
type Daemon struct {
	svc       *service.Service
	cfg       config.DaemonConfig
	scheduler gocron.Scheduler
	watcher   *watch.Watcher
	recorder  *metrics.PrometheusRecorder
	server    *http.Server
}

// New creates the daemon; Run starts it.
func New(svc *service.Service, cfg config.DaemonConfig, recorder *metrics.PrometheusRecorder) (*Daemon, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Daemon{svc: svc, cfg: cfg, scheduler: scheduler, recorder: recorder}, nil
}

// Run blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	_, err := d.scheduler.NewJob(
		gocron.DurationJob(d.cfg.RefreshInterval),
		gocron.NewTask(d.refreshAll, ctx),
		gocron.WithName("refresh-extraction"),
	)
	if err != nil {
		return fmt.Errorf("schedule refresh job: %w", err)
	}
	d.scheduler.Start()
	slog.Info("daemon started", slog.Duration("refresh_interval", d.cfg.RefreshInterval))

	if d.cfg.WatchDir != "" {
		watcher, err := watch.New(d.cfg.WatchDir, d.svc)
		if err != nil {
			return fmt.Errorf("start snapshot watcher: %w", err)
		}
		watcher.OnUpdate = func(subjectID string) {
			if _, err := d.svc.RunExtraction(ctx, subjectID); err != nil {
				slog.Error("re-extraction after snapshot update",
					slog.String("subject", subjectID), slog.Any("error", err))
			}
		}
		d.watcher = watcher
		go watcher.Run(ctx)
	}

	if d.recorder != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", d.recorder.Handler())
		d.server = &http.Server{Addr: d.cfg.MetricsAddr, Handler: mux}
		go func() {
			slog.Info("metrics listening", slog.String("addr", d.cfg.MetricsAddr))
			if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server", slog.Any("error", err))
			}
		}()
	}

	<-ctx.Done()
	return d.shutdown()
}

// refreshAll re-runs extraction for every subject. The runner isolates unit
// failures, so a bad subject never stops the sweep.
func (d *Daemon) refreshAll(ctx context.Context) {
	subjects, err := d.svc.ListSubjects(ctx)
	if err != nil {
		slog.Error("listing subjects for refresh", slog.Any("error", err))
		return
	}
	for _, sub := range subjects {
		results, err := d.svc.RunExtraction(ctx, sub.ID)
		if err != nil {
			slog.Error("scheduled extraction", slog.String("subject", sub.ID), slog.Any("error", err))
			continue
		}
		failed := 0
		for _, r := range results {
			if !r.OK {
				failed++
			}
		}
		slog.Info("scheduled extraction finished",
			slog.String("subject", sub.ID),
			slog.Int("units", len(results)),
			slog.Int("failed", failed))
	}
}

func (d *Daemon) shutdown() error {
	slog.Info("daemon stopping")
	var firstErr error
	if err := d.scheduler.Shutdown(); err != nil {
		firstErr = err
	}
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.server.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

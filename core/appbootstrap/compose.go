package appbootstrap

import (
	"context"
	"database/sql"

	"keywatch/api"
	"keywatch/config"
	"keywatch/core/monitor"
	"keywatch/core/retention"
	"keywatch/core/store"
	"keywatch/core/utils"
)

type Runtime struct {
	Server  *api.Server
	Store   store.MonitorStore
	Engine  *monitor.Engine
	Janitor *retention.Janitor

	dispatcher *monitor.Dispatcher
}

// Compose wires the store, engine, dispatcher, janitor and HTTP server from
// an open database handle.
func Compose(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) *Runtime {
	monitorStore := store.NewMonitorStore(db, store.DefaultSettings(
		cfg.Target.IntervalMin, cfg.Target.TimeoutSec, cfg.Target.Keyword))

	dispatcher := monitor.NewDispatcher(
		monitor.NewHTTPTelegramSender(cfg.Notify.TelegramToken),
		cfg.Notify.Recipients,
		cfg.Notify.QueueSize,
		logger,
	)
	var chart *monitor.ChartBuilder
	if cfg.Notify.ChartEnabled {
		chart = monitor.NewChartBuilder(cfg.Notify.ChartURL)
	}
	engine := monitor.NewEngine(monitorStore, monitor.NewProber(cfg.Target.URL), dispatcher, logger)
	if chart != nil {
		engine.WithChart(chart)
	}
	janitor := retention.NewJanitor(cfg.Retention, monitorStore, logger)
	server := api.NewServer(cfg, api.ServerDeps{
		Store:      monitorStore,
		Engine:     engine,
		Dispatcher: dispatcher,
		Chart:      chart,
	}, logger)

	return &Runtime{
		Server:     server,
		Store:      monitorStore,
		Engine:     engine,
		Janitor:    janitor,
		dispatcher: dispatcher,
	}
}

// Start launches the background workers. The HTTP server is started by the
// caller so it can own the listen error.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.dispatcher.StartWithContext(ctx)
	rt.Engine.StartWithContext(ctx)
	return rt.Janitor.StartWithContext(ctx)
}

// Stop shuts the workers down in reverse order, waiting for each to exit
// within ctx. An in-flight monitor probe is aborted by the cancellation.
func (rt *Runtime) Stop(ctx context.Context) error {
	if err := rt.Janitor.StopWithContext(ctx); err != nil {
		return err
	}
	if err := rt.Engine.StopWithContext(ctx); err != nil {
		return err
	}
	return rt.dispatcher.StopWithContext(ctx)
}

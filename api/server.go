package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"keywatch/api/handlers"
	"keywatch/config"
	"keywatch/core/monitor"
	"keywatch/core/store"
	"keywatch/core/utils"
)

type Server struct {
	cfg    *config.AppConfig
	logger *utils.Logger
	http   *http.Server

	monitorHandler *handlers.MonitorHandler
}

type ServerDeps struct {
	Store      store.MonitorStore
	Engine     *monitor.Engine
	Dispatcher *monitor.Dispatcher
	Chart      *monitor.ChartBuilder
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	s := &Server{
		cfg:            cfg,
		logger:         logger,
		monitorHandler: handlers.NewMonitorHandler(deps.Store, deps.Engine, deps.Dispatcher, deps.Chart, logger),
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.requestLogMiddleware)

	h := s.monitorHandler
	r.MethodFunc("GET", "/", h.Index)
	r.MethodFunc("GET", "/_health", h.Liveness)

	r.Route("/api/monitor", func(monitorRouter chi.Router) {
		monitorRouter.MethodFunc("GET", "/status", h.Status)
		monitorRouter.MethodFunc("GET", "/health", h.HealthSummary)
		monitorRouter.MethodFunc("POST", "/health/notify", s.requireToken(h.NotifyHealth))
		monitorRouter.MethodFunc("GET", "/events", h.Events)
		monitorRouter.MethodFunc("GET", "/downtimes", h.Downtimes)
		monitorRouter.MethodFunc("POST", "/check-now", s.requireToken(h.CheckNow))
		monitorRouter.MethodFunc("GET", "/settings", h.GetSettings)
		monitorRouter.MethodFunc("PUT", "/settings", s.requireToken(h.UpdateSettings))
		monitorRouter.MethodFunc("PATCH", "/settings/{field}", s.requireToken(h.UpdateSettingField))
	})
	return r
}

func (s *Server) ListenAndServe() error {
	s.logger.Infof("api: listening on %s", s.cfg.ListenAddr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

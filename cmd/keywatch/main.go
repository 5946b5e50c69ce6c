package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"keywatch/config"
	"keywatch/core/appbootstrap"
	"keywatch/core/store"
	"keywatch/core/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("KEYWATCH_CONFIG"), "path to YAML config (optional)")
	flag.Parse()

	logger := utils.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Errorf("store: open: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		logger.Errorf("store: migrate: %v", err)
		os.Exit(1)
	}

	rt := appbootstrap.Compose(cfg, db, logger)
	if err := rt.Start(ctx); err != nil {
		logger.Errorf("start workers: %v", err)
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- rt.Server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Infof("shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("api: serve: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := rt.Server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("api: shutdown: %v", err)
	}
	if err := rt.Stop(shutdownCtx); err != nil {
		logger.Errorf("stop workers: %v", err)
	}
}

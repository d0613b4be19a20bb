package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"terptracker/internal/app"
	"terptracker/pkg/logger"
	"terptracker/pkg/utils"
)

func main() {
	cfg := utils.LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		zap.NewExample().Sugar().Fatalf("init logger: %v", err)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API server listening", "addr", cfg.HTTPAddr, "db", cfg.DBPath, "debug", cfg.Debug)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
	log.Info("server stopped")
}

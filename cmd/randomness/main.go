// Package main runs the Starknet randomness HTTP service.
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

	"github.com/R3E-Network/starknet_randomness/internal/app"
	"github.com/R3E-Network/starknet_randomness/internal/config"
	"github.com/R3E-Network/starknet_randomness/internal/logging"
	randomnesssvc "github.com/R3E-Network/starknet_randomness/services/randomness"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(randomnesssvc.ServiceID, logging.Config{}).Error(context.Background(), "invalid configuration", err, nil)
		os.Exit(1)
	}
	log := logging.New(randomnesssvc.ServiceID, cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build application", err, nil)
		os.Exit(1)
	}
	if err := application.Start(ctx); err != nil {
		log.Error(ctx, "failed to start application", err, nil)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      application.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info(ctx, "randomness service listening", map[string]interface{}{
			"addr":     cfg.HTTP.Addr,
			"network":  cfg.Network.Name,
			"mode":     cfg.Mode(),
			"consumer": cfg.Contracts.Consumer,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server error", err, nil)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down", nil)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown error", err, nil)
	}
	if err := application.Stop(); err != nil {
		log.Error(ctx, "stop error", err, nil)
	}
	log.Info(ctx, "service stopped", nil)
}

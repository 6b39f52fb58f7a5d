package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/driftchat/driftchat/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "driftchat terminated with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	var cfg server.Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return errors.Wrap(err, "load configuration")
	}
	cfg = cfg.Sanitize()

	log := server.NewLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	hub := server.NewHub(log)
	go hub.Run()

	mux := server.SetupRoutes(hub, cfg, log)
	httpServer := server.CreateServer(cfg.Port, mux)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer, log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")

	shutdownErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
	if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	return shutdownErr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jamestelfer/jwks-authorizer/internal/config"
	"github.com/rs/zerolog/log"
)

// AuthServer is the part of http.Server used to run the service.
type AuthServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// serveHTTP runs the server until it stops by itself or SIGINT/SIGTERM is
// received, then shuts it down, allowing in-flight requests up to the
// configured timeout to complete. An error from ListenAndServe other than
// http.ErrServerClosed is returned once shutdown is done.
func serveHTTP(serverCfg config.ServerConfig, server AuthServer) error {
	signalCtx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", serverCfg.Port).Msg("starting server")
		serverErr <- server.ListenAndServe()
	}()

	var listenErr error

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped unexpectedly")
			listenErr = err
		}
	case <-signalCtx.Done():
		log.Info().Msg("server shutdown requested")
		stop()
	}

	shutdownTimeout := serverCfg.ShutdownTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("server shutting down")

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info().Msg("server shutdown complete")

	return listenErr
}

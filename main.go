package main

import (
	"context"
	"fmt"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/jamestelfer/jwks-authorizer/internal/audit"
	"github.com/jamestelfer/jwks-authorizer/internal/bootstrap"
	"github.com/jamestelfer/jwks-authorizer/internal/config"
	"github.com/jamestelfer/jwks-authorizer/internal/jwt"
	"github.com/jamestelfer/jwks-authorizer/internal/observe"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/log"
)

func configureServerRoutes(cfg config.Config, client *http.Client) (http.Handler, error) {
	components, err := bootstrap.New(cfg, client)
	if err != nil {
		return nil, err
	}

	return serverRoutes(components), nil
}

func serverRoutes(components bootstrap.Components) http.Handler {
	// wrap a mux such that HTTP telemetry is configured by default
	muxWithoutTelemetry := http.NewServeMux()
	mux := observe.NewMux(muxWithoutTelemetry)

	auditor := audit.Middleware()

	verifier := jwt.Middleware(components.Verifier, jwtmiddleware.WithErrorHandler(jwt.LogErrorHandler()))

	// The request body size is fairly limited to prevent accidental or
	// deliberate abuse. Given the current API shape, this is not configurable.
	requestLimitBytes := int64(20 << 10) // 20 KB
	requestLimiter := maxRequestSize(requestLimitBytes)

	// the authorize route makes its own decision: a failed verification is a
	// Deny response, not an HTTP error
	decisionRouteMiddleware := alice.New(requestLimiter, auditor)
	authorizedRouteMiddleware := alice.New(requestLimiter, auditor, verifier)

	mux.Handle("POST /authorize", decisionRouteMiddleware.Then(handlePostAuthorize(components.Authorizer)))
	mux.Handle("GET /principal", authorizedRouteMiddleware.Then(handleGetPrincipal()))

	// healthchecks are not included in telemetry
	muxWithoutTelemetry.Handle("GET /healthcheck", handleHealthCheck())

	return mux
}

func main() {
	bootstrap.ConfigureLogging()

	bootstrap.LogBuildInfo()

	err := launchServer()
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func launchServer() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	// configure telemetry, including wrapping default HTTP client
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}

	client := bootstrap.HttpClient(cfg)

	// setup routing and dependencies
	handler, err := configureServerRoutes(cfg, client)
	if err != nil {
		return fmt.Errorf("server routing configuration failed: %w", err)
	}

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        handler,
		MaxHeaderBytes: 20 << 10, // 20 KB
	}

	server.RegisterOnShutdown(func() {
		log.Info().Msg("telemetry: shutting down")
		if err := shutdownTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("telemetry: shutdown failed")
		}
		log.Info().Msg("telemetry: shutdown complete")
	})

	err = serveHTTP(cfg.Server, server)
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

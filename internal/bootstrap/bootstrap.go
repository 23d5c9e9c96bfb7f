// Package bootstrap assembles the authorizer from configuration. It is shared
// by the HTTP server and the Lambda entry point.
package bootstrap

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/jamestelfer/jwks-authorizer/internal/authorizer"
	"github.com/jamestelfer/jwks-authorizer/internal/certcache"
	"github.com/jamestelfer/jwks-authorizer/internal/config"
	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"github.com/jamestelfer/jwks-authorizer/internal/jwt"
	"github.com/jamestelfer/jwks-authorizer/internal/observe"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Components are the configured verification services.
type Components struct {
	Verifier   *jwt.Verifier
	Authorizer *authorizer.Authorizer
}

// New creates the certificate cache, key set source, verifier and authorizer
// described by cfg. The client is used to fetch the key set.
func New(cfg config.Config, client *http.Client) (Components, error) {
	cache, err := certcache.New(cfg.Cache)
	if err != nil {
		return Components{}, fmt.Errorf("certificate cache configuration failed: %w", err)
	}

	fetch, err := keySetSource(cfg.Authorization, client)
	if err != nil {
		return Components{}, fmt.Errorf("key set configuration failed: %w", err)
	}

	verifier := jwt.NewVerifier(
		jwks.NewResolver(cache, fetch),
		jwt.WithAudience(cfg.Authorization.Audience),
		jwt.WithIssuer(cfg.Authorization.Issuer),
		jwt.WithExpiryRequired(cfg.Authorization.ExpiryRequired),
		jwt.WithAllowedClockSkew(cfg.Authorization.AllowedClockSkew()),
	)

	a, err := authorizer.New(verifier)
	if err != nil {
		return Components{}, fmt.Errorf("authorizer configuration failed: %w", err)
	}

	log.Info().
		Str("cacheMode", cfg.Cache.Mode).
		Bool("staticKeySet", cfg.Authorization.JWKSStatic != "").
		Msg("authorizer configured")

	return Components{
		Verifier:   verifier,
		Authorizer: a,
	}, nil
}

func keySetSource(cfg config.AuthorizationConfig, client *http.Client) (jwks.KeySetFetcher, error) {
	if cfg.JWKSStatic != "" {
		return jwks.Static(cfg.JWKSStatic)
	}

	return jwks.Remote(client, cfg.JWKSURL), nil
}

// HttpClient creates the client used for outgoing requests, with pooling
// limits from the server configuration, the key set fetch timeout and
// telemetry if enabled.
func HttpClient(cfg config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.Server.OutgoingHttpMaxIdleConns
	transport.MaxConnsPerHost = cfg.Server.OutgoingHttpMaxConnsPerHost

	return &http.Client{
		Transport: observe.HttpTransport(transport, cfg.Observe),
		Timeout:   cfg.Authorization.FetchTimeout(),
	}
}

// ConfigureLogging sets up the global logger. Output is JSON at Info level,
// or human readable at Debug level when ENV is "development".
func ConfigureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

// LogBuildInfo writes the VCS and toolchain details of the binary.
func LogBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

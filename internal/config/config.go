package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	CacheModeSingle = "single"
	CacheModeKeyed  = "keyed"
	CacheModeRedis  = "redis"
)

type Config struct {
	Authorization AuthorizationConfig
	Cache         CacheConfig
	Server        ServerConfig
	Observe       ObserveConfig
}

type ServerConfig struct {
	Port                   int `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`

	OutgoingHttpMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHttpMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

type AuthorizationConfig struct {
	// JWKSURL is the key-publishing endpoint. Either this or JWKSStatic must be
	// supplied.
	JWKSURL string `env:"AUTH0_JWKS_URL"`
	// JWKSStatic is a literal JSON key set, used in place of the remote endpoint.
	JWKSStatic string `env:"JWT_JWKS_STATIC"`

	FetchTimeoutSeconds int `env:"JWT_JWKS_FETCH_TIMEOUT_SECONDS, default=5"`

	Audience                string `env:"JWT_AUDIENCE"`
	Issuer                  string `env:"JWT_ISSUER"`
	ExpiryRequired          bool   `env:"JWT_EXPIRY_REQUIRED, default=false"`
	AllowedClockSkewSeconds int    `env:"JWT_ALLOWED_CLOCK_SKEW_SECONDS, default=5"`
}

func (c AuthorizationConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c AuthorizationConfig) AllowedClockSkew() time.Duration {
	return time.Duration(c.AllowedClockSkewSeconds) * time.Second
}

type CacheConfig struct {
	Mode        string `env:"CERT_CACHE_MODE, default=keyed"`
	Capacity    int    `env:"CERT_CACHE_CAPACITY, default=1000"`
	TTLSeconds  int    `env:"CERT_CACHE_TTL_SECONDS, default=0"`
	RedisURL    string `env:"CERT_CACHE_REDIS_URL"`
	RedisPrefix string `env:"CERT_CACHE_REDIS_PREFIX, default=jwks-authorizer:cert:"`
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type ObserveConfig struct {
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled             bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_OTEL_SERVICE_NAME, default=jwks-authorizer"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds  int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HttpTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HttpConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

// Load reads the configuration from the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads the configuration using the supplied lookuper, then applies
// the validation rules that cannot be expressed as struct tags.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (cfg Config, err error) {
	err = envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.Validate()

	return
}

func (c Config) Validate() error {
	var errs []error

	if c.Authorization.JWKSURL == "" && c.Authorization.JWKSStatic == "" {
		errs = append(errs, errors.New("one of AUTH0_JWKS_URL or JWT_JWKS_STATIC must be set"))
	}

	if c.Authorization.FetchTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("JWT_JWKS_FETCH_TIMEOUT_SECONDS must be positive"))
	}

	switch c.Cache.Mode {
	case CacheModeSingle, CacheModeKeyed:
	case CacheModeRedis:
		if c.Cache.RedisURL == "" {
			errs = append(errs, errors.New("CERT_CACHE_REDIS_URL is required when CERT_CACHE_MODE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CERT_CACHE_MODE %q (expected single, keyed or redis)", c.Cache.Mode))
	}

	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("CERT_CACHE_TTL_SECONDS must not be negative"))
	}

	return errors.Join(errs...)
}

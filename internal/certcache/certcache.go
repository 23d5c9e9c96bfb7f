// Package certcache provides the process-owned stores for certificates
// resolved from the key set.
package certcache

import (
	"fmt"

	"github.com/jamestelfer/jwks-authorizer/internal/config"
	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
)

// New creates the cache selected by the configuration.
func New(cfg config.CacheConfig) (jwks.CertificateCache, error) {
	switch cfg.Mode {
	case config.CacheModeSingle:
		return NewSingleSlot(), nil
	case config.CacheModeKeyed:
		return NewKeyed(cfg.Capacity, cfg.TTL())
	case config.CacheModeRedis:
		return NewRedisFromURL(cfg.RedisURL, cfg.RedisPrefix, cfg.TTL())
	default:
		return nil, fmt.Errorf("unknown certificate cache mode %q", cfg.Mode)
	}
}

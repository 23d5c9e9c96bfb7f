package certcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var _ jwks.CertificateCache = (*Redis)(nil)

// Redis shares resolved certificates between processes. The PEM text is stored
// under the key prefix followed by the key identifier.
//
// Redis failures never fail a verification: a failed read is a miss and a
// failed write is logged and dropped.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedis creates a cache using the supplied client. A zero ttl stores entries
// without expiry.
func NewRedis(client redis.Cmdable, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// NewRedisFromURL creates a cache connected to the Redis server at url, e.g.
// "redis://localhost:6379/0".
func NewRedisFromURL(url, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return NewRedis(redis.NewClient(opts), prefix, ttl), nil
}

func (r *Redis) key(kid string) string { return r.prefix + kid }

func (r *Redis) Get(ctx context.Context, kid string) (jwks.Certificate, bool) {
	pem, err := r.client.Get(ctx, r.key(kid)).Result()
	if errors.Is(err, redis.Nil) {
		return jwks.Certificate{}, false
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("kid", kid).Msg("redis certificate lookup failed, treating as miss")
		return jwks.Certificate{}, false
	}

	return jwks.Certificate{KeyID: kid, PEM: pem}, true
}

func (r *Redis) Set(ctx context.Context, kid string, cert jwks.Certificate) {
	err := r.client.Set(ctx, r.key(kid), cert.PEM, r.ttl).Err()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("kid", kid).Msg("redis certificate write failed")
	}
}

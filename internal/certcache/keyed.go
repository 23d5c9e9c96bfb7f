package certcache

import (
	"context"
	"time"

	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"github.com/maypok86/otter"
	"github.com/rs/zerolog"
)

var _ jwks.CertificateCache = (*Keyed)(nil)

// Keyed caches certificates by key identifier. The cache is non-locking:
// concurrent misses for the same key may both resolve and write, in which case
// the last one wins. As resolution is idempotent this costs at most an extra
// fetch.
type Keyed struct {
	cache otter.Cache[string, jwks.Certificate]
}

// NewKeyed creates a cache holding up to capacity certificates. A zero ttl
// keeps entries until they are evicted for capacity; a positive ttl expires
// them after that duration.
func NewKeyed(capacity int, ttl time.Duration) (*Keyed, error) {
	builder, err := otter.NewBuilder[string, jwks.Certificate](capacity)
	if err != nil {
		return nil, err
	}
	builder = builder.CollectStats()

	var cache otter.Cache[string, jwks.Certificate]
	if ttl != 0 {
		cache, err = builder.WithTTL(ttl).Build()
	} else {
		cache, err = builder.Build()
	}
	if err != nil {
		return nil, err
	}

	return &Keyed{cache: cache}, nil
}

func (k *Keyed) Get(ctx context.Context, kid string) (jwks.Certificate, bool) {
	cert, ok := k.cache.Get(kid)
	if ok {
		zerolog.Ctx(ctx).Debug().Str("kid", kid).Msg("hit: certificate found for key")
	}

	return cert, ok
}

func (k *Keyed) Set(ctx context.Context, kid string, cert jwks.Certificate) {
	// "set" is not guaranteed to write to the cache, but a rejected write only
	// results in a later refetch
	if !k.cache.Set(kid, cert) {
		zerolog.Ctx(ctx).Debug().Str("kid", kid).Msg("certificate was not admitted to the cache")
	}
}

// Stats reports the cache hit and miss counts.
func (k *Keyed) Stats() (hits, misses int64) {
	s := k.cache.Stats()
	return s.Hits(), s.Misses()
}

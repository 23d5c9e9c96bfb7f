package jwks

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/jamestelfer/jwks-authorizer/internal/jwks")

// CertificateCache holds resolved certificates for the lifetime of the
// process. Implementations must be safe for concurrent use; concurrent writers
// may overwrite each other.
type CertificateCache interface {
	Get(ctx context.Context, kid string) (Certificate, bool)
	Set(ctx context.Context, kid string, cert Certificate)
}

// Resolver supplies the verification certificate for a key identifier,
// preferring the cache and falling back to fetching and selecting from the
// published key set. Results of a fetch are written to the cache.
type Resolver struct {
	cache CertificateCache
	fetch KeySetFetcher
}

func NewResolver(cache CertificateCache, fetch KeySetFetcher) *Resolver {
	return &Resolver{
		cache: cache,
		fetch: fetch,
	}
}

func (r *Resolver) Resolve(ctx context.Context, kid string) (Certificate, error) {
	ctx, span := tracer.Start(ctx, "jwks.Resolve", trace.WithAttributes(attribute.String("jwks.kid", kid)))
	defer span.End()

	if cert, ok := r.cache.Get(ctx, kid); ok {
		span.SetAttributes(attribute.Bool("jwks.cache_hit", true))
		return cert, nil
	}
	span.SetAttributes(attribute.Bool("jwks.cache_hit", false))

	cert, err := r.resolveFromKeySet(ctx, kid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "certificate resolution failed")
		return Certificate{}, err
	}

	r.cache.Set(ctx, kid, cert)

	zerolog.Ctx(ctx).Info().Str("kid", kid).Msg("valid certificate was downloaded")

	return cert, nil
}

func (r *Resolver) resolveFromKeySet(ctx context.Context, kid string) (Certificate, error) {
	keys, err := r.fetch(ctx)
	if err != nil {
		return Certificate{}, err
	}

	usable, err := SelectUsable(keys)
	if err != nil {
		return Certificate{}, fmt.Errorf("%w (%d keys published)", err, len(keys))
	}

	key, err := Find(usable, kid)
	if err != nil {
		return Certificate{}, fmt.Errorf("%w: %q", err, kid)
	}

	return ToCertificate(key)
}

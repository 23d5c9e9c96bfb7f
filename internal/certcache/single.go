package certcache

import (
	"context"
	"sync/atomic"

	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"github.com/rs/zerolog"
)

var _ jwks.CertificateCache = (*SingleSlot)(nil)

// SingleSlot holds at most one certificate for the life of the process,
// regardless of the key identifier requested. Once populated, every lookup
// returns the same certificate: a token signed with a different key will be
// checked against it and fail verification rather than trigger a fetch.
//
// This reproduces the behaviour of deployments where the key set publishes a
// single active key. Use Keyed when more than one key may be in use.
type SingleSlot struct {
	slot atomic.Pointer[jwks.Certificate]
}

func NewSingleSlot() *SingleSlot {
	return &SingleSlot{}
}

func (s *SingleSlot) Get(ctx context.Context, kid string) (jwks.Certificate, bool) {
	cert := s.slot.Load()
	if cert == nil {
		return jwks.Certificate{}, false
	}

	if cert.KeyID != kid {
		zerolog.Ctx(ctx).Debug().
			Str("requested", kid).
			Str("cached", cert.KeyID).
			Msg("single slot: returning certificate cached for a different key")
	}

	return *cert, true
}

// Set replaces the cached certificate. Concurrent writers race; the last
// writer wins.
func (s *SingleSlot) Set(_ context.Context, _ string, cert jwks.Certificate) {
	s.slot.Store(&cert)
}

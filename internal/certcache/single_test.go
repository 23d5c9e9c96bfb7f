package certcache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jamestelfer/jwks-authorizer/internal/certcache"
	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"github.com/jamestelfer/jwks-authorizer/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cert(kid string) jwks.Certificate {
	return jwks.Certificate{
		KeyID: kid,
		PEM:   "-----BEGIN CERTIFICATE-----\n" + kid + "\n-----END CERTIFICATE-----\n",
	}
}

func TestSingleSlot_EmptyAtStart(t *testing.T) {
	c := certcache.NewSingleSlot()

	_, ok := c.Get(context.Background(), "kid-1")
	assert.False(t, ok)
}

func TestSingleSlot_GetIsIdempotent(t *testing.T) {
	c := certcache.NewSingleSlot()
	c.Set(context.Background(), "kid-1", cert("kid-1"))

	first, ok := c.Get(context.Background(), "kid-1")
	require.True(t, ok)

	second, ok := c.Get(context.Background(), "kid-1")
	require.True(t, ok)

	assert.Equal(t, first, second)
}

func TestSingleSlot_IgnoresKeyIdentifier(t *testing.T) {
	testhelpers.SetupLogger(t)

	c := certcache.NewSingleSlot()
	c.Set(context.Background(), "kid-1", cert("kid-1"))

	// the single slot returns the warm certificate for any key: this is the
	// documented limitation of this mode
	got, ok := c.Get(context.Background(), "kid-2")
	require.True(t, ok)
	assert.Equal(t, cert("kid-1"), got)
}

func TestSingleSlot_LastWriterWins(t *testing.T) {
	c := certcache.NewSingleSlot()

	c.Set(context.Background(), "kid-1", cert("kid-1"))
	c.Set(context.Background(), "kid-2", cert("kid-2"))

	got, ok := c.Get(context.Background(), "kid-1")
	require.True(t, ok)
	assert.Equal(t, cert("kid-2"), got)
}

func TestSingleSlot_ConcurrentAccess(t *testing.T) {
	c := certcache.NewSingleSlot()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kid := fmt.Sprintf("kid-%d", i)
			c.Set(context.Background(), kid, cert(kid))
			got, ok := c.Get(context.Background(), kid)
			assert.True(t, ok)
			assert.False(t, got.IsZero())
		}()
	}
	wg.Wait()

	got, ok := c.Get(context.Background(), "any")
	require.True(t, ok)
	assert.Equal(t, got, cert(got.KeyID), "slot holds one complete certificate")
}

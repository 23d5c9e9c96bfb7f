package jwks_test

import (
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCertificate(t *testing.T) {
	der := []byte(strings.Repeat("certificate-bytes-", 8))
	key := usableKey("kid-1")
	key.CertChain = []string{base64.StdEncoding.EncodeToString(der), "aWdub3JlZA=="}

	cert, err := jwks.ToCertificate(key)
	require.NoError(t, err)

	assert.Equal(t, "kid-1", cert.KeyID)
	assert.True(t, strings.HasPrefix(cert.PEM, "-----BEGIN CERTIFICATE-----\n"))
	assert.True(t, strings.HasSuffix(cert.PEM, "-----END CERTIFICATE-----\n"))

	block, rest := pem.Decode([]byte(cert.PEM))
	require.NotNil(t, block)
	assert.Empty(t, rest)
	assert.Equal(t, "CERTIFICATE", block.Type)
	assert.Equal(t, der, block.Bytes, "only the first chain entry is encoded")
}

func TestToCertificate_Deterministic(t *testing.T) {
	key := usableKey("kid-1")

	first, err := jwks.ToCertificate(key)
	require.NoError(t, err)

	for range 5 {
		again, err := jwks.ToCertificate(key)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestToCertificate_Malformed(t *testing.T) {
	cases := []struct {
		name  string
		chain []string
	}{
		{name: "empty chain", chain: nil},
		{name: "not base64", chain: []string{"***"}},
		{name: "empty entry", chain: []string{""}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key := usableKey("kid-1")
			key.CertChain = tc.chain

			cert, err := jwks.ToCertificate(key)
			assert.ErrorIs(t, err, jwks.ErrMalformedKey)
			assert.True(t, cert.IsZero())
		})
	}
}

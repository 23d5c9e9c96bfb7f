package jwks_test

import (
	"testing"

	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usableKey(kid string) jwks.SigningKey {
	return jwks.SigningKey{
		Algorithm: "RS256",
		KeyType:   "RSA",
		Use:       "sig",
		CertChain: []string{"Y2VydGlmaWNhdGU="},
		Modulus:   "modulus",
		Exponent:  "AQAB",
		KeyID:     kid,
	}
}

func TestUsable(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(k *jwks.SigningKey)
		usable bool
	}{
		{name: "all attributes present", mutate: func(k *jwks.SigningKey) {}, usable: true},
		{name: "encryption use", mutate: func(k *jwks.SigningKey) { k.Use = "enc" }, usable: false},
		{name: "empty use", mutate: func(k *jwks.SigningKey) { k.Use = "" }, usable: false},
		{name: "elliptic curve", mutate: func(k *jwks.SigningKey) { k.KeyType = "EC" }, usable: false},
		{name: "lowercase key type", mutate: func(k *jwks.SigningKey) { k.KeyType = "rsa" }, usable: false},
		{name: "RS512", mutate: func(k *jwks.SigningKey) { k.Algorithm = "RS512" }, usable: false},
		{name: "HS256", mutate: func(k *jwks.SigningKey) { k.Algorithm = "HS256" }, usable: false},
		{name: "nil chain", mutate: func(k *jwks.SigningKey) { k.CertChain = nil }, usable: false},
		{name: "empty chain", mutate: func(k *jwks.SigningKey) { k.CertChain = []string{} }, usable: false},
		{name: "no kid", mutate: func(k *jwks.SigningKey) { k.KeyID = "" }, usable: false},
		{name: "no modulus or exponent", mutate: func(k *jwks.SigningKey) { k.Modulus, k.Exponent = "", "" }, usable: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k := usableKey("kid-1")
			tc.mutate(&k)

			assert.Equal(t, tc.usable, k.Usable())

			selected, err := jwks.SelectUsable([]jwks.SigningKey{k})
			if tc.usable {
				require.NoError(t, err)
				assert.Equal(t, []jwks.SigningKey{k}, selected)
			} else {
				assert.ErrorIs(t, err, jwks.ErrNoUsableKeys)
				assert.Nil(t, selected)
			}
		})
	}
}

func TestSelectUsable_RetainsOrder(t *testing.T) {
	enc := usableKey("enc")
	enc.Use = "enc"

	keys := []jwks.SigningKey{usableKey("a"), enc, usableKey("b"), usableKey("c")}

	selected, err := jwks.SelectUsable(keys)
	require.NoError(t, err)

	var kids []string
	for _, k := range selected {
		kids = append(kids, k.KeyID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, kids)
}

func TestSelectUsable_Empty(t *testing.T) {
	_, err := jwks.SelectUsable(nil)
	assert.ErrorIs(t, err, jwks.ErrNoUsableKeys)
}

func TestFind(t *testing.T) {
	first := usableKey("dup")
	first.Thumbprint = "first"
	second := usableKey("dup")
	second.Thumbprint = "second"

	keys := []jwks.SigningKey{usableKey("other"), first, second}

	t.Run("first match wins", func(t *testing.T) {
		k, err := jwks.Find(keys, "dup")
		require.NoError(t, err)
		assert.Equal(t, "first", k.Thumbprint)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := jwks.Find(keys, "missing")
		assert.ErrorIs(t, err, jwks.ErrKeyNotFound)
	})

	t.Run("empty kid never matches", func(t *testing.T) {
		_, err := jwks.Find(keys, "")
		assert.ErrorIs(t, err, jwks.ErrKeyNotFound)
	})
}

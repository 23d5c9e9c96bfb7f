package testhelpers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	gojwt "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

// SigningKey is an RSA key pair with a self-signed certificate, published in a
// key set with the certificate as its x5c chain.
type SigningKey struct {
	KeyID       string
	Private     *rsa.PrivateKey
	Certificate *x509.Certificate
}

// GenerateSigningKey creates a 2048 bit RSA signing key and certificate for
// the given key identifier.
func GenerateSigningKey(t *testing.T, kid string) *SigningKey {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate private key")

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(now.UnixNano()),
		Subject:               pkix.Name{CommonName: kid},
		NotBefore:             now.Add(-1 * time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err, "failed to create certificate")

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &SigningKey{
		KeyID:       kid,
		Private:     privateKey,
		Certificate: cert,
	}
}

// JWK returns the private JSON Web Key, used for signing.
func (k *SigningKey) JWK() *jose.JSONWebKey {
	return &jose.JSONWebKey{
		Key:          k.Private,
		KeyID:        k.KeyID,
		Algorithm:    string(jose.RS256),
		Use:          "sig",
		Certificates: []*x509.Certificate{k.Certificate},
	}
}

// PublicJWK returns the public JSON Web Key as it would be published.
func (k *SigningKey) PublicJWK() jose.JSONWebKey {
	return k.JWK().Public()
}

// KeySetJSON returns the public key set document for the supplied keys.
func KeySetJSON(t *testing.T, keys ...*SigningKey) string {
	t.Helper()

	set := jose.JSONWebKeySet{}
	for _, k := range keys {
		set.Keys = append(set.Keys, k.PublicJWK())
	}

	b, err := json.Marshal(set)
	require.NoError(t, err)

	return string(b)
}

// JWKSServer serves the key set at "/.well-known/jwks.json" and counts the
// requests made to it.
type JWKSServer struct {
	*httptest.Server
	requests atomic.Int32
}

// URL of the key set document.
func (s *JWKSServer) KeySetURL() string {
	return s.Server.URL + "/.well-known/jwks.json"
}

func (s *JWKSServer) Requests() int {
	return int(s.requests.Load())
}

// NewJWKSServer starts a server publishing the public keys. It is closed when
// the test completes.
func NewJWKSServer(t *testing.T, keys ...*SigningKey) *JWKSServer {
	t.Helper()

	document := KeySetJSON(t, keys...)

	s := &JWKSServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)

		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(document))
	}))
	t.Cleanup(s.Close)

	return s
}

// NewFailingJWKSServer starts a server that responds to every request with the
// given status.
func NewFailingJWKSServer(t *testing.T, status int) *JWKSServer {
	t.Helper()

	s := &JWKSServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		http.Error(w, http.StatusText(status), status)
	}))
	t.Cleanup(s.Close)

	return s
}

// Token creates an RS256 JWT signed by the key, with the key identifier in the
// header. Each claims value is merged into the payload.
func (k *SigningKey) Token(t *testing.T, claims ...any) string {
	t.Helper()

	key := jose.SigningKey{
		Algorithm: jose.RS256,
		Key:       k.JWK(),
	}

	signer, err := jose.NewSigner(key, (&jose.SignerOptions{}).WithType("JWT"))
	require.NoError(t, err)

	builder := jwt.Signed(signer)
	for _, claim := range claims {
		builder = builder.Claims(claim)
	}

	token, err := builder.Serialize()
	require.NoError(t, err)

	return token
}

// HMACToken creates an HS256 JWT with the given key identifier in the header,
// signed with a shared secret.
func HMACToken(t *testing.T, kid string, secret []byte, claims gojwt.Claims) string {
	t.Helper()

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	return signed
}

// ValidClaims returns claims for subject that are currently valid.
func ValidClaims(subject string) jwt.Claims {
	now := time.Now().UTC()

	return jwt.Claims{
		Subject:   subject,
		Issuer:    "https://issuer.example.com/",
		Audience:  jwt.Audience{"audience"},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
		Expiry:    jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}
}

package jwks

import "errors"

var (
	// ErrKeySetUnavailable is returned when the key set could not be read from
	// its source: transport failure, non-success status or an unreadable body.
	ErrKeySetUnavailable = errors.New("jwks: key set unavailable")
	// ErrKeySetEmpty is returned when the key set was read but contains no keys.
	ErrKeySetEmpty = errors.New("jwks: the key set did not contain any keys")
	// ErrNoUsableKeys is returned when no key in the set can verify RS256
	// signatures.
	ErrNoUsableKeys = errors.New("jwks: the key set did not contain any signature verification keys")
	// ErrKeyNotFound is returned when no usable key carries the requested key
	// identifier.
	ErrKeyNotFound = errors.New("jwks: no usable signing key matches the key identifier")
	// ErrMalformedKey is returned when a key's certificate chain cannot be
	// converted into a certificate.
	ErrMalformedKey = errors.New("jwks: malformed signing key")
)

const (
	UseSignature = "sig"
	KeyTypeRSA   = "RSA"
	AlgRS256     = "RS256"
)

// SigningKey is a single entry of a published JSON Web Key Set.
type SigningKey struct {
	Algorithm  string   `json:"alg"`
	KeyType    string   `json:"kty"`
	Use        string   `json:"use"`
	CertChain  []string `json:"x5c,omitempty"`
	Modulus    string   `json:"n,omitempty"`
	Exponent   string   `json:"e,omitempty"`
	KeyID      string   `json:"kid"`
	Thumbprint string   `json:"x5t,omitempty"`
}

// Usable reports whether the key can be used to verify an RS256 token
// signature: it must be an RSA signing key with a key identifier and at least
// one certificate in its chain.
func (k SigningKey) Usable() bool {
	return k.Use == UseSignature &&
		k.KeyType == KeyTypeRSA &&
		k.Algorithm == AlgRS256 &&
		len(k.CertChain) > 0 &&
		k.KeyID != ""
}

// KeySet is the document published by a JWKS endpoint.
type KeySet struct {
	Keys []SigningKey `json:"keys"`
}

// SelectUsable filters the supplied keys to those able to verify signatures,
// retaining the original order.
func SelectUsable(keys []SigningKey) ([]SigningKey, error) {
	usable := make([]SigningKey, 0, len(keys))
	for _, k := range keys {
		if k.Usable() {
			usable = append(usable, k)
		}
	}

	if len(usable) == 0 {
		return nil, ErrNoUsableKeys
	}

	return usable, nil
}

// Find returns the first key with the given identifier. Identifiers are not
// assumed to be unique.
func Find(usable []SigningKey, kid string) (SigningKey, error) {
	for _, k := range usable {
		if k.KeyID == kid {
			return k, nil
		}
	}

	return SigningKey{}, ErrKeyNotFound
}

package jwks

import (
	"encoding/base64"
	"encoding/pem"
	"fmt"
)

const pemBlockType = "CERTIFICATE"

// Certificate is the PEM text of the leaf certificate of a signing key,
// together with the identifier of the key it was derived from.
type Certificate struct {
	KeyID string
	PEM   string
}

// IsZero reports whether the certificate is empty.
func (c Certificate) IsZero() bool {
	return c.PEM == ""
}

// ToCertificate encodes the first entry of the key's certificate chain as a
// PEM certificate. The x5c entries are standard (not URL) base64 DER.
func ToCertificate(key SigningKey) (Certificate, error) {
	if len(key.CertChain) == 0 {
		return Certificate{}, fmt.Errorf("%w: key %q has an empty certificate chain", ErrMalformedKey, key.KeyID)
	}

	der, err := base64.StdEncoding.DecodeString(key.CertChain[0])
	if err != nil {
		return Certificate{}, fmt.Errorf("%w: key %q certificate is not valid base64: %w", ErrMalformedKey, key.KeyID, err)
	}

	if len(der) == 0 {
		return Certificate{}, fmt.Errorf("%w: key %q certificate is empty", ErrMalformedKey, key.KeyID)
	}

	block := pem.EncodeToMemory(&pem.Block{
		Type:  pemBlockType,
		Bytes: der,
	})

	return Certificate{
		KeyID: key.KeyID,
		PEM:   string(block),
	}, nil
}

package jwt

import (
	"errors"

	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
)

var (
	ErrAuthHeaderMissing   = errors.New("no authentication header")
	ErrAuthHeaderMalformed = errors.New("invalid authentication header")
	ErrTokenDecode         = errors.New("token could not be decoded")
	ErrSignatureInvalid    = errors.New("token signature is invalid")
	ErrClaimsInvalid       = errors.New("token claims are invalid")
)

// VerificationError is returned for all verification failures. It carries the
// key identifier from the token header when the header could be decoded.
type VerificationError struct {
	KeyID string
	Err   error
}

func (e *VerificationError) Error() string {
	return e.Err.Error()
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// KeyIDFromError returns the key identifier recorded with a verification
// failure, if any.
func KeyIDFromError(err error) string {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.KeyID
	}
	return ""
}

var kinds = []struct {
	err  error
	kind string
}{
	{ErrAuthHeaderMissing, "AuthHeaderMissing"},
	{ErrAuthHeaderMalformed, "AuthHeaderMalformed"},
	{ErrTokenDecode, "TokenDecodeError"},
	{jwks.ErrKeySetUnavailable, "KeySetUnavailable"},
	{jwks.ErrKeySetEmpty, "KeySetEmpty"},
	{jwks.ErrNoUsableKeys, "NoUsableKeys"},
	{jwks.ErrKeyNotFound, "KeyNotFound"},
	{jwks.ErrMalformedKey, "MalformedKey"},
	{ErrSignatureInvalid, "SignatureInvalid"},
	{ErrClaimsInvalid, "ClaimsInvalid"},
}

// ErrorKind names the failure category of a verification error, for logging.
// Unrecognised errors are reported as "Unknown".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return "Unknown"
}

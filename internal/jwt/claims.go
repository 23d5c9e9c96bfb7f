package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v4"
)

// VerifiedClaims are the registered claims of a token whose signature and
// validity have been checked.
type VerifiedClaims struct {
	gojwt.RegisteredClaims

	keyID    string
	expected expectations
}

// KeyID is the identifier of the key that verified the token signature.
func (c *VerifiedClaims) KeyID() string {
	return c.keyID
}

// expectations are the claim checks configured on the verifier.
type expectations struct {
	audience       string
	issuer         string
	expiryRequired bool
	skew           time.Duration
	now            func() time.Time
}

// Valid ensures that the token is within its validity period (allowing for
// clock skew), names a subject, and matches the configured audience and issuer
// if any.
func (c *VerifiedClaims) Valid() error {
	now := time.Now
	if c.expected.now != nil {
		now = c.expected.now
	}
	t := now()
	skew := c.expected.skew

	if c.ExpiresAt == nil && c.expected.expiryRequired {
		return errors.New("token has no expiry")
	}
	if !c.VerifyExpiresAt(t.Add(-skew), false) {
		return fmt.Errorf("token expired at %s", c.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if !c.VerifyNotBefore(t.Add(skew), false) {
		return errors.New("token is not valid yet")
	}
	if !c.VerifyIssuedAt(t.Add(skew), false) {
		return errors.New("token used before issued")
	}

	if c.Subject == "" {
		return errors.New("missing expected claim: sub")
	}

	if c.expected.audience != "" && !c.VerifyAudience(c.expected.audience, true) {
		return fmt.Errorf("expecting token issued for audience %s", c.expected.audience)
	}

	if c.expected.issuer != "" && !c.VerifyIssuer(c.expected.issuer, true) {
		return fmt.Errorf("expecting token issued by %s", c.expected.issuer)
	}

	return nil
}

// ExpirySecs returns the expiry as Unix seconds, or zero if the token does not
// expire.
func (c *VerifiedClaims) ExpirySecs() int64 {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Unix()
}

package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v4"
	"github.com/jamestelfer/jwks-authorizer/internal/jwks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/jamestelfer/jwks-authorizer/internal/jwt")

// requiredAlgorithm is the only signing algorithm accepted. Tokens declaring
// any other algorithm are rejected before signature verification.
var requiredAlgorithm = gojwt.SigningMethodRS256.Alg()

// CertificateResolver supplies the certificate for a key identifier.
type CertificateResolver interface {
	Resolve(ctx context.Context, kid string) (jwks.Certificate, error)
}

// Verifier checks bearer tokens against certificates published in a key set.
type Verifier struct {
	resolver CertificateResolver
	expected expectations
	parser   *gojwt.Parser
}

type Option func(*Verifier)

// WithAudience requires the token's audience to include aud.
func WithAudience(aud string) Option {
	return func(v *Verifier) { v.expected.audience = aud }
}

// WithIssuer requires the token to be issued by iss.
func WithIssuer(iss string) Option {
	return func(v *Verifier) { v.expected.issuer = iss }
}

// WithExpiryRequired rejects tokens that have no "exp" claim.
func WithExpiryRequired(required bool) Option {
	return func(v *Verifier) { v.expected.expiryRequired = required }
}

// WithAllowedClockSkew tolerates the given difference between the issuer's
// clock and ours when checking the validity period.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Verifier) { v.expected.skew = skew }
}

// withClock overrides the time source, for tests.
func withClock(now func() time.Time) Option {
	return func(v *Verifier) { v.expected.now = now }
}

func NewVerifier(resolver CertificateResolver, opts ...Option) *Verifier {
	v := &Verifier{
		resolver: resolver,
		parser:   gojwt.NewParser(gojwt.WithValidMethods([]string{requiredAlgorithm})),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Verify extracts the bearer token from the Authorization header value and
// verifies it.
func (v *Verifier) Verify(ctx context.Context, authorizationHeader string) (*VerifiedClaims, error) {
	token, err := TokenFromHeader(authorizationHeader)
	if err != nil {
		return nil, &VerificationError{Err: err}
	}

	return v.VerifyToken(ctx, token)
}

// VerifyToken verifies the token signature using the certificate for the key
// named in its header, then validates its claims.
//
// The header is first decoded without verification only to discover the key
// identifier: nothing else from the unverified token is trusted.
func (v *Verifier) VerifyToken(ctx context.Context, tokenString string) (*VerifiedClaims, error) {
	ctx, span := tracer.Start(ctx, "jwt.VerifyToken")
	defer span.End()

	kid, claims, err := v.verify(ctx, tokenString)
	span.SetAttributes(attribute.String("jwt.kid", kid))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return nil, &VerificationError{KeyID: kid, Err: err}
	}

	return claims, nil
}

// ValidateToken adapts the verifier to the signature expected by the JWT
// middleware.
func (v *Verifier) ValidateToken(ctx context.Context, tokenString string) (any, error) {
	return v.VerifyToken(ctx, tokenString)
}

func (v *Verifier) verify(ctx context.Context, tokenString string) (string, *VerifiedClaims, error) {
	unverified, err := v.decode(tokenString)
	if err != nil {
		return "", nil, err
	}

	kid, _ := unverified.Header["kid"].(string)

	cert, err := v.resolver.Resolve(ctx, kid)
	if err != nil {
		return kid, nil, err
	}

	if alg := unverified.Method.Alg(); alg != requiredAlgorithm {
		return kid, nil, fmt.Errorf("%w: unexpected signing algorithm %s, expected %s", ErrClaimsInvalid, alg, requiredAlgorithm)
	}

	publicKey, err := gojwt.ParseRSAPublicKeyFromPEM([]byte(cert.PEM))
	if err != nil {
		return kid, nil, fmt.Errorf("%w: certificate for key %q: %w", jwks.ErrMalformedKey, cert.KeyID, err)
	}

	claims := &VerifiedClaims{keyID: kid, expected: v.expected}

	_, err = v.parser.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (any, error) {
		return publicKey, nil
	})
	if err != nil {
		return kid, nil, classify(err)
	}

	return kid, claims, nil
}

// decode reads the token header and payload without verifying the signature.
func (v *Verifier) decode(tokenString string) (*gojwt.Token, error) {
	token, _, err := v.parser.ParseUnverified(tokenString, &gojwt.RegisteredClaims{})
	if err == nil {
		return token, nil
	}

	// the structure decoded but the algorithm is not one we know how to verify
	var ve *gojwt.ValidationError
	if errors.As(err, &ve) && ve.Errors&gojwt.ValidationErrorUnverifiable != 0 {
		return nil, fmt.Errorf("%w: unsupported signing algorithm: %w", ErrClaimsInvalid, err)
	}

	return nil, fmt.Errorf("%w: %w", ErrTokenDecode, err)
}

// classify maps a verification failure from the JWT library onto the error
// taxonomy. A bad signature takes precedence over claim failures, as the
// claims of a token with an invalid signature are meaningless.
func classify(err error) error {
	var ve *gojwt.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	switch {
	case ve.Errors&gojwt.ValidationErrorMalformed != 0:
		return fmt.Errorf("%w: %w", ErrTokenDecode, err)
	case ve.Errors&(gojwt.ValidationErrorSignatureInvalid|gojwt.ValidationErrorUnverifiable) != 0:
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %w", ErrClaimsInvalid, err)
	}
}

package jwt

import (
	"context"
	"errors"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/jamestelfer/jwks-authorizer/internal/audit"
	"github.com/rs/zerolog/log"
)

// Middleware returns HTTP middleware that verifies the bearer token in the
// Authorization header with the supplied verifier. The verified claims are set
// on the request context and can be retrieved by calling
// jwt.ClaimsFromContext(ctx).
func Middleware(verifier *Verifier, options ...jwtmiddleware.Option) func(http.Handler) http.Handler {
	options = append([]jwtmiddleware.Option{jwtmiddleware.WithTokenExtractor(HeaderTokenExtractor)}, options...)

	return jwtmiddleware.New(verifier.ValidateToken, options...).CheckJWT
}

// HeaderTokenExtractor reads the bearer token from the Authorization header. A
// missing header yields an empty token so the middleware reports it as absent.
func HeaderTokenExtractor(r *http.Request) (string, error) {
	token, err := TokenFromHeader(r.Header.Get("Authorization"))
	if errors.Is(err, ErrAuthHeaderMissing) {
		return "", nil
	}

	return token, err
}

// LogErrorHandler returns an error handler for the JWT middleware that logs the
// verification failure and records it in the audit entry before writing the
// default error response. Failure details are not returned to the client.
func LogErrorHandler() jwtmiddleware.ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		kind := ErrorKind(err)
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			kind = ErrorKind(ErrAuthHeaderMissing)
		}
		kid := KeyIDFromError(err)

		log.Info().
			Err(err).
			Str("errorKind", kind).
			Str("kid", kid).
			Msg("token verification failed")

		entry := audit.Log(r.Context())
		entry.Error = err.Error()
		entry.ErrorKind = kind
		entry.KeyID = kid

		// a malformed header is a client error, not a failure of the middleware
		if errors.Is(err, ErrAuthHeaderMalformed) {
			err = jwtmiddleware.ErrJWTInvalid
		}

		jwtmiddleware.DefaultErrorHandler(w, r, err)
	}
}

// ClaimsFromContext returns the verified claims from the context as set by the
// JWT middleware. This will return nil if the context data is not set. This
// should be regarded as an error for handlers that expect the claims to be
// present.
func ClaimsFromContext(ctx context.Context) *VerifiedClaims {
	claims, _ := ctx.Value(jwtmiddleware.ContextKey{}).(*VerifiedClaims)
	return claims
}

// RequireClaimsFromContext returns the verified claims from the context,
// panicking if they are not present. Handlers behind Middleware can rely on
// the claims being set.
func RequireClaimsFromContext(ctx context.Context) *VerifiedClaims {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		panic("verified claims not present in context, likely used outside of the JWT middleware")
	}

	return claims
}

// ContextWithClaims returns a new context with the claims set, as the
// middleware would.
func ContextWithClaims(ctx context.Context, claims *VerifiedClaims) context.Context {
	return context.WithValue(ctx, jwtmiddleware.ContextKey{}, claims)
}

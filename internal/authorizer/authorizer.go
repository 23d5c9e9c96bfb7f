package authorizer

import (
	"context"
	"fmt"

	"github.com/jamestelfer/jwks-authorizer/internal/audit"
	"github.com/jamestelfer/jwks-authorizer/internal/jwt"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/jamestelfer/jwks-authorizer/internal/authorizer"

var tracer = otel.Tracer(instrumentationName)

// TokenVerifier verifies the Authorization header presented with a request.
type TokenVerifier interface {
	Verify(ctx context.Context, authorizationHeader string) (*jwt.VerifiedClaims, error)
}

// Authorizer turns a presented bearer token into an access decision.
type Authorizer struct {
	verifier  TokenVerifier
	decisions metric.Int64Counter
}

type Option func(*settings)

type settings struct {
	meterProvider metric.MeterProvider
}

// WithMeterProvider records decision metrics with the given provider instead
// of the global one.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(s *settings) { s.meterProvider = provider }
}

func New(verifier TokenVerifier, opts ...Option) (*Authorizer, error) {
	s := settings{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&s)
	}

	decisions, err := s.meterProvider.Meter(instrumentationName).Int64Counter(
		"authorizer.decisions",
		metric.WithDescription("Authorization decisions made, by effect and failure kind"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("decision counter could not be created: %w", err)
	}

	return &Authorizer{
		verifier:  verifier,
		decisions: decisions,
	}, nil
}

// Authorize verifies the bearer token in authorizationHeader and returns the
// resulting decision. It never fails: any verification error results in a
// Deny decision, with the cause logged and recorded in the audit entry.
func (a *Authorizer) Authorize(ctx context.Context, authorizationHeader string) Response {
	ctx, span := tracer.Start(ctx, "authorizer.Authorize")
	defer span.End()

	logger := zerolog.Ctx(ctx)
	entry := audit.Log(ctx)

	var response Response

	claims, err := a.verifier.Verify(ctx, authorizationHeader)
	if err != nil {
		kind := jwt.ErrorKind(err)
		kid := jwt.KeyIDFromError(err)

		logger.Info().
			Err(err).
			Str("errorKind", kind).
			Str("kid", kid).
			Msg("authorization denied")

		entry.Error = err.Error()
		entry.ErrorKind = kind
		entry.KeyID = kid

		response = Deny()
		a.record(ctx, response, kind)
	} else {
		kid := claims.KeyID()

		logger.Info().
			Str("subject", claims.Subject).
			Str("kid", kid).
			Msg("authorization allowed")

		entry.Authorized = true
		entry.AuthSubject = claims.Subject
		entry.AuthIssuer = claims.Issuer
		entry.AuthAudience = claims.Audience
		entry.AuthExpirySecs = claims.ExpirySecs()
		entry.KeyID = kid

		response = Allow(claims.Subject)
		a.record(ctx, response, "")
	}

	entry.Effect = string(response.Effect())
	entry.PrincipalID = response.PrincipalID

	span.SetAttributes(attribute.String("authorizer.effect", entry.Effect))

	return response
}

func (a *Authorizer) record(ctx context.Context, response Response, errorKind string) {
	attrs := []attribute.KeyValue{attribute.String("effect", string(response.Effect()))}
	if errorKind != "" {
		attrs = append(attrs, attribute.String("error_kind", errorKind))
	}

	a.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

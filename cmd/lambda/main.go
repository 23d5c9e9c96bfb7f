// Command lambda runs the authorizer as an API Gateway custom token
// authorizer function.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jamestelfer/jwks-authorizer/internal/audit"
	"github.com/jamestelfer/jwks-authorizer/internal/authorizer"
	"github.com/jamestelfer/jwks-authorizer/internal/bootstrap"
	"github.com/jamestelfer/jwks-authorizer/internal/config"
	"github.com/jamestelfer/jwks-authorizer/internal/observe"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Authorizer decides whether the bearer token in an Authorization header value
// grants access.
type Authorizer interface {
	Authorize(ctx context.Context, authorizationHeader string) authorizer.Response
}

// handler returns the function invoked for each gateway event. It never
// returns an error: a failure to authorize is a Deny decision.
func handler(a Authorizer) func(context.Context, events.APIGatewayCustomAuthorizerRequest) (authorizer.Response, error) {
	return func(ctx context.Context, event events.APIGatewayCustomAuthorizerRequest) (authorizer.Response, error) {
		ctx, entry := audit.Context(ctx)
		entry.MethodArn = event.MethodArn
		defer entry.End(ctx)()

		zerolog.Ctx(ctx).Info().Str("methodArn", event.MethodArn).Str("type", event.Type).Msg("authorizing request")

		return a.Authorize(ctx, event.AuthorizationToken), nil
	}
}

func main() {
	bootstrap.ConfigureLogging()
	audit.Configure()

	bootstrap.LogBuildInfo()

	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration load failed")
	}

	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry bootstrap failed")
	}

	components, err := bootstrap.New(cfg, bootstrap.HttpClient(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("authorizer configuration failed")
	}

	lambda.StartWithOptions(
		handler(components.Authorizer),
		lambda.WithEnableSIGTERM(func() {
			log.Info().Msg("telemetry: shutting down")
			if err := shutdownTelemetry(context.Background()); err != nil {
				log.Warn().Err(err).Msg("telemetry: shutdown failed")
			}
		}),
	)
}

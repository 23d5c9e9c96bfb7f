package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/jamestelfer/jwks-authorizer/internal/audit"
	"github.com/jamestelfer/jwks-authorizer/internal/authorizer"
	"github.com/jamestelfer/jwks-authorizer/internal/jwt"
	"github.com/rs/zerolog/log"
)

// Authorizer decides whether the bearer token in an Authorization header value
// grants access.
type Authorizer interface {
	Authorize(ctx context.Context, authorizationHeader string) authorizer.Response
}

// authorizeRequest is the gateway token authorizer event.
type authorizeRequest struct {
	Type               string `json:"type"`
	AuthorizationToken string `json:"authorizationToken"`
	MethodArn          string `json:"methodArn"`
}

// principalResponse describes the verified caller.
type principalResponse struct {
	Subject string `json:"subject"`
	Issuer  string `json:"issuer,omitempty"`
	Expiry  int64  `json:"expiry,omitempty"`
}

func handlePostAuthorize(a Authorizer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Ensure that the request body is fully read prior to returning. This
		// avoids issues with blocked connections and connection reuse.
		defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

		var event authorizeRequest
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			// an unreadable event carries no token: the decision is still made
			// and is always a denial
			log.Info().Err(err).Msg("authorization event could not be read")
			event = authorizeRequest{}
		}

		audit.Log(r.Context()).MethodArn = event.MethodArn

		response := a.Authorize(r.Context(), event.AuthorizationToken)

		writeJSON(w, response)
	})
}

func handleGetPrincipal() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// claims must be present from the middleware
		claims := jwt.RequireClaimsFromContext(r.Context())

		entry := audit.Log(r.Context())
		entry.Authorized = true
		entry.AuthSubject = claims.Subject
		entry.AuthIssuer = claims.Issuer
		entry.AuthAudience = claims.Audience
		entry.AuthExpirySecs = claims.ExpirySecs()
		entry.KeyID = claims.KeyID()

		writeJSON(w, principalResponse{
			Subject: claims.Subject,
			Issuer:  claims.Issuer,
			Expiry:  claims.ExpirySecs(),
		})
	})
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// maxRequestSize limits the size of the request body that will be read.
func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, body any) {
	marshalledResponse, err := json.Marshal(body)
	if err != nil {
		log.Info().Err(err).Msg("failed to marshal response")
		requestError(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(marshalledResponse)
	if err != nil {
		// record failure to log: trying to respond to the client at this
		// point will likely fail
		log.Info().Err(err).Msg("failed to write response")
	}
}

func requestError(w http.ResponseWriter, statusCode int) {
	http.Error(w, http.StatusText(statusCode), statusCode)
}

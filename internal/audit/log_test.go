package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jamestelfer/jwks-authorizer/internal/audit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {

	t.Run("captures request info and configures context", func(t *testing.T) {
		testAgent := "kettle/1.0"
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entry := audit.Log(r.Context())
			assert.Equal(t, testAgent, entry.UserAgent)
			assert.Equal(t, "/foo", entry.Path)

			w.WriteHeader(http.StatusTeapot)
		})

		middleware := audit.Middleware()(handler)

		req, w := requestSetup()
		req.Header.Set("User-Agent", testAgent)

		middleware.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTeapot, w.Result().StatusCode)
	})

	t.Run("captures status code and size", func(t *testing.T) {
		var capturedContext context.Context
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedContext = r.Context()
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		})

		req, w := requestSetup()

		audit.Middleware()(handler).ServeHTTP(w, req)

		entry := audit.Log(capturedContext)

		assert.Equal(t, http.StatusTeapot, w.Result().StatusCode)
		assert.Equal(t, http.StatusTeapot, entry.Status)
		assert.Equal(t, 15, entry.ResponseBytes)
	})

	t.Run("log written", func(t *testing.T) {
		auditWritten := false

		ctx := withLogHook(
			context.Background(),
			zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
				if level == audit.Level {
					auditWritten = true
				}
			}),
		)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})

		req, w := requestSetup()

		audit.Middleware()(handler).ServeHTTP(w, req.WithContext(ctx))

		assert.True(t, auditWritten, "audit log entry should be written")
	})

	t.Run("log written on panic", func(t *testing.T) {
		auditWritten := false

		ctx := withLogHook(
			context.Background(),
			zerolog.HookFunc(func(e *zerolog.Event, level zerolog.Level, msg string) {
				if level == audit.Level {
					auditWritten = true
				}
			}),
		)

		var entry *audit.Entry

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, entry = audit.Context(r.Context())
			entry.Error = "failure pre-panic"
			panic("not a teapot")
		})

		middleware := audit.Middleware()(handler)

		req, w := requestSetup()

		assert.PanicsWithValue(t, "not a teapot", func() {
			middleware.ServeHTTP(w, req.WithContext(ctx))
		})

		assert.Equal(t, "failure pre-panic; panic: not a teapot", entry.Error)
		assert.Equal(t, http.StatusInternalServerError, entry.Status)
		assert.True(t, auditWritten, "audit log entry should be written")
	})
}

func TestAuditing(t *testing.T) {
	ctx := context.Background()
	r, _ := requestSetup()

	_, e := audit.Context(ctx)
	e.Begin(r)
	e.End(ctx)()

	assert.NotEmpty(t, e.SourceIP)
	e.SourceIP = "" // clear IP as it will change between tests

	assert.Equal(t, &audit.Entry{Method: "GET", Path: "/foo", UserAgent: "kettle/1.0", Status: 200}, e)
}

func TestAuditing_GatewayEvent(t *testing.T) {
	ctx := context.Background()

	_, e := audit.Context(ctx)
	e.MethodArn = "arn:aws:execute-api:us-east-1:123456789012:api/prod/GET/pets"
	e.End(ctx)()

	assert.Zero(t, e.Status, "status is only defaulted for HTTP requests")
}

func TestEntryOmitsUnsetDetails(t *testing.T) {
	audit.Configure()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	_, e := audit.Context(ctx)
	e.Authorized = true
	e.Effect = "Allow"
	e.PrincipalID = "user-123"
	e.AuthSubject = "user-123"
	e.KeyID = "kid-1"
	e.End(ctx)()

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))

	assert.Equal(t, "audit", fields["level"])
	assert.Equal(t, "Allow", fields["effect"])
	assert.Equal(t, "user-123", fields["principalId"])
	assert.Equal(t, "kid-1", fields["kid"])
	assert.NotContains(t, fields, "error")
	assert.NotContains(t, fields, "method")
	assert.NotContains(t, fields, "authExpiry")
}

func TestEntryRecordsFailure(t *testing.T) {
	audit.Configure()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := logger.WithContext(context.Background())

	_, e := audit.Context(ctx)
	e.Effect = "Deny"
	e.PrincipalID = "user"
	e.ErrorKind = "KeyNotFound"
	e.Error = "no usable key matches the token key identifier"
	e.End(ctx)()

	var fields map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))

	assert.Equal(t, false, fields["authorized"])
	assert.Equal(t, "KeyNotFound", fields["errorKind"])
	assert.Equal(t, "no usable key matches the token key identifier", fields["error"])
}

func requestSetup() (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/foo", nil)
	req.Header.Set("User-Agent", "kettle/1.0")

	w := httptest.NewRecorder()

	return req, w
}

func withLogHook(ctx context.Context, hook zerolog.HookFunc) context.Context {
	testLog := log.Logger.With().Logger().Hook(hook)
	return testLog.WithContext(ctx)
}

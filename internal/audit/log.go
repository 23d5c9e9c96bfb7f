package audit

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var _ zerolog.LogObjectMarshaler = (*Entry)(nil)

type key struct{}

const (
	// Level is the log level at which audit logs are written.
	Level = zerolog.Level(20)
)

var logKey = key{}

// Entry is the audit record of a single authorization attempt. Over HTTP it
// also captures the request; for gateway events the MethodArn identifies what
// was being invoked.
type Entry struct {
	Method         string
	Path           string
	Status         int
	ResponseBytes  int
	SourceIP       string
	UserAgent      string
	MethodArn      string
	Authorized     bool
	Effect         string
	PrincipalID    string
	AuthSubject    string
	AuthIssuer     string
	AuthAudience   []string
	AuthExpirySecs int64
	KeyID          string
	ErrorKind      string
	Error          string
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler. The token itself
// is never part of the entry.
func (e *Entry) MarshalZerologObject(event *zerolog.Event) {
	event.Bool("authorized", e.Authorized).
		Str("effect", e.Effect).
		Str("principalId", e.PrincipalID).
		Str("authSubject", e.AuthSubject).
		Str("authIssuer", e.AuthIssuer).
		Str("kid", e.KeyID)

	if e.Method != "" {
		event.Str("method", e.Method).
			Str("path", e.Path).
			Int("status", e.Status).
			Int("responseBytes", e.ResponseBytes).
			Str("userAgent", e.UserAgent)
	}

	if e.SourceIP != "" {
		event.Str("sourceIP", e.SourceIP)
	}

	if e.MethodArn != "" {
		event.Str("methodArn", e.MethodArn)
	}

	if e.AuthExpirySecs > 0 {
		exp := time.Unix(e.AuthExpirySecs, 0)
		event.Time("authExpiry", exp).
			Dur("authExpiryRemaining", time.Until(exp).Round(time.Millisecond))
	}

	if len(e.AuthAudience) > 0 {
		event.Strs("authAudience", e.AuthAudience)
	}

	if e.Error != "" {
		event.Str("errorKind", e.ErrorKind).Str("error", e.Error)
	}
}

// Begin sets up the audit log entry with details from the HTTP request.
func (e *Entry) Begin(r *http.Request) {
	e.Path = r.URL.Path
	e.Method = r.Method
	e.UserAgent = r.UserAgent()
	e.SourceIP = r.RemoteAddr
}

// End writes the audit log entry. If the returned func is deferred, any panic
// will be recovered so the log entry can be written before the panic is
// re-raised.
func (e *Entry) End(ctx context.Context) func() {
	return func() {
		r := recover()
		if r != nil {
			// keep any earlier error alongside the panic
			e.Status = http.StatusInternalServerError
			err := fmt.Sprintf("panic: %v", r)
			if e.Error != "" {
				e.Error += "; "
			}
			e.Error += err
		}

		if e.Method != "" && e.Status == 0 {
			e.Status = http.StatusOK
		}

		zerolog.Ctx(ctx).WithLevel(Level).EmbedObject(e).Str("type", "audit").Msg("audit_event")

		if r != nil {
			panic(r)
		}
	}
}

// Middleware is an HTTP middleware that creates a new audit log entry for the
// current request and writes it when the request is complete.
//
// A panic during the request will be recovered and logged as an error in the
// audit entry before being re-raised. Handlers further enrich the entry with
// the outcome of authorization.
func Middleware() func(next http.Handler) http.Handler {
	Configure()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, entry := Context(r.Context())

			response := wrapResponseWriter(w, entry)

			entry.Begin(r)
			defer entry.End(ctx)()

			next.ServeHTTP(response, r.WithContext(ctx))
		})
	}
}

// Log gets the entry for the current request. This is safe to use even if the
// context does not carry an entry, though anything written to it is then lost.
func Log(ctx context.Context) *Entry {
	_, e := Context(ctx)
	return e
}

// Context returns the Entry for the current request, creating one if it
// does not exist. If the returned context is kept, the returned entry can be
// further enriched.
func Context(ctx context.Context) (context.Context, *Entry) {
	e, ok := ctx.Value(logKey).(*Entry)
	if !ok {
		e = &Entry{}

		ctx = context.WithValue(ctx, logKey, e)
	}

	return ctx, e
}

// Configure registers the audit level with zerolog so it is written as
// "audit" rather than a number.
func Configure() {
	configure.Do(func() {
		zerolog.FormattedLevels[Level] = "AUD"

		marshal := zerolog.LevelFieldMarshalFunc
		zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
			if l == Level {
				return "audit"
			}
			return marshal(l)
		}
	})
}

var configure sync.Once

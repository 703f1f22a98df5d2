// Package httpmw provides the ambient HTTP middleware stack: security
// headers, a HEAD→GET rewrite, a request body size cap, and a per-request
// trace id threaded through a structured slog.Logger. Rewritten from the
// teacher's shield package (headers.go, head.go, maxbody.go, trace.go),
// dropped to the pieces this daemon actually needs — no cookies, no flash
// messaging, no DB-backed rate limiting.
package httpmw

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/greenlance/scanorc/idgen"
)

// traceIDGen mints request trace ids: a "trc_" prefixed UUIDv7, the same
// generator family internal/storage uses for scan ids, so every id this
// daemon hands out shares one generation strategy.
var traceIDGen = idgen.Prefixed("trc_", idgen.Default)

// SecurityHeaders sets a conservative baseline of response headers on
// every response, the way shield.Headers does for the teacher's public
// surface.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// HeadToGet rewrites HEAD requests to GET before handing off to next,
// restoring the original method once the handler returns, so handlers
// never need to special-case HEAD, for a router that wants every GET
// route to also answer HEAD.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		r.Method = http.MethodGet
		next.ServeHTTP(headSuppressingWriter{w}, r)
		r.Method = http.MethodHead
	})
}

// headSuppressingWriter discards the body a GET handler writes, since a
// HEAD response must carry headers only.
type headSuppressingWriter struct {
	http.ResponseWriter
}

func (w headSuppressingWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

// MaxBody caps the request body at n bytes, returning a handler that
// wraps next's body in http.MaxBytesReader.
func MaxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

type traceIDKey struct{}
type loggerKey struct{}

// TraceID mints a uuid per request, stores it in the request context, and
// attaches it as a response header — mirroring shield's TraceID
// middleware but using idgen's default generator rather than a raw
// uuid.New call, so scan ids and trace ids are minted the same way.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := traceIDGen()
		w.Header().Set("X-Trace-Id", id)
		ctx := context.WithValue(r.Context(), traceIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceIDFromContext returns the request's trace id, or "" if none was set.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// RequestLogger attaches a slog.Logger carrying the request's trace id
// and method/path to the request context, and logs one line per request
// on completion with its status. The trace id is read from the context,
// so TraceID must run before RequestLogger in the middleware chain.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"trace_id", TraceIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx := context.WithValue(r.Context(), loggerKey{}, logger)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r.WithContext(ctx))
			logger.Info("request", "status", sw.status)
		})
	}
}

// LoggerFromContext returns the request-scoped logger attached by
// RequestLogger, or slog.Default() if none was set.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

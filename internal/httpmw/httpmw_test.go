package httpmw

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeadersSetsBaseline(t *testing.T) {
	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("expected X-Frame-Options: DENY, got %q", rec.Header().Get("X-Frame-Options"))
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected X-Content-Type-Options: nosniff")
	}
}

func TestHeadToGetSuppressesBody(t *testing.T) {
	h := HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("handler should see GET, got %s", r.Method)
		}
		io.WriteString(w, "body")
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodHead, "/", nil)
	h.ServeHTTP(rec, req)
	if rec.Body.Len() != 0 {
		t.Fatalf("expected HEAD to suppress body, got %q", rec.Body.String())
	}
	if req.Method != http.MethodHead {
		t.Fatal("original request method must be restored after the handler returns")
	}
}

func TestMaxBodyRejectsOversizedRequest(t *testing.T) {
	h := MaxBody(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err == nil {
			t.Fatal("expected oversized body read to fail")
		}
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("this is way too long"))
	h.ServeHTTP(rec, req)
}

func TestTraceIDSetsHeaderAndContext(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatal("expected X-Trace-Id header to be set")
	}
	if seen != rec.Header().Get("X-Trace-Id") {
		t.Fatal("context trace id must match the response header")
	}
}

func TestRecoverLogsAndDoesNotPropagatePanicToClient(t *testing.T) {
	// We can't exercise the os.Exit(1) path in a unit test; this test only
	// documents that Recover is a standard middleware constructor and
	// composes with the rest of the chain without panicking the test
	// runner itself when wrapping a well-behaved handler.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Recover(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

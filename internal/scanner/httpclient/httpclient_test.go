package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/greenlance/scanorc/internal/models"
	"github.com/greenlance/scanorc/internal/retry"
)

func TestFetchDecodesBackendResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"Status": models.Status{Phase: models.PhaseRunning},
			"Results": []models.Result{
				{ID: 0, Kind: models.ResultLog},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.Fetch(context.Background(), "scan-1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status.Phase != models.PhaseRunning {
		t.Fatalf("expected Running, got %s", res.Status.Phase)
	}
	if len(res.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.Results))
	}
}

func TestCallSurfacesBackend5xxAsRetryableError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.Policy = retry.Policy{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxElapsedTime: 30 * time.Millisecond}
	if err := c.Start(context.Background(), "scan-1", models.Scan{}); err == nil {
		t.Fatal("expected error from a persistently failing backend")
	}
	if attempts < 2 {
		t.Fatalf("expected more than one attempt, got %d", attempts)
	}
}

func TestCall4xxIsNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Delete(context.Background(), "scan-1"); err == nil {
		t.Fatal("expected error from 404 backend response")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt for a non-retryable 4xx, got %d", attempts)
	}
}

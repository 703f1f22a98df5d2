package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/greenlance/scanorc/internal/crypt"
	"github.com/greenlance/scanorc/internal/models"
	"github.com/greenlance/scanorc/internal/scanner"
	"github.com/greenlance/scanorc/internal/scanner/scannertest"
	"github.com/greenlance/scanorc/internal/storage"
)

func newTestContextBuilder(t *testing.T) *Builder {
	t.Helper()
	key, err := crypt.RandomKey()
	if err != nil {
		t.Fatal(err)
	}
	cipher, err := crypt.New(key)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	store := storage.New(cipher, func() string {
		n++
		return "uuid-" + itoa(n)
	})
	return NewBuilder(store)
}

func itoa(n int) string {
	return string(rune('0' + n))
}

func doRequest(h http.Handler, method, target string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		data, _ := json.Marshal(body)
		r = httptest.NewRequest(method, target, bytes.NewReader(data))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestDefaultHEAD(t *testing.T) {
	ctx := newTestContextBuilder(t).Scanner(scanner.NoOp{}).Build()
	rec := doRequest(ctx.Router(), http.MethodHead, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("api-version") != "1" {
		t.Fatalf("expected api-version: 1, got %q", rec.Header().Get("api-version"))
	}
	if rec.Header().Get("authentication") != "" {
		t.Fatalf("expected empty authentication header, got %q", rec.Header().Get("authentication"))
	}
}

func TestCreateGetDeleteRoundTrip(t *testing.T) {
	ctx := newTestContextBuilder(t).Scanner(scanner.NoOp{}).Build()
	router := ctx.Router()

	rec := doRequest(router, http.MethodPost, "/scans", models.Scan{}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var id string
	if err := json.Unmarshal(rec.Body.Bytes(), &id); err != nil {
		t.Fatal(err)
	}

	rec = doRequest(router, http.MethodGet, "/scans/"+id, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodDelete, "/scans/"+id, nil, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/scans/"+id, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestFullLifecycleWithFakeScannerYields4950Results(t *testing.T) {
	fake := scannertest.New()
	ctx := newTestContextBuilder(t).
		ResultPollInterval(10 * time.Nanosecond).
		Scanner(fake).
		Build()
	router := ctx.Router()

	rec := doRequest(router, http.MethodPost, "/scans", models.Scan{}, nil)
	var id string
	json.Unmarshal(rec.Body.Bytes(), &id)

	rec = doRequest(router, http.MethodPost, "/scans/"+id, models.ScanAction{Action: models.ActionStart}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 starting scan, got %d: %s", rec.Code, rec.Body.String())
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctx.RunResultPoller(pollCtx)

	deadline := time.Now().Add(10 * time.Second)
	for {
		rec = doRequest(router, http.MethodGet, "/scans/"+id+"/status", nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 on status, got %d", rec.Code)
		}
		var status models.Status
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatal(err)
		}
		if status.Phase == models.PhaseSucceeded {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scan did not reach Succeeded in time, last phase %s", status.Phase)
		}
		time.Sleep(time.Millisecond)
	}
	ctx.SetAbort(true)

	rec = doRequest(router, http.MethodGet, "/scans/"+id+"/results", nil, nil)
	var results []models.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatal(err)
	}
	if len(results) != 4950 {
		t.Fatalf("expected 4950 results, got %d", len(results))
	}
	for i, r := range results {
		if r.ID != i {
			t.Fatalf("expected dense ascending ids, got id %d at position %d", r.ID, i)
		}
	}

	rec = doRequest(router, http.MethodGet, "/scans/"+id+"/results/0", nil, nil)
	json.Unmarshal(rec.Body.Bytes(), &results)
	if len(results) != 1 || results[0].ID != 0 {
		t.Fatalf("expected single result id 0, got %+v", results)
	}

	rec = doRequest(router, http.MethodGet, "/scans/"+id+"/results/4949", nil, nil)
	json.Unmarshal(rec.Body.Bytes(), &results)
	if len(results) != 1 || results[0].ID != 4949 {
		t.Fatalf("expected single result id 4949, got %+v", results)
	}

	rec = doRequest(router, http.MethodGet, "/scans/"+id+"/results?range=4900-4923", nil, nil)
	json.Unmarshal(rec.Body.Bytes(), &results)
	if len(results) != 24 {
		t.Fatalf("expected 24 results in range, got %d", len(results))
	}
	for i, r := range results {
		if r.ID != 4900+i {
			t.Fatalf("expected ids 4900..4923, got %d at position %d", r.ID, i)
		}
	}
}

func TestAuthGate(t *testing.T) {
	ctx := newTestContextBuilder(t).APIKey("mtls_is_preferred").Scanner(scanner.NoOp{}).Build()
	router := ctx.Router()

	rec := doRequest(router, http.MethodPost, "/scans", models.Scan{}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no key, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/scans", models.Scan{}, map[string]string{"x-api-key": "mtls_is_preferred"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 with correct key, got %d", rec.Code)
	}
}

func TestInvalidTransitionReturns409(t *testing.T) {
	ctx := newTestContextBuilder(t).Scanner(scanner.NoOp{}).Build()
	router := ctx.Router()

	rec := doRequest(router, http.MethodPost, "/scans", models.Scan{}, nil)
	var id string
	json.Unmarshal(rec.Body.Bytes(), &id)

	rec = doRequest(router, http.MethodPost, "/scans/"+id, models.ScanAction{Action: models.ActionStart}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on first start, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodPost, "/scans/"+id, models.ScanAction{Action: models.ActionStart}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeated start, got %d", rec.Code)
	}
}

// raceyStopScanner simulates the Result Poller winning a race against an
// in-flight stop request: by the time the backend acknowledges Stop, the
// store has already moved the scan to a terminal phase.
type raceyStopScanner struct {
	scanner.NoOp
	store *storage.Store
	id    string
}

func (r raceyStopScanner) Stop(ctx context.Context, id string) error {
	if err := r.store.UpdateStatus(r.id, models.Status{Phase: models.PhaseSucceeded}); err != nil {
		return err
	}
	return nil
}

func TestStopRaceAgainstTerminalPhaseIsNoOp(t *testing.T) {
	key, err := crypt.RandomKey()
	if err != nil {
		t.Fatal(err)
	}
	cipher, err := crypt.New(key)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	store := storage.New(cipher, func() string {
		n++
		return "uuid-" + itoa(n)
	})

	id, err := store.Insert(models.Scan{})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateStatus(id, models.Status{Phase: models.PhaseRequested}); err != nil {
		t.Fatal(err)
	}

	ctx := NewBuilder(store).Scanner(raceyStopScanner{store: store, id: id}).Build()

	if err := ctx.applyAction(context.Background(), id, models.ScanAction{Action: models.ActionStop}); err != nil {
		t.Fatalf("expected stop racing a terminal phase to be treated as a no-op, got %v", err)
	}

	_, status, err := store.GetScan(id)
	if err != nil {
		t.Fatal(err)
	}
	if status.Phase != models.PhaseSucceeded {
		t.Fatalf("expected the poller's terminal write to stick, got %s", status.Phase)
	}
}

func TestCensoringHidesPasswordButBackendSeesPlaintext(t *testing.T) {
	fake := scannertest.New()
	ctx := newTestContextBuilder(t).Scanner(fake).Build()
	router := ctx.Router()

	scan := models.Scan{Credentials: []models.Credential{
		{Service: models.ServiceSSH, Kind: models.CredentialUP, Username: "root", Password: "hunter2"},
	}}
	rec := doRequest(router, http.MethodPost, "/scans", scan, nil)
	var id string
	json.Unmarshal(rec.Body.Bytes(), &id)

	rec = doRequest(router, http.MethodGet, "/scans/"+id, nil, nil)
	if !strings.Contains(rec.Body.String(), `"password":"***"`) {
		t.Fatalf("expected censored password in response, got %s", rec.Body.String())
	}

	rec = doRequest(router, http.MethodPost, "/scans/"+id, models.ScanAction{Action: models.ActionStart}, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 starting scan, got %d", rec.Code)
	}

	plain, err := ctx.store.GetDecryptedScan(id)
	if err != nil {
		t.Fatal(err)
	}
	if plain.Credentials[0].Password != "hunter2" {
		t.Fatalf("expected backend-visible password to be plaintext, got %q", plain.Credentials[0].Password)
	}
}

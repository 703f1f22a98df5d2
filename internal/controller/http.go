package controller

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/greenlance/scanorc/internal/httpmw"
	"github.com/greenlance/scanorc/internal/models"
	"github.com/greenlance/scanorc/internal/storage"
)

// Router builds the full chi.Router for this Context: the ambient
// middleware stack (component J) wrapping the routing table from spec
// §6.1 (component H).
func (c *Context) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httpmw.Recover(c.log()))
	r.Use(httpmw.TraceID)
	r.Use(httpmw.RequestLogger(c.log()))
	r.Use(httpmw.SecurityHeaders)
	r.Use(httpmw.MaxBody(1 << 20))

	// HEAD / is the only route the routing table requires a HEAD method
	// for (spec §6.1); httpmw.HeadToGet exists for a backend that wants
	// every GET route to also answer HEAD, which this surface doesn't
	// need, so it is wired directly by tests rather than into this router.
	r.Head("/", c.handleRoot)

	r.Group(func(r chi.Router) {
		r.Use(c.authMiddleware)
		r.Post("/scans", c.handleCreateScan)
		r.Get("/scans", c.handleListScans)
		r.Get("/scans/{id}", c.handleGetScan)
		r.Get("/scans/{id}/status", c.handleGetStatus)
		r.Get("/scans/{id}/results", c.handleGetResults)
		r.Get("/scans/{id}/results/{idx}", c.handleGetResultByIndex)
		r.Post("/scans/{id}", c.handlePostAction)
		r.Delete("/scans/{id}", c.handleDeleteScan)
	})

	return r
}

// authMiddleware enforces x-api-key on every route it wraps, per spec
// §6.1: "All non-HEAD endpoints require x-api-key matching the
// configured key, when one is configured." Comparison is constant time
// to avoid leaking the key length/contents through response timing.
func (c *Context) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.authRequired() {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("x-api-key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(c.apiKey)) != 1 {
			writeError(w, newAPIError(errUnauthorized, "missing or mismatched x-api-key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *Context) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("api-version", "1")
	if c.authRequired() {
		w.Header().Set("authentication", "x-api-key")
	} else {
		w.Header().Set("authentication", "")
	}
	if c.feedPath != "" {
		w.Header().Set("feed-version", c.FeedSnapshot().Version)
	}
	w.WriteHeader(http.StatusOK)
}

func (c *Context) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	var scan models.Scan
	if err := json.NewDecoder(r.Body).Decode(&scan); err != nil {
		writeError(w, newAPIError(errBadRequest, "malformed scan JSON"))
		return
	}
	id, err := c.createScan(r.Context(), scan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, id)
}

func (c *Context) handleListScans(w http.ResponseWriter, r *http.Request) {
	if !c.enableGetScans {
		writeError(w, newAPIError(errNotFound, "listing is disabled"))
		return
	}
	writeJSON(w, http.StatusOK, c.store.Ids())
}

func (c *Context) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	scan, _, err := c.store.GetScan(id)
	if err != nil {
		writeError(w, newAPIError(errNotFound, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (c *Context) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, status, err := c.store.GetScan(id)
	if err != nil {
		writeError(w, newAPIError(errNotFound, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (c *Context) handleGetResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sel, apiErr := parseRangeSelector(r.URL.Query().Get("range"))
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	results, err := c.store.GetResults(id, sel)
	if err != nil {
		writeError(w, newAPIError(errNotFound, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (c *Context) handleGetResultByIndex(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idxStr := chi.URLParam(r, "idx")
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		writeError(w, newAPIError(errBadRequest, "malformed result index"))
		return
	}
	results, err := c.store.GetResults(id, storage.Selector{ID: &idx})
	if err != nil {
		writeError(w, newAPIError(errNotFound, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (c *Context) handlePostAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var action models.ScanAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, newAPIError(errBadRequest, "malformed action JSON"))
		return
	}
	if err := c.applyAction(r.Context(), id, action); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Context) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.deleteScan(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseRangeSelector parses the literal `a-b` range query parameter (spec
// §4.H): inclusive, a <= b. An empty string selects every result.
func parseRangeSelector(raw string) (storage.Selector, error) {
	if raw == "" {
		return storage.Selector{All: true}, nil
	}
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return storage.Selector{}, newAPIError(errBadRequest, "malformed range, want a-b")
	}
	lo, err1 := strconv.Atoi(parts[0])
	hi, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || lo > hi {
		return storage.Selector{}, newAPIError(errBadRequest, "malformed range, want a-b with a<=b")
	}
	return storage.Selector{From: &lo, To: &hi}, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := err.(*apiError)
	if !ok {
		apiErr = newAPIError(errInternal, err.Error())
	}
	writeJSON(w, apiErr.status(), map[string]string{"error": apiErr.Error()})
}

// Package storage implements the Scan Store: an in-memory, process-lifetime
// registry of scan records (spec §4.C). One sync.RWMutex guards the id-keyed
// map itself (inserts, deletes, and lookups); each record additionally
// carries its own sync.Mutex so that at most one mutation (a status write,
// a result append, a delete) is ever in flight per
// scan, while unrelated scans proceed without contention. This is the same
// two-tier locking shape original_source's Context.db field exists behind
// (a single RwLock<HashMap<...>> there; Rust's single Mutex-per-item
// discipline comes from the same "don't serialize strangers" goal).
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/greenlance/scanorc/internal/crypt"
	"github.com/greenlance/scanorc/internal/models"
)

// ErrNotFound is returned for any operation on an unknown scan id.
var ErrNotFound = errors.New("storage: scan not found")

// ErrBackwardsPhase is returned when a status write would move a scan's
// Phase earlier in the lifecycle order, or bounce between terminal phases.
var ErrBackwardsPhase = errors.New("storage: status write would move phase backwards")

// frameIndex locates one sealed result frame inside a record's result log.
type frameIndex struct {
	offset int
	length int
}

// record is the store's internal representation of one scan. Every secret
// string lives sealed (crypt.Cipher output), never in plaintext, except
// transiently inside GetDecryptedScan's return value.
type record struct {
	mu sync.Mutex

	id       string
	scan     models.Scan // every Credential.secretFields() entry is sealed; see sealScan/openScan
	status   models.Status
	resultIx map[int]frameIndex // result id -> location in log
	log      []byte             // concatenation of sealed result frames
	nextID   int                // dedup watermark: one past the highest scanner-assigned id appended
}

// Store is the concurrent scan registry.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	cipher  *crypt.Cipher
	newID   func() string
}

// New constructs an empty Store. newID mints scan ids on Insert (the
// daemon wires idgen.Default for this).
func New(cipher *crypt.Cipher, newID func() string) *Store {
	return &Store{
		records: make(map[string]*record),
		cipher:  cipher,
		newID:   newID,
	}
}

// sealScan seals every secret field (Credential.secretFields(): Username,
// Password, PrivateKey, Community, AuthAlgorithm, PrivacyPassword,
// PrivacyAlgorithm, as applicable to the credential's Kind) of every
// credential in scan, via Credential.MapSecrets; the sealed bytes are
// stashed back into the corresponding string field since Go strings are
// just byte runs.
func (s *Store) sealScan(scan models.Scan) (models.Scan, error) {
	out := scan
	if len(scan.Credentials) == 0 {
		return out, nil
	}
	out.Credentials = make([]models.Credential, len(scan.Credentials))
	for i, c := range scan.Credentials {
		sealed, err := c.MapSecrets(func(plain string) (string, error) {
			frame, err := s.cipher.SealString(plain)
			if err != nil {
				return "", err
			}
			return encodeFrame(frame), nil
		})
		if err != nil {
			return models.Scan{}, fmt.Errorf("storage: seal credential %d: %w", i, err)
		}
		out.Credentials[i] = sealed
	}
	return out, nil
}

func (s *Store) openScan(scan models.Scan) (models.Scan, error) {
	out := scan
	if len(scan.Credentials) == 0 {
		return out, nil
	}
	out.Credentials = make([]models.Credential, len(scan.Credentials))
	for i, c := range scan.Credentials {
		opened, err := c.MapSecrets(func(sealed string) (string, error) {
			if sealed == "" {
				return "", nil
			}
			frame, err := decodeFrame(sealed)
			if err != nil {
				return "", err
			}
			return s.cipher.OpenString(frame)
		})
		if err != nil {
			return models.Scan{}, fmt.Errorf("storage: open credential %d: %w", i, err)
		}
		out.Credentials[i] = opened
	}
	return out, nil
}

// encodeFrame/decodeFrame give sealed bytes a transport-safe string form
// for storage inside the models.Credential secret string fields.
func encodeFrame(frame []byte) string {
	return string(frame) // raw bytes round-trip fine in a Go string; no text encoding needed in-process
}

func decodeFrame(s string) ([]byte, error) {
	return []byte(s), nil
}

// Insert stores a freshly submitted scan in PhaseStored and returns its
// newly minted id.
func (s *Store) Insert(scan models.Scan) (string, error) {
	sealed, err := s.sealScan(scan)
	if err != nil {
		return "", err
	}
	id := s.newID()
	rec := &record{
		id:       id,
		scan:     sealed,
		status:   models.Status{Phase: models.PhaseStored},
		resultIx: make(map[int]frameIndex),
	}
	s.mu.Lock()
	s.records[id] = rec
	s.mu.Unlock()
	return id, nil
}

// lookup returns the record for id under the map's read lock, or
// ErrNotFound.
func (s *Store) lookup(id string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// GetScan returns the censored scan body and status for id — the shape
// ever handed to an HTTP client.
func (s *Store) GetScan(id string) (models.Scan, models.Status, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Scan{}, models.Status{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	opened, err := s.openScan(rec.scan)
	if err != nil {
		return models.Scan{}, models.Status{}, err
	}
	return opened.Censored(), rec.status, nil
}

// GetDecryptedScan returns the scan with secrets in plaintext — for
// handing to the scanner backend on Start. Never serialize this value
// outward.
func (s *Store) GetDecryptedScan(id string) (models.Scan, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Scan{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return s.openScan(rec.scan)
}

// UpdateStatus writes a new status, rejecting any write that would move
// Phase backwards in the lifecycle order (spec's monotonic-phase
// invariant).
func (s *Store) UpdateStatus(id string, status models.Status) error {
	rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if status.Phase != rec.status.Phase && !rec.status.Phase.Precedes(status.Phase) {
		return fmt.Errorf("%w: %s -> %s", ErrBackwardsPhase, rec.status.Phase, status.Phase)
	}
	rec.status = status
	return nil
}

// AppendResults seals and appends new results to id's result log,
// deduplicating by the scanner-assigned id: any result whose id is less
// than the record's current watermark is silently dropped, since it has
// already been appended by a previous poll (original_source has no single
// authoritative text on this; spec's resolved Open Question is "the store
// dedupes, so backends don't need to track what they've already reported
// across retries").
func (s *Store) AppendResults(id string, results []models.Result) (int, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	appended := 0
	for _, r := range results {
		if r.ID < rec.nextID {
			continue
		}
		frame, err := s.cipher.Seal(mustMarshalResult(r))
		if err != nil {
			return appended, fmt.Errorf("storage: seal result %d: %w", r.ID, err)
		}
		rec.resultIx[r.ID] = frameIndex{offset: len(rec.log), length: len(frame)}
		rec.log = append(rec.log, frame...)
		if r.ID >= rec.nextID {
			rec.nextID = r.ID + 1
		}
		appended++
	}
	return appended, nil
}

// Selector picks which results GetResults returns.
type Selector struct {
	All    bool
	ID     *int // single result by id
	From   *int // range start, inclusive
	To     *int // range end, inclusive
}

// GetResults returns results in ascending id order matching sel.
func (s *Store) GetResults(id string, sel Selector) ([]models.Result, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	ids := make([]int, 0, len(rec.resultIx))
	for rid := range rec.resultIx {
		if !sel.matches(rid) {
			continue
		}
		ids = append(ids, rid)
	}
	sortInts(ids)

	out := make([]models.Result, 0, len(ids))
	for _, rid := range ids {
		fi := rec.resultIx[rid]
		frame := rec.log[fi.offset : fi.offset+fi.length]
		plain, err := s.cipher.Open(frame)
		if err != nil {
			return nil, fmt.Errorf("storage: open result %d: %w", rid, err)
		}
		r, err := unmarshalResult(plain)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (sel Selector) matches(id int) bool {
	if sel.All {
		return true
	}
	if sel.ID != nil {
		return id == *sel.ID
	}
	lo, hi := sel.From, sel.To
	if lo != nil && id < *lo {
		return false
	}
	if hi != nil && id > *hi {
		return false
	}
	return lo != nil || hi != nil
}

// Delete removes id's record entirely. Takes the record's own mutex first
// so a Delete racing an in-flight poller mutation serializes behind it
// rather than tearing the record out from under a concurrent writer
// (spec's resolved Open Question: "DELETE takes the per-record lock same
// as any other mutation").
func (s *Store) Delete(id string) error {
	rec, err := s.lookup(id)
	if err != nil {
		return err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

// Ids returns every scan id currently in the store, for the Result
// Poller's scan pass and the Lifecycle Controller's listing endpoint.
func (s *Store) Ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.records))
	for id := range s.records {
		out = append(out, id)
	}
	return out
}

// Status returns only the status for id, without touching the scan body
// or result log — the Result Poller's cheap liveness check.
func (s *Store) Status(id string) (models.Status, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return models.Status{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.status, nil
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

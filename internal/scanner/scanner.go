// Package scanner defines the four-operation contract the control plane
// uses to drive the external scanner backend (spec §4.D). The core never
// depends on any particular backend implementation — only on this
// interface — so the backend itself stays a named collaborator, never a
// compile-time dependency of internal/controller or internal/storage.
package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenlance/scanorc/internal/models"
)

// ErrConflict is returned by Starter.Start when a start is attempted on a
// scan the backend considers already terminal.
var ErrConflict = errors.New("scanner: conflicting start on terminal scan")

// FetchResult is what a ResultFetcher.Fetch call returns: the backend's
// current view of status, plus any results not previously returned. The
// backend is authoritative for result ids.
type FetchResult struct {
	Status  models.Status
	Results []models.Result
}

// Starter spawns execution of a scan. Idempotent when the scan is already
// Requested or Running; returns ErrConflict for a terminal scan.
type Starter interface {
	Start(ctx context.Context, id string, scan models.Scan) error
}

// Stopper requests graceful termination. Must be safe to call on an
// already-stopped scan.
type Stopper interface {
	Stop(ctx context.Context, id string) error
}

// Deleter forgets all backend-side state for a scan.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}

// ResultFetcher returns the current status and any results not previously
// returned for a scan.
type ResultFetcher interface {
	Fetch(ctx context.Context, id string) (FetchResult, error)
}

// Scanner aggregates the four capabilities the control plane needs. This
// mirrors original_source's `trait Scanner: ScanStarter + ScanStopper +
// ScanDeleter + ScanResultFetcher {}` — four one-method interfaces
// composed, rather than one fat interface, so a backend adapter (or a
// test fake) can implement only the piece it cares about and the rest via
// embedding.
type Scanner interface {
	Starter
	Stopper
	Deleter
	ResultFetcher
}

// Error wraps a backend failure with the operation and scan id that
// failed. The Result Poller only logs such failures and tries again on
// its next tick; a failure during a client's start, stop, or delete is
// returned to that client as a 500.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("scanner: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

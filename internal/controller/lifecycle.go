package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenlance/scanorc/internal/models"
	"github.com/greenlance/scanorc/internal/scanner"
	"github.com/greenlance/scanorc/internal/storage"
)

// createScan inserts a new scan in PhaseStored and returns its id.
func (c *Context) createScan(ctx context.Context, scan models.Scan) (string, error) {
	id, err := c.store.Insert(scan)
	if err != nil {
		return "", newAPIError(errInternal, err.Error())
	}
	return id, nil
}

// allowedActions is the transition table: which client-requested Action
// values are legal from a given Phase. Everything not listed is a 409,
// except stop on a terminal phase, which applyAction treats as a no-op.
var allowedActions = map[models.Phase]map[models.Action]bool{
	models.PhaseStored:    {models.ActionStart: true},
	models.PhaseRequested: {models.ActionStop: true},
	models.PhaseRunning:   {models.ActionStop: true},
}

// applyAction drives the scanner backend for a start/stop request,
// rejecting transitions the table above doesn't allow for the scan's
// current phase (spec §4.G, invariant "InvalidTransition -> 409").
func (c *Context) applyAction(ctx context.Context, id string, action models.ScanAction) error {
	_, status, err := c.store.GetScan(id)
	if err != nil {
		return newAPIError(errNotFound, err.Error())
	}
	// Stop against an already-terminal phase is a no-op (§4.G).
	if action.Action == models.ActionStop && status.Phase.IsTerminal() {
		return nil
	}
	if !allowedActions[status.Phase][action.Action] {
		return newAPIError(errInvalidTransition, fmt.Sprintf("action %q not valid from phase %q", action.Action, status.Phase))
	}

	switch action.Action {
	case models.ActionStart:
		scan, err := c.store.GetDecryptedScan(id)
		if err != nil {
			return newAPIError(errInternal, err.Error())
		}
		if err := c.scanner.Start(ctx, id, scan); err != nil {
			return scannerErrorOrConflict(err)
		}
		return c.store.UpdateStatus(id, models.Status{Phase: models.PhaseRequested})
	case models.ActionStop:
		if err := c.scanner.Stop(ctx, id); err != nil {
			return scannerErrorOrConflict(err)
		}
		if err := c.store.UpdateStatus(id, models.Status{Phase: models.PhaseStopped}); err != nil {
			// The Result Poller may have already driven the scan to a
			// terminal phase between the transition check above and this
			// write; §4.G treats stop against an already-terminal phase
			// as a no-op, not a failure.
			if errors.Is(err, storage.ErrBackwardsPhase) {
				return nil
			}
			return newAPIError(errInternal, err.Error())
		}
		return nil
	default:
		return newAPIError(errBadRequest, fmt.Sprintf("unknown action %q", action.Action))
	}
}

func scannerErrorOrConflict(err error) error {
	if err == scanner.ErrConflict {
		return newAPIError(errInvalidTransition, err.Error())
	}
	return newAPIError(errScannerError, err.Error())
}

// deleteScan runs the delete-while-possibly-running sequence: stop (best
// effort, ignoring a "nothing to stop" outcome), then tell the backend to
// delete its own state, then remove the record from the store. The
// store's Delete takes the per-record lock, serializing against any
// in-flight poll append for the same id (spec §9's resolved Open
// Question).
func (c *Context) deleteScan(ctx context.Context, id string) error {
	if _, _, err := c.store.GetScan(id); err != nil {
		return newAPIError(errNotFound, err.Error())
	}
	_ = c.scanner.Stop(ctx, id)
	if err := c.scanner.Delete(ctx, id); err != nil {
		return newAPIError(errScannerError, err.Error())
	}
	if err := c.store.Delete(id); err != nil {
		return newAPIError(errNotFound, err.Error())
	}
	return nil
}

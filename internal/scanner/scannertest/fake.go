// Package scannertest provides a deterministic, tick-driven Scanner fake
// for exercising the full lifecycle end to end, the way original_source's
// test module's FakeScanner drives the controller's own test suite.
package scannertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/greenlance/scanorc/internal/models"
	"github.com/greenlance/scanorc/internal/scanner"
)

// Fake is a Scanner whose Fetch advances a per-scan tick counter each
// call: tick 0 reports Requested with no results; ticks 1 through 99
// report Running, each delivering a batch of exactly `tick` freshly
// minted result ids continuing on from the previous batch; tick 100 and
// beyond report Succeeded with no further results. Because the batches
// are disjoint and sized 1, 2, ..., 99, a full drain delivers exactly
// sum(1..99) = 4950 distinct ids, 0 through 4949, with no gaps and no
// repeats.
//
// The store is specified to deduplicate by scanner-assigned id (spec's
// resolved Open Question on a replaying backend), so unlike
// original_source's test fake — which resubmits the full [0, tick) prefix
// on every call and relies on the original's blind-append store to pile
// up duplicates into the same 4950 total — this fake reports genuinely
// new ids per batch, the behavior a well-written backend is expected to
// have under the specified dedup contract.
type Fake struct {
	mu      sync.Mutex
	ticks   map[string]int
	next    map[string]int
	started map[string]bool
	stopped map[string]bool
	deleted map[string]bool
}

func New() *Fake {
	return &Fake{
		ticks:   make(map[string]int),
		next:    make(map[string]int),
		started: make(map[string]bool),
		stopped: make(map[string]bool),
		deleted: make(map[string]bool),
	}
}

func (f *Fake) Start(ctx context.Context, id string, scan models.Scan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[id] = true
	if _, ok := f.ticks[id]; !ok {
		f.ticks[id] = 0
	}
	return nil
}

func (f *Fake) Stop(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped[id] = true
	return nil
}

func (f *Fake) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[id] = true
	delete(f.ticks, id)
	delete(f.next, id)
	return nil
}

func (f *Fake) Fetch(ctx context.Context, id string) (scanner.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tick := f.ticks[id]
	f.ticks[id] = tick + 1

	switch {
	case tick == 0:
		return scanner.FetchResult{Status: models.Status{Phase: models.PhaseRequested}}, nil
	case tick < 100:
		start := f.next[id]
		results := make([]models.Result, 0, tick)
		for i := start; i < start+tick; i++ {
			results = append(results, logResult(i))
		}
		f.next[id] = start + tick
		return scanner.FetchResult{Status: models.Status{Phase: models.PhaseRunning}, Results: results}, nil
	default:
		return scanner.FetchResult{Status: models.Status{Phase: models.PhaseSucceeded}}, nil
	}
}

func logResult(id int) models.Result {
	msg := fmt.Sprintf("finding %d", id)
	return models.Result{ID: id, Kind: models.ResultLog, Message: &msg}
}

// Started, Stopped, and Deleted report whether the corresponding call was
// ever made for id, for assertions in controller tests.
func (f *Fake) Started(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started[id]
}

func (f *Fake) Stopped(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped[id]
}

func (f *Fake) Deleted(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted[id]
}

var _ scanner.Scanner = (*Fake)(nil)

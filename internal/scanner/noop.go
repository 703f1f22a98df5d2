package scanner

import (
	"context"

	"github.com/greenlance/scanorc/internal/models"
)

// NoOp is a Scanner that immediately reports every scan as Succeeded with
// no results. It mirrors original_source's NoOpScanner. cmd/scanorcd uses
// it when no scanner backend URL is configured, and tests use it where
// only the HTTP surface is exercised, never the poller.
type NoOp struct{}

func (NoOp) Start(ctx context.Context, id string, scan models.Scan) error { return nil }
func (NoOp) Stop(ctx context.Context, id string) error                    { return nil }
func (NoOp) Delete(ctx context.Context, id string) error                  { return nil }

func (NoOp) Fetch(ctx context.Context, id string) (FetchResult, error) {
	return FetchResult{Status: models.Status{Phase: models.PhaseSucceeded}}, nil
}

var _ Scanner = NoOp{}

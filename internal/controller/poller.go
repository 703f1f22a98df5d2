package controller

import (
	"context"
	"os"
	"time"

	"github.com/greenlance/scanorc/internal/models"
	"github.com/greenlance/scanorc/internal/retry"
)

// RunResultPoller ticks every c.resultPollInterval, fetching status and
// new results for every scan still in a live phase (Requested or
// Running) and writing them back to the store. It stops when ctx is
// canceled or c.Aborted() is set, matching original_source's
// results::fetch task driven by ResultContext's interval and the
// abort flag.
func (c *Context) RunResultPoller(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.log().Error("result poller panic, aborting process", "panic", r)
			os.Exit(1)
		}
	}()

	breaker := retry.NewCircuitBreaker()
	ticker := time.NewTicker(c.resultPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Aborted() {
				return
			}
			c.pollOnce(ctx, breaker)
		}
	}
}

func (c *Context) pollOnce(ctx context.Context, breaker *retry.CircuitBreaker) {
	start := time.Now()
	live := 0
	for _, id := range c.store.Ids() {
		status, err := c.store.Status(id)
		if err != nil || !status.IsRunning() {
			continue
		}
		live++
		c.pollScan(ctx, id, status, breaker)
	}
	if c.metrics != nil {
		c.metrics.PollDuration.Observe(time.Since(start).Seconds())
		c.metrics.ScansActive.Set(float64(live))
	}
}

func (c *Context) pollScan(ctx context.Context, id string, old models.Status, breaker *retry.CircuitBreaker) {
	var fetched struct {
		status  models.Status
		results []models.Result
	}
	err := breaker.Call(func() error {
		return retry.WithBackoff(ctx, retry.DefaultPolicy(), func() error {
			res, err := c.scanner.Fetch(ctx, id)
			if err != nil {
				return err
			}
			fetched.status = res.Status
			fetched.results = res.Results
			return nil
		})
	})
	if err != nil {
		c.log().Warn("poll failed", "scan_id", id, "error", err)
		if c.metrics != nil {
			c.metrics.PollErrorsTotal.Inc()
		}
		return
	}

	// §4.E item 2: an unchanged phase with no new results is a no-op tick,
	// reported as nothing happened rather than re-writing an identical
	// status.
	if fetched.status.Phase == old.Phase && len(fetched.results) == 0 {
		return
	}

	if fetched.status.Phase.IsTerminal() && fetched.status.EndTime == nil {
		now := time.Now().Unix()
		fetched.status.EndTime = &now
	}

	if err := c.store.UpdateStatus(id, fetched.status); err != nil {
		c.log().Warn("status write rejected", "scan_id", id, "error", err)
	}
	if len(fetched.results) > 0 {
		n, err := c.store.AppendResults(id, fetched.results)
		if err != nil {
			c.log().Warn("result append failed", "scan_id", id, "error", err)
			return
		}
		if c.metrics != nil {
			c.metrics.ResultsAppended.Add(float64(n))
		}
	}
	if c.metrics != nil {
		phase := string(fetched.status.Phase)
		if fetched.status.Phase.IsTerminal() {
			c.metrics.ScansTotal.WithLabelValues(phase).Inc()
		}
	}
}

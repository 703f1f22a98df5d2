package controller

import (
	"context"
	"os"
	"time"

	"github.com/greenlance/scanorc/internal/feed"
)

// RunFeedRefresher ticks every c.feedVerifyInterval, rereading the
// configured feed directory and publishing a fresh Snapshot. trigger, if
// non-nil, is internal/feed.Watcher's channel: a filesystem event on it
// requests an out-of-band refresh without waiting for the next tick. The
// interval remains authoritative; trigger is purely a latency
// optimization (spec's component N).
func (c *Context) RunFeedRefresher(ctx context.Context, trigger <-chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			c.log().Error("feed refresher panic, aborting process", "panic", r)
			os.Exit(1)
		}
	}()

	if c.feedPath == "" {
		return
	}

	ticker := time.NewTicker(c.feedVerifyInterval)
	defer ticker.Stop()

	c.refreshFeed()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Aborted() {
				return
			}
			c.refreshFeed()
		case <-trigger:
			if c.Aborted() {
				return
			}
			c.refreshFeed()
		}
	}
}

func (c *Context) refreshFeed() {
	changed, err := c.feedStore.Refresh(c.feedPath)
	if err != nil {
		c.log().Warn("feed refresh failed", "path", c.feedPath, "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.FeedOIDCount.Set(float64(len(c.feedStore.Current().OIDs)))
		if changed {
			c.metrics.FeedVersionChange.Inc()
		}
	}
}

// FeedSnapshot exposes the current feed snapshot for the HTTP surface.
func (c *Context) FeedSnapshot() feed.Snapshot {
	return c.feedStore.Current()
}

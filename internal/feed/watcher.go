package feed

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher wakes a refresh loop early on filesystem change, layered on top
// of (never replacing) the interval-driven refresh the Feed Refresher
// already performs. Component N: a pure latency optimization, since a
// slow feed update should be picked up faster than the next tick without
// the Refresher ever depending on fsnotify for correctness.
type Watcher struct {
	fsw     *fsnotify.Watcher
	Trigger chan struct{}
	log     *slog.Logger
}

// NewWatcher starts watching dir for write/create/rename/remove events.
func NewWatcher(dir string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{fsw: fsw, Trigger: make(chan struct{}, 1), log: log}, nil
}

// Run pumps filesystem events into Trigger (non-blocking, coalesced —
// a burst of writes during a feed sync collapses to one refresh) until
// ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			select {
			case w.Trigger <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("feed watcher error", "error", err)
		}
	}
}

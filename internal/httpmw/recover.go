package httpmw

import (
	"log/slog"
	"net/http"
	"os"
)

// Recover implements the daemon's poisoned-lock policy at the HTTP
// boundary (spec §5, §7: "Internal ... lock poisoning aborts the
// process"). Go mutexes aren't poisoned the way Rust's are when a holder
// panics while locked — the lock is simply left held — so a panicking
// handler leaves no reliable way to know which invariant, if any, broke.
// Rather than let the process wedge on a silently-corrupted lock, Recover
// logs and exits, the same operational outcome original_source's
// quit_on_poison enforces.
func Recover(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic, aborting process", "panic", rec, "path", r.URL.Path)
					os.Exit(1)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

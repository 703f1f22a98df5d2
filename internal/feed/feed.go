// Package feed implements the plugin feed contract (spec §6.3): a
// directory whose contents produce an opaque, bytewise-compared version
// string and a list of OIDs, reread on a configured interval. original_source's
// FeedContext keeps this behind a single RwLock<(String, Vec<String>)>;
// Snapshot here plays the same role with one sync.RWMutex.
package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// pluginExt is the file extension a feed directory entry must carry to
// contribute an OID. The OID is the file's base name with this suffix
// stripped, mirroring how OpenVAS feed directories lay out one file per
// NASL plugin.
const pluginExt = ".nasl"

// Snapshot is the feed's current (version, oids) pair.
type Snapshot struct {
	Version string
	OIDs    []string
}

// Load reads dir and computes a fresh Snapshot. The version is a SHA-256
// over each entry's name, size, and modification time, sorted by OID, so
// any add/remove/edit changes it, and an untouched directory reproduces
// the same version byte-for-byte across rereads.
func Load(dir string) (Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Snapshot{}, fmt.Errorf("feed: read dir: %w", err)
	}

	type plugin struct {
		oid  string
		name string
	}
	var plugins []plugin
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), pluginExt) {
			continue
		}
		plugins = append(plugins, plugin{
			oid:  strings.TrimSuffix(e.Name(), pluginExt),
			name: e.Name(),
		})
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].oid < plugins[j].oid })

	h := sha256.New()
	oids := make([]string, 0, len(plugins))
	for _, p := range plugins {
		info, err := os.Stat(filepath.Join(dir, p.name))
		if err != nil {
			return Snapshot{}, fmt.Errorf("feed: stat %s: %w", p.name, err)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", p.name, info.Size(), info.ModTime().UnixNano())
		oids = append(oids, p.oid)
	}

	return Snapshot{Version: hex.EncodeToString(h.Sum(nil)), OIDs: oids}, nil
}

// Store holds the most recently loaded Snapshot behind one RWMutex, read
// by HTTP handlers and written only by the Feed Refresher loop.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// NewStore returns an empty Store; callers should Refresh once before
// serving traffic.
func NewStore() *Store {
	return &Store{}
}

// Current returns the most recently published Snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh reloads dir and publishes the result, returning whether the
// version actually changed.
func (s *Store) Refresh(dir string) (bool, error) {
	next, err := Load(dir)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	changed := next.Version != s.snapshot.Version
	s.snapshot = next
	s.mu.Unlock()
	return changed, nil
}

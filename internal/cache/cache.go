package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/dockeeper/internal/docmodel"
)

// manifestVersion is written into the persisted manifest. Unknown fields and
// unknown entries in older or newer manifests are ignored on load.
const manifestVersion = 1

// Entry is one persisted verdict keyed by fingerprint.
type Entry struct {
	Verdict   docmodel.Verdict `json:"verdict"`
	Timestamp time.Time        `json:"timestamp"`
}

type manifestFile struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// ContentCache is the persisted fingerprint → verdict mapping. It is an
// explicit object owned by the caller: opened at startup, flushed at
// shutdown, no ambient state.
//
// Only passing verdicts are recorded, so a hit can never be a false
// "already verified" result.
type ContentCache struct {
	path    string
	entries map[string]Entry
	dirty   bool
	logger  *slog.Logger
}

// Open loads the manifest at path. A missing, corrupted or unreadable
// manifest degrades to an empty cache (full rebuild), never an error.
func Open(path string) *ContentCache {
	c := &ContentCache{
		path:    path,
		entries: make(map[string]Entry),
		logger:  slog.Default(),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c
	case err != nil:
		c.logger.Warn("Cache manifest unreadable, starting empty", "path", path, "error", err)
		return c
	}

	var m manifestFile
	if err := json.Unmarshal(data, &m); err != nil {
		c.logger.Warn("Cache manifest corrupted, starting empty", "path", path, "error", err)
		return c
	}
	if m.Entries != nil {
		c.entries = m.Entries
	}
	return c
}

// WithLogger sets a custom logger.
func (c *ContentCache) WithLogger(logger *slog.Logger) *ContentCache {
	c.logger = logger
	return c
}

// Lookup returns the recorded verdict for a fingerprint, if any.
func (c *ContentCache) Lookup(fingerprint string) (docmodel.Verdict, bool) {
	e, ok := c.entries[fingerprint]
	if !ok {
		return docmodel.Verdict{}, false
	}
	return e.Verdict, true
}

// Record stores the verdict for a fingerprint. Non-passing verdicts are not
// retained; if the fingerprint was previously recorded it is dropped, so the
// fragment is re-verified on the next run.
func (c *ContentCache) Record(fingerprint string, v docmodel.Verdict) {
	if v.Kind != docmodel.VerdictPassed {
		if _, ok := c.entries[fingerprint]; ok {
			delete(c.entries, fingerprint)
			c.dirty = true
		}
		return
	}
	c.entries[fingerprint] = Entry{Verdict: v, Timestamp: time.Now().UTC()}
	c.dirty = true
}

// Len reports the number of recorded entries.
func (c *ContentCache) Len() int { return len(c.entries) }

// Flush persists the manifest atomically (write to temp file, then rename).
// Write failures degrade to "no cache" on the next run and are reported but
// never fatal to the verification outcome.
func (c *ContentCache) Flush() error {
	if !c.dirty {
		return nil
	}
	data, err := json.MarshalIndent(manifestFile{Version: manifestVersion, Entries: c.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cache manifest: %w", err)
	}
	c.dirty = false
	return nil
}

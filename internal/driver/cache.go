package driver

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/diag"
	"ember/internal/mono"
	"ember/internal/project"
)

// Current schema version - increment when CachePayload changes.
const cacheSchemaVersion uint16 = 1

// Cache stores generated output on disk keyed by unit content and options.
// Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// CachePayload is what one successful unit leaves behind.
type CachePayload struct {
	Schema      uint16            `msgpack:"schema"`
	Unit        string            `msgpack:"unit"`
	IR          string            `msgpack:"ir"`
	Summary     *mono.Summary     `msgpack:"summary"`
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics"`
}

// OpenCache creates the cache directory if needed.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache location.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key combines the unit content hash with the settings fingerprint.
func Key(content project.Digest, cfg *project.Config) project.Digest {
	return project.Combine(content, cfg.Fingerprint())
}

func (c *Cache) pathFor(key project.Digest) string {
	return filepath.Join(c.dir, "units", key.String()+".mp")
}

// Put serializes and writes a payload.
func (c *Cache) Put(key project.Digest, payload *CachePayload) error {
	if c == nil {
		return nil
	}
	payload.Schema = cacheSchemaVersion
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeAtomic(c.pathFor(key), data)
}

// Get reads a payload. Entries from another schema are treated as misses.
func (c *Cache) Get(key project.Digest) (*CachePayload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	var out CachePayload
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, err
	}
	if out.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll invalidates the cache.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

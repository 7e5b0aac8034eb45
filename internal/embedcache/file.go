package embedcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

const fileFormatVersion = 1

type fileDocument struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// FileCache keeps every entry in memory and rewrites a single JSON file on
// each Put. An empty path gives a memory-only cache.
type FileCache struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[int64]Entry
}

// OpenFile loads the cache at path. A missing, unreadable or corrupt file
// yields an empty cache; it is never an error.
func OpenFile(path string, logger *slog.Logger) *FileCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &FileCache{path: path, logger: logger, entries: make(map[int64]Entry)}
	if path != "" {
		c.load()
	}
	return c
}

// NewMemory returns a cache that is never written to disk.
func NewMemory() *FileCache {
	return OpenFile("", nil)
}

func (c *FileCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("embedding cache file not found, starting empty", "path", c.path)
		} else {
			c.logger.Warn("embedding cache unreadable, starting empty", "path", c.path, "error", err)
		}
		return
	}
	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		c.logger.Warn("embedding cache corrupt, starting empty", "path", c.path, "error", err)
		return
	}
	for k, e := range doc.Entries {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			c.logger.Warn("embedding cache has a bad key, skipping", "key", k)
			continue
		}
		c.entries[id] = e
	}
	c.logger.Info("embedding cache loaded", "path", c.path, "entries", len(c.entries))
}

// Get returns the entry for caseID.
func (c *FileCache) Get(_ context.Context, caseID int64) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[caseID]
	return e, ok, nil
}

// Put stores e and writes the whole cache through to disk.
func (c *FileCache) Put(_ context.Context, caseID int64, e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[caseID] = e
	if c.path == "" {
		return nil
	}
	return c.persist()
}

// Len returns the number of cached entries.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close is a no-op; every Put is already on disk.
func (c *FileCache) Close() error { return nil }

// persist writes to a temp file in the same directory and renames it over
// the target so readers never see a partial file.
func (c *FileCache) persist() error {
	doc := fileDocument{Version: fileFormatVersion, Entries: make(map[string]Entry, len(c.entries))}
	for id, e := range c.entries {
		doc.Entries[strconv.FormatInt(id, 10)] = e
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode embedding cache: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write embedding cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write embedding cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace embedding cache: %w", err)
	}
	return nil
}

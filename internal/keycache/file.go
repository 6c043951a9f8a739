package keycache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores one JSON file per image URL under a directory.
type FileCache struct {
	rootDir string
	now     func() time.Time
}

// NewFileCache creates rootDir if needed and returns a cache over it.
func NewFileCache(rootDir string) (*FileCache, error) {
	if rootDir == "" {
		return nil, errors.New("keycache: rootDir is required")
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("keycache: %w", err)
	}
	return &FileCache{rootDir: rootDir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string {
	return c.rootDir
}

func (c *FileCache) path(imageURL string) string {
	sum := sha256.Sum256([]byte(imageURL))
	return filepath.Join(c.rootDir, fmt.Sprintf("%x.json", sum[:]))
}

// Get reads the entry for imageURL. Corrupt and expired files are removed.
func (c *FileCache) Get(imageURL string) (Entry, bool) {
	fn := c.path(imageURL)
	b, err := os.ReadFile(fn)
	if err != nil {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || e.Key == "" || e.expired(c.now()) {
		_ = os.Remove(fn)
		return Entry{}, false
	}
	return e, true
}

// Set writes e atomically through a temporary file.
func (c *FileCache) Set(imageURL string, e Entry) error {
	fn := c.path(imageURL)
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("keycache: %w", err)
	}
	tmp, err := os.CreateTemp(c.rootDir, ".entry-*")
	if err != nil {
		return fmt.Errorf("keycache: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("keycache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("keycache: %w", err)
	}
	if err := os.Rename(tmp.Name(), fn); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("keycache: %w", err)
	}
	return nil
}

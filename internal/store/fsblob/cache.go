// Package fsblob holds locally downloaded copies of stored blobs in a
// directory capped by a configured size quota.
package fsblob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sync"

	"github.com/medrec/clinic-api/internal/store"
)

// ErrQuotaExceeded is returned when a download would push the cache
// past its configured budget and force was not set.
var ErrQuotaExceeded = errors.New("fsblob: download cache quota exceeded")

type Cache struct {
	dir   string
	quota int64

	mu   sync.Mutex
	used int64
}

// NewCache opens (creating if needed) the cache directory and accounts
// for files already present. quota <= 0 means unlimited.
func NewCache(dir string, quota int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("fsblob: create cache dir: %w", err)
	}
	c := &Cache{dir: dir, quota: quota}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fsblob: scan cache dir: %w", err)
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			c.used += info.Size()
		}
	}
	return c, nil
}

// UsedBytes reports the aggregate on-disk size of cached copies.
func (c *Cache) UsedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *Cache) path(id string) string {
	// Blob ids are uuids; Base strips anything path-like regardless.
	return filepath.Join(c.dir, filepath.Base(id))
}

// Path returns the local path of a cached copy, if one exists.
func (c *Cache) Path(id string) (string, bool) {
	p := c.path(id)
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

// Download copies a blob into the cache directory. The quota is
// checked against the blob's size up front; force bypasses the check.
func (c *Cache) Download(ctx context.Context, id string, src store.BlobStore, force bool) (string, error) {
	if p, ok := c.Path(id); ok {
		return p, nil
	}

	size, err := src.Size(ctx, id)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if !force && c.quota > 0 && c.used+size > c.quota {
		c.mu.Unlock()
		return "", ErrQuotaExceeded
	}
	c.mu.Unlock()

	r, err := src.Get(ctx, id)
	if err != nil {
		return "", err
	}
	defer r.Close()

	p := c.path(id)
	f, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return "", err
	}
	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	c.mu.Lock()
	c.used += written
	c.mu.Unlock()
	return p, nil
}

// Remove drops the cached copy if present. Missing copies are not an
// error; delete flows call this unconditionally.
func (c *Cache) Remove(id string) error {
	p := c.path(id)
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.Remove(p); err != nil {
		return err
	}
	c.mu.Lock()
	c.used -= info.Size()
	if c.used < 0 {
		c.used = 0
	}
	c.mu.Unlock()
	return nil
}

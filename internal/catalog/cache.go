package catalog

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RequestCache stores raw response bodies keyed by request URI. Presence
// of an entry is the hit signal; entries never expire on their own.
type RequestCache interface {
	Get(uri string) ([]byte, bool)
	Put(uri string, body []byte) error
	Clear() error
}

// NewDiskCache returns a cache writing one req_<hash>.json file per URI
// under dir. Returns an error if the directory cannot be created.
func NewDiskCache(dir string) (RequestCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &diskCache{dir: dir}, nil
}

type diskCache struct {
	dir string
}

// cacheKey hashes the URI so query strings don't leak into filenames.
// The short prefix matches the historical on-disk layout.
func cacheKey(uri string) string {
	sum := md5.Sum([]byte(uri))
	return "req_" + hex.EncodeToString(sum[:])[:8] + ".json"
}

func (c *diskCache) Get(uri string) ([]byte, bool) {
	body, err := os.ReadFile(filepath.Join(c.dir, cacheKey(uri)))
	if err != nil {
		return nil, false
	}
	return body, true
}

func (c *diskCache) Put(uri string, body []byte) error {
	return os.WriteFile(filepath.Join(c.dir, cacheKey(uri)), body, 0o644)
}

// Clear removes cached requests only, leaving user session files alone.
func (c *diskCache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "req_") {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// NewNoopCache returns a cache that never hits, for when ti-api-cache is
// disabled.
func NewNoopCache() RequestCache { return noopCache{} }

type noopCache struct{}

func (noopCache) Get(string) ([]byte, bool) { return nil, false }
func (noopCache) Put(string, []byte) error  { return nil }
func (noopCache) Clear() error              { return nil }

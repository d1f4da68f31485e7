package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/mindcast/internal/taxonomy"
)

// DiskCache stores each index as <dir>/BOW_<YYYY_MM>.idx.
type DiskCache struct {
	dir string
}

// NewDiskCache creates dir if needed and returns a cache rooted there.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index cache directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Path returns the file an index for version is stored in.
func (c *DiskCache) Path(version string) string {
	return filepath.Join(c.dir, "BOW_"+taxonomy.FileKey(version)+".idx")
}

// Load reads the index for version.
func (c *DiskCache) Load(_ context.Context, version string) (*Index, error) {
	f, err := os.Open(c.Path(version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("open index %s: %w", version, err)
	}
	defer f.Close()
	ix, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode index %s: %w", version, err)
	}
	return ix, nil
}

// Store writes ix to a temp file in the cache dir and renames it into place,
// so readers never observe a partial file.
func (c *DiskCache) Store(_ context.Context, ix *Index) error {
	tmp, err := os.CreateTemp(c.dir, "BOW_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := Encode(tmp, ix); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode index %s: %w", ix.Version(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync index %s: %w", ix.Version(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index %s: %w", ix.Version(), err)
	}
	if err := os.Rename(tmpName, c.Path(ix.Version())); err != nil {
		return fmt.Errorf("publish index %s: %w", ix.Version(), err)
	}
	committed = true
	return nil
}

// Delete removes the stored index for version. Missing files are not an error.
func (c *DiskCache) Delete(_ context.Context, version string) error {
	if err := os.Remove(c.Path(version)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

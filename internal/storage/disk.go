package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk size of one named storage location.
type Usage struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
}

// DiskUsage measures each location. A location may be a file or a directory (summed
// recursively); missing paths count as zero.
func DiskUsage(locations ...Usage) ([]Usage, int64, error) {
	out := make([]Usage, 0, len(locations))
	var total int64
	for _, loc := range locations {
		n, err := pathSize(loc.Path)
		if err != nil {
			return nil, 0, err
		}
		loc.Bytes = n
		total += n
		out = append(out, loc)
	}
	return out, total, nil
}

func pathSize(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}

// Package index builds, persists and loads the per-version reference embedding index.
package index

import (
	"fmt"
	"math"

	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/taxonomy"
	"github.com/hyperjump/mindcast/pkg/utils"
)

// Entry is the reference embedding of one (keyword, sub-tag) pair.
type Entry struct {
	Keyword string
	Subtag  string
	Vector  []float32
}

type pairKey struct {
	keyword string
	subtag  string
}

// Index holds one reference vector per (keyword, sub-tag) pair of a taxonomy version.
// It is read-only after construction and safe for concurrent readers.
type Index struct {
	version     string
	fingerprint string
	dimensions  int
	entries     []Entry
	byPair      map[pairKey]int
	keywords    []string
	centroids   map[string][]float32
	stale       bool
}

// New assembles an index from entries. All vectors must share one non-zero dimension.
// Keyword centroids are derived here from the sub-tag vectors and never persisted.
func New(version, fingerprint string, entries []Entry) (*Index, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("index %s: no entries", version)
	}
	dim := len(entries[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("index %s: %w: empty vector", version, models.ErrShapeMismatch)
	}
	ix := &Index{
		version:     version,
		fingerprint: fingerprint,
		dimensions:  dim,
		entries:     make([]Entry, len(entries)),
		byPair:      make(map[pairKey]int, len(entries)),
		centroids:   make(map[string][]float32),
	}
	grouped := make(map[string][][]float32)
	for i, e := range entries {
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("index %s: %w: %s/%s has dimension %d, want %d",
				version, models.ErrShapeMismatch, e.Keyword, e.Subtag, len(e.Vector), dim)
		}
		key := pairKey{e.Keyword, e.Subtag}
		if _, dup := ix.byPair[key]; dup {
			return nil, fmt.Errorf("index %s: duplicate entry %s/%s", version, e.Keyword, e.Subtag)
		}
		vec := make([]float32, dim)
		copy(vec, e.Vector)
		ix.entries[i] = Entry{Keyword: e.Keyword, Subtag: e.Subtag, Vector: vec}
		ix.byPair[key] = i
		if _, seen := grouped[e.Keyword]; !seen {
			ix.keywords = append(ix.keywords, e.Keyword)
		}
		grouped[e.Keyword] = append(grouped[e.Keyword], vec)
	}
	for kw, vecs := range grouped {
		ix.centroids[kw] = utils.Mean(vecs)
	}
	return ix, nil
}

// Version returns the taxonomy version the index was built for.
func (ix *Index) Version() string { return ix.version }

// Fingerprint identifies the taxonomy structure and template the index was built from.
func (ix *Index) Fingerprint() string { return ix.fingerprint }

// Dimensions returns the vector length.
func (ix *Index) Dimensions() int { return ix.dimensions }

// Len returns the number of (keyword, sub-tag) entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Stale reports whether this index was served from a cache entry built for a different
// taxonomy structure because a rebuild could not reach the encoder.
func (ix *Index) Stale() bool { return ix.stale }

// Entries returns the entries in build order. Vectors must not be modified.
func (ix *Index) Entries() []Entry {
	return append([]Entry(nil), ix.entries...)
}

// Vector returns the reference vector of subtag under keyword.
func (ix *Index) Vector(keyword, subtag string) ([]float32, bool) {
	i, ok := ix.byPair[pairKey{keyword, subtag}]
	if !ok {
		return nil, false
	}
	return ix.entries[i].Vector, true
}

// Centroid returns the mean of keyword's sub-tag vectors.
func (ix *Index) Centroid(keyword string) ([]float32, bool) {
	c, ok := ix.centroids[keyword]
	return c, ok
}

// Covers checks that every (keyword, sub-tag) pair of tax has a vector.
func (ix *Index) Covers(tax *taxonomy.Taxonomy) error {
	for _, ref := range tax.Subtags() {
		if _, ok := ix.byPair[pairKey{ref.Keyword, ref.Subtag}]; !ok {
			return fmt.Errorf("index %s: %w: no vector for %s/%s", ix.version, models.ErrShapeMismatch, ref.Keyword, ref.Subtag)
		}
	}
	return nil
}

// Equal reports whether both indexes hold bit-identical vectors for the same pairs.
func (ix *Index) Equal(other *Index) bool {
	if other == nil || ix.version != other.version || ix.dimensions != other.dimensions || len(ix.entries) != len(other.entries) {
		return false
	}
	for i, e := range ix.entries {
		o := other.entries[i]
		if e.Keyword != o.Keyword || e.Subtag != o.Subtag {
			return false
		}
		for j := range e.Vector {
			if math.Float32bits(e.Vector[j]) != math.Float32bits(o.Vector[j]) {
				return false
			}
		}
	}
	return true
}

func (ix *Index) asStale() *Index {
	cp := *ix
	cp.stale = true
	return &cp
}

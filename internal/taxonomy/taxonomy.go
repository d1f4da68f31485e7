// Package taxonomy loads month-versioned keyword/sub-tag taxonomies.
package taxonomy

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hyperjump/mindcast/internal/models"
)

// DefaultThreshold applies when a document omits "threshold".
const DefaultThreshold = 0.45

// Keyword is one keyword and its ordered sub-tags.
type Keyword struct {
	Name    string   `json:"name" yaml:"name"`
	Subtags []string `json:"subtags" yaml:"subtags"`
}

// SubtagRef locates a sub-tag inside the taxonomy's flattened column order.
type SubtagRef struct {
	Keyword string
	Subtag  string
}

// Taxonomy is an immutable, validated keyword/sub-tag catalog for one version.
type Taxonomy struct {
	version          string
	keywords         []Keyword
	defaultThreshold float64
	subtagThresholds map[string]float64
	keywordOf        map[string]string
	refs             []SubtagRef
}

// New validates its inputs and returns a Taxonomy. Keyword order is kept as given.
// Errors are of kind models.ErrConfigMalformed.
func New(version string, keywords []Keyword, defaultThreshold float64, subtagThresholds map[string]float64) (*Taxonomy, error) {
	if len(keywords) == 0 {
		return nil, malformed(version, "keywords is required")
	}
	if !validThreshold(defaultThreshold) {
		return nil, malformed(version, fmt.Sprintf("threshold %v outside [0,1]", defaultThreshold))
	}
	t := &Taxonomy{
		version:          version,
		keywords:         make([]Keyword, 0, len(keywords)),
		defaultThreshold: defaultThreshold,
		subtagThresholds: make(map[string]float64, len(subtagThresholds)),
		keywordOf:        make(map[string]string),
	}
	seenKeyword := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		if kw.Name == "" {
			return nil, malformed(version, "empty keyword name")
		}
		if seenKeyword[kw.Name] {
			return nil, malformed(version, fmt.Sprintf("duplicate keyword %q", kw.Name))
		}
		seenKeyword[kw.Name] = true
		if len(kw.Subtags) == 0 {
			return nil, malformed(version, fmt.Sprintf("keyword %q has no sub-tags", kw.Name))
		}
		subtags := make([]string, len(kw.Subtags))
		for i, st := range kw.Subtags {
			if st == "" {
				return nil, malformed(version, fmt.Sprintf("keyword %q has an empty sub-tag", kw.Name))
			}
			if owner, dup := t.keywordOf[st]; dup {
				return nil, malformed(version, fmt.Sprintf("sub-tag %q appears under both %q and %q", st, owner, kw.Name))
			}
			t.keywordOf[st] = kw.Name
			t.refs = append(t.refs, SubtagRef{Keyword: kw.Name, Subtag: st})
			subtags[i] = st
		}
		t.keywords = append(t.keywords, Keyword{Name: kw.Name, Subtags: subtags})
	}
	for st, thr := range subtagThresholds {
		if _, ok := t.keywordOf[st]; !ok {
			return nil, malformed(version, fmt.Sprintf("subtag_thresholds names unknown sub-tag %q", st))
		}
		if !validThreshold(thr) {
			return nil, malformed(version, fmt.Sprintf("threshold %v for %q outside [0,1]", thr, st))
		}
		t.subtagThresholds[st] = thr
	}
	return t, nil
}

func validThreshold(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func malformed(version, msg string) error {
	return fmt.Errorf("taxonomy %s: %w: %s", version, models.ErrConfigMalformed, msg)
}

// Version returns the month key, e.g. "2022-06".
func (t *Taxonomy) Version() string { return t.version }

// DefaultThreshold returns the threshold used for sub-tags without an override.
func (t *Taxonomy) DefaultThreshold() float64 { return t.defaultThreshold }

// Keywords returns a copy of the keywords in declaration order.
func (t *Taxonomy) Keywords() []Keyword {
	out := make([]Keyword, len(t.keywords))
	for i, kw := range t.keywords {
		out[i] = Keyword{Name: kw.Name, Subtags: append([]string(nil), kw.Subtags...)}
	}
	return out
}

// KeywordNames returns keyword names in declaration order.
func (t *Taxonomy) KeywordNames() []string {
	out := make([]string, len(t.keywords))
	for i, kw := range t.keywords {
		out[i] = kw.Name
	}
	return out
}

// Subtags returns every (keyword, sub-tag) pair, keyword-major in declaration order.
// This is the column order of similarity matrices.
func (t *Taxonomy) Subtags() []SubtagRef {
	return append([]SubtagRef(nil), t.refs...)
}

// SubtagNames returns sub-tag names in column order.
func (t *Taxonomy) SubtagNames() []string {
	out := make([]string, len(t.refs))
	for i, r := range t.refs {
		out[i] = r.Subtag
	}
	return out
}

// NumSubtags returns the total number of sub-tags.
func (t *Taxonomy) NumSubtags() int { return len(t.refs) }

// KeywordOf returns the keyword owning subtag.
func (t *Taxonomy) KeywordOf(subtag string) (string, bool) {
	kw, ok := t.keywordOf[subtag]
	return kw, ok
}

// Threshold returns the activation threshold for subtag: its override if present,
// otherwise the default threshold (also for unknown sub-tags).
func (t *Taxonomy) Threshold(subtag string) float64 {
	if thr, ok := t.subtagThresholds[subtag]; ok {
		return thr
	}
	return t.defaultThreshold
}

// SubtagThresholds returns a copy of the override map.
func (t *Taxonomy) SubtagThresholds() map[string]float64 {
	out := make(map[string]float64, len(t.subtagThresholds))
	for k, v := range t.subtagThresholds {
		out[k] = v
	}
	return out
}

// Fingerprint identifies the inputs that determine reference embeddings: the version,
// the keyword/sub-tag structure and the sentence template. Thresholds are excluded.
func (t *Taxonomy) Fingerprint(template string) string {
	h := sha256.New()
	write := func(s string) {
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	write(t.version)
	write(template)
	for _, kw := range t.keywords {
		write(kw.Name)
		for _, st := range kw.Subtags {
			write(st)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ValidVersion reports whether version is a "YYYY-MM" month key.
func ValidVersion(version string) bool {
	if len(version) != 7 {
		return false
	}
	_, err := time.Parse("2006-01", version)
	return err == nil
}

// FileKey converts "2022-06" into the document/cache file key "2022_06".
func FileKey(version string) string {
	return strings.ReplaceAll(version, "-", "_")
}

package taxonomy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/mindcast/internal/models"
)

// documentExtensions are tried in order when resolving a version to a file.
var documentExtensions = []string{".json", ".yaml", ".yml"}

// Store reads taxonomy documents named <YYYY_MM>.json (or .yaml/.yml) from a directory.
// It keeps no state between calls.
type Store struct {
	root   string
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore returns a store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{root: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory documents are read from.
func (s *Store) Root() string { return s.root }

// Path returns the document path for version, or "" when none exists.
func (s *Store) Path(version string) string {
	key := FileKey(version)
	for _, ext := range documentExtensions {
		p := filepath.Join(s.root, key+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load reads and validates the taxonomy for version ("YYYY-MM").
// It fails with models.ErrConfigNotFound when no document exists and with
// models.ErrConfigMalformed when the document is invalid.
func (s *Store) Load(version string) (*Taxonomy, error) {
	if !ValidVersion(version) {
		return nil, fmt.Errorf("taxonomy %q: %w: version must be YYYY-MM", version, models.ErrConfigNotFound)
	}
	path := s.Path(version)
	if path == "" {
		return nil, fmt.Errorf("taxonomy %s: %w in %s", version, models.ErrConfigNotFound, s.root)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("taxonomy %s: %w: %s", version, models.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read taxonomy: %w", err)
	}
	var doc *rawDocument
	if filepath.Ext(path) == ".json" {
		doc, err = parseJSON(data)
	} else {
		doc, err = parseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w: %v", version, models.ErrConfigMalformed, err)
	}
	if s.logger != nil {
		s.logger.Debug("taxonomy loaded", zap.String("version", version), zap.String("path", path), zap.Int("keywords", len(doc.keywords)))
	}
	return doc.build(version)
}

// Versions lists the versions that have a document, sorted ascending.
func (s *Store) Versions() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		v, ok := VersionFromPath(e.Name())
		if ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

// VersionFromPath extracts the version from a document file name such as "2022_06.json".
func VersionFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	known := false
	for _, e := range documentExtensions {
		if strings.EqualFold(ext, e) {
			known = true
			break
		}
	}
	if !known {
		return "", false
	}
	v := strings.ReplaceAll(strings.TrimSuffix(base, ext), "_", "-")
	if !ValidVersion(v) {
		return "", false
	}
	return v, true
}

// rawDocument is the decoded document before validation.
type rawDocument struct {
	keywords         []Keyword
	hasKeywords      bool
	threshold        *float64
	subtagThresholds map[string]float64
}

func (d *rawDocument) build(version string) (*Taxonomy, error) {
	if !d.hasKeywords {
		return nil, malformed(version, "keywords is required")
	}
	thr := DefaultThreshold
	if d.threshold != nil {
		thr = *d.threshold
	}
	return New(version, d.keywords, thr, d.subtagThresholds)
}

// parseJSON walks the top-level object token by token so keyword order survives;
// decoding into a Go map would lose it.
func parseJSON(data []byte) (*rawDocument, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	doc := &rawDocument{}
	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "keywords":
			doc.hasKeywords = true
			if err := expectDelim(dec, '{'); err != nil {
				return nil, fmt.Errorf("keywords: %w", err)
			}
			for dec.More() {
				name, err := stringToken(dec)
				if err != nil {
					return nil, fmt.Errorf("keywords: %w", err)
				}
				var subtags []string
				if err := dec.Decode(&subtags); err != nil {
					return nil, fmt.Errorf("keywords.%s: %w", name, err)
				}
				doc.keywords = append(doc.keywords, Keyword{Name: name, Subtags: subtags})
			}
			if err := expectDelim(dec, '}'); err != nil {
				return nil, fmt.Errorf("keywords: %w", err)
			}
		case "threshold":
			if err := dec.Decode(&doc.threshold); err != nil {
				return nil, fmt.Errorf("threshold: %w", err)
			}
			if doc.threshold == nil {
				return nil, errors.New("threshold: must be a number, got null")
			}
		case "subtag_thresholds":
			var overrides map[string]*float64
			if err := dec.Decode(&overrides); err != nil {
				return nil, fmt.Errorf("subtag_thresholds: %w", err)
			}
			if doc.subtagThresholds, err = derefThresholds(overrides); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown field %q", key)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after document")
	}
	return doc, nil
}

func derefThresholds(in map[string]*float64) (map[string]float64, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]float64, len(in))
	for st, v := range in {
		if v == nil {
			return nil, fmt.Errorf("subtag_thresholds.%s: must be a number, got null", st)
		}
		out[st] = *v
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return s, nil
}

// parseYAML reads the same layout from YAML; mapping order is taken from the node tree.
func parseYAML(data []byte) (*rawDocument, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, errors.New("empty document")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: document must be a mapping", top.Line)
	}
	doc := &rawDocument{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "keywords":
			doc.hasKeywords = true
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: keywords must be a mapping", val.Line)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				var subtags []string
				if err := val.Content[j+1].Decode(&subtags); err != nil {
					return nil, fmt.Errorf("keywords.%s: %w", val.Content[j].Value, err)
				}
				doc.keywords = append(doc.keywords, Keyword{Name: val.Content[j].Value, Subtags: subtags})
			}
		case "threshold":
			if err := val.Decode(&doc.threshold); err != nil {
				return nil, fmt.Errorf("threshold: %w", err)
			}
			if doc.threshold == nil {
				return nil, fmt.Errorf("line %d: threshold must be a number, got null", val.Line)
			}
		case "subtag_thresholds":
			var overrides map[string]*float64
			if err := val.Decode(&overrides); err != nil {
				return nil, fmt.Errorf("subtag_thresholds: %w", err)
			}
			var err error
			if doc.subtagThresholds, err = derefThresholds(overrides); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("line %d: unknown field %q", key.Line, key.Value)
		}
	}
	return doc, nil
}

package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mindcast/internal/decision"
	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/index"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/similarity"
	"github.com/hyperjump/mindcast/internal/taxonomy"
	"github.com/hyperjump/mindcast/pkg/utils"
)

// Config holds service-level settings.
type Config struct {
	// DefaultVersion is used when a call names no version. Empty means the newest
	// version found in the taxonomy directory.
	DefaultVersion string
	// BatchSize bounds how many titles go to the encoder at once. Zero means all.
	BatchSize int
	// EncodeTimeout is the deadline for each encoder batch. Zero disables it.
	EncodeTimeout time.Duration
	Options
}

// Recorder receives one call per Classify.
type Recorder interface {
	RecordClassification(version string, total, related int, duration time.Duration, err error)
}

// Service resolves taxonomies and indexes by version and keeps them in memory
// until invalidated.
type Service struct {
	store   *taxonomy.Store
	builder *index.Builder
	encoder embedding.Encoder
	scorer  *similarity.Scorer
	engine  *decision.Engine
	cfg     Config

	logger   *zap.Logger
	recorder Recorder

	mu         sync.RWMutex
	taxonomies map[string]*taxonomy.Taxonomy
	indexes    map[string]*index.Index
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService wires a service. enc may be nil, in which case only cached indexes
// can be served and classification fails with models.ErrEncoderUnavailable.
func NewService(store *taxonomy.Store, builder *index.Builder, enc embedding.Encoder, cfg Config, opts ...Option) (*Service, error) {
	scorer, err := similarity.NewScorer(cfg.Weights, similarity.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	s := &Service{
		store:      store,
		builder:    builder,
		encoder:    enc,
		scorer:     scorer,
		engine:     decision.NewEngine(cfg.Policy),
		cfg:        cfg,
		logger:     zap.NewNop(),
		taxonomies: make(map[string]*taxonomy.Taxonomy),
		indexes:    make(map[string]*index.Index),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s, nil
}

// ResolveVersion returns version, the configured default, or the newest available version.
func (s *Service) ResolveVersion(version string) (string, error) {
	if version != "" {
		return version, nil
	}
	if s.cfg.DefaultVersion != "" {
		return s.cfg.DefaultVersion, nil
	}
	versions, err := s.store.Versions()
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("%w: no taxonomy documents in %s", models.ErrConfigNotFound, s.store.Root())
	}
	return versions[len(versions)-1], nil
}

// Versions lists the taxonomy versions on disk.
func (s *Service) Versions() ([]string, error) {
	return s.store.Versions()
}

// Taxonomy returns the taxonomy for version, loading it on first use.
func (s *Service) Taxonomy(version string) (*taxonomy.Taxonomy, error) {
	version, err := s.ResolveVersion(version)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	tax, ok := s.taxonomies[version]
	s.mu.RUnlock()
	if ok {
		return tax, nil
	}

	tax, err = s.store.Load(version)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.taxonomies[version] = tax
	s.mu.Unlock()
	return tax, nil
}

// Prepare loads the taxonomy and resolves its index, building it if needed.
func (s *Service) Prepare(ctx context.Context, version string) (*taxonomy.Taxonomy, *index.Index, error) {
	tax, err := s.Taxonomy(version)
	if err != nil {
		return nil, nil, err
	}
	version = tax.Version()

	s.mu.RLock()
	ix, ok := s.indexes[version]
	s.mu.RUnlock()
	if ok {
		return tax, ix, nil
	}

	ix, err = s.builder.GetOrBuild(ctx, version, tax, s.encoder)
	if err != nil {
		return nil, nil, err
	}
	if ix.Stale() {
		if err := ix.Covers(tax); err != nil {
			return nil, nil, models.WrapError(models.ErrEncoderUnavailable, "prepare "+version, err)
		}
		// Not memoized: the next call retries the build.
		return tax, ix, nil
	}
	s.memoize(version, tax, ix)
	return tax, ix, nil
}

// memoize caches ix only while tax is still the cached taxonomy for version, so an
// Invalidate during a build cannot pair a fresh taxonomy with an index built for the old one.
func (s *Service) memoize(version string, tax *taxonomy.Taxonomy, ix *index.Index) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taxonomies[version] == tax {
		s.indexes[version] = ix
	}
}

// Rebuild reloads the taxonomy and builds its index from scratch.
func (s *Service) Rebuild(ctx context.Context, version string) (*index.Index, error) {
	version, err := s.ResolveVersion(version)
	if err != nil {
		return nil, err
	}
	s.Invalidate(version)
	tax, err := s.Taxonomy(version)
	if err != nil {
		return nil, err
	}
	ix, err := s.builder.Rebuild(ctx, tax, s.encoder)
	if err != nil {
		return nil, err
	}
	s.memoize(version, tax, ix)
	return ix, nil
}

// Invalidate drops the in-memory taxonomy and index for version, or for every
// version when version is empty. Persisted indexes are left to fingerprint checks.
func (s *Service) Invalidate(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version == "" {
		s.taxonomies = make(map[string]*taxonomy.Taxonomy)
		s.indexes = make(map[string]*index.Index)
		return
	}
	delete(s.taxonomies, version)
	delete(s.indexes, version)
	s.logger.Debug("Invalidated taxonomy", zap.String("version", version))
}

// Classify tags titles against version.
func (s *Service) Classify(ctx context.Context, version string, titles []string) (resp *models.ClassifyResponse, err error) {
	start := time.Now()
	defer func() {
		if s.recorder == nil {
			return
		}
		v, total, related := version, len(titles), 0
		if resp != nil {
			v, related = resp.Version, resp.TotalRelated
		}
		s.recorder.RecordClassification(v, total, related, time.Since(start), err)
	}()

	tax, ix, err := s.Prepare(ctx, version)
	if err != nil {
		return nil, err
	}

	results := make([]models.DecisionResult, 0, len(titles))
	for _, chunk := range s.chunks(titles) {
		out, err := s.classifyChunk(ctx, chunk, tax, ix)
		if err != nil {
			return nil, err
		}
		results = append(results, out...)
	}

	resp = &models.ClassifyResponse{
		Version:    tax.Version(),
		Results:    results,
		Total:      len(results),
		StaleIndex: ix.Stale(),
		QueryTime:  time.Since(start).Milliseconds(),
	}
	for _, r := range results {
		if r.SuicideRelated {
			resp.TotalRelated++
		}
	}
	s.logger.Debug("Classified titles",
		zap.String("version", resp.Version),
		zap.Int("total", resp.Total),
		zap.Int("related", resp.TotalRelated),
		zap.Bool("stale_index", resp.StaleIndex))
	return resp, nil
}

func (s *Service) classifyChunk(ctx context.Context, titles []string, tax *taxonomy.Taxonomy, ix *index.Index) ([]models.DecisionResult, error) {
	if s.cfg.EncodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EncodeTimeout)
		defer cancel()
	}
	return run(ctx, s.encoder, titles, tax, ix, s.scorer, s.engine)
}

func (s *Service) chunks(titles []string) [][]string {
	size := s.cfg.BatchSize
	if size <= 0 || size >= len(titles) {
		if len(titles) == 0 {
			return nil
		}
		return [][]string{titles}
	}
	var out [][]string
	for start := 0; start < len(titles); start += size {
		out = append(out, titles[start:min(start+size, len(titles))])
	}
	return out
}

// SubtagScore is one column of an explanation.
type SubtagScore struct {
	Keyword   string            `json:"keyword"`
	Subtag    string            `json:"subtag"`
	Threshold float64           `json:"threshold"`
	Active    bool              `json:"active"`
	Scores    similarity.Detail `json:"scores"`
}

// Explanation shows every score and gate behind one title's decision.
type Explanation struct {
	Version    string                `json:"version"`
	Result     models.DecisionResult `json:"result"`
	Trace      decision.Trace        `json:"trace"`
	Subtags    []SubtagScore         `json:"subtags"`
	StaleIndex bool                  `json:"stale_index,omitempty"`
}

// Explain classifies a single title and returns the full score breakdown.
func (s *Service) Explain(ctx context.Context, version, title string) (*Explanation, error) {
	tax, ix, err := s.Prepare(ctx, version)
	if err != nil {
		return nil, err
	}
	if s.cfg.EncodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EncodeTimeout)
		defer cancel()
	}
	m, err := score(ctx, s.encoder, []string{title}, tax, ix, s.scorer)
	if err != nil {
		return nil, err
	}
	results, traces, err := s.engine.Trace(m, tax)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, errors.New("explain: unexpected result count")
	}
	res := results[0]
	res.Title = title

	exp := &Explanation{
		Version:    tax.Version(),
		Result:     res,
		Trace:      traces[0],
		StaleIndex: ix.Stale(),
	}
	for j, ref := range m.Cols {
		d, _ := m.Detail(0, j)
		exp.Subtags = append(exp.Subtags, SubtagScore{
			Keyword:   ref.Keyword,
			Subtag:    ref.Subtag,
			Threshold: tax.Threshold(ref.Subtag),
			Active:    res.SubtagMask[ref.Subtag],
			Scores:    d,
		})
	}
	return exp, nil
}

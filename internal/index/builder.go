package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/taxonomy"
	"github.com/hyperjump/mindcast/pkg/utils"
)

// Build outcomes reported to an Observer.
const (
	SourceHit   = "hit"
	SourceBuilt = "built"
	SourceStale = "stale"
	SourceError = "error"
)

// Observer receives one call per GetOrBuild/Rebuild with where the index came from.
type Observer interface {
	ObserveIndex(version, source string, elapsed time.Duration)
}

// Builder resolves the index for a taxonomy version from its cache, building and
// persisting it with an encoder on a miss.
type Builder struct {
	cache    Cache
	template string
	logger   *zap.Logger
	observer Observer
	timeout  time.Duration
	group    singleflight.Group
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) { b.logger = l }
}

// WithObserver sets the build observer.
func WithObserver(o Observer) BuilderOption {
	return func(b *Builder) { b.observer = o }
}

// WithBuildTimeout bounds a shared build. Zero leaves it unbounded.
func WithBuildTimeout(d time.Duration) BuilderOption {
	return func(b *Builder) { b.timeout = d }
}

// NewBuilder returns a builder over cache. An empty template selects DefaultTemplate.
func NewBuilder(cache Cache, template string, opts ...BuilderOption) *Builder {
	if template == "" {
		template = DefaultTemplate
	}
	b := &Builder{cache: cache, template: template, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = utils.OrNop(b.logger)
	return b
}

// Template returns the reference sentence template.
func (b *Builder) Template() string { return b.template }

// GetOrBuild returns the index for version. A cached index whose fingerprint matches tax
// is returned without touching the encoder. Otherwise every (keyword, sub-tag) pair is
// encoded, the index is persisted and then returned. Concurrent calls for one version
// share a single build.
func (b *Builder) GetOrBuild(ctx context.Context, version string, tax *taxonomy.Taxonomy, enc embedding.Encoder) (*Index, error) {
	if err := checkVersion(version, tax); err != nil {
		return nil, err
	}
	return b.shared(ctx, version, func(ctx context.Context) (*Index, error) {
		return b.resolve(ctx, tax, enc, false)
	})
}

// Rebuild ignores any cached index and builds a fresh one for tax.
func (b *Builder) Rebuild(ctx context.Context, tax *taxonomy.Taxonomy, enc embedding.Encoder) (*Index, error) {
	if err := checkVersion(tax.Version(), tax); err != nil {
		return nil, err
	}
	return b.shared(ctx, "rebuild/"+tax.Version(), func(ctx context.Context) (*Index, error) {
		return b.resolve(ctx, tax, enc, true)
	})
}

// shared runs fn once per key for all concurrent callers. The build is detached from
// any single caller's cancellation; each caller stops waiting when its own ctx is done.
func (b *Builder) shared(ctx context.Context, key string, fn func(context.Context) (*Index, error)) (*Index, error) {
	ch := b.group.DoChan(key, func() (interface{}, error) {
		buildCtx := context.WithoutCancel(ctx)
		if b.timeout > 0 {
			var cancel context.CancelFunc
			buildCtx, cancel = context.WithTimeout(buildCtx, b.timeout)
			defer cancel()
		}
		return fn(buildCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Index), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("index %s: %w", key, ctx.Err())
	}
}

func checkVersion(version string, tax *taxonomy.Taxonomy) error {
	if tax == nil {
		return fmt.Errorf("index %s: nil taxonomy", version)
	}
	if tax.Version() != version {
		return fmt.Errorf("index %s: taxonomy is version %s", version, tax.Version())
	}
	return nil
}

func (b *Builder) resolve(ctx context.Context, tax *taxonomy.Taxonomy, enc embedding.Encoder, force bool) (*Index, error) {
	start := time.Now()
	version := tax.Version()
	fingerprint := tax.Fingerprint(b.template)

	var cached *Index
	if !force {
		ix, err := b.cache.Load(ctx, version)
		switch {
		case err == nil:
			cached = ix
		case errors.Is(err, ErrCacheMiss):
		default:
			b.logger.Warn("Ignoring unreadable cached index", zap.String("version", version), zap.Error(err))
		}
		if cached != nil && cached.Fingerprint() == fingerprint && (enc == nil || enc.Dimensions() == cached.Dimensions()) {
			b.logger.Debug("Index cache hit", zap.String("version", version), zap.Int("entries", cached.Len()))
			b.observe(version, SourceHit, start)
			return cached, nil
		}
	}

	ix, err := b.build(ctx, tax, fingerprint, enc)
	if err != nil {
		if cached != nil && errors.Is(err, models.ErrEncoderUnavailable) {
			b.logger.Warn("Encoder unavailable, serving stale index",
				zap.String("version", version),
				zap.String("cached_fingerprint", cached.Fingerprint()),
				zap.Error(err))
			b.observe(version, SourceStale, start)
			return cached.asStale(), nil
		}
		b.observe(version, SourceError, start)
		return nil, err
	}
	if err := b.cache.Store(ctx, ix); err != nil {
		b.observe(version, SourceError, start)
		return nil, fmt.Errorf("persist index %s: %w", version, err)
	}
	b.logger.Info("Built embedding index",
		zap.String("version", version),
		zap.Int("entries", ix.Len()),
		zap.Int("dimensions", ix.Dimensions()),
		zap.Duration("elapsed", time.Since(start)))
	b.observe(version, SourceBuilt, start)
	return ix, nil
}

func (b *Builder) build(ctx context.Context, tax *taxonomy.Taxonomy, fingerprint string, enc embedding.Encoder) (*Index, error) {
	op := "build index " + tax.Version()
	if enc == nil {
		return nil, models.WrapError(models.ErrEncoderUnavailable, op, errors.New("no encoder configured"))
	}
	refs := tax.Subtags()
	entries := make([]Entry, 0, len(refs))
	for _, ref := range refs {
		vec, err := enc.EncodeSentence(ctx, Render(b.template, ref.Keyword, ref.Subtag))
		if err != nil {
			return nil, models.WrapError(models.ErrEncoderUnavailable, op, err)
		}
		entries = append(entries, Entry{Keyword: ref.Keyword, Subtag: ref.Subtag, Vector: vec})
	}
	return New(tax.Version(), fingerprint, entries)
}

func (b *Builder) observe(version, source string, start time.Time) {
	if b.observer != nil {
		b.observer.ObserveIndex(version, source, time.Since(start))
	}
}

package classifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/mindcast/internal/decision"
	"github.com/hyperjump/mindcast/internal/embedding"
	"github.com/hyperjump/mindcast/internal/index"
	"github.com/hyperjump/mindcast/internal/models"
	"github.com/hyperjump/mindcast/internal/taxonomy"
)

const testDim = 256

// Templates reduce to the bare sub-tag so a title containing that word matches it exactly.
const testTemplate = "{subtag}"

const testDoc = `{
	"keywords": {
		"자살": ["투신", "추락"],
		"약물": ["음독"]
	},
	"threshold": 0.45
}`

// testOptions lowers the relevance gates so the mock encoder's near-orthogonal word
// vectors leave a wide margin on both sides.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Policy = decision.Policy{LowRelevanceThreshold: 0.3, CentroidThreshold: 0.2}
	return opts
}

type countingEncoder struct {
	*embedding.MockEncoder
	batches   atomic.Int32
	sentences atomic.Int32
	err       error
}

func newCountingEncoder() *countingEncoder {
	return &countingEncoder{MockEncoder: embedding.NewMockEncoder(testDim)}
}

func (e *countingEncoder) EncodeBatch(ctx context.Context, texts []string) (*embedding.Batch, error) {
	e.batches.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.MockEncoder.EncodeBatch(ctx, texts)
}

func (e *countingEncoder) EncodeSentence(ctx context.Context, text string) ([]float32, error) {
	e.sentences.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.MockEncoder.EncodeSentence(ctx, text)
}

type recorder struct {
	mu      sync.Mutex
	calls   int
	related int
	lastErr error
}

func (r *recorder) RecordClassification(_ string, _, related int, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.related += related
	r.lastErr = err
}

func writeTaxonomy(t *testing.T, dir, version, content string) {
	t.Helper()
	name := taxonomy.FileKey(version) + ".json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func newTestService(t *testing.T, enc embedding.Encoder, cfg Config, opts ...Option) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	writeTaxonomy(t, dir, "2022-06", testDoc)
	if cfg.Weights.Sum() == 0 {
		cfg.Options = testOptions()
	}
	builder := index.NewBuilder(index.NewMemoryCache(), testTemplate)
	svc, err := NewService(taxonomy.NewStore(dir), builder, enc, cfg, opts...)
	require.NoError(t, err)
	return svc, dir
}

func TestClassify_Function(t *testing.T) {
	ctx := context.Background()
	enc := embedding.NewMockEncoder(testDim)
	dir := t.TempDir()
	writeTaxonomy(t, dir, "2022-06", testDoc)
	tax, err := taxonomy.NewStore(dir).Load("2022-06")
	require.NoError(t, err)
	ix, err := index.NewBuilder(index.NewMemoryCache(), testTemplate).GetOrBuild(ctx, "2022-06", tax, enc)
	require.NoError(t, err)

	results, err := Classify(ctx, enc, []string{"투신", "오늘 날씨 맑음"}, tax, ix, testOptions())
	require.NoError(t, err)
	require.Len(t, results, 2)

	related := results[0]
	assert.Equal(t, "투신", related.Title)
	assert.True(t, related.SuicideRelated)
	assert.Equal(t, "자살", related.WinnerKeyword)
	assert.Equal(t, map[string]bool{"자살": true, "약물": false}, related.KeywordMask)
	assert.Equal(t, map[string]bool{"투신": true, "추락": false, "음독": false}, related.SubtagMask)

	unrelated := results[1]
	assert.False(t, unrelated.SuicideRelated)
	assert.Empty(t, unrelated.WinnerKeyword)
	assert.Len(t, unrelated.SubtagMask, 3)

	empty, err := Classify(ctx, enc, nil, tax, ix, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = Classify(ctx, enc, []string{"x"}, tax, ix, Options{})
	assert.Error(t, err)
}

func TestService_ClassifyBatchesAndRecords(t *testing.T) {
	enc := newCountingEncoder()
	rec := &recorder{}
	svc, _ := newTestService(t, enc, Config{BatchSize: 2}, WithRecorder(rec))

	titles := []string{"투신", "음독", "날씨", "추락", "주식 시장"}
	resp, err := svc.Classify(context.Background(), "", titles)
	require.NoError(t, err)

	assert.Equal(t, "2022-06", resp.Version)
	assert.Equal(t, 5, resp.Total)
	assert.False(t, resp.StaleIndex)
	require.Len(t, resp.Results, 5)
	for i, r := range resp.Results {
		assert.Equal(t, titles[i], r.Title)
	}
	assert.Equal(t, "자살", resp.Results[0].WinnerKeyword)
	assert.Equal(t, "약물", resp.Results[1].WinnerKeyword)
	assert.False(t, resp.Results[2].SuicideRelated)
	assert.Equal(t, 3, resp.TotalRelated)

	assert.Equal(t, int32(3), enc.batches.Load())
	assert.Equal(t, int32(3), enc.sentences.Load(), "one sentence per sub-tag")
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 3, rec.related)

	_, err = svc.Classify(context.Background(), "2022-06", []string{"투신"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), enc.sentences.Load(), "index is reused in memory")
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown version", func(t *testing.T) {
		svc, _ := newTestService(t, newCountingEncoder(), Config{})
		_, err := svc.Classify(ctx, "2030-01", []string{"투신"})
		assert.ErrorIs(t, err, models.ErrConfigNotFound)
	})

	t.Run("malformed taxonomy", func(t *testing.T) {
		svc, dir := newTestService(t, newCountingEncoder(), Config{})
		writeTaxonomy(t, dir, "2022-07", `{"keywords": {}}`)
		_, err := svc.Classify(ctx, "2022-07", []string{"투신"})
		assert.ErrorIs(t, err, models.ErrConfigMalformed)
	})

	t.Run("encoder down", func(t *testing.T) {
		enc := newCountingEncoder()
		enc.err = errors.New("model offline")
		rec := &recorder{}
		svc, _ := newTestService(t, enc, Config{}, WithRecorder(rec))
		_, err := svc.Classify(ctx, "2022-06", []string{"투신"})
		assert.ErrorIs(t, err, models.ErrEncoderUnavailable)
		assert.Error(t, rec.lastErr)
	})

	t.Run("no encoder", func(t *testing.T) {
		svc, _ := newTestService(t, nil, Config{})
		_, err := svc.Classify(ctx, "2022-06", []string{"투신"})
		assert.ErrorIs(t, err, models.ErrEncoderUnavailable)
	})

	t.Run("wrong dimension", func(t *testing.T) {
		dir := t.TempDir()
		writeTaxonomy(t, dir, "2022-06", testDoc)
		store := taxonomy.NewStore(dir)
		tax, err := store.Load("2022-06")
		require.NoError(t, err)
		cache := index.NewMemoryCache()
		builder := index.NewBuilder(cache, testTemplate)
		_, err = builder.GetOrBuild(ctx, "2022-06", tax, embedding.NewMockEncoder(testDim))
		require.NoError(t, err)

		// A cached index with a different dimension is served when no encoder can rebuild it.
		svc, err := NewService(store, builder, nil, Config{Options: DefaultOptions()})
		require.NoError(t, err)
		_, ix, err := svc.Prepare(ctx, "2022-06")
		require.NoError(t, err)
		_, err = Classify(ctx, embedding.NewMockEncoder(8), []string{"투신"}, tax, ix, DefaultOptions())
		assert.ErrorIs(t, err, models.ErrShapeMismatch)
	})
}

func TestService_ResolveVersion(t *testing.T) {
	svc, dir := newTestService(t, newCountingEncoder(), Config{})
	writeTaxonomy(t, dir, "2023-01", testDoc)

	v, err := svc.ResolveVersion("")
	require.NoError(t, err)
	assert.Equal(t, "2023-01", v)

	svc.cfg.DefaultVersion = "2022-06"
	v, err = svc.ResolveVersion("")
	require.NoError(t, err)
	assert.Equal(t, "2022-06", v)

	empty, err := NewService(taxonomy.NewStore(t.TempDir()), index.NewBuilder(index.NewMemoryCache(), ""), nil, Config{Options: DefaultOptions()})
	require.NoError(t, err)
	_, err = empty.ResolveVersion("")
	assert.ErrorIs(t, err, models.ErrConfigNotFound)
}

func TestService_InvalidatePicksUpEdits(t *testing.T) {
	ctx := context.Background()
	svc, dir := newTestService(t, newCountingEncoder(), Config{})

	resp, err := svc.Classify(ctx, "2022-06", []string{"투신"})
	require.NoError(t, err)
	assert.True(t, resp.Results[0].SuicideRelated)

	writeTaxonomy(t, dir, "2022-06", `{
	"keywords": {"자살": ["투신", "추락"], "약물": ["음독"]},
	"threshold": 0.45,
	"subtag_thresholds": {"투신": 0.99}
}`)
	resp, err = svc.Classify(ctx, "2022-06", []string{"투신"})
	require.NoError(t, err)
	assert.True(t, resp.Results[0].SuicideRelated, "cached taxonomy stays until invalidated")

	svc.Invalidate("2022-06")
	resp, err = svc.Classify(ctx, "2022-06", []string{"투신"})
	require.NoError(t, err)
	assert.False(t, resp.Results[0].SuicideRelated)
}

func TestService_StaleIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeTaxonomy(t, dir, "2022-06", testDoc)
	store := taxonomy.NewStore(dir)
	builder := index.NewBuilder(index.NewMemoryCache(), testTemplate)

	enc := newCountingEncoder()
	svc, err := NewService(store, builder, enc, Config{Options: testOptions()})
	require.NoError(t, err)
	_, err = svc.Classify(ctx, "2022-06", []string{"투신"})
	require.NoError(t, err)

	// Reordered sub-tags change the fingerprint but stay covered by the old index.
	writeTaxonomy(t, dir, "2022-06", `{"keywords": {"자살": ["추락", "투신"], "약물": ["음독"]}}`)
	svc.Invalidate("")
	down := &countingEncoder{MockEncoder: embedding.NewMockEncoder(testDim), err: errors.New("model offline")}
	svc.encoder = down
	_, ix, err := svc.Prepare(ctx, "2022-06")
	require.NoError(t, err)
	assert.True(t, ix.Stale())

	// A new sub-tag cannot be served from the stale index.
	writeTaxonomy(t, dir, "2022-06", `{"keywords": {"자살": ["투신", "추락", "목맴"], "약물": ["음독"]}}`)
	svc.Invalidate("2022-06")
	_, _, err = svc.Prepare(ctx, "2022-06")
	assert.ErrorIs(t, err, models.ErrEncoderUnavailable)
}

func TestService_Rebuild(t *testing.T) {
	enc := newCountingEncoder()
	svc, _ := newTestService(t, enc, Config{})
	ix, err := svc.Rebuild(context.Background(), "2022-06")
	require.NoError(t, err)
	assert.Equal(t, 3, ix.Len())
	_, err = svc.Rebuild(context.Background(), "2022-06")
	require.NoError(t, err)
	assert.Equal(t, int32(6), enc.sentences.Load())
}

type gatedEncoder struct {
	*countingEncoder
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (e *gatedEncoder) EncodeSentence(ctx context.Context, text string) ([]float32, error) {
	e.once.Do(func() { close(e.entered) })
	<-e.release
	return e.countingEncoder.EncodeSentence(ctx, text)
}

func TestService_RebuildDoesNotCacheIndexForReplacedTaxonomy(t *testing.T) {
	ctx := context.Background()
	enc := &gatedEncoder{
		countingEncoder: newCountingEncoder(),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	svc, dir := newTestService(t, enc, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Rebuild(ctx, "2022-06")
		done <- err
	}()
	<-enc.entered

	writeTaxonomy(t, dir, "2022-06", `{"keywords": {"자살": ["투신", "추락", "목맴"], "약물": ["음독"]}}`)
	svc.Invalidate("2022-06")
	fresh, err := svc.Taxonomy("2022-06")
	require.NoError(t, err)
	close(enc.release)
	require.NoError(t, <-done)

	svc.mu.RLock()
	_, cached := svc.indexes["2022-06"]
	svc.mu.RUnlock()
	assert.False(t, cached, "index built for the replaced taxonomy must not be cached")

	tax, ix, err := svc.Prepare(ctx, "2022-06")
	require.NoError(t, err)
	assert.Same(t, fresh, tax)
	assert.Equal(t, 4, ix.Len())
	assert.NoError(t, ix.Covers(tax))
}

func TestService_Explain(t *testing.T) {
	svc, _ := newTestService(t, newCountingEncoder(), Config{})
	exp, err := svc.Explain(context.Background(), "2022-06", "투신")
	require.NoError(t, err)

	assert.Equal(t, "2022-06", exp.Version)
	assert.Equal(t, "투신", exp.Result.Title)
	assert.True(t, exp.Trace.Relevant)
	assert.Equal(t, "자살", exp.Trace.Selected)
	require.Len(t, exp.Subtags, 3)
	assert.Equal(t, "투신", exp.Subtags[0].Subtag)
	assert.True(t, exp.Subtags[0].Active)
	assert.InDelta(t, 1.0, exp.Subtags[0].Scores.TokenSubtag, 1e-5)
	assert.InDelta(t, 0.45, exp.Subtags[0].Threshold, 1e-12)
	assert.False(t, exp.Subtags[2].Active)
}

func TestService_EncodeTimeout(t *testing.T) {
	enc := &slowEncoder{MockEncoder: embedding.NewMockEncoder(testDim)}
	svc, _ := newTestService(t, enc, Config{EncodeTimeout: 10 * time.Millisecond})
	_, err := svc.Classify(context.Background(), "2022-06", []string{"투신"})
	assert.ErrorIs(t, err, models.ErrEncoderUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type slowEncoder struct {
	*embedding.MockEncoder
}

func (e *slowEncoder) EncodeBatch(ctx context.Context, _ []string) (*embedding.Batch, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

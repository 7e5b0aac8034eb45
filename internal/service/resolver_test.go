package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pqrs/internal/casestore"
	"pqrs/internal/domain"
	"pqrs/internal/embedcache"
	"pqrs/internal/embedding"
	"pqrs/internal/embedding/tfidf"
	"pqrs/internal/metrics"
	"pqrs/internal/ranking"
)

const demoQuery = "Necesito actualizar el valor de comisión para el crédito 1234567890123"

func demoStore(t *testing.T) *casestore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := casestore.Open(ctx, casestore.MemoryPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = casestore.Bootstrap(ctx, s, casestore.Options{})
	require.NoError(t, err)
	return s
}

func vectorResolver(t *testing.T, store *casestore.Store, cache embedcache.Cache, m *metrics.Metrics) (*Resolver, *embedding.Lazy) {
	t.Helper()
	lazy := embedding.NewLazy("tfidf", tfidf.Loader(store), nil, m)
	r := NewResolver(store, ranking.NewVector(lazy, cache, ranking.VectorOptions{Metrics: m}), Options{Metrics: m})
	return r, lazy
}

func assertDemoResolution(t *testing.T, res *domain.Resolution) {
	t.Helper()
	require.NotNil(t, res)
	assert.Equal(t, "Comisiones", res.Case.Category)
	assert.Equal(t, map[string]string{"credito": "1234567890123"}, res.Params)
	assert.Contains(t, res.BoundQuery, "CreditNumber = '1234567890123'")
	assert.NotContains(t, res.BoundQuery, "[CREDITO]")
	for _, p := range []string{"[VALOR_TOTAL]", "[VALOR_CONCES]", "[VALOR_VEND]"} {
		assert.Contains(t, res.BoundQuery, p)
	}
	assert.Equal(t, []string{"VALOR_TOTAL", "VALOR_CONCES", "VALOR_VEND"}, res.Statement.Missing)
	assert.Equal(t, []any{"1234567890123", "1234567890123"}, res.Statement.Args)
	assert.Equal(t, "Se actualizaron los valores de comisión correctamente.", res.ResponseText)
}

func TestResolve_DemoScenario(t *testing.T) {
	ctx := context.Background()

	t.Run("vector", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		r, _ := vectorResolver(t, demoStore(t), embedcache.NewMemory(), m)
		res, err := r.Resolve(ctx, demoQuery)
		require.NoError(t, err)
		assertDemoResolution(t, res)
		assert.GreaterOrEqual(t, res.Score, r.Threshold())
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.OutcomeMatch)))
	})

	t.Run("lexical", func(t *testing.T) {
		store := demoStore(t)
		r := NewResolver(store, ranking.NewLexical(nil), Options{})
		res, err := r.Resolve(ctx, demoQuery)
		require.NoError(t, err)
		assertDemoResolution(t, res)
		assert.Equal(t, "lexical", r.RankerName())
	})
}

func TestResolve_FillsEmbeddingCache(t *testing.T) {
	ctx := context.Background()
	store := demoStore(t)
	cache := embedcache.NewMemory()
	r, _ := vectorResolver(t, store, cache, nil)

	_, err := r.Resolve(ctx, "factura")
	require.NoError(t, err)

	cases, err := store.ListCases(ctx)
	require.NoError(t, err)
	for _, c := range cases {
		_, ok, err := cache.Get(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, ok, "case %d cached", c.ID)
	}
}

func TestResolve_EmptyStore(t *testing.T) {
	ctx := context.Background()
	store, err := casestore.Open(ctx, casestore.MemoryPath, nil)
	require.NoError(t, err)
	defer store.Close()

	r, lazy := vectorResolver(t, store, embedcache.NewMemory(), nil)
	res, err := r.Resolve(ctx, demoQuery)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.False(t, lazy.Ready(), "empty corpus never loads the model")
}

func TestResolve_NoMatch(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := NewResolver(demoStore(t), ranking.NewLexical(nil), Options{Metrics: m})

	res, err := r.Resolve(ctx, "zzqx wvvy kkk")
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = r.Resolve(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.OutcomeNoMatch)))
}

func TestResolve_ThresholdIsHonored(t *testing.T) {
	r := NewResolver(demoStore(t), ranking.NewLexical(nil), Options{Threshold: 0.99})
	res, err := r.Resolve(context.Background(), demoQuery)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolve_ModelFailure(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	boom := errors.New("model files missing")
	lazy := embedding.NewLazy("broken", func(context.Context) (domain.Embedder, error) {
		return nil, boom
	}, nil, nil)
	r := NewResolver(demoStore(t), ranking.NewVector(lazy, embedcache.NewMemory(), ranking.VectorOptions{}), Options{Metrics: m})

	res, err := r.Resolve(ctx, demoQuery)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.OutcomeError)))

	assert.ErrorIs(t, r.Warm(ctx), boom)
}

func TestRankAndWarm(t *testing.T) {
	ctx := context.Background()
	store := demoStore(t)
	cache := embedcache.NewMemory()
	r, lazy := vectorResolver(t, store, cache, nil)

	require.NoError(t, r.Warm(ctx))
	assert.True(t, lazy.Ready())
	assert.Equal(t, 2, cache.Len())

	ranked, err := r.Rank(ctx, demoQuery)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Comisiones", ranked[0].Case.Category)
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)

	lex := NewResolver(store, ranking.NewLexical(nil), Options{})
	assert.NoError(t, lex.Warm(ctx), "lexical ranker has nothing to warm")
}

func TestResolve_BlankTextStillFillsEmbeddingCache(t *testing.T) {
	ctx := context.Background()
	cache := embedcache.NewMemory()
	r, lazy := vectorResolver(t, demoStore(t), cache, nil)

	res, err := r.Resolve(ctx, "  ")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.True(t, lazy.Ready())
	assert.Equal(t, 2, cache.Len())
}

// countingRanker counts how often the corpus is ranked.
type countingRanker struct {
	ranking.Ranker
	calls int
}

func (c *countingRanker) Rank(ctx context.Context, query string, cases []domain.Case) ([]domain.RankedMatch, error) {
	c.calls++
	return c.Ranker.Rank(ctx, query, cases)
}

func TestResolveRanked(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	counting := &countingRanker{Ranker: ranking.NewLexical(nil)}
	r := NewResolver(demoStore(t), counting, Options{Metrics: m})

	res, ranked, err := r.ResolveRanked(ctx, demoQuery)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Len(t, ranked, 2)
	assert.Equal(t, res.Case.ID, ranked[0].Case.ID)
	assert.Equal(t, res.Score, ranked[0].Score)
	assert.Equal(t, 1, counting.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues(metrics.OutcomeMatch)))

	res, ranked, err = r.ResolveRanked(ctx, "zzqx wvvy kkk")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Len(t, ranked, 2, "alternatives are returned below the threshold")
	assert.Equal(t, 2, counting.calls)
}

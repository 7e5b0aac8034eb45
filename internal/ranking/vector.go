package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"pqrs/internal/domain"
	"pqrs/internal/embedcache"
	"pqrs/internal/metrics"
)

// VectorRanker scores cases by cosine similarity of embeddings. Case vectors
// come from the embedding cache and are computed and stored on a miss, or
// when the cached entry was made by another model or from older text.
type VectorRanker struct {
	embedder domain.Embedder
	cache    embedcache.Cache
	queries  *gocache.Cache
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// VectorOptions tunes a VectorRanker.
type VectorOptions struct {
	// QueryCacheTTL keeps query vectors for repeated identical queries.
	// Zero disables the memo.
	QueryCacheTTL time.Duration
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// NewVector creates a ranker over embedder and cache.
func NewVector(embedder domain.Embedder, cache embedcache.Cache, opts VectorOptions) *VectorRanker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &VectorRanker{embedder: embedder, cache: cache, logger: logger, metrics: opts.Metrics}
	if opts.QueryCacheTTL > 0 {
		r.queries = gocache.New(opts.QueryCacheTTL, 2*opts.QueryCacheTTL)
	}
	return r
}

// Name returns the identifier of this ranking strategy.
func (r *VectorRanker) Name() string { return "vector" }

// Rank embeds the query once and scores every case. An empty corpus returns
// an empty result without loading the model.
func (r *VectorRanker) Rank(ctx context.Context, query string, cases []domain.Case) ([]domain.RankedMatch, error) {
	if len(cases) == 0 {
		return nil, nil
	}
	start := time.Now()
	qv, err := r.queryVector(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RankedMatch, len(cases))
	for i, c := range cases {
		cv, err := r.caseVector(ctx, c)
		if err != nil {
			return nil, err
		}
		out[i] = domain.RankedMatch{Case: c, Score: cosine(qv, cv)}
	}
	sortMatches(out)
	r.metrics.ObserveRank(r.Name(), time.Since(start))
	return out, nil
}

// Warm loads the model and makes sure every case has a fresh cached vector.
func (r *VectorRanker) Warm(ctx context.Context, cases []domain.Case) error {
	if len(cases) == 0 {
		return nil
	}
	if err := r.ensureReady(ctx); err != nil {
		return err
	}
	for _, c := range cases {
		if _, err := r.caseVector(ctx, c); err != nil {
			return err
		}
	}
	r.logger.Info("embedding cache warm", "cases", len(cases), "entries", r.cache.Len())
	return nil
}

type readier interface {
	EnsureReady(ctx context.Context) error
}

// ensureReady loads a lazily held model so Version is meaningful before any
// case vector is judged fresh or stale.
func (r *VectorRanker) ensureReady(ctx context.Context) error {
	if rd, ok := r.embedder.(readier); ok {
		return rd.EnsureReady(ctx)
	}
	return nil
}

func (r *VectorRanker) queryVector(ctx context.Context, query string) ([]float64, error) {
	if r.queries != nil {
		// The version is only known once the model is loaded; before that
		// there can be nothing memoized.
		if v := r.embedder.Version(); v != "" {
			if hit, ok := r.queries.Get(v + "\x00" + query); ok {
				return hit.([]float64), nil
			}
		}
	}
	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if r.queries != nil {
		r.queries.SetDefault(r.embedder.Version()+"\x00"+query, qv)
	}
	return qv, nil
}

func (r *VectorRanker) caseVector(ctx context.Context, c domain.Case) ([]float64, error) {
	hash := embedcache.ContentHash(c.ProblemText)
	entry, ok, err := r.cache.Get(ctx, c.ID)
	if err != nil {
		// A broken cache read only costs a recompute.
		r.logger.Warn("embedding cache read failed", "case_id", c.ID, "error", err)
		ok = false
	}
	if ok {
		version := r.embedder.Version()
		if entry.Fresh(version, hash) {
			r.metrics.ObserveCacheLookup(metrics.LookupHit)
			return entry.Vector, nil
		}
		r.metrics.ObserveCacheLookup(metrics.LookupStale)
		r.logger.Debug("embedding cache entry stale", "case_id", c.ID, "cached_model", entry.Model, "model", version)
	} else {
		r.metrics.ObserveCacheLookup(metrics.LookupMiss)
	}
	vec, err := r.embedder.Embed(ctx, c.ProblemText)
	if err != nil {
		return nil, fmt.Errorf("embed case %d: %w", c.ID, err)
	}
	if err := r.cache.Put(ctx, c.ID, embedcache.Entry{Vector: vec, Model: r.embedder.Version(), ContentHash: hash}); err != nil {
		return nil, fmt.Errorf("cache embedding for case %d: %w", c.ID, err)
	}
	return vec, nil
}

// cosine returns 0 when either vector has no magnitude.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

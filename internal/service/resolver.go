// Package service answers problem descriptions with the best matching solved
// case and its remediation filled in.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pqrs/internal/domain"
	"pqrs/internal/metrics"
	"pqrs/internal/params"
	"pqrs/internal/ranking"
)

// Options tunes a Resolver.
type Options struct {
	// Threshold is the minimum score for a match; non-positive means
	// ranking.DefaultThreshold.
	Threshold float64
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// Resolver is the retrieval facade hosts talk to.
type Resolver struct {
	cases     domain.CaseLister
	ranker    ranking.Ranker
	threshold float64
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewResolver creates a resolver over the case corpus and a ranking strategy.
func NewResolver(cases domain.CaseLister, ranker ranking.Ranker, opts Options) *Resolver {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = ranking.DefaultThreshold
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cases: cases, ranker: ranker, threshold: threshold, logger: logger, metrics: opts.Metrics}
}

// Threshold returns the minimum score a match needs.
func (r *Resolver) Threshold() float64 { return r.threshold }

// RankerName returns the active ranking strategy.
func (r *Resolver) RankerName() string { return r.ranker.Name() }

// Resolve finds the case closest to problemText and fills its templates.
// It returns nil without error when the text is blank, the corpus is empty,
// or no case scores at least the threshold.
func (r *Resolver) Resolve(ctx context.Context, problemText string) (*domain.Resolution, error) {
	res, _, err := r.ResolveRanked(ctx, problemText)
	return res, err
}

// ResolveRanked is Resolve plus the full ranking the match was taken from,
// for hosts that show alternatives. The corpus is ranked once. Blank text
// ranks nothing, but the ranker is still warmed so every case has a cached
// embedding afterwards.
func (r *Resolver) ResolveRanked(ctx context.Context, problemText string) (*domain.Resolution, []domain.RankedMatch, error) {
	log := r.logger.With("request_id", uuid.NewString(), "ranker", r.ranker.Name())
	start := time.Now()

	cases, err := r.cases.ListCases(ctx)
	if err != nil {
		r.metrics.ObserveResolution(metrics.OutcomeError)
		log.Error("list cases failed", "error", err)
		return nil, nil, err
	}
	if strings.TrimSpace(problemText) == "" {
		if err := r.warm(ctx, cases); err != nil {
			r.metrics.ObserveResolution(metrics.OutcomeError)
			log.Error("warm-up failed", "error", err)
			return nil, nil, err
		}
		r.metrics.ObserveResolution(metrics.OutcomeNoMatch)
		log.Debug("blank problem text")
		return nil, nil, nil
	}
	ranked, err := r.ranker.Rank(ctx, problemText, cases)
	if err != nil {
		r.metrics.ObserveResolution(metrics.OutcomeError)
		log.Error("ranking failed", "error", err)
		return nil, nil, fmt.Errorf("resolve: %w", err)
	}
	best := ranking.Top(ranked, r.threshold)
	if best == nil {
		r.metrics.ObserveResolution(metrics.OutcomeNoMatch)
		log.Info("no case above threshold", "cases", len(cases), "threshold", r.threshold, "elapsed", time.Since(start))
		return nil, ranked, nil
	}

	values := params.Extract(problemText)
	res := &domain.Resolution{
		Case:         best.Case,
		Score:        best.Score,
		Params:       values,
		BoundQuery:   params.UnsafeFill(best.Case.QueryTemplate, values),
		Statement:    params.Parameterize(best.Case.QueryTemplate, values),
		ResponseText: best.Case.ResponseTemplate,
	}
	r.metrics.ObserveResolution(metrics.OutcomeMatch)
	log.Info("case matched",
		"case_id", best.Case.ID,
		"category", best.Case.Category,
		"score", best.Score,
		"unbound", res.Statement.Missing,
		"elapsed", time.Since(start))
	return res, ranked, nil
}

// Rank returns every case scored against problemText, best first.
func (r *Resolver) Rank(ctx context.Context, problemText string) ([]domain.RankedMatch, error) {
	cases, err := r.cases.ListCases(ctx)
	if err != nil {
		return nil, err
	}
	return r.ranker.Rank(ctx, problemText, cases)
}

// Warm prepares the ranker for the current corpus, loading the model and
// filling the embedding cache where the ranker has them.
func (r *Resolver) Warm(ctx context.Context) error {
	if _, ok := r.ranker.(ranking.Warmer); !ok {
		return nil
	}
	cases, err := r.cases.ListCases(ctx)
	if err != nil {
		return err
	}
	return r.warm(ctx, cases)
}

func (r *Resolver) warm(ctx context.Context, cases []domain.Case) error {
	w, ok := r.ranker.(ranking.Warmer)
	if !ok {
		return nil
	}
	if err := w.Warm(ctx, cases); err != nil {
		return fmt.Errorf("warm %s ranker: %w", r.ranker.Name(), err)
	}
	return nil
}

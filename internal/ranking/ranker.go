// Package ranking orders the case corpus by similarity to a problem text.
// Two interchangeable strategies exist: cosine over embeddings and a lexical
// ratio. They score on different scales and are never blended.
package ranking

import (
	"context"
	"sort"

	"pqrs/internal/domain"
)

// DefaultThreshold is the minimum score Best accepts when none is configured.
const DefaultThreshold = 0.5

// Ranker scores every case against a query, best first.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, query string, cases []domain.Case) ([]domain.RankedMatch, error)
}

// Warmer is implemented by rankers with expensive state worth preparing
// before the first query.
type Warmer interface {
	Warm(ctx context.Context, cases []domain.Case) error
}

// Best returns the top match when its score reaches threshold, nil otherwise.
func Best(ctx context.Context, r Ranker, query string, cases []domain.Case, threshold float64) (*domain.RankedMatch, error) {
	ranked, err := r.Rank(ctx, query, cases)
	if err != nil {
		return nil, err
	}
	return Top(ranked, threshold), nil
}

// Top returns the first of an already ranked list when it reaches threshold.
func Top(ranked []domain.RankedMatch, threshold float64) *domain.RankedMatch {
	if len(ranked) == 0 || ranked[0].Score < threshold {
		return nil
	}
	top := ranked[0]
	return &top
}

// sortMatches orders by descending score; equal scores keep corpus order.
func sortMatches(matches []domain.RankedMatch) {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
}

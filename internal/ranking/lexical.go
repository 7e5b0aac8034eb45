package ranking

import (
	"context"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"pqrs/internal/domain"
	"pqrs/internal/metrics"
)

// LexicalRanker scores cases by the longest-matching-block ratio between the
// lowercased query and problem text. It needs no model.
type LexicalRanker struct {
	metrics *metrics.Metrics
}

// NewLexical creates a lexical ranker.
func NewLexical(m *metrics.Metrics) *LexicalRanker {
	return &LexicalRanker{metrics: m}
}

// Name returns the identifier of this ranking strategy.
func (r *LexicalRanker) Name() string { return "lexical" }

// Rank scores every case; it never fails.
func (r *LexicalRanker) Rank(_ context.Context, query string, cases []domain.Case) ([]domain.RankedMatch, error) {
	start := time.Now()
	q := runes(strings.ToLower(query))
	out := make([]domain.RankedMatch, len(cases))
	for i, c := range cases {
		out[i] = domain.RankedMatch{Case: c, Score: ratio(q, runes(strings.ToLower(c.ProblemText)))}
	}
	sortMatches(out)
	r.metrics.ObserveRank(r.Name(), time.Since(start))
	return out, nil
}

// ratio is 2*M/T where M counts matched characters and T is the combined length.
func ratio(a, b []string) float64 {
	if len(a)+len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

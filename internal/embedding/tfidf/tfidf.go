package tfidf

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"pqrs/internal/domain"
	"pqrs/internal/embedding"
	"pqrs/internal/lang"
)

// Embedder implements a TF-IDF vectorizer over the case corpus.
// It builds a vocabulary from the corpus and computes IDF values.
type Embedder struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
	version    string
	prepared   bool
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{vocabulary: make(map[string]int)}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Version changes whenever the prepared vocabulary or its weights change.
func (e *Embedder) Version() string { return e.version }

// Prepare builds the vocabulary and IDF values from the provided corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range lang.Terms(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	e.vocabulary = make(map[string]int, len(terms))
	e.idf = make([]float64, len(terms))
	N := float64(len(corpus))
	h := sha256.New()
	for i, term := range terms {
		e.vocabulary[term] = i
		// Smoothed IDF
		e.idf[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
		fmt.Fprintf(h, "%s:%d\n", term, df[term])
	}
	fmt.Fprintf(h, "n=%d", len(corpus))
	e.dimension = len(terms)
	e.version = "tfidf:" + hex.EncodeToString(h.Sum(nil)[:8])
	e.prepared = true
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the L2-normalized TF-IDF vector of text. Text without any
// known term yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range lang.Terms(strings.TrimSpace(text)) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		tfv := float64(count) / float64(total)
		vec[idx] = tfv * e.idf[idx]
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Loader prepares a TF-IDF embedder on the problem texts currently in src.
// Cases added after loading are embedded with the vocabulary known at load time.
func Loader(src domain.CaseLister) embedding.Loader {
	return func(ctx context.Context) (domain.Embedder, error) {
		cases, err := src.ListCases(ctx)
		if err != nil {
			return nil, fmt.Errorf("list corpus: %w", err)
		}
		corpus := make([]string, len(cases))
		for i, c := range cases {
			corpus[i] = c.ProblemText
		}
		e := NewEmbedder()
		if err := e.Prepare(corpus); err != nil {
			return nil, err
		}
		return e, nil
	}
}

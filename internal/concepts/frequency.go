// Package concepts picks the key terms of a case's problem text. They are
// stored with the case so operators can see at a glance what it is about.
package concepts

import (
	"sort"
	"strings"
	"unicode"

	"pqrs/internal/lang"
)

// DefaultMaxConcepts is used when a non-positive maximum is requested.
const DefaultMaxConcepts = 5

// FrequencyExtractor ranks terms by how often they occur, stopwords filtered
// and synonyms folded onto one term.
type FrequencyExtractor struct {
	maxConcepts int
	minLength   int
}

// NewFrequencyExtractor creates an extractor returning at most maxConcepts terms.
func NewFrequencyExtractor(maxConcepts int) *FrequencyExtractor {
	if maxConcepts <= 0 {
		maxConcepts = DefaultMaxConcepts
	}
	return &FrequencyExtractor{maxConcepts: maxConcepts, minLength: 3}
}

// Extract returns the key terms of text, most frequent first. Equal counts
// keep the order in which the terms first appear.
func (e *FrequencyExtractor) Extract(text string) []string {
	type term struct {
		word  string
		count int
		first int
	}
	index := map[string]*term{}
	var terms []*term
	for i, w := range lang.Terms(text) {
		if len([]rune(w)) < e.minLength || lang.IsStopword(w) || isNumber(w) {
			continue
		}
		t, ok := index[w]
		if !ok {
			t = &term{word: w, first: i}
			index[w] = t
			terms = append(terms, t)
		}
		t.count++
	}
	sort.SliceStable(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].first < terms[j].first
	})
	n := e.maxConcepts
	if n > len(terms) {
		n = len(terms)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = terms[i].word
	}
	return out
}

// Join renders the key terms of text the way they are stored in the case
// store: comma separated.
func (e *FrequencyExtractor) Join(text string) string {
	return strings.Join(e.Extract(text), ",")
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

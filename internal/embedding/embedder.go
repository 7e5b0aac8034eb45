// Package embedding holds the lazily loaded text embedder shared by the
// rankers. Concrete models live in the tfidf and openai subpackages.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pqrs/internal/domain"
	"pqrs/internal/metrics"
)

// Loader builds a ready-to-use embedder. It may be slow and may fail.
type Loader func(ctx context.Context) (domain.Embedder, error)

// Lazy defers loading the model until the first Embed or EnsureReady call.
// A loaded model is reused for the lifetime of the Lazy; a failed load leaves
// it unloaded so the next call tries again.
type Lazy struct {
	name    string
	load    Loader
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	inner domain.Embedder
}

// NewLazy wraps load. name is reported before the model is loaded.
func NewLazy(name string, load Loader, logger *slog.Logger, m *metrics.Metrics) *Lazy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{name: name, load: load, logger: logger, metrics: m}
}

// EnsureReady loads the model if it is not loaded yet. Hosts call it at
// warm-up so the first user request does not pay for the load.
func (l *Lazy) EnsureReady(ctx context.Context) error {
	_, err := l.get(ctx)
	return err
}

// Ready reports whether the model has been loaded.
func (l *Lazy) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner != nil
}

func (l *Lazy) get(ctx context.Context) (domain.Embedder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner != nil {
		return l.inner, nil
	}
	l.logger.Info("loading embedding model", "embedder", l.name)
	start := time.Now()
	inner, err := l.load(ctx)
	if err != nil {
		l.logger.Error("embedding model failed to load", "embedder", l.name, "error", err)
		return nil, fmt.Errorf("embedding: load model %s: %w", l.name, err)
	}
	elapsed := time.Since(start)
	l.metrics.ObserveEmbedderLoad(elapsed)
	l.logger.Info("embedding model loaded", "embedder", l.name, "version", inner.Version(), "took", elapsed)
	l.inner = inner
	return inner, nil
}

// Name returns the configured embedder name without loading the model.
func (l *Lazy) Name() string { return l.name }

// Version returns the loaded model's version, or "" before loading.
func (l *Lazy) Version() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner == nil {
		return ""
	}
	return l.inner.Version()
}

// Dimension returns the loaded model's dimension, or 0 before loading.
func (l *Lazy) Dimension() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inner == nil {
		return 0
	}
	return l.inner.Dimension()
}

// Embed loads the model on first use and embeds text.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float64, error) {
	inner, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return inner.Embed(ctx, text)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pqrs/internal/casestore"
	"pqrs/internal/config"
	"pqrs/internal/embedcache"
	"pqrs/internal/embedding"
	"pqrs/internal/embedding/openai"
	"pqrs/internal/embedding/tfidf"
	"pqrs/internal/metrics"
	"pqrs/internal/ranking"
	"pqrs/internal/service"
)

// app holds the assembled components for one command run.
type app struct {
	cfg      *config.AppConfig
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *casestore.Store
	cache    embedcache.Cache
	resolver *service.Resolver
}

// newApp opens the store and builds the resolver. seed fills an empty store
// with the configured bootstrap cases; commands that bring their own cases
// pass false.
func newApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, seed bool) (*app, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a := &app{cfg: cfg, logger: logger, registry: reg, metrics: metrics.New(reg)}

	store, err := casestore.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	if seed {
		if _, err := casestore.Bootstrap(ctx, store, casestore.Options{ImportPath: cfg.Bootstrap.ImportPath, Logger: logger}); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("bootstrap case store: %w", err)
		}
	}

	ranker, err := a.buildRanker(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.resolver = service.NewResolver(store, ranker, service.Options{
		Threshold: cfg.Retrieval.Threshold,
		Logger:    logger,
		Metrics:   a.metrics,
	})
	return a, nil
}

func (a *app) buildRanker(ctx context.Context) (ranking.Ranker, error) {
	var load embedding.Loader
	switch a.cfg.Embedder.Type {
	case "lexical", "":
		return ranking.NewLexical(a.metrics), nil
	case "tfidf":
		load = tfidf.Loader(a.store)
	case "openai":
		oc := a.cfg.Embedder.OpenAI
		if oc == nil {
			return nil, errors.New("openai embedder config missing")
		}
		load = openai.Loader(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			MaxRetries: oc.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", a.cfg.Embedder.Type)
	}

	cache, err := a.buildCache(ctx)
	if err != nil {
		return nil, err
	}
	a.cache = cache
	lazy := embedding.NewLazy(a.cfg.Embedder.Type, load, a.logger, a.metrics)
	return ranking.NewVector(lazy, cache, ranking.VectorOptions{
		QueryCacheTTL: time.Duration(a.cfg.Retrieval.QueryCacheTTLSecs) * time.Second,
		Logger:        a.logger,
		Metrics:       a.metrics,
	}), nil
}

func (a *app) buildCache(ctx context.Context) (embedcache.Cache, error) {
	ec := a.cfg.EmbeddingCache
	switch ec.Type {
	case "file", "":
		return embedcache.OpenFile(ec.Path, a.logger), nil
	case "memory":
		return embedcache.NewMemory(), nil
	case "sqlite":
		return embedcache.NewSQL(ctx, a.store.DB())
	case "qdrant":
		if ec.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		return embedcache.NewQdrant(embedcache.QdrantConfig{
			URL:        ec.Qdrant.URL,
			APIKey:     ec.Qdrant.APIKey,
			Collection: ec.Qdrant.Collection,
			Timeout:    time.Duration(ec.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding cache: %s", ec.Type)
	}
}

func (a *app) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// serveMetrics exposes the registry on addr until the returned stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

package embedcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantCache is a minimal REST client that keeps case embeddings in a
// Qdrant collection. Point IDs are case IDs; model and content hash travel
// in the payload. Qdrant normalizes vectors stored under cosine distance,
// which leaves cosine scores unchanged.
type QdrantCache struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client

	mu    sync.Mutex
	ready bool
}

var errNotFound = errors.New("qdrant: not found")

// NewQdrant creates a Qdrant-backed cache. The collection is created on the
// first Put if it does not exist.
func NewQdrant(cfg QdrantConfig) *QdrantCache {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "pqrs_cases"
	}
	return &QdrantCache{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

type qdrantPoint struct {
	ID      int64          `json:"id"`
	Vector  []float64      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Get fetches the point for caseID. A missing collection or point is a miss.
func (c *QdrantCache) Get(ctx context.Context, caseID int64) (Entry, bool, error) {
	req := map[string]any{
		"ids":          []int64{caseID},
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []qdrantPoint `json:"result"`
	}
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points", c.url, c.collection), req, &resp)
	if errors.Is(err, errNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if len(resp.Result) == 0 {
		return Entry{}, false, nil
	}
	p := resp.Result[0]
	e := Entry{Vector: p.Vector}
	if v, ok := p.Payload["model"].(string); ok {
		e.Model = v
	}
	if v, ok := p.Payload["content_hash"].(string); ok {
		e.ContentHash = v
	}
	return e, true, nil
}

// Put upserts the point for caseID and waits for the write to apply.
func (c *QdrantCache) Put(ctx context.Context, caseID int64, e Entry) error {
	if len(e.Vector) == 0 {
		return errors.New("qdrant: empty vector")
	}
	if err := c.ensureCollection(ctx, len(e.Vector)); err != nil {
		return err
	}
	body := map[string]any{
		"points": []qdrantPoint{{
			ID:     caseID,
			Vector: e.Vector,
			Payload: map[string]any{
				"model":        e.Model,
				"content_hash": e.ContentHash,
			},
		}},
	}
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection), body, nil)
}

// Len returns the exact point count, or 0 if it cannot be read.
func (c *QdrantCache) Len() int {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := c.doJSON(context.Background(), http.MethodPost, fmt.Sprintf("%s/collections/%s/points/count", c.url, c.collection), map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0
	}
	return resp.Result.Count
}

// Close releases idle connections.
func (c *QdrantCache) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *QdrantCache) ensureCollection(ctx context.Context, dimension int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	collURL := fmt.Sprintf("%s/collections/%s", c.url, c.collection)
	err := c.doJSON(ctx, http.MethodGet, collURL, nil, nil)
	if errors.Is(err, errNotFound) {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		err = c.doJSON(ctx, http.MethodPut, collURL, body, nil)
	}
	if err != nil {
		return err
	}
	c.ready = true
	return nil
}

func (c *QdrantCache) doJSON(ctx context.Context, method, url string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return fmt.Errorf("qdrant: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

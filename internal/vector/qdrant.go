// Package vector provides the Qdrant-backed vector similarity client.
package vector

import (
	"context"
	"fmt"

	qd "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/baheth/baheth/internal/search"
)

// Config holds Qdrant connection settings.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// Client queries Qdrant collections over gRPC.
type Client struct {
	client *qd.Client
}

var _ search.VectorSearcher = (*Client)(nil)

// New connects to Qdrant.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qd.NewClient(&qd.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &Client{client: client}, nil
}

// Search runs a similarity query against one collection. A missing collection
// maps to search.ErrIndexNotReady so the engine can fail the request with a
// specific answer instead of empty results.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int, filter map[string]any, scoreThreshold float64) ([]search.VectorHit, error) {
	req := &qd.QueryPoints{
		CollectionName: collection,
		Query:          qd.NewQuery(vector...),
		WithPayload:    qd.NewWithPayload(true),
	}
	if limit > 0 {
		req.Limit = qd.PtrOf(uint64(limit))
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = qd.PtrOf(float32(scoreThreshold))
	}
	if f := buildFilter(filter); f != nil {
		req.Filter = f
	}

	points, err := c.client.Query(ctx, req)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: collection %q", search.ErrIndexNotReady, collection)
		}
		return nil, fmt.Errorf("qdrant query %q: %w", collection, err)
	}

	hits := make([]search.VectorHit, 0, len(points))
	for _, point := range points {
		hits = append(hits, search.VectorHit{
			Score:   float64(point.Score),
			Payload: extractPayload(point.Payload),
		})
	}
	return hits, nil
}

// CollectionReady reports whether a collection exists.
func (c *Client) CollectionReady(ctx context.Context, collection string) (bool, error) {
	exists, err := c.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("check collection %q: %w", collection, err)
	}
	return exists, nil
}

// Health pings the Qdrant server.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func buildFilter(filter map[string]any) *qd.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*qd.Condition, 0, len(filter))
	for key, value := range filter {
		switch v := value.(type) {
		case int:
			conditions = append(conditions, qd.NewMatchInt(key, int64(v)))
		case int64:
			conditions = append(conditions, qd.NewMatchInt(key, v))
		case string:
			conditions = append(conditions, qd.NewMatch(key, v))
		case bool:
			conditions = append(conditions, qd.NewMatchBool(key, v))
		default:
			conditions = append(conditions, qd.NewMatch(key, fmt.Sprintf("%v", v)))
		}
	}
	return &qd.Filter{Must: conditions}
}

func extractPayload(payload map[string]*qd.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch {
		case value.GetStringValue() != "":
			out[key] = value.GetStringValue()
		case value.GetIntegerValue() != 0:
			out[key] = value.GetIntegerValue()
		case value.GetDoubleValue() != 0:
			out[key] = value.GetDoubleValue()
		case value.GetBoolValue():
			out[key] = value.GetBoolValue()
		}
	}
	return out
}

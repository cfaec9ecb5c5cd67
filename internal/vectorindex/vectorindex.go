// Package vectorindex wraps the Qdrant gRPC client behind a narrow
// interface so Storm Shield and the enrichment aggregator depend on an
// interface, not the SDK directly.
package vectorindex

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/codeready-toolchain/aegis/internal/config"
)

// Match is one scored hit from a similarity query.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Index is the narrow surface Storm Shield and enrichment depend on.
type Index interface {
	Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]string) error
	Query(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error)
}

// Client is the Qdrant-backed Index implementation.
type Client struct {
	conn *qdrant.Client
}

// New dials the configured Qdrant instance.
func New(cfg config.VectorConfig) (*Client, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host:   hostOnly(cfg.Addr),
		Port:   portOnly(cfg.Addr),
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &Client{conn: c}, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Upsert inserts or replaces a single point in the given collection.
func (c *Client) Upsert(ctx context.Context, collection, id string, vector []float32, payload map[string]string) error {
	fields := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		fields[k] = qdrant.NewValueString(v)
	}

	_, err := c.conn.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: fields,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point into %s: %w", collection, err)
	}
	return nil
}

// Query runs a nearest-neighbor search and returns the top `limit` matches.
func (c *Client) Query(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error) {
	limit64 := uint64(limit)
	resp, err := c.conn.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	matches := make([]Match, 0, len(resp))
	for _, p := range resp {
		payload := make(map[string]string, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = v.GetStringValue()
		}
		matches = append(matches, Match{
			ID:      p.Id.GetUuid(),
			Score:   p.Score,
			Payload: payload,
		})
	}
	return matches, nil
}

const defaultQdrantPort = 6334

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func portOnly(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultQdrantPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return defaultQdrantPort
	}
	return port
}

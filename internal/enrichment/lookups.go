package enrichment

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/aegis/internal/vectorindex"
)

// EmbeddingClient turns free text into a vector, shared with the Storm
// Shield embedding dependency.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorKBSearcher implements KBSearcher over the knowledge-base collection.
type VectorKBSearcher struct {
	index      vectorindex.Index
	embed      EmbeddingClient
	collection string
}

// NewVectorKBSearcher builds a KB searcher backed by the vector index.
func NewVectorKBSearcher(index vectorindex.Index, embed EmbeddingClient, collection string) *VectorKBSearcher {
	return &VectorKBSearcher{index: index, embed: embed, collection: collection}
}

func (v *VectorKBSearcher) Search(ctx context.Context, query string) ([]string, error) {
	vec, err := v.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed kb query: %w", err)
	}
	matches, err := v.index.Query(ctx, v.collection, vec, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to query kb collection: %w", err)
	}
	articles := make([]string, 0, len(matches))
	for _, m := range matches {
		if title, ok := m.Payload["title"]; ok {
			articles = append(articles, title)
		}
	}
	return articles, nil
}

// TicketingUserLookup resolves requester profiles from the ticketing system.
type TicketingUserLookup struct {
	client TicketingClient
}

// TicketingClient is the subset of the ITSM API enrichment needs.
type TicketingClient interface {
	LookupUser(ctx context.Context, callerID string) (string, error)
	LookupCI(ctx context.Context, cmdbCI string) (string, error)
}

// NewTicketingUserLookup builds a UserLookup over a TicketingClient.
func NewTicketingUserLookup(client TicketingClient) *TicketingUserLookup {
	return &TicketingUserLookup{client: client}
}

func (t *TicketingUserLookup) Lookup(ctx context.Context, callerID string) (string, error) {
	if callerID == "" {
		return "", fmt.Errorf("no caller_id on incident")
	}
	return t.client.LookupUser(ctx, callerID)
}

// TicketingCILookup resolves the affected configuration item.
type TicketingCILookup struct {
	client TicketingClient
}

// NewTicketingCILookup builds a CILookup over a TicketingClient.
func NewTicketingCILookup(client TicketingClient) *TicketingCILookup {
	return &TicketingCILookup{client: client}
}

func (t *TicketingCILookup) Lookup(ctx context.Context, cmdbCI string) (string, error) {
	if cmdbCI == "" {
		return "", fmt.Errorf("no cmdb_ci on incident")
	}
	return t.client.LookupCI(ctx, cmdbCI)
}

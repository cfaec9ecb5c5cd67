// Package ticketing is a thin HTTP client over the upstream ITSM system,
// used both by enrichment (user/CI lookups) and by the executor (ticket
// status updates).
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/domain"
)

// Client talks to the configured ITSM backend.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a Client. Returns nil if BaseURL is unset; every method is
// safe on a nil Client and returns a "not configured" error, matching the
// fail-open posture the rest of the ambient stack uses for optional
// externals.
func New(cfg config.TicketingConfig) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type userProfile struct {
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

// LookupUser resolves a requester profile summary.
func (c *Client) LookupUser(ctx context.Context, username string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("ticketing client not configured")
	}
	var profile userProfile
	if err := c.get(ctx, "/users/"+username, &profile); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)", profile.DisplayName, profile.Department), nil
}

type configItem struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LookupCI resolves a configuration item by its cmdb_ci identifier.
func (c *Client) LookupCI(ctx context.Context, cmdbCI string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("ticketing client not configured")
	}
	var ci configItem
	if err := c.get(ctx, "/cmdb/"+cmdbCI, &ci); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)", ci.Name, ci.Type), nil
}

type closedTicket struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ListRecentlyClosed returns tickets closed within the given window, for
// the scheduled back-sync job.
func (c *Client) ListRecentlyClosed(ctx context.Context, since time.Time) ([]closedTicket, error) {
	if c == nil {
		return nil, fmt.Errorf("ticketing client not configured")
	}
	var tickets []closedTicket
	path := fmt.Sprintf("/incidents?status=closed&since=%s", since.Format(time.RFC3339))
	if err := c.get(ctx, path, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

type kbArticle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ListRecentKBArticles returns KB articles updated within the given
// window, for the scheduled back-sync job.
func (c *Client) ListRecentKBArticles(ctx context.Context, since time.Time) ([]kbArticle, error) {
	if c == nil {
		return nil, fmt.Errorf("ticketing client not configured")
	}
	var articles []kbArticle
	path := fmt.Sprintf("/kb?since=%s", since.Format(time.RFC3339))
	if err := c.get(ctx, path, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

// UpdateTicket patches the upstream ticket with the triage outcome.
func (c *Client) UpdateTicket(ctx context.Context, incident string, classification domain.Classification, status string) error {
	if c == nil {
		return fmt.Errorf("ticketing client not configured")
	}
	body := map[string]any{
		"status":           status,
		"category":         classification.Category,
		"subcategory":      classification.Subcategory,
		"priority":         classification.Priority,
		"assignment_group": classification.AssignmentGroup,
		"resolution_notes": classification.ResolutionNotes,
		"action":           classification.Action,
	}
	return c.patch(ctx, "/incidents/"+incident, body)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ticketing GET %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ticketing GET %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) patch(ctx context.Context, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal ticketing patch body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ticketing PATCH %s failed: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("ticketing PATCH %s returned status %d", path, resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

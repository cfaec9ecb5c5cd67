package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// adaptiveCard is the minimal subset of the Teams "MessageCard" webhook
// payload AEGIS needs. There is no ecosystem SDK for this wire format, so
// the POST is a thin stdlib net/http client.
type adaptiveCard struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor"`
	Summary    string         `json:"summary"`
	Sections   []cardSection  `json:"sections"`
}

type cardSection struct {
	ActivityTitle string     `json:"activityTitle"`
	Facts         []cardFact `json:"facts"`
	Text          string     `json:"text,omitempty"`
}

type cardFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TeamsNotifier posts adaptive cards to a Teams incoming webhook. Nil-safe:
// every method is a no-op when the notifier is nil.
type TeamsNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTeamsNotifier returns nil if webhookURL is empty.
func NewTeamsNotifier(webhookURL string) *TeamsNotifier {
	if webhookURL == "" {
		return nil
	}
	return &TeamsNotifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     slog.Default().With("component", "teams-notifier"),
	}
}

// Notify posts an adaptive card summarizing the pipeline outcome.
// Fail-open: errors are logged, never returned.
func (n *TeamsNotifier) Notify(ctx context.Context, note Notification) {
	if n == nil {
		return
	}

	color := "28A745"
	title := "Incident triaged"
	if note.Action == "auto_heal" {
		title = "Incident triaged and remediated"
	}

	card := adaptiveCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: color,
		Summary:    title,
		Sections: []cardSection{
			{
				ActivityTitle: fmt.Sprintf("%s — triage %s", title, note.TriageID),
				Facts: []cardFact{
					{Name: "Triage ID", Value: note.TriageID},
					{Name: "Category", Value: note.Category},
					{Name: "Priority", Value: note.Priority},
					{Name: "Assignment group", Value: note.AssignmentGroup},
					{Name: "Confidence", Value: fmt.Sprintf("%.0f%%", note.Confidence*100)},
				},
				Text: fmt.Sprintf("[👍 Good call](%s) · [👎 Needs review](%s)",
					feedbackLink(note.TriageID, true), feedbackLink(note.TriageID, false)),
			},
		},
	}

	if err := n.post(ctx, card); err != nil {
		n.logger.Error("teams notification failed", "triage_id", note.TriageID, "error", err)
	}
}

func (n *TeamsNotifier) post(ctx context.Context, card adaptiveCard) error {
	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal adaptive card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build teams webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("teams webhook post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("teams webhook returned status %d", resp.StatusCode)
	}
	return nil
}

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"
)

// SlackNotifier mirrors pipeline outcomes into an ops Slack channel as a
// single-section Block Kit message.
type SlackNotifier struct {
	api     *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier returns nil if token or channel is empty, so a
// nil *SlackNotifier can be passed around safely and no-ops everywhere.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		api:     goslack.New(token),
		channel: channel,
		logger:  slog.Default().With("component", "slack-notifier"),
	}
}

// Notify posts a single Block Kit message summarizing the outcome.
// Fail-open: errors are logged, never returned.
func (n *SlackNotifier) Notify(ctx context.Context, note Notification) {
	if n == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	blocks := buildOutcomeBlocks(note)
	_, _, err := n.api.PostMessageContext(ctx, n.channel, goslack.MsgOptionBlocks(blocks...))
	if err != nil {
		n.logger.Error("slack notification failed", "triage_id", note.TriageID, "error", err)
	}
}

func buildOutcomeBlocks(note Notification) []goslack.Block {
	emoji := ":mag:"
	if note.Action == "auto_heal" {
		emoji = ":white_check_mark:"
	}

	text := fmt.Sprintf("%s *%s* triaged as *%s* (priority %s, %s, %.0f%% confidence)\n<%s|👍 Good call>  ·  <%s|👎 Needs review>",
		emoji, note.TriageID, note.Category, note.Priority, note.AssignmentGroup, note.Confidence*100,
		feedbackLink(note.TriageID, true), feedbackLink(note.TriageID, false))
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

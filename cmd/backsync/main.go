// Command aegis-backsync runs the weekly scheduled back-sync job: ingesting
// recently closed tickets and newly published knowledge-base articles into
// the vector index so Storm Shield and enrichment stay current.
package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/aegis/internal/classifier"
	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/ticketing"
	"github.com/codeready-toolchain/aegis/internal/vectorindex"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded, continuing with existing environment", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg.LogStartup()

	vecIndex, err := vectorindex.New(cfg.Vector)
	if err != nil {
		log.Fatalf("failed to connect to vector index: %v", err)
	}
	defer vecIndex.Close()

	embedClient := classifier.NewEmbeddingClient(cfg.LLM)
	ticketingClient := ticketing.New(cfg.Ticketing)

	ctx := context.Background()
	for {
		wait := nextSundayTwoAM(time.Now())
		slog.Info("back-sync sleeping until next scheduled run", "wake_at", time.Now().Add(wait))
		time.Sleep(wait)

		if err := runBackSync(ctx, ticketingClient, vecIndex, embedClient, cfg); err != nil {
			slog.Error("back-sync run failed", "error", err)
		}
	}
}

// nextSundayTwoAM returns the duration until the next Sunday 02:00 UTC.
func nextSundayTwoAM(now time.Time) time.Duration {
	now = now.UTC()
	daysUntilSunday := (7 - int(now.Weekday())) % 7
	next := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, time.UTC).AddDate(0, 0, daysUntilSunday)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next.Sub(now)
}

func runBackSync(ctx context.Context, tc *ticketing.Client, idx *vectorindex.Client, embed *classifier.EmbeddingClient, cfg *config.Config) error {
	since := time.Now().AddDate(0, 0, -7)

	tickets, err := tc.ListRecentlyClosed(ctx, since)
	if err != nil {
		slog.Warn("failed to list recently closed tickets, skipping this round", "error", err)
	}
	for _, t := range tickets {
		vec, err := embed.Embed(ctx, t.Title+" "+t.Description)
		if err != nil {
			slog.Warn("failed to embed closed ticket", "ticket_id", t.ID, "error", err)
			continue
		}
		if err := idx.Upsert(ctx, cfg.Vector.IncidentsCollection, t.ID, vec, map[string]string{"title": t.Title}); err != nil {
			slog.Warn("failed to upsert closed ticket", "ticket_id", t.ID, "error", err)
		}
	}

	articles, err := tc.ListRecentKBArticles(ctx, since)
	if err != nil {
		slog.Warn("failed to list recent kb articles, skipping this round", "error", err)
	}
	for _, a := range articles {
		vec, err := embed.Embed(ctx, a.Title+" "+a.Body)
		if err != nil {
			slog.Warn("failed to embed kb article", "article_id", a.ID, "error", err)
			continue
		}
		if err := idx.Upsert(ctx, cfg.Vector.KBCollection, a.ID, vec, map[string]string{"title": a.Title}); err != nil {
			slog.Warn("failed to upsert kb article", "article_id", a.ID, "error", err)
		}
	}

	slog.Info("back-sync run complete", "tickets_synced", len(tickets), "kb_articles_synced", len(articles))
	return nil
}

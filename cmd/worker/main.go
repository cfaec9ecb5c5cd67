// Command aegis-worker drains the triage queue: reserving jobs, running
// them through the pipeline orchestrator, and acking or retrying them.
// It runs as a process dedicated and separate from the HTTP API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/aegis/internal/chat"
	"github.com/codeready-toolchain/aegis/internal/classifier"
	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/enrichment"
	"github.com/codeready-toolchain/aegis/internal/executor"
	"github.com/codeready-toolchain/aegis/internal/governance"
	"github.com/codeready-toolchain/aegis/internal/pipeline"
	"github.com/codeready-toolchain/aegis/internal/queue"
	"github.com/codeready-toolchain/aegis/internal/redactor"
	"github.com/codeready-toolchain/aegis/internal/remediation"
	"github.com/codeready-toolchain/aegis/internal/store"
	"github.com/codeready-toolchain/aegis/internal/stormshield"
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

	s := store.New(cfg.Redis)
	defer s.Close()

	vecIndex, err := vectorindex.New(cfg.Vector)
	if err != nil {
		log.Fatalf("failed to connect to vector index: %v", err)
	}
	defer vecIndex.Close()

	embedClient := classifier.NewEmbeddingClient(cfg.LLM)
	shield := stormshield.New(vecIndex, embedClient, cfg.StormShield)

	ticketingClient := ticketing.New(cfg.Ticketing)
	kbSearcher := enrichment.NewVectorKBSearcher(vecIndex, embedClient, cfg.Vector.KBCollection)
	userLookup := enrichment.NewTicketingUserLookup(ticketingClient)
	ciLookup := enrichment.NewTicketingCILookup(ticketingClient)
	enricher := enrichment.New(kbSearcher, userLookup, ciLookup, cfg.Enrichment)

	classifierClient := classifier.NewClient(cfg.LLM)

	gov := governance.New(s)
	dispatcher := remediation.New(cfg.Executor)
	teamsNotifier := chat.NewTeamsNotifier(cfg.Chat.TeamsWebhookURL)
	slackNotifier := chat.NewSlackNotifier(cfg.Chat.SlackToken, cfg.Chat.SlackChannel)
	exec := executor.New(gov, dispatcher, ticketingClient, teamsNotifier, slackNotifier)

	redactorSvc := redactor.NewService(nil)

	orchestrator := pipeline.New(redactorSvc, shield, enricher, classifierClient, exec, s)

	q := queue.New(s, cfg.Queue)
	podID := os.Getenv("POD_ID")
	if podID == "" {
		podID = "aegis-worker"
	}
	pool := queue.NewPool(podID, q, orchestrator, cfg.Queue.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool.Start(ctx)
	slog.Info("aegis worker pool started", "pod_id", podID, "worker_count", cfg.Queue.WorkerCount)

	<-ctx.Done()
	slog.Info("shutdown signal received, draining in-flight jobs")
	pool.Stop()
}

// Command aegis runs the HTTP API: ITSM webhook intake, governance and
// approval routes, admin login, status, and audit replay. The worker pool
// that actually drains the queue runs in the separate aegis-worker binary.
package main

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/aegis/internal/auth"
	"github.com/codeready-toolchain/aegis/internal/config"
	"github.com/codeready-toolchain/aegis/internal/executor"
	"github.com/codeready-toolchain/aegis/internal/governance"
	"github.com/codeready-toolchain/aegis/internal/httpapi"
	"github.com/codeready-toolchain/aegis/internal/queue"
	"github.com/codeready-toolchain/aegis/internal/store"
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

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := store.New(cfg.Redis)
	defer s.Close()

	gov := governance.New(s)
	q := queue.New(s, cfg.Queue)
	issuer := auth.New(cfg.Auth)

	knownActions := make([]string, 0, len(executor.Registry))
	for tool := range executor.Registry {
		knownActions = append(knownActions, tool)
	}

	server := httpapi.New(q, gov, s, issuer, knownActions)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	slog.Info("aegis API listening", "port", port)
	if err := http.ListenAndServe(":"+port, server.Router()); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

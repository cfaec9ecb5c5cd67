// Package config loads AEGIS's entirely environment-variable-driven
// configuration into a typed registry that can report a redacted
// summary of itself at startup via Stats().
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// QueueConfig controls the worker pool and queue lane behavior.
type QueueConfig struct {
	WorkerCount             int           `env:"QUEUE_WORKER_COUNT" envDefault:"4"`
	ReserveTimeout          time.Duration `env:"QUEUE_RESERVE_TIMEOUT" envDefault:"5s"`
	MaxRetries              int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	OrphanThreshold         time.Duration `env:"QUEUE_ORPHAN_THRESHOLD" envDefault:"5m"`
	OrphanDetectionInterval time.Duration `env:"QUEUE_ORPHAN_SCAN_INTERVAL" envDefault:"1m"`
}

// StormShieldConfig controls near-duplicate detection.
type StormShieldConfig struct {
	Enabled            bool          `env:"STORM_SHIELD_ENABLED" envDefault:"true"`
	SimilarityThreshold float64      `env:"STORM_SHIELD_THRESHOLD" envDefault:"0.92"`
	Window             time.Duration `env:"STORM_SHIELD_WINDOW" envDefault:"15m"`
}

// EnrichmentConfig controls the fan-out stage.
type EnrichmentConfig struct {
	StageTimeout  time.Duration `env:"ENRICHMENT_STAGE_TIMEOUT" envDefault:"10s"`
	LookupTimeout time.Duration `env:"ENRICHMENT_LOOKUP_TIMEOUT" envDefault:"3s"`
}

// LLMConfig selects and configures the classifier backend.
type LLMConfig struct {
	Provider       string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicKey   string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel string        `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5"`
	OpenAIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIModel    string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	Timeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"20s"`
}

// VectorConfig points at the Qdrant collections backing Storm Shield and
// enrichment lookups.
type VectorConfig struct {
	Addr             string `env:"QDRANT_ADDR" envDefault:"localhost:6334"`
	APIKey           string `env:"QDRANT_API_KEY"`
	IncidentsCollection string `env:"QDRANT_COLLECTION_INCIDENTS" envDefault:"aegis_incidents"`
	KBCollection     string `env:"QDRANT_COLLECTION_KB" envDefault:"aegis_kb"`
	SOPCollection    string `env:"QDRANT_COLLECTION_SOP" envDefault:"aegis_sop"`
}

// RedisConfig points at the store backing queue lanes, governance keys, and
// results.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// ChatConfig configures the Teams adaptive-card webhook and the optional
// Slack mirror.
type ChatConfig struct {
	TeamsWebhookURL string `env:"TEAMS_WEBHOOK_URL"`
	SlackToken      string `env:"SLACK_BOT_TOKEN"`
	SlackChannel    string `env:"SLACK_CHANNEL"`
}

// TicketingConfig points at the upstream ITSM system.
type TicketingConfig struct {
	BaseURL string `env:"TICKETING_BASE_URL"`
	APIKey  string `env:"TICKETING_API_KEY"`
}

// ExecutorConfig controls remediation dispatch.
type ExecutorConfig struct {
	RemediationServiceURL string `env:"REMEDIATION_SERVICE_URL"`
}

// AuthConfig configures the admin login and JWT verification.
type AuthConfig struct {
	AdminUsername string        `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string        `env:"ADMIN_PASSWORD"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"JWT_TOKEN_TTL" envDefault:"12h"`
}

// Config is the umbrella configuration, assembled once at process startup.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	Queue       QueueConfig
	StormShield StormShieldConfig
	Enrichment  EnrichmentConfig
	LLM         LLMConfig
	Vector      VectorConfig
	Redis       RedisConfig
	Chat        ChatConfig
	Ticketing   TicketingConfig
	Executor    ExecutorConfig
	Auth        AuthConfig
}

// Load parses the environment into a Config, applying defaults for anything
// unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment configuration: %w", err)
	}
	return cfg, nil
}

// Stats summarizes the loaded configuration for startup logging, without
// leaking secrets.
func (c *Config) Stats() []any {
	return []any{
		"environment", c.Environment,
		"port", c.Port,
		"queue_workers", c.Queue.WorkerCount,
		"llm_provider", c.LLM.Provider,
		"storm_shield_enabled", c.StormShield.Enabled,
		"teams_configured", c.Chat.TeamsWebhookURL != "",
		"slack_configured", c.Chat.SlackToken != "" && c.Chat.SlackChannel != "",
	}
}

// LogStartup writes a single structured summary line of the effective
// configuration.
func (c *Config) LogStartup() {
	slog.Info("Configuration loaded", c.Stats()...)
}

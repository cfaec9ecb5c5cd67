// Package httpapi implements the HTTP surface: the ITSM webhook intake,
// governance and approval routes, admin login, status, and audit replay,
// built on gin.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/codeready-toolchain/aegis/internal/auth"
	"github.com/codeready-toolchain/aegis/internal/domain"
	"github.com/codeready-toolchain/aegis/internal/governance"
	"github.com/codeready-toolchain/aegis/internal/store"
)

// Enqueuer is the narrow surface the webhook handler needs from the queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.TriageJob) error
}

// Server wires every AEGIS HTTP route onto a gin.Engine.
type Server struct {
	router   *gin.Engine
	queue    Enqueuer
	gov      *governance.Store
	store    *store.Store
	issuer   *auth.Issuer
	validate *validator.Validate
	logger   *slog.Logger
}

// New builds a Server.
func New(q Enqueuer, gov *governance.Store, s *store.Store, issuer *auth.Issuer, knownActions []string) *Server {
	srv := &Server{
		router:   gin.New(),
		queue:    q,
		gov:      gov,
		store:    s,
		issuer:   issuer,
		validate: validator.New(),
		logger:   slog.Default().With("component", "httpapi"),
	}
	srv.router.Use(gin.Recovery())
	srv.registerRoutes()
	return srv
}

// Router exposes the underlying gin.Engine for the HTTP server to serve.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.POST("/webhook/incident", s.handleWebhook)
	s.router.POST("/webhook/servicenow", s.handleServiceNowWebhook)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/triage/:triage_id", s.handleGetTriage)
	s.router.GET("/audit/incident/:incident", s.handleIncidentAudit)
	s.router.GET("/feedback/stats", s.handleFeedbackStats)
	s.router.POST("/feedback/:triage_id", s.handleFeedback)
	s.router.POST("/auth/login", s.handleLogin)

	admin := s.router.Group("/")
	admin.Use(requireAdmin(s.issuer))
	admin.POST("/governance/killswitch", s.handleSetKillSwitch)
	admin.POST("/governance/mode", s.handleSetMode)
	admin.GET("/governance/thresholds", s.handleGetThresholds)
	admin.POST("/governance/thresholds", s.handleSetThresholds)
	admin.POST("/approve/:incident", s.handleApprove)
	admin.POST("/reject/:incident", s.handleReject)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		c.JSON(503, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) handleWebhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	s.enqueueIncident(c, req.toIncident())
}

func (s *Server) handleServiceNowWebhook(c *gin.Context) {
	var req ServiceNowWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	s.enqueueIncident(c, req.toIncident())
}

func (s *Server) enqueueIncident(c *gin.Context, incident domain.Incident) {
	enabled, err := s.gov.IsEnabled(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if !enabled {
		c.JSON(503, gin.H{"error": "triage disabled by governance kill switch"})
		return
	}

	job := domain.TriageJob{
		TriageID:   uuid.NewString(),
		Incident:   incident,
		ReceivedAt: time.Now(),
	}
	if err := s.queue.Enqueue(c.Request.Context(), job); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(202, gin.H{"triage_id": job.TriageID})
}

func (s *Server) handleStatus(c *gin.Context) {
	gov, err := s.gov.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"governance": gov})
}

// handleGetTriage fetches the persisted terminal PipelineState for a job,
// 404ing if it hasn't been processed yet or has aged out of the result cache.
func (s *Server) handleGetTriage(c *gin.Context) {
	triageID := c.Param("triage_id")
	var state domain.PipelineState
	if err := s.store.GetJSON(c.Request.Context(), store.KeyTriageResult(triageID), &state); err != nil {
		if errors.Is(err, goredis.Nil) {
			c.JSON(404, gin.H{"error": "triage result not found"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(200, state)
}

func (s *Server) handleIncidentAudit(c *gin.Context) {
	incident := c.Param("incident")
	entries, err := s.store.ListRange(c.Request.Context(), store.KeyIncidentAudit(incident), 200)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"incident": incident, "entries": entries})
}

func (s *Server) handleFeedback(c *gin.Context) {
	triageID := c.Param("triage_id")
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}

	var prior domain.PipelineState
	_ = s.store.GetJSON(c.Request.Context(), store.KeyTriageResult(triageID), &prior)

	record := domain.FeedbackRecord{
		TriageID:  triageID,
		ThumbsUp:  req.ThumbsUp,
		Reviewer:  req.Reviewer,
		Timestamp: time.Now(),
	}
	if prior.Classification != nil {
		record.Classification = prior.Classification.Category
		record.AssignmentGroup = prior.Classification.AssignmentGroup
		record.Confidence = prior.Classification.Confidence
	}
	if err := s.store.SetJSON(c.Request.Context(), store.KeyFeedback(triageID), record, 90*24*time.Hour); err != nil {
		respondError(c, err)
		return
	}

	counterKey := store.KeyFeedbackThumbsDown()
	if req.ThumbsUp {
		counterKey = store.KeyFeedbackThumbsUp()
	}
	if err := s.store.Incr(c.Request.Context(), counterKey); err != nil {
		s.logger.Warn("failed to increment feedback counter", "error", err)
	}

	c.JSON(201, gin.H{"status": "recorded"})
}

func (s *Server) handleFeedbackStats(c *gin.Context) {
	up, err := s.store.Counter(c.Request.Context(), store.KeyFeedbackThumbsUp())
	if err != nil {
		respondError(c, err)
		return
	}
	down, err := s.store.Counter(c.Request.Context(), store.KeyFeedbackThumbsDown())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"thumbs_up": up, "thumbs_down": down, "total": up + down})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	token, err := s.issuer.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(401, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(200, gin.H{"token": token})
}

func (s *Server) handleSetKillSwitch(c *gin.Context) {
	var req KillSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.gov.SetEnabled(c.Request.Context(), req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"enabled": req.Enabled})
}

func (s *Server) handleSetMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.gov.SetMode(c.Request.Context(), domain.Mode(req.Mode)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"mode": req.Mode})
}

func (s *Server) handleGetThresholds(c *gin.Context) {
	thresholds, err := s.gov.Thresholds(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, thresholds)
}

func (s *Server) handleSetThresholds(c *gin.Context) {
	var req ThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	for name, value := range map[string]int{"assign": req.Assign, "categorize": req.Categorize, "remediate": req.Remediate} {
		if value == 0 {
			continue
		}
		if err := s.gov.SetThreshold(c.Request.Context(), name, value); err != nil {
			respondError(c, err)
			return
		}
	}
	thresholds, err := s.gov.Thresholds(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, thresholds)
}

func (s *Server) handleApprove(c *gin.Context) {
	s.recordApproval(c, "approved")
}

func (s *Server) handleReject(c *gin.Context) {
	s.recordApproval(c, "rejected")
}

func (s *Server) recordApproval(c *gin.Context, decision string) {
	incident := c.Param("incident")
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(c, &ValidationError{Message: err.Error()})
		return
	}

	approval := domain.Approval{
		Incident:  incident,
		Decision:  decision,
		Approver:  req.Approver,
		Reason:    req.Reason,
		Timestamp: time.Now(),
	}
	if err := s.gov.RecordApproval(c.Request.Context(), approval); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"incident": incident, "decision": decision})
}

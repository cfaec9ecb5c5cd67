package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/aegis/internal/governance"
)

// respondError maps a service-layer error to an HTTP status and a
// gin JSON error body.
func respondError(c *gin.Context, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
		return
	}
	if errors.Is(err, governance.ErrApprovalNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "approval not found"})
		return
	}

	slog.Error("unexpected handler error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// ValidationError wraps a request-binding/validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

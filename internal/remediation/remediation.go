// Package remediation dispatches approved remediation commands to an
// out-of-process remote command service over HTTP. AEGIS never shells out
// to the host process — this is the sole concrete implementation of
// executor.RemediationExecutor in the repo.
package remediation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/codeready-toolchain/aegis/internal/config"
)

// Dispatcher posts remediation commands to the configured remote command
// service.
type Dispatcher struct {
	serviceURL string
	httpClient *http.Client
}

// New builds a Dispatcher. Returns nil if no service URL is configured.
func New(cfg config.ExecutorConfig) *Dispatcher {
	if cfg.RemediationServiceURL == "" {
		return nil
	}
	return &Dispatcher{
		serviceURL: cfg.RemediationServiceURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type dispatchRequest struct {
	Tool    string `json:"tool"`
	Command string `json:"command"`
}

// Dispatch posts the command and treats any non-2xx response as a
// dispatch failure.
func (d *Dispatcher) Dispatch(ctx context.Context, tool, command string) error {
	if d == nil {
		return fmt.Errorf("remediation dispatcher not configured")
	}

	body, err := json.Marshal(dispatchRequest{Tool: tool, Command: command})
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.serviceURL+"/dispatch", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("dispatch request returned status %d", resp.StatusCode)
	}
	return nil
}

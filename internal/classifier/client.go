// Package classifier issues the single structured LLM call that turns a
// scrubbed, enriched incident into a Classification. A job is classified
// with exactly one request, never a multi-turn conversation.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/aegis/internal/domain"
)

// ParseError indicates the model's response could not be coerced into a
// valid Classification — missing field, out-of-range confidence, or an
// unknown enum value.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse classification response: %s", e.Reason)
}

// Request bundles everything the model needs to classify one job.
type Request struct {
	ShortDescription string
	Description      string
	Enrichment       domain.Enrichment
}

// Client is implemented by each LLM provider backend.
type Client interface {
	Classify(ctx context.Context, req Request) (domain.Classification, error)
}

var validCategories = map[string]bool{
	"access":         true,
	"infrastructure": true,
	"application":    true,
	"network":        true,
	"data":           true,
	"unknown":        true,
}

var validActions = map[domain.Action]bool{
	domain.ActionRoute:    true,
	domain.ActionAutoHeal: true,
	domain.ActionEscalate: true,
}

var validPriorities = map[string]bool{"1": true, "2": true, "3": true, "4": true, "5": true}

// ParseResponse strips code-fence markers a model sometimes wraps its JSON
// in, unmarshals the result, and validates it against the classification
// schema.
func ParseResponse(raw string) (domain.Classification, error) {
	var c domain.Classification

	cleaned := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return c, &ParseError{Reason: err.Error(), Raw: raw}
	}

	if c.Category == "" {
		return c, &ParseError{Reason: "missing category", Raw: raw}
	}
	if !validCategories[strings.ToLower(c.Category)] {
		return c, &ParseError{Reason: "unknown category: " + c.Category, Raw: raw}
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return c, &ParseError{Reason: "confidence out of range", Raw: raw}
	}
	if !validActions[c.Action] {
		return c, &ParseError{Reason: "unknown or missing action: " + string(c.Action), Raw: raw}
	}
	if c.Priority == "" {
		c.Priority = domain.DefaultPriority
	}
	if !validPriorities[c.Priority] {
		return c, &ParseError{Reason: "priority out of range: " + c.Priority, Raw: raw}
	}
	if c.Action == domain.ActionAutoHeal && c.Tool == "" {
		return c, &ParseError{Reason: "auto_heal action missing tool", Raw: raw}
	}

	return c, nil
}

func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

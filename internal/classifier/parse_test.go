package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/aegis/internal/domain"
)

func TestParseResponse_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"category\":\"network\",\"action\":\"route\",\"priority\":\"3\",\"confidence\":0.7,\"resolution_notes\":\"brief outage\"}\n```"
	c, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, "network", c.Category)
	assert.Equal(t, 0.7, c.Confidence)
}

func TestParseResponse_MissingCategory(t *testing.T) {
	_, err := ParseResponse(`{"action":"route","confidence":0.5}`)
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestParseResponse_UnknownCategory(t *testing.T) {
	_, err := ParseResponse(`{"category":"bogus","action":"route","confidence":0.5}`)
	require.Error(t, err)
}

func TestParseResponse_ConfidenceOutOfRange(t *testing.T) {
	_, err := ParseResponse(`{"category":"network","action":"route","confidence":1.5}`)
	require.Error(t, err)
}

func TestParseResponse_MissingAction(t *testing.T) {
	_, err := ParseResponse(`{"category":"network","confidence":0.5}`)
	require.Error(t, err)
}

func TestParseResponse_AutoHealRequiresTool(t *testing.T) {
	_, err := ParseResponse(`{"category":"infrastructure","action":"auto_heal","confidence":0.9}`)
	require.Error(t, err)
}

func TestParseResponse_DefaultsPriority(t *testing.T) {
	c, err := ParseResponse(`{"category":"access","action":"escalate","confidence":0.9}`)
	require.NoError(t, err)
	assert.Equal(t, "3", c.Priority)
}

func TestParseResponse_Valid(t *testing.T) {
	c, err := ParseResponse(`{"category":"access","action":"auto_heal","tool":"unlock_account","target":"jane@example.com","priority":"2","confidence":0.9,"resolution_notes":"locked account"}`)
	require.NoError(t, err)
	assert.Equal(t, "access", c.Category)
	assert.Equal(t, 0.9, c.Confidence)
	assert.Equal(t, domain.ActionAutoHeal, c.Action)
}

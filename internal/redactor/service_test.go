package redactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrub_Email(t *testing.T) {
	s := NewService(nil)
	out := s.Scrub("contact jane.doe@example.com for details")
	assert.Contains(t, out, "[EMAIL]")
	assert.NotContains(t, out, "jane.doe@example.com")
}

func TestScrub_Idempotent(t *testing.T) {
	s := NewService(nil)
	once := s.Scrub("reach me at jane.doe@example.com")
	twice := s.Scrub(once)
	assert.Equal(t, once, twice)
}

func TestScrub_EmptyPassesThrough(t *testing.T) {
	s := NewService(nil)
	assert.Equal(t, "", s.Scrub(""))
	assert.Equal(t, "   ", s.Scrub("   "))
}

func TestScrub_NoEntitiesUnchanged(t *testing.T) {
	s := NewService(nil)
	in := "the build failed on node 12"
	assert.Equal(t, in, s.Scrub(in))
}

func TestScrubRecord_OnlyNamedFields(t *testing.T) {
	s := NewService(nil)
	out := s.ScrubRecord(map[string]string{
		"title":       "disk full on host, contact jane@example.com",
		"description": "no pii here",
	})
	assert.Contains(t, out["title"], "[EMAIL]")
	assert.Equal(t, "no pii here", out["description"])
}

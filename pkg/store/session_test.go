package store

import (
	"testing"
	"time"

	"ai-act-advisor-be/pkg/rag/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsDeep(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSession("s-1", now)
	s.Append("user", "hello", now)
	s.CollectedFields["intended_purpose"] = "hiring"
	s.FinalReport = &report.StructuredReport{RiskLevel: report.RiskHigh, Roadmap: []string{"a"}}

	c := s.Clone()
	c.Append("assistant", "question", now)
	c.CollectedFields["intended_purpose"] = "changed"
	c.FinalReport.Roadmap[0] = "b"

	assert.Len(t, s.Turns, 1)
	assert.Equal(t, "hiring", s.CollectedFields["intended_purpose"])
	assert.Equal(t, "a", s.FinalReport.Roadmap[0])
}

func TestTurnHelpers(t *testing.T) {
	now := time.Now()
	s := NewSession("s-2", now)
	require.Equal(t, StateGathering, s.State)

	s.Append("assistant", "opening", now)
	s.Append("user", "desc", now)
	s.Append("assistant", "q1", now)
	s.Append("user", "a1", now)
	s.Append("assistant", "q2", now)

	assert.Equal(t, 2, s.UserTurns())
	assert.Equal(t, []string{"q1", "q2"}, s.LastAssistant(2))
	assert.Equal(t, []string{"opening", "q1", "q2"}, s.LastAssistant(5))
}

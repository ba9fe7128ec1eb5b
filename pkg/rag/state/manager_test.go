package state

import (
	"testing"
	"time"

	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	m := NewManager(logger.NewNopLogger())
	s := store.NewSession("s", time.Now())

	// DONE cannot be reached without CLASSIFYING.
	assert.ErrorIs(t, m.TransitionToDone(s, &report.StructuredReport{}), ErrIllegalTransition)
	assert.Equal(t, store.StateGathering, s.State)

	require.NoError(t, m.TransitionToClassifying(s, "schema complete"))
	assert.Equal(t, store.StateClassifying, s.State)
	assert.ErrorIs(t, m.TransitionToClassifying(s, "again"), ErrIllegalTransition)

	assert.ErrorIs(t, m.TransitionToDone(s, nil), ErrIllegalTransition)
	assert.Nil(t, s.FinalReport)

	r := &report.StructuredReport{RiskLevel: report.RiskMinimal}
	require.NoError(t, m.TransitionToDone(s, r))
	assert.Equal(t, store.StateDone, s.State)
	assert.Same(t, r, s.FinalReport)

	assert.ErrorIs(t, m.TransitionToClassifying(s, "backwards"), ErrIllegalTransition)
}

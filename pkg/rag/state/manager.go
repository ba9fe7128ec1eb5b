package state

import (
	"errors"
	"fmt"

	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/store"
)

// ErrIllegalTransition is returned for any move other than
// GATHERING -> CLASSIFYING -> DONE.
var ErrIllegalTransition = errors.New("illegal state transition")

// Manager handles session state transitions
type Manager struct {
	logger logger.ILogger
}

// NewManager creates a new state manager
func NewManager(logger logger.ILogger) *Manager {
	return &Manager{logger: logger}
}

// TransitionToClassifying marks the interview as finished gathering facts.
func (m *Manager) TransitionToClassifying(session *store.Session, reason string) error {
	if session.State != store.StateGathering {
		return m.reject(session, store.StateClassifying)
	}
	session.State = store.StateClassifying
	m.logger.Info("STATE", "Transitioned to CLASSIFYING", map[string]interface{}{
		"session_id":      session.ID,
		"reason":          reason,
		"questions_asked": session.QuestionsAsked,
		"fields":          len(session.CollectedFields),
	})
	return nil
}

// TransitionToDone stores the final report; the session accepts no further
// turns except a reset.
func (m *Manager) TransitionToDone(session *store.Session, r *report.StructuredReport) error {
	if session.State != store.StateClassifying {
		return m.reject(session, store.StateDone)
	}
	if r == nil {
		return fmt.Errorf("%w: DONE requires a report", ErrIllegalTransition)
	}
	session.FinalReport = r
	session.State = store.StateDone
	m.logger.Info("STATE", "Transitioned to DONE", map[string]interface{}{
		"session_id": session.ID,
		"risk_level": r.RiskLevel,
		"degraded":   r.Degraded,
	})
	return nil
}

func (m *Manager) reject(session *store.Session, to store.State) error {
	m.logger.Warn("STATE", "Rejected transition", map[string]interface{}{
		"session_id": session.ID,
		"from":       session.State,
		"to":         to,
	})
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, session.State, to)
}

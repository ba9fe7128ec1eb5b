package store

import (
	"errors"
	"time"

	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/rag/screen"
)

// ErrSessionNotFound is returned by SessionStore.Get for an unknown id.
var ErrSessionNotFound = errors.New("session not found")

type State string

const (
	StateGathering   State = "GATHERING"
	StateClassifying State = "CLASSIFYING"
	StateDone        State = "DONE"
)

// Turn is a single message of the interview. Turns are only ever appended.
type Turn struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents one interview about one described system
type Session struct {
	ID    string `json:"id"`
	State State  `json:"state"` // "GATHERING" | "CLASSIFYING" | "DONE"

	Turns           []Turn            `json:"turns"`
	CollectedFields map[string]string `json:"collected_fields"`
	QuestionsAsked  int               `json:"questions_asked"`

	// Article 5 suspicions raised from the first description
	Alerts []screen.Finding `json:"alerts,omitempty"`

	// Set while a CRITICAL alert waits for the user to continue or stop
	AwaitingConfirmation bool `json:"awaiting_confirmation,omitempty"`

	// Set iff State == DONE
	FinalReport *report.StructuredReport `json:"final_report,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns an empty GATHERING session.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:              id,
		State:           StateGathering,
		CollectedFields: make(map[string]string),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Append adds a turn and bumps UpdatedAt.
func (s *Session) Append(role, content string, now time.Time) {
	s.Turns = append(s.Turns, Turn{Role: role, Content: content, Timestamp: now})
	s.UpdatedAt = now
}

// UserTurns counts turns sent by the user.
func (s *Session) UserTurns() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == "user" {
			n++
		}
	}
	return n
}

// LastAssistant returns up to n most recent assistant messages, oldest first.
func (s *Session) LastAssistant(n int) []string {
	var out []string
	for i := len(s.Turns) - 1; i >= 0 && len(out) < n; i-- {
		if s.Turns[i].Role == "assistant" {
			out = append([]string{s.Turns[i].Content}, out...)
		}
	}
	return out
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.CollectedFields = make(map[string]string, len(s.CollectedFields))
	for k, v := range s.CollectedFields {
		c.CollectedFields[k] = v
	}
	if s.Alerts != nil {
		c.Alerts = make([]screen.Finding, len(s.Alerts))
		copy(c.Alerts, s.Alerts)
	}
	c.FinalReport = s.FinalReport.Clone()
	return &c
}

// SessionStore is the key-value contract the interview core relies on.
type SessionStore interface {
	Get(id string) (*Session, error)
	Put(session *Session) error
	Delete(id string) error
}

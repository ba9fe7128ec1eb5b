package interview

import (
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/rag/screen"
	"ai-act-advisor-be/pkg/store"
)

type Kind string

const (
	KindQuestion Kind = "question"
	KindReport   Kind = "report"
	KindReset    Kind = "reset"
	KindConfirm  Kind = "confirm"
)

type Progress struct {
	QuestionsAsked int         `json:"questions_asked"`
	MaxQuestions   int         `json:"max_questions"`
	CoveredTopics  int         `json:"covered_topics"`
	TotalTopics    int         `json:"total_topics"`
	State          store.State `json:"state"`
}

// TurnResult is everything a caller needs to render one advisor reply.
type TurnResult struct {
	Kind      Kind                     `json:"kind"`
	Message   string                   `json:"message"`
	Question  string                   `json:"question,omitempty"`
	Topic     string                   `json:"topic,omitempty"`
	Report    *report.StructuredReport `json:"report,omitempty"`
	Alerts    []screen.Finding         `json:"alerts,omitempty"`
	NewFields map[string]string        `json:"new_fields,omitempty"`
	Progress  Progress                 `json:"progress"`
}

// IsDone reports whether the turn produced the final report.
func (r *TurnResult) IsDone() bool {
	return r.Kind == KindReport
}

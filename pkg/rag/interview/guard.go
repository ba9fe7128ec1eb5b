package interview

import (
	"context"

	"ai-act-advisor-be/pkg/rag/index"
	"ai-act-advisor-be/pkg/rag/schema"
	"ai-act-advisor-be/pkg/store"
)

const guardWindow = 3

// guardDuplicate swaps a generated question for the topic's scripted one when
// it is too close to a recently asked question. Embedding failures keep the
// generated question.
func (e *Engine) guardDuplicate(ctx context.Context, session *store.Session, question string, topic schema.Topic) string {
	if e.embedder == nil {
		return question
	}
	previous := askedQuestions(session, guardWindow)
	if len(previous) == 0 {
		return question
	}

	qv, err := e.embedder.Embed(ctx, question)
	if err != nil {
		e.logger.Warn("INTERVIEW", "Duplicate guard skipped", map[string]interface{}{"error": err.Error()})
		return question
	}
	for _, p := range previous {
		pv, err := e.embedder.Embed(ctx, p)
		if err != nil {
			e.logger.Warn("INTERVIEW", "Duplicate guard skipped", map[string]interface{}{"error": err.Error()})
			return question
		}
		if sim := index.Cosine(qv, pv); sim > e.cfg.DuplicateThreshold {
			e.logger.Info("INTERVIEW", "Duplicate question replaced", map[string]interface{}{
				"session_id": session.ID,
				"topic":      topic.Key,
				"similarity": sim,
			})
			return topic.Question
		}
	}
	return question
}

// askedQuestions returns the question text of the last n numbered assistant turns.
func askedQuestions(session *store.Session, n int) []string {
	var out []string
	for i := len(session.Turns) - 1; i >= 0 && len(out) < n; i-- {
		t := session.Turns[i]
		if t.Role != "assistant" {
			continue
		}
		if m := askedQuestionRe.FindStringSubmatch(t.Content); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

package interview

import (
	"context"
	"strings"

	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/rag/response"
	"ai-act-advisor-be/pkg/store"
)

type answer int

const (
	answerUnclear answer = iota
	answerContinue
	answerStop
)

func parseAnswer(utterance string) answer {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(utterance), ".!")) {
	case "yes", "y", "continue", "proceed":
		return answerContinue
	case "no", "n", "stop":
		return answerStop
	}
	return answerUnclear
}

// confirm handles the reply to a CRITICAL Article 5 warning. Continuing resumes
// the interview where it stood; stopping closes it with the prohibited report.
// Neither path counts as a question.
func (e *Engine) confirm(ctx context.Context, work *store.Session, utterance string) (*store.Session, *TurnResult, error) {
	switch parseAnswer(utterance) {
	case answerContinue:
		work.AwaitingConfirmation = false
		e.logger.Info("INTERVIEW", "User continues despite Article 5 indicators", map[string]interface{}{
			"session_id": work.ID,
		})
		return e.advance(ctx, work, nil, nil, false)

	case answerStop:
		work.AwaitingConfirmation = false
		if err := e.states.TransitionToClassifying(work, "prohibited practice confirmed"); err != nil {
			return nil, nil, err
		}
		r := prohibitedReport(work)
		if err := e.states.TransitionToDone(work, r); err != nil {
			return nil, nil, err
		}
		msg := report.Render(r)
		work.Append(llm.RoleAssistant, msg, e.clock())
		e.logger.Warn("INTERVIEW", "Session closed as prohibited", map[string]interface{}{
			"session_id": work.ID,
			"alerts":     len(work.Alerts),
		})
		return work, &TurnResult{
			Kind:     KindReport,
			Message:  msg,
			Report:   r.Clone(),
			Alerts:   work.Alerts,
			Progress: e.Progress(work),
		}, nil
	}

	msg := response.ConfirmAgain()
	work.Append(llm.RoleAssistant, msg, e.clock())
	return work, &TurnResult{
		Kind:     KindConfirm,
		Message:  msg,
		Alerts:   work.Alerts,
		Progress: e.Progress(work),
	}, nil
}

// prohibitedReport is built from the prescreen findings alone; a confirmed
// Article 5 practice needs no model call to classify.
func prohibitedReport(session *store.Session) *report.StructuredReport {
	confidence := 0.9
	r := &report.StructuredReport{
		RiskLevel:  report.RiskProhibited,
		Confidence: &confidence,
		Penalties: "Fines up to EUR 35 million or 7% of total worldwide annual turnover, whichever is higher (Article 99(3)). " +
			"Authorities may order the system withdrawn from the EU market.",
		Roadmap: []string{
			"Halt all deployment and use of the system.",
			"Stop collecting further data and preserve system logs for regulatory review.",
			"Engage EU AI Act and data protection counsel.",
			"Assess the lawfulness of data already collected and delete what was obtained unlawfully.",
		},
		Recommendations: []string{
			"Redesign the system so that it no longer performs the prohibited practice before any further assessment.",
			"Document the redesign and request a new assessment.",
		},
	}

	var practices []string
	seen := make(map[string]bool)
	for _, a := range session.Alerts {
		r.Violations = append(r.Violations, report.Violation{
			ArticleRef:  a.Article,
			Description: a.Article + ": " + a.Practice + " (" + a.Evidence + ")",
		})
		practices = append(practices, a.Practice)
		if !seen[a.Article] {
			seen[a.Article] = true
			r.ApplicableArticles = append(r.ApplicableArticles, a.Article)
		}
	}
	r.ApplicableArticles = append(r.ApplicableArticles, "Article 99")
	r.Rationale = "The user confirmed the Article 5 indicators found in the description: " +
		strings.Join(practices, "; ") + ". These practices are banned outright and no further answer changes the classification."
	return r
}

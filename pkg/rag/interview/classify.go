package interview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/index"
	"ai-act-advisor-be/pkg/rag/prompt"
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/store"

	"go.opentelemetry.io/otel/attribute"
)

// classify always leaves the session in DONE: a model that cannot produce a
// parseable report gets one retry, then the session is closed with a
// degraded UNKNOWN report.
func (e *Engine) classify(ctx context.Context, session *store.Session) *TurnResult {
	ctx, span := tracer.Start(ctx, "interview.classify")
	defer span.End()

	retrieval, err := e.index.Query(ctx, classificationQuery(session), e.cfg.ClassifyTopK)
	if err != nil {
		e.logger.Warn("INTERVIEW", "Classification retrieval failed, continuing without passages", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		retrieval = nil
	}

	base := e.builder.ClassificationPrompt(session, retrieval)
	r, raw, err := e.attemptReport(ctx, base)
	if err != nil {
		retryPrompt := base
		if errors.Is(err, report.ErrReportParse) {
			retryPrompt += e.builder.CorrectiveInstruction()
		}
		e.logger.Warn("INTERVIEW", "Classification failed, retrying once", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})

		var retryRaw string
		r, retryRaw, err = e.attemptReport(ctx, retryPrompt)
		if strings.TrimSpace(retryRaw) != "" {
			raw = retryRaw
		}
		if err != nil {
			text := raw
			if strings.TrimSpace(text) == "" {
				text = emergencyReport(session, retrieval)
			}
			r = report.Degraded(text)
			e.logger.Error("INTERVIEW", "Classification degraded to UNKNOWN", map[string]interface{}{
				"session_id": session.ID,
				"error":      err.Error(),
				"raw_len":    len(raw),
			})
		}
	}

	if err := e.states.TransitionToDone(session, r); err != nil {
		// Only reachable if the caller handed over a session outside CLASSIFYING.
		e.logger.Error("INTERVIEW", "Could not close session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
	span.SetAttributes(
		attribute.String("report.risk_level", string(r.RiskLevel)),
		attribute.Bool("report.degraded", r.Degraded),
		attribute.Int("report.passages", len(retrieval)),
	)

	msg := report.Render(r)
	session.Append(llm.RoleAssistant, msg, e.clock())

	return &TurnResult{
		Kind:     KindReport,
		Message:  msg,
		Report:   r.Clone(),
		Progress: e.Progress(session),
	}
}

func (e *Engine) attemptReport(ctx context.Context, p string) (*report.StructuredReport, string, error) {
	raw, err := e.llm.Generate(ctx, p,
		llm.WithTemperature(e.cfg.ReportTemperature),
		llm.WithMaxTokens(e.cfg.ReportMaxTokens),
	)
	if err != nil {
		return nil, raw, fmt.Errorf("generate report: %w", err)
	}
	r, err := report.Parse(raw)
	if err != nil {
		return nil, raw, err
	}
	return r, raw, nil
}

// classificationQuery covers the description plus every collected fact, which
// is broader than any single topic query.
func classificationQuery(session *store.Session) string {
	var b strings.Builder
	b.WriteString(prompt.Description(session))
	keys := make([]string, 0, len(session.CollectedFields))
	for k := range session.CollectedFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(session.CollectedFields[k])
	}
	return b.String()
}

// emergencyReport stands in for model text when the model produced none.
func emergencyReport(session *store.Session, retrieval index.Result) string {
	var b strings.Builder
	b.WriteString("AUTOMATED ASSESSMENT UNAVAILABLE - LEGAL REVIEW REQUIRED\n\n")

	desc := []rune(prompt.Description(session))
	if len(desc) > 500 {
		desc = desc[:500]
	}
	b.WriteString("System description: ")
	b.WriteString(strings.TrimSpace(string(desc)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Questions asked: %d\n\n", session.QuestionsAsked)

	articles := retrieval.Articles()
	if len(articles) > 15 {
		articles = articles[:15]
	}
	if len(articles) > 0 {
		b.WriteString("Potentially relevant articles:\n")
		for _, a := range articles {
			fmt.Fprintf(&b, "- %s\n", a)
		}
		b.WriteString("\n")
	}

	b.WriteString("Recommended actions:\n")
	b.WriteString("1. Consult an EU AI Act legal specialist\n")
	b.WriteString("2. Determine the definitive risk classification\n")
	b.WriteString("3. Begin the conformity assessment if the system is high-risk\n\n")
	b.WriteString("This is not a legal opinion.")
	return b.String()
}

package interview

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-act-advisor-be/pkg/embedding"
	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/index"
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodReport = `## 1. RISK CLASSIFICATION
**Risk Level:** HIGH-RISK
**Confidence:** 0.8
**Rationale:** Recruitment is listed in Annex III.

## 2. IDENTIFIED VIOLATIONS & CONCERNS
- Article 14: no documented human oversight.

## 3. APPLICABLE ARTICLES
- Article 6(2)
- Article 14
`

type reply struct {
	text string
	err  error
}

// scriptedLLM answers by prompt kind: extraction, report or question.
type scriptedLLM struct {
	mu sync.Mutex

	extractions map[string]string
	extractErr  error

	questions   []string
	questionErr error
	asked       int

	reports       []reply
	reportPrompts []string
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, history[len(history)-1].Content, options...)
}

func (s *scriptedLLM) Generate(ctx context.Context, p string, options ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.Contains(p, "<user_message>"):
		if s.extractErr != nil {
			return "", s.extractErr
		}
		start := strings.Index(p, "<user_message>\n") + len("<user_message>\n")
		end := strings.Index(p, "\n</user_message>")
		if out, ok := s.extractions[p[start:end]]; ok {
			return out, nil
		}
		return "{}", nil
	case strings.Contains(p, "FINAL ASSESSMENT REPORT"):
		s.reportPrompts = append(s.reportPrompts, p)
		if len(s.reports) == 0 {
			return goodReport, nil
		}
		r := s.reports[0]
		if len(s.reports) > 1 {
			s.reports = s.reports[1:]
		}
		return r.text, r.err
	default:
		if s.questionErr != nil {
			return "", s.questionErr
		}
		s.asked++
		if s.asked <= len(s.questions) {
			return s.questions[s.asked-1], nil
		}
		return fmt.Sprintf("Generated question %d?", s.asked), nil
	}
}

// oneHot gives every distinct text its own axis, so only identical texts are similar.
type oneHot struct {
	mu  sync.Mutex
	ids map[string]int
}

func (o *oneHot) Embed(ctx context.Context, text string) ([]float32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ids == nil {
		o.ids = make(map[string]int)
	}
	id, ok := o.ids[text]
	if !ok {
		id = len(o.ids)
		o.ids[text] = id
	}
	v := make([]float32, 256)
	v[id%256] = 1
	return v, nil
}

type failingRetriever struct{}

func (failingRetriever) Query(ctx context.Context, text string, k int) (index.Result, error) {
	return nil, fmt.Errorf("%w: timeout", embedding.ErrEmbedding)
}

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func testIndex() *index.PassageIndex {
	constant := embedding.ProviderFunc(func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0}, nil
	})
	return index.NewFromChunks([]index.Chunk{
		{ID: 0, Text: "Annex III high-risk areas: employment...", Embedding: []float32{1, 0}, Articles: []string{"Article 6"}},
		{ID: 1, Text: "Human oversight measures...", Embedding: []float32{0.5, 0.5}, Articles: []string{"Article 14"}},
	}, constant)
}

func newEngine(l llm.LLMProvider, r Retriever, cfg Config) *Engine {
	return New(Dependencies{
		LLM:      l,
		Index:    r,
		Embedder: &oneHot{},
		Clock:    func() time.Time { return fixedNow },
	}, cfg)
}

func TestEndToEndReachesDone(t *testing.T) {
	model := &scriptedLLM{extractions: map[string]string{
		"We rank job applicants' CVs and output a shortlist score":    `{"intended_purpose": "rank job applicants", "system_outputs": "shortlist score"}`,
		"HR teams in Germany use it on applicants":                    `{"deployers": "HR teams", "affected_persons": "applicants", "deployment_context": "Germany"}`,
		"CVs and cover letters, no sensitive data":                    `{"data_categories": "CVs", "special_category_data": "none"}`,
		"Recruiters review every ranking; rejection is the main harm": `{"autonomy_level": "human-in-the-loop", "decision_impact": "rejection"}`,
		"Recruiters can override; we run bias audits quarterly":       `{"human_oversight": "override", "safeguards": "bias audits"}`,
		"Gradient boosted trees":                                      `{"techniques": "gradient boosting"}`,
	}}
	e := newEngine(model, testIndex(), DefaultConfig())

	answers := []string{
		"We rank job applicants' CVs and output a shortlist score",
		"HR teams in Germany use it on applicants",
		"CVs and cover letters, no sensitive data",
		"Recruiters review every ranking; rejection is the main harm",
		"Recruiters can override; we run bias audits quarterly",
		"Gradient boosted trees",
	}
	wantTopics := []string{"users_context", "data_categories", "autonomy", "oversight", "techniques"}

	s := e.Fresh("session-1")
	prevAsked := 0
	for i, a := range answers {
		next, res, err := e.HandleTurn(context.Background(), s, a)
		require.NoError(t, err, "turn %d", i)

		assert.GreaterOrEqual(t, next.QuestionsAsked, prevAsked)
		assert.LessOrEqual(t, next.QuestionsAsked, e.Config().MaxQuestions)
		prevAsked = next.QuestionsAsked

		if i < len(answers)-1 {
			assert.Equal(t, KindQuestion, res.Kind)
			assert.Equal(t, wantTopics[i], res.Topic)
			assert.Equal(t, store.StateGathering, next.State)
			assert.Nil(t, next.FinalReport)
			assert.Contains(t, res.Message, fmt.Sprintf("[Q%d/15]", i+1))
		} else {
			assert.Equal(t, KindReport, res.Kind)
			assert.True(t, res.IsDone())
		}
		s = next
	}

	assert.Equal(t, store.StateDone, s.State)
	require.NotNil(t, s.FinalReport)
	assert.Equal(t, report.RiskHigh, s.FinalReport.RiskLevel)
	assert.NotEqual(t, report.RiskUnknown, s.FinalReport.RiskLevel)
	assert.Equal(t, 5, s.QuestionsAsked)
	assert.Equal(t, []string{"Article 6(2)", "Article 14"}, s.FinalReport.ApplicableArticles)
	assert.Equal(t, 6, e.Progress(s).CoveredTopics)

	// The classification prompt is grounded in retrieved passages.
	require.Len(t, model.reportPrompts, 1)
	assert.Contains(t, model.reportPrompts[0], "<reference_passages>")
	assert.Contains(t, model.reportPrompts[0], "- techniques: gradient boosting")
}

func TestQuestionLimitForcesClassification(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQuestions = 3
	e := newEngine(&scriptedLLM{}, testIndex(), cfg)

	s := e.Fresh("s")
	for i := 1; i <= 3; i++ {
		next, res, err := e.HandleTurn(context.Background(), s, fmt.Sprintf("vague answer %d", i))
		require.NoError(t, err)
		assert.Equal(t, KindQuestion, res.Kind)
		assert.Equal(t, i, next.QuestionsAsked)
		// Incomplete fields and limit not reached: CLASSIFYING must not be skipped to.
		assert.Equal(t, store.StateGathering, next.State)
		s = next
	}

	next, res, err := e.HandleTurn(context.Background(), s, "still vague")
	require.NoError(t, err)
	assert.Equal(t, KindReport, res.Kind)
	assert.Equal(t, store.StateDone, next.State)
	assert.Equal(t, 3, next.QuestionsAsked)
	assert.Equal(t, 3, res.Progress.QuestionsAsked)
}

func TestDoneRejectsTurns(t *testing.T) {
	e := newEngine(&scriptedLLM{}, testIndex(), DefaultConfig())
	s := e.Fresh("s")
	s.State = store.StateDone
	s.FinalReport = &report.StructuredReport{RiskLevel: report.RiskMinimal}
	before := s.Clone()

	got, res, err := e.HandleTurn(context.Background(), s, "one more thing")
	assert.ErrorIs(t, err, ErrSessionDone)
	assert.Nil(t, res)
	assert.Same(t, s, got)
	assert.Equal(t, before, s)
}

func TestResetIsIdempotent(t *testing.T) {
	e := newEngine(&scriptedLLM{}, testIndex(), DefaultConfig())
	done := e.Fresh("same-id")
	done.QuestionsAsked = 7
	done.State = store.StateDone
	held := &report.StructuredReport{RiskLevel: report.RiskLimited}
	done.FinalReport = held

	first, res, err := e.HandleTurn(context.Background(), done, "  RESET ")
	require.NoError(t, err)
	assert.Equal(t, KindReset, res.Kind)
	assert.Equal(t, "same-id", first.ID)
	assert.Equal(t, 0, first.QuestionsAsked)
	assert.Equal(t, store.StateGathering, first.State)
	assert.Nil(t, first.FinalReport)
	assert.Empty(t, first.CollectedFields)

	second, _, err := e.HandleTurn(context.Background(), first, "reset")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// The caller's handle on the old report is untouched.
	assert.Same(t, held, done.FinalReport)
	assert.Equal(t, report.RiskLimited, done.FinalReport.RiskLevel)
	assert.Equal(t, 7, done.QuestionsAsked)
}

func TestGatheringErrorsLeaveSessionUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		model   *scriptedLLM
		index   Retriever
		wantErr error
	}{
		{name: "extraction unreachable", model: &scriptedLLM{extractErr: llm.ErrInference}, index: testIndex(), wantErr: llm.ErrInference},
		{name: "question generation unreachable", model: &scriptedLLM{questionErr: llm.ErrInference}, index: testIndex(), wantErr: llm.ErrInference},
		{name: "retrieval unreachable", model: &scriptedLLM{}, index: failingRetriever{}, wantErr: embedding.ErrEmbedding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(tt.model, tt.index, DefaultConfig())
			s := e.Fresh("s")
			before := s.Clone()

			got, res, err := e.HandleTurn(context.Background(), s, "A chatbot for customer support")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
			assert.Same(t, s, got)
			assert.Equal(t, before, s)
		})
	}
}

func classifyingSession(e *Engine) *store.Session {
	s := e.Fresh("s")
	s.Append("user", "A recruitment screening model", fixedNow)
	s.State = store.StateClassifying
	return s
}

func TestClassificationRetriesWithCorrection(t *testing.T) {
	model := &scriptedLLM{reports: []reply{{text: "I think it is fine."}, {text: goodReport}}}
	e := newEngine(model, testIndex(), DefaultConfig())

	next, res, err := e.HandleTurn(context.Background(), classifyingSession(e), "go on")
	require.NoError(t, err)
	assert.Equal(t, store.StateDone, next.State)
	assert.Equal(t, report.RiskHigh, res.Report.RiskLevel)
	assert.False(t, res.Report.Degraded)

	require.Len(t, model.reportPrompts, 2)
	assert.NotContains(t, model.reportPrompts[0], "<correction>")
	assert.Contains(t, model.reportPrompts[1], "<correction>")
}

func TestClassificationRetriesInferenceWithoutCorrection(t *testing.T) {
	model := &scriptedLLM{reports: []reply{{err: llm.ErrInference}, {text: goodReport}}}
	e := newEngine(model, testIndex(), DefaultConfig())

	_, res, err := e.HandleTurn(context.Background(), classifyingSession(e), "go on")
	require.NoError(t, err)
	assert.Equal(t, report.RiskHigh, res.Report.RiskLevel)
	require.Len(t, model.reportPrompts, 2)
	assert.NotContains(t, model.reportPrompts[1], "<correction>")
}

func TestClassificationDegradesAfterSecondFailure(t *testing.T) {
	model := &scriptedLLM{reports: []reply{{text: "first ramble"}, {text: "second ramble"}}}
	e := newEngine(model, testIndex(), DefaultConfig())

	next, res, err := e.HandleTurn(context.Background(), classifyingSession(e), "go on")
	require.NoError(t, err)
	assert.Equal(t, store.StateDone, next.State)
	require.NotNil(t, next.FinalReport)
	assert.Equal(t, report.RiskUnknown, next.FinalReport.RiskLevel)
	assert.True(t, next.FinalReport.Degraded)
	assert.Equal(t, "second ramble", next.FinalReport.Rationale)
	assert.Contains(t, res.Message, "Legal review required")
	assert.Len(t, model.reportPrompts, 2)
}

func TestClassificationEmergencyReportWhenModelDown(t *testing.T) {
	model := &scriptedLLM{reports: []reply{{err: llm.ErrInference}}}
	e := newEngine(model, testIndex(), DefaultConfig())

	next, _, err := e.HandleTurn(context.Background(), classifyingSession(e), "go on")
	require.NoError(t, err)
	assert.Equal(t, store.StateDone, next.State)
	assert.Equal(t, report.RiskUnknown, next.FinalReport.RiskLevel)
	assert.Contains(t, next.FinalReport.Rationale, "LEGAL REVIEW REQUIRED")
	assert.Contains(t, next.FinalReport.Rationale, "A recruitment screening model")
	assert.Contains(t, next.FinalReport.Rationale, "- Article 6")
}

func TestClassificationSurvivesRetrievalFailure(t *testing.T) {
	model := &scriptedLLM{}
	e := newEngine(model, failingRetriever{}, DefaultConfig())

	next, res, err := e.HandleTurn(context.Background(), classifyingSession(e), "go on")
	require.NoError(t, err)
	assert.Equal(t, store.StateDone, next.State)
	assert.Equal(t, report.RiskHigh, res.Report.RiskLevel)
	assert.NotContains(t, model.reportPrompts[0], "<reference_passages>")
}

func TestDuplicateQuestionIsReplaced(t *testing.T) {
	model := &scriptedLLM{questions: []string{"What data do you use?", "What data do you use?"}}
	e := newEngine(model, testIndex(), DefaultConfig())

	s := e.Fresh("s")
	s, res, err := e.HandleTurn(context.Background(), s, "Some system")
	require.NoError(t, err)
	assert.Equal(t, "What data do you use?", res.Question)

	_, res, err = e.HandleTurn(context.Background(), s, "not sure")
	require.NoError(t, err)
	assert.Equal(t, "purpose", res.Topic)
	assert.Equal(t, e.schema.Topics()[0].Question, res.Question)
}

func TestFirstTurnRunsPrescreen(t *testing.T) {
	e := newEngine(&scriptedLLM{}, testIndex(), DefaultConfig())

	next, res, err := e.HandleTurn(context.Background(), e.Fresh("s"), "Recidivism prediction using behavioral pattern profiling")
	require.NoError(t, err)
	require.NotEmpty(t, res.Alerts)
	assert.Equal(t, KindQuestion, res.Kind)
	assert.Equal(t, "Article 5(1)(g)", res.Alerts[0].Article)
	assert.Equal(t, res.Alerts, next.Alerts)
	assert.False(t, next.AwaitingConfirmation)
	assert.Contains(t, res.Message, "WARNING")
	assert.Contains(t, res.Message, "[Q1/15]")
	assert.Equal(t, store.StateGathering, next.State)

	// Later turns do not re-run the screen.
	_, res, err = e.HandleTurn(context.Background(), next, "crime prediction again")
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)
}

func TestCriticalFindingWaitsForConfirmation(t *testing.T) {
	model := &scriptedLLM{}
	e := newEngine(model, testIndex(), DefaultConfig())

	next, res, err := e.HandleTurn(context.Background(), e.Fresh("s"), "A municipality social scoring platform")
	require.NoError(t, err)
	assert.Equal(t, KindConfirm, res.Kind)
	assert.Equal(t, "Article 5(1)(c)", res.Alerts[0].Article)
	assert.Contains(t, res.Message, "Reply 'yes'")
	assert.True(t, next.AwaitingConfirmation)
	assert.Equal(t, store.StateGathering, next.State)
	assert.Equal(t, 0, next.QuestionsAsked)
	assert.Equal(t, 0, model.asked)

	again, res, err := e.HandleTurn(context.Background(), next, "maybe")
	require.NoError(t, err)
	assert.Equal(t, KindConfirm, res.Kind)
	assert.True(t, again.AwaitingConfirmation)
	assert.Equal(t, 0, again.QuestionsAsked)
	assert.Len(t, again.Turns, len(next.Turns)+2)
}

func TestConfirmationContinueResumesInterview(t *testing.T) {
	model := &scriptedLLM{}
	e := newEngine(model, testIndex(), DefaultConfig())

	s, _, err := e.HandleTurn(context.Background(), e.Fresh("s"), "A municipality social scoring platform")
	require.NoError(t, err)

	next, res, err := e.HandleTurn(context.Background(), s, " Yes ")
	require.NoError(t, err)
	assert.Equal(t, KindQuestion, res.Kind)
	assert.Equal(t, "purpose", res.Topic)
	assert.Contains(t, res.Message, "[Q1/15]")
	assert.NotContains(t, res.Message, "WARNING")
	assert.False(t, next.AwaitingConfirmation)
	assert.Equal(t, 1, next.QuestionsAsked)
	assert.Equal(t, s.Alerts, next.Alerts)

	// The alerts still reach the final classification.
	next.State = store.StateClassifying
	_, _, err = e.HandleTurn(context.Background(), next, "go on")
	require.NoError(t, err)
	require.Len(t, model.reportPrompts, 1)
	assert.Contains(t, model.reportPrompts[0], "<prescreen_alerts>")
}

func TestConfirmationStopClosesAsProhibited(t *testing.T) {
	model := &scriptedLLM{}
	e := newEngine(model, testIndex(), DefaultConfig())

	s, _, err := e.HandleTurn(context.Background(), e.Fresh("s"), "A municipality social scoring platform")
	require.NoError(t, err)

	next, res, err := e.HandleTurn(context.Background(), s, "no")
	require.NoError(t, err)
	assert.Equal(t, KindReport, res.Kind)
	assert.True(t, res.IsDone())
	assert.Equal(t, store.StateDone, next.State)
	assert.False(t, next.AwaitingConfirmation)
	assert.Equal(t, 0, next.QuestionsAsked)

	require.NotNil(t, next.FinalReport)
	assert.Equal(t, report.RiskProhibited, next.FinalReport.RiskLevel)
	assert.False(t, next.FinalReport.Degraded)
	assert.Equal(t, []string{"Article 5(1)(c)", "Article 99"}, next.FinalReport.ApplicableArticles)
	require.Len(t, next.FinalReport.Violations, 1)
	assert.Equal(t, "Article 5(1)(c)", next.FinalReport.Violations[0].ArticleRef)
	assert.Contains(t, res.Message, "PROHIBITED")
	assert.Empty(t, model.reportPrompts)

	_, _, err = e.HandleTurn(context.Background(), next, "yes")
	assert.ErrorIs(t, err, ErrSessionDone)
}

func TestRichAnswerSkipsCoveredTopics(t *testing.T) {
	model := &scriptedLLM{extractions: map[string]string{
		"HR teams in Germany rank applicants' CVs and get a shortlist score": `{"intended_purpose": "rank applicants", "system_outputs": "shortlist score", ` +
			`"deployers": "HR teams", "affected_persons": "applicants", "deployment_context": "Germany"}`,
	}}
	e := newEngine(model, testIndex(), DefaultConfig())

	next, res, err := e.HandleTurn(context.Background(), e.Fresh("s"), "HR teams in Germany rank applicants' CVs and get a shortlist score")
	require.NoError(t, err)
	assert.Equal(t, KindQuestion, res.Kind)
	assert.Equal(t, "data_categories", res.Topic)
	assert.Equal(t, 1, next.QuestionsAsked)
	assert.Equal(t, 2, res.Progress.CoveredTopics)
}

func TestCoverageThresholdBelowOne(t *testing.T) {
	extractions := map[string]string{
		"A CV ranking tool": `{"intended_purpose": "rank CVs"}`,
	}
	tests := []struct {
		name      string
		threshold float64
		wantTopic string
	}{
		{name: "every field required", threshold: 1.0, wantTopic: "purpose"},
		{name: "half the fields suffice", threshold: 0.5, wantTopic: "users_context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CoverageThreshold = tt.threshold
			e := newEngine(&scriptedLLM{extractions: extractions}, testIndex(), cfg)

			_, res, err := e.HandleTurn(context.Background(), e.Fresh("s"), "A CV ranking tool")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTopic, res.Topic)
		})
	}
}

func TestCleanQuestion(t *testing.T) {
	tests := map[string]string{
		"  \"Who deploys it?\" ":     "Who deploys it?",
		"Question: Who deploys it?":  "Who deploys it?",
		"[Q2/15] Who deploys it?":    "Who deploys it?",
		"Next question - Who is it?": "Who is it?",
		"":                           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanQuestion(in), in)
	}
}

// Package interview drives one assessment from the first description to the
// final report.
package interview

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/embedding"
	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/extract"
	"ai-act-advisor-be/pkg/rag/index"
	"ai-act-advisor-be/pkg/rag/prompt"
	"ai-act-advisor-be/pkg/rag/response"
	"ai-act-advisor-be/pkg/rag/schema"
	"ai-act-advisor-be/pkg/rag/screen"
	"ai-act-advisor-be/pkg/rag/state"
	"ai-act-advisor-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrSessionDone rejects any turn other than a reset once the report exists.
var ErrSessionDone = errors.New("session already finished")

var tracer = otel.Tracer("ai-act-advisor-be/pkg/rag/interview")

// Retriever is satisfied by *index.PassageIndex.
type Retriever interface {
	Query(ctx context.Context, text string, k int) (index.Result, error)
}

// FieldExtractor is satisfied by *extract.Extractor.
type FieldExtractor interface {
	Extract(ctx context.Context, session *store.Session, utterance string) (map[string]string, error)
}

type Dependencies struct {
	LLM   llm.LLMProvider
	Index Retriever

	// Embedder powers the duplicate-question guard; nil disables it.
	Embedder embedding.Provider

	// Optional; built from LLM when nil.
	Extractor FieldExtractor
	Schema    *schema.Schema
	Logger    logger.ILogger
	Clock     func() time.Time
}

type Config struct {
	MaxQuestions      int
	CoverageThreshold float64
	TopK              int
	ClassifyTopK      int

	QuestionTemperature   float64
	QuestionMaxTokens     int
	ExtractionTemperature float64
	ExtractionMaxTokens   int
	ReportTemperature     float64
	ReportMaxTokens       int

	DuplicateThreshold float64
}

func DefaultConfig() Config {
	return Config{
		MaxQuestions:          15,
		CoverageThreshold:     1.0,
		TopK:                  5,
		ClassifyTopK:          15,
		QuestionTemperature:   0.3,
		QuestionMaxTokens:     1000,
		ExtractionTemperature: 0.0,
		ExtractionMaxTokens:   600,
		ReportTemperature:     0.2,
		ReportMaxTokens:       4000,
		DuplicateThreshold:    0.75,
	}
}

// Engine is stateless between calls; all interview state lives in the
// Session handed to HandleTurn. Callers must serialise turns per session.
type Engine struct {
	llm       llm.LLMProvider
	index     Retriever
	embedder  embedding.Provider
	extractor FieldExtractor
	schema    schema.Schema
	builder   prompt.Builder
	states    *state.Manager
	cfg       Config
	logger    logger.ILogger
	clock     func() time.Time
}

func New(deps Dependencies, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = def.MaxQuestions
	}
	if cfg.CoverageThreshold <= 0 || cfg.CoverageThreshold > 1 {
		cfg.CoverageThreshold = def.CoverageThreshold
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.ClassifyTopK <= 0 {
		cfg.ClassifyTopK = def.ClassifyTopK
	}
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = def.DuplicateThreshold
	}

	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	sch := schema.Default()
	if deps.Schema != nil {
		sch = *deps.Schema
	}

	builder := prompt.NewBuilder(sch, cfg.CoverageThreshold, cfg.MaxQuestions)
	extractor := deps.Extractor
	if extractor == nil {
		extractor = extract.NewExtractor(deps.LLM, builder, cfg.ExtractionTemperature, cfg.ExtractionMaxTokens, log)
	}

	return &Engine{
		llm:       deps.LLM,
		index:     deps.Index,
		embedder:  deps.Embedder,
		extractor: extractor,
		schema:    sch,
		builder:   builder,
		states:    state.NewManager(log),
		cfg:       cfg,
		logger:    log,
		clock:     clock,
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Opening is the first assistant message of a session.
func (e *Engine) Opening() string {
	return response.Opening(e.cfg.MaxQuestions)
}

// Fresh returns a new GATHERING session carrying only the opening message.
func (e *Engine) Fresh(id string) *store.Session {
	now := e.clock()
	s := store.NewSession(id, now)
	s.Append(llm.RoleAssistant, e.Opening(), now)
	return s
}

func (e *Engine) Progress(session *store.Session) Progress {
	return Progress{
		QuestionsAsked: session.QuestionsAsked,
		MaxQuestions:   e.cfg.MaxQuestions,
		CoveredTopics:  e.schema.CoveredCount(session.CollectedFields, e.cfg.CoverageThreshold),
		TotalTopics:    e.schema.Len(),
		State:          session.State,
	}
}

// IsReset reports whether utterance is the reset command.
func IsReset(utterance string) bool {
	return strings.EqualFold(strings.TrimSpace(utterance), "reset")
}

// HandleTurn applies one user message. On error the original session is
// returned untouched and the caller may retry the same message.
func (e *Engine) HandleTurn(ctx context.Context, session *store.Session, utterance string) (*store.Session, *TurnResult, error) {
	ctx, span := tracer.Start(ctx, "interview.HandleTurn")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", session.ID),
		attribute.String("session.state", string(session.State)),
	)

	if IsReset(utterance) {
		fresh := e.Fresh(session.ID)
		e.logger.Info("INTERVIEW", "Session reset", map[string]interface{}{
			"session_id": session.ID,
			"from_state": session.State,
		})
		return fresh, &TurnResult{
			Kind:     KindReset,
			Message:  response.Reset(e.cfg.MaxQuestions),
			Progress: e.Progress(fresh),
		}, nil
	}

	var (
		next   *store.Session
		result *TurnResult
		err    error
	)
	switch session.State {
	case store.StateDone:
		err = ErrSessionDone
	case store.StateClassifying:
		next = session.Clone()
		next.Append(llm.RoleUser, utterance, e.clock())
		result = e.classify(ctx, next)
	default:
		next, result, err = e.gather(ctx, session, utterance)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return session, nil, err
	}
	span.SetAttributes(attribute.String("turn.kind", string(result.Kind)))
	return next, result, nil
}

func (e *Engine) gather(ctx context.Context, session *store.Session, utterance string) (*store.Session, *TurnResult, error) {
	work := session.Clone()
	work.Append(llm.RoleUser, utterance, e.clock())

	if work.AwaitingConfirmation {
		return e.confirm(ctx, work, utterance)
	}

	var alerts []screen.Finding
	first := work.UserTurns() == 1
	if first {
		alerts = screen.Screen(utterance)
		work.Alerts = alerts
		if len(alerts) > 0 {
			e.logger.Warn("INTERVIEW", "Article 5 indicators in description", map[string]interface{}{
				"session_id": work.ID,
				"findings":   len(alerts),
				"critical":   screen.HasCritical(alerts),
			})
		}
	}

	newFields, err := e.extractor.Extract(ctx, work, utterance)
	if err != nil {
		e.logger.Error("INTERVIEW", "Field extraction failed", map[string]interface{}{
			"session_id": work.ID,
			"error":      err.Error(),
		})
		return nil, nil, err
	}
	for k, v := range newFields {
		if !schema.IsSet(work.CollectedFields, k) {
			work.CollectedFields[k] = v
		}
	}

	if first && screen.HasCritical(alerts) {
		work.AwaitingConfirmation = true
		msg := response.ConfirmProhibited(alerts)
		work.Append(llm.RoleAssistant, msg, e.clock())
		return work, &TurnResult{
			Kind:      KindConfirm,
			Message:   msg,
			Alerts:    alerts,
			NewFields: newFields,
			Progress:  e.Progress(work),
		}, nil
	}

	return e.advance(ctx, work, newFields, alerts, first)
}

// advance either closes the interview or asks the next question.
func (e *Engine) advance(ctx context.Context, work *store.Session, newFields map[string]string, alerts []screen.Finding, first bool) (*store.Session, *TurnResult, error) {
	complete := e.schema.Complete(work.CollectedFields, e.cfg.CoverageThreshold)
	if complete || work.QuestionsAsked >= e.cfg.MaxQuestions {
		reason := "question limit reached"
		if complete {
			reason = "schema complete"
		}
		if err := e.states.TransitionToClassifying(work, reason); err != nil {
			return nil, nil, err
		}
		result := e.classify(ctx, work)
		result.Alerts = alerts
		result.NewFields = newFields
		return work, result, nil
	}

	topic := e.builder.NextTopic(work)
	retrieval, err := e.index.Query(ctx, topicQuery(topic, work), e.cfg.TopK)
	if err != nil {
		e.logger.Error("INTERVIEW", "Topic retrieval failed", map[string]interface{}{
			"session_id": work.ID,
			"topic":      topic.Key,
			"error":      err.Error(),
		})
		return nil, nil, fmt.Errorf("retrieve passages for %s: %w", topic.Key, err)
	}

	raw, err := e.llm.Generate(ctx, e.builder.QuestionPrompt(work, retrieval),
		llm.WithTemperature(e.cfg.QuestionTemperature),
		llm.WithMaxTokens(e.cfg.QuestionMaxTokens),
	)
	if err != nil {
		e.logger.Error("INTERVIEW", "Question generation failed", map[string]interface{}{
			"session_id": work.ID,
			"topic":      topic.Key,
			"error":      err.Error(),
		})
		return nil, nil, fmt.Errorf("generate question: %w", err)
	}

	question := cleanQuestion(raw)
	if question == "" {
		question = topic.Question
	}
	question = e.guardDuplicate(ctx, work, question, topic)

	work.QuestionsAsked++
	msg := response.Question(work.QuestionsAsked, e.cfg.MaxQuestions, question)
	if first {
		msg = response.WithAlerts(alerts, msg)
	}
	work.Append(llm.RoleAssistant, msg, e.clock())

	e.logger.Info("INTERVIEW", "Question asked", map[string]interface{}{
		"session_id":      work.ID,
		"topic":           topic.Key,
		"questions_asked": work.QuestionsAsked,
		"new_fields":      len(newFields),
		"passages":        len(retrieval),
	})

	return work, &TurnResult{
		Kind:      KindQuestion,
		Message:   msg,
		Question:  question,
		Topic:     topic.Key,
		Alerts:    alerts,
		NewFields: newFields,
		Progress:  e.Progress(work),
	}, nil
}

// topicQuery steers retrieval towards the topic while keeping the system in view.
func topicQuery(topic schema.Topic, session *store.Session) string {
	desc := []rune(prompt.Description(session))
	if len(desc) > 300 {
		desc = desc[:300]
	}
	return topic.Hint + "\n" + string(desc)
}

var (
	questionPrefixRe = regexp.MustCompile(`(?i)^(?:\[Q\d+/\d+\]|(?:next\s+)?question\s*\d*\s*[:.-])\s*`)
	askedQuestionRe  = regexp.MustCompile(`(?s)\[Q\d+/\d+\]\s*(.*)$`)
)

func cleanQuestion(raw string) string {
	q := strings.TrimSpace(raw)
	q = questionPrefixRe.ReplaceAllString(q, "")
	q = strings.Trim(q, "\"'` \n\t")
	return strings.TrimSpace(q)
}

package service

import (
	"context"

	"ai-act-advisor-be/internal/dto"
	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/pkg/events"
	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/interview"
	"ai-act-advisor-be/pkg/rag/session"
	"ai-act-advisor-be/pkg/store"
)

// IAdvisorService defines the interview API used by the controllers
type IAdvisorService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	GetSession(ctx context.Context, id string) (*dto.SessionResponse, error)
	ResetSession(ctx context.Context, id string) (*dto.CreateSessionResponse, error)
	DeleteSession(ctx context.Context, id string) error
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	Health(ctx context.Context) *dto.HealthResponse
}

// TurnEngine is satisfied by *interview.Engine.
type TurnEngine interface {
	HandleTurn(ctx context.Context, s *store.Session, utterance string) (*store.Session, *interview.TurnResult, error)
	Progress(s *store.Session) interview.Progress
	Opening() string
}

// AdvisorStats exposes sizes for the health endpoint.
type AdvisorStats struct {
	Chunks   func() int
	Sessions func() int
}

type advisorService struct {
	engine    TurnEngine
	sessions  *session.Manager
	publisher IPublisherService
	health    llm.HealthChecker
	stats     AdvisorStats
	logger    logger.ILogger
	locks     *sessionLocks
}

// NewAdvisorService wires the engine to session storage. publisher and health
// may be nil.
func NewAdvisorService(
	engine TurnEngine,
	sessions *session.Manager,
	publisher IPublisherService,
	health llm.HealthChecker,
	stats AdvisorStats,
	logger logger.ILogger,
) IAdvisorService {
	return &advisorService{
		engine:    engine,
		sessions:  sessions,
		publisher: publisher,
		health:    health,
		stats:     stats,
		logger:    logger,
		locks:     newSessionLocks(),
	}
}

func (s *advisorService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	sess, err := s.sessions.Create()
	if err != nil {
		return nil, err
	}

	s.logger.Info("ADVISOR", "Session created", map[string]interface{}{"session_id": sess.ID})
	s.emit(ctx, events.SessionCreated, map[string]interface{}{"session_id": sess.ID})

	return &dto.CreateSessionResponse{
		SessionID:     sess.ID,
		InitialPrompt: s.engine.Opening(),
		Progress:      s.engine.Progress(sess),
	}, nil
}

func (s *advisorService) GetSession(ctx context.Context, id string) (*dto.SessionResponse, error) {
	sess, err := s.sessions.Load(id)
	if err != nil {
		return nil, err
	}

	turns := make([]dto.TurnResponse, 0, len(sess.Turns))
	for _, t := range sess.Turns {
		turns = append(turns, dto.TurnResponse{Role: t.Role, Content: t.Content, Timestamp: t.Timestamp})
	}

	return &dto.SessionResponse{
		SessionID:            sess.ID,
		State:                sess.State,
		Progress:             s.engine.Progress(sess),
		CollectedFields:      sess.CollectedFields,
		Turns:                turns,
		Alerts:               sess.Alerts,
		AwaitingConfirmation: sess.AwaitingConfirmation,
		Report:               sess.FinalReport,
		CreatedAt:            sess.CreatedAt,
		UpdatedAt:            sess.UpdatedAt,
	}, nil
}

func (s *advisorService) ResetSession(ctx context.Context, id string) (*dto.CreateSessionResponse, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.sessions.Reset(id)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.SessionReset, map[string]interface{}{"session_id": id})
	return &dto.CreateSessionResponse{
		SessionID:     sess.ID,
		InitialPrompt: s.engine.Opening(),
		Progress:      s.engine.Progress(sess),
	}, nil
}

func (s *advisorService) DeleteSession(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if err := s.sessions.Delete(id); err != nil {
		return err
	}
	s.emit(ctx, events.SessionDeleted, map[string]interface{}{"session_id": id})
	return nil
}

// Chat runs one turn. The session is saved only when the turn succeeds, so a
// failed turn can be retried with the same message.
func (s *advisorService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	unlock := s.locks.lock(req.SessionID)
	defer unlock()

	sess, err := s.sessions.Load(req.SessionID)
	if err != nil {
		return nil, err
	}

	next, result, err := s.engine.HandleTurn(ctx, sess, req.Content)
	if err != nil {
		s.logger.Warn("ADVISOR", "Turn failed", map[string]interface{}{
			"session_id": req.SessionID,
			"state":      sess.State,
			"error":      err.Error(),
		})
		return nil, err
	}

	if err := s.sessions.Save(next); err != nil {
		return nil, err
	}

	s.publishTurn(ctx, next, result)

	return &dto.ChatResponse{
		SessionID: next.ID,
		Message:   result.Message,
		Kind:      result.Kind,
		IsDone:    result.IsDone(),
		Topic:     result.Topic,
		Progress:  result.Progress,
		Report:    result.Report,
		Alerts:    result.Alerts,
	}, nil
}

func (s *advisorService) Health(ctx context.Context) *dto.HealthResponse {
	res := &dto.HealthResponse{Status: "ok", Inference: "unchecked"}
	if s.stats.Chunks != nil {
		res.Chunks = s.stats.Chunks()
	}
	if s.stats.Sessions != nil {
		res.Sessions = s.stats.Sessions()
	}

	if s.health != nil {
		if err := s.health.HealthCheck(ctx); err != nil {
			s.logger.Warn("ADVISOR", "Inference backend unreachable", map[string]interface{}{"error": err.Error()})
			res.Status = "degraded"
			res.Inference = "down"
		} else {
			res.Inference = "up"
		}
	}
	return res
}

func (s *advisorService) publishTurn(ctx context.Context, sess *store.Session, result *interview.TurnResult) {
	switch result.Kind {
	case interview.KindReset:
		s.emit(ctx, events.SessionReset, map[string]interface{}{"session_id": sess.ID})
	case interview.KindQuestion:
		s.emit(ctx, events.QuestionAsked, map[string]interface{}{
			"session_id":      sess.ID,
			"questions_asked": result.Progress.QuestionsAsked,
			"topic":           result.Topic,
			"alerts":          len(result.Alerts),
		})
	case interview.KindConfirm:
		articles := make([]string, 0, len(result.Alerts))
		for _, a := range result.Alerts {
			articles = append(articles, a.Article)
		}
		s.emit(ctx, events.PracticeFlagged, map[string]interface{}{
			"session_id": sess.ID,
			"articles":   articles,
		})
	case interview.KindReport:
		data := map[string]interface{}{
			"session_id":      sess.ID,
			"questions_asked": result.Progress.QuestionsAsked,
		}
		if result.Report != nil {
			data["risk_level"] = string(result.Report.RiskLevel)
			data["degraded"] = result.Report.Degraded
			data["articles"] = result.Report.ApplicableArticles
		}
		s.emit(ctx, events.SessionClassified, data)
	}
}

func (s *advisorService) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		s.logger.Error("EVENTS", "Failed to publish "+eventType, map[string]interface{}{"error": err.Error()})
	}
}

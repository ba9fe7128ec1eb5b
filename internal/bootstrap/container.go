package bootstrap

import (
	"ai-act-advisor-be/internal/config"
	"ai-act-advisor-be/internal/controller"
	"ai-act-advisor-be/internal/pkg/logger"
	"ai-act-advisor-be/internal/repository/memory"
	"ai-act-advisor-be/internal/service"
	pktNats "ai-act-advisor-be/pkg/nats"
	"ai-act-advisor-be/pkg/rag/index"
	"ai-act-advisor-be/pkg/rag/interview"
	"ai-act-advisor-be/pkg/rag/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const eventTopic = "advisor_events"

type Container struct {
	// Controllers
	AdvisorController controller.IAdvisorController
	HealthController  controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	pubSub  *gochannel.GoChannel
	natsPub *pktNats.Publisher
}

// NewEngine builds the interview engine from config; the CLI uses it directly.
func NewEngine(cfg *config.Config, providers *Providers, idx *index.PassageIndex, sysLogger logger.ILogger) *interview.Engine {
	return interview.New(interview.Dependencies{
		LLM:      providers.LLM,
		Index:    idx,
		Embedder: providers.Embedder,
		Logger:   sysLogger,
	}, interview.Config{
		MaxQuestions:          cfg.Interview.MaxQuestions,
		CoverageThreshold:     cfg.Interview.CoverageThreshold,
		TopK:                  cfg.Corpus.TopK,
		ClassifyTopK:          cfg.Corpus.ClassifyTopK,
		QuestionTemperature:   cfg.Interview.QuestionTemperature,
		QuestionMaxTokens:     cfg.Interview.QuestionMaxTokens,
		ExtractionTemperature: cfg.Interview.ExtractionTemperature,
		ExtractionMaxTokens:   cfg.Interview.ExtractionMaxTokens,
		ReportTemperature:     cfg.Interview.ReportTemperature,
		ReportMaxTokens:       cfg.Interview.ReportMaxTokens,
		DuplicateThreshold:    cfg.Interview.DuplicateThreshold,
	})
}

func NewContainer(cfg *config.Config, sysLogger logger.ILogger, providers *Providers, idx *index.PassageIndex) *Container {
	// 1. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)

	// 2. NATS forwarding target; events are only logged without it
	var natsPub *pktNats.Publisher
	var sink service.EventSink
	if cfg.App.NatsURL != "" {
		p, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		} else {
			natsPub = p
			sink = p
		}
	}

	// 3. Sessions and engine
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL)
	engine := NewEngine(cfg, providers, idx, sysLogger)
	sessionManager := session.NewManager(sessionRepo, engine)

	// 4. Services
	publisherService := service.NewPublisherService(eventTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, eventTopic, sink, sysLogger)

	advisorService := service.NewAdvisorService(
		engine,
		sessionManager,
		publisherService,
		providers.Health(),
		service.AdvisorStats{Chunks: idx.Len, Sessions: sessionRepo.Count},
		sysLogger,
	)

	// 5. Controllers
	return &Container{
		AdvisorController: controller.NewAdvisorController(advisorService),
		HealthController:  controller.NewHealthController(advisorService),
		ConsumerService:   consumerService,
		Logger:            sysLogger,
		pubSub:            pubSub,
		natsPub:           natsPub,
	}
}

// Close releases the event bus and the NATS connection.
func (c *Container) Close() {
	if c.pubSub != nil {
		_ = c.pubSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
}

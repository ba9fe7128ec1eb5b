package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Tracing   TracingConfig
	Ai        AIConfig
	Corpus    CorpusConfig
	Interview InterviewConfig
	Session   SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

type AIConfig struct {
	LLMProvider   string // "ollama", "huggingface" or "openai"
	LLMModel      string // e.g. "llama3", "qwen2.5"
	LLMAPIKey     string
	LLMBaseURL    string // overrides the provider default when set
	OllamaBaseURL string

	EmbeddingProvider string // "ollama", "jina" or "openai"
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingCache    string // "redis", "memory" or "none"
}

type CorpusConfig struct {
	SourcePath       string // .pdf or plain text
	WindowSize       int
	EmbedConcurrency int
	TopK             int
	ClassifyTopK     int
}

type InterviewConfig struct {
	MaxQuestions      int
	CoverageThreshold float64

	QuestionTemperature   float64
	QuestionMaxTokens     int
	ExtractionTemperature float64
	ExtractionMaxTokens   int
	ReportTemperature     float64
	ReportMaxTokens       int

	DuplicateThreshold float64
}

type SessionConfig struct {
	TTL time.Duration // 0 keeps sessions until deleted
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/advisor.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Ai: AIConfig{
			LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "ollama")),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			EmbeddingProvider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", "ollama")),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			EmbeddingAPIKey:   getEnv("EMBEDDING_API_KEY", ""),
			EmbeddingCache:    strings.ToLower(getEnv("EMBEDDING_CACHE", "memory")),
		},
		Corpus: CorpusConfig{
			SourcePath:       getEnv("CORPUS_SOURCE_PATH", "data/ai_act.pdf"),
			WindowSize:       getEnvAsInt("CORPUS_WINDOW_SIZE", 800),
			EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
			TopK:             getEnvAsInt("RETRIEVAL_TOP_K", 5),
			ClassifyTopK:     getEnvAsInt("CLASSIFY_TOP_K", 15),
		},
		Interview: InterviewConfig{
			MaxQuestions:          getEnvAsInt("INTERVIEW_MAX_QUESTIONS", 15),
			CoverageThreshold:     getEnvAsFloat("INTERVIEW_COVERAGE_THRESHOLD", 1.0),
			QuestionTemperature:   getEnvAsFloat("QUESTION_TEMPERATURE", 0.3),
			QuestionMaxTokens:     getEnvAsInt("QUESTION_MAX_TOKENS", 1000),
			ExtractionTemperature: getEnvAsFloat("EXTRACTION_TEMPERATURE", 0.0),
			ExtractionMaxTokens:   getEnvAsInt("EXTRACTION_MAX_TOKENS", 600),
			ReportTemperature:     getEnvAsFloat("REPORT_TEMPERATURE", 0.2),
			ReportMaxTokens:       getEnvAsInt("REPORT_MAX_TOKENS", 4000),
			DuplicateThreshold:    getEnvAsFloat("DUPLICATE_SIMILARITY_THRESHOLD", 0.75),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 0),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("30m") or plain seconds ("1800").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
